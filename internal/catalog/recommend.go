package catalog

// Recommend returns up to limit items that share at least one genre token
// with the item identified by subjectID, in collection order. The subject
// itself is never part of the result.
func Recommend(items []TitleItem, subjectID string, limit int) []TitleItem {
	out := []TitleItem{}
	if limit <= 0 {
		return out
	}

	var subject *TitleItem
	for i := range items {
		if items[i].ID == subjectID {
			subject = &items[i]
			break
		}
	}
	if subject == nil {
		return out
	}

	tokens := subject.GenreTokens()
	if len(tokens) == 0 {
		return out
	}
	want := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		want[t] = struct{}{}
	}

	for _, it := range items {
		if it.ID == subjectID {
			continue
		}
		for _, t := range it.GenreTokens() {
			if _, ok := want[t]; ok {
				out = append(out, it)
				break
			}
		}
		if len(out) >= limit {
			break
		}
	}
	return out
}
