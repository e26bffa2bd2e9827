// Package handlers wires HTTP routing and API handlers.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/handsomefox/title-catalog/internal/catalog"
	"github.com/handsomefox/title-catalog/internal/enrich"
	"github.com/handsomefox/title-catalog/internal/logger"
)

const (
	defaultRecommendLimit = 6
	maxRecommendLimit     = 50

	notAvailable = "N/A"
)

// Catalog is the read side of enrich.Service.
type Catalog interface {
	GetEnriched(ctx context.Context, t catalog.Type) (enrich.Result, error)
	Find(ctx context.Context, t catalog.Type, id string) (catalog.TitleItem, bool, error)
}

type Chatter interface {
	Generate(ctx context.Context, message, model string) (string, error)
}

type Handler struct {
	catalog Catalog
	chat    Chatter
}

type Config struct {
	Catalog Catalog
	Chat    Chatter
}

func New(cfg *Config) (*Handler, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if cfg.Chat == nil {
		return nil, errors.New("chat client is required")
	}
	return &Handler{catalog: cfg.Catalog, chat: cfg.Chat}, nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Method(http.MethodGet, "/ping", Adapt(h.getPing))

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/titles", Adapt(h.getTitles))
		r.Method(http.MethodGet, "/filters", Adapt(h.getFilters))
		r.Method(http.MethodGet, "/details", Adapt(h.getDetails))
		r.Method(http.MethodGet, "/recommendations", Adapt(h.getRecommendations))
		r.Method(http.MethodPost, "/chat", Adapt(h.postChat))
	})
}

func (h *Handler) getPing(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}

func (h *Handler) getTitles(w http.ResponseWriter, r *http.Request) error {
	t, err := typeParam(r)
	if err != nil {
		return err
	}
	query, err := parseQuery(r)
	if err != nil {
		return err
	}

	res, err := h.catalog.GetEnriched(r.Context(), t)
	if err != nil {
		return err
	}

	items := catalog.FilterAndSort(res.Items, query)
	writeJSON(w, http.StatusOK, &enrich.Result{Total: len(items), Items: items})
	return nil
}

func parseQuery(r *http.Request) (catalog.Query, error) {
	q := r.URL.Query()
	year, err := optionalInt(r, "year")
	if err != nil {
		return catalog.Query{}, err
	}
	order, err := catalog.ParseOrder(q.Get("order"))
	if err != nil {
		return catalog.Query{}, badRequest(err.Error())
	}
	return catalog.Query{
		Q:       q.Get("q"),
		Genre:   q.Get("genre"),
		Year:    year,
		Country: q.Get("country"),
		Order:   order,
	}, nil
}

func (h *Handler) getFilters(w http.ResponseWriter, r *http.Request) error {
	t, err := typeParam(r)
	if err != nil {
		return err
	}
	res, err := h.catalog.GetEnriched(r.Context(), t)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, catalog.Facets(res.Items))
	return nil
}

// getDetails answers 200 with an all "N/A" record when the id is unknown;
// the details page renders that instead of an error.
func (h *Handler) getDetails(w http.ResponseWriter, r *http.Request) error {
	t, err := typeParam(r)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		return badRequest("missing id")
	}

	item, ok, err := h.catalog.Find(r.Context(), t, id)
	if err != nil {
		return err
	}
	if !ok {
		writeJSON(w, http.StatusOK, detailsPlaceholder())
		return nil
	}
	writeJSON(w, http.StatusOK, &item)
	return nil
}

func detailsPlaceholder() map[string]string {
	fields := []string{
		"title", "year", "genre", "country", "poster_url", "url", "id",
		"synopsis", "duration", "release_date", "directors", "actors",
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f] = notAvailable
	}
	return out
}

type recommendationsResponse struct {
	Items []catalog.TitleItem `json:"items"`
}

func (h *Handler) getRecommendations(w http.ResponseWriter, r *http.Request) error {
	t, err := typeParam(r)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		return badRequest("missing id")
	}
	limit := defaultRecommendLimit
	if v, err := optionalInt(r, "limit"); err != nil {
		return err
	} else if v != nil {
		if *v < 0 {
			return badRequest("bad limit")
		}
		limit = min(*v, maxRecommendLimit)
	}

	res, err := h.catalog.GetEnriched(r.Context(), t)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, &recommendationsResponse{Items: catalog.Recommend(res.Items, id, limit)})
	return nil
}

type chatRequest struct {
	Message string  `json:"message"`
	Model   *string `json:"model"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

func (h *Handler) postChat(w http.ResponseWriter, r *http.Request) error {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		return badRequest("bad request")
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return badRequest("empty message")
	}
	model := ""
	if req.Model != nil {
		model = strings.TrimSpace(*req.Model)
	}

	answer, err := h.chat.Generate(r.Context(), msg, model)
	if err != nil {
		slog.Warn("chat: generate failed", logger.Error(err))
		return badGateway("chat backend unavailable: " + err.Error())
	}
	writeJSON(w, http.StatusOK, &chatResponse{Answer: answer})
	return nil
}
