// Package ollama asks a local Ollama server for film and series suggestions.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultURL     = "http://127.0.0.1:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 60 * time.Second
)

const promptTemplate = `
Tu es un assistant de recommandation de films/séries.

Règle 1 : si la demande est vague (ex: "conseille-moi un film" sans genre / mood / époque / film vs série),
pose d'abord 2 questions maximum pour préciser (genre, ambiance, époque, durée, pays, film ou série).
Ne donne pas de liste tant que l'utilisateur n'a pas répondu.

Règle 2 : si l'utilisateur donne au moins un critère (genre OU ambiance OU année/époque OU film/série),
alors réponds avec une liste claire (maximum 5).

Format liste :
- Titre — année — genre — 1 raison courte

Important : si tu fais une liste, utilise des puces "-" (pas de paragraphe).

Message utilisateur :
%s
`

// StatusError is a non-2xx answer from the Ollama server.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ollama: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("ollama: HTTP %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL string
	model   string
	http    *http.Client
}

func New(baseURL, model string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

// Prompt wraps the user message in the recommendation instructions.
func Prompt(message string) string {
	return fmt.Sprintf(promptTemplate, message)
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate sends one non-streaming completion request. An empty model
// uses the client default.
func (c *Client) Generate(ctx context.Context, message, model string) (string, error) {
	if strings.TrimSpace(model) == "" {
		model = c.model
	}
	body, err := json.Marshal(generateRequest{Model: model, Prompt: Prompt(message), Stream: false})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
		if cerr := resp.Body.Close(); cerr != nil {
			return "", errors.Join(statusErr, cerr)
		}
		return "", statusErr
	}

	var payload generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		if cerr := resp.Body.Close(); cerr != nil {
			return "", errors.Join(err, cerr)
		}
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if err := resp.Body.Close(); err != nil {
		return "", err
	}
	return strings.TrimSpace(payload.Response), nil
}
