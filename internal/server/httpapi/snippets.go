package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/snippetvault/internal/common"
	"github.com/dmitrijs2005/snippetvault/internal/server/services"
)

type snippetRequest struct {
	Title    string `json:"title"`
	Language string `json:"language"`
	Code     string `json:"code"`
}

func (req snippetRequest) input() services.SnippetInput {
	return services.SnippetInput{Title: req.Title, Language: req.Language, Code: req.Code}
}

type snippetResponse struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Title     string     `json:"title"`
	Language  string     `json:"language"`
	Code      string     `json:"code"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func newSnippetResponse(s *services.PlainSnippet) snippetResponse {
	return snippetResponse{
		ID:        s.ID,
		OwnerID:   s.OwnerID,
		Title:     s.Title,
		Language:  s.Language,
		Code:      s.Code,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func (h *Handler) CreateSnippet(w http.ResponseWriter, r *http.Request) {
	var req snippetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	s, err := h.Snippets.Create(r.Context(), userIDFrom(r.Context()), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newSnippetResponse(s))
}

func (h *Handler) ListSnippets(w http.ResponseWriter, r *http.Request) {
	items, err := h.Snippets.List(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]snippetResponse, 0, len(items))
	for _, s := range items {
		out = append(out, newSnippetResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetSnippet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, common.ErrorNotFound)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	s, err := h.Snippets.Get(r.Context(), userIDFrom(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newSnippetResponse(s))
}

func (h *Handler) UpdateSnippet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, common.ErrorNotFound)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req snippetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	s, err := h.Snippets.Update(r.Context(), userIDFrom(r.Context()), id, req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newSnippetResponse(s))
}

func (h *Handler) DeleteSnippet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, common.ErrorNotFound)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.Snippets.Delete(r.Context(), userIDFrom(r.Context()), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
