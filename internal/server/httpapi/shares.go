package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/snippetvault/internal/common"
	"github.com/dmitrijs2005/snippetvault/internal/server/models"
	"github.com/dmitrijs2005/snippetvault/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type shareRequest struct {
	ExpiresHours *int   `json:"expires_hours"`
	NoExpiry     bool   `json:"no_expiry"`
	Password     string `json:"password"`
}

// shareLinkResponse never carries the password hash.
type shareLinkResponse struct {
	ID          string     `json:"id"`
	Token       string     `json:"token"`
	SnippetID   string     `json:"snippet_id"`
	ShareURL    string     `json:"share_url"`
	ExpiresAt   *time.Time `json:"expires_at"`
	HasPassword bool       `json:"has_password"`
	IsActive    bool       `json:"is_active"`
	State       string     `json:"state,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newShareLinkResponse(l *models.ShareLink) shareLinkResponse {
	return shareLinkResponse{
		ID:          l.ID,
		Token:       l.Token,
		SnippetID:   l.SnippetID,
		ShareURL:    "/shared/" + l.Token,
		ExpiresAt:   l.ExpiresAt,
		HasPassword: l.HasPassword(),
		IsActive:    l.Active,
		CreatedAt:   l.CreatedAt,
	}
}

type sharedPasswordRequest struct {
	Password *string `json:"password"`
}

type sharedSnippetResponse struct {
	Title     string     `json:"title"`
	Language  string     `json:"language"`
	Code      string     `json:"code"`
	SharedAt  time.Time  `json:"shared_at"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (h *Handler) CreateShare(w http.ResponseWriter, r *http.Request) {
	snippetID, err := pathID(r, common.ErrNotFoundOrForbidden)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req shareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	link, err := h.Shares.CreateShareLink(r.Context(), userIDFrom(r.Context()), snippetID, services.ShareOptions{
		ExpiresHours: req.ExpiresHours,
		NoExpiry:     req.NoExpiry,
		Password:     req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newShareLinkResponse(link))
}

func (h *Handler) ListShares(w http.ResponseWriter, r *http.Request) {
	snippetID, err := pathID(r, common.ErrNotFoundOrForbidden)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	views, err := h.Shares.ListShareLinks(r.Context(), userIDFrom(r.Context()), snippetID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]shareLinkResponse, 0, len(views))
	for _, v := range views {
		resp := newShareLinkResponse(v.ShareLink)
		resp.State = string(v.State)
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) DeactivateShare(w http.ResponseWriter, r *http.Request) {
	linkID, err := pathID(r, common.ErrNotFoundOrForbidden)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	link, err := h.Shares.DeactivateShareLink(r.Context(), userIDFrom(r.Context()), linkID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := newShareLinkResponse(link)
	resp.State = string(models.ShareLinkDeactivated)
	writeJSON(w, http.StatusOK, resp)
}

// AccessShared serves GET and POST /shared/{token}. GET takes the password
// from the X-Share-Password header or the password query parameter, POST
// from a JSON body.
func (h *Handler) AccessShared(w http.ResponseWriter, r *http.Request) {
	password, err := sharedPassword(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	s, err := h.Shares.AccessSnippet(r.Context(), chi.URLParam(r, "token"), password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sharedSnippetResponse{
		Title:     s.Title,
		Language:  s.Language,
		Code:      s.Code,
		SharedAt:  s.SharedAt,
		ExpiresAt: s.ExpiresAt,
	})
}

func sharedPassword(w http.ResponseWriter, r *http.Request) (*string, error) {
	if r.Method == http.MethodPost {
		var req sharedPasswordRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, common.ErrValidation
		}
		if len(body) == 0 {
			return nil, nil
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, common.ErrValidation
		}
		return req.Password, nil
	}

	if v := r.Header.Get(common.SharePasswordHeaderName); v != "" {
		return &v, nil
	}
	if q := r.URL.Query(); q.Has("password") {
		v := q.Get("password")
		return &v, nil
	}
	return nil, nil
}
