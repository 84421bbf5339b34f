// Package httpapi is the JSON-over-HTTP surface of the vault, routed with chi.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/snippetvault/internal/logging"
	"github.com/dmitrijs2005/snippetvault/internal/server/models"
	"github.com/dmitrijs2005/snippetvault/internal/server/services"
)

type UserService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Me(ctx context.Context, userID string) (*models.User, error)
	Authenticate(ctx context.Context, accessToken string) (string, error)
}

type SnippetService interface {
	Create(ctx context.Context, ownerID string, in services.SnippetInput) (*services.PlainSnippet, error)
	List(ctx context.Context, ownerID string) ([]*services.PlainSnippet, error)
	Get(ctx context.Context, ownerID, id string) (*services.PlainSnippet, error)
	Update(ctx context.Context, ownerID, id string, in services.SnippetInput) (*services.PlainSnippet, error)
	Delete(ctx context.Context, ownerID, id string) error
}

type ShareService interface {
	CreateShareLink(ctx context.Context, ownerID, snippetID string, opts services.ShareOptions) (*models.ShareLink, error)
	ListShareLinks(ctx context.Context, ownerID, snippetID string) ([]*services.ShareLinkView, error)
	DeactivateShareLink(ctx context.Context, ownerID, linkID string) (*models.ShareLink, error)
	AccessSnippet(ctx context.Context, token string, candidate *string) (*services.SharedSnippet, error)
}

type AuditService interface {
	ListForActor(ctx context.Context, actorID string, limit int) ([]*models.AuditEntry, error)
}

type HealthChecker interface {
	Check(ctx context.Context) services.HealthReport
}

// Services bundles what the handlers depend on.
type Services struct {
	Users    UserService
	Snippets SnippetService
	Shares   ShareService
	Audit    AuditService
	Health   HealthChecker
}

type Handler struct {
	Services
	logger logging.Logger
}

func NewHandler(s Services, logger logging.Logger) *Handler {
	return &Handler{Services: s, logger: logger.With("module", "http")}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := h.Health.Check(r.Context())

	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// pathID returns the {id} route parameter in canonical UUID form. Anything
// that is not a UUID cannot name a row, so it fails with notFound before a
// query is issued.
func pathID(r *http.Request, notFound error) (string, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return "", notFound
	}
	return id.String(), nil
}
