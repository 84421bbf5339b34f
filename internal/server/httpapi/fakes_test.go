package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/snippetvault/internal/logging"
	"github.com/dmitrijs2005/snippetvault/internal/server/models"
	"github.com/dmitrijs2005/snippetvault/internal/server/services"
)

type recLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recLogger) record(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprint(append([]any{msg}, args...)...))
}

func (l *recLogger) Info(_ context.Context, msg string, args ...any)  { l.record(msg, args...) }
func (l *recLogger) Warn(_ context.Context, msg string, args ...any)  { l.record(msg, args...) }
func (l *recLogger) Error(_ context.Context, msg string, args ...any) { l.record(msg, args...) }
func (l *recLogger) With(...any) logging.Logger                       { return l }

func (l *recLogger) all() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

type fakeUsers struct {
	register     func(email, password string) (*models.User, error)
	login        func(email, password string) (*services.TokenPair, error)
	refresh      func(token string) (*services.TokenPair, error)
	me           func(userID string) (*models.User, error)
	authenticate func(token string) (string, error)
}

func (f *fakeUsers) Register(_ context.Context, email, password string) (*models.User, error) {
	return f.register(email, password)
}
func (f *fakeUsers) Login(_ context.Context, email, password string) (*services.TokenPair, error) {
	return f.login(email, password)
}
func (f *fakeUsers) RefreshToken(_ context.Context, token string) (*services.TokenPair, error) {
	return f.refresh(token)
}
func (f *fakeUsers) Me(_ context.Context, userID string) (*models.User, error) { return f.me(userID) }
func (f *fakeUsers) Authenticate(_ context.Context, token string) (string, error) {
	if f.authenticate == nil {
		return "u1", nil
	}
	return f.authenticate(token)
}

type fakeSnippets struct {
	create func(ownerID string, in services.SnippetInput) (*services.PlainSnippet, error)
	list   func(ownerID string) ([]*services.PlainSnippet, error)
	get    func(ownerID, id string) (*services.PlainSnippet, error)
	update func(ownerID, id string, in services.SnippetInput) (*services.PlainSnippet, error)
	delete func(ownerID, id string) error
}

func (f *fakeSnippets) Create(_ context.Context, ownerID string, in services.SnippetInput) (*services.PlainSnippet, error) {
	return f.create(ownerID, in)
}
func (f *fakeSnippets) List(_ context.Context, ownerID string) ([]*services.PlainSnippet, error) {
	return f.list(ownerID)
}
func (f *fakeSnippets) Get(_ context.Context, ownerID, id string) (*services.PlainSnippet, error) {
	return f.get(ownerID, id)
}
func (f *fakeSnippets) Update(_ context.Context, ownerID, id string, in services.SnippetInput) (*services.PlainSnippet, error) {
	return f.update(ownerID, id, in)
}
func (f *fakeSnippets) Delete(_ context.Context, ownerID, id string) error { return f.delete(ownerID, id) }

type fakeShares struct {
	create     func(ownerID, snippetID string, opts services.ShareOptions) (*models.ShareLink, error)
	list       func(ownerID, snippetID string) ([]*services.ShareLinkView, error)
	deactivate func(ownerID, linkID string) (*models.ShareLink, error)
	access     func(token string, candidate *string) (*services.SharedSnippet, error)
}

func (f *fakeShares) CreateShareLink(_ context.Context, ownerID, snippetID string, opts services.ShareOptions) (*models.ShareLink, error) {
	return f.create(ownerID, snippetID, opts)
}
func (f *fakeShares) ListShareLinks(_ context.Context, ownerID, snippetID string) ([]*services.ShareLinkView, error) {
	return f.list(ownerID, snippetID)
}
func (f *fakeShares) DeactivateShareLink(_ context.Context, ownerID, linkID string) (*models.ShareLink, error) {
	return f.deactivate(ownerID, linkID)
}
func (f *fakeShares) AccessSnippet(_ context.Context, token string, candidate *string) (*services.SharedSnippet, error) {
	return f.access(token, candidate)
}

type fakeAudit struct {
	list func(actorID string, limit int) ([]*models.AuditEntry, error)
}

func (f *fakeAudit) ListForActor(_ context.Context, actorID string, limit int) ([]*models.AuditEntry, error) {
	return f.list(actorID, limit)
}

type fakeHealth struct{ report services.HealthReport }

func (f fakeHealth) Check(context.Context) services.HealthReport { return f.report }

type testServer struct {
	users    *fakeUsers
	snippets *fakeSnippets
	shares   *fakeShares
	audit    *fakeAudit
	health   *fakeHealth
	logger   *recLogger
	handler  http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		users:    &fakeUsers{},
		snippets: &fakeSnippets{},
		shares:   &fakeShares{},
		audit:    &fakeAudit{},
		health:   &fakeHealth{report: services.HealthReport{Status: "healthy", Database: "connected", Encryption: "working"}},
		logger:   &recLogger{},
	}
	h := NewHandler(Services{
		Users:    ts.users,
		Snippets: ts.snippets,
		Shares:   ts.shares,
		Audit:    ts.audit,
		Health:   ts.health,
	}, ts.logger)
	ts.handler = NewRouter(h)
	return ts
}

func (ts *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

var bearer = []string{"Authorization", "Bearer good-token"}
