package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/snippetvault/internal/common"
	"github.com/dmitrijs2005/snippetvault/internal/dbx"
	"github.com/dmitrijs2005/snippetvault/internal/logging"
	"github.com/dmitrijs2005/snippetvault/internal/server/models"
	"github.com/dmitrijs2005/snippetvault/internal/server/repositories/auditlog"
	"github.com/dmitrijs2005/snippetvault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/snippetvault/internal/server/repositories/sharelinks"
	"github.com/dmitrijs2005/snippetvault/internal/server/repositories/snippets"
	"github.com/dmitrijs2005/snippetvault/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func expectCommits(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

func expectRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

// memStore backs every fake repository. Fields named *Err are returned by
// the matching operation when set.
type memStore struct {
	mu sync.Mutex
	id int

	users    map[string]*models.User
	tokens   map[string]*models.RefreshToken
	snippets map[string]*models.Snippet
	links    map[string]*models.ShareLink
	audit    []*models.AuditEntry
	cursor   int64

	createUserErr    error
	createSnippetErr error
	getSnippetErr    error
	createLinkErrs   []error
	recordErr        error
	listAfterErr     error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		tokens:   map[string]*models.RefreshToken{},
		snippets: map[string]*models.Snippet{},
		links:    map[string]*models.ShareLink{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.id++
	return fmt.Sprintf("%s-%d", prefix, s.id)
}

func (s *memStore) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.audit))
	for _, e := range s.audit {
		out = append(out, e.Action)
	}
	return out
}

type fakeRepoManager struct {
	s *memStore
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return (*fakeUsers)(m.s) }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return (*fakeTokens)(m.s)
}
func (m *fakeRepoManager) Snippets(dbx.DBTX) snippets.Repository     { return (*fakeSnippets)(m.s) }
func (m *fakeRepoManager) ShareLinks(dbx.DBTX) sharelinks.Repository { return (*fakeLinks)(m.s) }
func (m *fakeRepoManager) AuditLog(dbx.DBTX) auditlog.Repository     { return (*fakeAudit)(m.s) }

type fakeUsers memStore

func (f *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createUserErr != nil {
		return nil, s.createUserErr
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := *u
	c.ID = s.nextID("user")
	c.CreatedAt = time.Now()
	s.users[c.ID] = &c
	return &c, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

type fakeTokens memStore

func (f *fakeTokens) Create(_ context.Context, userID, token string, expiresAt time.Time) error {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = &models.RefreshToken{ID: s.nextID("rt"), UserID: userID, Token: token, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeTokens) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *t
	return &c, nil
}

func (f *fakeTokens) Delete(_ context.Context, token string) error {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(s.tokens, token)
	return nil
}

type fakeSnippets memStore

func (f *fakeSnippets) Create(_ context.Context, in *models.Snippet) (*models.Snippet, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createSnippetErr != nil {
		return nil, s.createSnippetErr
	}
	c := *in
	c.ID = s.nextID("snippet")
	c.CreatedAt = time.Now()
	s.snippets[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeSnippets) GetByID(ctx context.Context, id, ownerID string) (*models.Snippet, error) {
	sn, err := f.GetByIDAnyOwner(ctx, id)
	if err != nil {
		return nil, err
	}
	if sn.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	return sn, nil
}

func (f *fakeSnippets) GetByIDAnyOwner(_ context.Context, id string) (*models.Snippet, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getSnippetErr != nil {
		return nil, s.getSnippetErr
	}
	sn, ok := s.snippets[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *sn
	return &c, nil
}

func (f *fakeSnippets) ListByOwner(_ context.Context, ownerID string) ([]*models.Snippet, error) {
	return f.filter(func(sn *models.Snippet) bool { return sn.OwnerID == ownerID }), nil
}

func (f *fakeSnippets) ListWithPrefix(_ context.Context, prefix string) ([]*models.Snippet, error) {
	return f.filter(func(sn *models.Snippet) bool { return strings.HasPrefix(sn.Ciphertext, prefix) }), nil
}

func (f *fakeSnippets) filter(keep func(*models.Snippet) bool) []*models.Snippet {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Snippet, 0)
	for _, sn := range s.snippets {
		if keep(sn) {
			c := *sn
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeSnippets) Update(_ context.Context, in *models.Snippet) (*models.Snippet, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	sn, ok := s.snippets[in.ID]
	if !ok || sn.OwnerID != in.OwnerID {
		return nil, common.ErrorNotFound
	}
	now := time.Now()
	sn.Title, sn.Language, sn.Ciphertext, sn.UpdatedAt = in.Title, in.Language, in.Ciphertext, &now
	c := *sn
	return &c, nil
}

func (f *fakeSnippets) Delete(_ context.Context, id, ownerID string) error {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	sn, ok := s.snippets[id]
	if !ok || sn.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	delete(s.snippets, id)
	for lid, l := range s.links {
		if l.SnippetID == id {
			delete(s.links, lid)
		}
	}
	return nil
}

func (f *fakeSnippets) UpdateCiphertext(_ context.Context, id, old, ciphertext string) error {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	sn, ok := s.snippets[id]
	if !ok || sn.Ciphertext != old {
		return common.ErrorNotFound
	}
	sn.Ciphertext = ciphertext
	return nil
}

type fakeLinks memStore

func (f *fakeLinks) Create(_ context.Context, in *models.ShareLink) (*models.ShareLink, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.createLinkErrs) > 0 {
		err := s.createLinkErrs[0]
		s.createLinkErrs = s.createLinkErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	for _, l := range s.links {
		if l.Token == in.Token {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := *in
	c.ID = s.nextID("link")
	c.Active = true
	c.CreatedAt = time.Now()
	s.links[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeLinks) GetByToken(_ context.Context, token string) (*models.ShareLink, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		if l.Token == token {
			c := *l
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeLinks) GetByID(_ context.Context, id string) (*models.ShareLink, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *l
	return &c, nil
}

func (f *fakeLinks) ListBySnippet(_ context.Context, snippetID, ownerID string) ([]*models.ShareLink, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.ShareLink, 0)
	for _, l := range s.links {
		if l.SnippetID == snippetID && l.OwnerID == ownerID {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLinks) Deactivate(_ context.Context, id, ownerID string) (*models.ShareLink, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok || l.OwnerID != ownerID || !l.Active {
		return nil, common.ErrorNotFound
	}
	l.Active = false
	c := *l
	return &c, nil
}

type fakeAudit memStore

func (f *fakeAudit) Record(_ context.Context, e *models.AuditEntry) (*models.AuditEntry, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErr != nil {
		return nil, s.recordErr
	}
	c := *e
	c.ID = int64(len(s.audit) + 1)
	c.CreatedAt = time.Now()
	s.audit = append(s.audit, &c)
	return &c, nil
}

func (f *fakeAudit) ListByActor(_ context.Context, actorID string, limit int) ([]*models.AuditEntry, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.AuditEntry, 0)
	for i := len(s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		if e := s.audit[i]; e.ActorID != nil && *e.ActorID == actorID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAudit) ListAfter(_ context.Context, afterID int64, settledFor time.Duration, limit int) ([]*models.AuditEntry, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listAfterErr != nil {
		return nil, s.listAfterErr
	}
	cutoff := time.Now().Add(-settledFor)
	out := make([]*models.AuditEntry, 0)
	for _, e := range s.audit {
		if e.ID > afterID && e.CreatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAudit) GetCursor(context.Context) (int64, error) {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, nil
}

func (f *fakeAudit) SetCursor(_ context.Context, lastID int64) error {
	s := (*memStore)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = lastID
	return nil
}

type nopAudit struct{}

func (nopAudit) Record(context.Context, dbx.DBTX, AuditEvent) error { return nil }
