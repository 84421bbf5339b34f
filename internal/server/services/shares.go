package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/snippetvault/internal/common"
	"github.com/dmitrijs2005/snippetvault/internal/cryptox"
	"github.com/dmitrijs2005/snippetvault/internal/dbx"
	"github.com/dmitrijs2005/snippetvault/internal/logging"
	"github.com/dmitrijs2005/snippetvault/internal/server/config"
	"github.com/dmitrijs2005/snippetvault/internal/server/models"
	"github.com/dmitrijs2005/snippetvault/internal/server/repositories/repomanager"
)

const (
	shareTokenBytes    = 32
	shareTokenAttempts = 3
)

// ShareOptions controls a new share link. A nil ExpiresHours selects the
// configured default; NoExpiry wins over ExpiresHours. An empty Password
// leaves the link unprotected.
type ShareOptions struct {
	ExpiresHours *int
	NoExpiry     bool
	Password     string
}

// SharedSnippet is what an anonymous holder of a share token receives.
type SharedSnippet struct {
	Title     string
	Language  string
	Code      string
	SharedAt  time.Time
	ExpiresAt *time.Time
}

// ShareLinkView is a share link with its state at listing time.
type ShareLinkView struct {
	*models.ShareLink
	State models.ShareLinkState
}

type ShareService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	audit         AuditSink
	logger        logging.Logger
	opener        opener
	defaultExpiry time.Duration
	maxExpiry     time.Duration
	now           func() time.Time
	newToken      func(n int) (string, error)
}

func NewShareService(db *sql.DB, m repomanager.RepositoryManager, c cryptox.Cipher, audit AuditSink, logger logging.Logger, cfg *config.Config) *ShareService {
	logger = logger.With("module", "shares")
	return &ShareService{
		db:            db,
		repomanager:   m,
		audit:         audit,
		logger:        logger,
		opener:        opener{cipher: c, allowLegacy: cfg.AllowLegacyPlaintext, logger: logger},
		defaultExpiry: cfg.ShareDefaultExpiry,
		maxExpiry:     cfg.ShareMaxExpiry,
		now:           time.Now,
		newToken:      common.MakeRandURLToken,
	}
}

func (s *ShareService) expiry(opts ShareOptions, now time.Time) (*time.Time, error) {
	if opts.NoExpiry {
		return nil, nil
	}

	d := s.defaultExpiry
	if opts.ExpiresHours != nil {
		h := *opts.ExpiresHours
		if h < 0 {
			return nil, fmt.Errorf("%w: expires_hours must not be negative", common.ErrValidation)
		}
		d = time.Duration(h) * time.Hour
		if s.maxExpiry > 0 && d > s.maxExpiry {
			return nil, fmt.Errorf("%w: expires_hours must not exceed %d", common.ErrValidation, int(s.maxExpiry/time.Hour))
		}
	}

	exp := now.Add(d)
	return &exp, nil
}

// CreateShareLink shares one of ownerID's snippets. Missing and foreign
// snippets both yield common.ErrNotFoundOrForbidden.
func (s *ShareService) CreateShareLink(ctx context.Context, ownerID, snippetID string, opts ShareOptions) (*models.ShareLink, error) {
	now := s.now()

	expiresAt, err := s.expiry(opts, now)
	if err != nil {
		return nil, err
	}

	var passwordHash *string
	if opts.Password != "" {
		h, err := cryptox.HashPassword(opts.Password)
		if err != nil {
			return nil, fmt.Errorf("hash share password: %w", err)
		}
		passwordHash = &h
	}

	for attempt := 1; ; attempt++ {
		link, err := s.createOnce(ctx, ownerID, snippetID, expiresAt, passwordHash)
		if err == nil {
			s.logger.Info(ctx, "share link created", "link_id", link.ID, "snippet_id", snippetID)
			return link, nil
		}
		if !errors.Is(err, common.ErrorAlreadyExists) || attempt == shareTokenAttempts {
			return nil, err
		}
		s.logger.Warn(ctx, "share token collision, retrying", "attempt", attempt)
	}
}

func (s *ShareService) createOnce(ctx context.Context, ownerID, snippetID string, expiresAt *time.Time, passwordHash *string) (*models.ShareLink, error) {
	token, err := s.newToken(shareTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate share token: %w", err)
	}

	var link *models.ShareLink
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Snippets(tx).GetByID(ctx, snippetID, ownerID); err != nil {
			if isNotFound(err) {
				return common.ErrNotFoundOrForbidden
			}
			return err
		}

		link, err = s.repomanager.ShareLinks(tx).Create(ctx, &models.ShareLink{
			Token:        token,
			SnippetID:    snippetID,
			OwnerID:      ownerID,
			ExpiresAt:    expiresAt,
			PasswordHash: passwordHash,
		})
		if err != nil {
			return err
		}

		return s.audit.Record(ctx, tx, AuditEvent{
			ActorID:      ptr(ownerID),
			Action:       models.AuditActionShare,
			ResourceKind: models.AuditResourceSnippet,
			ResourceID:   ptr(snippetID),
			Description:  "Created share link " + link.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// ResolveShareLink returns the link for token while it is active and not
// expired. Expiry is evaluated against the current time on every call.
func (s *ShareService) ResolveShareLink(ctx context.Context, token string) (*models.ShareLink, error) {
	return s.resolve(ctx, s.db, token)
}

func (s *ShareService) resolve(ctx context.Context, db dbx.DBTX, token string) (*models.ShareLink, error) {
	link, err := s.repomanager.ShareLinks(db).GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if link.State(s.now()) != models.ShareLinkActive {
		return nil, common.ErrorNotFound
	}
	return link, nil
}

// VerifyPassword reports whether candidate matches the link's password.
// Unknown links and links without a password never match.
func (s *ShareService) VerifyPassword(ctx context.Context, linkID, candidate string) bool {
	link, err := s.repomanager.ShareLinks(s.db).GetByID(ctx, linkID)
	if err != nil || !link.HasPassword() {
		return false
	}
	return cryptox.VerifyPassword(*link.PasswordHash, candidate)
}

// AccessSnippet discloses the snippet behind token to an anonymous caller.
// The disclosure and its SHARED_ACCESS audit entry share one transaction.
func (s *ShareService) AccessSnippet(ctx context.Context, token string, candidate *string) (*SharedSnippet, error) {
	var result *SharedSnippet
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		link, err := s.resolve(ctx, tx, token)
		if err != nil {
			return err
		}

		if link.HasPassword() {
			if candidate == nil || *candidate == "" {
				return common.ErrPasswordRequired
			}
			if !cryptox.VerifyPassword(*link.PasswordHash, *candidate) {
				s.logger.Warn(ctx, "invalid share link password", "link_id", link.ID)
				return common.ErrInvalidPassword
			}
		}

		snippet, err := s.repomanager.Snippets(tx).GetByIDAnyOwner(ctx, link.SnippetID)
		if err != nil {
			return err
		}

		code, err := s.opener.open(ctx, snippet)
		if err != nil {
			return err
		}

		if err := s.audit.Record(ctx, tx, AuditEvent{
			Action:       models.AuditActionSharedAccess,
			ResourceKind: models.AuditResourceSnippet,
			ResourceID:   ptr(snippet.ID),
			Description:  "Anonymous access via share link " + link.ID,
		}); err != nil {
			return err
		}

		result = &SharedSnippet{
			Title:     snippet.Title,
			Language:  snippet.Language,
			Code:      code,
			SharedAt:  link.CreatedAt,
			ExpiresAt: link.ExpiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeactivateShareLink revokes an active link owned by ownerID. Deactivation
// is terminal.
func (s *ShareService) DeactivateShareLink(ctx context.Context, ownerID, linkID string) (*models.ShareLink, error) {
	var link *models.ShareLink
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		link, err = s.repomanager.ShareLinks(tx).Deactivate(ctx, linkID, ownerID)
		if err != nil {
			if isNotFound(err) {
				return common.ErrNotFoundOrForbidden
			}
			return err
		}

		return s.audit.Record(ctx, tx, AuditEvent{
			ActorID:      ptr(ownerID),
			Action:       models.AuditActionDeactivate,
			ResourceKind: models.AuditResourceShareLink,
			ResourceID:   ptr(link.ID),
			Description:  "Deactivated share link for snippet " + link.SnippetID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "share link deactivated", "link_id", link.ID)
	return link, nil
}

func (s *ShareService) ListShareLinks(ctx context.Context, ownerID, snippetID string) ([]*ShareLinkView, error) {
	if _, err := s.repomanager.Snippets(s.db).GetByID(ctx, snippetID, ownerID); err != nil {
		if isNotFound(err) {
			return nil, common.ErrNotFoundOrForbidden
		}
		return nil, err
	}

	links, err := s.repomanager.ShareLinks(s.db).ListBySnippet(ctx, snippetID, ownerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]*ShareLinkView, 0, len(links))
	for _, l := range links {
		views = append(views, &ShareLinkView{ShareLink: l, State: l.State(now)})
	}
	return views, nil
}
