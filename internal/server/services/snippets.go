package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/snippetvault/internal/common"
	"github.com/dmitrijs2005/snippetvault/internal/cryptox"
	"github.com/dmitrijs2005/snippetvault/internal/dbx"
	"github.com/dmitrijs2005/snippetvault/internal/logging"
	"github.com/dmitrijs2005/snippetvault/internal/server/models"
	"github.com/dmitrijs2005/snippetvault/internal/server/repositories/repomanager"
)

const (
	maxTitleLength    = 200
	maxLanguageLength = 50
	maxCodeBytes      = 100_000
)

// SnippetInput is the caller-supplied part of a snippet.
type SnippetInput struct {
	Title    string
	Language string
	Code     string
}

func (in SnippetInput) validate() error {
	if n := utf8.RuneCountInString(strings.TrimSpace(in.Title)); n < 1 || utf8.RuneCountInString(in.Title) > maxTitleLength {
		return fmt.Errorf("%w: title must be 1 to %d characters", common.ErrValidation, maxTitleLength)
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(in.Language)); n < 1 || utf8.RuneCountInString(in.Language) > maxLanguageLength {
		return fmt.Errorf("%w: language must be 1 to %d characters", common.ErrValidation, maxLanguageLength)
	}
	if len(in.Code) > maxCodeBytes {
		return fmt.Errorf("%w: code must not exceed %d bytes", common.ErrValidation, maxCodeBytes)
	}
	return nil
}

// PlainSnippet is a snippet with its code decrypted for the caller.
type PlainSnippet struct {
	models.Snippet
	Code string
}

// opener decrypts stored snippet text. Rows written before encryption was
// enabled carry cryptox.LegacyPlaintextPrefix; they are served only when
// allowLegacy is set.
type opener struct {
	cipher      cryptox.Cipher
	allowLegacy bool
	logger      logging.Logger
}

func (o opener) open(ctx context.Context, s *models.Snippet) (string, error) {
	code, err := o.cipher.Decrypt(s.Ciphertext)
	if err == nil {
		return code, nil
	}
	if o.allowLegacy && strings.HasPrefix(s.Ciphertext, cryptox.LegacyPlaintextPrefix) {
		o.logger.Warn(ctx, "serving legacy plaintext snippet", "snippet_id", s.ID, "error", err)
		return strings.TrimPrefix(s.Ciphertext, cryptox.LegacyPlaintextPrefix), nil
	}
	return "", fmt.Errorf("decrypt snippet %s: %w", s.ID, err)
}

type SnippetService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cipher      cryptox.Cipher
	audit       AuditSink
	logger      logging.Logger
	opener      opener
}

func NewSnippetService(db *sql.DB, m repomanager.RepositoryManager, c cryptox.Cipher, audit AuditSink, logger logging.Logger, allowLegacy bool) *SnippetService {
	logger = logger.With("module", "snippets")
	return &SnippetService{
		db:          db,
		repomanager: m,
		cipher:      c,
		audit:       audit,
		logger:      logger,
		opener:      opener{cipher: c, allowLegacy: allowLegacy, logger: logger},
	}
}

func (s *SnippetService) Create(ctx context.Context, ownerID string, in SnippetInput) (*PlainSnippet, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ciphertext, err := s.cipher.Encrypt(in.Code)
	if err != nil {
		return nil, fmt.Errorf("encrypt snippet: %w", err)
	}

	var created *models.Snippet
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err = s.repomanager.Snippets(tx).Create(ctx, &models.Snippet{
			OwnerID:    ownerID,
			Title:      in.Title,
			Language:   in.Language,
			Ciphertext: ciphertext,
		})
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, AuditEvent{
			ActorID:      ptr(ownerID),
			Action:       models.AuditActionCreate,
			ResourceKind: models.AuditResourceSnippet,
			ResourceID:   ptr(created.ID),
			Description:  "Snippet created: " + created.Title,
		})
	})
	if err != nil {
		return nil, err
	}

	return &PlainSnippet{Snippet: *created, Code: in.Code}, nil
}

func (s *SnippetService) List(ctx context.Context, ownerID string) ([]*PlainSnippet, error) {
	var result []*PlainSnippet
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		items, err := s.repomanager.Snippets(tx).ListByOwner(ctx, ownerID)
		if err != nil {
			return err
		}

		result = make([]*PlainSnippet, 0, len(items))
		for _, item := range items {
			code, err := s.opener.open(ctx, item)
			if err != nil {
				return err
			}
			result = append(result, &PlainSnippet{Snippet: *item, Code: code})
		}

		return s.audit.Record(ctx, tx, AuditEvent{
			ActorID:      ptr(ownerID),
			Action:       models.AuditActionRead,
			ResourceKind: models.AuditResourceSnippet,
			Description:  "Accessed snippets list",
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SnippetService) Get(ctx context.Context, ownerID, id string) (*PlainSnippet, error) {
	var result *PlainSnippet
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		item, err := s.repomanager.Snippets(tx).GetByID(ctx, id, ownerID)
		if err != nil {
			return err
		}

		code, err := s.opener.open(ctx, item)
		if err != nil {
			return err
		}
		result = &PlainSnippet{Snippet: *item, Code: code}

		return s.audit.Record(ctx, tx, AuditEvent{
			ActorID:      ptr(ownerID),
			Action:       models.AuditActionRead,
			ResourceKind: models.AuditResourceSnippet,
			ResourceID:   ptr(item.ID),
			Description:  "Accessed: " + item.Title,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SnippetService) Update(ctx context.Context, ownerID, id string, in SnippetInput) (*PlainSnippet, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ciphertext, err := s.cipher.Encrypt(in.Code)
	if err != nil {
		return nil, fmt.Errorf("encrypt snippet: %w", err)
	}

	var updated *models.Snippet
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		updated, err = s.repomanager.Snippets(tx).Update(ctx, &models.Snippet{
			ID:         id,
			OwnerID:    ownerID,
			Title:      in.Title,
			Language:   in.Language,
			Ciphertext: ciphertext,
		})
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, AuditEvent{
			ActorID:      ptr(ownerID),
			Action:       models.AuditActionUpdate,
			ResourceKind: models.AuditResourceSnippet,
			ResourceID:   ptr(id),
			Description:  "Updated: " + updated.Title,
		})
	})
	if err != nil {
		return nil, err
	}

	return &PlainSnippet{Snippet: *updated, Code: in.Code}, nil
}

// Delete removes the snippet; its share links go with it.
func (s *SnippetService) Delete(ctx context.Context, ownerID, id string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Snippets(tx)

		item, err := repo.GetByID(ctx, id, ownerID)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, id, ownerID); err != nil {
			return err
		}

		return s.audit.Record(ctx, tx, AuditEvent{
			ActorID:      ptr(ownerID),
			Action:       models.AuditActionDelete,
			ResourceKind: models.AuditResourceSnippet,
			ResourceID:   ptr(id),
			Description:  "Deleted snippet: " + item.Title,
		})
	})
}

// isNotFound reports whether err means the resource is missing or not the caller's.
func isNotFound(err error) bool {
	return errors.Is(err, common.ErrorNotFound)
}
