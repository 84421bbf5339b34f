package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/snippetvault/internal/cryptox"
	"github.com/dmitrijs2005/snippetvault/internal/dbx"
	"github.com/dmitrijs2005/snippetvault/internal/logging"
	"github.com/dmitrijs2005/snippetvault/internal/server/models"
	"github.com/dmitrijs2005/snippetvault/internal/server/repositories/repomanager"
)

// LegacyMigrator re-encrypts snippets stored with cryptox.LegacyPlaintextPrefix.
type LegacyMigrator struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cipher      cryptox.Cipher
	audit       AuditSink
	logger      logging.Logger
}

func NewLegacyMigrator(db *sql.DB, m repomanager.RepositoryManager, c cryptox.Cipher, audit AuditSink, logger logging.Logger) *LegacyMigrator {
	return &LegacyMigrator{db: db, repomanager: m, cipher: c, audit: audit, logger: logger.With("module", "legacy-migration")}
}

// MigrateLegacyPlaintext encrypts every legacy row in its own transaction
// and returns how many rows were converted. A row changed concurrently is
// skipped.
func (m *LegacyMigrator) MigrateLegacyPlaintext(ctx context.Context) (int, error) {
	items, err := m.repomanager.Snippets(m.db).ListWithPrefix(ctx, cryptox.LegacyPlaintextPrefix)
	if err != nil {
		return 0, err
	}

	migrated := 0
	for _, item := range items {
		ciphertext, err := m.cipher.Encrypt(strings.TrimPrefix(item.Ciphertext, cryptox.LegacyPlaintextPrefix))
		if err != nil {
			return migrated, fmt.Errorf("encrypt snippet %s: %w", item.ID, err)
		}

		err = dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := m.repomanager.Snippets(tx).UpdateCiphertext(ctx, item.ID, item.Ciphertext, ciphertext); err != nil {
				return err
			}
			return m.audit.Record(ctx, tx, AuditEvent{
				Action:       models.AuditActionUpdate,
				ResourceKind: models.AuditResourceSnippet,
				ResourceID:   ptr(item.ID),
				Description:  "Re-encrypted legacy plaintext snippet",
			})
		})
		if err != nil {
			if isNotFound(err) {
				m.logger.Warn(ctx, "legacy snippet changed during migration, skipped", "snippet_id", item.ID)
				continue
			}
			return migrated, err
		}
		migrated++
	}

	m.logger.Info(ctx, "legacy plaintext migration finished", "migrated", migrated, "found", len(items))
	return migrated, nil
}
