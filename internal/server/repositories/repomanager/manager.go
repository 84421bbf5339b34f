// Package repomanager hands out repositories bound to a connection or transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/snippetvault/internal/dbx"
	"github.com/dmitrijs2005/snippetvault/internal/server/repositories/auditlog"
	"github.com/dmitrijs2005/snippetvault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/snippetvault/internal/server/repositories/sharelinks"
	"github.com/dmitrijs2005/snippetvault/internal/server/repositories/snippets"
	"github.com/dmitrijs2005/snippetvault/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Snippets(db dbx.DBTX) snippets.Repository
	ShareLinks(db dbx.DBTX) sharelinks.Repository
	AuditLog(db dbx.DBTX) auditlog.Repository
}
