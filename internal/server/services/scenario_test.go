package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/snippetvault/internal/cryptox"
	"github.com/dmitrijs2005/snippetvault/internal/server/config"
	"github.com/dmitrijs2005/snippetvault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndToEnd_CreateShareAccess(t *testing.T) {
	engine, err := cryptox.NewEngine("abcdefghijklmnopqrstuvwxyz012345")
	require.NoError(t, err)

	db, mock := newSQLMock(t)
	store := newMemStore()
	rm := &fakeRepoManager{s: store}
	audit := NewAuditService(db, rm)
	cfg := &config.Config{}
	cfg.LoadDefaults()

	snippetsSvc := NewSnippetService(db, rm, engine, audit, nopLogger{}, false)
	sharesSvc := NewShareService(db, rm, engine, audit, nopLogger{}, cfg)
	expectCommits(mock, 3)
	ctx := context.Background()

	created, err := snippetsSvc.Create(ctx, "owner", SnippetInput{Title: "hi", Language: "python", Code: "print('hi')"})
	require.NoError(t, err)

	stored := store.snippets[created.ID].Ciphertext
	assert.NotContains(t, stored, "print")
	plain, err := engine.Decrypt(stored)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", plain)

	link, err := sharesSvc.CreateShareLink(ctx, "owner", created.ID, ShareOptions{ExpiresHours: hours(1)})
	require.NoError(t, err)

	got, err := sharesSvc.AccessSnippet(ctx, link.Token, nil)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", got.Code)

	var shared []*models.AuditEntry
	for _, e := range store.audit {
		if e.Action == models.AuditActionSharedAccess {
			shared = append(shared, e)
		}
	}
	require.Len(t, shared, 1)
	assert.Nil(t, shared[0].ActorID)
	assert.Equal(t, created.ID, *shared[0].ResourceID)
	require.NoError(t, mock.ExpectationsWereMet())
}
