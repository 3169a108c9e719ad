package services_test

import (
	"context"
	"testing"

	"github.com/gigline/backstage/internal/models"
	"github.com/gigline/backstage/internal/services"
	"github.com/gigline/backstage/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteSaveIsUpsert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user := testutil.CreateUser(t, db, "dev@gigline.dev", "dev", "pass", models.RoleDeveloper)
	svc := services.NewNoteService()

	note := &models.DevNote{
		UserID:   user.ID,
		PagePath: "/events/4471",
		Title:    "Broken seat map",
		Content:  "rows 10-12 render offset",
	}
	require.NoError(t, svc.SaveNote(context.Background(), note))
	require.NotZero(t, note.ID)

	// Same ID again edits in place
	note.Content = "fixed in staging, verify after deploy"
	note.Pinned = true
	require.NoError(t, svc.SaveNote(context.Background(), note))

	count, err := db.NewSelect().Model((*models.DevNote)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	reloaded, err := svc.GetNoteByID(context.Background(), note.ID)
	require.NoError(t, err)
	assert.Equal(t, "fixed in staging, verify after deploy", reloaded.Content)
	assert.True(t, reloaded.Pinned)
}

func TestNoteListPinnedFirstAndSearch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user := testutil.CreateUser(t, db, "dev@gigline.dev", "dev", "pass", models.RoleDeveloper)
	stranger := testutil.CreateUser(t, db, "other@gigline.dev", "other", "pass", models.RoleDeveloper)
	svc := services.NewNoteService()

	notes := []*models.DevNote{
		{UserID: user.ID, Title: "Checkout bug", Content: "stripe webhook retries"},
		{UserID: user.ID, Title: "Deploy checklist", Content: "flush cache first", Pinned: true},
		{UserID: stranger.ID, Title: "Not yours", Content: "private"},
	}
	for _, n := range notes {
		require.NoError(t, svc.SaveNote(context.Background(), n))
	}

	mine, total, err := svc.GetNotes(context.Background(), services.NoteFilters{UserID: user.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, mine, 2)
	assert.Equal(t, "Deploy checklist", mine[0].Title)

	found, _, err := svc.GetNotes(context.Background(), services.NoteFilters{UserID: user.ID, Search: "webhook"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Checkout bug", found[0].Title)
}

func TestNoteDeleteIsOwnerScoped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	owner := testutil.CreateUser(t, db, "owner@gigline.dev", "owner", "pass", models.RoleDeveloper)
	other := testutil.CreateUser(t, db, "other@gigline.dev", "other", "pass", models.RoleDeveloper)
	svc := services.NewNoteService()

	note := &models.DevNote{UserID: owner.ID, Title: "Keep out", Content: "secret"}
	require.NoError(t, svc.SaveNote(context.Background(), note))

	// Non-owner delete is a silent no-op
	require.NoError(t, svc.DeleteNote(context.Background(), note.ID, other.ID))
	count, err := db.NewSelect().Model((*models.DevNote)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, svc.DeleteNote(context.Background(), note.ID, owner.ID))
	count, err = db.NewSelect().Model((*models.DevNote)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
