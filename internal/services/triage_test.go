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

func TestTriageApprove(t *testing.T) {
	db := testutil.SetupTestDB(t)
	requester := testutil.CreateUser(t, db, "dev@gigline.dev", "dev", "pass", models.RoleDeveloper)
	reviewer := testutil.CreateUser(t, db, "admin@gigline.dev", "admin", "pass", models.RoleAdmin)
	svc := services.NewTriageService()

	req, err := svc.Create(context.Background(), requester.ID, models.AdminRequestTypeAccess, "need prod read access")
	require.NoError(t, err)
	assert.Equal(t, models.AdminRequestPending, req.Status)

	note := "granted for on-call week"
	reviewed, err := svc.Review(context.Background(), req.ID, reviewer.ID, true, &note)
	require.NoError(t, err)
	assert.Equal(t, models.AdminRequestApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, reviewer.ID, *reviewed.ReviewedBy)
	require.NotNil(t, reviewed.ReviewNote)
	assert.Equal(t, note, *reviewed.ReviewNote)
	assert.True(t, reviewed.IsTerminal())
}

func TestTriageTerminalStateIsImmutable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	requester := testutil.CreateUser(t, db, "dev@gigline.dev", "dev", "pass", models.RoleDeveloper)
	reviewer := testutil.CreateUser(t, db, "admin@gigline.dev", "admin", "pass", models.RoleAdmin)
	svc := services.NewTriageService()

	req, err := svc.Create(context.Background(), requester.ID, models.AdminRequestTypeRefund, "refund order 4471")
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), req.ID, reviewer.ID, false, nil)
	require.NoError(t, err)

	// A second verdict, even the opposite one, bounces
	_, err = svc.Review(context.Background(), req.ID, reviewer.ID, true, nil)
	assert.ErrorIs(t, err, services.ErrRequestClosed)

	reloaded := new(models.AdminRequest)
	require.NoError(t, db.NewSelect().Model(reloaded).Where("ar.id = ?", req.ID).Scan(context.Background()))
	assert.Equal(t, models.AdminRequestRejected, reloaded.Status)
}

func TestTriageReviewMissingRequest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	reviewer := testutil.CreateUser(t, db, "admin@gigline.dev", "admin", "pass", models.RoleAdmin)
	svc := services.NewTriageService()

	_, err := svc.Review(context.Background(), 9999, reviewer.ID, true, nil)
	assert.ErrorIs(t, err, services.ErrRequestNotFound)
}

func TestTriageListFiltersByStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	requester := testutil.CreateUser(t, db, "dev@gigline.dev", "dev", "pass", models.RoleDeveloper)
	reviewer := testutil.CreateUser(t, db, "admin@gigline.dev", "admin", "pass", models.RoleAdmin)
	svc := services.NewTriageService()

	first, err := svc.Create(context.Background(), requester.ID, models.AdminRequestTypeAccess, "first")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), requester.ID, models.AdminRequestTypeOther, "second")
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), first.ID, reviewer.ID, true, nil)
	require.NoError(t, err)

	pending, err := svc.List(context.Background(), models.AdminRequestPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "second", pending[0].Reason)

	all, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
