package repository

import (
	"testing"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Vehicle{}, &model.Request{}))
	return db
}

func seedRequester(t *testing.T, db *gorm.DB) model.User {
	t.Helper()
	user := model.User{
		Username: "requester",
		Email:    "requester@fleet.test",
		Phone:    "0900000000",
		Password: "irrelevant",
		Role:     model.RoleDriver,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestUpdateVersionedDetectsStaleWriter(t *testing.T) {
	db := newTestDB(t)
	repo := NewRequestRepository(db)
	ctx := t.Context()
	requester := seedRequester(t, db)

	role := model.RoleTransportManager
	record := model.Request{
		Kind:                model.KindRefueling,
		State:               model.StatePending,
		CurrentApproverRole: &role,
		RequestedBy:         requester.ID,
		Description:         "refill",
		Version:             1,
	}
	require.NoError(t, repo.Create(ctx, &record))

	// Two approvers load version 1
	first, err := repo.FindByID(ctx, record.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, record.ID)
	require.NoError(t, err)

	first.State = model.StateForwarded
	require.NoError(t, repo.UpdateVersioned(ctx, first, 1))
	assert.EqualValues(t, 2, first.Version)

	// The slower writer still holds version 1 and must lose
	second.State = model.StateRejected
	second.RejectionMessage = "too expensive"
	err = repo.UpdateVersioned(ctx, second, 1)
	require.ErrorIs(t, err, workflow.ErrStaleState)

	// The first write stands untouched
	stored, err := repo.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateForwarded, stored.State)
	assert.EqualValues(t, 2, stored.Version)
	assert.Empty(t, stored.RejectionMessage)
}

func TestFindByIDNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewRequestRepository(db)

	_, err := repo.FindByID(t.Context(), uuid.New())
	require.ErrorIs(t, err, workflow.ErrRequestNotFound)
}

func TestListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewRequestRepository(db)
	ctx := t.Context()
	requester := seedRequester(t, db)

	tmRole := model.RoleTransportManager
	fmRole := model.RoleFinanceManager
	seed := []model.Request{
		{Kind: model.KindRefueling, State: model.StatePending, CurrentApproverRole: &tmRole, RequestedBy: requester.ID, Description: "a", Version: 1},
		{Kind: model.KindRefueling, State: model.StateForwarded, CurrentApproverRole: &fmRole, RequestedBy: requester.ID, Description: "b", Version: 2},
		{Kind: model.KindTransport, State: model.StatePending, CurrentApproverRole: &tmRole, RequestedBy: requester.ID, Description: "c", Version: 1},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	byKind, total, err := repo.List(ctx, RequestFilter{Kind: model.KindRefueling})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, byKind, 2)

	byRole, total, err := repo.List(ctx, RequestFilter{Role: model.RoleFinanceManager})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, byRole, 1)
	assert.Equal(t, "b", byRole[0].Description)

	byState, total, err := repo.List(ctx, RequestFilter{State: model.StatePending})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, byState, 2)

	paged, total, err := repo.List(ctx, RequestFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, paged, 1)
}
