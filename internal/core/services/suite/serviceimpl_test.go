package suite

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/testhub.net/internal/adapter/lock"
	"gitlab.com/testhub.net/internal/adapter/logging"
	"gitlab.com/testhub.net/internal/adapter/memory"
	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/domain"
	"gitlab.com/testhub.net/internal/static/errs"
)

func setup(t *testing.T, cases int) (*SuiteService, []uuid.UUID) {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()
	ids := make([]uuid.UUID, cases)
	require.NoError(t, store.InTx(ctx, func(tx secondary.Tx) error {
		m := &domain.Module{Name: "m"}
		if err := tx.InsertModule(ctx, m); err != nil {
			return err
		}
		for i := range ids {
			c := &domain.TestCase{ModuleID: m.ID, Title: "c", Method: "GET", URL: "/", SequenceIndex: i}
			if err := tx.InsertTestCase(ctx, c); err != nil {
				return err
			}
			ids[i] = c.ID
		}
		return nil
	}))
	return NewSuiteService(store, lock.NewKeyedLocker(), logging.NewNopLogger()), ids
}

func TestCreateSuite(t *testing.T) {
	svc, ids := setup(t, 2)
	ctx := context.Background()

	empty, err := svc.CreateSuite(ctx, "empty", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, empty.CaseIDs)

	s, err := svc.CreateSuite(ctx, "smoke", nil, []uuid.UUID{ids[1], ids[0]})
	require.NoError(t, err)
	got, err := svc.GetSuite(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{ids[1], ids[0]}, got.CaseIDs)

	_, err = svc.CreateSuite(ctx, "bad", nil, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, errs.NotFound)

	_, err = svc.CreateSuite(ctx, "dup", nil, []uuid.UUID{ids[0], ids[0]})
	assert.ErrorIs(t, err, errs.InvalidArgument)

	_, err = svc.CreateSuite(ctx, "", nil, nil)
	assert.ErrorIs(t, err, errs.InvalidArgument)

	suites, err := svc.ListSuites(ctx)
	require.NoError(t, err)
	assert.Len(t, suites, 2)
}

func TestAddAndRemoveCases(t *testing.T) {
	svc, ids := setup(t, 3)
	ctx := context.Background()
	s, err := svc.CreateSuite(ctx, "smoke", nil, []uuid.UUID{ids[0]})
	require.NoError(t, err)

	s, err = svc.AddCases(ctx, s.ID, []uuid.UUID{ids[2], ids[1]})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{ids[0], ids[2], ids[1]}, s.CaseIDs)

	_, err = svc.AddCases(ctx, s.ID, []uuid.UUID{ids[0]})
	assert.ErrorIs(t, err, errs.Conflict)

	s, err = svc.RemoveCases(ctx, s.ID, []uuid.UUID{ids[2]})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{ids[0], ids[1]}, s.CaseIDs)

	_, err = svc.RemoveCases(ctx, s.ID, []uuid.UUID{ids[2]})
	assert.ErrorIs(t, err, errs.NotFound)

	_, err = svc.AddCases(ctx, uuid.New(), []uuid.UUID{ids[2]})
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestUpdateAndDeleteSuite(t *testing.T) {
	svc, ids := setup(t, 2)
	ctx := context.Background()
	s, err := svc.CreateSuite(ctx, "smoke", nil, ids)
	require.NoError(t, err)

	name := "regression"
	updated, err := svc.UpdateSuite(ctx, s.ID, domain.SuitePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "regression", updated.Name)
	assert.Equal(t, ids, updated.CaseIDs)

	updated, err = svc.UpdateSuite(ctx, s.ID, domain.SuitePatch{CaseIDs: []uuid.UUID{}})
	require.NoError(t, err)
	assert.Empty(t, updated.CaseIDs)

	_, err = svc.UpdateSuite(ctx, s.ID, domain.SuitePatch{CaseIDs: []uuid.UUID{uuid.New()}})
	assert.ErrorIs(t, err, errs.NotFound)

	require.NoError(t, svc.DeleteSuite(ctx, s.ID))
	_, err = svc.GetSuite(ctx, s.ID)
	assert.ErrorIs(t, err, errs.NotFound)
	assert.ErrorIs(t, svc.DeleteSuite(ctx, s.ID), errs.NotFound)
}
