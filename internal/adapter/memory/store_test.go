package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/domain"
	"gitlab.com/testhub.net/internal/static/errs"
)

func seedModule(t *testing.T, s *Store, name string) *domain.Module {
	t.Helper()
	m := &domain.Module{Name: name}
	require.NoError(t, s.InTx(context.Background(), func(tx secondary.Tx) error {
		return tx.InsertModule(context.Background(), m)
	}))
	return m
}

func seedCase(t *testing.T, s *Store, moduleID uuid.UUID, title string, seq int) *domain.TestCase {
	t.Helper()
	c := &domain.TestCase{ModuleID: moduleID, Title: title, Method: "GET", URL: "/x", SequenceIndex: seq}
	require.NoError(t, s.InTx(context.Background(), func(tx secondary.Tx) error {
		return tx.InsertTestCase(context.Background(), c)
	}))
	return c
}

func TestInTxRollsBackOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx secondary.Tx) error {
		require.NoError(t, tx.InsertModule(ctx, &domain.Module{Name: "a"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.View(ctx, func(tx secondary.Tx) error {
		modules, err := tx.ListModules(ctx)
		require.NoError(t, err)
		assert.Empty(t, modules)
		return nil
	}))
}

func TestViewIsReadOnly(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	err := s.View(ctx, func(tx secondary.Tx) error {
		return tx.InsertModule(ctx, &domain.Module{Name: "a"})
	})
	require.ErrorIs(t, err, errReadOnly)
}

func TestReturnedEntitiesAreCopies(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	m := seedModule(t, s, "auth")
	c := seedCase(t, s, m.ID, "login", 0)

	require.NoError(t, s.View(ctx, func(tx secondary.Tx) error {
		got, err := tx.GetTestCase(ctx, c.ID)
		require.NoError(t, err)
		got.Title = "mutated"
		return nil
	}))
	require.NoError(t, s.View(ctx, func(tx secondary.Tx) error {
		got, err := tx.GetTestCase(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "login", got.Title)
		return nil
	}))
}

func TestGetMissingReturnsNil(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.View(ctx, func(tx secondary.Tx) error {
		m, err := tx.GetModule(ctx, uuid.New())
		assert.NoError(t, err)
		assert.Nil(t, m)
		c, err := tx.GetTestCase(ctx, uuid.New())
		assert.NoError(t, err)
		assert.Nil(t, c)
		return nil
	}))
}

func TestDeleteModuleWithCasesConflicts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	m := seedModule(t, s, "auth")
	seedCase(t, s, m.ID, "login", 0)

	err := s.InTx(ctx, func(tx secondary.Tx) error {
		return tx.DeleteModule(ctx, m.ID)
	})
	require.ErrorIs(t, err, errs.Conflict)

	err = s.InTx(ctx, func(tx secondary.Tx) error {
		return tx.DeleteModule(ctx, uuid.New())
	})
	require.ErrorIs(t, err, errs.NotFound)
}

func TestTimestampsStrictlyIncrease(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore(WithClock(func() time.Time { return fixed }))
	a := seedModule(t, s, "a")
	b := seedModule(t, s, "b")
	assert.True(t, b.CreatedAt.After(a.CreatedAt))

	require.NoError(t, s.View(context.Background(), func(tx secondary.Tx) error {
		modules, err := tx.ListModules(context.Background())
		require.NoError(t, err)
		require.Len(t, modules, 2)
		assert.Equal(t, "a", modules[0].Name)
		assert.Equal(t, "b", modules[1].Name)
		return nil
	}))
}

func TestSetSequenceAndListOrder(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	m := seedModule(t, s, "m")
	c0 := seedCase(t, s, m.ID, "c0", 0)
	c1 := seedCase(t, s, m.ID, "c1", 1)
	c2 := seedCase(t, s, m.ID, "c2", 2)

	require.NoError(t, s.InTx(ctx, func(tx secondary.Tx) error {
		return tx.SetSequence(ctx, m.ID, []uuid.UUID{c2.ID, c0.ID, c1.ID})
	}))
	require.NoError(t, s.View(ctx, func(tx secondary.Tx) error {
		cases, err := tx.ListTestCases(ctx, m.ID)
		require.NoError(t, err)
		require.Len(t, cases, 3)
		assert.Equal(t, []string{"c2", "c0", "c1"}, []string{cases[0].Title, cases[1].Title, cases[2].Title})
		for i, c := range cases {
			assert.Equal(t, i, c.SequenceIndex)
		}
		return nil
	}))

	other := seedModule(t, s, "other")
	foreign := seedCase(t, s, other.ID, "f", 0)
	err := s.InTx(ctx, func(tx secondary.Tx) error {
		return tx.SetSequence(ctx, m.ID, []uuid.UUID{foreign.ID})
	})
	require.ErrorIs(t, err, errs.InvalidArgument)
}

func TestSuiteReferences(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	m := seedModule(t, s, "m")
	a := seedCase(t, s, m.ID, "a", 0)
	b := seedCase(t, s, m.ID, "b", 1)
	c := seedCase(t, s, m.ID, "c", 2)

	s1 := &domain.TestSuite{Name: "s1", CaseIDs: []uuid.UUID{a.ID, b.ID, c.ID}}
	s2 := &domain.TestSuite{Name: "s2", CaseIDs: []uuid.UUID{c.ID}}
	require.NoError(t, s.InTx(ctx, func(tx secondary.Tx) error {
		if err := tx.InsertSuite(ctx, s1); err != nil {
			return err
		}
		return tx.InsertSuite(ctx, s2)
	}))

	err := s.InTx(ctx, func(tx secondary.Tx) error {
		return tx.InsertSuite(ctx, &domain.TestSuite{Name: "bad", CaseIDs: []uuid.UUID{uuid.New()}})
	})
	require.ErrorIs(t, err, errs.NotFound)

	var changed []uuid.UUID
	require.NoError(t, s.InTx(ctx, func(tx secondary.Tx) error {
		var err error
		changed, err = tx.RemoveCaseFromSuites(ctx, b.ID)
		return err
	}))
	assert.Equal(t, []uuid.UUID{s1.ID}, changed)

	require.NoError(t, s.View(ctx, func(tx secondary.Tx) error {
		got, err := tx.GetSuite(ctx, s1.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{a.ID, c.ID}, got.CaseIDs)
		return nil
	}))
}

func TestReportUpdatesStopAtTerminal(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now()
	report := domain.NewTestReport(&domain.TestSuite{ID: uuid.New(), Name: "s"}, now)
	require.NoError(t, s.InTx(ctx, func(tx secondary.Tx) error {
		return tx.InsertReport(ctx, report)
	}))

	require.NoError(t, report.Transition(domain.ReportStatusFailed, now))
	require.NoError(t, s.InTx(ctx, func(tx secondary.Tx) error {
		return tx.UpdateReport(ctx, report)
	}))

	report.Error = "again"
	err := s.InTx(ctx, func(tx secondary.Tx) error {
		return tx.UpdateReport(ctx, report)
	})
	require.ErrorIs(t, err, errs.ReportTerminated)
}

func TestListReportsFilterAndPaging(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	suiteA := &domain.TestSuite{ID: uuid.New(), Name: "a"}
	suiteB := &domain.TestSuite{ID: uuid.New(), Name: "b"}
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.InTx(ctx, func(tx secondary.Tx) error {
		for i := 0; i < 3; i++ {
			if err := tx.InsertReport(ctx, domain.NewTestReport(suiteA, base.Add(time.Duration(i)*time.Minute))); err != nil {
				return err
			}
		}
		return tx.InsertReport(ctx, domain.NewTestReport(suiteB, base))
	}))

	require.NoError(t, s.View(ctx, func(tx secondary.Tx) error {
		reports, err := tx.ListReports(ctx, secondary.ReportFilter{SuiteID: &suiteA.ID})
		require.NoError(t, err)
		require.Len(t, reports, 3)
		assert.True(t, reports[0].StartedAt.After(reports[1].StartedAt))

		paged, err := tx.ListReports(ctx, secondary.ReportFilter{Offset: 1, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, paged, 2)

		empty, err := tx.ListReports(ctx, secondary.ReportFilter{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, empty)

		pending, err := tx.ListReports(ctx, secondary.ReportFilter{Statuses: []domain.ReportStatus{domain.ReportStatusPending}})
		require.NoError(t, err)
		assert.Len(t, pending, 4)

		running, err := tx.ListReports(ctx, secondary.ReportFilter{Statuses: []domain.ReportStatus{domain.ReportStatusRunning}})
		require.NoError(t, err)
		assert.Empty(t, running)
		return nil
	}))
}
