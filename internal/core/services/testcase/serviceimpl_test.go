package testcase

import (
	"context"
	"encoding/json"
	"sync"
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

type fixture struct {
	svc   *TestCaseService
	store *memory.Store
}

func newFixture(options ...Option) *fixture {
	store := memory.NewStore()
	return &fixture{
		svc:   NewTestCaseService(store, lock.NewKeyedLocker(), logging.NewNopLogger(), options...),
		store: store,
	}
}

func (f *fixture) module(t *testing.T, name string) uuid.UUID {
	t.Helper()
	m := &domain.Module{Name: name}
	require.NoError(t, f.store.InTx(context.Background(), func(tx secondary.Tx) error {
		return tx.InsertModule(context.Background(), m)
	}))
	return m.ID
}

func (f *fixture) create(t *testing.T, moduleID uuid.UUID, title string) *domain.TestCase {
	t.Helper()
	c, err := f.svc.CreateTestCase(context.Background(), &domain.TestCase{
		ModuleID: moduleID,
		Title:    title,
		URL:      "{{base_url}}/" + title,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) suite(t *testing.T, ids ...uuid.UUID) uuid.UUID {
	t.Helper()
	s := &domain.TestSuite{Name: "suite", CaseIDs: ids}
	require.NoError(t, f.store.InTx(context.Background(), func(tx secondary.Tx) error {
		return tx.InsertSuite(context.Background(), s)
	}))
	return s.ID
}

func (f *fixture) suiteCases(t *testing.T, suiteID uuid.UUID) []uuid.UUID {
	t.Helper()
	var ids []uuid.UUID
	require.NoError(t, f.store.View(context.Background(), func(tx secondary.Tx) error {
		s, err := tx.GetSuite(context.Background(), suiteID)
		require.NoError(t, err)
		ids = s.CaseIDs
		return nil
	}))
	return ids
}

// titles lists the module in order and checks the indices are dense.
func (f *fixture) titles(t *testing.T, moduleID uuid.UUID) []string {
	t.Helper()
	cases, err := f.svc.ListTestCases(context.Background(), &moduleID, 0, 0)
	require.NoError(t, err)
	titles := make([]string, len(cases))
	for i, c := range cases {
		require.Equal(t, i, c.SequenceIndex, "sequence index of %s", c.Title)
		titles[i] = c.Title
	}
	return titles
}

func TestCreateAppendsAndDefaults(t *testing.T) {
	f := newFixture()
	m := f.module(t, "auth")

	a := f.create(t, m, "a")
	b := f.create(t, m, "b")
	assert.Equal(t, 0, a.SequenceIndex)
	assert.Equal(t, 1, b.SequenceIndex)
	assert.Equal(t, "GET", a.Method)
	assert.Equal(t, "application/json", a.ContentType)

	_, err := f.svc.CreateTestCase(context.Background(), &domain.TestCase{ModuleID: uuid.New(), Title: "x", URL: "/x"})
	assert.ErrorIs(t, err, errs.NotFound)

	_, err = f.svc.CreateTestCase(context.Background(), &domain.TestCase{ModuleID: m, URL: "/x"})
	assert.ErrorIs(t, err, errs.InvalidArgument)

	_, err = f.svc.CreateTestCase(context.Background(), &domain.TestCase{ModuleID: m, Title: "x", URL: "/x", Method: "BREW"})
	assert.ErrorIs(t, err, errs.InvalidArgument)

	_, err = f.svc.CreateTestCase(context.Background(), &domain.TestCase{
		ModuleID:   m,
		Title:      "x",
		URL:        "/x",
		Assertions: []domain.Assertion{{Check: "headers", Comparator: "equals"}},
	})
	assert.ErrorIs(t, err, errs.InvalidArgument)
}

func TestListTestCasesPaging(t *testing.T) {
	f := newFixture()
	m := f.module(t, "m")
	for _, title := range []string{"a", "b", "c", "d"} {
		f.create(t, m, title)
	}

	cases, err := f.svc.ListTestCases(context.Background(), &m, 1, 2)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "b", cases[0].Title)
	assert.Equal(t, "c", cases[1].Title)

	all, err := f.svc.ListTestCases(context.Background(), nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	missing := uuid.New()
	_, err = f.svc.ListTestCases(context.Background(), &missing, 0, 0)
	assert.ErrorIs(t, err, errs.NotFound)

	_, err = f.svc.ListTestCases(context.Background(), nil, -1, 0)
	assert.ErrorIs(t, err, errs.InvalidArgument)
}

func TestDeleteCompactsAndDetachesFromSuites(t *testing.T) {
	f := newFixture()
	m := f.module(t, "m")
	a := f.create(t, m, "a")
	b := f.create(t, m, "b")
	c := f.create(t, m, "c")
	s := f.suite(t, c.ID, b.ID, a.ID)

	require.NoError(t, f.svc.DeleteTestCase(context.Background(), b.ID))
	assert.Equal(t, []string{"a", "c"}, f.titles(t, m))
	assert.Equal(t, []uuid.UUID{c.ID, a.ID}, f.suiteCases(t, s))

	assert.ErrorIs(t, f.svc.DeleteTestCase(context.Background(), b.ID), errs.NotFound)
}

func TestReorder(t *testing.T) {
	f := newFixture()
	m := f.module(t, "m")
	a := f.create(t, m, "a")
	b := f.create(t, m, "b")
	c := f.create(t, m, "c")

	perm := []uuid.UUID{c.ID, a.ID, b.ID}
	cases, err := f.svc.ReorderTestCases(context.Background(), m, perm)
	require.NoError(t, err)
	require.Len(t, cases, 3)
	assert.Equal(t, []string{"c", "a", "b"}, f.titles(t, m))

	// Applying the same permutation again changes nothing.
	_, err = f.svc.ReorderTestCases(context.Background(), m, perm)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, f.titles(t, m))

	other := f.module(t, "other")
	foreign := f.create(t, other, "f")

	for name, ids := range map[string][]uuid.UUID{
		"missing":   {c.ID, a.ID},
		"duplicate": {c.ID, a.ID, a.ID},
		"foreign":   {c.ID, a.ID, foreign.ID},
		"extra":     {c.ID, a.ID, b.ID, foreign.ID},
	} {
		_, err := f.svc.ReorderTestCases(context.Background(), m, ids)
		assert.ErrorIs(t, err, errs.InvalidArgument, name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, f.titles(t, m))

	_, err = f.svc.ReorderTestCases(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestCopy(t *testing.T) {
	f := newFixture()
	m := f.module(t, "m")
	src, err := f.svc.CreateTestCase(context.Background(), &domain.TestCase{
		ModuleID:     m,
		Title:        "login",
		Method:       "post",
		URL:          "{{base_url}}/login",
		Headers:      map[string]string{"X-Trace": "1"},
		Body:         json.RawMessage(`{"user":"bob"}`),
		ExtractRules: map[string]string{"token": "data.token"},
		Assertions:   []domain.Assertion{{Check: "status_code", Comparator: "equals", Expect: 200}},
	})
	require.NoError(t, err)
	f.create(t, m, "other")

	cp, err := f.svc.CopyTestCase(context.Background(), src.ID)
	require.NoError(t, err)
	assert.NotEqual(t, src.ID, cp.ID)
	assert.Equal(t, m, cp.ModuleID)
	assert.Equal(t, 2, cp.SequenceIndex)
	assert.Equal(t, src.Title, cp.Title)
	assert.Equal(t, "POST", cp.Method)
	assert.Equal(t, src.Headers, cp.Headers)
	assert.JSONEq(t, string(src.Body), string(cp.Body))
	assert.Equal(t, src.ExtractRules, cp.ExtractRules)
	assert.Equal(t, src.Assertions, cp.Assertions)

	_, err = f.svc.CopyTestCase(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestUpdatePartialAndMove(t *testing.T) {
	f := newFixture()
	src := f.module(t, "src")
	dst := f.module(t, "dst")
	a := f.create(t, src, "a")
	b := f.create(t, src, "b")
	f.create(t, src, "c")
	f.create(t, dst, "x")

	title := "renamed"
	updated, err := f.svc.UpdateTestCase(context.Background(), b.ID, domain.TestCasePatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, b.URL, updated.URL)
	assert.Equal(t, 1, updated.SequenceIndex)

	moved, err := f.svc.UpdateTestCase(context.Background(), a.ID, domain.TestCasePatch{ModuleID: &dst})
	require.NoError(t, err)
	assert.Equal(t, dst, moved.ModuleID)
	assert.Equal(t, 1, moved.SequenceIndex)
	assert.Equal(t, []string{"renamed", "c"}, f.titles(t, src))
	assert.Equal(t, []string{"x", "a"}, f.titles(t, dst))

	missing := uuid.New()
	_, err = f.svc.UpdateTestCase(context.Background(), b.ID, domain.TestCasePatch{ModuleID: &missing})
	assert.ErrorIs(t, err, errs.NotFound)

	_, err = f.svc.UpdateTestCase(context.Background(), uuid.New(), domain.TestCasePatch{Title: &title})
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestBatchDeleteBestEffort(t *testing.T) {
	f := newFixture()
	m1 := f.module(t, "m1")
	m2 := f.module(t, "m2")
	a := f.create(t, m1, "a")
	f.create(t, m1, "a2")
	c := f.create(t, m2, "c")
	f.create(t, m2, "c2")
	s := f.suite(t, a.ID, c.ID)
	missing := uuid.New()

	results, err := f.svc.BatchDeleteTestCases(context.Background(), []uuid.UUID{a.ID, missing, c.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, domain.BatchItemDeleted, results[0].Status)
	assert.Equal(t, domain.BatchItemNotFound, results[1].Status)
	assert.Equal(t, domain.BatchItemDeleted, results[2].Status)
	assert.Equal(t, domain.BatchItemNotFound, results[3].Status)
	for i, id := range []uuid.UUID{a.ID, missing, c.ID, a.ID} {
		assert.Equal(t, id, results[i].ID)
	}

	assert.Equal(t, []string{"a2"}, f.titles(t, m1))
	assert.Equal(t, []string{"c2"}, f.titles(t, m2))
	assert.Empty(t, f.suiteCases(t, s))
}

// hookLocker runs hook before the first lock is taken.
type hookLocker struct {
	secondary.Locker
	once sync.Once
	hook func()
}

func (l *hookLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.once.Do(l.hook)
	return l.Locker.Lock(ctx, key)
}

func TestBatchDeleteFollowsMovedCase(t *testing.T) {
	f := newFixture()
	m1 := f.module(t, "m1")
	m2 := f.module(t, "m2")
	a := f.create(t, m1, "a")
	f.create(t, m1, "a2")
	f.create(t, m2, "c")

	// Move a to m2 after the batch resolved it but before m1 is locked.
	locker := &hookLocker{Locker: lock.NewKeyedLocker(), hook: func() {
		ctx := context.Background()
		require.NoError(t, f.store.InTx(ctx, func(tx secondary.Tx) error {
			c, err := tx.GetTestCase(ctx, a.ID)
			if err != nil {
				return err
			}
			c.ModuleID = m2
			c.SequenceIndex = 1
			return tx.UpdateTestCase(ctx, c)
		}))
	}}
	f.svc = NewTestCaseService(f.store, locker, logging.NewNopLogger())

	results, err := f.svc.BatchDeleteTestCases(context.Background(), []uuid.UUID{a.ID})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.BatchItemDeleted, results[0].Status)
	assert.Empty(t, results[0].Message)

	assert.Equal(t, []string{"a2"}, f.titles(t, m1))
	assert.Equal(t, []string{"c"}, f.titles(t, m2))
}

func TestBatchDeleteStrict(t *testing.T) {
	f := newFixture(WithStrictBatch(true))
	m := f.module(t, "m")
	a := f.create(t, m, "a")
	b := f.create(t, m, "b")
	missing := uuid.New()

	results, err := f.svc.BatchDeleteTestCases(context.Background(), []uuid.UUID{a.ID, missing, b.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.BatchItemConflict, results[0].Status)
	assert.Equal(t, domain.BatchItemNotFound, results[1].Status)
	assert.Equal(t, domain.BatchItemConflict, results[2].Status)
	assert.Equal(t, []string{"a", "b"}, f.titles(t, m))

	results, err = f.svc.BatchDeleteTestCases(context.Background(), []uuid.UUID{b.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.BatchItemDeleted, results[0].Status)
	assert.Equal(t, domain.BatchItemDeleted, results[1].Status)
	assert.Empty(t, f.titles(t, m))
}

func TestConcurrentMutationsKeepIndicesDense(t *testing.T) {
	f := newFixture()
	m := f.module(t, "m")
	seed := make([]*domain.TestCase, 10)
	for i := range seed {
		seed[i] = f.create(t, m, "seed")
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateTestCase(context.Background(), &domain.TestCase{ModuleID: m, Title: "new", URL: "/n"})
			assert.NoError(t, err)
		}()
		go func(id uuid.UUID) {
			defer wg.Done()
			if i%2 == 0 {
				assert.NoError(t, f.svc.DeleteTestCase(context.Background(), id))
			} else {
				_, err := f.svc.CopyTestCase(context.Background(), id)
				assert.NoError(t, err)
			}
		}(seed[i].ID)
	}
	wg.Wait()

	// 10 seeds - 5 deletes + 5 copies + 10 creates
	assert.Len(t, f.titles(t, m), 20)
}
