package memory

import (
	"time"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/domain"
)

type state struct {
	modules map[uuid.UUID]*domain.Module
	cases   map[uuid.UUID]*domain.TestCase
	suites  map[uuid.UUID]*domain.TestSuite
	reports map[uuid.UUID]*domain.TestReport
	last    time.Time
}

func newState() *state {
	return &state{
		modules: make(map[uuid.UUID]*domain.Module),
		cases:   make(map[uuid.UUID]*domain.TestCase),
		suites:  make(map[uuid.UUID]*domain.TestSuite),
		reports: make(map[uuid.UUID]*domain.TestReport),
	}
}

// clone copies the maps only. Entities are replaced, never modified, once
// stored, so sharing them between states is safe.
func (st *state) clone() *state {
	next := &state{
		modules: make(map[uuid.UUID]*domain.Module, len(st.modules)),
		cases:   make(map[uuid.UUID]*domain.TestCase, len(st.cases)),
		suites:  make(map[uuid.UUID]*domain.TestSuite, len(st.suites)),
		reports: make(map[uuid.UUID]*domain.TestReport, len(st.reports)),
		last:    st.last,
	}
	for k, v := range st.modules {
		next.modules[k] = v
	}
	for k, v := range st.cases {
		next.cases[k] = v
	}
	for k, v := range st.suites {
		next.suites[k] = v
	}
	for k, v := range st.reports {
		next.reports[k] = v
	}
	return next
}
