package secondary

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/testhub.net/internal/domain"
)

// Executor runs a suite's cases. It sends one outcome per case on outcomes,
// with Index matching the position in cases, and returns a non-nil error when
// the run itself could not proceed. It must not close outcomes.
type Executor interface {
	Execute(ctx context.Context, cases []*domain.TestCase, outcomes chan<- domain.CaseOutcome) error
}

// RunQueue accepts work for asynchronous execution. Submit must not block.
type RunQueue interface {
	Submit(id uuid.UUID, run func(ctx context.Context)) error
}
