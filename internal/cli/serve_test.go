package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubListener struct {
	err error
}

func (l stubListener) Start(context.Context) error { return l.err }

type stubPool struct {
	started bool
}

func (p *stubPool) Start(context.Context) { p.started = true }

func TestStartServingKeepsWorkersIdleWhenBindFails(t *testing.T) {
	pool := &stubPool{}
	err := startServing(context.Background(), stubListener{err: errors.New("address already in use")}, pool)
	require.Error(t, err)
	assert.False(t, pool.started)

	require.NoError(t, startServing(context.Background(), stubListener{}, pool))
	assert.True(t, pool.started)
}
