package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/cdr3net/internal/config"
	"github.com/dbsmedya/cdr3net/internal/logger"
)

type stubHandle struct {
	parallelism []int
	polls       int
	err         error
	closed      int
	closeErr    error
}

func (h *stubHandle) AvailableParallelism(ctx context.Context) (int, error) {
	if h.err != nil {
		return 0, h.err
	}
	i := h.polls
	if i >= len(h.parallelism) {
		i = len(h.parallelism) - 1
	}
	h.polls++
	return h.parallelism[i], nil
}

func (h *stubHandle) Submit(ctx context.Context, job Job) (Pending, error) {
	return nil, errors.New("not implemented")
}

func (h *stubHandle) Close() error {
	h.closed++
	return h.closeErr
}

type countingFactory struct {
	connects []string
	handle   *stubHandle
	err      error
}

func (f *countingFactory) Connect(ctx context.Context, master string) (Handle, error) {
	f.connects = append(f.connects, master)
	if f.err != nil {
		return nil, f.err
	}
	return f.handle, nil
}

func runConfig(enabled bool, cutoff int64) *config.RunConfig {
	return &config.RunConfig{
		Kind:               config.KindGraph,
		DistributedEnabled: enabled,
		DistributedCutoff:  cutoff,
		MasterAddress:      "redis://master:6379/0",
	}
}

func TestSelector_LocalNeverConnects(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		cutoff  int64
		n       int64
	}{
		{"disabled above cutoff", false, 100, 1_000_000},
		{"enabled at cutoff", true, 100, 100},
		{"enabled below cutoff", true, 100, 5},
		{"enabled zero input", true, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &countingFactory{handle: &stubHandle{}}
			s := NewSelector(runConfig(tt.enabled, tt.cutoff), f, logger.NewNop())

			h, err := s.Select(context.Background(), tt.n)

			require.NoError(t, err)
			assert.Nil(t, h)
			assert.Empty(t, f.connects)
			assert.False(t, s.UseDistributed(tt.n))
		})
	}
}

func TestSelector_DistributedConnectsOnce(t *testing.T) {
	f := &countingFactory{handle: &stubHandle{}}
	s := NewSelector(runConfig(true, 100), f, logger.NewNop())

	h, err := s.Select(context.Background(), 101)

	require.NoError(t, err)
	assert.Same(t, f.handle, h)
	assert.Equal(t, []string{"redis://master:6379/0"}, f.connects)
}

func TestSelector_NilFactoryIsLocal(t *testing.T) {
	s := NewSelector(runConfig(true, 0), nil, logger.NewNop())

	h, err := s.Select(context.Background(), 1_000_000)

	require.NoError(t, err)
	assert.Nil(t, h)
	assert.False(t, s.UseDistributed(1_000_000))
}

func TestSelector_ConnectFailureIsFatal(t *testing.T) {
	boom := errors.New("connection refused")
	f := &countingFactory{err: boom}
	s := NewSelector(runConfig(true, 10), f, logger.NewNop())

	h, err := s.Select(context.Background(), 11)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, h)
	assert.Len(t, f.connects, 1, "connect must not be retried")
}

func TestSelector_WithReleasesOnEveryPath(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := &countingFactory{handle: &stubHandle{}}
		s := NewSelector(runConfig(true, 0), f, logger.NewNop())

		var seen Handle
		err := s.With(context.Background(), 1, func(h Handle) error {
			seen = h
			return nil
		})

		require.NoError(t, err)
		assert.Same(t, f.handle, seen)
		assert.Equal(t, 1, f.handle.closed)
	})

	t.Run("callback error", func(t *testing.T) {
		f := &countingFactory{handle: &stubHandle{}}
		s := NewSelector(runConfig(true, 0), f, logger.NewNop())
		boom := errors.New("compute failed")

		err := s.With(context.Background(), 1, func(h Handle) error { return boom })

		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, f.handle.closed)
	})

	t.Run("close error combined", func(t *testing.T) {
		closeErr := errors.New("close failed")
		f := &countingFactory{handle: &stubHandle{closeErr: closeErr}}
		s := NewSelector(runConfig(true, 0), f, logger.NewNop())
		boom := errors.New("compute failed")

		err := s.With(context.Background(), 1, func(h Handle) error { return boom })

		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, closeErr)
	})

	t.Run("local passes nil", func(t *testing.T) {
		f := &countingFactory{handle: &stubHandle{}}
		s := NewSelector(runConfig(false, 0), f, logger.NewNop())

		called := false
		err := s.With(context.Background(), 1, func(h Handle) error {
			called = true
			assert.Nil(t, h)
			return nil
		})

		require.NoError(t, err)
		assert.True(t, called)
		assert.Zero(t, f.handle.closed)
	})
}

func TestFactoryFunc(t *testing.T) {
	want := &stubHandle{}
	var f Factory = FactoryFunc(func(ctx context.Context, master string) (Handle, error) {
		assert.Equal(t, "host:1", master)
		return want, nil
	})

	h, err := f.Connect(context.Background(), "host:1")
	require.NoError(t, err)
	assert.Same(t, want, h)
}
