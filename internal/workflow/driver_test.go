package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/cdr3net/internal/backend"
	"github.com/dbsmedya/cdr3net/internal/cdr3"
	"github.com/dbsmedya/cdr3net/internal/config"
	"github.com/dbsmedya/cdr3net/internal/logger"
	"github.com/dbsmedya/cdr3net/internal/metrics"
	"github.com/dbsmedya/cdr3net/internal/network"
)

type stubHandle struct {
	closed int
}

func (h *stubHandle) AvailableParallelism(ctx context.Context) (int, error) { return 4, nil }

func (h *stubHandle) Submit(ctx context.Context, job backend.Job) (backend.Pending, error) {
	return nil, errors.New("not implemented")
}

func (h *stubHandle) Close() error {
	h.closed++
	return nil
}

type stubFactory struct {
	handle   *stubHandle
	err      error
	connects int
}

func (f *stubFactory) Connect(ctx context.Context, master string) (backend.Handle, error) {
	f.connects++
	if f.err != nil {
		return nil, f.err
	}
	return f.handle, nil
}

type call struct {
	op     string
	target string
	handle backend.Handle
}

// stubComputer records every call and the handle it was given.
type stubComputer struct {
	calls  []call
	failOn string
}

func (c *stubComputer) Graph(ctx context.Context, strs []string, minLD, maxLD int, h backend.Handle) (*network.Result[*network.Graph], error) {
	c.calls = append(c.calls, call{op: "graph", handle: h})
	if c.failOn == "graph" {
		return nil, errors.New("graph failed")
	}
	return network.Ready(&network.Graph{Strings: strs}), nil
}

func (c *stubComputer) Degrees(ctx context.Context, strs []string, minLD, maxLD int, h backend.Handle) (*network.Result[[]int], error) {
	c.calls = append(c.calls, call{op: "degrees", handle: h})
	if c.failOn == "degrees" {
		return nil, errors.New("degrees failed")
	}
	return network.Ready(make([]int, len(strs))), nil
}

func (c *stubComputer) ProcessFile(ctx context.Context, path string, h backend.Handle, column string, run *config.RunConfig) error {
	c.calls = append(c.calls, call{op: "file", target: filepath.Base(path), handle: h})
	if c.failOn == filepath.Base(path) {
		return fmt.Errorf("cannot process %s", path)
	}
	return nil
}

type fixture struct {
	run      *config.RunConfig
	factory  *stubFactory
	computer *stubComputer
	driver   *Driver
}

func newFixture(t *testing.T, enabled bool, cutoff int64, kind config.ExecutionKind) *fixture {
	t.Helper()
	run := &config.RunConfig{
		Kind:               kind,
		OutputDir:          t.TempDir(),
		MinLD:              1,
		MaxLD:              1,
		DistributedCutoff:  cutoff,
		DistributedEnabled: enabled,
		MasterAddress:      "redis://master:6379/0",
	}
	f := &fixture{
		run:      run,
		factory:  &stubFactory{handle: &stubHandle{}},
		computer: &stubComputer{},
	}
	sel := backend.NewSelector(run, f.factory, logger.NewNop())
	f.driver = NewDriver(run, sel, f.computer, cdr3.NewGenerator(1), metrics.New(), logger.NewNop())
	return f
}

func writeLines(t *testing.T, dir, name string, n int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("CASSF\n", n)), 0o644))
	return path
}

func TestDirectory_PerFileRouting(t *testing.T) {
	f := newFixture(t, true, 1000, config.KindGraph)
	in := t.TempDir()
	writeLines(t, in, "a.txt", 50)
	writeLines(t, in, "b.txt", 500)
	writeLines(t, in, "c.txt", 5000)

	outcomes, err := f.driver.Directory(context.Background(), in, "")
	require.NoError(t, err)

	assert.Equal(t, 1, f.factory.connects)
	assert.Equal(t, 1, f.factory.handle.closed)

	require.Len(t, f.computer.calls, 3)
	assert.Equal(t, "a.txt", f.computer.calls[0].target)
	assert.Nil(t, f.computer.calls[0].handle)
	assert.Equal(t, "b.txt", f.computer.calls[1].target)
	assert.Nil(t, f.computer.calls[1].handle)
	assert.Equal(t, "c.txt", f.computer.calls[2].target)
	assert.Same(t, f.factory.handle, f.computer.calls[2].handle)

	require.Equal(t, 3, outcomes.Len())
	var lines []int64
	for el := outcomes.Front(); el != nil; el = el.Next() {
		lines = append(lines, el.Value.Lines)
	}
	assert.Equal(t, []int64{50, 500, 5000}, lines)

	last, ok := outcomes.Get(filepath.Join(in, "c.txt"))
	require.True(t, ok)
	assert.True(t, last.Distributed)
}

func TestDirectory_DistributedDisabled(t *testing.T) {
	f := newFixture(t, false, 1000, config.KindGraph)
	in := t.TempDir()
	writeLines(t, in, "big.txt", 5000)

	_, err := f.driver.Directory(context.Background(), in, "")
	require.NoError(t, err)

	assert.Zero(t, f.factory.connects)
	require.Len(t, f.computer.calls, 1)
	assert.Nil(t, f.computer.calls[0].handle)
}

func TestDirectory_OutputDirMissing(t *testing.T) {
	f := newFixture(t, true, 1000, config.KindGraph)
	f.run.OutputDir = filepath.Join(t.TempDir(), "missing")
	in := t.TempDir()
	writeLines(t, in, "a.txt", 10)

	_, err := f.driver.Directory(context.Background(), in, "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutputDirMissing))
	assert.Zero(t, f.factory.connects)
	assert.Empty(t, f.computer.calls)
}

func TestDirectory_OutputPathIsFile(t *testing.T) {
	f := newFixture(t, false, 1000, config.KindGraph)
	f.run.OutputDir = writeLines(t, t.TempDir(), "not-a-dir", 1)

	_, err := f.driver.Directory(context.Background(), t.TempDir(), "")

	assert.True(t, errors.Is(err, ErrOutputDirMissing))
}

func TestDirectory_ReleasesOnFailure(t *testing.T) {
	f := newFixture(t, true, 1000, config.KindGraph)
	f.computer.failOn = "b.txt"
	in := t.TempDir()
	writeLines(t, in, "a.txt", 10)
	writeLines(t, in, "b.txt", 2000)
	writeLines(t, in, "c.txt", 10)

	outcomes, err := f.driver.Directory(context.Background(), in, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.txt")
	assert.Equal(t, 1, f.factory.handle.closed)
	assert.Len(t, f.computer.calls, 2)
	assert.Equal(t, 1, outcomes.Len())
}

func TestDirectory_ConnectFailure(t *testing.T) {
	f := newFixture(t, true, 1000, config.KindGraph)
	f.factory.err = errors.New("connection refused")
	in := t.TempDir()
	writeLines(t, in, "a.txt", 10)

	_, err := f.driver.Directory(context.Background(), in, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, f.factory.connects)
	assert.Empty(t, f.computer.calls)
}

func TestFile(t *testing.T) {
	tests := []struct {
		name            string
		enabled         bool
		lines           int
		wantDistributed bool
	}{
		{"below cutoff", true, 100, false},
		{"at cutoff", true, 1000, false},
		{"above cutoff", true, 1001, true},
		{"above cutoff but disabled", false, 5000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.enabled, 1000, config.KindAll)
			path := writeLines(t, t.TempDir(), "input.txt", tt.lines)

			out, err := f.driver.File(context.Background(), path, "cdr3")
			require.NoError(t, err)

			assert.Equal(t, int64(tt.lines), out.Lines)
			assert.Equal(t, tt.wantDistributed, out.Distributed)
			require.Len(t, f.computer.calls, 1)
			if tt.wantDistributed {
				assert.Equal(t, 1, f.factory.connects)
				assert.Same(t, f.factory.handle, f.computer.calls[0].handle)
				assert.Equal(t, 1, f.factory.handle.closed)
			} else {
				assert.Zero(t, f.factory.connects)
				assert.Nil(t, f.computer.calls[0].handle)
			}
		})
	}
}

func TestFile_ReleasesOnFailure(t *testing.T) {
	f := newFixture(t, true, 10, config.KindGraph)
	f.computer.failOn = "input.txt"
	path := writeLines(t, t.TempDir(), "input.txt", 100)

	_, err := f.driver.File(context.Background(), path, "")

	require.Error(t, err)
	assert.Equal(t, 1, f.factory.handle.closed)
}

func TestFile_Missing(t *testing.T) {
	f := newFixture(t, true, 10, config.KindGraph)

	_, err := f.driver.File(context.Background(), filepath.Join(t.TempDir(), "missing.txt"), "")

	require.Error(t, err)
	assert.Zero(t, f.factory.connects)
	assert.Empty(t, f.computer.calls)
}

func TestRandom_AllSharesHandle(t *testing.T) {
	f := newFixture(t, true, 10, config.KindAll)

	out, err := f.driver.Random(context.Background(), 50, 8, 12)
	require.NoError(t, err)

	assert.Equal(t, "random_50", out.Name)
	assert.True(t, out.Distributed)
	assert.Equal(t, 1, f.factory.connects)
	assert.Equal(t, 1, f.factory.handle.closed)

	require.Len(t, f.computer.calls, 2)
	assert.Equal(t, "graph", f.computer.calls[0].op)
	assert.Equal(t, "degrees", f.computer.calls[1].op)
	assert.Same(t, f.computer.calls[0].handle, f.computer.calls[1].handle)

	assert.FileExists(t, filepath.Join(f.run.OutputDir, "random_50_graph.tsv"))
	assert.FileExists(t, filepath.Join(f.run.OutputDir, "random_50_degrees.tsv"))
}

func TestRandom_Local(t *testing.T) {
	f := newFixture(t, true, 1000, config.KindDegrees)

	out, err := f.driver.Random(context.Background(), 20, 8, 12)
	require.NoError(t, err)

	assert.False(t, out.Distributed)
	assert.Zero(t, f.factory.connects)
	require.Len(t, f.computer.calls, 1)
	assert.Equal(t, "degrees", f.computer.calls[0].op)
	assert.NoFileExists(t, filepath.Join(f.run.OutputDir, "random_20_graph.tsv"))
	assert.FileExists(t, filepath.Join(f.run.OutputDir, "random_20_degrees.tsv"))
}

func TestRandom_ReleasesOnFailure(t *testing.T) {
	for _, failOn := range []string{"graph", "degrees"} {
		t.Run(failOn, func(t *testing.T) {
			f := newFixture(t, true, 10, config.KindAll)
			f.computer.failOn = failOn

			_, err := f.driver.Random(context.Background(), 50, 8, 12)

			require.Error(t, err)
			assert.Contains(t, err.Error(), failOn+" failed")
			assert.Equal(t, 1, f.factory.handle.closed)
		})
	}
}
