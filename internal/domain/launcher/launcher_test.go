//go:build !windows

package launcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nwlens/nwlens/internal/domain/ports"
	"github.com/nwlens/nwlens/internal/domain/store"
	"github.com/nwlens/nwlens/internal/infrastructure/logging"
	"github.com/nwlens/nwlens/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingProber records readiness probes instead of polling endpoints
type recordingProber struct {
	mu        sync.Mutex
	refreshed []string
}

func (p *recordingProber) Refresh(ctx context.Context, instanceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshed = append(p.refreshed, instanceID)
}

func (p *recordingProber) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.refreshed)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func newTestLauncher(t *testing.T) (*Launcher, *store.Store, *ports.Pool, *recordingProber) {
	t.Helper()
	pool := ports.NewPool(9300, 16)
	st := store.New(4096, logging.NewDefault())
	prober := &recordingProber{}
	l := New(pool, st, prober, 20*time.Millisecond, logging.NewDefault())
	return l, st, pool, prober
}

func waitForStatus(t *testing.T, st *store.Store, instanceID string, want types.SessionStatus) types.Session {
	t.Helper()
	var sess types.Session
	require.Eventually(t, func() bool {
		var ok bool
		sess, ok = st.Session(instanceID)
		return ok && sess.Status == want
	}, 5*time.Second, 10*time.Millisecond, "session never reached %s", want)
	return sess
}

func TestLaunchImmediateExitClosesWithoutStarting(t *testing.T) {
	l, st, pool, prober := newTestLauncher(t)

	exe := writeScript(t, "exit 1\n")
	sess, err := l.Launch(context.Background(), types.ApplicationInfo{ID: "app_1", ExePath: exe})
	require.NoError(t, err)
	assert.Equal(t, types.StatusPreparing, sess.Status)

	closed := waitForStatus(t, st, sess.InstanceID, types.StatusClosed)
	require.NotNil(t, closed.ExitCode)
	assert.Equal(t, 1, *closed.ExitCode)

	// Both ports must come back, and the readiness flow must never fire.
	assert.Equal(t, 0, pool.Held())
	assert.Equal(t, 0, prober.count())
}

func TestLaunchStderrBannerTriggersReadiness(t *testing.T) {
	l, st, _, prober := newTestLauncher(t)

	exe := writeScript(t, "echo 'listening on port' >&2\nsleep 1\n")
	sess, err := l.Launch(context.Background(), types.ApplicationInfo{ID: "app_1", ExePath: exe})
	require.NoError(t, err)

	running := waitForStatus(t, st, sess.InstanceID, types.StatusRunning)
	assert.Equal(t, types.StatusRunning, running.Status)
	assert.Equal(t, 1, prober.count())

	closed := waitForStatus(t, st, sess.InstanceID, types.StatusClosed)
	require.NotNil(t, closed.ExitCode)
	assert.Equal(t, 0, *closed.ExitCode)
}

func TestReadinessFiresOncePerSession(t *testing.T) {
	l, st, _, prober := newTestLauncher(t)

	// Several distinct stderr chunks; only the first arms the probe.
	exe := writeScript(t, "for i in 1 2 3; do echo chunk $i >&2; sleep 0.1; done\n")
	sess, err := l.Launch(context.Background(), types.ApplicationInfo{ID: "app_1", ExePath: exe})
	require.NoError(t, err)

	waitForStatus(t, st, sess.InstanceID, types.StatusClosed)
	assert.Equal(t, 1, prober.count())
}

func TestLaunchCapturesOutput(t *testing.T) {
	l, st, _, _ := newTestLauncher(t)

	exe := writeScript(t, "echo hello-stdout\necho hello-stderr >&2\n")
	sess, err := l.Launch(context.Background(), types.ApplicationInfo{ID: "app_1", ExePath: exe})
	require.NoError(t, err)

	waitForStatus(t, st, sess.InstanceID, types.StatusClosed)

	log, ok := st.SessionLog(sess.InstanceID)
	require.True(t, ok)
	assert.Contains(t, string(log), "hello-stdout")
	assert.Contains(t, string(log), "hello-stderr")
}

func TestLaunchReturnsPreparingSessionWithPages(t *testing.T) {
	l, st, _, _ := newTestLauncher(t)

	exe := writeScript(t, "sleep 0.2\n")
	sess, err := l.Launch(context.Background(), types.ApplicationInfo{ID: "app_1", ExePath: exe})
	require.NoError(t, err)

	// The returned value must match the stored record, not a zero shell.
	assert.Equal(t, types.StatusPreparing, sess.Status)
	assert.NotNil(t, sess.Pages)

	stored, ok := st.Session(sess.InstanceID)
	require.True(t, ok)
	assert.Equal(t, stored.Status, sess.Status)

	waitForStatus(t, st, sess.InstanceID, types.StatusClosed)
}

func TestOutputBeforeExitRetainedAtClose(t *testing.T) {
	l, st, _, _ := newTestLauncher(t)

	// No sleep: the process exits immediately after writing. The chunks
	// must already be in the log by the time the session reads closed.
	exe := writeScript(t, "echo last-stdout\necho last-stderr >&2\nexit 0\n")
	for i := 0; i < 5; i++ {
		sess, err := l.Launch(context.Background(), types.ApplicationInfo{ID: "app_1", ExePath: exe})
		require.NoError(t, err)

		waitForStatus(t, st, sess.InstanceID, types.StatusClosed)

		log, ok := st.SessionLog(sess.InstanceID)
		require.True(t, ok)
		assert.Contains(t, string(log), "last-stdout")
		assert.Contains(t, string(log), "last-stderr")
	}
}

func TestLaunchPassesDebugFlags(t *testing.T) {
	l, st, _, _ := newTestLauncher(t)

	exe := writeScript(t, `echo "$@"`+"\n")
	sess, err := l.Launch(context.Background(), types.ApplicationInfo{ID: "app_1", ExePath: exe})
	require.NoError(t, err)

	waitForStatus(t, st, sess.InstanceID, types.StatusClosed)

	log, _ := st.SessionLog(sess.InstanceID)
	assert.Contains(t, string(log), "--inspect=127.0.0.1:")
	assert.Contains(t, string(log), "--remote-debugging-port=")
}

func TestSpawnFailureReleasesPortsAndCreatesNoSession(t *testing.T) {
	l, st, pool, _ := newTestLauncher(t)

	_, err := l.Launch(context.Background(), types.ApplicationInfo{
		ID:      "app_1",
		ExePath: filepath.Join(t.TempDir(), "missing-binary"),
	})
	require.Error(t, err)

	assert.Equal(t, 0, pool.Held())
	assert.Empty(t, st.Sessions())
}

func TestLaunchWithoutExePath(t *testing.T) {
	l, _, pool, _ := newTestLauncher(t)

	_, err := l.Launch(context.Background(), types.ApplicationInfo{ID: "app_1"})
	require.Error(t, err)
	assert.Equal(t, 0, pool.Held())
}

func TestPoolExhaustedBlocksLaunch(t *testing.T) {
	pool := ports.NewPool(9300, 1)
	st := store.New(0, logging.NewDefault())
	l := New(pool, st, nil, time.Millisecond, logging.NewDefault())

	exe := writeScript(t, "sleep 1\n")
	_, err := l.Launch(context.Background(), types.ApplicationInfo{ID: "app_1", ExePath: exe})
	require.ErrorIs(t, err, ports.ErrPoolExhausted)
	assert.Empty(t, st.Sessions())
	assert.Equal(t, 0, pool.Held())
}

func TestConcurrentLaunchesDisjointPorts(t *testing.T) {
	l, st, pool, _ := newTestLauncher(t)

	exe := writeScript(t, "echo up >&2\nsleep 1\n")

	var wg sync.WaitGroup
	results := make(chan types.Session, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := l.Launch(context.Background(), types.ApplicationInfo{ID: "app_1", ExePath: exe})
			if err != nil {
				t.Errorf("Launch failed: %v", err)
				return
			}
			results <- sess
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int]bool)
	var instances []string
	for sess := range results {
		for _, port := range []int{sess.NodePort, sess.WindowPort} {
			assert.False(t, seen[port], "port %d assigned to two sessions", port)
			seen[port] = true
		}
		instances = append(instances, sess.InstanceID)
	}
	require.Len(t, instances, 2)
	assert.NotEqual(t, instances[0], instances[1])

	for _, inst := range instances {
		waitForStatus(t, st, inst, types.StatusRunning)
	}
	for _, inst := range instances {
		waitForStatus(t, st, inst, types.StatusClosed)
	}
	assert.Equal(t, 0, pool.Held())
}

func TestCloseReleasesPortsForReacquire(t *testing.T) {
	l, st, pool, _ := newTestLauncher(t)

	exe := writeScript(t, "exit 0\n")
	sess, err := l.Launch(context.Background(), types.ApplicationInfo{ID: "app_1", ExePath: exe})
	require.NoError(t, err)

	waitForStatus(t, st, sess.InstanceID, types.StatusClosed)

	// Idempotent release verified by successful re-acquisition.
	p1, err := pool.Acquire()
	require.NoError(t, err)
	p2, err := pool.Acquire()
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)
}
