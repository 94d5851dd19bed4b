// Package launcher starts NW.js executables with debugging
// instrumentation and tracks their output and lifecycle.
//
// Readiness is a documented heuristic, not a handshake: the runtime's
// debugger writes its listening banner to stderr, so the first stderr
// chunk arms a short delay after which the debugging endpoints are
// probed. The window between that chunk and any other output carries no
// further meaning.
package launcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/nwlens/nwlens/internal/domain/ports"
	"github.com/nwlens/nwlens/internal/domain/store"
	"github.com/nwlens/nwlens/internal/infrastructure/logging"
	"github.com/nwlens/nwlens/internal/infrastructure/monitoring"
	"github.com/nwlens/nwlens/internal/shared/id"
	"github.com/nwlens/nwlens/internal/shared/types"
	"go.uber.org/zap"
)

// TargetProber polls a session's debugging endpoints once and publishes
// the result. Satisfied by poller.Poller.
type TargetProber interface {
	Refresh(ctx context.Context, instanceID string)
}

// Launcher spawns debug sessions
type Launcher struct {
	pool       *ports.Pool
	store      *store.Store
	prober     TargetProber
	readyDelay time.Duration
	logger     *logging.Logger
	metrics    *monitoring.Metrics
}

// New creates a launcher. readyDelay is the pause between the stderr
// banner and the first endpoint probe.
func New(pool *ports.Pool, st *store.Store, prober TargetProber, readyDelay time.Duration, logger *logging.Logger) *Launcher {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Launcher{
		pool:       pool,
		store:      st,
		prober:     prober,
		readyDelay: readyDelay,
		logger:     logger,
	}
}

// WithMetrics adds metrics tracking to the launcher
func (l *Launcher) WithMetrics(metrics *monitoring.Metrics) *Launcher {
	l.metrics = metrics
	return l
}

// Launch starts the application's executable with both debug flags and
// registers the session in status preparing. Ports are released on
// every exit path, including spawn failure and pre-readiness death.
func (l *Launcher) Launch(ctx context.Context, app types.ApplicationInfo) (types.Session, error) {
	if app.ExePath == "" {
		return types.Session{}, fmt.Errorf("application %s has no executable path", app.ID)
	}

	nodePort, windowPort, err := l.pool.AcquirePair()
	if err != nil {
		return types.Session{}, err
	}
	if l.metrics != nil {
		l.metrics.PortsInUse.Set(float64(l.pool.Held()))
	}

	releasePorts := func() {
		l.pool.Release(nodePort)
		l.pool.Release(windowPort)
		if l.metrics != nil {
			l.metrics.PortsInUse.Set(float64(l.pool.Held()))
		}
	}

	cmd := exec.Command(app.ExePath,
		fmt.Sprintf("--inspect=127.0.0.1:%d", nodePort),
		fmt.Sprintf("--remote-debugging-port=%d", windowPort),
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		releasePorts()
		return types.Session{}, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		releasePorts()
		return types.Session{}, fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		releasePorts()
		return types.Session{}, fmt.Errorf("failed to spawn %s: %w", app.ExePath, err)
	}

	pid := cmd.Process.Pid
	session := types.Session{
		InstanceID: string(id.NewInstanceID()),
		AppID:      app.ID,
		NodePort:   nodePort,
		WindowPort: windowPort,
		Pages:      make(map[string]types.PageInfo),
		Status:     types.StatusPreparing,
		PID:        &pid,
		StartedAt:  time.Now(),
	}
	l.store.AddSession(session)

	if l.metrics != nil {
		l.metrics.SessionsLaunched.Inc()
		l.metrics.SessionsActive.Inc()
	}
	l.logger.Info("Launched debug session",
		zap.String("instance_id", session.InstanceID),
		zap.String("app_id", app.ID),
		zap.Int("node_port", nodePort),
		zap.Int("window_port", windowPort),
		zap.Int("pid", pid),
	)

	var readyOnce sync.Once
	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		l.streamOutput(session.InstanceID, types.StreamStdout, stdout, nil)
	}()
	go func() {
		defer readers.Done()
		l.streamOutput(session.InstanceID, types.StreamStderr, stderr, func() {
			readyOnce.Do(func() { l.scheduleReady(session.InstanceID) })
		})
	}()
	go l.monitor(cmd, &readers, session.InstanceID, sync.OnceFunc(releasePorts))

	return session, nil
}

// streamOutput forwards chunks from one process stream into the store,
// preserving arrival order within the stream. onChunk, when set, fires
// for every chunk; the stderr reader uses it as the readiness trigger.
func (l *Launcher) streamOutput(instanceID string, stream types.LogStream, r io.Reader, onChunk func()) {
	reader := bufio.NewReader(r)
	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			l.store.AppendLog(instanceID, stream, chunk)
			if onChunk != nil {
				onChunk()
			}
		}
		if err != nil {
			return
		}
	}
}

// scheduleReady arms the post-banner delay, then probes the endpoints
// and marks the session running. The session may be gone already; a
// rejected transition just means the process died first.
func (l *Launcher) scheduleReady(instanceID string) {
	time.AfterFunc(l.readyDelay, func() {
		if l.prober != nil {
			l.prober.Refresh(context.Background(), instanceID)
		}
		if err := l.store.RecordSessionStatus(instanceID, types.StatusRunning, nil); err != nil {
			l.logger.Debug("Session closed before readiness",
				zap.String("instance_id", instanceID),
				zap.Error(err),
			)
		}
	})
}

// monitor waits for process exit, records the closed transition and
// releases both ports exactly once. Both stream readers must reach EOF
// first: Wait closes the pipes, and a close under a pending read drops
// trailing output.
func (l *Launcher) monitor(cmd *exec.Cmd, readers *sync.WaitGroup, instanceID string, releasePorts func()) {
	readers.Wait()
	err := cmd.Wait()

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	releasePorts()
	if recErr := l.store.RecordSessionStatus(instanceID, types.StatusClosed, &exitCode); recErr != nil {
		l.logger.Warn("Failed to record session close",
			zap.String("instance_id", instanceID),
			zap.Error(recErr),
		)
	}
	if l.metrics != nil {
		l.metrics.SessionsActive.Dec()
		l.metrics.SessionsClosed.Inc()
	}

	l.logger.Info("Debug session closed",
		zap.String("instance_id", instanceID),
		zap.Int("exit_code", exitCode),
		zap.Error(err),
	)
}
