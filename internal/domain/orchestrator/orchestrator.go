// Package orchestrator exposes the command surface consumed by the
// external UI: discovery requests and the two launch entry points.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/nwlens/nwlens/internal/domain/launcher"
	"github.com/nwlens/nwlens/internal/domain/store"
	"github.com/nwlens/nwlens/internal/infrastructure/logging"
	"github.com/nwlens/nwlens/internal/infrastructure/monitoring"
	"github.com/nwlens/nwlens/internal/shared/types"
	"go.uber.org/zap"
)

var (
	// ErrUnknownApp is returned when a launch names an application id
	// absent from the store.
	ErrUnknownApp = errors.New("unknown application id")

	// ErrInvalidPath is the user-facing failure for a selected path
	// that is not a recognizable NW.js application.
	ErrInvalidPath = errors.New("selected path is not an NW.js application")
)

// Discoverer finds installed applications. Satisfied by
// discovery.Scanner.
type Discoverer interface {
	Discover(ctx context.Context) []types.ApplicationInfo
	Identify(path string) (types.ApplicationInfo, error)
}

// Orchestrator wires discovery, the store and the launcher behind the
// inbound command surface
type Orchestrator struct {
	scanner  Discoverer
	store    *store.Store
	launcher *launcher.Launcher
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// New creates an orchestrator
func New(scanner Discoverer, st *store.Store, l *launcher.Launcher, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Orchestrator{
		scanner:  scanner,
		store:    st,
		launcher: l,
		logger:   logger,
	}
}

// WithMetrics adds metrics tracking to the orchestrator
func (o *Orchestrator) WithMetrics(metrics *monitoring.Metrics) *Orchestrator {
	o.metrics = metrics
	return o
}

// RequestDiscovery runs a scan, merges the result into the store and
// returns the current application mapping.
func (o *Orchestrator) RequestDiscovery(ctx context.Context) []types.ApplicationInfo {
	found := o.scanner.Discover(ctx)
	o.store.UpsertApplications(found)

	apps := o.store.Applications()
	if o.metrics != nil {
		o.metrics.AppsDiscovered.Set(float64(len(apps)))
	}
	return apps
}

// StartDebugging launches a known application by id
func (o *Orchestrator) StartDebugging(ctx context.Context, appID string) (types.Session, error) {
	app, ok := o.store.Application(appID)
	if !ok {
		return types.Session{}, fmt.Errorf("%w: %s", ErrUnknownApp, appID)
	}
	return o.launcher.Launch(ctx, app)
}

// StartDebuggingByPath launches an application selected by explicit
// path (drag-and-drop or manual selection). A recognized application is
// added to the store as a transient entry before launching.
func (o *Orchestrator) StartDebuggingByPath(ctx context.Context, path string) (types.Session, error) {
	app, err := o.scanner.Identify(path)
	if err != nil {
		o.logger.Warn("Rejected launch by path",
			zap.String("path", path),
			zap.Error(err),
		)
		return types.Session{}, fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}

	o.store.AddTransientApplication(app)
	return o.launcher.Launch(ctx, app)
}
