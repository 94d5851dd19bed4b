// Package discovery enumerates locally installed NW.js applications and
// extracts their identifying metadata.
//
// Platform layouts differ enough that candidate roots, the runtime
// predicate and metadata extraction live behind a small platform
// interface with GOOS-specific implementations. The scanner itself only
// reads the filesystem; callers merge results into the session store.
package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/nwlens/nwlens/internal/infrastructure/logging"
	"github.com/nwlens/nwlens/internal/shared/types"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedPlatform is returned when no scanner exists for
	// the current GOOS.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrNotRecognized is returned by Identify for paths that do not
	// belong to an NW.js installation.
	ErrNotRecognized = errors.New("path is not a recognizable NW.js application")
)

// Platform supplies the OS-specific pieces of discovery
type Platform interface {
	// Roots lists candidate install directories. Roots that do not
	// exist or cannot be listed contribute no candidates.
	Roots() []string

	// IsRuntimeApp reports whether path is an NW.js installation root.
	IsRuntimeApp(path string) bool

	// Extract derives application metadata from an installation root.
	Extract(path string) (types.ApplicationInfo, error)
}

// Scanner discovers installed applications
type Scanner struct {
	platform Platform
	logger   *logging.Logger
}

// NewScanner creates a scanner for the current platform. Fails with
// ErrUnsupportedPlatform on an unhandled GOOS.
func NewScanner(logger *logging.Logger) (*Scanner, error) {
	plat, err := newPlatform()
	if err != nil {
		return nil, err
	}
	return NewScannerWithPlatform(plat, logger), nil
}

// NewScannerWithPlatform creates a scanner over an explicit platform.
// Used by tests and ad-hoc tooling.
func NewScannerWithPlatform(plat Platform, logger *logging.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Scanner{platform: plat, logger: logger}
}

// Discover scans every candidate root and returns all recognized
// applications. A root that cannot be listed yields no candidates and
// never aborts the scan.
func (s *Scanner) Discover(ctx context.Context) []types.ApplicationInfo {
	var apps []types.ApplicationInfo

	for _, root := range s.platform.Roots() {
		if ctx.Err() != nil {
			break
		}

		entries, err := os.ReadDir(root)
		if err != nil {
			s.logger.Debug("Skipping unreadable install root",
				zap.String("root", root),
				zap.Error(err),
			)
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			candidate := filepath.Join(root, entry.Name())
			if !s.platform.IsRuntimeApp(candidate) {
				continue
			}
			app, err := s.platform.Extract(candidate)
			if err != nil {
				s.logger.Warn("Failed to extract application metadata",
					zap.String("path", candidate),
					zap.Error(err),
				)
				continue
			}
			apps = append(apps, app)
		}
	}

	s.logger.Info("Discovery scan complete", zap.Int("found", len(apps)))
	return apps
}

// Identify resolves an explicit path (e.g. a dragged-in executable) to
// the application that contains it. The path may point at the
// installation root itself or anywhere inside it.
func (s *Scanner) Identify(path string) (types.ApplicationInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return types.ApplicationInfo{}, ErrNotRecognized
	}
	if _, err := os.Stat(abs); err != nil {
		return types.ApplicationInfo{}, ErrNotRecognized
	}

	for dir := abs; ; {
		if s.platform.IsRuntimeApp(dir) {
			return s.platform.Extract(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return types.ApplicationInfo{}, ErrNotRecognized
		}
		dir = parent
	}
}
