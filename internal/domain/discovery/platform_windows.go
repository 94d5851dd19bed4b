//go:build windows

package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/nwlens/nwlens/internal/shared/id"
	"github.com/nwlens/nwlens/internal/shared/types"
)

// versionDirPattern matches versioned install subdirectories (e.g. 1.2.3)
var versionDirPattern = regexp.MustCompile(`^\d+(\.\d+)*$`)

// runtimeMarkers identify a versioned directory holding the NW.js runtime
var runtimeMarkers = []string{"nw.dll", "package.nw"}

// uninstallerPatterns exclude installer plumbing from executable resolution
var uninstallerPatterns = []string{"unins*.exe", "uninstall*.exe"}

type windowsPlatform struct{}

func newPlatform() (Platform, error) {
	return &windowsPlatform{}, nil
}

func (p *windowsPlatform) Roots() []string {
	var roots []string
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		roots = append(roots, local)
	}
	for _, env := range []string{"ProgramFiles", "ProgramFiles(x86)"} {
		if dir := os.Getenv(env); dir != "" {
			roots = append(roots, dir)
		}
	}
	return roots
}

func (p *windowsPlatform) IsRuntimeApp(path string) bool {
	return p.versionDir(path) != ""
}

// versionDir returns the newest versioned subdirectory containing a
// runtime marker, or "" when none exists.
func (p *windowsPlatform) versionDir(path string) string {
	entries, err := os.ReadDir(path)
	if err != nil {
		return ""
	}

	var versions []string
	for _, entry := range entries {
		if entry.IsDir() && versionDirPattern.MatchString(entry.Name()) {
			versions = append(versions, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))

	for _, version := range versions {
		dir := filepath.Join(path, version)
		for _, marker := range runtimeMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
	}
	return ""
}

func (p *windowsPlatform) Extract(path string) (types.ApplicationInfo, error) {
	versionDir := p.versionDir(path)
	if versionDir == "" {
		return types.ApplicationInfo{}, fmt.Errorf("no runtime directory under %s", path)
	}

	exe, err := findExecutable(versionDir)
	if err != nil {
		return types.ApplicationInfo{}, err
	}

	// There is no manifest carrying a stable identity on this platform,
	// so each scan assigns a fresh id. Repeated scans may therefore hand
	// the same installation different ids.
	return types.ApplicationInfo{
		ID:           id.NewAppID().String(),
		Name:         filepath.Base(path),
		AppPath:      path,
		ExePath:      exe,
		DiscoveredAt: time.Now(),
	}, nil
}

// findExecutable walks the runtime directory for the first launchable
// binary, skipping uninstaller executables.
func findExecutable(dir string) (string, error) {
	var found string

	// Single worker: resolution wants the first match in lexical order.
	walkConf := fastwalk.Config{Follow: false, NumWorkers: 1, Sort: fastwalk.SortLexical}
	err := fastwalk.Walk(&walkConf, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		ok, _ := doublestar.Match("*.exe", name)
		if !ok {
			return nil
		}
		for _, pattern := range uninstallerPatterns {
			if skip, _ := doublestar.Match(pattern, name); skip {
				return nil
			}
		}
		found = path
		return filepath.SkipAll
	})
	if err != nil && found == "" {
		return "", fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	if found == "" {
		return "", fmt.Errorf("no launchable executable under %s", dir)
	}
	return found, nil
}
