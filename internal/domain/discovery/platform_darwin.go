//go:build darwin

package discovery

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/nwlens/nwlens/internal/shared/types"
)

// frameworkDir marks a bundle as built on the NW.js runtime
const frameworkDir = "Contents/Frameworks/nwjs Framework.framework"

type darwinPlatform struct{}

func newPlatform() (Platform, error) {
	return &darwinPlatform{}, nil
}

func (p *darwinPlatform) Roots() []string {
	return []string{"/Applications"}
}

func (p *darwinPlatform) IsRuntimeApp(path string) bool {
	if !strings.HasSuffix(path, ".app") {
		return false
	}
	info, err := os.Stat(filepath.Join(path, frameworkDir))
	return err == nil && info.IsDir()
}

func (p *darwinPlatform) Extract(path string) (types.ApplicationInfo, error) {
	manifest, err := readManifest(filepath.Join(path, "Contents", "Info.plist"))
	if err != nil {
		return types.ApplicationInfo{}, fmt.Errorf("failed to read bundle manifest: %w", err)
	}
	if manifest.Identifier == "" || manifest.Executable == "" {
		return types.ApplicationInfo{}, fmt.Errorf("incomplete bundle manifest at %s", path)
	}

	name := manifest.BestName()
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ".app")
	}

	iconPath := ""
	if manifest.IconFile != "" {
		iconFile := manifest.IconFile
		if filepath.Ext(iconFile) == "" {
			iconFile += ".icns"
		}
		iconPath = filepath.Join(path, "Contents", "Resources", iconFile)
	}
	icon, iconMIME := loadIcon(iconPath)

	return types.ApplicationInfo{
		ID:           manifest.Identifier,
		Name:         name,
		Icon:         icon,
		IconMIME:     iconMIME,
		AppPath:      path,
		ExePath:      filepath.Join(path, "Contents", "MacOS", manifest.Executable),
		DiscoveredAt: time.Now(),
	}, nil
}

// readManifest converts the plist to XML first; bundle manifests are
// frequently stored in the binary format.
func readManifest(path string) (*bundleManifest, error) {
	out, err := exec.Command("plutil", "-convert", "xml1", "-o", "-", path).Output()
	if err != nil {
		// Fall back to reading directly; the plist may already be XML.
		out, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	return parseInfoPlist(out)
}
