package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInfoPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleIdentifier</key>
	<string>io.nwjs.sample</string>
	<key>CFBundleName</key>
	<string>Sample</string>
	<key>CFBundleDisplayName</key>
	<string>Sample App</string>
	<key>CFBundleExecutable</key>
	<string>sample</string>
	<key>CFBundleIconFile</key>
	<string>app.icns</string>
	<key>CFBundleVersion</key>
	<string>1.2.3</string>
	<key>LSMinimumSystemVersion</key>
	<string>10.13.0</string>
	<key>NSHighResolutionCapable</key>
	<true/>
	<key>CFBundleDocumentTypes</key>
	<array>
		<dict>
			<key>CFBundleTypeName</key>
			<string>Nested should be ignored</string>
		</dict>
	</array>
</dict>
</plist>`

func TestParseInfoPlist(t *testing.T) {
	manifest, err := parseInfoPlist([]byte(sampleInfoPlist))
	require.NoError(t, err)

	assert.Equal(t, "io.nwjs.sample", manifest.Identifier)
	assert.Equal(t, "Sample", manifest.Name)
	assert.Equal(t, "Sample App", manifest.DisplayName)
	assert.Equal(t, "sample", manifest.Executable)
	assert.Equal(t, "app.icns", manifest.IconFile)
	assert.Equal(t, "Sample App", manifest.BestName())
}

func TestParseInfoPlistNestedDictIgnored(t *testing.T) {
	manifest, err := parseInfoPlist([]byte(sampleInfoPlist))
	require.NoError(t, err)

	// CFBundleTypeName lives in a nested dict and must not leak into
	// root-level keys.
	assert.NotEqual(t, "Nested should be ignored", manifest.Name)
}

func TestBestNameFallsBackToBundleName(t *testing.T) {
	m := &bundleManifest{Name: "Plain"}
	assert.Equal(t, "Plain", m.BestName())
}

func TestParseInfoPlistEmpty(t *testing.T) {
	manifest, err := parseInfoPlist([]byte("<plist><dict></dict></plist>"))
	require.NoError(t, err)
	assert.Empty(t, manifest.Identifier)
}
