package discovery

import (
	"encoding/xml"
	"strings"
)

// bundleManifest holds the Info.plist keys discovery cares about
type bundleManifest struct {
	Identifier  string // CFBundleIdentifier
	Name        string // CFBundleName
	DisplayName string // CFBundleDisplayName
	Executable  string // CFBundleExecutable
	IconFile    string // CFBundleIconFile
}

// BestName prefers the display name over the bundle name
func (m *bundleManifest) BestName() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Name
}

// parseInfoPlist extracts string keys from an XML property list. Nested
// dicts and arrays are skipped; the manifest keys all live at root level.
func parseInfoPlist(data []byte) (*bundleManifest, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	manifest := &bundleManifest{}

	var currentKey string
	var dictDepth int

	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "dict":
				dictDepth++
				if dictDepth > 1 {
					currentKey = ""
				}
			case "key":
				if dictDepth == 1 {
					var key string
					decoder.DecodeElement(&key, &t)
					currentKey = key
				}
			case "string":
				if dictDepth == 1 && currentKey != "" {
					var val string
					decoder.DecodeElement(&val, &t)
					setManifestKey(manifest, currentKey, val)
					currentKey = ""
				}
			default:
				if dictDepth == 1 {
					currentKey = ""
				}
			}
		case xml.EndElement:
			if t.Name.Local == "dict" {
				dictDepth--
			}
		}
	}

	return manifest, nil
}

func setManifestKey(m *bundleManifest, key, val string) {
	switch key {
	case "CFBundleIdentifier":
		m.Identifier = val
	case "CFBundleName":
		m.Name = val
	case "CFBundleDisplayName":
		m.DisplayName = val
	case "CFBundleExecutable":
		m.Executable = val
	case "CFBundleIconFile":
		m.IconFile = val
	}
}
