package discovery

import (
	"os"

	"github.com/gabriel-vasile/mimetype"
)

// loadIcon reads an icon resource and sniffs its content type so the
// HTTP surface can serve it with a correct header. A missing or
// unreadable icon yields an empty slice, never an error: icons are
// cosmetic.
func loadIcon(path string) ([]byte, string) {
	if path == "" {
		return nil, ""
	}
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return nil, ""
	}
	return data, mimetype.Detect(data).String()
}
