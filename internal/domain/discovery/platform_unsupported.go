//go:build !darwin && !windows

package discovery

// newPlatform has no scanner for this GOOS. Callers surface the error
// at startup; discovery never degrades silently.
func newPlatform() (Platform, error) {
	return nil, ErrUnsupportedPlatform
}
