package videodb

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrInvalidSource is wrapped by every validation failure.
var ErrInvalidSource = errors.New("invalid video source")

// knownHosts are video platforms accepted without a file extension.
var knownHosts = []string{"youtube.com", "youtu.be", "vimeo.com", "dailymotion.com"}

// ValidateVideoURL accepts http(s) URLs on a known video platform or pointing
// directly at a file with a video extension.
func ValidateVideoURL(raw string, extensions []string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: %q is not a URL", ErrInvalidSource, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidSource, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	for _, known := range knownHosts {
		if host == known || strings.HasSuffix(host, "."+known) {
			return nil
		}
	}
	if hasExtension(u.Path, extensions) {
		return nil
	}
	return fmt.Errorf("%w: %s is neither a supported platform nor a direct video link", ErrInvalidSource, host)
}

// ValidateVideoFile checks that path is a regular file with an allowed
// extension and at most maxBytes long. maxBytes <= 0 disables the size check.
func ValidateVideoFile(path string, extensions []string, maxBytes int64) error {
	if !hasExtension(path, extensions) {
		return fmt.Errorf("%w: unsupported extension %q (allowed: %s)", ErrInvalidSource, filepath.Ext(path), strings.Join(extensions, ", "))
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrInvalidSource, path)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return fmt.Errorf("%w: %s is %d MB, limit is %d MB", ErrInvalidSource, filepath.Base(path), info.Size()>>20, maxBytes>>20)
	}
	return nil
}

func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	return slices.ContainsFunc(extensions, func(e string) bool {
		return strings.EqualFold(e, ext) || strings.EqualFold("."+strings.TrimPrefix(e, "."), ext)
	})
}
