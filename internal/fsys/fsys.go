// Package fsys is the filesystem abstraction every bootstrap stage reads
// through. A single concrete implementation is selected at startup and
// injected; nothing patches it afterwards.
package fsys

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileSystem is the narrow contract the bootstrap depends on.
type FileSystem interface {
	// ReadFile returns the content of a local path or an HTTP(S) URL.
	ReadFile(ctx context.Context, name string) ([]byte, error)
	// Join joins path elements, keeping URL roots intact.
	Join(elem ...string) string
	// IsRemote reports whether name is an HTTP(S) URL.
	IsRemote(name string) bool
	// BaseDir is the well-known directory the shell was started from.
	BaseDir() string
}

// IsHTTPURL reports whether s is an absolute http or https URL with a host.
func IsHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// Join joins elem the way the engine expects: URL roots are extended with
// slash-separated segments, local roots with the OS separator. A trailing
// separator on the last element is preserved, so "assets/" joined onto
// "/app" yields "/app/assets/".
func Join(elem ...string) string {
	if len(elem) == 0 {
		return ""
	}
	trailing := hasTrailingSlash(elem[len(elem)-1])

	if IsHTTPURL(elem[0]) {
		u, _ := url.Parse(elem[0])
		parts := append([]string{"/", u.Path}, elem[1:]...)
		u.Path = path.Join(parts...)
		if trailing && !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		u.RawPath = ""
		return u.String()
	}

	joined := filepath.Join(elem...)
	if trailing && joined != "" && !strings.HasSuffix(joined, string(filepath.Separator)) {
		joined += string(filepath.Separator)
	}
	return joined
}

func hasTrailingSlash(s string) bool {
	return strings.HasSuffix(s, "/") || strings.HasSuffix(s, string(filepath.Separator))
}

// ExecutableDir returns the directory of the running executable with
// symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}
