package fsys

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/specialistvlad/avgboot/internal/ctxlog"
)

// maxRemoteSize bounds a single remote read.
const maxRemoteSize = 512 << 20

// StatusError is returned when a remote read answers with a non-200 status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %s", e.URL, e.Status)
}

// Native reads local files from disk and remote files over HTTP.
type Native struct {
	baseDir    string
	httpClient *http.Client
	userAgent  string
}

// Option configures a Native filesystem.
type Option func(*Native)

// WithHTTPClient replaces the HTTP client used for remote reads.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Native) { n.httpClient = c }
}

// NewNative creates the native filesystem rooted at baseDir.
func NewNative(baseDir string, opts ...Option) *Native {
	n := &Native{
		baseDir: baseDir,
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 15 * time.Second}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   16,
			},
		},
		userAgent: "avgboot/1.0",
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Native) BaseDir() string { return n.baseDir }

func (n *Native) IsRemote(name string) bool { return IsHTTPURL(name) }

func (n *Native) Join(elem ...string) string { return Join(elem...) }

// ReadFile reads name from disk or over HTTP depending on its form.
func (n *Native) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if !IsHTTPURL(name) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.ReadFile(name)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Fetching remote file.", "url", name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: name, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(data) > maxRemoteSize {
		return nil, fmt.Errorf("GET %s: body exceeds %d bytes", name, maxRemoteSize)
	}
	return data, nil
}

// CloseIdleConnections releases pooled connections once the bootstrap no
// longer needs remote reads.
func (n *Native) CloseIdleConnections() {
	n.httpClient.CloseIdleConnections()
}
