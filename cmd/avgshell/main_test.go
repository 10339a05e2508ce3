package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/specialistvlad/avgboot/internal/cli"
	"github.com/specialistvlad/avgboot/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestRun_BootsHeadless(t *testing.T) {
	// Arrange
	fx := testutil.NewFixture(t)
	out := &testutil.SafeBuffer{}

	// Act
	err := run(context.Background(), out, []string{fx.Dir, "--headless", "--exit-after-boot"})

	// Assert
	require.NoError(t, err, out.String())
	require.Contains(t, out.String(), "Bootstrap finished")
}

func TestRun_BootstrapFailure(t *testing.T) {
	fx := testutil.NewFixture(t)
	fx.Remove("env.avd")
	out := &testutil.SafeBuffer{}

	err := run(context.Background(), out, []string{fx.Dir, "--headless", "--exit-after-boot"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "bootstrap failed")
	require.Contains(t, err.Error(), "EnvironmentReadError")
}

func TestRun_FailedBootKeepsServingDiagnostics(t *testing.T) {
	// Arrange
	fx := testutil.NewFixture(t)
	fx.Remove("env.avd")
	port := freePort(t)
	out := &testutil.SafeBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, out, []string{fx.Dir, "--headless", "--healthcheck-port", strconv.Itoa(port)})
	}()

	// Act
	url := fmt.Sprintf("http://127.0.0.1:%d/diagnostic", port)
	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		body = string(data)
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond, "the diagnostic view must be served after the failure")

	// Assert
	assert.Contains(t, body, "EnvironmentReadError")
	select {
	case err := <-done:
		t.Fatalf("run returned before being interrupted: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "EnvironmentReadError")
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after the context was canceled")
	}
}

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// Arrange
	fx := testutil.NewFixture(t)
	fx.Write("shell.hcl", `preload "first_frame" {`)
	out := &bytes.Buffer{}

	// Act
	runErr := run(context.Background(), out, []string{fx.Dir, "--headless"})

	// Assert
	require.Error(t, runErr)
	require.Contains(t, runErr.Error(), "application startup panicked")
	require.Contains(t, runErr.Error(), "failed to parse")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-h"})

	require.NoError(t, err)
	require.Contains(t, out.String(), "Usage:")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err)
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
}
