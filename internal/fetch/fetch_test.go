package fetch_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/italolelis/era5_downloader/internal/archive"
	"github.com/italolelis/era5_downloader/internal/credentials"
	"github.com/italolelis/era5_downloader/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRetriever struct {
	calls int
	fn    func(call int, t archive.Target, w io.Writer) error
}

func (s *stubRetriever) Retrieve(_ context.Context, _ credentials.Credentials, t archive.Target, w io.Writer) error {
	s.calls++

	return s.fn(s.calls, t, w)
}

type stubCreds struct {
	creds credentials.Credentials
	err   error
}

func (s stubCreds) Resolve() (credentials.Credentials, error) {
	return s.creds, s.err
}

var okCreds = stubCreds{creds: credentials.Credentials{Identity: "u", Secret: "p"}}

// bigPayload is comfortably above the error-page sniff threshold.
func bigPayload() []byte {
	b := make([]byte, 4096)
	for i := range b {
		b[i] = byte(i % 251)
	}

	return b
}

func target() archive.Target {
	return archive.Target{URL: "https://example.org/file.nc", Filename: "file.nc"}
}

func TestFetch_Downloaded(t *testing.T) {
	destDir := t.TempDir()
	payload := bigPayload()

	retriever := &stubRetriever{fn: func(_ int, _ archive.Target, w io.Writer) error {
		_, err := w.Write(payload)

		return err
	}}

	exec := fetch.NewExecutor("test", retriever, okCreds, time.Minute, 3)

	outcome := exec.Fetch(context.Background(), target(), destDir)
	assert.Equal(t, fetch.StatusDownloaded, outcome.Status)
	assert.NoError(t, outcome.Err)
	assert.Equal(t, 1, retriever.calls)

	got, err := os.ReadFile(filepath.Join(destDir, "file.nc"))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFetch_SkipsExistingFileWithoutNetwork(t *testing.T) {
	destDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(destDir, "file.nc"), []byte("already here"), 0644))

	retriever := &stubRetriever{fn: func(_ int, _ archive.Target, _ io.Writer) error {
		t.Fatal("retriever must not be called for an existing file")

		return nil
	}}

	exec := fetch.NewExecutor("test", retriever, okCreds, time.Minute, 3)

	outcome := exec.Fetch(context.Background(), target(), destDir)
	assert.Equal(t, fetch.StatusSkipped, outcome.Status)
	assert.Equal(t, 0, retriever.calls)

	// The existing file is left untouched.
	got, err := os.ReadFile(filepath.Join(destDir, "file.nc"))
	require.NoError(t, err)
	assert.Equal(t, []byte("already here"), got)
}

func TestFetch_AuthMissing(t *testing.T) {
	retriever := &stubRetriever{fn: func(_ int, _ archive.Target, _ io.Writer) error {
		t.Fatal("retriever must not be called without credentials")

		return nil
	}}

	exec := fetch.NewExecutor("test", retriever, stubCreds{err: credentials.ErrNotFound}, time.Minute, 3)

	outcome := exec.Fetch(context.Background(), target(), t.TempDir())
	require.Equal(t, fetch.StatusFailed, outcome.Status)

	var authErr *fetch.AuthError
	assert.True(t, errors.As(outcome.Err, &authErr))
	assert.Equal(t, 0, retriever.calls)
}

func TestFetch_ErrorPagePayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"html page", "<HTML><body>Not what you wanted</body></html>"},
		{"error token", "Internal ERROR: request rejected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			destDir := t.TempDir()

			retriever := &stubRetriever{fn: func(_ int, _ archive.Target, w io.Writer) error {
				_, err := io.WriteString(w, tt.body)

				return err
			}}

			exec := fetch.NewExecutor("test", retriever, okCreds, time.Minute, 3)

			outcome := exec.Fetch(context.Background(), target(), destDir)
			require.Equal(t, fetch.StatusFailed, outcome.Status)

			var payloadErr *fetch.PayloadError
			require.True(t, errors.As(outcome.Err, &payloadErr))

			assert.NoFileExists(t, filepath.Join(destDir, "file.nc"), "rejected payload must be deleted")
		})
	}
}

func TestFetch_SmallButCleanPayloadIsKept(t *testing.T) {
	destDir := t.TempDir()

	retriever := &stubRetriever{fn: func(_ int, _ archive.Target, w io.Writer) error {
		_, err := w.Write([]byte("tiny but legitimate binary data"))

		return err
	}}

	exec := fetch.NewExecutor("test", retriever, okCreds, time.Minute, 3)

	outcome := exec.Fetch(context.Background(), target(), destDir)
	assert.Equal(t, fetch.StatusDownloaded, outcome.Status)
	assert.FileExists(t, filepath.Join(destDir, "file.nc"))
}

func TestFetch_RetriesTransientFailures(t *testing.T) {
	destDir := t.TempDir()
	payload := bigPayload()

	retriever := &stubRetriever{fn: func(call int, _ archive.Target, w io.Writer) error {
		if call < 3 {
			return errors.New("connection reset")
		}

		_, err := w.Write(payload)

		return err
	}}

	exec := fetch.NewExecutor("test", retriever, okCreds, time.Minute, 3)

	outcome := exec.Fetch(context.Background(), target(), destDir)
	assert.Equal(t, fetch.StatusDownloaded, outcome.Status)
	assert.Equal(t, 3, retriever.calls)
}

func TestFetch_NetworkFailureCleansUp(t *testing.T) {
	destDir := t.TempDir()

	retriever := &stubRetriever{fn: func(_ int, _ archive.Target, w io.Writer) error {
		io.WriteString(w, "partial bytes")

		return errors.New("connection reset")
	}}

	exec := fetch.NewExecutor("test", retriever, okCreds, time.Minute, 3)

	outcome := exec.Fetch(context.Background(), target(), destDir)
	require.Equal(t, fetch.StatusFailed, outcome.Status)
	assert.Equal(t, 3, retriever.calls, "transient failures use the whole retry budget")

	var netErr *fetch.NetworkError
	assert.True(t, errors.As(outcome.Err, &netErr))

	assert.NoFileExists(t, filepath.Join(destDir, "file.nc"), "partial file must be deleted")
}

func TestFetch_ClientErrorIsNotRetried(t *testing.T) {
	destDir := t.TempDir()

	retriever := &stubRetriever{fn: func(_ int, tg archive.Target, _ io.Writer) error {
		return &fetch.ServerError{URL: tg.URL, StatusCode: http.StatusNotFound, Message: "no such file"}
	}}

	exec := fetch.NewExecutor("test", retriever, okCreds, time.Minute, 3)

	outcome := exec.Fetch(context.Background(), target(), destDir)
	require.Equal(t, fetch.StatusFailed, outcome.Status)
	assert.Equal(t, 1, retriever.calls, "a 4xx verdict is permanent")

	var srvErr *fetch.ServerError
	require.True(t, errors.As(outcome.Err, &srvErr))
	assert.Equal(t, http.StatusNotFound, srvErr.StatusCode)

	assert.NoFileExists(t, filepath.Join(destDir, "file.nc"))
}
