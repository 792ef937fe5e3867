package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dustin/go-humanize"
	"github.com/italolelis/era5_downloader/internal/archive"
	"github.com/italolelis/era5_downloader/internal/credentials"
	"github.com/italolelis/era5_downloader/internal/fetch/progress"
	"github.com/italolelis/era5_downloader/internal/logctx"
)

const (
	dirPerm  = 0755
	filePerm = 0644

	// Payloads below this size are inspected for disguised error pages.
	minPayloadSize = 1000
	// How much of a suspect payload is sniffed for error markers.
	sniffLen = 100

	progressInterval = 100 * 1024 * 1024 // 100MB
)

// Status classifies the result of a single fetch.
type Status int

const (
	StatusDownloaded Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDownloaded:
		return "downloaded"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of fetching one target. Err is nil unless
// Status is StatusFailed.
type Outcome struct {
	Status Status
	Err    error
}

// Executor fetches one target at a time: it skips work already on disk,
// resolves credentials, runs the transfer under a bounded retry budget and
// total deadline, and rejects payloads that are error pages in disguise.
// A failed fetch never leaves a partial file behind.
type Executor struct {
	archiveName string
	retriever   archive.Retriever
	creds       credentials.Source
	timeout     time.Duration
	maxAttempts uint
}

func NewExecutor(archiveName string, retriever archive.Retriever, creds credentials.Source, timeout time.Duration, maxAttempts uint) *Executor {
	return &Executor{
		archiveName: archiveName,
		retriever:   retriever,
		creds:       creds,
		timeout:     timeout,
		maxAttempts: maxAttempts,
	}
}

// Fetch downloads the target into destDir and classifies the result.
func (e *Executor) Fetch(ctx context.Context, t archive.Target, destDir string) Outcome {
	logger := logctx.LoggerFromContext(ctx).With("file", t.Filename)

	destPath := filepath.Join(destDir, t.Filename)

	if _, err := os.Stat(destPath); err == nil {
		logger.Info("already exists, skipping")

		return Outcome{Status: StatusSkipped}
	}

	creds, err := e.creds.Resolve()
	if err != nil {
		return Outcome{Status: StatusFailed, Err: &AuthError{Archive: e.archiveName, Err: err}}
	}

	if err := os.MkdirAll(destDir, dirPerm); err != nil {
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("failed to create target directory: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	attempt := func() (struct{}, error) {
		if err := e.transfer(ctx, creds, t, destPath); err != nil {
			// A server verdict on the request itself will not change on
			// retry; transport failures and 5xx might.
			var srvErr *ServerError
			if errors.As(err, &srvErr) && srvErr.StatusCode >= 400 && srvErr.StatusCode < 500 {
				return struct{}{}, backoff.Permanent(err)
			}

			return struct{}{}, err
		}

		return struct{}{}, nil
	}

	if _, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(e.maxAttempts),
	); err != nil {
		return Outcome{Status: StatusFailed, Err: e.classify(t, err)}
	}

	if err := e.sniff(destPath, t.Filename); err != nil {
		logger.Error("payload rejected", "err", err)
		os.Remove(destPath)

		return Outcome{Status: StatusFailed, Err: err}
	}

	if info, err := os.Stat(destPath); err == nil {
		logger.Info("downloaded and saved file", "target", destPath, "file_size", humanize.Bytes(uint64(info.Size())))
	}

	return Outcome{Status: StatusDownloaded}
}

// transfer runs one retrieval attempt, removing the partial file on failure.
func (e *Executor) transfer(ctx context.Context, creds credentials.Credentials, t archive.Target, destPath string) error {
	logger := logctx.LoggerFromContext(ctx)

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create target file: %w", err))
	}

	pw := progress.NewWriter(out, progressInterval, func(written int64) {
		logger.Debug("download progress", "url", t.URL, "downloaded", humanize.Bytes(uint64(written)))
	})

	if err := e.retriever.Retrieve(ctx, creds, t, pw); err != nil {
		out.Close()
		os.Remove(destPath)

		return err
	}

	return out.Close()
}

// sniff rejects suspiciously small payloads whose head contains markup or an
// error token; the archives serve such pages with a 200 status.
func (e *Executor) sniff(destPath, filename string) error {
	info, err := os.Stat(destPath)
	if err != nil {
		return fmt.Errorf("failed to stat downloaded file: %w", err)
	}

	if info.Size() >= minPayloadSize {
		return nil
	}

	head := make([]byte, sniffLen)

	f, err := os.Open(destPath)
	if err != nil {
		return fmt.Errorf("failed to open downloaded file: %w", err)
	}

	n, _ := f.Read(head)
	f.Close()

	lowered := bytes.ToLower(head[:n])
	if bytes.Contains(lowered, []byte("<html")) || bytes.Contains(lowered, []byte("error")) {
		return &PayloadError{
			Filename: filename,
			Size:     info.Size(),
			Reason:   "response looks like an error page",
		}
	}

	return nil
}

// classify maps a terminal transfer error onto the failure taxonomy: server
// verdicts stay ServerError, everything else is a transport-side failure.
func (e *Executor) classify(t archive.Target, err error) error {
	var srvErr *ServerError
	if errors.As(err, &srvErr) {
		return err
	}

	return &NetworkError{URL: t.URL, Err: err}
}
