package rda

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/italolelis/era5_downloader/internal/archive"
	"github.com/italolelis/era5_downloader/internal/credentials"
	"github.com/italolelis/era5_downloader/internal/fetch"
	"github.com/italolelis/era5_downloader/internal/logctx"
)

// Client performs one authenticated GET per retrieval attempt. Timeouts and
// retries are the caller's concern; the request lives and dies with ctx.
type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{httpClient: &http.Client{}}
}

// Ensure Client implements archive.Retriever.
var _ archive.Retriever = (*Client)(nil)

func (c *Client) Retrieve(ctx context.Context, creds credentials.Credentials, t archive.Target, w io.Writer) error {
	logger := logctx.LoggerFromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(creds.Identity, creds.Secret)

	logger.Debug("fetching", "url", t.URL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", t.URL, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return &fetch.ServerError{
			URL:        t.URL,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to write response body: %w", err)
	}

	return nil
}
