package cds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/italolelis/era5_downloader/internal/archive"
	"github.com/italolelis/era5_downloader/internal/credentials"
	"github.com/italolelis/era5_downloader/internal/fetch"
	"github.com/italolelis/era5_downloader/internal/logctx"
)

const defaultPollInterval = 2 * time.Second

// Client drives the CDS retrieval protocol: submit the request descriptor,
// poll the resulting task until the server has assembled the product, then
// stream the finished file. The whole exchange is one long synchronous
// retrieval from the caller's point of view.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
}

func NewClient(baseURL string, pollInterval time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	return &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{},
		pollInterval: pollInterval,
	}
}

// Ensure Client implements archive.Retriever.
var _ archive.Retriever = (*Client)(nil)

// taskState is the JSON body the CDS API returns for both the submit call
// and the task poll.
type taskState struct {
	State     string `json:"state"`
	RequestID string `json:"request_id"`
	Location  string `json:"location"`
	Error     struct {
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

func (c *Client) Retrieve(ctx context.Context, creds credentials.Credentials, t archive.Target, w io.Writer) error {
	logger := logctx.LoggerFromContext(ctx)

	task, err := c.submit(ctx, creds, t)
	if err != nil {
		return err
	}

	for !isTerminal(task.State) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}

		logger.Debug("polling retrieval task", "request_id", task.RequestID, "state", task.State)

		task, err = c.poll(ctx, creds, task.RequestID)
		if err != nil {
			return err
		}
	}

	if task.State != "completed" {
		msg := task.Error.Message
		if task.Error.Reason != "" {
			msg = fmt.Sprintf("%s: %s", msg, task.Error.Reason)
		}

		return &fetch.ServerError{URL: t.URL, Message: fmt.Sprintf("retrieval task %s: %s", task.State, msg)}
	}

	return c.download(ctx, creds, t, task.Location, w)
}

func (c *Client) submit(ctx context.Context, creds credentials.Credentials, t archive.Target) (*taskState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(t.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(creds.Identity, creds.Secret)

	return c.doTask(req, t.URL)
}

func (c *Client) poll(ctx context.Context, creds credentials.Credentials, requestID string) (*taskState, error) {
	url := fmt.Sprintf("%s/tasks/%s", c.baseURL, requestID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(creds.Identity, creds.Secret)

	return c.doTask(req, url)
}

func (c *Client) doTask(req *http.Request, url string) (*taskState, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", url, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, &fetch.ServerError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var task taskState
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, fmt.Errorf("failed to decode task state: %w", err)
	}

	return &task, nil
}

// download streams the assembled product. The location the API hands back
// may be absolute or relative to the API root.
func (c *Client) download(ctx context.Context, creds credentials.Credentials, t archive.Target, location string, w io.Writer) error {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		location = c.baseURL + "/" + strings.TrimPrefix(location, "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(creds.Identity, creds.Secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", location, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return &fetch.ServerError{
			URL:        location,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to write response body: %w", err)
	}

	return nil
}

func isTerminal(state string) bool {
	return state == "completed" || state == "failed" || state == "denied"
}
