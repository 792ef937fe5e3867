package fetch

import "fmt"

// AuthError reports that no complete identity/secret pair could be resolved
// for the archive, so the transfer was never attempted.
type AuthError struct {
	Archive string // Archive the credentials were resolved for
	Err     error  // Underlying error, if any
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("missing credentials for %s archive", e.Archive)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NetworkError represents a client-side transport failure: connection
// errors, timeouts, or an exhausted retry budget with no server verdict.
type NetworkError struct {
	URL string // The resource being fetched
	Err error  // Underlying error, if any
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError represents a failure the server itself returned, such as a
// non-2xx HTTP status or a failed retrieval task.
type ServerError struct {
	URL        string // The resource being fetched
	StatusCode int    // HTTP status code, if applicable (0 for non-HTTP failures)
	Message    string // Error message from the archive
}

func (e *ServerError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("server error fetching %s (HTTP %d): %s", e.URL, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("server error fetching %s: %s", e.URL, e.Message)
}

// PayloadError reports a transfer that completed at the HTTP level but
// produced something that is not a data file, typically an HTML error page
// served with a 200 status.
type PayloadError struct {
	Filename string // Local name of the rejected payload
	Size     int64  // Size of the rejected payload in bytes
	Reason   string // Human-readable explanation of the rejection
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("corrupt payload %s (%d bytes): %s", e.Filename, e.Size, e.Reason)
}
