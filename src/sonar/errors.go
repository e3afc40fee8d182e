package sonar

import (
	"errors"
	"fmt"
)

var (
	ErrAuthFailed  = errors.New("authentication failed")
	ErrNotFound    = errors.New("resource not found")
	ErrRateLimited = errors.New("rate limited")

	// ErrFetchFailed marks a transient failure that survived the retry
	// budget. Callers may fall back to cached data.
	ErrFetchFailed = errors.New("fetch failed")
)

// UserError wraps errors with user-friendly messages for the CLI and
// dashboard surfaces.
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts API errors to user-friendly messages.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrAuthFailed) {
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that your API token is valid and has the correct permissions.\n  Set the SONARCLOUD_TOKEN environment variable.",
			Err:     err,
		}
	}

	if errors.Is(err, ErrNotFound) {
		return &UserError{
			Message: "Project or branch not found",
			Hint:    "Check the project key and branch name, and that your token can access the organization.",
			Err:     err,
		}
	}

	if errors.Is(err, ErrFetchFailed) {
		return &UserError{
			Message: "SonarCloud is not responding",
			Hint:    "The request was retried and still failed. Cached data, if any, is still available.",
			Err:     err,
		}
	}

	return err
}
