package internal

import (
	"errors"
	"fmt"
)

// Sentinel errors for the local half of the workflow.
var (
	ErrConfig          = errors.New("invalid configuration")
	ErrSessionNotFound = errors.New("no session found")
	ErrEmptySession    = errors.New("session contains no conversational messages")
	ErrTranscriptParse = errors.New("file is not a session transcript")
)

// ErrorKind is the stable machine-readable failure category carried in
// JSON output and diagnose reports.
type ErrorKind string

const (
	KindConfig          ErrorKind = "config"
	KindSessionNotFound ErrorKind = "session_not_found"
	KindEmptySession    ErrorKind = "empty_session"
	KindTranscriptParse ErrorKind = "transcript_parse"
	KindAPI             ErrorKind = "api"
	KindAPIConnection   ErrorKind = "api_connection"
	KindAPITimeout      ErrorKind = "api_timeout"
	KindAuth            ErrorKind = "auth"
)

// APIError is any failure of a remote call, classified by kind.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

// Hint returns a remediation suggestion for the error kind, or "".
func (e *APIError) Hint() string {
	switch e.Kind {
	case KindAPIConnection:
		return "is the Nowledge Mem server running? Check NOWLEDGE_MEM_API_URL"
	case KindAPITimeout:
		return "the server did not respond in time; raise NOWLEDGE_MEM_TIMEOUT or check server load"
	case KindAuth:
		return "check NOWLEDGE_MEM_AUTH_TOKEN"
	}
	return ""
}

// Kind classifies any error from this package into its stable category.
func Kind(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}

	switch {
	case errors.Is(err, ErrConfig):
		return KindConfig
	case errors.Is(err, ErrSessionNotFound):
		return KindSessionNotFound
	case errors.Is(err, ErrEmptySession):
		return KindEmptySession
	case errors.Is(err, ErrTranscriptParse):
		return KindTranscriptParse
	}
	return ""
}
