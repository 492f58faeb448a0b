package everhour

import "fmt"

// FailKind classifies a failed upstream call so callers can distinguish
// transient transport problems from auth or addressing mistakes.
type FailKind string

const (
	FailNetwork     FailKind = "network"
	FailAuth        FailKind = "auth"
	FailNotFound    FailKind = "not-found"
	FailRateLimited FailKind = "rate-limited"
	FailUpstream    FailKind = "upstream"
)

// APIError is returned for any call that reached the upstream but did not
// succeed, or that failed at the transport level (Kind = FailNetwork).
type APIError struct {
	Kind   FailKind
	Status int
	URL    string
	Err    error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("everhour: %s %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("everhour: %s %s: HTTP %d", e.Kind, e.URL, e.Status)
}

func (e *APIError) Unwrap() error { return e.Err }

func classifyStatus(status int) FailKind {
	switch {
	case status == 401 || status == 403:
		return FailAuth
	case status == 404:
		return FailNotFound
	case status == 429:
		return FailRateLimited
	default:
		return FailUpstream
	}
}
