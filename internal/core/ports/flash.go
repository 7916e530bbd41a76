package ports

import "context"

// Flash is a transient banner shown on the next dashboard view.
type Flash struct {
	Kind string `json:"kind"` // success | error
	Text string `json:"text"`
}

// FlashStore keeps one banner per session until its TTL lapses.
type FlashStore interface {
	Set(ctx context.Context, key string, f Flash) error
	Get(ctx context.Context, key string) (*Flash, error)
}

// SubmissionGuard rejects a second identical submission inside a short window.
// Acquire reports true for the first caller of a key. Release frees a key
// whose submission failed so it can be retried at once.
type SubmissionGuard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}
