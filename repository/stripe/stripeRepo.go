package striperepo

import "context"

type LineItem struct {
	Label       string
	AmountCents int64
}

type Session struct {
	SessionID  string
	SessionURL string
}

type SessionStatus struct {
	Paid     bool
	Metadata map[string]string
}

// Repo is the narrow contract against the external payment processor:
// open one checkout session covering a set of line items, and read a
// session's settlement status back.
type Repo interface {
	CreateCheckoutSession(ctx context.Context, items []LineItem, successURL, cancelURL string, metadata map[string]string) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*SessionStatus, error)
}
