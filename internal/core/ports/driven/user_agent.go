package driven

import "context"

// UserAgent displays the authorization page to the user (system browser, terminal prompt)
type UserAgent interface {
	Open(ctx context.Context, url string) error
}
