package mailbox

import "context"

// Mailbox is a paginated read-only view of a user's messages, newest
// first. Listing returns message IDs plus an opaque cursor for the next
// page; an empty cursor starts from the head of the inbox, and an empty
// returned cursor means there are no further pages. Fetching a page
// deeper than the first requires walking the cursor chain from the start.
type Mailbox interface {
	List(ctx context.Context, max int64, cursor string) (ids []string, next string, err error)
	Get(ctx context.Context, id string) (*Message, error)
}
