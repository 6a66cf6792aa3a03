package db

import "github.com/oklog/ulid/v2"

// newID returns a ULID string for use as a record ID. ULIDs embed a
// millisecond timestamp and ulid.Make draws monotonic entropy, so IDs
// generated by one process sort in creation order even within the same
// millisecond. Message retrieval relies on this ordering.
func newID() string {
	return ulid.Make().String()
}
