package sheets

import "context"

// Publisher writes a full table to a named sheet, replacing what was there.
type Publisher interface {
	// Publish returns a reference to the written range.
	Publish(ctx context.Context, sheet string, rows [][]string) (rangeRef string, err error)
}
