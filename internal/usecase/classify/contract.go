package classify

import "context"

// LabelProvider is the primary semantic classification call. It returns the
// raw (un-normalized) department name extracted from the text, or the
// sentinel "Unknown" when no department could be determined.
type LabelProvider interface {
	ExtractDepartment(ctx context.Context, text string) (string, error)
}
