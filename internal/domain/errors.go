package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a requested local file that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoVariable reports a dataset with none of the candidate precipitation variables.
	ErrNoVariable = errors.New("no precipitation variable")

	// ErrConfiguration reports an invalid level set, sigma or request parameter.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrEmptySelection reports a window that selected no cells in either orientation.
	ErrEmptySelection = errors.New("window selects no cells")
)

// ShapeMismatchError reports a values array that cannot be aligned with its
// coordinate vectors.
type ShapeMismatchError struct {
	ValuesShape []int
	LatLen      int
	LonLen      int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("values shape %v does not match lat=%d lon=%d", e.ValuesShape, e.LatLen, e.LonLen)
}

// UpstreamFetchError wraps a failed remote fetch. StatusCode is zero for
// transport failures and timeouts.
type UpstreamFetchError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream fetch failed: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream fetch failed: %v", e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }
