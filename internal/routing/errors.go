package routing

import "errors"

var (
	// ErrNotFound means the referenced work item, order or site does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoCandidates means no site holds the requested equipment type in
	// quantity > 0, so there is nothing to score.
	ErrNoCandidates = errors.New("no candidate sites")

	// ErrInvalidCombination means a combine call was made with an empty id
	// list or an order that has no site.
	ErrInvalidCombination = errors.New("invalid combination")
)
