package domain

import "errors"

var (
	// ErrEmptyTitle is returned when an item has no usable title to search with
	ErrEmptyTitle = errors.New("item title is empty")

	// ErrNoCandidates is returned when no candidate survives evaluation
	ErrNoCandidates = errors.New("no usable image candidate")

	// ErrSearchFailure is returned when the external search call fails
	ErrSearchFailure = errors.New("image search request failed")

	// ErrAccessDenied is returned when a source server blocks the download
	ErrAccessDenied = errors.New("source denied image download")

	// ErrModelUnavailable is returned when the inference service cannot serve
	ErrModelUnavailable = errors.New("inference model unavailable")

	// ErrItemNotFound is returned when an item id does not exist in storage
	ErrItemNotFound = errors.New("item not found")

	// ErrBatchRunning is returned when a batch is started while one is active
	ErrBatchRunning = errors.New("a batch run is already in progress")

	// ErrNotEligible is returned when a disposition action does not apply
	// to the item's current status
	ErrNotEligible = errors.New("item status not eligible for this action")
)
