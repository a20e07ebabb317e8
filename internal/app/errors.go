package service

import "errors"

// Sentinel kinds for cycle errors.
var (
	ErrCycleBusy       = errors.New("poll cycle already running")
	ErrCycleFailed     = errors.New("poll cycle failed")
	ErrNoSnapshot      = errors.New("no snapshot published yet")
	ErrFetchIncomplete = errors.New("fetch did not complete")
)
