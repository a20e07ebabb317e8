package oura

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidResponse means the body did not have the expected envelope.
	ErrInvalidResponse = errors.New("invalid oura api response")
	// ErrUnauthorized is an invalid response caused by a 401 or 403.
	ErrUnauthorized = fmt.Errorf("%w: unauthorized", ErrInvalidResponse)
	// ErrTransport wraps network and timeout failures.
	ErrTransport = errors.New("oura api transport error")
	// ErrEmptyResource labels a resource that returned no items. It is
	// never returned by Fetch.
	ErrEmptyResource = errors.New("oura resource returned no items")
)
