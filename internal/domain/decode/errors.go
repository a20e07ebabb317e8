package decode

import (
	"errors"
	"fmt"

	"github.com/okian/ourabridge/internal/domain/model"
)

// ErrDecode is matched by every decoding failure.
var ErrDecode = errors.New("decode error")

// Error names the record kind and the offending field.
type Error struct {
	Kind   model.Kind
	Field  string
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode %s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("decode %s: field %s: %s", e.Kind, e.Field, e.Reason)
}

// Unwrap exposes ErrDecode to errors.Is.
func (e *Error) Unwrap() error { return ErrDecode }
