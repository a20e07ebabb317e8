// Package repository keeps the most recently published snapshot.
package repository

import (
	"context"

	"github.com/okian/ourabridge/internal/domain/model"
)

// Store holds the latest snapshot. Save replaces it wholesale.
type Store interface {
	Save(ctx context.Context, snap model.Snapshot) error
	// Latest returns ErrNotFound until the first Save.
	Latest(ctx context.Context) (model.Snapshot, error)
}
