package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type Store interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository hands out monotonically increasing sequence numbers for outbound
// alert events, one stream per blood group. Consumers use the sequence to
// order alerts and drop stale duplicates.
type Repository struct {
	store Store
}

func NewRepository(store Store) *Repository {
	return &Repository{store: store}
}

// NextSequence atomically increments and returns the next number in the blood
// group's alert stream. The upsert makes first use of a group implicit.
func (r *Repository) NextSequence(ctx context.Context, bloodGroup string) (int64, error) {
	var seq int64
	err := r.store.QueryRow(ctx, `
		INSERT INTO alert_sequence (blood_group, last_sequence)
		VALUES ($1, 1)
		ON CONFLICT (blood_group)
		DO UPDATE SET last_sequence = alert_sequence.last_sequence + 1, updated_at = now()
		RETURNING last_sequence
	`, bloodGroup).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next alert sequence for %s: %w", bloodGroup, err)
	}
	return seq, nil
}
