package dedup

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Executor represents the subset of pgx methods required for reference claims.
type Executor interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Repository records applied ledger reference ids so a retried mutation with the
// same reference is recognized instead of applied twice.
type Repository struct {
	executor Executor
}

func NewRepository(exec Executor) *Repository {
	return &Repository{executor: exec}
}

// WithExecutor returns a shallow copy using the provided executor (e.g., a transaction).
func (r *Repository) WithExecutor(exec Executor) *Repository {
	return &Repository{executor: exec}
}

// ClaimReference marks a reference id as applied. It returns false when the id
// was already claimed, in which case the caller must not reapply the mutation.
// Run it inside the same transaction as the mutation so the claim and the apply
// commit or roll back together.
func (r *Repository) ClaimReference(ctx context.Context, referenceID, bloodGroup, effectType string, quantity int) (bool, error) {
	tag, err := r.executor.Exec(ctx, `
		INSERT INTO ledger_references (reference_id, blood_group, effect_type, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (reference_id) DO NOTHING
	`, referenceID, bloodGroup, effectType, quantity)
	if err != nil {
		return false, fmt.Errorf("claim reference: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
