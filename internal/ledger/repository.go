package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bloodbank/bloodbank/internal/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/dedup"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Repository interface {
	GetCounter(ctx context.Context, group bloodgroup.Group) (Counter, error)
	CreateCounter(ctx context.Context, c Counter) error
	ListCounters(ctx context.Context) ([]Counter, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
	Apply(ctx context.Context, in ApplyInput) (Counter, error)
}

// ApplyInput describes one signed mutation of a counter.
// ReferenceID, when set, makes the apply idempotent: a second apply carrying the
// same reference returns the current counter without mutating anything.
type ApplyInput struct {
	BloodGroup  bloodgroup.Group
	Quantity    int
	EffectType  EffectType
	Remarks     string
	ReferenceID string
}

type PostgresRepository struct {
	pool  DBPool
	dedup *dedup.Repository
}

func NewPostgresRepository(pool DBPool, dedupRepo *dedup.Repository) *PostgresRepository {
	return &PostgresRepository{pool: pool, dedup: dedupRepo}
}

func (r *PostgresRepository) GetCounter(ctx context.Context, group bloodgroup.Group) (Counter, error) {
	var c Counter
	row := r.pool.QueryRow(ctx, `
		SELECT blood_group, quantity, min_threshold, last_updated
		FROM blood_inventory WHERE blood_group=$1
	`, string(group))
	if err := row.Scan(&c.BloodGroup, &c.Quantity, &c.MinThreshold, &c.LastUpdated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Counter{}, ErrNotFound
		}
		return Counter{}, fmt.Errorf("select counter: %w", err)
	}
	return c, nil
}

// CreateCounter registers a new counter. The unique primary key on blood_group
// enforces the one-counter-per-group invariant.
func (r *PostgresRepository) CreateCounter(ctx context.Context, c Counter) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO blood_inventory (blood_group, quantity, min_threshold, last_updated)
		VALUES ($1, $2, $3, now())
	`, string(c.BloodGroup), c.Quantity, c.MinThreshold)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert counter: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListCounters(ctx context.Context) ([]Counter, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT blood_group, quantity, min_threshold, last_updated
		FROM blood_inventory ORDER BY blood_group
	`)
	if err != nil {
		return nil, fmt.Errorf("select counters: %w", err)
	}
	defer rows.Close()

	var counters []Counter
	for rows.Next() {
		var c Counter
		if err := rows.Scan(&c.BloodGroup, &c.Quantity, &c.MinThreshold, &c.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan counter: %w", err)
		}
		counters = append(counters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return counters, nil
}

func (r *PostgresRepository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	query := strings.Builder{}
	query.WriteString(`
		SELECT id, blood_group, quantity, effect_type, occurred_at, COALESCE(remarks, '')
		FROM blood_transactions
	`)

	var conds []string
	var args []any
	if filter.EffectType != "" {
		args = append(args, string(filter.EffectType))
		conds = append(conds, fmt.Sprintf("effect_type=$%d", len(args)))
	}
	if !filter.Start.IsZero() {
		args = append(args, filter.Start)
		conds = append(conds, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if !filter.End.IsZero() {
		args = append(args, filter.End)
		conds = append(conds, fmt.Sprintf("occurred_at <= $%d", len(args)))
	}
	if len(conds) > 0 {
		query.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	query.WriteString(" ORDER BY occurred_at, id")

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.BloodGroup, &t.Quantity, &t.EffectType, &t.OccurredAt, &t.Remarks); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return txns, nil
}

// Apply executes one read-modify-write-append sequence under a row lock:
//   - locks the counter row (SELECT ... FOR UPDATE), serializing applies per
//     blood group while leaving other groups free to proceed in parallel
//   - rejects any decrement that would drive the quantity negative
//   - appends the ledger transaction and updates the counter in the same
//     database transaction, so the pair is visible atomically
func (r *PostgresRepository) Apply(ctx context.Context, in ApplyInput) (Counter, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Counter{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if in.ReferenceID != "" {
		claimed, err := r.dedup.WithExecutor(tx).ClaimReference(
			ctx, in.ReferenceID, string(in.BloodGroup), string(in.EffectType), in.Quantity)
		if err != nil {
			return Counter{}, err
		}
		if !claimed {
			// Already applied; report the committed state without reapplying.
			return r.GetCounter(ctx, in.BloodGroup)
		}
	}

	var current, threshold int
	err = tx.QueryRow(ctx, `
		SELECT quantity, min_threshold
		FROM blood_inventory
		WHERE blood_group=$1
		FOR UPDATE
	`, string(in.BloodGroup)).Scan(&current, &threshold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Counter{}, ErrNotFound
		}
		return Counter{}, fmt.Errorf("lock counter: %w", err)
	}

	var next int
	switch in.EffectType {
	case EffectDonation:
		next = current + in.Quantity
	case EffectRequest:
		next = current - in.Quantity
		if next < 0 {
			return Counter{}, ErrInsufficientStock
		}
	case EffectDiscard:
		next = current - in.Quantity
		if next < 0 {
			return Counter{}, ErrInvalidDiscard
		}
	default:
		return Counter{}, ErrInvalidEffectType
	}

	now := time.Now().UTC()

	_, err = tx.Exec(ctx, `
		INSERT INTO blood_transactions (blood_group, quantity, effect_type, occurred_at, remarks)
		VALUES ($1, $2, $3, $4, $5)
	`, string(in.BloodGroup), in.Quantity, string(in.EffectType), now, in.Remarks)
	if err != nil {
		return Counter{}, fmt.Errorf("append transaction: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE blood_inventory
		SET quantity=$2, last_updated=$3
		WHERE blood_group=$1
	`, string(in.BloodGroup), next, now)
	if err != nil {
		return Counter{}, fmt.Errorf("update counter: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Counter{}, fmt.Errorf("commit apply: %w", err)
	}

	return Counter{
		BloodGroup:   in.BloodGroup,
		Quantity:     next,
		MinThreshold: threshold,
		LastUpdated:  now,
	}, nil
}
