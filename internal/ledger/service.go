package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bloodbank/bloodbank/internal/bloodgroup"
)

// AlertSink receives low-stock notifications emitted after an apply leaves a
// counter at or under its threshold. Delivery failures never fail the apply.
type AlertSink interface {
	LowStock(ctx context.Context, alert LowStockAlert) error
}

// Service validates and applies ledger mutations. All business rules live here
// or in the repository's atomic apply; handlers and consumers stay thin.
type Service struct {
	repo   Repository
	alerts AlertSink
	logger *log.Logger
}

func NewService(repo Repository, logger *log.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// WithAlertSink attaches a sink for low-stock notifications.
func (s *Service) WithAlertSink(sink AlertSink) *Service {
	s.alerts = sink
	return s
}

// Register creates the counter for a blood group. Exactly one counter may exist
// per group; a second registration fails with ErrAlreadyExists.
func (s *Service) Register(ctx context.Context, code string, minThreshold *int, initialQuantity int) (Counter, error) {
	group, err := bloodgroup.Parse(code)
	if err != nil {
		return Counter{}, err
	}
	if minThreshold == nil {
		return Counter{}, ErrMissingThreshold
	}
	if *minThreshold < 0 {
		return Counter{}, fmt.Errorf("%w: threshold cannot be negative", ErrMissingThreshold)
	}
	if initialQuantity < 0 {
		return Counter{}, fmt.Errorf("%w: initial quantity cannot be negative", ErrInvalidQuantity)
	}

	c := Counter{
		BloodGroup:   group,
		Quantity:     initialQuantity,
		MinThreshold: *minThreshold,
	}
	if err := s.repo.CreateCounter(ctx, c); err != nil {
		return Counter{}, err
	}

	s.logger.Printf("registered blood group %s threshold=%d quantity=%d", group, *minThreshold, initialQuantity)
	return s.repo.GetCounter(ctx, group)
}

// ApplyTransaction validates the mutation and delegates to the repository's
// atomic apply. The updated counter is returned on success.
func (s *Service) ApplyTransaction(ctx context.Context, in ApplyInput) (Counter, error) {
	if !in.BloodGroup.Valid() {
		return Counter{}, fmt.Errorf("%w: %q", bloodgroup.ErrInvalid, in.BloodGroup)
	}
	if in.Quantity <= 0 {
		return Counter{}, ErrInvalidQuantity
	}
	if _, err := ParseEffectType(string(in.EffectType)); err != nil {
		return Counter{}, err
	}
	if in.Remarks == "" {
		in.Remarks = fmt.Sprintf("Inventory updated via %s", in.EffectType)
	}

	c, err := s.repo.Apply(ctx, in)
	if err != nil {
		return Counter{}, err
	}

	s.logger.Printf("applied %s of %d units for %s, quantity now %d", in.EffectType, in.Quantity, in.BloodGroup, c.Quantity)

	if s.alerts != nil && c.Quantity <= c.MinThreshold {
		alert := newLowStockAlert(c)
		if err := s.alerts.LowStock(ctx, alert); err != nil {
			s.logger.Printf("publish low stock alert for %s: %v", c.BloodGroup, err)
		}
	}

	return c, nil
}

// CheckAvailability reports whether at least quantity units are on hand.
// Unknown or malformed codes return false rather than an error: callers use
// this for admission decisions and an unregistered group is simply unavailable.
func (s *Service) CheckAvailability(ctx context.Context, code string, quantity int) (bool, error) {
	group, err := bloodgroup.Parse(code)
	if err != nil {
		return false, nil
	}
	c, err := s.repo.GetCounter(ctx, group)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Printf("availability check for unregistered group %s", group)
			return false, nil
		}
		return false, err
	}
	return c.Quantity >= quantity, nil
}

// Counter returns the snapshot for one blood group.
func (s *Service) Counter(ctx context.Context, code string) (Counter, error) {
	group, err := bloodgroup.Parse(code)
	if err != nil {
		return Counter{}, err
	}
	return s.repo.GetCounter(ctx, group)
}

func (s *Service) Counters(ctx context.Context) ([]Counter, error) {
	return s.repo.ListCounters(ctx)
}

func (s *Service) Transactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	if filter.EffectType != "" {
		if _, err := ParseEffectType(string(filter.EffectType)); err != nil {
			return nil, err
		}
	}
	return s.repo.ListTransactions(ctx, filter)
}

// ListLowStock computes the low-stock view on demand; nothing is persisted.
func (s *Service) ListLowStock(ctx context.Context) ([]LowStockAlert, error) {
	counters, err := s.repo.ListCounters(ctx)
	if err != nil {
		return nil, err
	}

	var alerts []LowStockAlert
	for _, c := range counters {
		if c.Quantity <= c.MinThreshold {
			alerts = append(alerts, newLowStockAlert(c))
		}
	}
	return alerts, nil
}

func newLowStockAlert(c Counter) LowStockAlert {
	return LowStockAlert{
		BloodGroup:   c.BloodGroup,
		Quantity:     c.Quantity,
		MinThreshold: c.MinThreshold,
		Message: fmt.Sprintf("LOW INVENTORY ALERT: %s is below minimum threshold. Current quantity: %d",
			c.BloodGroup, c.Quantity),
		Timestamp: time.Now().UTC(),
	}
}
