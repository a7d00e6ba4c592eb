package request

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/bloodbank/bloodbank/internal/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/clients"
)

var contactNumberPattern = regexp.MustCompile(`^\d{10}$`)

const insufficientStockRemark = "Insufficient blood units available"

// LedgerClient is the slice of the ledger API the coordinator uses.
type LedgerClient interface {
	CheckAvailability(ctx context.Context, group bloodgroup.Group, quantity int) (bool, error)
	ApplyRequest(ctx context.Context, group bloodgroup.Group, quantity int, referenceID string) error
}

// Coordinator owns the request lifecycle: admission on create, status
// transitions, and the ledger decrement gating fulfillment.
type Coordinator struct {
	repo   Repository
	ledger LedgerClient
	logger *log.Logger
	now    func() time.Time
}

func NewCoordinator(repo Repository, ledgerClient LedgerClient, logger *log.Logger) *Coordinator {
	return &Coordinator{
		repo:   repo,
		ledger: ledgerClient,
		logger: logger,
		now:    time.Now,
	}
}

// CreateInput carries the caller-supplied fields of a new request.
type CreateInput struct {
	PatientName   string
	BloodGroup    string
	UnitsRequired int
	HospitalName  string
	ContactNumber string
	RequiredBy    *time.Time
	Priority      string
}

func (in CreateInput) validate() (bloodgroup.Group, Priority, error) {
	if strings.TrimSpace(in.PatientName) == "" {
		return "", "", fmt.Errorf("%w: patient name is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(in.HospitalName) == "" {
		return "", "", fmt.Errorf("%w: hospital name is required", ErrInvalidRequest)
	}
	if !contactNumberPattern.MatchString(in.ContactNumber) {
		return "", "", fmt.Errorf("%w: contact number must be 10 digits", ErrInvalidRequest)
	}
	if in.UnitsRequired < 1 {
		return "", "", fmt.Errorf("%w: units required must be at least 1", ErrInvalidRequest)
	}
	group, err := bloodgroup.Parse(in.BloodGroup)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	priority, err := ParsePriority(in.Priority)
	if err != nil {
		return "", "", err
	}
	return group, priority, nil
}

// CreateRequest admits a new request. Non-emergency requests for which the
// ledger reports insufficient availability are rejected up front; emergency
// requests are always admitted as pending so that staff can source stock.
// A ledger that cannot be reached counts as unavailable.
func (c *Coordinator) CreateRequest(ctx context.Context, in CreateInput) (*Request, error) {
	group, priority, err := in.validate()
	if err != nil {
		return nil, err
	}

	available, err := c.ledger.CheckAvailability(ctx, group, in.UnitsRequired)
	if err != nil {
		c.logger.Printf("availability check failed for %s, treating as unavailable: %v", group, err)
		available = false
	}

	now := c.now()
	req := &Request{
		PatientName:   strings.TrimSpace(in.PatientName),
		BloodGroup:    group,
		UnitsRequired: in.UnitsRequired,
		HospitalName:  strings.TrimSpace(in.HospitalName),
		ContactNumber: in.ContactNumber,
		RequestDate:   now,
		Priority:      priority,
		Status:        StatusPending,
	}
	if in.RequiredBy != nil {
		req.RequiredBy = *in.RequiredBy
	} else {
		req.RequiredBy = now.Add(24 * time.Hour)
	}

	if !available && priority != PriorityEmergency {
		req.Status = StatusRejected
		req.Remarks = insufficientStockRemark
	}

	if err := c.repo.Create(ctx, req); err != nil {
		return nil, err
	}
	c.logger.Printf("request %s created: group=%s units=%d priority=%s status=%s",
		req.ID, req.BloodGroup, req.UnitsRequired, req.Priority, req.Status)
	return req, nil
}

func (c *Coordinator) GetRequest(ctx context.Context, id string) (*Request, error) {
	req, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	return req, nil
}

func (c *Coordinator) ListRequests(ctx context.Context) ([]Request, error) {
	return c.repo.List(ctx)
}

func (c *Coordinator) ListByStatus(ctx context.Context, status string) ([]Request, error) {
	s, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return c.repo.ListByStatus(ctx, s)
}

func (c *Coordinator) ListByGroupAndStatus(ctx context.Context, group, status string) ([]Request, error) {
	g, err := bloodgroup.Parse(group)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	s, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return c.repo.ListByGroupAndStatus(ctx, string(g), s)
}

func (c *Coordinator) ListByHospital(ctx context.Context, hospital string) ([]Request, error) {
	return c.repo.ListByHospital(ctx, hospital)
}

func (c *Coordinator) ListByDateRange(ctx context.Context, r DateRange) ([]Request, error) {
	if r.End.Before(r.Start) {
		return nil, fmt.Errorf("%w: end before start", ErrInvalidRequest)
	}
	return c.repo.ListByDateRange(ctx, r)
}

// UpdateStatus moves a request through its lifecycle. Terminal requests are
// immutable. Moving to FULFILLED decrements the ledger first, keyed by the
// request id, so the request only reaches FULFILLED after the units are gone.
func (c *Coordinator) UpdateStatus(ctx context.Context, id string, status Status, remarks string) (*Request, error) {
	req, err := c.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status.Terminal() {
		return nil, fmt.Errorf("%w: request %s is already %s", ErrInvalidTransition, id, req.Status)
	}
	if status == req.Status {
		return req, nil
	}

	if status == StatusFulfilled {
		if req.Status != StatusPending && req.Status != StatusApproved {
			return nil, fmt.Errorf("%w: cannot fulfill from %s", ErrInvalidTransition, req.Status)
		}
		if err := c.ledger.ApplyRequest(ctx, req.BloodGroup, req.UnitsRequired, req.ID); err != nil {
			if errors.Is(err, clients.ErrAmbiguousOutcome) {
				c.logger.Printf("fulfillment of request %s has unknown ledger outcome: %v", id, err)
			}
			return nil, err
		}
		if remarks == "" {
			remarks = fmt.Sprintf("Fulfilled with %d units", req.UnitsRequired)
		}
	}

	if err := c.repo.UpdateStatus(ctx, id, status, remarks); err != nil {
		if status == StatusFulfilled {
			// Units are already decremented; the reference keyed on the request
			// id lets a retried fulfillment converge instead of re-decrementing.
			c.logger.Printf("request %s fulfilled in ledger but status update failed: %v", id, err)
		}
		return nil, err
	}
	c.logger.Printf("request %s moved %s -> %s", id, req.Status, status)
	return c.GetRequest(ctx, id)
}

// ProcessEmergencyRequests scans pending emergencies and approves those the
// ledger can now cover. Idempotent: approved requests leave the pending set.
func (c *Coordinator) ProcessEmergencyRequests(ctx context.Context) (int, error) {
	pending, err := c.repo.ListByPriorityAndStatus(ctx, PriorityEmergency, StatusPending)
	if err != nil {
		return 0, err
	}

	approved := 0
	for i := range pending {
		req := &pending[i]
		available, err := c.ledger.CheckAvailability(ctx, req.BloodGroup, req.UnitsRequired)
		if err != nil {
			c.logger.Printf("emergency scan: availability check failed for request %s: %v", req.ID, err)
			continue
		}
		if !available {
			continue
		}
		if err := c.repo.UpdateStatus(ctx, req.ID, StatusApproved, "Stock available, approved by emergency scan"); err != nil {
			c.logger.Printf("emergency scan: approve request %s: %v", req.ID, err)
			continue
		}
		approved++
	}
	if approved > 0 {
		c.logger.Printf("emergency scan approved %d of %d pending requests", approved, len(pending))
	}
	return approved, nil
}
