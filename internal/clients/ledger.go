package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bloodbank/bloodbank/internal/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/ledger"
)

var (
	// ErrUnavailable is returned when the ledger service cannot be reached
	// before the request was sent. Safe to treat as "not permitted".
	ErrUnavailable = errors.New("ledger service unavailable")

	// ErrAmbiguousOutcome is returned when a mutating call failed after send:
	// the decrement may or may not have been applied. Never retried
	// automatically; the reference id allows manual reconciliation.
	ErrAmbiguousOutcome = errors.New("ledger outcome unknown, needs reconciliation")
)

// Ledger is the request service's typed client for the ledger API.
type Ledger struct {
	baseURL *url.URL
	http    *http.Client
}

func NewLedger(baseURL string, timeout time.Duration) (*Ledger, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger base url %q: %w", baseURL, err)
	}
	return &Ledger{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// CheckAvailability asks whether quantity units are on hand. The ledger answers
// false for unknown groups; transport failures surface as ErrUnavailable so the
// caller can fail closed.
func (c *Ledger) CheckAvailability(ctx context.Context, group bloodgroup.Group, quantity int) (bool, error) {
	rel := &url.URL{
		Path:     "/availability",
		RawQuery: url.Values{"bloodGroup": {string(group)}, "quantity": {fmt.Sprint(quantity)}}.Encode(),
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.ResolveReference(rel).String(), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: availability check returned %d", ErrUnavailable, resp.StatusCode)
	}

	var available bool
	if err := json.NewDecoder(resp.Body).Decode(&available); err != nil {
		return false, fmt.Errorf("%w: decode availability: %v", ErrUnavailable, err)
	}
	return available, nil
}

// Counter fetches a counter snapshot. Reads are safe to retry; this one is not
// retried because callers treat any failure the same as unavailable.
func (c *Ledger) Counter(ctx context.Context, group bloodgroup.Group) (ledger.Counter, error) {
	rel := &url.URL{Path: "/counters/" + string(group)}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.ResolveReference(rel).String(), nil)
	if err != nil {
		return ledger.Counter{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ledger.Counter{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ledger.Counter{}, decodeAPIError(resp)
	}

	var counter ledger.Counter
	if err := json.NewDecoder(resp.Body).Decode(&counter); err != nil {
		return ledger.Counter{}, fmt.Errorf("decode counter: %w", err)
	}
	return counter, nil
}

type transactionBody struct {
	BloodGroup  string `json:"bloodGroup"`
	Quantity    int    `json:"quantity"`
	EffectType  string `json:"effectType"`
	Remarks     string `json:"remarks,omitempty"`
	ReferenceID string `json:"referenceId,omitempty"`
}

// ApplyRequest asks the ledger to decrement a counter for a fulfillment.
// referenceID is the request id: the ledger dedupes on it, so a reconciling
// re-send after an ambiguous outcome cannot double-decrement.
func (c *Ledger) ApplyRequest(ctx context.Context, group bloodgroup.Group, quantity int, referenceID string) error {
	payload, err := json.Marshal(transactionBody{
		BloodGroup:  string(group),
		Quantity:    quantity,
		EffectType:  string(ledger.EffectRequest),
		Remarks:     fmt.Sprintf("Fulfillment of request %s", referenceID),
		ReferenceID: referenceID,
	})
	if err != nil {
		return err
	}

	rel := &url.URL{Path: "/transactions"}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.ResolveReference(rel).String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// The request may have reached the ledger before the failure; without a
		// response there is no way to know whether it was applied.
		return fmt.Errorf("%w: request %s: %v", ErrAmbiguousOutcome, referenceID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeAPIError(resp)
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// decodeAPIError maps the ledger's stable error codes back to domain errors.
func decodeAPIError(resp *http.Response) error {
	var body apiError
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: ledger returned %d", ErrUnavailable, resp.StatusCode)
	}

	switch body.Code {
	case "NOT_FOUND":
		return fmt.Errorf("%w: %s", ledger.ErrNotFound, body.Error)
	case "INSUFFICIENT_STOCK":
		return fmt.Errorf("%w: %s", ledger.ErrInsufficientStock, body.Error)
	case "INVALID_DISCARD":
		return fmt.Errorf("%w: %s", ledger.ErrInvalidDiscard, body.Error)
	case "INVALID_INPUT":
		return fmt.Errorf("%w: %s", ledger.ErrInvalidQuantity, body.Error)
	default:
		return fmt.Errorf("%w: ledger returned %d: %s", ErrUnavailable, resp.StatusCode, body.Error)
	}
}
