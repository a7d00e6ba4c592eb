package ledger

import (
	"fmt"
	"time"

	"github.com/bloodbank/bloodbank/internal/bloodgroup"
)

// Counter is the live quantity-on-hand record for one blood group.
type Counter struct {
	BloodGroup   bloodgroup.Group `json:"bloodGroup"`
	Quantity     int              `json:"quantity"`
	MinThreshold int              `json:"minThreshold"`
	LastUpdated  time.Time        `json:"lastUpdated"`
}

// EffectType is the signed meaning of a ledger transaction:
// donations increase a counter, requests and discards decrease it.
type EffectType string

const (
	EffectDonation EffectType = "DONATION"
	EffectRequest  EffectType = "REQUEST"
	EffectDiscard  EffectType = "DISCARD"
)

func ParseEffectType(s string) (EffectType, error) {
	switch EffectType(s) {
	case EffectDonation, EffectRequest, EffectDiscard:
		return EffectType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEffectType, s)
	}
}

// Transaction is an immutable entry in the append-only ledger log.
type Transaction struct {
	ID         int64            `json:"id"`
	BloodGroup bloodgroup.Group `json:"bloodGroup"`
	Quantity   int              `json:"quantity"`
	EffectType EffectType       `json:"effectType"`
	OccurredAt time.Time        `json:"timestamp"`
	Remarks    string           `json:"remarks,omitempty"`
}

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	EffectType EffectType
	Start      time.Time
	End        time.Time
}

// LowStockAlert is a derived view, never persisted.
type LowStockAlert struct {
	BloodGroup   bloodgroup.Group `json:"bloodGroup"`
	Quantity     int              `json:"currentQuantity"`
	MinThreshold int              `json:"minThreshold"`
	Message      string           `json:"message"`
	Timestamp    time.Time        `json:"timestamp"`
}
