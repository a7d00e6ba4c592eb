package events

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/bloodbank/bloodbank/internal/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/ledger"
)

// HandlerFunc processes one raw message body. Returning an error NACKs the message.
type HandlerFunc func(ctx context.Context, body []byte) error

// DonationApplier is the slice of the ledger service the consumer needs.
type DonationApplier interface {
	ApplyTransaction(ctx context.Context, in ledger.ApplyInput) (ledger.Counter, error)
}

// DonationRecordedHandler applies a donation transaction for each donor event.
// The envelope event id doubles as the ledger reference id, so a redelivered
// message cannot increment the counter twice.
func DonationRecordedHandler(svc DonationApplier, logger *log.Logger) HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		msg, err := parseDonationRecorded(body)
		if err != nil {
			return err
		}

		group, err := bloodgroup.Parse(msg.Payload.BloodGroup)
		if err != nil {
			return fmt.Errorf("donation for %q: %w", msg.Payload.BloodGroup, err)
		}
		if msg.Payload.Units <= 0 {
			return fmt.Errorf("donation units must be positive, got %d", msg.Payload.Units)
		}

		referenceID := legacyReference(msg.Payload)
		if msg.Envelope != nil {
			referenceID = msg.Envelope.EventID
		}

		c, err := svc.ApplyTransaction(ctx, ledger.ApplyInput{
			BloodGroup:  group,
			Quantity:    msg.Payload.Units,
			EffectType:  ledger.EffectDonation,
			Remarks:     fmt.Sprintf("Donation recorded for donor %s", msg.Payload.DonorID),
			ReferenceID: referenceID,
		})
		if err != nil {
			return fmt.Errorf("apply donation for %s: %w", group, err)
		}

		logger.Printf("donation applied group=%s units=%d quantity=%d", group, msg.Payload.Units, c.Quantity)
		return nil
	}
}

// legacyReference derives a deterministic reference for flat messages, which
// carry no event id. A broker redelivery hashes identically and is dropped by
// the ledger's reference claim instead of counting the donation twice.
func legacyReference(p DonationRecordedPayload) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("legacy|%s|%s|%d|%d",
		p.DonorID, p.BloodGroup, p.Units, p.CollectedAt.UTC().UnixNano())))
	return "legacy-" + hex.EncodeToString(sum[:])
}
