package events

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	EventTypeDonationRecorded = "DonationRecorded"

	donationRecordedSchema = "bloodbank.donation.recorded.v1"
)

// DonationRecordedPayload is published by the donor service after a collection
// is accepted. The ledger consumes it and applies a donation transaction.
type DonationRecordedPayload struct {
	DonorID     string    `json:"donorId"`
	BloodGroup  string    `json:"bloodGroup"`
	Units       int       `json:"units"`
	CollectedAt time.Time `json:"collectedAt"`
}

// LegacyDonationRecorded is the flat, pre-envelope shape still emitted by older
// donor service deployments.
type LegacyDonationRecorded struct {
	EventType   string    `json:"eventType"`
	DonorID     string    `json:"donorId"`
	BloodGroup  string    `json:"bloodGroup"`
	Units       int       `json:"units"`
	CollectedAt time.Time `json:"collectedAt"`
}

type donationRecordedMessage struct {
	Envelope *EventEnvelope
	Payload  DonationRecordedPayload
}

// parseDonationRecorded accepts both enveloped and legacy flat messages.
func parseDonationRecorded(body []byte) (donationRecordedMessage, error) {
	env, err := parseEnvelope(body)
	if err != nil {
		return donationRecordedMessage{}, err
	}

	if env.EventName == "" {
		var legacy LegacyDonationRecorded
		if err := json.Unmarshal(body, &legacy); err != nil {
			return donationRecordedMessage{}, fmt.Errorf("unmarshal DonationRecorded: %w", err)
		}
		if legacy.EventType != EventTypeDonationRecorded {
			return donationRecordedMessage{}, fmt.Errorf("unexpected eventType %q", legacy.EventType)
		}
		return donationRecordedMessage{
			Payload: DonationRecordedPayload{
				DonorID:     legacy.DonorID,
				BloodGroup:  legacy.BloodGroup,
				Units:       legacy.Units,
				CollectedAt: legacy.CollectedAt,
			},
		}, nil
	}

	if err := env.Validate(EventTypeDonationRecorded, 1); err != nil {
		return donationRecordedMessage{}, err
	}

	var payload DonationRecordedPayload
	if len(env.Payload) == 0 {
		return donationRecordedMessage{}, fmt.Errorf("missing payload")
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return donationRecordedMessage{}, fmt.Errorf("unmarshal DonationRecorded payload: %w", err)
	}
	return donationRecordedMessage{Envelope: &env, Payload: payload}, nil
}
