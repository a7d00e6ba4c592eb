package events

import "time"

const (
	EventTypeLowStock = "LowStockDetected"

	lowStockSchema = "bloodbank.inventory.lowstock.v1"
)

// LowStockPayload announces that a counter sits at or under its threshold.
// Consumers (notification service, dashboards) decide what to do with it.
type LowStockPayload struct {
	BloodGroup   string    `json:"bloodGroup"`
	Quantity     int       `json:"currentQuantity"`
	MinThreshold int       `json:"minThreshold"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
}

type LowStockEvent struct {
	EventEnvelope
	Payload LowStockPayload `json:"payload"`
}
