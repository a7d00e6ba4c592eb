package events

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange             = "bloodbank.events"
	DonationRecordedRoutingKey = "donation.recorded.v1"
	LowStockRoutingKey         = "inventory.lowstock.v1"
	ledgerServiceName          = "ledger-service"
)

func serviceQueue(serviceName, routingKey string) string {
	return serviceName + "." + routingKey
}

func ledgerQueueName(routingKey string) string {
	return serviceQueue(ledgerServiceName, routingKey)
}

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
