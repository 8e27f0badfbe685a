// Package events publishes the engine's outbound events on the analytics
// exchange.
package events

import (
	"context"

	"github.com/pharmaconnect/stock-analytics/pkg/logger"
	"github.com/pharmaconnect/stock-analytics/pkg/messaging"
)

// Publisher publishes analytics events (alerts and stockout transitions)
type Publisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewPublisher creates a publisher bound to the analytics exchange
func NewPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*Publisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeAnalyticsEvents, "analytics-service", log)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// Publish publishes one typed event. The event type doubles as the routing
// key, so consumers can bind on analytics.alert.# or analytics.stockout.#.
func (p *Publisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	return p.publisher.Publish(ctx, eventType, data)
}
