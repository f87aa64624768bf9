package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/itadmit/quickshop3-sub007/internal/services"
)

// redemptionMessage is the wire shape of a published redemption event.
type redemptionMessage struct {
	EventID    string    `json:"eventId"`
	StoreID    string    `json:"storeId"`
	OrderID    string    `json:"orderId"`
	DiscountID string    `json:"discountId"`
	Code       string    `json:"code,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// PubSubRedemptionPublisher publishes discount redemption events to a
// Pub/Sub topic for downstream webhook and analytics consumers.
type PubSubRedemptionPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubRedemptionPublisher constructs a Pub/Sub backed redemption publisher.
func NewPubSubRedemptionPublisher(topic *pubsub.Topic) (*PubSubRedemptionPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub redemption publisher: topic is required")
	}
	return &PubSubRedemptionPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishRedemption enqueues a redemption event on the configured topic.
func (p *PubSubRedemptionPublisher) PublishRedemption(ctx context.Context, event services.RedemptionEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub redemption publisher: not initialised")
	}

	data, err := p.marshal(redemptionMessage{
		EventID:    event.EventID,
		StoreID:    event.StoreID,
		OrderID:    event.OrderID,
		DiscountID: event.DiscountID,
		Code:       event.Code,
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal redemption event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "eventId", event.EventID)
	setAttr(attrs, "storeId", event.StoreID)
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "discountId", event.DiscountID)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish redemption event: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
