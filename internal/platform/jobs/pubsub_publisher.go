package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
)

// IndexRefreshMessage is the payload published when a product's search
// documents need to be rebuilt.
type IndexRefreshMessage struct {
	ProductID   string    `json:"productId"`
	RequestedAt time.Time `json:"requestedAt"`
	Reason      string    `json:"reason,omitempty"`
}

// PubSubIndexRefreshPublisher publishes index refresh requests to a Pub/Sub topic.
type PubSubIndexRefreshPublisher struct {
	topic   *pubsub.Topic
	clock   func() time.Time
	marshal func(any) ([]byte, error)
}

// NewPubSubIndexRefreshPublisher constructs a Pub/Sub backed index refresh publisher.
func NewPubSubIndexRefreshPublisher(topic *pubsub.Topic) (*PubSubIndexRefreshPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub index refresh publisher: topic is required")
	}
	return &PubSubIndexRefreshPublisher{
		topic:   topic,
		clock:   func() time.Time { return time.Now().UTC() },
		marshal: json.Marshal,
	}, nil
}

// PublishIndexRefresh enqueues a refresh request for the given product.
func (p *PubSubIndexRefreshPublisher) PublishIndexRefresh(ctx context.Context, productID string, reason string) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub index refresh publisher: not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return "", errors.New("pubsub index refresh publisher: product id is required")
	}

	message := IndexRefreshMessage{
		ProductID:   productID,
		RequestedAt: p.clock(),
		Reason:      strings.TrimSpace(reason),
	}
	data, err := p.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal index refresh: %w", err)
	}

	attrs := map[string]string{"productId": productID}
	if message.Reason != "" {
		attrs["reason"] = message.Reason
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish index refresh: %w", err)
	}
	return id, nil
}
