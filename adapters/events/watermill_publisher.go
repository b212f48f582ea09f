package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/layer-3/starnotary/core"
	"github.com/layer-3/starnotary/ports"
)

const (
	// GrantVerifiedTopic carries GrantVerifiedEvent payloads
	GrantVerifiedTopic = "grant.verified"
	// StarRegisteredTopic carries StarRegisteredEvent payloads
	StarRegisteredTopic = "star.registered"
)

// GrantVerifiedEvent is published when an address proves control of its identity
type GrantVerifiedEvent struct {
	Address  string `json:"address"`
	IssuedAt int64  `json:"request_timestamp"`
}

// StarRegisteredEvent is published after a star lands on the ledger
type StarRegisteredEvent struct {
	Address string `json:"address"`
	Height  int64  `json:"height"`
	Hash    string `json:"hash"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	prefix    string
}

// NewWatermillPublisher creates a new Watermill publisher. Topics are
// namespaced with prefix.
func NewWatermillPublisher(publisher message.Publisher, prefix string) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		prefix:    prefix,
	}
}

// Topic returns the fully qualified name of topic
func (p *WatermillPublisher) Topic(topic string) string {
	return Topic(p.prefix, topic)
}

// Topic joins a namespace prefix and a topic name
func Topic(prefix, topic string) string {
	if prefix == "" {
		return topic
	}
	return prefix + "." + topic
}

// PublishGrantVerified publishes a grant verified event
func (p *WatermillPublisher) PublishGrantVerified(ctx context.Context, address string, issuedAt int64) error {
	return p.publish(ctx, GrantVerifiedTopic, GrantVerifiedEvent{
		Address:  address,
		IssuedAt: issuedAt,
	})
}

// PublishStarRegistered publishes a star registered event
func (p *WatermillPublisher) PublishStarRegistered(ctx context.Context, address string, block *core.Block) error {
	return p.publish(ctx, StarRegisteredTopic, StarRegisteredEvent{
		Address: address,
		Height:  block.Height,
		Hash:    block.Hash,
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.Topic(topic), msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
