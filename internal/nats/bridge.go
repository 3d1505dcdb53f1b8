package nats

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/chatwire/chat-backend/internal/hub"
	"github.com/chatwire/chat-backend/pkg/logger"
)

const subjectPrefix = "chat"

// LocalDeliverer receives frames that originated on other instances.
// The hub implements it.
type LocalDeliverer interface {
	Deliver(scope hub.Scope, target string, frame []byte)
}

// Bridge fans broadcast frames out across hub instances over NATS core
// pub/sub. It carries frames only: presence and room state stay local to
// each instance, which is the documented scaling limit of this design.
type Bridge struct {
	client     *Client
	log        *logger.Logger
	instanceID string
	sub        *nats.Subscription
}

type envelope struct {
	Origin string          `json:"origin"`
	Frame  json.RawMessage `json:"frame"`
}

// NewBridge creates a fan-out bridge with a unique instance identity so
// self-published frames are not delivered twice.
func NewBridge(client *Client, log *logger.Logger) *Bridge {
	return &Bridge{
		client:     client,
		log:        log,
		instanceID: uuid.NewString(),
	}
}

// Publish implements hub.Publisher.
func (b *Bridge) Publish(scope hub.Scope, target string, frame []byte) error {
	payload, err := json.Marshal(envelope{Origin: b.instanceID, Frame: frame})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return b.client.Conn().Publish(subjectFor(scope, target), payload)
}

// Subscribe begins delivering remote frames to the local hub.
func (b *Bridge) Subscribe(deliverer LocalDeliverer) error {
	sub, err := b.client.Conn().Subscribe(subjectPrefix+".>", func(msg *nats.Msg) {
		var env envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			b.log.Warn("malformed bridge envelope", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		if env.Origin == b.instanceID {
			return
		}

		scope, target, ok := parseSubject(msg.Subject)
		if !ok {
			b.log.Warn("unroutable bridge subject", zap.String("subject", msg.Subject))
			return
		}
		deliverer.Deliver(scope, target, env.Frame)
	})
	if err != nil {
		return fmt.Errorf("subscribe bridge: %w", err)
	}
	b.sub = sub
	return nil
}

// Close drains the subscription.
func (b *Bridge) Close() {
	if b.sub != nil {
		_ = b.sub.Drain()
	}
}

func subjectFor(scope hub.Scope, target string) string {
	if scope == hub.ScopeAll {
		return subjectPrefix + ".all"
	}
	return fmt.Sprintf("%s.%s.%s", subjectPrefix, scope, target)
}

func parseSubject(subject string) (hub.Scope, string, bool) {
	parts := strings.SplitN(subject, ".", 3)
	if len(parts) < 2 || parts[0] != subjectPrefix {
		return "", "", false
	}
	switch parts[1] {
	case string(hub.ScopeAll):
		return hub.ScopeAll, "", true
	case string(hub.ScopeConversation):
		if len(parts) == 3 {
			return hub.ScopeConversation, parts[2], true
		}
	case string(hub.ScopeUser):
		if len(parts) == 3 {
			return hub.ScopeUser, parts[2], true
		}
	}
	return "", "", false
}
