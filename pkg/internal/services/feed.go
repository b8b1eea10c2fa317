package services

import (
	"context"
	"sync"

	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// FeedSubscriber receives the change feed of one conversation. C is closed
// when the subscriber is removed, including when it fell too far behind.
type FeedSubscriber struct {
	ID             string
	ConversationID string
	AccountID      string
	C              <-chan models.FeedEvent

	ch     chan models.FeedEvent
	closed bool
}

type feedEnvelope struct {
	Origin string           `json:"origin"`
	Event  models.FeedEvent `json:"event"`
}

// FeedBroker fans feed events out to the websocket connections of this
// instance and, when a relay is configured, to the other instances.
type FeedBroker struct {
	buffer int
	origin string

	relay        *redis.Client
	relayChannel string

	lock        sync.Mutex
	subscribers map[string]map[string]*FeedSubscriber
}

var Feed = NewFeedBroker(64)

func NewFeedBroker(buffer int) *FeedBroker {
	return &FeedBroker{
		buffer:      buffer,
		origin:      uuid.NewString(),
		subscribers: make(map[string]map[string]*FeedSubscriber),
	}
}

func (b *FeedBroker) Subscribe(conversationId string, accountId string) *FeedSubscriber {
	ch := make(chan models.FeedEvent, b.buffer)
	sub := &FeedSubscriber{
		ID:             uuid.NewString(),
		ConversationID: conversationId,
		AccountID:      accountId,
		C:              ch,
		ch:             ch,
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	if _, ok := b.subscribers[conversationId]; !ok {
		b.subscribers[conversationId] = make(map[string]*FeedSubscriber)
	}
	b.subscribers[conversationId][sub.ID] = sub
	feedSubscribersGauge.Inc()

	return sub
}

func (b *FeedBroker) Unsubscribe(sub *FeedSubscriber) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.remove(sub)
}

// remove must be called with the lock held.
func (b *FeedBroker) remove(sub *FeedSubscriber) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)
	feedSubscribersGauge.Dec()

	if v, ok := b.subscribers[sub.ConversationID]; ok {
		delete(v, sub.ID)
		if len(v) == 0 {
			delete(b.subscribers, sub.ConversationID)
		}
	}
}

// DisconnectUser drops every subscriber of the account in the conversation,
// used when a member leaves.
func (b *FeedBroker) DisconnectUser(conversationId string, accountId string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	for _, sub := range b.subscribers[conversationId] {
		if sub.AccountID == accountId {
			b.remove(sub)
		}
	}
}

func (b *FeedBroker) Count(conversationId string) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.subscribers[conversationId])
}

// Publish delivers the event locally and forwards it to the relay.
func (b *FeedBroker) Publish(ctx context.Context, event models.FeedEvent) {
	b.deliver(event)

	if b.relay == nil {
		return
	}
	raw, err := jsoniter.Marshal(feedEnvelope{Origin: b.origin, Event: event})
	if err != nil {
		log.Error().Err(err).Msg("An error occurred when encoding feed event...")
		return
	}
	if err := b.relay.Publish(ctx, b.relayChannel, raw).Err(); err != nil {
		log.Warn().Err(err).Str("conversation", event.ConversationID).Msg("An error occurred when relaying feed event...")
	}
}

// deliver never blocks: a subscriber whose buffer is full is dropped so its
// client reconnects and resyncs from history.
func (b *FeedBroker) deliver(event models.FeedEvent) {
	b.lock.Lock()
	defer b.lock.Unlock()

	for _, sub := range b.subscribers[event.ConversationID] {
		select {
		case sub.ch <- event:
		default:
			log.Warn().
				Str("conversation", sub.ConversationID).
				Str("account", sub.AccountID).
				Msg("Feed subscriber fell behind, dropping it...")
			feedDroppedCounter.Inc()
			b.remove(sub)
		}
	}
}

func (b *FeedBroker) EnableRelay(client *redis.Client, channel string) {
	b.relay = client
	b.relayChannel = channel
}

// RunRelay consumes events published by other instances until ctx is done.
func (b *FeedBroker) RunRelay(ctx context.Context) error {
	if b.relay == nil {
		return nil
	}

	pubsub := b.relay.Subscribe(ctx, b.relayChannel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case message, ok := <-messages:
			if !ok {
				return nil
			}
			var envelope feedEnvelope
			if err := jsoniter.UnmarshalFromString(message.Payload, &envelope); err != nil {
				log.Warn().Err(err).Msg("An error occurred when decoding relayed feed event...")
				continue
			} else if envelope.Origin == b.origin {
				continue
			}
			b.deliver(envelope.Event)
		}
	}
}
