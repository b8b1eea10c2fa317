package chatkit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samber/lo"
)

type fakeSubscription struct {
	conversationID string
	events         chan Event

	mu      sync.Mutex
	err     error
	closed  bool
	dropped bool
}

func newFakeSubscription(conversationID string) *fakeSubscription {
	return &fakeSubscription{conversationID: conversationID, events: make(chan Event, 16)}
}

func (s *fakeSubscription) Events() <-chan Event { return s.events }

func (s *fakeSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSubscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// drop simulates the transport going away.
func (s *fakeSubscription) drop(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dropped {
		return
	}
	s.dropped = true
	s.err = err
	close(s.events)
}

type fakeBackend struct {
	mu sync.Mutex

	history   map[string][]Message
	messages  map[string]Message
	getErrs   []error
	getCalls  int
	listErrs  []error
	listCalls int
	listGate  chan struct{}

	insertErr  error
	insertGate chan struct{}
	inserted   []Draft

	reactionErr error
	reactions   []string

	markReadErr   error
	markReadCalls int

	summaries    []Summary
	summaryCalls int

	subscribeErrs []error
	subs          []*fakeSubscription
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		history:  make(map[string][]Message),
		messages: make(map[string]Message),
	}
}

func (f *fakeBackend) putMessage(message Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[message.ID] = message
}

func (f *fakeBackend) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.listGate
	var err error
	if len(f.listErrs) > 0 {
		err = f.listErrs[0]
		f.listErrs = f.listErrs[1:]
	}
	history := append([]Message(nil), f.history[conversationID]...)
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return history, nil
}

func (f *fakeBackend) GetMessage(_ context.Context, messageID string) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if len(f.getErrs) > 0 {
		err := f.getErrs[0]
		f.getErrs = f.getErrs[1:]
		return Message{}, err
	}
	if message, ok := f.messages[messageID]; ok {
		return message, nil
	}
	return Message{}, errors.New("message not found")
}

func (f *fakeBackend) InsertMessage(ctx context.Context, _ string, draft Draft) error {
	f.mu.Lock()
	gate := f.insertGate
	err := f.insertErr
	f.inserted = append(f.inserted, draft)
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeBackend) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

func (f *fakeBackend) AddReaction(_ context.Context, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, messageID+"/"+emoji)
	return f.reactionErr
}

func (f *fakeBackend) RemoveReaction(context.Context, string) error { return nil }

func (f *fakeBackend) MarkRead(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReadCalls++
	return f.markReadErr
}

func (f *fakeBackend) ListSummaries(context.Context) ([]Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryCalls++
	return append([]Summary(nil), f.summaries...), nil
}

func (f *fakeBackend) FindOrCreateDirect(_ context.Context, otherUserID string) (string, error) {
	return "direct-" + otherUserID, nil
}

func (f *fakeBackend) Subscribe(_ context.Context, conversationID string) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subscribeErrs) > 0 {
		err := f.subscribeErrs[0]
		f.subscribeErrs = f.subscribeErrs[1:]
		return nil, err
	}
	sub := newFakeSubscription(conversationID)
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeBackend) subscription(idx int) *fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if idx >= len(f.subs) {
		return nil
	}
	return f.subs[idx]
}

func (f *fakeBackend) openSubscriptionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(lo.Filter(f.subs, func(item *fakeSubscription, _ int) bool {
		return !item.isClosed()
	}))
}

func (f *fakeBackend) getMessageCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

func (f *fakeBackend) subscriptionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeBackend) counters() (list, markRead, summary int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.markReadCalls, f.summaryCalls
}

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func textMessage(id, conversationID, senderID, content string, offset time.Duration) Message {
	return Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        lo.ToPtr(content),
		CreatedAt:      baseTime.Add(offset),
		Reactions:      []Reaction{},
	}
}

func messageIDs(messages []Message) []string {
	return lo.Map(messages, func(item Message, _ int) string { return item.ID })
}
