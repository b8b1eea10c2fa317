package chatkit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// TypingNotifier is implemented by subscriptions able to push the local
// user's typing status back to the feed.
type TypingNotifier interface {
	NotifyTyping(ctx context.Context) error
}

// View binds the store to one visible conversation at a time. It owns the
// change feed subscription and tears it down whenever the conversation
// changes or the view closes.
type View struct {
	store   *Store
	backend Backend
	inbox   *Inbox
	opts    options

	// openMu serializes Open and Close so a swap never leaves a pump behind.
	openMu sync.Mutex

	mu             sync.Mutex
	conversationID string
	sub            Subscription
	cancel         context.CancelFunc
	done           chan struct{}
}

// NewView creates a view. inbox may be nil when no read receipts should be
// sent.
func NewView(store *Store, backend Backend, inbox *Inbox, opts ...Option) *View {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &View{store: store, backend: backend, inbox: inbox, opts: o}
}

func (v *View) ConversationID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conversationID
}

// Open switches the view to conversationID: the previous subscription is
// released first, then the new one is established before history is loaded
// so that no insert between the two is missed.
func (v *View) Open(ctx context.Context, conversationID string) error {
	if err := v.swap(ctx, conversationID); err != nil {
		return err
	}

	if err := v.store.Load(ctx, conversationID); err != nil {
		return err
	}

	if v.inbox != nil {
		v.inbox.MarkRead(conversationID)
	}
	return nil
}

// swap tears down the current subscription and installs the one of
// conversationID. History loading happens outside so a slow load does not
// hold up a later switch; the store discards it by generation.
func (v *View) swap(ctx context.Context, conversationID string) error {
	v.openMu.Lock()
	defer v.openMu.Unlock()

	v.release()

	if _, err := v.store.Activate(conversationID); err != nil {
		return err
	}

	sub, err := v.backend.Subscribe(ctx, conversationID)
	if err != nil {
		_ = v.store.Deactivate()
		return fmt.Errorf("unable to subscribe conversation %s: %w", conversationID, err)
	}

	pumpCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	v.mu.Lock()
	v.conversationID = conversationID
	v.sub = sub
	v.cancel = cancel
	v.done = done
	v.mu.Unlock()

	go v.pump(pumpCtx, conversationID, sub, done)
	return nil
}

// Close releases the subscription and waits for the event pump to exit.
func (v *View) Close() {
	v.openMu.Lock()
	defer v.openMu.Unlock()
	v.release()
}

// release must be called with openMu held.
func (v *View) release() {
	v.mu.Lock()
	cancel, done := v.cancel, v.done
	v.cancel, v.done, v.sub = nil, nil, nil
	v.conversationID = ""
	v.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	_ = v.store.Deactivate()
}

// Reload refetches history of the open conversation.
func (v *View) Reload(ctx context.Context) error {
	id := v.ConversationID()
	if len(id) == 0 {
		return ErrInactiveConversation
	}
	return v.store.Load(ctx, id)
}

func (v *View) Send(ctx context.Context, draft Draft) error {
	id := v.ConversationID()
	if len(id) == 0 {
		return ErrInactiveConversation
	}
	return v.store.Send(ctx, id, draft)
}

// Typing pushes a typing status when the subscription supports it.
func (v *View) Typing(ctx context.Context) error {
	v.mu.Lock()
	sub := v.sub
	v.mu.Unlock()

	if sub == nil {
		return ErrInactiveConversation
	}
	if notifier, ok := sub.(TypingNotifier); ok {
		return notifier.NotifyTyping(ctx)
	}
	return nil
}

func (v *View) pump(ctx context.Context, conversationID string, sub Subscription, done chan struct{}) {
	defer close(done)
	defer func() { _ = sub.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if ok {
				if err := v.store.Apply(ctx, event); err != nil {
					v.opts.logger.Warn().Err(err).
						Str("conversation", conversationID).
						Str("event", event.Kind.String()).
						Msg("An error occurred when applying conversation event...")
				}
				continue
			}
			if ctx.Err() != nil {
				return
			}

			v.opts.logger.Warn().Err(sub.Err()).
				Str("conversation", conversationID).
				Msg("Conversation subscription dropped, resubscribing...")
			_ = sub.Close()

			next, err := v.resubscribe(ctx, conversationID)
			if err != nil {
				return
			}
			sub = next

			v.mu.Lock()
			if v.conversationID == conversationID {
				v.sub = next
			}
			v.mu.Unlock()

			if err := v.store.Load(ctx, conversationID); err != nil {
				v.opts.logger.Warn().Err(err).
					Str("conversation", conversationID).
					Msg("An error occurred when resyncing conversation after resubscribe...")
			}
		}
	}
}

func (v *View) resubscribe(ctx context.Context, conversationID string) (Subscription, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = v.opts.reconnectInitial
	policy.MaxInterval = v.opts.reconnectMax
	policy.MaxElapsedTime = 0

	var sub Subscription
	err := backoff.RetryNotify(func() error {
		var err error
		sub, err = v.backend.Subscribe(ctx, conversationID)
		return err
	}, backoff.WithContext(policy, ctx), func(err error, wait time.Duration) {
		v.opts.logger.Debug().Err(err).
			Str("conversation", conversationID).
			Dur("wait", wait).
			Msg("Resubscribe failed, retrying...")
	})
	return sub, err
}

// Session wires a store, a view and an inbox together: messages from other
// users refresh the unread badges, opening a conversation marks it read.
type Session struct {
	Store *Store
	View  *View
	Inbox *Inbox
}

func NewSession(backend Backend, self string, opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	inbox := NewInbox(backend, opts...)
	userHook := o.onUnread
	storeOpts := append(append([]Option(nil), opts...), WithUnreadHook(func(conversationID string) {
		inbox.refreshAsync()
		if userHook != nil {
			userHook(conversationID)
		}
	}))

	store := NewStore(backend, self, storeOpts...)
	return &Session{
		Store: store,
		View:  NewView(store, backend, inbox, opts...),
		Inbox: inbox,
	}
}

func (s *Session) Close() {
	s.View.Close()
	s.Store.Stop()
}
