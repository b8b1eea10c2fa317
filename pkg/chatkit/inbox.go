package chatkit

import (
	"context"
	"sync"
	"time"
)

const inboxCallTimeout = 10 * time.Second

// Inbox caches the conversation list with unread badges.
type Inbox struct {
	backend Backend
	opts    options

	mu        sync.RWMutex
	summaries []Summary
}

func NewInbox(backend Backend, opts ...Option) *Inbox {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Inbox{backend: backend, opts: o}
}

func (i *Inbox) Refresh(ctx context.Context) error {
	summaries, err := i.backend.ListSummaries(ctx)
	if err != nil {
		return err
	}

	i.mu.Lock()
	i.summaries = summaries
	i.mu.Unlock()
	return nil
}

func (i *Inbox) refreshAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), inboxCallTimeout)
		defer cancel()
		if err := i.Refresh(ctx); err != nil {
			i.opts.logger.Warn().Err(err).Msg("An error occurred when refreshing conversation list...")
		}
	}()
}

func (i *Inbox) Summaries() []Summary {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append([]Summary(nil), i.summaries...)
}

func (i *Inbox) Unread(conversationID string) int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, item := range i.summaries {
		if item.ConversationID == conversationID {
			return item.UnreadCount
		}
	}
	return 0
}

// MarkRead marks the conversation as read without blocking the caller. A
// failure is logged and never retried. The returned channel is closed once
// the call and the follow-up refresh settled.
func (i *Inbox) MarkRead(conversationID string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ctx, cancel := context.WithTimeout(context.Background(), inboxCallTimeout)
		defer cancel()

		if err := i.backend.MarkRead(ctx, conversationID); err != nil {
			i.opts.logger.Warn().Err(err).
				Str("conversation", conversationID).
				Msg("An error occurred when marking conversation as read...")
			return
		}
		if err := i.Refresh(ctx); err != nil {
			i.opts.logger.Warn().Err(err).Msg("An error occurred when refreshing conversation list...")
		}
	}()
	return done
}
