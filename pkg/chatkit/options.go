package chatkit

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	logger zerolog.Logger

	fetchRetries    uint64
	fetchRetryDelay time.Duration

	reconnectInitial time.Duration
	reconnectMax     time.Duration

	onUnread func(conversationID string)
	onTyping func(conversationID, userID string)
	onChange func(conversationID string, messages []Message)
}

func defaultOptions() options {
	return options{
		logger:           log.Logger,
		fetchRetries:     2,
		fetchRetryDelay:  500 * time.Millisecond,
		reconnectInitial: 500 * time.Millisecond,
		reconnectMax:     30 * time.Second,
	}
}

type Option func(*options)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithFetchRetry overrides the history load policy, two retries with a
// fixed delay by default.
func WithFetchRetry(retries uint64, delay time.Duration) Option {
	return func(o *options) {
		o.fetchRetries = retries
		o.fetchRetryDelay = delay
	}
}

// WithReconnectBackoff bounds the exponential backoff used when a dropped
// subscription is re-established.
func WithReconnectBackoff(initial, max time.Duration) Option {
	return func(o *options) {
		o.reconnectInitial = initial
		o.reconnectMax = max
	}
}

// WithUnreadHook is called after a message from another user was merged.
func WithUnreadHook(fn func(conversationID string)) Option {
	return func(o *options) { o.onUnread = fn }
}

func WithTypingHook(fn func(conversationID, userID string)) Option {
	return func(o *options) { o.onTyping = fn }
}

// WithChangeHook receives a copy of the message list after every mutation.
// It runs on the goroutine that caused the mutation, never on the store loop.
// Calls are serialized in mutation order, so the hook must not mutate the
// store itself.
func WithChangeHook(fn func(conversationID string, messages []Message)) Option {
	return func(o *options) { o.onChange = fn }
}
