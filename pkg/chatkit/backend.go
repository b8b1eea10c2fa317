package chatkit

import "context"

// Backend is every remote capability the conversation core depends on.
// Implementations must be safe for concurrent use.
type Backend interface {
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
	GetMessage(ctx context.Context, messageID string) (Message, error)
	InsertMessage(ctx context.Context, conversationID string, draft Draft) error

	// AddReaction returns ErrReactionExists when the (message, user, emoji)
	// tuple is already present.
	AddReaction(ctx context.Context, messageID, emoji string) error
	RemoveReaction(ctx context.Context, reactionID string) error

	MarkRead(ctx context.Context, conversationID string) error
	ListSummaries(ctx context.Context) ([]Summary, error)
	FindOrCreateDirect(ctx context.Context, otherUserID string) (string, error)

	Subscribe(ctx context.Context, conversationID string) (Subscription, error)
}

// Subscription delivers change feed events for one conversation until it is
// closed or the underlying transport drops. After Events is closed, Err
// reports why; it is nil when Close was called.
type Subscription interface {
	Events() <-chan Event
	Err() error
	Close() error
}
