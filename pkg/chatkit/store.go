package chatkit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"
)

type conversationState struct {
	conversationID string
	generation     uint64
	messages       []Message
}

func (st *conversationState) indexOf(id string) int {
	_, idx, ok := lo.FindIndexOf(st.messages, func(item Message) bool {
		return item.ID == id
	})
	if !ok {
		return -1
	}
	return idx
}

func (st *conversationState) snapshot() []Message {
	return lo.Map(st.messages, func(item Message, _ int) Message {
		return item.clone()
	})
}

type storeOp struct {
	fn   func(st *conversationState)
	done chan struct{}
}

// Store is the client side mirror of the open conversation. Every mutation of
// the message list is executed by a single loop goroutine, remote calls are
// made by the caller's goroutine.
type Store struct {
	backend Backend
	self    string
	opts    options

	ops      chan storeOp
	quit     chan struct{}
	stopOnce sync.Once

	tempSeq atomic.Uint64

	// changeSeq is only touched by the loop goroutine.
	changeSeq uint64

	hookMu       sync.Mutex
	deliveredSeq uint64
}

func NewStore(backend Backend, self string, opts ...Option) *Store {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{
		backend: backend,
		self:    self,
		opts:    o,
		ops:     make(chan storeOp),
		quit:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Store) run() {
	st := &conversationState{}
	for {
		select {
		case op := <-s.ops:
			op.fn(st)
			close(op.done)
		case <-s.quit:
			return
		}
	}
}

// Stop terminates the loop. Calls made afterwards return ErrStoreStopped.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.quit) })
}

func (s *Store) exec(fn func(st *conversationState)) error {
	op := storeOp{fn: fn, done: make(chan struct{})}
	select {
	case s.ops <- op:
	case <-s.quit:
		return ErrStoreStopped
	}
	<-op.done
	return nil
}

// mutate runs fn on the loop and reports the resulting list to the change
// hook when fn says something changed.
func (s *Store) mutate(fn func(st *conversationState) bool) error {
	var changed bool
	var seq uint64
	var conversationID string
	var snapshot []Message
	err := s.exec(func(st *conversationState) {
		changed = fn(st)
		if changed && s.opts.onChange != nil {
			s.changeSeq++
			seq = s.changeSeq
			conversationID = st.conversationID
			snapshot = st.snapshot()
		}
	})
	if err != nil {
		return err
	}
	if changed && s.opts.onChange != nil {
		s.notifyChange(seq, conversationID, snapshot)
	}
	return nil
}

// notifyChange hands snapshots to the change hook in loop order. A snapshot
// older than one already delivered is skipped, so the last call always
// carries the current list.
func (s *Store) notifyChange(seq uint64, conversationID string, snapshot []Message) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	if seq <= s.deliveredSeq {
		return
	}
	s.deliveredSeq = seq
	s.opts.onChange(conversationID, snapshot)
}

// retry runs operation under the fetch policy. Decode errors are permanent.
func (s *Store) retry(ctx context.Context, operation func() error) (int, error) {
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := operation()
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.opts.fetchRetryDelay), s.opts.fetchRetries),
		ctx,
	))
	return attempts, err
}

// Activate makes conversationID the visible conversation and drops whatever
// was mirrored before. Responses tagged with an older generation are ignored.
func (s *Store) Activate(conversationID string) (uint64, error) {
	var generation uint64
	err := s.mutate(func(st *conversationState) bool {
		st.conversationID = conversationID
		st.generation++
		st.messages = nil
		generation = st.generation
		return true
	})
	return generation, err
}

func (s *Store) Deactivate() error {
	return s.mutate(func(st *conversationState) bool {
		st.conversationID = ""
		st.generation++
		st.messages = nil
		return true
	})
}

func (s *Store) ConversationID() string {
	var id string
	_ = s.exec(func(st *conversationState) { id = st.conversationID })
	return id
}

// Snapshot returns a copy of the ordered message list.
func (s *Store) Snapshot() []Message {
	var out []Message
	_ = s.exec(func(st *conversationState) { out = st.snapshot() })
	return out
}

func (s *Store) active(conversationID string) (uint64, bool, error) {
	var generation uint64
	var ok bool
	err := s.exec(func(st *conversationState) {
		ok = len(st.conversationID) > 0 && st.conversationID == conversationID
		generation = st.generation
	})
	return generation, ok, err
}

// Load fetches the full history of the active conversation and merges it
// into the local list.
func (s *Store) Load(ctx context.Context, conversationID string) error {
	return s.load(ctx, conversationID, false)
}

// load merges the history. With settle the provisional rows are dropped as
// well, used when a confirmed insert could only be observed through it.
func (s *Store) load(ctx context.Context, conversationID string, settle bool) error {
	generation, ok, err := s.active(conversationID)
	if err != nil {
		return err
	} else if !ok {
		return ErrInactiveConversation
	}

	var history []Message
	attempts, err := s.retry(ctx, func() error {
		var err error
		history, err = s.backend.ListMessages(ctx, conversationID)
		return err
	})
	if err != nil {
		s.opts.logger.Warn().Err(err).
			Str("conversation", conversationID).
			Int("attempts", attempts).
			Msg("An error occurred when loading conversation history...")
		return &FetchError{ConversationID: conversationID, Attempts: attempts, Err: err}
	}

	stale := false
	err = s.mutate(func(st *conversationState) bool {
		if st.conversationID != conversationID || st.generation != generation {
			stale = true
			return false
		}
		st.messages = mergeHistory(history, st.messages, !settle)
		return true
	})
	if stale {
		s.opts.logger.Debug().
			Str("conversation", conversationID).
			Msg("Discarded history load that resolved after the conversation was switched.")
	}
	return err
}

// mergeHistory keeps confirmed rows delivered by the feed while the load was
// in flight and, when keepPending is set, provisional rows at the tail.
func mergeHistory(history, current []Message, keepPending bool) []Message {
	seen := make(map[string]struct{}, len(history))
	out := make([]Message, 0, len(history)+len(current))
	for _, item := range history {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}

	var pending []Message
	for _, item := range current {
		if item.IsProvisional() {
			if keepPending {
				pending = append(pending, item)
			}
			continue
		}
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return append(out, pending...)
}

// Send appends a provisional message and issues the remote write. A nil
// return means the backend accepted the write, the confirmed row arrives
// through the change feed.
func (s *Store) Send(ctx context.Context, conversationID string, draft Draft) error {
	draft, err := draft.Normalize()
	if err != nil {
		return err
	}

	provisional := Message{
		ID:             fmt.Sprintf("%s%d", ProvisionalPrefix, s.tempSeq.Add(1)),
		ConversationID: conversationID,
		SenderID:       s.self,
		CreatedAt:      time.Now(),
		Pending:        true,
	}
	if len(draft.Content) > 0 {
		provisional.Content = lo.ToPtr(draft.Content)
	}
	if len(draft.AttachmentURL) > 0 {
		provisional.Attachment = &Attachment{URL: draft.AttachmentURL, Type: draft.AttachmentType}
	}

	accepted := false
	if err := s.mutate(func(st *conversationState) bool {
		if st.conversationID != conversationID {
			return false
		}
		accepted = true
		st.messages = append(st.messages, provisional)
		return true
	}); err != nil {
		return err
	} else if !accepted {
		return ErrInactiveConversation
	}

	if err := s.backend.InsertMessage(ctx, conversationID, draft); err != nil {
		s.opts.logger.Warn().Err(err).
			Str("conversation", conversationID).
			Str("provisional", provisional.ID).
			Msg("An error occurred when sending message, rolling back...")
		_ = s.mutate(func(st *conversationState) bool {
			idx := st.indexOf(provisional.ID)
			if idx < 0 {
				return false
			}
			st.messages = append(st.messages[:idx], st.messages[idx+1:]...)
			return true
		})
		return &SendError{ConversationID: conversationID, Draft: draft, Err: err}
	}

	return nil
}

// Apply merges one change feed event into the local list. Events for other
// conversations are ignored.
func (s *Store) Apply(ctx context.Context, event Event) error {
	switch event.Kind {
	case EventMessageInserted:
		return s.applyMessageInserted(ctx, event)
	case EventReactionInserted:
		if event.Reaction == nil {
			return nil
		}
		reaction := *event.Reaction
		return s.mutate(func(st *conversationState) bool {
			idx := st.indexOf(reaction.MessageID)
			if idx < 0 || st.messages[idx].hasReaction(reaction.ID) {
				return false
			}
			st.messages[idx].Reactions = append(st.messages[idx].Reactions, reaction)
			return true
		})
	case EventReactionDeleted:
		return s.mutate(func(st *conversationState) bool {
			changed := false
			for idx := range st.messages {
				if len(event.MessageID) > 0 && st.messages[idx].ID != event.MessageID {
					continue
				}
				before := len(st.messages[idx].Reactions)
				st.messages[idx].Reactions = lo.Reject(st.messages[idx].Reactions, func(item Reaction, _ int) bool {
					return item.ID == event.ReactionID
				})
				if len(st.messages[idx].Reactions) != before {
					changed = true
				}
			}
			return changed
		})
	case EventTyping:
		if s.opts.onTyping != nil && event.UserID != s.self {
			s.opts.onTyping(event.ConversationID, event.UserID)
		}
	}
	return nil
}

func (s *Store) applyMessageInserted(ctx context.Context, event Event) error {
	if _, ok, err := s.active(event.ConversationID); err != nil || !ok {
		return err
	}

	var message Message
	attempts, err := s.retry(ctx, func() error {
		var err error
		message, err = s.backend.GetMessage(ctx, event.MessageID)
		return err
	})
	if err != nil {
		s.opts.logger.Warn().Err(err).
			Str("conversation", event.ConversationID).
			Str("message", event.MessageID).
			Int("attempts", attempts).
			Msg("An error occurred when fetching inserted message, resyncing history...")
		if err := s.load(ctx, event.ConversationID, true); err != nil {
			if errors.Is(err, ErrInactiveConversation) {
				return nil
			}
			return err
		}
		return nil
	}

	merged := false
	err = s.mutate(func(st *conversationState) bool {
		if st.conversationID != event.ConversationID {
			return false
		}
		before := len(st.messages)
		st.messages = lo.Reject(st.messages, func(item Message, _ int) bool {
			return item.IsProvisional()
		})
		changed := len(st.messages) != before
		if st.indexOf(message.ID) >= 0 {
			return changed
		}
		st.messages = append(st.messages, message)
		merged = true
		return true
	})
	if err != nil {
		return err
	}

	if merged && message.SenderID != s.self && s.opts.onUnread != nil {
		s.opts.onUnread(event.ConversationID)
	}
	return nil
}

// React adds a reaction. The confirmed reaction arrives through the feed; a
// duplicate is treated as a no-op.
func (s *Store) React(ctx context.Context, messageID, emoji string) error {
	if err := s.backend.AddReaction(ctx, messageID, emoji); err != nil {
		if errors.Is(err, ErrReactionExists) {
			s.opts.logger.Debug().
				Str("message", messageID).
				Str("emoji", emoji).
				Msg("Reaction already exists, skipped.")
			return nil
		}
		return err
	}
	return nil
}

func (s *Store) Unreact(ctx context.Context, reactionID string) error {
	return s.backend.RemoveReaction(ctx, reactionID)
}
