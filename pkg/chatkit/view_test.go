package chatkit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() []Option {
	return []Option{
		WithLogger(zerolog.Nop()),
		WithFetchRetry(2, time.Millisecond),
		WithReconnectBackoff(time.Millisecond, 5*time.Millisecond),
	}
}

func newTestSession(t *testing.T, backend Backend, opts ...Option) *Session {
	t.Helper()
	session := NewSession(backend, userA, append(testOptions(), opts...)...)
	t.Cleanup(session.Close)
	return session
}

func TestView_OpenSubscribesLoadsAndMarksRead(t *testing.T) {
	backend := newFakeBackend()
	backend.history[convC] = []Message{textMessage("m-1", convC, userB, "hello", 0)}
	backend.summaries = []Summary{{ConversationID: convC, UnreadCount: 0}}

	session := newTestSession(t, backend)
	require.NoError(t, session.View.Open(context.Background(), convC))

	assert.Equal(t, convC, session.View.ConversationID())
	assert.Equal(t, 1, backend.subscriptionCount())
	assert.Equal(t, []string{"m-1"}, messageIDs(session.Store.Snapshot()))

	require.Eventually(t, func() bool {
		_, markRead, summary := backend.counters()
		return markRead == 1 && summary == 1
	}, time.Second, time.Millisecond)
}

func TestView_AppliesFeedEvents(t *testing.T) {
	backend := newFakeBackend()
	backend.putMessage(textMessage("m-2", convC, userB, "live", time.Second))

	session := newTestSession(t, backend)
	require.NoError(t, session.View.Open(context.Background(), convC))

	backend.subscription(0).events <- Event{Kind: EventMessageInserted, ConversationID: convC, MessageID: "m-2"}
	require.Eventually(t, func() bool {
		return len(session.Store.Snapshot()) == 1
	}, time.Second, time.Millisecond)
}

func TestView_SwitchReleasesPreviousSubscription(t *testing.T) {
	backend := newFakeBackend()
	backend.putMessage(textMessage("m-1", convC, userB, "late", 0))

	session := newTestSession(t, backend)
	require.NoError(t, session.View.Open(context.Background(), convC))
	require.NoError(t, session.View.Open(context.Background(), "conv-d"))

	require.Equal(t, 2, backend.subscriptionCount())
	assert.True(t, backend.subscription(0).isClosed())
	assert.False(t, backend.subscription(1).isClosed())
	assert.Equal(t, "conv-d", session.Store.ConversationID())

	// Nothing drains the old subscription anymore.
	backend.subscription(0).events <- Event{Kind: EventMessageInserted, ConversationID: convC, MessageID: "m-1"}
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, session.Store.Snapshot())
}

func TestView_ConcurrentOpensKeepOneSubscription(t *testing.T) {
	backend := newFakeBackend()
	session := newTestSession(t, backend)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = session.View.Open(context.Background(), fmt.Sprintf("conv-%d", i%2))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, backend.subscriptionCount())
	assert.Equal(t, 1, backend.openSubscriptionCount())

	session.View.Close()
	assert.Equal(t, 0, backend.openSubscriptionCount())
}

func TestView_CloseIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	session := newTestSession(t, backend)
	require.NoError(t, session.View.Open(context.Background(), convC))

	session.View.Close()
	session.View.Close()

	assert.True(t, backend.subscription(0).isClosed())
	assert.Empty(t, session.View.ConversationID())
	assert.Empty(t, session.Store.ConversationID())
	assert.ErrorIs(t, session.View.Send(context.Background(), Draft{Content: "hi"}), ErrInactiveConversation)
	assert.ErrorIs(t, session.View.Typing(context.Background()), ErrInactiveConversation)
}

func TestView_SubscribeFailureLeavesNoActiveConversation(t *testing.T) {
	backend := newFakeBackend()
	backend.subscribeErrs = []error{errors.New("dial tcp: refused")}

	session := newTestSession(t, backend)
	err := session.View.Open(context.Background(), convC)
	require.Error(t, err)
	assert.Empty(t, session.Store.ConversationID())
}

func TestView_ResubscribesAndResyncsAfterDrop(t *testing.T) {
	backend := newFakeBackend()
	backend.history[convC] = []Message{textMessage("m-1", convC, userB, "one", 0)}

	session := newTestSession(t, backend)
	require.NoError(t, session.View.Open(context.Background(), convC))

	backend.mu.Lock()
	backend.subscribeErrs = []error{errors.New("network unreachable")}
	backend.history[convC] = append(backend.history[convC], textMessage("m-2", convC, userB, "missed", time.Second))
	backend.mu.Unlock()

	backend.subscription(0).drop(errors.New("connection reset by peer"))

	require.Eventually(t, func() bool {
		return backend.subscriptionCount() == 2
	}, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		return len(session.Store.Snapshot()) == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"m-1", "m-2"}, messageIDs(session.Store.Snapshot()))
	assert.True(t, backend.subscription(0).isClosed())
}

func TestView_MarkReadFailureIsNotFatal(t *testing.T) {
	backend := newFakeBackend()
	backend.markReadErr = errors.New("503")

	session := newTestSession(t, backend)
	require.NoError(t, session.View.Open(context.Background(), convC))

	require.Eventually(t, func() bool {
		_, markRead, _ := backend.counters()
		return markRead == 1
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, markRead, summary := backend.counters()
	assert.Equal(t, 1, markRead)
	assert.Equal(t, 0, summary)
	assert.Equal(t, convC, session.View.ConversationID())
}

func TestSession_ForeignMessageRefreshesInbox(t *testing.T) {
	backend := newFakeBackend()
	backend.markReadErr = errors.New("503")
	backend.summaries = []Summary{{ConversationID: convC, UnreadCount: 1}}
	backend.putMessage(textMessage("m-1", convC, userB, "ping", 0))

	unread := make(chan string, 1)
	session := newTestSession(t, backend, WithUnreadHook(func(conversationID string) {
		unread <- conversationID
	}))
	require.NoError(t, session.View.Open(context.Background(), convC))

	backend.subscription(0).events <- Event{Kind: EventMessageInserted, ConversationID: convC, MessageID: "m-1"}

	select {
	case id := <-unread:
		assert.Equal(t, convC, id)
	case <-time.After(time.Second):
		t.Fatal("unread hook was not called")
	}
	require.Eventually(t, func() bool {
		return session.Inbox.Unread(convC) == 1
	}, time.Second, time.Millisecond)
}
