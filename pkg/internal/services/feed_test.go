package services

import (
	"context"
	"testing"

	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedBroker_DeliversOnlyToConversation(t *testing.T) {
	broker := NewFeedBroker(4)
	a := broker.Subscribe("conv-a", "user-1")
	b := broker.Subscribe("conv-b", "user-1")
	defer broker.Unsubscribe(a)
	defer broker.Unsubscribe(b)

	broker.Publish(context.Background(), models.FeedEvent{
		Type:           models.FeedInsert,
		Table:          models.FeedTableMessages,
		ConversationID: "conv-a",
	})

	require.Len(t, a.C, 1)
	assert.Len(t, b.C, 0)
	event := <-a.C
	assert.Equal(t, "conv-a", event.ConversationID)
}

func TestFeedBroker_DropsSlowSubscriber(t *testing.T) {
	broker := NewFeedBroker(1)
	slow := broker.Subscribe("conv-a", "user-1")
	fast := broker.Subscribe("conv-a", "user-2")

	broker.Publish(context.Background(), models.FeedEvent{ConversationID: "conv-a"})
	<-fast.C
	broker.Publish(context.Background(), models.FeedEvent{ConversationID: "conv-a"})

	assert.Equal(t, 1, broker.Count("conv-a"))

	_, ok := <-slow.C
	assert.True(t, ok)
	_, ok = <-slow.C
	assert.False(t, ok)

	_, ok = <-fast.C
	assert.True(t, ok)
	broker.Unsubscribe(fast)
	assert.Equal(t, 0, broker.Count("conv-a"))
}

func TestFeedBroker_UnsubscribeIsIdempotent(t *testing.T) {
	broker := NewFeedBroker(1)
	sub := broker.Subscribe("conv-a", "user-1")

	broker.Unsubscribe(sub)
	broker.Unsubscribe(sub)

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Equal(t, 0, broker.Count("conv-a"))
}

func TestFeedBroker_DisconnectUser(t *testing.T) {
	broker := NewFeedBroker(1)
	leaving := broker.Subscribe("conv-a", "user-1")
	staying := broker.Subscribe("conv-a", "user-2")
	defer broker.Unsubscribe(staying)

	broker.DisconnectUser("conv-a", "user-1")

	_, ok := <-leaving.C
	assert.False(t, ok)
	assert.Equal(t, 1, broker.Count("conv-a"))
}
