package services

import (
	"testing"

	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestConversationDisplayName(t *testing.T) {
	direct := models.Conversation{
		Type: models.ConversationTypeDirect,
		Members: []models.ConversationMember{
			{AccountID: "u-1", Account: models.Account{ID: "u-1", Name: "alice", Nick: "Alice"}},
			{AccountID: "u-2", Account: models.Account{ID: "u-2", Name: "bob"}},
		},
	}
	assert.Equal(t, "bob", ConversationDisplayName(direct, "u-1"))
	assert.Equal(t, "Alice", ConversationDisplayName(direct, "u-2"))

	channel := models.Conversation{Type: models.ConversationTypeChannel, Name: "general"}
	assert.Equal(t, "general", ConversationDisplayName(channel, "u-1"))
}

func TestAddConversationMemberRejectsDirect(t *testing.T) {
	err := AddConversationMember(models.Account{ID: "u-3"}, models.Conversation{Type: models.ConversationTypeDirect})
	assert.ErrorIs(t, err, ErrDirectMembership)
}
