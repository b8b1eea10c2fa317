package services

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyToken(t *testing.T) {
	viper.Set("security.reply_token_secret", "reply-test-secret")

	tk, err := CreateReplyToken("conv-a", "m-1", "user-1")
	require.NoError(t, err)

	claims, err := ParseReplyToken(tk)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "conv-a", claims.ConversationID)
	assert.Equal(t, "m-1", claims.MessageID)

	viper.Set("security.reply_token_secret", "rotated")
	_, err = ParseReplyToken(tk)
	assert.Error(t, err)

	_, err = ParseReplyToken("not-a-token")
	assert.Error(t, err)
}
