package services

import (
	"testing"

	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMessageBody(t *testing.T) {
	body, err := ValidateMessageBody(MessageBody{Content: "  hello  "})
	require.NoError(t, err)
	assert.Equal(t, "hello", body.Content)
	assert.Empty(t, body.AttachmentType)

	body, err = ValidateMessageBody(MessageBody{AttachmentURL: "https://cdn/a.bin"})
	require.NoError(t, err)
	assert.Equal(t, models.AttachmentTypeFile, body.AttachmentType)

	body, err = ValidateMessageBody(MessageBody{Content: "look", AttachmentType: "image"})
	require.NoError(t, err)
	assert.Empty(t, body.AttachmentType)

	for _, item := range []MessageBody{{}, {Content: " \t\n"}, {AttachmentType: "image"}} {
		_, err := ValidateMessageBody(item)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
}

func TestParseMentions(t *testing.T) {
	assert.Equal(t, []string{"alice", "bob.k"}, ParseMentions("hey @alice and @bob.k, @alice again"))
	assert.Empty(t, ParseMentions("no mentions here"))
}
