package api

import (
	"fmt"

	"git.solsynth.dev/hypernet/chat/pkg/internal/server/exts"
	"git.solsynth.dev/hypernet/chat/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

// quickReply answers a message from a notification action. The reply token
// stands in for the session so only plain messages are supported.
func quickReply(c *fiber.Ctx) error {
	replyTk := c.Query("replyToken")
	if len(replyTk) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "reply token is required")
	}

	claims, err := services.ParseReplyToken(replyTk)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("reply token is invalid: %v", err))
	}

	conversationId := c.Params("conversationId")
	if claims.MessageID != c.Params("messageId") || claims.ConversationID != conversationId {
		return fiber.NewError(fiber.StatusBadRequest, "reply token is invalid, message mismatch")
	}

	var data services.MessageBody
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	body, err := services.ValidateMessageBody(data)
	if err != nil {
		return err
	}

	conversation, member, err := services.GetAvailableConversation(conversationId, claims.UserID)
	if err != nil {
		return err
	}

	if !services.SendLimiter.Allow(claims.UserID) {
		return services.ErrRateLimited
	}

	message, err := services.NewMessage(conversation, member, body)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(message)
}
