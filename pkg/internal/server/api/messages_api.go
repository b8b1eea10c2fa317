package api

import (
	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"git.solsynth.dev/hypernet/chat/pkg/internal/server/exts"
	"git.solsynth.dev/hypernet/chat/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func listMessages(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)
	take := c.QueryInt("take", 0)
	offset := c.QueryInt("offset", 0)

	conversation, _, err := services.GetAvailableConversation(c.Params("conversationId"), user.ID)
	if err != nil {
		return err
	}

	count := services.CountMessage(conversation)
	messages, err := services.ListMessage(conversation, take, offset)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"count": count,
		"data":  messages,
	})
}

func getMessage(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	message, err := services.GetMessage(c.Params("messageId"))
	if err != nil {
		return err
	} else if _, _, err := services.GetAvailableConversation(message.ConversationID, user.ID); err != nil {
		return err
	}

	return c.JSON(message)
}

func newMessage(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data services.MessageBody
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	body, err := services.ValidateMessageBody(data)
	if err != nil {
		return err
	}

	conversation, member, err := services.GetAvailableConversation(c.Params("conversationId"), user.ID)
	if err != nil {
		return err
	}

	if !services.SendLimiter.Allow(user.ID) {
		return services.ErrRateLimited
	}

	message, err := services.NewMessage(conversation, member, body)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(message)
}
