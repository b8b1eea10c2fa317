package api

import (
	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"git.solsynth.dev/hypernet/chat/pkg/internal/server/exts"
	"git.solsynth.dev/hypernet/chat/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func addReaction(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		Emoji string `json:"emoji" validate:"required,max=32"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	message, err := services.GetMessage(c.Params("messageId"))
	if err != nil {
		return err
	} else if _, _, err := services.GetAvailableConversation(message.ConversationID, user.ID); err != nil {
		return err
	}

	reaction, err := services.AddReaction(message, user.ID, data.Emoji)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(reaction)
}

func removeReaction(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	reaction, err := services.GetReaction(c.Params("reactionId"))
	if err != nil {
		return err
	}
	message, err := services.GetMessage(reaction.MessageID)
	if err != nil {
		return err
	}

	if err := services.RemoveReaction(reaction, message.ConversationID, user.ID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
