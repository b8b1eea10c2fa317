package api

import (
	"fmt"

	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"git.solsynth.dev/hypernet/chat/pkg/internal/server/exts"
	"git.solsynth.dev/hypernet/chat/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func listConversationSummaries(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	summaries, err := services.ListConversationSummaries(user.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(summaries)
}

func getConversation(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	conversation, _, err := services.GetAvailableConversation(c.Params("conversationId"), user.ID)
	if err != nil {
		return err
	}

	return c.JSON(conversation)
}

func createChannel(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		Name        string   `json:"name" validate:"required,max=128"`
		Description string   `json:"description" validate:"max=4096"`
		Members     []string `json:"members"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	var members []models.Account
	for _, name := range data.Members {
		account, err := services.GetAccountWithName(name)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("unable to find member %s: %v", name, err))
		}
		members = append(members, account)
	}

	conversation, err := services.NewChannel(user, data.Name, data.Description, members)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(conversation)
}

func findOrCreateDirect(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		UserID string `json:"user_id" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	other, err := services.GetAccount(data.UserID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("unable to find user: %v", err))
	}

	conversation, err := services.FindOrCreateDirectConversation(user, other)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(conversation)
}

func markConversationRead(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	if err := services.MarkConversationRead(c.Params("conversationId"), user.ID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
