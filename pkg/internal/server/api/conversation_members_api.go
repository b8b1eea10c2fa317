package api

import (
	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"git.solsynth.dev/hypernet/chat/pkg/internal/server/exts"
	"git.solsynth.dev/hypernet/chat/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

func listConversationMembers(c *fiber.Ctx) error {
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

	count, err := services.CountConversationMember(conversation.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	if members, err := services.ListConversationMember(conversation.ID, take, offset); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	} else {
		return c.JSON(fiber.Map{
			"count": count,
			"data":  members,
		})
	}
}

func addConversationMember(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		Target string `json:"target" validate:"required"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	conversation, member, err := services.GetAvailableConversation(c.Params("conversationId"), user.ID)
	if err != nil {
		return err
	} else if member.PowerLevel < 50 {
		return fiber.NewError(fiber.StatusForbidden, "you must be a moderator of a conversation to add member into it")
	}

	account, err := services.GetAccountWithName(data.Target)
	if err != nil {
		return err
	}

	if err := services.AddConversationMember(account, conversation); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusOK)
}

func removeConversationMember(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	conversation, member, err := services.GetAvailableConversation(c.Params("conversationId"), user.ID)
	if err != nil {
		return err
	} else if member.PowerLevel < 50 {
		return fiber.NewError(fiber.StatusForbidden, "you must be a moderator of a conversation to remove member from it")
	}

	target, ok := lo.Find(conversation.Members, func(item models.ConversationMember) bool {
		return item.ID == c.Params("memberId")
	})
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "member was not found in this conversation")
	} else if target.PowerLevel > member.PowerLevel {
		return fiber.NewError(fiber.StatusForbidden, "you cannot remove a member with a higher power level")
	}

	if err := services.RemoveConversationMember(target, conversation); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusOK)
}

func leaveConversation(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	conversation, member, err := services.GetAvailableConversation(c.Params("conversationId"), user.ID)
	if err != nil {
		return err
	}

	if err := services.RemoveConversationMember(member, conversation); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusOK)
}

func editNotifyLevel(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	var data struct {
		NotifyLevel int8 `json:"notify_level" validate:"min=0,max=2"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	_, member, err := services.GetAvailableConversation(c.Params("conversationId"), user.ID)
	if err != nil {
		return err
	}

	member.Notify = data.NotifyLevel
	if member, err := services.EditConversationMember(member); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	} else {
		return c.JSON(member)
	}
}
