package api

import (
	"fmt"

	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"git.solsynth.dev/hypernet/chat/pkg/internal/server/exts"
	"git.solsynth.dev/hypernet/chat/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func uploadAttachment(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	file, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("file is required: %v", err))
	}

	reader, err := file.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	defer reader.Close()

	contentType := file.Header.Get(fiber.HeaderContentType)
	if len(contentType) == 0 {
		contentType = fiber.MIMEOctetStream
	}

	url, kind, err := services.UploadAttachment(c.Context(), user.ID, file.Filename, contentType, reader)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"url":  url,
		"type": kind,
	})
}
