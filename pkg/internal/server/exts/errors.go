package exts

import (
	"errors"

	"git.solsynth.dev/hypernet/chat/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ErrorBody is written for every failed request. Code is set for the errors
// clients are expected to branch on.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

const (
	CodeReactionExists = "reaction_exists"
	CodeNotMember      = "not_member"
	CodeEmptyMessage   = "empty_message"
	CodeRateLimited    = "rate_limited"
	CodeNotFound       = "not_found"
)

func resolveError(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.Is(err, services.ErrReactionExists):
		return fiber.StatusConflict, CodeReactionExists
	case errors.Is(err, services.ErrNotMember):
		return fiber.StatusForbidden, CodeNotMember
	case errors.Is(err, services.ErrNotReactionAuthor):
		return fiber.StatusForbidden, ""
	case errors.Is(err, services.ErrEmptyMessage):
		return fiber.StatusBadRequest, CodeEmptyMessage
	case errors.Is(err, services.ErrDirectMembership):
		return fiber.StatusBadRequest, ""
	case errors.Is(err, services.ErrRateLimited):
		return fiber.StatusTooManyRequests, CodeRateLimited
	case errors.Is(err, services.ErrStorageDisabled):
		return fiber.StatusServiceUnavailable, ""
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound, CodeNotFound
	case errors.As(err, &fe):
		return fe.Code, ""
	default:
		return fiber.StatusInternalServerError, ""
	}
}

func ErrorHandler(c *fiber.Ctx, err error) error {
	status, code := resolveError(err)
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("An error occurred when handling request...")
	}
	return c.Status(status).JSON(ErrorBody{Error: err.Error(), Code: code})
}
