package api

import (
	"net/http/httptest"
	"strings"
	"testing"

	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"git.solsynth.dev/hypernet/chat/pkg/internal/server/exts"
	"git.solsynth.dev/hypernet/chat/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(user *models.Account) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: exts.ErrorHandler})
	if user != nil {
		app.Use(func(c *fiber.Ctx) error {
			c.Locals("user", *user)
			return c.Next()
		})
	}
	MapAPIs(app, "/api")
	return app
}

func TestRoutesRequireAuthentication(t *testing.T) {
	app := newTestApp(nil)

	routes := []struct{ method, path string }{
		{fiber.MethodGet, "/api/users/me"},
		{fiber.MethodGet, "/api/conversations"},
		{fiber.MethodPost, "/api/conversations/direct"},
		{fiber.MethodGet, "/api/conversations/c-1/messages"},
		{fiber.MethodPost, "/api/conversations/c-1/messages"},
		{fiber.MethodPut, "/api/conversations/c-1/read"},
		{fiber.MethodPost, "/api/messages/m-1/reactions"},
		{fiber.MethodDelete, "/api/reactions/r-1"},
		{fiber.MethodPost, "/api/attachments"},
	}
	for _, route := range routes {
		resp, err := app.Test(httptest.NewRequest(route.method, route.path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "%s %s", route.method, route.path)
	}
}

func TestGetUserinfo(t *testing.T) {
	app := newTestApp(&models.Account{ID: "u-1", Name: "alice", Nick: "Alice"})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/users/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestFeedRequiresUpgrade(t *testing.T) {
	app := newTestApp(&models.Account{ID: "u-1"})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/conversations/c-1/feed", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestQuickReplyRejectsBadTokens(t *testing.T) {
	viper.Set("security.reply_token_secret", "quick-reply-secret")
	app := newTestApp(nil)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/api/quick/c-1/reply/m-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	tk, err := services.CreateReplyToken("c-1", "m-2", "u-1")
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, "/api/quick/c-1/reply/m-1?replyToken="+tk, strings.NewReader(`{"content":"hi"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestNewMessageRejectsEmptyBody(t *testing.T) {
	app := newTestApp(&models.Account{ID: "u-1"})

	req := httptest.NewRequest(fiber.MethodPost, "/api/conversations/c-1/messages", strings.NewReader(`{"content":"   "}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
