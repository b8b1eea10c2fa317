package api

import (
	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"git.solsynth.dev/hypernet/chat/pkg/internal/server/exts"
	"git.solsynth.dev/hypernet/chat/pkg/internal/services"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

// feedMiddleware checks the membership before the connection is upgraded so
// outsiders get a plain error response.
func feedMiddleware(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := c.Locals("user").(models.Account)

	_, member, err := services.GetAvailableConversation(c.Params("conversationId"), user.ID)
	if err != nil {
		return err
	}

	c.Locals("member", member)
	return c.Next()
}

func listenFeed(c *websocket.Conn) {
	member := c.Locals("member").(models.ConversationMember)
	sub := services.Feed.Subscribe(member.ConversationID, member.AccountID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range sub.C {
			raw, err := jsoniter.Marshal(event)
			if err != nil {
				log.Warn().Err(err).Msg("An error occurred when encoding feed event...")
				continue
			}
			if err := c.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		}
		// The broker dropped us, the client resyncs after reconnecting
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"))
		_ = c.Close()
	}()

	var command models.FeedCommand
	for {
		_, packet, err := c.ReadMessage()
		if err != nil {
			break
		} else if err := jsoniter.Unmarshal(packet, &command); err != nil {
			continue
		}

		switch command.Action {
		case models.FeedEventTyping:
			services.SetTypingStatus(member)
		}
	}

	services.Feed.Unsubscribe(sub)
	<-done
}
