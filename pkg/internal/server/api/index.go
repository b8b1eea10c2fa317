package api

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func MapAPIs(app *fiber.App, baseURL string) {
	api := app.Group(baseURL).Name("API")
	{
		api.Get("/users/me", getUserinfo)

		quick := api.Group("/quick")
		{
			quick.Post("/:conversationId/reply/:messageId", quickReply)
		}

		api.Post("/attachments", uploadAttachment)

		conversations := api.Group("/conversations").Name("Conversations API")
		{
			conversations.Get("/", listConversationSummaries)
			conversations.Post("/", createChannel)
			conversations.Post("/direct", findOrCreateDirect)
			conversations.Get("/:conversationId", getConversation)
			conversations.Put("/:conversationId/read", markConversationRead)

			conversations.Get("/:conversationId/members", listConversationMembers)
			conversations.Post("/:conversationId/members", addConversationMember)
			conversations.Put("/:conversationId/members/me/notify", editNotifyLevel)
			conversations.Delete("/:conversationId/members/me", leaveConversation)
			conversations.Delete("/:conversationId/members/:memberId", removeConversationMember)

			conversations.Get("/:conversationId/messages", listMessages)
			conversations.Post("/:conversationId/messages", newMessage)

			conversations.Get("/:conversationId/feed", feedMiddleware, websocket.New(listenFeed))
		}

		messages := api.Group("/messages").Name("Messages API")
		{
			messages.Get("/:messageId", getMessage)
			messages.Post("/:messageId/reactions", addReaction)
		}

		api.Delete("/reactions/:reactionId", removeReaction)
	}
}
