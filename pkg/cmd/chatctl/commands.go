package main

import (
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"git.solsynth.dev/hypernet/chat/pkg/chatkit"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	dimmed   = color.New(color.Faint)
	bold     = color.New(color.Bold)
	accented = color.New(color.FgCyan, color.Bold)
)

func inboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inbox",
		Short: "List conversations with unread counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := newClient().ListSummaries(cmd.Context())
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				dimmed.Println("No conversations yet.")
				return nil
			}
			for _, summary := range summaries {
				name := summary.Name
				if summary.UnreadCount > 0 {
					name = bold.Sprintf("%s (%d)", name, summary.UnreadCount)
				}
				fmt.Printf("%s  %s  %s\n", dimmed.Sprint(summary.ConversationID), name, previewText(summary.LastMessage))
			}
			return nil
		},
	}
}

func dmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dm <user-id>",
		Short: "Open the direct conversation with a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := newClient().FindOrCreateDirect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
}

func sendCmd() *cobra.Command {
	var attach string

	cmd := &cobra.Command{
		Use:   "send <conversation-id> [text]",
		Short: "Send a message",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := newClient()

			var draft chatkit.Draft
			if len(args) > 1 {
				draft.Content = args[1]
			}
			if len(attach) > 0 {
				attachment, err := uploadFile(cmd, client, attach)
				if err != nil {
					return err
				}
				draft.AttachmentURL = attachment.URL
				draft.AttachmentType = attachment.Type
			}

			session, _, err := newSession(ctx, client)
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.View.Open(ctx, args[0]); err != nil {
				return err
			}
			if err := session.View.Send(ctx, draft); err != nil {
				return err
			}
			accented.Println("Sent.")
			return nil
		},
	}
	cmd.Flags().StringVar(&attach, "attach", "", "file to upload and attach")
	return cmd
}

func uploadFile(cmd *cobra.Command, client *chatkit.Client, path string) (chatkit.Attachment, error) {
	file, err := os.Open(path)
	if err != nil {
		return chatkit.Attachment{}, err
	}
	defer file.Close()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if len(contentType) == 0 {
		contentType = "application/octet-stream"
	}
	return client.UploadAttachment(cmd.Context(), filepath.Base(path), contentType, file)
}

func tailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tail <conversation-id>",
		Short: "Follow a conversation live",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := newClient()

			var mu sync.Mutex
			printed := make(map[string]bool)
			session, me, err := newSession(ctx, client,
				chatkit.WithChangeHook(func(conversationID string, messages []chatkit.Message) {
					mu.Lock()
					defer mu.Unlock()
					for _, message := range messages {
						if message.IsProvisional() || printed[message.ID] {
							continue
						}
						printed[message.ID] = true
						printMessage(message)
					}
				}),
				chatkit.WithTypingHook(func(conversationID, userID string) {
					dimmed.Printf("%s is typing...\n", userID)
				}),
			)
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.View.Open(ctx, args[0]); err != nil {
				return err
			}
			dimmed.Printf("Following %s as %s, press Ctrl+C to stop.\n", args[0], me.Name)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			return nil
		},
	}
}

func reactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "react <message-id> <emoji>",
		Short: "React to a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, _, err := newSession(ctx, newClient())
			if err != nil {
				return err
			}
			defer session.Close()

			return session.Store.React(ctx, args[0], args[1])
		},
	}
}

func previewText(preview *chatkit.Preview) string {
	if preview == nil {
		return dimmed.Sprint("(empty)")
	}
	if preview.Content != nil {
		return *preview.Content
	}
	if preview.AttachmentType != nil {
		return dimmed.Sprintf("[%s]", *preview.AttachmentType)
	}
	return ""
}

func printMessage(message chatkit.Message) {
	sender := message.SenderID
	if message.Sender != nil {
		sender = message.Sender.Name
	}

	var parts []string
	if message.Content != nil {
		parts = append(parts, *message.Content)
	}
	if message.Attachment != nil {
		parts = append(parts, dimmed.Sprintf("[%s] %s", message.Attachment.Type, message.Attachment.URL))
	}
	if len(message.Reactions) > 0 {
		emojis := make([]string, 0, len(message.Reactions))
		for _, reaction := range message.Reactions {
			emojis = append(emojis, reaction.Emoji)
		}
		parts = append(parts, dimmed.Sprint(strings.Join(emojis, "")))
	}

	fmt.Printf("%s %s %s\n",
		dimmed.Sprint(message.CreatedAt.Local().Format("15:04")),
		accented.Sprint(sender),
		strings.Join(parts, " "),
	)
}
