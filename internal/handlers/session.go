package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nd-ahl/envive/internal/engine"
	"github.com/nd-ahl/envive/internal/models"
)

// resolveSession binds an incoming message to an engine session: the group
// chat maps to a household and the sender to a member, both created on
// first contact. Bot senders are enrolled as parents; children interact
// through the mobile app, not the chat.
func resolveSession(ctx context.Context, eng *engine.Engine, message *tgbotapi.Message) (engine.Session, error) {
	chatTitle := message.Chat.Title
	if chatTitle == "" {
		chatTitle = message.From.FirstName + "'s household"
	}
	household, err := eng.EnsureHousehold(ctx, message.Chat.ID, chatTitle)
	if err != nil {
		return engine.Session{}, fmt.Errorf("ensure household: %w", err)
	}

	name := message.From.FirstName
	if message.From.LastName != "" {
		name += " " + message.From.LastName
	}
	member, err := eng.EnsureMember(ctx, household.ID, message.From.ID, name, models.MemberRoleParent)
	if err != nil {
		return engine.Session{}, fmt.Errorf("ensure member: %w", err)
	}

	return engine.Session{HouseholdID: household.ID, MemberID: member.ID}, nil
}

// reply sends a Markdown message to the chat the message came from.
func reply(bot *tgbotapi.BotAPI, message *tgbotapi.Message, text string) error {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
