package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/nd-ahl/envive/internal/engine"
)

// StartHandler handles the /start command
type StartHandler struct {
	eng    *engine.Engine
	logger *logrus.Logger
}

// NewStartHandler creates a new start command handler
func NewStartHandler(eng *engine.Engine, logger *logrus.Logger) *StartHandler {
	return &StartHandler{eng: eng, logger: logger}
}

// Handle processes the /start command.
func (h *StartHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	sess, err := resolveSession(context.Background(), h.eng, message)
	if err != nil {
		return err
	}

	welcomeText := `
🏡 *Welcome to Envive!*

This chat is now your family's review desk. When a child submits a task
from the app, approve or decline it here.

*Commands:*
• /tasks — show your tasks (or /tasks <member id>)
• /approve <task id> — approve a submitted task
• /decline <task id> — decline a submitted task
• /trust — show a trust score (or /trust <member id>)
• /balance — show XP and screen-time minutes
• /help — show this list again

Honest work raises trust; declined tasks lower it — and trust decides how
many minutes each task is worth.
	`
	if err := reply(bot, message, welcomeText); err != nil {
		return err
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id":      message.Chat.ID,
		"household_id": sess.HouseholdID,
		"member_id":    sess.MemberID,
	}).Info("Sent start message")
	return nil
}
