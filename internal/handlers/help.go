package handlers

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

// NewHelpHandler creates a new help command handler
func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger}
}

// Handle processes the /help command.
func (h *HelpHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	helpText := `
*Envive commands*

• /tasks — show your tasks
• /tasks <member id> — show a household member's tasks
• /approve <task id> — approve a task waiting for review
• /decline <task id> — decline a task waiting for review
• /trust [member id] — current trust score, tier, and multiplier
• /balance [member id] — XP and screen-time minutes

A declined task costs 10 trust points, or 15 when it follows another
penalty within a week. Penalties fade after a month and are forgiven
after two. Every approval earns 2 points back, with a 5 point bonus for
each run of 10 approvals in a row.
	`
	return reply(bot, message, helpText)
}
