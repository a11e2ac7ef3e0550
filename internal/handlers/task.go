package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/nd-ahl/envive/internal/engine"
	"github.com/nd-ahl/envive/internal/models"
	"github.com/nd-ahl/envive/internal/repository"
)

// statusEmoji returns an emoji representing the assignment status.
func statusEmoji(s models.TaskStatus) string {
	switch s {
	case models.TaskStatusAssigned:
		return "📋"
	case models.TaskStatusInProgress:
		return "🔨"
	case models.TaskStatusPendingReview:
		return "👀"
	case models.TaskStatusApproved:
		return "✅"
	case models.TaskStatusDeclined:
		return "❌"
	default:
		return "⬜"
	}
}

// ---------------------------------------------------------------------------
// TasksHandler – /tasks [member id]
// ---------------------------------------------------------------------------

// TasksHandler handles the /tasks command to list task assignments.
type TasksHandler struct {
	eng    *engine.Engine
	logger *logrus.Logger
}

// NewTasksHandler creates a new TasksHandler.
func NewTasksHandler(eng *engine.Engine, logger *logrus.Logger) *TasksHandler {
	return &TasksHandler{eng: eng, logger: logger}
}

// Handle processes the /tasks command.
func (h *TasksHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	sess, err := resolveSession(ctx, h.eng, message)
	if err != nil {
		return err
	}

	memberID := sess.MemberID
	if len(args) > 0 {
		memberID, err = strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return reply(bot, message, "❌ Usage: `/tasks` or `/tasks <member id>`")
		}
	}

	tasks, err := h.eng.ListAssignments(ctx, sess, memberID, repository.TaskFilters{})
	if err != nil {
		if errors.Is(err, engine.ErrNotAuthorized) {
			return reply(bot, message, "🔒 That member is not part of this household.")
		}
		return fmt.Errorf("list assignments: %w", err)
	}

	if len(tasks) == 0 {
		return reply(bot, message, "📭 No tasks yet.")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Tasks for member %d:*\n\n", memberID))
	for _, t := range tasks {
		sb.WriteString(fmt.Sprintf("%s *#%d* — %d XP (%s)\n", statusEmoji(t.Status), t.ID, t.BaseXP, t.Status))
	}
	return reply(bot, message, sb.String())
}

// ---------------------------------------------------------------------------
// ApproveHandler – /approve <task id>
// ---------------------------------------------------------------------------

// ApproveHandler handles the /approve command.
type ApproveHandler struct {
	eng    *engine.Engine
	logger *logrus.Logger
}

// NewApproveHandler creates a new ApproveHandler.
func NewApproveHandler(eng *engine.Engine, logger *logrus.Logger) *ApproveHandler {
	return &ApproveHandler{eng: eng, logger: logger}
}

// Handle processes the /approve command.
func (h *ApproveHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	sess, err := resolveSession(ctx, h.eng, message)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return reply(bot, message, "❌ Usage: `/approve <task id>`")
	}
	taskID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return reply(bot, message, "❌ Task id must be a number.")
	}

	xp, minutes, err := h.eng.Approve(ctx, sess, taskID)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrInvalidTransition):
			return reply(bot, message, "⚠️ That task is not waiting for review.")
		case errors.Is(err, engine.ErrNotAuthorized):
			return reply(bot, message, "🔒 That task belongs to another household.")
		case errors.Is(err, engine.ErrNotFound):
			return reply(bot, message, "❓ No such task.")
		}
		return fmt.Errorf("approve task %d: %w", taskID, err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"task_id": taskID,
		"minutes": minutes,
	}).Info("Task approved via bot")

	return reply(bot, message, fmt.Sprintf(
		"✅ *Task #%d approved!*\n\nCredited %d XP → *%d minutes* of screen time.",
		taskID, xp, minutes))
}

// ---------------------------------------------------------------------------
// DeclineHandler – /decline <task id>
// ---------------------------------------------------------------------------

// DeclineHandler handles the /decline command.
type DeclineHandler struct {
	eng    *engine.Engine
	logger *logrus.Logger
}

// NewDeclineHandler creates a new DeclineHandler.
func NewDeclineHandler(eng *engine.Engine, logger *logrus.Logger) *DeclineHandler {
	return &DeclineHandler{eng: eng, logger: logger}
}

// Handle processes the /decline command.
func (h *DeclineHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	sess, err := resolveSession(ctx, h.eng, message)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return reply(bot, message, "❌ Usage: `/decline <task id>`")
	}
	taskID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return reply(bot, message, "❌ Task id must be a number.")
	}

	score, err := h.eng.Decline(ctx, sess, taskID)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrInvalidTransition):
			return reply(bot, message, "⚠️ That task is not waiting for review.")
		case errors.Is(err, engine.ErrNotAuthorized):
			return reply(bot, message, "🔒 That task belongs to another household.")
		case errors.Is(err, engine.ErrNotFound):
			return reply(bot, message, "❓ No such task.")
		}
		return fmt.Errorf("decline task %d: %w", taskID, err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"task_id": taskID,
		"score":   score,
	}).Info("Task declined via bot")

	return reply(bot, message, fmt.Sprintf(
		"❌ *Task #%d declined.*\n\nTrust score is now *%d*.", taskID, score))
}
