package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/nd-ahl/envive/internal/engine"
	"github.com/nd-ahl/envive/internal/models"
)

func tierEmoji(t models.TrustTier) string {
	switch t {
	case models.TierExcellent:
		return "🌟"
	case models.TierGood:
		return "🙂"
	case models.TierFair:
		return "😐"
	case models.TierPoor:
		return "⚠️"
	case models.TierVeryPoor:
		return "🚨"
	default:
		return "⬜"
	}
}

// memberArg resolves the optional member-id argument, defaulting to the
// caller.
func memberArg(sess engine.Session, args []string) (int64, error) {
	if len(args) == 0 {
		return sess.MemberID, nil
	}
	return strconv.ParseInt(args[0], 10, 64)
}

// ---------------------------------------------------------------------------
// TrustHandler – /trust [member id]
// ---------------------------------------------------------------------------

// TrustHandler handles the /trust command.
type TrustHandler struct {
	eng    *engine.Engine
	logger *logrus.Logger
}

// NewTrustHandler creates a new TrustHandler.
func NewTrustHandler(eng *engine.Engine, logger *logrus.Logger) *TrustHandler {
	return &TrustHandler{eng: eng, logger: logger}
}

// Handle processes the /trust command.
func (h *TrustHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	sess, err := resolveSession(ctx, h.eng, message)
	if err != nil {
		return err
	}
	memberID, err := memberArg(sess, args)
	if err != nil {
		return reply(bot, message, "❌ Usage: `/trust` or `/trust <member id>`")
	}

	status, err := h.eng.CurrentTrust(ctx, sess, memberID)
	if err != nil {
		if errors.Is(err, engine.ErrNotAuthorized) || errors.Is(err, engine.ErrInvalidMember) {
			return reply(bot, message, "🔒 That member is not part of this household.")
		}
		return fmt.Errorf("current trust for member %d: %w", memberID, err)
	}

	return reply(bot, message, fmt.Sprintf(
		"%s *Trust for member %d*\n\nScore: *%d / 100*\nTier: %s\nReward multiplier: *%.1fx*",
		tierEmoji(status.Tier), memberID, status.Score, status.Tier, status.Multiplier))
}

// ---------------------------------------------------------------------------
// BalanceHandler – /balance [member id]
// ---------------------------------------------------------------------------

// BalanceHandler handles the /balance command.
type BalanceHandler struct {
	eng    *engine.Engine
	logger *logrus.Logger
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(eng *engine.Engine, logger *logrus.Logger) *BalanceHandler {
	return &BalanceHandler{eng: eng, logger: logger}
}

// Handle processes the /balance command.
func (h *BalanceHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	sess, err := resolveSession(ctx, h.eng, message)
	if err != nil {
		return err
	}
	memberID, err := memberArg(sess, args)
	if err != nil {
		return reply(bot, message, "❌ Usage: `/balance` or `/balance <member id>`")
	}

	balance, err := h.eng.CurrentBalance(ctx, sess, memberID)
	if err != nil {
		if errors.Is(err, engine.ErrNotAuthorized) || errors.Is(err, engine.ErrInvalidMember) {
			return reply(bot, message, "🔒 That member is not part of this household.")
		}
		return fmt.Errorf("current balance for member %d: %w", memberID, err)
	}

	return reply(bot, message, fmt.Sprintf(
		"💰 *Balance for member %d*\n\nXP: *%d*\nScreen time: *%d minutes*",
		memberID, balance.XPBalance, balance.MinutesBalance))
}
