package screentime

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Granter pushes earned minutes to the device-side screen-time enforcement.
// The engine treats it as fire-and-forget: a grant failure is logged, never
// surfaced, and never rolls back the reward that was already committed.
type Granter interface {
	GrantMinutes(ctx context.Context, memberID int64, minutes int)
}

// LogGranter is the default Granter. It only records the grant; actual
// enforcement is handled by the native OS integration outside this service.
type LogGranter struct {
	logger *logrus.Logger
}

// NewLogGranter creates a LogGranter.
func NewLogGranter(logger *logrus.Logger) *LogGranter {
	return &LogGranter{logger: logger}
}

// GrantMinutes logs the grant.
func (g *LogGranter) GrantMinutes(_ context.Context, memberID int64, minutes int) {
	g.logger.WithFields(logrus.Fields{
		"member_id": memberID,
		"minutes":   minutes,
	}).Info("Screen-time minutes granted")
}
