package observ

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SecurityLog is the audit sink for authorization decisions.
//
// Guards call Event on notable allow/deny decisions. It is fire-and-forget:
// it never returns an error and must never influence the decision itself —
// a broken audit pipe degrades observability, not access control.
//
// The response body a denied caller sees is a generic "not found" or
// "forbidden"; which guard fired and why is only visible here.
type SecurityLog struct {
	logger *zap.Logger
}

func NewSecurityLog(logger *zap.Logger) *SecurityLog {
	return &SecurityLog{logger: logger.Named("security")}
}

// Event records a security-relevant decision. Extra detail goes in fields.
func (s *SecurityLog) Event(event string, tenantID, userID uuid.UUID, fields ...zap.Field) {
	if s == nil || s.logger == nil {
		return
	}
	base := []zap.Field{
		zap.String("event", event),
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", userID.String()),
	}
	s.logger.Info("security_event", append(base, fields...)...)
}

// Nop returns a SecurityLog that discards everything. Useful in tests
// where the audited decisions themselves are under test.
func Nop() *SecurityLog {
	return &SecurityLog{logger: zap.NewNop()}
}
