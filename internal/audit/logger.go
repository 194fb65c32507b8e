package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/YuriFontella/strawberry-auth/internal/audit/domain"
	auditrepo "github.com/YuriFontella/strawberry-auth/internal/audit/repository"
)

// Recorder writes a single audit event. Record is best-effort: failures are
// logged and never surface to the caller.
type Recorder interface {
	Record(ctx context.Context, userID, action, ip, userAgent, metadata string)
}

// Logger implements Recorder over the audit repository.
type Logger struct {
	repo auditrepo.Repository
	log  *zap.Logger
}

// NewLogger returns a Recorder that persists to repo. log may be nil.
func NewLogger(repo auditrepo.Repository, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{repo: repo, log: log}
}

// Record writes one audit event.
func (l *Logger) Record(ctx context.Context, userID, action, ip, userAgent, metadata string) {
	if l.repo == nil {
		return
	}
	e := &domain.Event{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		IP:        ip,
		UserAgent: userAgent,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, e); err != nil {
		l.log.Warn("audit event not recorded",
			zap.String("action", action),
			zap.Error(err))
	}
}
