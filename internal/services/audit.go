package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/shop-backend/internal/models"
	repo "github.com/baharkarakas/shop-backend/internal/repository"
	"github.com/baharkarakas/shop-backend/internal/worker"
)

const auditTimeout = 5 * time.Second

// Auditor writes audit entries off the request path. Failures are logged and
// never reach the caller.
type Auditor struct {
	logs repo.AuditLogs
	wp   *worker.Pool
	log  *slog.Logger
}

// NewAuditor returns an Auditor. With a nil pool entries are written inline.
func NewAuditor(logs repo.AuditLogs, wp *worker.Pool, log *slog.Logger) *Auditor {
	return &Auditor{logs: logs, wp: wp, log: log}
}

func (a *Auditor) Record(entityType, entityID, action, actorID string, details map[string]any) {
	if a == nil || a.logs == nil {
		return
	}
	entry := models.AuditLog{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
	write := func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		if err := a.logs.Create(ctx, entry); err != nil {
			a.log.Warn("audit write failed", "entity", entityType, "id", entityID, "action", action, "err", err)
		}
	}
	if a.wp == nil {
		write()
		return
	}
	if !a.wp.Submit(write) {
		a.log.Warn("audit queue full, entry dropped", "entity", entityType, "id", entityID, "action", action)
	}
}
