package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/stemkit-identity/internal/models"
	"github.com/noah-isme/stemkit-identity/pkg/jobs"
)

const auditResource = "auth"

// AuditService writes audit records asynchronously. A nil *AuditService drops
// every record.
type AuditService struct {
	queue  *jobs.Queue[models.AuditLog]
	logger *zap.Logger
}

// NewAuditService constructs the service and its worker queue.
func NewAuditService(store AuditStore, cfg jobs.QueueConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Logger = logger
	handler := func(ctx context.Context, job jobs.Job[models.AuditLog]) error {
		entry := job.Payload
		return store.Create(ctx, &entry)
	}
	return &AuditService{
		queue:  jobs.NewQueue[models.AuditLog]("audit", handler, cfg),
		logger: logger,
	}
}

// Start launches the workers.
func (s *AuditService) Start(ctx context.Context) {
	if s == nil {
		return
	}
	s.queue.Start(ctx)
}

// Stop flushes pending records and stops the workers.
func (s *AuditService) Stop() {
	if s == nil {
		return
	}
	s.queue.Stop()
}

// Record enqueues an audit entry. It never blocks the caller.
func (s *AuditService) Record(action, userID, actorID, ip string, details map[string]string) {
	if s == nil {
		return
	}
	entry := models.AuditLog{
		ID:        uuid.NewString(),
		Action:    action,
		Resource:  auditResource,
		IPAddress: ip,
	}
	if userID != "" {
		entry.UserID = &userID
		entry.ResourceID = &userID
	}
	if actorID != "" {
		entry.ActorID = &actorID
	}
	if len(details) > 0 {
		if payload, err := json.Marshal(details); err == nil {
			entry.Details = payload
		}
	}

	if err := s.queue.TryEnqueue(jobs.Job[models.AuditLog]{ID: entry.ID, Payload: entry}); err != nil {
		level := s.logger.Warn
		if errors.Is(err, jobs.ErrQueueFull) {
			level = s.logger.Error
		}
		level("failed to enqueue audit log", zap.String("action", action), zap.Error(err))
	}
}
