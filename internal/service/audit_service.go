package service

import (
	"context"
	"encoding/json"

	"fleetbilling/internal/model"
	"fleetbilling/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

type AuditLogResponse struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Username   string         `json:"username"`
	Action     string         `json:"action"`
	EntityID   string         `json:"entity_id"`
	EntityName string         `json:"entity_name"`
	Details    datatypes.JSON `json:"details" swaggertype:"object"`
	CreatedAt  string         `json:"created_at"`
}

type AuditLogFilter struct {
	Action   string `form:"action" binding:"omitempty,max=50"`
	EntityID string `form:"entity_id" binding:"omitempty,max=140"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, filter AuditLogFilter, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// GetAuditLogs returns one page of audit entries, newest first, with users pre-loaded
func (s *auditService) GetAuditLogs(ctx context.Context, filter AuditLogFilter, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.auditRepo.List(ctx, repository.AuditListFilter{
		Action:   filter.Action,
		EntityID: filter.EntityID,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		userID := ""
		if l.User != nil {
			username = l.User.Username
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Username:   username,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}

// writeAuditLog records an audit entry. Failures are logged and never returned.
// An empty userID marks a system action.
func writeAuditLog(ctx context.Context, repo repository.AuditRepository, log logrus.FieldLogger, userID, action, entityID, entityName string, details interface{}) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	entry := model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    datatypes.JSON(detailsJSON),
	}
	if userID != "" {
		if parsed, err := uuid.Parse(userID); err == nil {
			entry.UserID = &parsed
		}
	}

	if err := repo.Log(ctx, &entry); err != nil {
		log.WithError(err).WithFields(logrus.Fields{"action": action, "entity_id": entityID}).Warn("failed to write audit log")
	}
}
