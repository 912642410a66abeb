package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/mundotango/citygroups/internal/models"
)

type ComplianceAuditRepository struct {
	db *gorm.DB
}

func NewComplianceAuditRepository(db *gorm.DB) *ComplianceAuditRepository {
	return &ComplianceAuditRepository{db: db}
}

// EnsureSchema creates compliance_audit_logs if it is missing.
func (r *ComplianceAuditRepository) EnsureSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&models.ComplianceAuditLog{})
}

func (r *ComplianceAuditRepository) Insert(ctx context.Context, entry *models.ComplianceAuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Recent returns up to limit rows, newest first.
func (r *ComplianceAuditRepository) Recent(ctx context.Context, limit int) ([]models.ComplianceAuditLog, error) {
	var logs []models.ComplianceAuditLog
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
