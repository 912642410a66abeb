package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	AuditTypeScheduled = "scheduled"
	AuditTypeStartup   = "startup"
	AuditTypeManual    = "manual"
)

// ComplianceAuditLog is one audit run. Rows are append-only.
type ComplianceAuditLog struct {
	ID               uint                        `gorm:"primaryKey" json:"id"`
	Timestamp        time.Time                   `gorm:"not null;index" json:"timestamp"`
	AuditType        string                      `gorm:"not null" json:"auditType"`
	OverallScore     int                         `gorm:"not null" json:"overallScore"`
	GDPRScore        int                         `gorm:"column:gdpr_score;not null" json:"gdprScore"`
	SOC2Score        int                         `gorm:"column:soc2_score;not null" json:"soc2Score"`
	EnterpriseScore  int                         `gorm:"not null" json:"enterpriseScore"`
	MultiTenantScore int                         `gorm:"not null" json:"multiTenantScore"`
	CriticalIssues   datatypes.JSONSlice[string] `gorm:"type:json" json:"criticalIssues"`
	Warnings         datatypes.JSONSlice[string] `gorm:"type:json" json:"warnings"`
	Recommendations  datatypes.JSONSlice[string] `gorm:"type:json" json:"recommendations"`
	ExecutionTimeMs  int64                       `gorm:"not null" json:"executionTimeMs"`
	TriggeredBy      string                      `gorm:"not null" json:"triggeredBy"`
}

func (ComplianceAuditLog) TableName() string {
	return "compliance_audit_logs"
}
