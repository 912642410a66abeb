package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AssignmentAutomatic = "automatic"
	AssignmentManual    = "manual"
)

type EventGroupAssignment struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	EventID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_event_group"`
	GroupID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_event_group;index"`
	AssignedAt     time.Time `gorm:"not null"`
	AssignmentType string    `gorm:"not null;default:'automatic'"`
}

func (EventGroupAssignment) TableName() string {
	return "event_group_assignments"
}

func (assignment *EventGroupAssignment) BeforeCreate(tx *gorm.DB) (err error) {
	if assignment.ID == uuid.Nil {
		assignment.ID = uuid.New()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	return
}
