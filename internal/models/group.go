package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	GroupTypeCity = "city"

	GroupRoleAdmin  = "admin"
	GroupRoleMember = "member"
)

// Group is a community scoped to a city. City groups are created lazily the
// first time an event or user needs one and are keyed by their slug.
type Group struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	Name        string    `gorm:"not null"`
	Slug        string    `gorm:"uniqueIndex;not null"`
	Type        string    `gorm:"not null;default:'city';index"`
	Description string
	City        string
	Country     string
	IsPrivate   bool       `gorm:"not null;default:false"`
	MemberCount int        `gorm:"not null;default:0"`
	CreatedBy   *uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (group *Group) BeforeCreate(tx *gorm.DB) (err error) {
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	return
}

type GroupMember struct {
	GroupID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_group_member"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_group_member"`
	Role     string    `gorm:"not null;default:'member'"`
	JoinedAt time.Time
}

func (GroupMember) TableName() string {
	return "group_members"
}

func (member *GroupMember) BeforeCreate(tx *gorm.DB) (err error) {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}
	return
}
