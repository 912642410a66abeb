package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mundotango/citygroups/internal/models"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&group).Error; err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

func (r *GroupRepository) GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

// UpsertGroup inserts group unless a group with the same slug exists, in
// which case the stored group is returned. created reports whether this call
// inserted the row.
func (r *GroupRepository) UpsertGroup(ctx context.Context, group *models.Group) (*models.Group, bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(group)
	if result.Error != nil {
		return nil, false, fmt.Errorf("insert group %s: %w", group.Slug, result.Error)
	}
	if result.RowsAffected == 1 {
		return group, true, nil
	}

	existing, err := r.GetGroupBySlug(ctx, group.Slug)
	if err != nil {
		return nil, false, fmt.Errorf("fetch group %s after conflict: %w", group.Slug, err)
	}
	return existing, false, nil
}

func (r *GroupRepository) ListCityGroups(ctx context.Context, offset, limit int) ([]models.Group, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Group{}).Where("type = ?", models.GroupTypeCity)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var groups []models.Group
	if err := query.Order("member_count DESC, name ASC").Offset(offset).Limit(limit).Find(&groups).Error; err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}

// AddUserToGroup records a membership. added is false when the user already
// belonged to the group.
func (r *GroupRepository) AddUserToGroup(ctx context.Context, userID, groupID uuid.UUID, role string) (bool, error) {
	member := models.GroupMember{GroupID: groupID, UserID: userID, Role: role}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "group_id"}, {Name: "user_id"}}, DoNothing: true}).
		Create(&member)
	if result.Error != nil {
		return false, fmt.Errorf("add user %s to group %s: %w", userID, groupID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *GroupRepository) IncrementMemberCount(ctx context.Context, groupID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Group{}).
		Where("id = ?", groupID).
		UpdateColumn("member_count", gorm.Expr("member_count + 1")).Error
}

func (r *GroupRepository) GetMembership(ctx context.Context, userID, groupID uuid.UUID) (*models.GroupMember, error) {
	var member models.GroupMember
	if err := r.db.WithContext(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error; err != nil {
		return nil, translate(err)
	}
	return &member, nil
}

func (r *GroupRepository) GetEventGroupAssignment(ctx context.Context, eventID, groupID uuid.UUID) (*models.EventGroupAssignment, error) {
	var assignment models.EventGroupAssignment
	if err := r.db.WithContext(ctx).Where("event_id = ? AND group_id = ?", eventID, groupID).First(&assignment).Error; err != nil {
		return nil, translate(err)
	}
	return &assignment, nil
}

// CreateEventGroupAssignment inserts the link row. If a concurrent caller
// inserted the same (event, group) pair first, that row is returned instead.
func (r *GroupRepository) CreateEventGroupAssignment(ctx context.Context, assignment *models.EventGroupAssignment) (*models.EventGroupAssignment, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}, {Name: "group_id"}}, DoNothing: true}).
		Create(assignment)
	if result.Error != nil {
		return nil, fmt.Errorf("insert assignment of event %s: %w", assignment.EventID, result.Error)
	}
	if result.RowsAffected == 1 {
		return assignment, nil
	}
	return r.GetEventGroupAssignment(ctx, assignment.EventID, assignment.GroupID)
}

func (r *GroupRepository) RemoveEventGroupAssignment(ctx context.Context, eventID, groupID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("event_id = ? AND group_id = ?", eventID, groupID).
		Delete(&models.EventGroupAssignment{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GroupRepository) GetEventsByGroup(ctx context.Context, groupID uuid.UUID) ([]models.Event, error) {
	var events []models.Event
	err := r.db.WithContext(ctx).
		Joins("JOIN event_group_assignments ON event_group_assignments.event_id = events.id").
		Where("event_group_assignments.group_id = ?", groupID).
		Order("events.start_time ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
