// Package citygroups places events and users into the city group that
// matches their location, creating the group on first use.
package citygroups

import (
	"context"

	"github.com/google/uuid"

	"github.com/mundotango/citygroups/internal/models"
)

// Store is the persistence the service needs. Lookups report a miss with
// repositories.ErrNotFound.
type Store interface {
	GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error)
	GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error)
	UpsertGroup(ctx context.Context, group *models.Group) (*models.Group, bool, error)
	ListCityGroups(ctx context.Context, offset, limit int) ([]models.Group, int64, error)
	AddUserToGroup(ctx context.Context, userID, groupID uuid.UUID, role string) (bool, error)
	IncrementMemberCount(ctx context.Context, groupID uuid.UUID) error
	GetMembership(ctx context.Context, userID, groupID uuid.UUID) (*models.GroupMember, error)
	GetEventGroupAssignment(ctx context.Context, eventID, groupID uuid.UUID) (*models.EventGroupAssignment, error)
	CreateEventGroupAssignment(ctx context.Context, assignment *models.EventGroupAssignment) (*models.EventGroupAssignment, error)
	RemoveEventGroupAssignment(ctx context.Context, eventID, groupID uuid.UUID) (bool, error)
	GetEventsByGroup(ctx context.Context, groupID uuid.UUID) ([]models.Event, error)
}
