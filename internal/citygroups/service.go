package citygroups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mundotango/citygroups/internal/metrics"
	"github.com/mundotango/citygroups/internal/models"
	"github.com/mundotango/citygroups/internal/repositories"
)

// Service links events and users to city groups. Every call is a single
// attempt; nothing is retried or queued.
type Service struct {
	store    Store
	resolver *Resolver
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		resolver: NewResolver(store, logger),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// AssignmentResult is the outcome of ProcessEventCityGroupAssignment.
type AssignmentResult struct {
	Success    bool                         `json:"success"`
	Assignment *models.EventGroupAssignment `json:"assignment,omitempty"`
	Group      *models.Group                `json:"group,omitempty"`
	Message    string                       `json:"message,omitempty"`
	Error      string                       `json:"error,omitempty"`
}

// AssignEventToCityGroup places the event in the city group for in, creating
// the group if needed. Repeating the call for the same event and location
// returns the existing assignment.
func (s *Service) AssignEventToCityGroup(ctx context.Context, eventID uuid.UUID, in LocationInput, createdBy uuid.UUID) (*models.EventGroupAssignment, *models.Group, error) {
	group, err := s.resolver.CreateGroupIfNeeded(ctx, in, createdBy)
	if err != nil {
		metrics.EventAssignments.WithLabelValues(models.AssignmentAutomatic, metrics.OutcomeFailed).Inc()
		return nil, nil, err
	}

	assignment, err := s.assign(ctx, eventID, group.ID, models.AssignmentAutomatic)
	if err != nil {
		return nil, nil, err
	}
	return assignment, group, nil
}

// ProcessEventCityGroupAssignment runs AssignEventToCityGroup and reports the
// outcome as a result value rather than an error.
func (s *Service) ProcessEventCityGroupAssignment(ctx context.Context, eventID uuid.UUID, in LocationInput, createdBy uuid.UUID) AssignmentResult {
	assignment, group, err := s.AssignEventToCityGroup(ctx, eventID, in, createdBy)
	if err != nil {
		s.logger.Warn("event city group assignment failed",
			zap.String("event_id", eventID.String()),
			zap.Error(err))

		msg := "Failed to assign event to city group."
		if errors.Is(err, ErrLocationUnresolved) {
			msg = "Could not determine city from event location."
		}
		return AssignmentResult{Success: false, Error: msg}
	}

	return AssignmentResult{
		Success:    true,
		Assignment: assignment,
		Group:      group,
		Message:    fmt.Sprintf("Event assigned to %s.", group.Name),
	}
}

// AssignEventToGroup links an event to a group chosen by hand.
func (s *Service) AssignEventToGroup(ctx context.Context, eventID, groupID uuid.UUID) (*models.EventGroupAssignment, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.assign(ctx, eventID, groupID, models.AssignmentManual)
}

func (s *Service) assign(ctx context.Context, eventID, groupID uuid.UUID, assignmentType string) (*models.EventGroupAssignment, error) {
	existing, err := s.store.GetEventGroupAssignment(ctx, eventID, groupID)
	if err == nil {
		metrics.EventAssignments.WithLabelValues(assignmentType, metrics.OutcomeExisting).Inc()
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		metrics.EventAssignments.WithLabelValues(assignmentType, metrics.OutcomeFailed).Inc()
		return nil, fmt.Errorf("lookup assignment: %w", err)
	}

	assignment, err := s.store.CreateEventGroupAssignment(ctx, &models.EventGroupAssignment{
		EventID:        eventID,
		GroupID:        groupID,
		AssignedAt:     s.now(),
		AssignmentType: assignmentType,
	})
	if err != nil {
		metrics.EventAssignments.WithLabelValues(assignmentType, metrics.OutcomeFailed).Inc()
		return nil, fmt.Errorf("create assignment: %w", err)
	}

	metrics.EventAssignments.WithLabelValues(assignmentType, metrics.OutcomeCreated).Inc()
	s.logger.Info("event assigned to group",
		zap.String("event_id", eventID.String()),
		zap.String("group_id", groupID.String()),
		zap.String("assignment_type", assignmentType))
	return assignment, nil
}

// RemoveEventGroupAssignment deletes the link. It returns
// repositories.ErrNotFound when there was nothing to remove.
func (s *Service) RemoveEventGroupAssignment(ctx context.Context, eventID, groupID uuid.UUID) error {
	removed, err := s.store.RemoveEventGroupAssignment(ctx, eventID, groupID)
	if err != nil {
		return fmt.Errorf("remove assignment: %w", err)
	}
	if !removed {
		return repositories.ErrNotFound
	}
	return nil
}

// AssignUserToCityGroup makes userID a member of the city group for in. The
// user becomes admin when the call creates the group.
func (s *Service) AssignUserToCityGroup(ctx context.Context, userID uuid.UUID, in LocationInput) (*models.Group, error) {
	group, created, err := s.resolver.ensureGroup(ctx, in, userID)
	if err != nil {
		return nil, err
	}

	// The founder is already counted; this only fills in a missing admin row.
	role := models.GroupRoleMember
	if created {
		role = models.GroupRoleAdmin
	}
	added, err := s.store.AddUserToGroup(ctx, userID, group.ID, role)
	if err != nil {
		return nil, err
	}
	if added && !created {
		if err := s.store.IncrementMemberCount(ctx, group.ID); err != nil {
			s.logger.Warn("could not update member count",
				zap.String("group_id", group.ID.String()),
				zap.Error(err))
		} else {
			group.MemberCount++
		}
	}
	return group, nil
}

// GetMembership returns userID's membership of groupID, or
// repositories.ErrNotFound.
func (s *Service) GetMembership(ctx context.Context, userID, groupID uuid.UUID) (*models.GroupMember, error) {
	return s.store.GetMembership(ctx, userID, groupID)
}

func (s *Service) GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	return s.store.GetGroup(ctx, id)
}

func (s *Service) GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error) {
	return s.store.GetGroupBySlug(ctx, slug)
}

func (s *Service) ListCityGroups(ctx context.Context, offset, limit int) ([]models.Group, int64, error) {
	return s.store.ListCityGroups(ctx, offset, limit)
}

// GetEventsByGroup returns the events linked to a group, after checking the
// group exists.
func (s *Service) GetEventsByGroup(ctx context.Context, groupID uuid.UUID) ([]models.Event, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.GetEventsByGroup(ctx, groupID)
}
