package citygroups

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mundotango/citygroups/internal/helpers"
	"github.com/mundotango/citygroups/internal/metrics"
	"github.com/mundotango/citygroups/internal/models"
	"github.com/mundotango/citygroups/internal/repositories"
)

// ErrLocationUnresolved means no city could be determined from the input.
var ErrLocationUnresolved = errors.New("could not determine a city from the location")

// LocationInput carries either a free-text location or explicit city and
// country fields. Explicit fields take precedence.
type LocationInput struct {
	Location string `json:"location" form:"location"`
	City     string `json:"city" form:"city"`
	Country  string `json:"country" form:"country"`
}

// Resolve returns the city and country described by in. Explicit fields
// are normalized like parsed text; an unusable explicit city falls back to
// the free-text location.
func (in LocationInput) Resolve() (helpers.Location, error) {
	if loc, ok := helpers.NormalizeLocation(in.City, in.Country); ok {
		return loc, nil
	}

	loc, ok := helpers.ParseLocationString(in.Location)
	if !ok {
		return helpers.Location{}, ErrLocationUnresolved
	}
	return loc, nil
}

type Resolver struct {
	store  Store
	logger *zap.Logger
}

func NewResolver(store Store, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// FindGroupByLocation looks up the city group for in without creating one.
// It returns ErrLocationUnresolved or repositories.ErrNotFound on a miss.
func (r *Resolver) FindGroupByLocation(ctx context.Context, in LocationInput) (*models.Group, error) {
	loc, err := in.Resolve()
	if err != nil {
		return nil, err
	}
	return r.store.GetGroupBySlug(ctx, helpers.GenerateCityGroupSlug(loc.City, loc.Country))
}

// CreateGroupIfNeeded returns the city group for in, creating it when absent.
// A non-nil createdBy becomes the group's admin; failing to record that
// membership is logged and does not undo the group.
func (r *Resolver) CreateGroupIfNeeded(ctx context.Context, in LocationInput, createdBy uuid.UUID) (*models.Group, error) {
	group, _, err := r.ensureGroup(ctx, in, createdBy)
	return group, err
}

// ensureGroup is CreateGroupIfNeeded that also reports whether this call
// inserted the group. A created group already counts createdBy in its
// MemberCount, whether or not the admin membership row was written.
func (r *Resolver) ensureGroup(ctx context.Context, in LocationInput, createdBy uuid.UUID) (*models.Group, bool, error) {
	loc, err := in.Resolve()
	if err != nil {
		return nil, false, err
	}

	slug := helpers.GenerateCityGroupSlug(loc.City, loc.Country)
	existing, err := r.store.GetGroupBySlug(ctx, slug)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup city group %s: %w", slug, err)
	}

	group := newCityGroup(loc, slug, createdBy)
	stored, created, err := r.store.UpsertGroup(ctx, group)
	if err != nil {
		return nil, false, fmt.Errorf("create city group %s: %w", slug, err)
	}
	if !created {
		return stored, false, nil
	}

	metrics.CityGroupsCreated.Inc()
	r.logger.Info("city group created",
		zap.String("slug", stored.Slug),
		zap.String("group_id", stored.ID.String()),
		zap.String("created_by", createdBy.String()))

	if createdBy != uuid.Nil {
		if _, err := r.store.AddUserToGroup(ctx, createdBy, stored.ID, models.GroupRoleAdmin); err != nil {
			metrics.GroupMembershipFailures.Inc()
			r.logger.Warn("could not add creator to new city group",
				zap.String("group_id", stored.ID.String()),
				zap.String("user_id", createdBy.String()),
				zap.Error(err))
		}
	}

	return stored, true, nil
}

func newCityGroup(loc helpers.Location, slug string, createdBy uuid.UUID) *models.Group {
	group := &models.Group{
		Name:        helpers.CityGroupName(loc.City, loc.Country),
		Slug:        slug,
		Type:        models.GroupTypeCity,
		Description: fmt.Sprintf("Connect with tango dancers in %s", loc.City),
		City:        loc.City,
		Country:     loc.Country,
		IsPrivate:   false,
	}
	if createdBy != uuid.Nil {
		group.CreatedBy = &createdBy
		group.MemberCount = 1
	}
	return group
}
