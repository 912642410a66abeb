package citygroups

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mundotango/citygroups/internal/models"
	"github.com/mundotango/citygroups/internal/repositories"
)

type memberKey struct{ group, user uuid.UUID }
type assignmentKey struct{ event, group uuid.UUID }

// memStore is an in-memory Store with the same upsert semantics as the
// GORM repository.
type memStore struct {
	mu          sync.Mutex
	groups      map[string]*models.Group
	members     map[memberKey]string
	assignments map[assignmentKey]*models.EventGroupAssignment
	events      map[uuid.UUID]models.Event

	upserts            int
	assignmentInserts  int
	failAddMember      error
	failAddMemberOnce  error
	failLookup         error
	failAssignmentRead error
}

func newMemStore() *memStore {
	return &memStore{
		groups:      map[string]*models.Group{},
		members:     map[memberKey]string{},
		assignments: map[assignmentKey]*models.EventGroupAssignment{},
		events:      map[uuid.UUID]models.Event{},
	}
}

func (m *memStore) GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.groups {
		if g.ID == id {
			cp := *g
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memStore) GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLookup != nil {
		return nil, m.failLookup
	}
	g, ok := m.groups[slug]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memStore) UpsertGroup(ctx context.Context, group *models.Group) (*models.Group, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if existing, ok := m.groups[group.Slug]; ok {
		cp := *existing
		return &cp, false, nil
	}
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	stored := *group
	m.groups[group.Slug] = &stored
	return group, true, nil
}

func (m *memStore) ListCityGroups(ctx context.Context, offset, limit int) ([]models.Group, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.Group
	for _, g := range m.groups {
		all = append(all, *g)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], total, nil
}

func (m *memStore) AddUserToGroup(ctx context.Context, userID, groupID uuid.UUID, role string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAddMember != nil {
		return false, m.failAddMember
	}
	if err := m.failAddMemberOnce; err != nil {
		m.failAddMemberOnce = nil
		return false, err
	}
	key := memberKey{groupID, userID}
	if _, ok := m.members[key]; ok {
		return false, nil
	}
	m.members[key] = role
	return true, nil
}

func (m *memStore) IncrementMemberCount(ctx context.Context, groupID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.groups {
		if g.ID == groupID {
			g.MemberCount++
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (m *memStore) GetMembership(ctx context.Context, userID, groupID uuid.UUID) (*models.GroupMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.members[memberKey{groupID, userID}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &models.GroupMember{GroupID: groupID, UserID: userID, Role: role}, nil
}

func (m *memStore) GetEventGroupAssignment(ctx context.Context, eventID, groupID uuid.UUID) (*models.EventGroupAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAssignmentRead != nil {
		return nil, m.failAssignmentRead
	}
	a, ok := m.assignments[assignmentKey{eventID, groupID}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) CreateEventGroupAssignment(ctx context.Context, assignment *models.EventGroupAssignment) (*models.EventGroupAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := assignmentKey{assignment.EventID, assignment.GroupID}
	if existing, ok := m.assignments[key]; ok {
		cp := *existing
		return &cp, nil
	}
	m.assignmentInserts++
	if assignment.ID == uuid.Nil {
		assignment.ID = uuid.New()
	}
	stored := *assignment
	m.assignments[key] = &stored
	return assignment, nil
}

func (m *memStore) RemoveEventGroupAssignment(ctx context.Context, eventID, groupID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := assignmentKey{eventID, groupID}
	if _, ok := m.assignments[key]; !ok {
		return false, nil
	}
	delete(m.assignments, key)
	return true, nil
}

func (m *memStore) GetEventsByGroup(ctx context.Context, groupID uuid.UUID) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var events []models.Event
	for key := range m.assignments {
		if key.group != groupID {
			continue
		}
		if ev, ok := m.events[key.event]; ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

func (m *memStore) memberRole(groupID, userID uuid.UUID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.members[memberKey{groupID, userID}]
	return role, ok
}

var errStorage = errors.New("storage unavailable")
