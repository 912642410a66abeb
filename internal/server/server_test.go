package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mundotango/citygroups/internal/citygroups"
	"github.com/mundotango/citygroups/internal/compliance"
	"github.com/mundotango/citygroups/internal/models"
	"github.com/mundotango/citygroups/internal/repositories"
	"github.com/mundotango/citygroups/internal/server"
	"github.com/mundotango/citygroups/internal/testutil"
)

const jwtSecret = "integration-secret-with-32-chars-min"

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T, withAuditor bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", jwtSecret)

	db := testutil.NewDB(t)
	logger := zaptest.NewLogger(t)

	deps := server.Dependencies{
		DB:         db,
		CityGroups: citygroups.NewService(repositories.NewGroupRepository(db), logger),
		Logger:     logger,
		JWTSecret:  jwtSecret,
	}
	if withAuditor {
		store := repositories.NewComplianceAuditRepository(db)
		require.NoError(t, store.EnsureSchema(context.Background()))
		deps.Auditor = compliance.NewAuditor(
			compliance.ScorerFunc(func(context.Context) (compliance.Scores, error) {
				return compliance.Scores{GDPR: 70, SOC2: 90, Enterprise: 95, MultiTenant: 95}, nil
			}),
			store, logger)
	}
	return &testServer{t: t, router: server.NewRouter(deps)}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, path, nil)
	case url.Values:
		req = httptest.NewRequest(method, path, strings.NewReader(b.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) registerAndLogin(email, city, country string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/v1/register", "", map[string]string{
		"email":     email,
		"password":  "milonga-password",
		"name":      "Organizer",
		"city":      city,
		"country":   country,
		"role_name": models.RoleOrganizer,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/v1/login", "", map[string]string{
		"email":    email,
		"password": "milonga-password",
	})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return decode[struct {
		Token string `json:"token"`
	}](s.t, w).Token
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"role":    models.RoleAdmin,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return token
}

func eventForm(location string) url.Values {
	return url.Values{
		"title":       {"Milonga del Sur"},
		"description": {"Friday night milonga"},
		"start_time":  {"2026-11-06T21:00:00Z"},
		"end_time":    {"2026-11-07T02:00:00Z"},
		"location":    {location},
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, false)
	w := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCityGroupFlow(t *testing.T) {
	s := newTestServer(t, false)
	token := s.registerAndLogin("org@example.com", "Buenos Aires", "Argentina")

	// Registration placed the organizer in their home city group.
	w := s.do(http.MethodGet, "/v1/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[struct {
		Groups []models.Group `json:"groups"`
	}](t, w)
	require.Len(t, profile.Groups, 1)
	assert.Equal(t, "tango-buenos-aires-argentina", profile.Groups[0].Slug)

	w = s.do(http.MethodPost, "/v1/events", token, eventForm("buenos aires, argentina"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		EventID   uuid.UUID                   `json:"event_id"`
		CityGroup citygroups.AssignmentResult `json:"city_group"`
	}](t, w)
	require.True(t, created.CityGroup.Success, created.CityGroup.Error)
	assert.Equal(t, "tango-buenos-aires-argentina", created.CityGroup.Group.Slug)
	assert.Equal(t, models.AssignmentAutomatic, created.CityGroup.Assignment.AssignmentType)

	w = s.do(http.MethodGet, "/v1/groups/slug/tango-buenos-aires-argentina", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	group := decode[models.Group](t, w)
	assert.Equal(t, created.CityGroup.Group.ID, group.ID)

	w = s.do(http.MethodGet, "/v1/groups/"+group.ID.String()+"/events", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	events := decode[struct {
		Events []models.Event `json:"events"`
	}](t, w).Events
	require.Len(t, events, 1)
	assert.Equal(t, created.EventID, events[0].ID)

	// Re-running assignment is idempotent.
	w = s.do(http.MethodPost, "/v1/events/"+created.EventID.String()+"/city-group", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	again := decode[citygroups.AssignmentResult](t, w)
	assert.Equal(t, created.CityGroup.Assignment.ID, again.Assignment.ID)

	w = s.do(http.MethodGet, "/v1/city-groups/resolve?location=Buenos+Aires+-+Argentina", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resolved := decode[struct {
		Slug  string        `json:"slug"`
		Group *models.Group `json:"group"`
	}](t, w)
	assert.Equal(t, "tango-buenos-aires-argentina", resolved.Slug)
	require.NotNil(t, resolved.Group)
	assert.Equal(t, group.ID, resolved.Group.ID)

	path := "/v1/groups/" + group.ID.String() + "/events/" + created.EventID.String()
	w = s.do(http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateEvent_UnresolvableLocation(t *testing.T) {
	s := newTestServer(t, false)
	token := s.registerAndLogin("org@example.com", "", "")

	w := s.do(http.MethodPost, "/v1/events", token, eventForm("X"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		CityGroup citygroups.AssignmentResult `json:"city_group"`
	}](t, w)
	assert.False(t, created.CityGroup.Success)
	assert.Equal(t, "Could not determine city from event location.", created.CityGroup.Error)
}

func TestEventOwnership(t *testing.T) {
	s := newTestServer(t, false)
	owner := s.registerAndLogin("owner@example.com", "", "")
	other := s.registerAndLogin("other@example.com", "", "")

	w := s.do(http.MethodPost, "/v1/events", owner, eventForm("Paris, France"))
	require.Equal(t, http.StatusCreated, w.Code)
	eventID := decode[struct {
		EventID uuid.UUID `json:"event_id"`
	}](t, w).EventID

	w = s.do(http.MethodPost, "/v1/events/"+eventID.String()+"/city-group", other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/v1/events/"+eventID.String()+"/city-group", adminToken(t), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/v1/events/"+eventID.String(), other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodDelete, "/v1/events/"+eventID.String(), owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestComplianceEndpoints(t *testing.T) {
	s := newTestServer(t, true)
	admin := adminToken(t)

	w := s.do(http.MethodGet, "/v1/admin/compliance/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	organizer := s.registerAndLogin("org@example.com", "", "")
	w = s.do(http.MethodGet, "/v1/admin/compliance/status", organizer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/v1/admin/compliance/status", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/v1/admin/compliance/refresh", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	refreshed := decode[struct {
		Audit models.ComplianceAuditLog `json:"audit"`
	}](t, w).Audit
	assert.Equal(t, 88, refreshed.OverallScore)
	assert.Equal(t, models.AuditTypeManual, refreshed.AuditType)
	assert.Len(t, refreshed.CriticalIssues, 1)

	w = s.do(http.MethodGet, "/v1/admin/compliance/status", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[struct {
		Status    models.ComplianceAuditLog `json:"status"`
		IsRunning bool                      `json:"is_running"`
	}](t, w)
	assert.Equal(t, 88, status.Status.OverallScore)
	assert.False(t, status.IsRunning)

	w = s.do(http.MethodGet, "/v1/admin/compliance/history?limit=5", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[struct {
		History []models.ComplianceAuditLog `json:"history"`
		Count   int                         `json:"count"`
	}](t, w)
	assert.Equal(t, 1, history.Count)
	assert.Equal(t, []string{"GDPR compliance score 70% is below the critical threshold of 80%"},
		[]string(history.History[0].CriticalIssues))
}

func TestComplianceDisabled(t *testing.T) {
	s := newTestServer(t, false)
	w := s.do(http.MethodGet, "/v1/admin/compliance/status", adminToken(t), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestJoinCityGroup(t *testing.T) {
	s := newTestServer(t, false)
	founder := s.registerAndLogin("founder@example.com", "", "")
	dancer := s.registerAndLogin("dancer@example.com", "", "")

	type joined struct {
		Group      models.Group       `json:"group"`
		Membership models.GroupMember `json:"membership"`
	}
	body := map[string]string{"location": "Montevideo, Uruguay"}

	w := s.do(http.MethodPost, "/v1/me/city-group", founder, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[joined](t, w)
	assert.Equal(t, "tango-montevideo-uruguay", first.Group.Slug)
	assert.Equal(t, models.GroupRoleAdmin, first.Membership.Role)
	assert.Equal(t, 1, first.Group.MemberCount)

	w = s.do(http.MethodPost, "/v1/me/city-group", dancer, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	second := decode[joined](t, w)
	assert.Equal(t, first.Group.ID, second.Group.ID)
	assert.Equal(t, models.GroupRoleMember, second.Membership.Role)
	assert.False(t, second.Membership.JoinedAt.IsZero())
	assert.Equal(t, 2, second.Group.MemberCount)

	w = s.do(http.MethodPost, "/v1/me/city-group", dancer, map[string]string{"location": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
