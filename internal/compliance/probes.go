package compliance

import (
	"context"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mundotango/citygroups/internal/models"
)

const (
	minJWTSecretLen   = 32
	passwordSampleLen = 100
)

// ProbeConfig carries settings the probes inspect.
type ProbeConfig struct {
	JWTSecret string
}

// NewDatabaseScorer builds the probe set run against the service database.
func NewDatabaseScorer(db *gorm.DB, cfg ProbeConfig) *ProbeScorer {
	return &ProbeScorer{
		GDPR: []Probe{
			{Name: "passwords are bcrypt hashed", Check: passwordsHashed(db)},
			{Name: "users have a contact email", Check: countIsZero(db, "SELECT COUNT(*) FROM users WHERE deleted_at IS NULL AND (email IS NULL OR email = '')")},
		},
		SOC2: []Probe{
			{Name: "database reachable", Check: databaseReachable(db)},
			{Name: "token signing secret configured", Check: func(context.Context) (bool, error) {
				return len(cfg.JWTSecret) >= minJWTSecretLen, nil
			}},
			{Name: "audit log table present", Check: func(ctx context.Context) (bool, error) {
				return db.WithContext(ctx).Migrator().HasTable(&models.ComplianceAuditLog{}), nil
			}},
		},
		Enterprise: []Probe{
			{Name: "roles seeded", Check: func(ctx context.Context) (bool, error) {
				var n int64
				err := db.WithContext(ctx).Model(&models.Role{}).
					Where("name IN ?", []string{models.RoleAdmin, models.RoleOrganizer, models.RoleDancer}).
					Count(&n).Error
				return n == 3, err
			}},
			{Name: "city groups have an owner", Check: countIsZero(db, "SELECT COUNT(*) FROM groups WHERE type = 'city' AND created_by IS NULL")},
		},
		MultiTenant: []Probe{
			{Name: "memberships reference existing groups", Check: countIsZero(db,
				"SELECT COUNT(*) FROM group_members m LEFT JOIN groups g ON g.id = m.group_id WHERE g.id IS NULL")},
			{Name: "assignments reference existing groups", Check: countIsZero(db,
				"SELECT COUNT(*) FROM event_group_assignments a LEFT JOIN groups g ON g.id = a.group_id WHERE g.id IS NULL")},
		},
	}
}

func countIsZero(db *gorm.DB, query string) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		var n int64
		if err := db.WithContext(ctx).Raw(query).Scan(&n).Error; err != nil {
			return false, err
		}
		return n == 0, nil
	}
}

func databaseReachable(db *gorm.DB) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		sqlDB, err := db.DB()
		if err != nil {
			return false, err
		}
		return sqlDB.PingContext(ctx) == nil, nil
	}
}

// passwordsHashed samples recent users and checks their stored passwords
// are bcrypt hashes of at least the default cost.
func passwordsHashed(db *gorm.DB) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		var hashes []string
		err := db.WithContext(ctx).Model(&models.User{}).
			Order("created_at DESC").
			Limit(passwordSampleLen).
			Pluck("password", &hashes).Error
		if err != nil {
			return false, err
		}
		for _, h := range hashes {
			cost, err := bcrypt.Cost([]byte(h))
			if err != nil || cost < bcrypt.DefaultCost {
				return false, nil
			}
		}
		return true, nil
	}
}
