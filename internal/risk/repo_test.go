package risk

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
)

func setupRiskTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS suspicious_activities (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  activity_type TEXT NOT NULL,
  ip TEXT,
  fingerprint TEXT,
  risk_score INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func seedActivity(t *testing.T, db *gorm.DB, repo *Repository, mutate func(*models.SuspiciousActivity)) models.SuspiciousActivity {
	t.Helper()
	userID := uuid.New()
	activity := models.SuspiciousActivity{
		ID:           uuid.New(),
		UserID:       &userID,
		ActivityType: enums.ActivityIPReuse,
		IP:           "203.0.113.9",
		RiskScore:    40,
	}
	if mutate != nil {
		mutate(&activity)
	}
	require.NoError(t, repo.InsertActivity(db, activity))
	return activity
}

func TestListActivitiesFiltersByUser(t *testing.T) {
	db := setupRiskTestDB(t)
	repo := NewRepository(db)

	target := seedActivity(t, db, repo, nil)
	seedActivity(t, db, repo, nil)

	rows, err := repo.ListActivities(db, target.UserID, 50)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, target.ID, rows[0].ID)

	all, err := repo.ListActivities(db, nil, 50)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAggregateActivitiesByIP(t *testing.T) {
	db := setupRiskTestDB(t)
	repo := NewRepository(db)

	// Three hits from one IP across two accounts, one from another IP,
	// one stale row outside the window, one row with no IP at all.
	sharedUser := uuid.New()
	seedActivity(t, db, repo, func(a *models.SuspiciousActivity) {
		a.UserID = &sharedUser
		a.RiskScore = 70
	})
	seedActivity(t, db, repo, func(a *models.SuspiciousActivity) {
		a.UserID = &sharedUser
	})
	seedActivity(t, db, repo, nil)
	seedActivity(t, db, repo, func(a *models.SuspiciousActivity) {
		a.IP = "198.51.100.1"
	})
	seedActivity(t, db, repo, func(a *models.SuspiciousActivity) {
		a.CreatedAt = time.Now().Add(-48 * time.Hour)
	})
	seedActivity(t, db, repo, func(a *models.SuspiciousActivity) {
		a.IP = ""
		a.Fingerprint = "fp-1"
		a.ActivityType = enums.ActivityFingerprintReuse
	})

	clusters, err := repo.AggregateActivities(db, "ip", time.Now().Add(-24*time.Hour), 50)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	// Noisiest source first.
	assert.Equal(t, "203.0.113.9", clusters[0].Value)
	assert.Equal(t, int64(3), clusters[0].Events)
	assert.Equal(t, int64(2), clusters[0].Users)
	assert.Equal(t, 70, clusters[0].MaxRiskScore)
	assert.Equal(t, "198.51.100.1", clusters[1].Value)
	assert.Equal(t, int64(1), clusters[1].Events)
}

func TestAggregateActivitiesByFingerprint(t *testing.T) {
	db := setupRiskTestDB(t)
	repo := NewRepository(db)

	for i := 0; i < 2; i++ {
		seedActivity(t, db, repo, func(a *models.SuspiciousActivity) {
			a.IP = ""
			a.Fingerprint = "fp-shared"
			a.ActivityType = enums.ActivityFingerprintReuse
		})
	}

	clusters, err := repo.AggregateActivities(db, "fingerprint", time.Now().Add(-time.Hour), 50)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, "fp-shared", clusters[0].Value)
	assert.Equal(t, int64(2), clusters[0].Events)
}

func TestAggregateActivitiesRejectsUnknownColumn(t *testing.T) {
	repo := NewRepository(setupRiskTestDB(t))
	_, err := repo.AggregateActivities(nil, "email", time.Now(), 50)
	require.Error(t, err)
}
