package tags

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pawtagapp/pawtag-backend/pkg/db/models"
	"github.com/pawtagapp/pawtag-backend/pkg/enums"
)

func setupTagsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	tags := `
CREATE TABLE IF NOT EXISTS tags (
  id TEXT PRIMARY KEY,
  activation_token TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'unclaimed',
  pet_id TEXT,
  owner_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(tags).Error)

	return db
}

func insertTag(t *testing.T, db *gorm.DB, token string) *models.Tag {
	t.Helper()
	tag := &models.Tag{
		ID:              uuid.New(),
		ActivationToken: token,
		Status:          enums.TagStatusUnclaimed,
	}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

func TestBindToPetClaimsUnclaimedTag(t *testing.T) {
	db := setupTagsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tag := insertTag(t, db, "H7K9-M2P4-X")
	petID := uuid.New()
	ownerID := uuid.New()

	rows, err := repo.BindToPet(ctx, tag.ID, petID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	claimed, err := repo.FindByActivationToken(ctx, "H7K9-M2P4-X")
	require.NoError(t, err)
	assert.Equal(t, enums.TagStatusActive, claimed.Status)
	require.NotNil(t, claimed.PetID)
	assert.Equal(t, petID, *claimed.PetID)
	require.NotNil(t, claimed.OwnerID)
	assert.Equal(t, ownerID, *claimed.OwnerID)
}

func TestBindToPetLosesRaceOnClaimedTag(t *testing.T) {
	db := setupTagsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tag := insertTag(t, db, "H7K9-M2P4-X")

	rows, err := repo.BindToPet(ctx, tag.ID, uuid.New(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	// A second claim must see zero rows: the status guard lost the race.
	rows, err = repo.BindToPet(ctx, tag.ID, uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}

func TestBindToPetConcurrentClaimsSingleWinner(t *testing.T) {
	db := setupTagsTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection so both claims hit the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	repo := NewRepository(db)
	tag := insertTag(t, db, "H7K9-M2P4-X")

	results := make(chan int64, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := repo.BindToPet(context.Background(), tag.ID, uuid.New(), uuid.New())
			assert.NoError(t, err)
			results <- rows
		}()
	}
	wg.Wait()
	close(results)

	var wins int64
	for rows := range results {
		wins += rows
	}
	assert.Equal(t, int64(1), wins, "exactly one concurrent claim may win")
}

func TestFindByActivationTokenMissing(t *testing.T) {
	db := setupTagsTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByActivationToken(context.Background(), "nope")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestCreateBatchAndCountByStatus(t *testing.T) {
	db := setupTagsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	batch := []*models.Tag{
		{ID: uuid.New(), ActivationToken: "AAAA-BBBB-C", Status: enums.TagStatusUnclaimed},
		{ID: uuid.New(), ActivationToken: "DDDD-EEEE-F", Status: enums.TagStatusUnclaimed},
	}
	require.NoError(t, repo.CreateBatch(ctx, batch))

	count, err := repo.CountByStatus(ctx, enums.TagStatusUnclaimed)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestListByOwnerScopesToOwner(t *testing.T) {
	db := setupTagsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	mine := insertTag(t, db, "AAAA-BBBB-C")
	theirs := insertTag(t, db, "DDDD-EEEE-F")

	ownerID := uuid.New()
	_, err := repo.BindToPet(ctx, mine.ID, uuid.New(), ownerID)
	require.NoError(t, err)
	_, err = repo.BindToPet(ctx, theirs.ID, uuid.New(), uuid.New())
	require.NoError(t, err)

	list, err := repo.ListByOwner(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)
}
