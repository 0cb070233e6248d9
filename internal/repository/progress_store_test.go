package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aimd54/penpath/internal/models"
	"github.com/aimd54/penpath/internal/progression"
)

func scoredSubmission(userID, challengeID string, xp int) *models.Submission {
	return &models.Submission{
		UserID:         userID,
		ChallengeID:    challengeID,
		Response:       "Fresh coffee, zero excuses.",
		Score:          82,
		Feedback:       []string{"Punchy", "Clear benefit"},
		ImprovementTip: "Mention the audience.",
		XPGained:       xp,
	}
}

func TestProgressStore_RecordScoredSubmission(t *testing.T) {
	db := setupTestDB(t)
	store := NewProgressStore(db)
	ctx := context.Background()

	createTestProfile(t, db, "user-1", 300, 1)
	challenges := assignTestChallenges(t, db, "user-1", models.ChallengeTypeCopywriting, 1)

	sub := scoredSubmission("user-1", challenges[0].ID, 150)
	award, err := store.RecordScoredSubmission(ctx, sub, testLevels())
	if err != nil {
		t.Fatalf("RecordScoredSubmission failed: %v", err)
	}

	if sub.ID == "" {
		t.Error("Expected submission id to be assigned")
	}
	if award.PreviousXP != 300 || award.NewXP != 450 {
		t.Errorf("Expected 300 -> 450 xp, got %d -> %d", award.PreviousXP, award.NewXP)
	}
	if award.NewLevelID != 2 || !award.LeveledUp() {
		t.Errorf("Expected level up to 2, got %d", award.NewLevelID)
	}

	profile, err := NewProfileRepository(db).GetByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if profile.CurrentXP != 450 || profile.LevelID != 2 {
		t.Errorf("Expected stored 450 xp at level 2, got %d at %d", profile.CurrentXP, profile.LevelID)
	}

	assignment, err := NewChallengeRepository(db).GetAssignment(ctx, "user-1", challenges[0].ID)
	if err != nil {
		t.Fatalf("GetAssignment failed: %v", err)
	}
	if assignment.Status != models.ChallengeStatusCompleted || assignment.CompletedAt == nil {
		t.Errorf("Expected assignment completed with timestamp, got %+v", assignment)
	}
}

func TestProgressStore_RejectsCompletedChallenge(t *testing.T) {
	db := setupTestDB(t)
	store := NewProgressStore(db)
	ctx := context.Background()

	createTestProfile(t, db, "user-1", 0, 1)
	challenges := assignTestChallenges(t, db, "user-1", models.ChallengeTypeContent, 1)

	if _, err := store.RecordScoredSubmission(ctx, scoredSubmission("user-1", challenges[0].ID, 100), testLevels()); err != nil {
		t.Fatalf("First submission failed: %v", err)
	}

	_, err := store.RecordScoredSubmission(ctx, scoredSubmission("user-1", challenges[0].ID, 100), testLevels())
	if !errors.Is(err, ErrChallengeNotActive) {
		t.Fatalf("Expected ErrChallengeNotActive, got %v", err)
	}

	// nothing from the rejected attempt is persisted
	var count int64
	db.Model(&models.Submission{}).Where("user_id = ?", "user-1").Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 submission, got %d", count)
	}
	profile, _ := NewProfileRepository(db).GetByID(ctx, "user-1")
	if profile.CurrentXP != 100 {
		t.Errorf("Expected 100 xp, got %d", profile.CurrentXP)
	}
}

func TestProgressStore_RejectsUnassignedChallenge(t *testing.T) {
	db := setupTestDB(t)
	store := NewProgressStore(db)

	createTestProfile(t, db, "user-1", 0, 1)
	createTestProfile(t, db, "user-2", 0, 1)
	challenges := assignTestChallenges(t, db, "user-2", models.ChallengeTypeContent, 1)

	_, err := store.RecordScoredSubmission(context.Background(), scoredSubmission("user-1", challenges[0].ID, 100), testLevels())
	if !errors.Is(err, ErrChallengeNotActive) {
		t.Fatalf("Expected ErrChallengeNotActive, got %v", err)
	}
}

func TestProgressStore_RejectsNonPositiveXP(t *testing.T) {
	db := setupTestDB(t)
	store := NewProgressStore(db)

	_, err := store.RecordScoredSubmission(context.Background(), scoredSubmission("user-1", "c", 0), testLevels())
	if !errors.Is(err, progression.ErrNonPositiveAward) {
		t.Fatalf("Expected ErrNonPositiveAward, got %v", err)
	}
}

func TestProgressStore_ConcurrentAwards(t *testing.T) {
	db := setupTestDB(t)
	store := NewProgressStore(db)
	ctx := context.Background()

	createTestProfile(t, db, "user-1", 0, 1)
	challenges := assignTestChallenges(t, db, "user-1", models.ChallengeTypeUXWriting, 2)

	var wg sync.WaitGroup
	errs := make(chan error, len(challenges))
	for _, c := range challenges {
		wg.Add(1)
		go func(challengeID string) {
			defer wg.Done()
			_, err := store.RecordScoredSubmission(ctx, scoredSubmission("user-1", challengeID, 100), testLevels())
			errs <- err
		}(c.ID)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Concurrent award failed: %v", err)
		}
	}

	profile, err := NewProfileRepository(db).GetByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if profile.CurrentXP != 200 {
		t.Errorf("Expected 200 xp after two concurrent awards, got %d", profile.CurrentXP)
	}
}

// A write that lands between completing the assignment and awarding XP
// must survive the award.
func TestProgressStore_AwardKeepsInterleavedWrite(t *testing.T) {
	db := setupTestDB(t)
	store := NewProgressStore(db)
	ctx := context.Background()

	createTestProfile(t, db, "user-1", 0, 1)
	challenges := assignTestChallenges(t, db, "user-1", models.ChallengeTypeCopywriting, 1)

	bumped := false
	err := db.Callback().Update().After("gorm:update").Register("penpath:interleave", func(tx *gorm.DB) {
		if bumped || tx.Error != nil || tx.Statement.Table != "user_challenges" {
			return
		}
		bumped = true
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE profiles SET current_xp = current_xp + ? WHERE id = ?", 1000, "user-1")
	})
	if err != nil {
		t.Fatalf("Failed to register callback: %v", err)
	}

	award, err := store.RecordScoredSubmission(ctx, scoredSubmission("user-1", challenges[0].ID, 100), testLevels())
	if err != nil {
		t.Fatalf("RecordScoredSubmission failed: %v", err)
	}
	if !bumped {
		t.Fatal("Expected the interleaved write to run")
	}

	profile, err := NewProfileRepository(db).GetByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if profile.CurrentXP != 1100 {
		t.Errorf("Expected 1100 xp (1000 interleaved + 100 awarded), got %d", profile.CurrentXP)
	}
	if award.NewXP != 1100 || award.PreviousXP != 1000 {
		t.Errorf("Expected award 1000 -> 1100, got %d -> %d", award.PreviousXP, award.NewXP)
	}
	if award.NewLevelID != 3 {
		t.Errorf("Expected level 3, got %d", award.NewLevelID)
	}
}

func TestProgressStore_DeleteSubmissionLocksProfile(t *testing.T) {
	db := setupTestDB(t)
	store := NewProgressStore(db)
	ctx := context.Background()

	createTestProfile(t, db, "user-1", 0, 1)
	challenges := assignTestChallenges(t, db, "user-1", models.ChallengeTypeContent, 1)
	sub := scoredSubmission("user-1", challenges[0].ID, 100)
	if _, err := store.RecordScoredSubmission(ctx, sub, testLevels()); err != nil {
		t.Fatalf("RecordScoredSubmission failed: %v", err)
	}

	var profileReads []bool
	err := db.Callback().Query().Before("gorm:query").Register("penpath:locks", func(tx *gorm.DB) {
		if tx.Statement.Table != "profiles" {
			return
		}
		_, locked := tx.Statement.Clauses[clause.Locking{}.Name()]
		profileReads = append(profileReads, locked)
	})
	if err != nil {
		t.Fatalf("Failed to register callback: %v", err)
	}

	_, adj, err := store.DeleteSubmission(ctx, "user-1", sub.ID, testLevels(), progression.DemotionRecompute)
	if err != nil {
		t.Fatalf("DeleteSubmission failed: %v", err)
	}
	if len(profileReads) == 0 || !profileReads[0] {
		t.Errorf("Expected the first profile read to lock the row, got %v", profileReads)
	}
	if adj.PreviousXP != 100 || adj.NewXP != 0 {
		t.Errorf("Expected 100 -> 0 xp, got %d -> %d", adj.PreviousXP, adj.NewXP)
	}
}

func TestProgressStore_DeleteSubmission(t *testing.T) {
	tests := []struct {
		name      string
		policy    progression.DemotionPolicy
		wantLevel uint
	}{
		{"recompute demotes", progression.DemotionRecompute, 1},
		{"sticky keeps level", progression.DemotionSticky, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			store := NewProgressStore(db)
			ctx := context.Background()

			createTestProfile(t, db, "user-1", 350, 1)
			challenges := assignTestChallenges(t, db, "user-1", models.ChallengeTypeCopywriting, 1)

			sub := scoredSubmission("user-1", challenges[0].ID, 150)
			award, err := store.RecordScoredSubmission(ctx, sub, testLevels())
			if err != nil {
				t.Fatalf("RecordScoredSubmission failed: %v", err)
			}
			if award.NewXP != 500 || award.NewLevelID != 2 {
				t.Fatalf("Expected 500 xp at level 2, got %d at %d", award.NewXP, award.NewLevelID)
			}

			deleted, adj, err := store.DeleteSubmission(ctx, "user-1", sub.ID, testLevels(), tt.policy)
			if err != nil {
				t.Fatalf("DeleteSubmission failed: %v", err)
			}
			if deleted.ID != sub.ID {
				t.Errorf("Expected deleted submission %s, got %s", sub.ID, deleted.ID)
			}
			if adj.PreviousXP != 500 || adj.NewXP != 350 {
				t.Errorf("Expected 500 -> 350 xp, got %d -> %d", adj.PreviousXP, adj.NewXP)
			}
			if adj.NewLevelID != tt.wantLevel {
				t.Errorf("Expected level %d, got %d", tt.wantLevel, adj.NewLevelID)
			}

			profile, _ := NewProfileRepository(db).GetByID(ctx, "user-1")
			if profile.CurrentXP != 350 || profile.LevelID != tt.wantLevel {
				t.Errorf("Expected stored 350 xp at level %d, got %d at %d", tt.wantLevel, profile.CurrentXP, profile.LevelID)
			}

			// the challenge does not go back to active
			assignment, _ := NewChallengeRepository(db).GetAssignment(ctx, "user-1", challenges[0].ID)
			if assignment.Status != models.ChallengeStatusCompleted {
				t.Error("Expected assignment to stay completed")
			}
		})
	}
}

func TestProgressStore_DeleteSubmissionFloorsAtZero(t *testing.T) {
	db := setupTestDB(t)
	store := NewProgressStore(db)
	ctx := context.Background()

	createTestProfile(t, db, "user-1", 0, 1)
	challenges := assignTestChallenges(t, db, "user-1", models.ChallengeTypeCopywriting, 1)
	sub := scoredSubmission("user-1", challenges[0].ID, 120)
	if _, err := store.RecordScoredSubmission(ctx, sub, testLevels()); err != nil {
		t.Fatalf("RecordScoredSubmission failed: %v", err)
	}

	// simulate XP lost elsewhere
	db.Model(&models.Profile{}).Where("id = ?", "user-1").Update("current_xp", 50)

	_, adj, err := store.DeleteSubmission(ctx, "user-1", sub.ID, testLevels(), progression.DemotionRecompute)
	if err != nil {
		t.Fatalf("DeleteSubmission failed: %v", err)
	}
	if adj.NewXP != 0 {
		t.Errorf("Expected xp floored at 0, got %d", adj.NewXP)
	}
}

func TestProgressStore_DeleteSubmissionNotFound(t *testing.T) {
	db := setupTestDB(t)
	store := NewProgressStore(db)
	createTestProfile(t, db, "user-1", 0, 1)

	_, _, err := store.DeleteSubmission(context.Background(), "user-1", "missing", testLevels(), progression.DemotionRecompute)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Expected ErrRecordNotFound, got %v", err)
	}
}
