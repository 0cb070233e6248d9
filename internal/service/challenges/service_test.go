package challenges

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/aimd54/penpath/internal/apperrors"
	"github.com/aimd54/penpath/internal/auth"
	"github.com/aimd54/penpath/internal/cache"
	"github.com/aimd54/penpath/internal/models"
	"github.com/aimd54/penpath/pkg/logger"
	"github.com/aimd54/penpath/test/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeChallengeRepository struct {
	mu          sync.Mutex
	challenges  map[string]*models.Challenge
	assignments map[string]*models.UserChallenge
	order       []string
	created     int
	createErr   error
}

func newFakeChallengeRepository() *fakeChallengeRepository {
	return &fakeChallengeRepository{
		challenges:  make(map[string]*models.Challenge),
		assignments: make(map[string]*models.UserChallenge),
	}
}

func assignmentKey(userID, challengeID string) string {
	return userID + "/" + challengeID
}

func (f *fakeChallengeRepository) CreateForUser(_ context.Context, userID string, challenges []models.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for i := range challenges {
		f.created++
		if challenges[i].ID == "" {
			challenges[i].ID = fmt.Sprintf("gen-%d", f.created)
		}
		c := challenges[i]
		f.challenges[c.ID] = &c
		f.assignments[assignmentKey(userID, c.ID)] = &models.UserChallenge{
			UserID:      userID,
			ChallengeID: c.ID,
			Status:      models.ChallengeStatusActive,
		}
		f.order = append(f.order, assignmentKey(userID, c.ID))
	}
	return nil
}

func (f *fakeChallengeRepository) GetByID(_ context.Context, id string) (*models.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[id]
	if !ok {
		return nil, fmt.Errorf("failed to get challenge %s: %w", id, gorm.ErrRecordNotFound)
	}
	return c, nil
}

func (f *fakeChallengeRepository) ListActiveForUser(_ context.Context, userID string) ([]models.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Challenge
	for _, key := range f.order {
		a := f.assignments[key]
		if a.UserID == userID && a.Status == models.ChallengeStatusActive {
			out = append(out, *f.challenges[a.ChallengeID])
		}
	}
	return out, nil
}

func (f *fakeChallengeRepository) GetAssignment(_ context.Context, userID, challengeID string) (*models.UserChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[assignmentKey(userID, challengeID)]
	if !ok {
		return nil, fmt.Errorf("failed to get assignment: %w", gorm.ErrRecordNotFound)
	}
	return a, nil
}

func (f *fakeChallengeRepository) seed(t *testing.T, userID string, counts map[models.ChallengeType]int) {
	t.Helper()
	var batch []models.Challenge
	for _, ct := range models.ChallengeTypes {
		for i := 0; i < counts[ct]; i++ {
			batch = append(batch, models.Challenge{
				ID:         fmt.Sprintf("%s-%d", ct, i),
				Type:       ct,
				Difficulty: models.DifficultyEasy,
				Title:      "Seeded",
				Brief:      "Write.",
				WordLimit:  50,
			})
		}
	}
	require.NoError(t, f.CreateForUser(context.Background(), userID, batch))
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	levels  []uint
	langs   []language.Tag
	err     error
	release chan struct{}
}

func (g *fakeGenerator) GenerateChallenges(ctx context.Context, levelID uint, lang language.Tag) ([]models.Challenge, error) {
	g.mu.Lock()
	g.calls++
	g.levels = append(g.levels, levelID)
	g.langs = append(g.langs, lang)
	release := g.release
	err := g.err
	g.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	var out []models.Challenge
	for _, ct := range models.ChallengeTypes {
		out = append(out, models.Challenge{Type: ct, Difficulty: models.DifficultyEasy, Title: "New " + string(ct), Brief: "Write.", WordLimit: 40, MinLevelID: levelID})
	}
	return out, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func setupTestService(t *testing.T) (*Service, *fakeChallengeRepository, *fakeGenerator, *mocks.MockCache) {
	t.Helper()
	repo := newFakeChallengeRepository()
	profiles := mocks.NewMockProfileRepository(&models.Profile{ID: "u1", LevelID: 4})
	gen := &fakeGenerator{}
	c := mocks.NewMockCache()
	log := logger.New("debug", "text", "stdout")

	service := NewServiceWithInterfaces(repo, profiles, gen, c, 6, time.Minute, log)
	t.Cleanup(service.Close)
	return service, repo, gen, c
}

func session(userID string) *auth.Session {
	return &auth.Session{UserID: userID, Language: language.Spanish}
}

func TestListActive_FullPoolDoesNotRefill(t *testing.T) {
	service, repo, gen, _ := setupTestService(t)
	repo.seed(t, "u1", map[models.ChallengeType]int{
		models.ChallengeTypeCopywriting: 6,
		models.ChallengeTypeContent:     7,
		models.ChallengeTypeUXWriting:   6,
	})

	view, err := service.ListActive(context.Background(), session("u1"), "all")
	require.NoError(t, err)

	assert.False(t, view.RefillTriggered)
	assert.Len(t, view.Challenges, 18)
	assert.Equal(t, 7, view.Counts[models.ChallengeTypeContent])

	service.Close()
	assert.Zero(t, gen.callCount())
}

func TestListActive_UnderQuotaTriggersBackgroundRefill(t *testing.T) {
	service, repo, gen, c := setupTestService(t)
	repo.seed(t, "u1", map[models.ChallengeType]int{
		models.ChallengeTypeCopywriting: 6,
		models.ChallengeTypeContent:     2,
		models.ChallengeTypeUXWriting:   6,
	})

	view, err := service.ListActive(context.Background(), session("u1"), "")
	require.NoError(t, err)

	assert.True(t, view.RefillTriggered)
	assert.Equal(t, "all", view.Tab)
	assert.Len(t, view.Challenges, 14, "the current view is not re-fetched")

	service.Close()

	require.Equal(t, 1, gen.callCount())
	assert.Equal(t, uint(4), gen.levels[0])
	assert.Equal(t, language.Spanish, gen.langs[0])

	active, err := repo.ListActiveForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, active, 17)
	assert.False(t, c.Has(cache.RefillLockKey("u1")), "lock must be released")
}

func TestListActive_SingleRefillInFlight(t *testing.T) {
	service, _, gen, _ := setupTestService(t)
	gen.release = make(chan struct{})

	first, err := service.ListActive(context.Background(), session("u1"), "content")
	require.NoError(t, err)
	second, err := service.ListActive(context.Background(), session("u1"), "content")
	require.NoError(t, err)

	assert.True(t, first.RefillTriggered)
	assert.False(t, second.RefillTriggered)

	close(gen.release)
	service.Close()
	assert.Equal(t, 1, gen.callCount())
}

func TestListActive_CloseCancelsRunningRefill(t *testing.T) {
	service, _, gen, _ := setupTestService(t)
	gen.release = make(chan struct{})

	view, err := service.ListActive(context.Background(), session("u1"), "all")
	require.NoError(t, err)
	require.True(t, view.RefillTriggered)

	done := make(chan struct{})
	go func() {
		service.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not cancel the running refill")
	}

	view, err = service.ListActive(context.Background(), session("u1"), "all")
	require.NoError(t, err)
	assert.False(t, view.RefillTriggered, "no refills after Close")
}

func TestListActive_InvalidTab(t *testing.T) {
	service, _, _, _ := setupTestService(t)

	_, err := service.ListActive(context.Background(), session("u1"), "poetry")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestReplenish(t *testing.T) {
	service, repo, gen, c := setupTestService(t)

	n, err := service.Refresh(context.Background(), session("u1"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, gen.callCount())
	assert.Equal(t, 1, c.Calls("setnx"))
	assert.False(t, c.Has(cache.RefillLockKey("u1")))

	active, err := repo.ListActiveForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestReplenish_LockHeld(t *testing.T) {
	service, _, gen, c := setupTestService(t)
	ok, err := c.SetNX(context.Background(), cache.RefillLockKey("u1"), "other", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = service.Replenish(context.Background(), "u1", language.English, TriggerManual)
	assert.ErrorIs(t, err, ErrRefillInProgress)
	assert.Zero(t, gen.callCount())
}

func TestReplenish_CacheDownStillGenerates(t *testing.T) {
	service, _, gen, c := setupTestService(t)
	c.FailAll = errors.New("redis down")

	n, err := service.Replenish(context.Background(), "u1", language.English, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, gen.callCount())
}

func TestReplenish_Failures(t *testing.T) {
	service, repo, gen, c := setupTestService(t)

	_, err := service.Replenish(context.Background(), "ghost", language.English, TriggerManual)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	gen.err = apperrors.New(apperrors.KindProviderResponse, "generation reply contains no valid challenges")
	_, err = service.Replenish(context.Background(), "u1", language.English, TriggerManual)
	assert.True(t, apperrors.IsKind(err, apperrors.KindProviderResponse))
	assert.False(t, c.Has(cache.RefillLockKey("u1")), "lock released after failure")

	gen.err = nil
	repo.createErr = errors.New("disk full")
	_, err = service.Replenish(context.Background(), "u1", language.English, TriggerManual)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInternal))
}

func TestReplenishIfNeeded(t *testing.T) {
	service, repo, gen, _ := setupTestService(t)
	repo.seed(t, "u1", map[models.ChallengeType]int{
		models.ChallengeTypeCopywriting: 6,
		models.ChallengeTypeContent:     6,
		models.ChallengeTypeUXWriting:   6,
	})

	n, err := service.ReplenishIfNeeded(context.Background(), "u1", language.English, TriggerScheduler)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, gen.callCount())
}

func TestGet(t *testing.T) {
	service, repo, _, _ := setupTestService(t)
	repo.seed(t, "u1", map[models.ChallengeType]int{models.ChallengeTypeContent: 1})

	detail, err := service.Get(context.Background(), "u1", "content-0")
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeStatusActive, detail.Status)
	assert.Equal(t, models.ChallengeTypeContent, detail.Challenge.Type)

	_, err = service.Get(context.Background(), "u2", "content-0")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound), "unassigned challenge is not found")

	_, err = service.Get(context.Background(), "u1", "missing")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
