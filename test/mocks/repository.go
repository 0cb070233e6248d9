package mocks

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/aimd54/penpath/internal/models"
	"github.com/aimd54/penpath/internal/repository"
)

// MockLevelRepository is a simple mock for the level repository
type MockLevelRepository struct {
	Levels    []models.Level
	ListErr   error
	ListCalls int
}

func (m *MockLevelRepository) List(ctx context.Context) ([]models.Level, error) {
	m.ListCalls++
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]models.Level, len(m.Levels))
	copy(out, m.Levels)
	return out, nil
}

// MockProfileRepository is a simple mock for the profile repository
type MockProfileRepository struct {
	Profiles    map[string]*models.Profile
	GetByIDFunc func(id string) (*models.Profile, error)
	TopByXPFunc func(limit int) ([]models.Profile, error)
	ListAllFunc func() ([]models.Profile, error)
}

// NewMockProfileRepository creates a profile mock holding the given profiles.
func NewMockProfileRepository(profiles ...*models.Profile) *MockProfileRepository {
	m := &MockProfileRepository{Profiles: make(map[string]*models.Profile)}
	for _, p := range profiles {
		m.Profiles[p.ID] = p
	}
	return m
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(id)
	}
	p, ok := m.Profiles[id]
	if !ok {
		return nil, fmt.Errorf("failed to get profile %s: %w", id, gorm.ErrRecordNotFound)
	}
	clone := *p
	return &clone, nil
}

func (m *MockProfileRepository) TopByXP(ctx context.Context, limit int) ([]models.Profile, error) {
	if m.TopByXPFunc != nil {
		return m.TopByXPFunc(limit)
	}
	return []models.Profile{}, nil
}

func (m *MockProfileRepository) ListAll(ctx context.Context) ([]models.Profile, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc()
	}
	profiles := make([]models.Profile, 0, len(m.Profiles))
	for _, p := range m.Profiles {
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

// MockSubmissionRepository is a simple mock for the submission repository
type MockSubmissionRepository struct {
	Stats          map[string]*repository.SubmissionStats
	StatsErr       error
	ListByUserFunc func(userID string, challengeType models.ChallengeType) ([]models.Submission, error)
	GetForUserFunc func(userID, id string) (*models.Submission, error)
}

func (m *MockSubmissionRepository) StatsForUser(ctx context.Context, userID string) (*repository.SubmissionStats, error) {
	if m.StatsErr != nil {
		return nil, m.StatsErr
	}
	if s, ok := m.Stats[userID]; ok {
		return s, nil
	}
	return &repository.SubmissionStats{}, nil
}

func (m *MockSubmissionRepository) ListByUser(ctx context.Context, userID string, challengeType models.ChallengeType) ([]models.Submission, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(userID, challengeType)
	}
	return []models.Submission{}, nil
}

func (m *MockSubmissionRepository) GetForUser(ctx context.Context, userID, id string) (*models.Submission, error) {
	if m.GetForUserFunc != nil {
		return m.GetForUserFunc(userID, id)
	}
	return nil, fmt.Errorf("failed to get submission %s: %w", id, gorm.ErrRecordNotFound)
}
