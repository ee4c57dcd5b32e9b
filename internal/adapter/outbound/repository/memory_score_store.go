package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"signalscore/internal/application/dto"
	"signalscore/internal/port/outbound"
)

// MemoryScoreStore keeps scores in process memory. Company names are matched
// case-insensitively. It is the default store of the reference server.
type MemoryScoreStore struct {
	mu     sync.RWMutex
	scores map[string]dto.ScoreResponse
	nextID int64
}

// NewMemoryScoreStore creates an empty store.
func NewMemoryScoreStore() *MemoryScoreStore {
	return &MemoryScoreStore{scores: make(map[string]dto.ScoreResponse)}
}

func companyKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FindByCompanyName returns a copy of the stored score.
func (s *MemoryScoreStore) FindByCompanyName(_ context.Context, companyName string) (*dto.ScoreResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.scores[companyKey(companyName)]
	if !ok {
		return nil, outbound.ErrScoreNotFound
	}
	return &score, nil
}

// FindAll returns every score ordered by company name.
func (s *MemoryScoreStore) FindAll(_ context.Context) ([]dto.ScoreResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make([]dto.ScoreResponse, 0, len(s.scores))
	for _, score := range s.scores {
		scores = append(scores, score)
	}
	sort.Slice(scores, func(i, j int) bool {
		return companyKey(scores[i].CompanyName) < companyKey(scores[j].CompanyName)
	})
	return scores, nil
}

// Save inserts or replaces the score of score.CompanyName and assigns its CompanyID.
func (s *MemoryScoreStore) Save(_ context.Context, score *dto.ScoreResponse) error {
	if score == nil || companyKey(score.CompanyName) == "" {
		return ErrInvalidArgument
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := companyKey(score.CompanyName)
	if existing, ok := s.scores[key]; ok && existing.CompanyID != nil {
		id := *existing.CompanyID
		score.CompanyID = &id
	} else {
		s.nextID++
		id := s.nextID
		score.CompanyID = &id
	}
	s.scores[key] = *score
	return nil
}

// Ping always succeeds.
func (s *MemoryScoreStore) Ping(_ context.Context) error {
	return nil
}
