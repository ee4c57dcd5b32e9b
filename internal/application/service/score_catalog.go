package service

import (
	"fmt"
	"os"
	"strings"

	"signalscore/internal/application/dto"

	"gopkg.in/yaml.v3"
)

// ScoreCatalog holds precomputed assessments that the scoring service hands out when a job
// for a known company resolves.
type ScoreCatalog struct {
	entries map[string]dto.ScoreResponse
}

type catalogFile struct {
	Companies []dto.ScoreResponse `yaml:"companies"`
}

// NewScoreCatalog indexes scores by company name, case-insensitively. Later duplicates win.
func NewScoreCatalog(scores []dto.ScoreResponse) *ScoreCatalog {
	c := &ScoreCatalog{entries: make(map[string]dto.ScoreResponse, len(scores))}
	for _, score := range scores {
		key := companyKey(score.CompanyName)
		if key == "" {
			continue
		}
		c.entries[key] = score
	}
	return c
}

// LoadScoreCatalog reads a YAML catalog with a top-level companies list.
// An empty path yields an empty catalog.
func LoadScoreCatalog(path string) (*ScoreCatalog, error) {
	if path == "" {
		return NewScoreCatalog(nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read score catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse score catalog %s: %w", path, err)
	}

	for i, score := range file.Companies {
		if strings.TrimSpace(score.CompanyName) == "" {
			return nil, fmt.Errorf("score catalog entry %d has no company_name", i)
		}
		if score.Score < 0 || score.Score > 100 {
			return nil, fmt.Errorf("score catalog entry %q has score %.1f outside 0-100", score.CompanyName, score.Score)
		}
	}

	return NewScoreCatalog(file.Companies), nil
}

// Lookup returns a copy of the catalog entry for companyName.
func (c *ScoreCatalog) Lookup(companyName string) (*dto.ScoreResponse, bool) {
	if c == nil {
		return nil, false
	}
	score, ok := c.entries[companyKey(companyName)]
	if !ok {
		return nil, false
	}
	score.Evidence = append([]string(nil), score.Evidence...)
	score.Sources = append([]dto.SourceResponse(nil), score.Sources...)
	return &score, true
}

// Len returns the number of companies in the catalog.
func (c *ScoreCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

func companyKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
