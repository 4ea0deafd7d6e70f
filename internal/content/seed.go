package content

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed is the bootstrap content bundle.
type Seed struct {
	Hero          *Hero          `yaml:"hero"`
	Offices       []Office       `yaml:"offices"`
	PracticeAreas []PracticeArea `yaml:"practiceAreas"`
}

// SeedResult reports what a seed run wrote.
type SeedResult struct {
	HeroCreated    bool
	OfficesCreated int
}

// ParseSeed decodes a YAML seed bundle.
func ParseSeed(raw []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	return &seed, nil
}

// DefaultSeed returns the embedded bundle.
func DefaultSeed() *Seed {
	seed, err := ParseSeed(defaultSeed)
	if err != nil {
		panic(fmt.Sprintf("embedded seed is invalid: %v", err))
	}
	return seed
}

// SeedFromFile applies the bundle at path, or the embedded one when path is
// empty.
func (s *Service) SeedFromFile(ctx context.Context, path string) (*SeedResult, error) {
	seed := DefaultSeed()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read seed file: %w", err)
		}
		if seed, err = ParseSeed(raw); err != nil {
			return nil, err
		}
	}
	return s.ApplySeed(ctx, seed)
}

// ApplySeed writes every seed record that does not exist yet. Existing
// documents are never overwritten.
func (s *Service) ApplySeed(ctx context.Context, seed *Seed) (*SeedResult, error) {
	result := &SeedResult{}
	if seed.Hero != nil {
		data, err := encode(seed.Hero)
		if err != nil {
			return nil, err
		}
		created, err := s.store.Create(ctx, CollectionHero, HeroID, data)
		if err != nil {
			return nil, fmt.Errorf("failed to seed hero: %w", err)
		}
		result.HeroCreated = created
	}
	for _, office := range seed.Offices {
		if office.ID == "" {
			return nil, fmt.Errorf("seed office %q has no id", office.City)
		}
		data, err := encode(office)
		if err != nil {
			return nil, err
		}
		created, err := s.store.Create(ctx, CollectionOffices, office.ID, data)
		if err != nil {
			return nil, fmt.Errorf("failed to seed office %s: %w", office.ID, err)
		}
		if created {
			result.OfficesCreated++
		}
	}
	if len(seed.PracticeAreas) > 0 {
		s.mu.Lock()
		s.practice = seed.PracticeAreas
		s.mu.Unlock()
	}
	s.log.Info("applied seed",
		zap.Bool("hero_created", result.HeroCreated),
		zap.Int("offices_created", result.OfficesCreated))
	return result, nil
}
