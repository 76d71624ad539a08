package services

import (
	"fmt"
	"os"

	"github.com/aniketverma/jarvis-portfolio/internal/models"
	"gopkg.in/yaml.v3"
)

// Seed is the portfolio content as written in a YAML seed file.
type Seed struct {
	Personal     *models.PersonalData   `yaml:"personal"`
	Skills       []models.SkillCategory `yaml:"skills"`
	Experience   []models.Experience    `yaml:"experience"`
	Projects     []models.Project       `yaml:"projects"`
	Achievements []models.Achievement   `yaml:"achievements"`
	Posts        []models.BlogPost      `yaml:"posts"`
}

// LoadSeed reads and decodes the seed file at path.
func LoadSeed(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	var s Seed
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return Seed{}, fmt.Errorf("failed to decode seed file: %w", err)
	}
	return s, nil
}
