package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SectionGlossary maps recurring free-text labels and topic phrases to
// canonical sections. Editors grow it over time from manual corrections, so
// the same mislabel never reaches the review queue twice.
type SectionGlossary struct {
	Terms []SectionGlossaryTerm `yaml:"terms"`
}

type SectionGlossaryTerm struct {
	Phrase  string `yaml:"phrase"`
	Section string `yaml:"section"`
}

func LoadSectionGlossary(path string) (*SectionGlossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}
	var g SectionGlossary
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse glossary yaml: %w", err)
	}
	for _, t := range g.Terms {
		if _, ok := MatchSection(t.Section, nil); !ok {
			return nil, fmt.Errorf("glossary term %q maps to unknown section %q", t.Phrase, t.Section)
		}
	}
	return &g, nil
}

// Lookup matches a normalized detected label against glossary phrases by
// containment in either direction.
func (g *SectionGlossary) Lookup(normalizedLabel string) (string, bool) {
	lower := strings.ToLower(normalizedLabel)
	for _, t := range g.Terms {
		phrase := strings.ToLower(strings.TrimSpace(t.Phrase))
		if phrase == "" {
			continue
		}
		if strings.Contains(lower, phrase) || strings.Contains(phrase, lower) {
			section, _ := MatchSection(t.Section, nil)
			return section, true
		}
	}
	return "", false
}

// AppendGlossaryTerm persists a manual correction so future runs classify
// the phrase without a model call. Duplicate phrases are ignored.
func AppendGlossaryTerm(path, phrase, section string) error {
	phrase = strings.TrimSpace(phrase)
	canonical, ok := MatchSection(section, nil)
	if phrase == "" || !ok {
		return nil
	}

	var glossary SectionGlossary
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &glossary); err != nil {
			return fmt.Errorf("parse existing glossary: %w", err)
		}
	}

	normalized := strings.ToLower(phrase)
	for _, t := range glossary.Terms {
		if strings.ToLower(strings.TrimSpace(t.Phrase)) == normalized {
			return nil // already exists
		}
	}

	glossary.Terms = append(glossary.Terms, SectionGlossaryTerm{
		Phrase:  phrase,
		Section: canonical,
	})
	out, err := yaml.Marshal(&glossary)
	if err != nil {
		return fmt.Errorf("marshal glossary: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}
