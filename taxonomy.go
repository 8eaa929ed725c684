package main

import "strings"

// The journal publishes exactly three sections. Anything the model cannot
// place lands on the review queue under the sentinel label.
const (
	SectionTechnical  = "ТЕХНИЧЕСКИЕ НАУКИ"
	SectionHumanities = "ГУМАНИТАРНЫЕ НАУКИ"
	SectionNatural    = "ЕСТЕСТВЕННЫЕ НАУКИ"
	SectionUnassigned = "ТРЕБУЕТ КЛАССИФИКАЦИИ"
)

var canonicalSections = []string{
	SectionTechnical,
	SectionHumanities,
	SectionNatural,
}

// Keyword stems for fuzzy matching. Model output is free text ("техническое
// направление", "Гуманитарная секция"), so stem containment is a first-class
// matching rule, not a heuristic afterthought.
var sectionStems = map[string]string{
	"техни":     SectionTechnical,
	"инженер":   SectionTechnical,
	"информаци": SectionTechnical,
	"программ":  SectionTechnical,
	"гуманитар": SectionHumanities,
	"филолог":   SectionHumanities,
	"лингвист":  SectionHumanities,
	"педагог":   SectionHumanities,
	"естествен": SectionNatural,
	"биолог":    SectionNatural,
	"физик":     SectionNatural,
	"химич":     SectionNatural,
	"математ":   SectionNatural,
}

func normalizeLabel(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// MatchSection maps a free-text section label onto the canonical taxonomy.
// Rules, in order: glossary override, exact match, substring in either
// direction, keyword stem. Reports ok=false (with the sentinel) when
// nothing matches.
func MatchSection(detected string, glossary *SectionGlossary) (string, bool) {
	norm := normalizeLabel(detected)
	if norm == "" {
		return SectionUnassigned, false
	}

	if glossary != nil {
		if section, ok := glossary.Lookup(norm); ok {
			return section, true
		}
	}

	for _, canonical := range canonicalSections {
		if norm == canonical {
			return canonical, true
		}
	}
	for _, canonical := range canonicalSections {
		if strings.Contains(canonical, norm) || strings.Contains(norm, canonical) {
			return canonical, true
		}
	}

	lower := strings.ToLower(norm)
	for stem, canonical := range sectionStems {
		if strings.Contains(lower, stem) {
			return canonical, true
		}
	}

	return SectionUnassigned, false
}

// ClassificationResult is what every section-detection operation returns.
type ClassificationResult struct {
	Section     string  `json:"section"`
	Confidence  float64 `json:"confidence"`
	NeedsReview bool    `json:"needs_review"`
	Reasoning   string  `json:"reasoning"`
}

// finalizeClassification applies the review-gating invariant: an unmatched
// section or sub-threshold confidence always forces NeedsReview.
func finalizeClassification(section string, matched bool, confidence float64, reasoning string, lowThreshold float64) ClassificationResult {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	r := ClassificationResult{
		Section:    section,
		Confidence: confidence,
		Reasoning:  reasoning,
	}
	if !matched {
		r.Section = SectionUnassigned
		r.Confidence = 0
		r.NeedsReview = true
		return r
	}
	r.NeedsReview = confidence < lowThreshold
	return r
}

// Confirm records a manual section decision made in the editor UI. The
// override is authoritative: confidence becomes 1.0 and the result leaves
// the review queue. An unknown label is still normalized through the
// taxonomy first.
func (r *ClassificationResult) Confirm(section string) {
	if matched, ok := MatchSection(section, nil); ok {
		r.Section = matched
	} else {
		r.Section = normalizeLabel(section)
	}
	r.Confidence = 1.0
	r.NeedsReview = false
}
