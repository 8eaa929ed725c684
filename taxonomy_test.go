package main

import "testing"

func TestMatchSection(t *testing.T) {
	cases := []struct {
		detected string
		want     string
		matched  bool
	}{
		{"ТЕХНИЧЕСКИЕ НАУКИ", SectionTechnical, true},
		{"технические науки", SectionTechnical, true},
		{"  Гуманитарные науки  ", SectionHumanities, true},
		// Partial label is still a match.
		{"ТЕХНИЧЕСКИЕ", SectionTechnical, true},
		{"ЕСТЕСТВЕННЫЕ", SectionNatural, true},
		// Keyword stems from free-text model answers.
		{"техническое направление", SectionTechnical, true},
		{"статья по программированию", SectionTechnical, true},
		{"филологическая секция", SectionHumanities, true},
		{"физико-математические науки", SectionNatural, true},
		// Outside the taxonomy entirely.
		{"ИСТОРИЯ", SectionUnassigned, false},
		{"", SectionUnassigned, false},
		{"random english text", SectionUnassigned, false},
	}

	for _, tc := range cases {
		got, matched := MatchSection(tc.detected, nil)
		if got != tc.want || matched != tc.matched {
			t.Errorf("MatchSection(%q) = (%q, %v), want (%q, %v)",
				tc.detected, got, matched, tc.want, tc.matched)
		}
	}
}

func TestFinalizeClassificationReviewGate(t *testing.T) {
	const threshold = 0.5

	r := finalizeClassification(SectionTechnical, true, 0.9, "ok", threshold)
	if r.NeedsReview {
		t.Fatal("high-confidence matched section must not need review")
	}

	r = finalizeClassification(SectionTechnical, true, 0.3, "weak", threshold)
	if !r.NeedsReview {
		t.Fatal("confidence below threshold must force needs_review")
	}

	r = finalizeClassification("ИСТОРИЯ", false, 0.95, "off-taxonomy", threshold)
	if !r.NeedsReview {
		t.Fatal("unmatched section must force needs_review regardless of confidence")
	}
	if r.Section != SectionUnassigned || r.Confidence != 0 {
		t.Fatalf("unmatched result = %+v, want sentinel with confidence 0", r)
	}

	// Confidence is clamped into [0, 1].
	r = finalizeClassification(SectionNatural, true, 1.7, "", threshold)
	if r.Confidence != 1 {
		t.Fatalf("confidence not clamped: %f", r.Confidence)
	}
}

func TestConfirmOverride(t *testing.T) {
	r := finalizeClassification(SectionUnassigned, false, 0, "no match", 0.5)
	r.Confirm("технические")

	if r.Section != SectionTechnical {
		t.Fatalf("Confirm section = %q, want %q", r.Section, SectionTechnical)
	}
	if r.Confidence != 1.0 {
		t.Fatalf("Confirm must force confidence 1.0, got %f", r.Confidence)
	}
	if r.NeedsReview {
		t.Fatal("Confirm must clear needs_review")
	}
}

func TestGlossaryLookup(t *testing.T) {
	g := &SectionGlossary{Terms: []SectionGlossaryTerm{
		{Phrase: "нейронные сети", Section: "технические"},
	}}

	section, ok := MatchSection("Нейронные сети в диагностике", g)
	if !ok || section != SectionTechnical {
		t.Fatalf("glossary match = (%q, %v), want technical", section, ok)
	}

	// Glossary must not swallow labels it does not know.
	if _, ok := MatchSection("ИСТОРИЯ", g); ok {
		t.Fatal("glossary should not match unrelated label")
	}
}
