package main

import "testing"

func TestRecordAndListHistory(t *testing.T) {
	db, err := InitDB(":memory:")
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	defer db.Close()

	analysis := ArticleAnalysis{
		Title:  "Анализ методов",
		Author: "Иванов И.И.",
		Classification: ClassificationResult{
			Section:    SectionTechnical,
			Confidence: 0.9,
		},
		StructureScore: 4,
		QualityScore:   4,
	}
	if err := RecordAnalysis(db, "statya.txt", analysis); err != nil {
		t.Fatalf("RecordAnalysis: %v", err)
	}

	entries, err := RecentHistory(db, 10)
	if err != nil {
		t.Fatalf("RecentHistory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.FileName != "statya.txt" || e.Section != SectionTechnical || e.Confidence != 0.9 {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.NeedsReview {
		t.Fatal("needs_review persisted wrong")
	}

	seen, err := AlreadyAnalyzed(db, "statya.txt")
	if err != nil || !seen {
		t.Fatalf("AlreadyAnalyzed = (%v, %v), want true", seen, err)
	}
	seen, err = AlreadyAnalyzed(db, "drugaya.txt")
	if err != nil || seen {
		t.Fatalf("AlreadyAnalyzed for unknown file = (%v, %v), want false", seen, err)
	}
}
