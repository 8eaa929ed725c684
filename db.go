package main

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS classification_history (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		file_name     TEXT NOT NULL,
		title         TEXT DEFAULT '',
		author        TEXT DEFAULT '',
		section       TEXT NOT NULL,
		confidence    REAL NOT NULL,
		needs_review  INTEGER NOT NULL DEFAULT 0,
		structure_score INTEGER DEFAULT 0,
		quality_score   INTEGER DEFAULT 0,
		classified_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_ch_file ON classification_history(file_name);
	CREATE INDEX IF NOT EXISTS idx_ch_date ON classification_history(classified_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// HistoryEntry is one recorded analysis, as shown by the history command
// and the archive screens of the surrounding app.
type HistoryEntry struct {
	ID           int64
	FileName     string
	Title        string
	Author       string
	Section      string
	Confidence   float64
	NeedsReview  bool
	ClassifiedAt time.Time
}

func RecordAnalysis(db *sql.DB, fileName string, a ArticleAnalysis) error {
	_, err := db.Exec(`
		INSERT INTO classification_history
			(file_name, title, author, section, confidence, needs_review, structure_score, quality_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		fileName, a.Title, a.Author,
		a.Classification.Section, a.Classification.Confidence, a.Classification.NeedsReview,
		a.StructureScore, a.QualityScore)
	return err
}

func RecentHistory(db *sql.DB, limit int) ([]HistoryEntry, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, file_name, title, author, section, confidence, needs_review, classified_at
		FROM classification_history
		ORDER BY classified_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.FileName, &e.Title, &e.Author, &e.Section,
			&e.Confidence, &e.NeedsReview, &e.ClassifiedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AlreadyAnalyzed reports whether a file name has a recorded analysis, used
// by the watch loop to skip files it has already seen.
func AlreadyAnalyzed(db *sql.DB, fileName string) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM classification_history WHERE file_name = ?`, fileName).Scan(&count)
	return count > 0, err
}
