package main

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// StartCacheSweeper periodically drops stale cache entries. The schedule is
// a standard 5-field cron expression (minute hour day-of-month month
// day-of-week), e.g. "*/10 * * * *" for every ten minutes.
func StartCacheSweeper(schedule string, cache *ResponseCache) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		log.Println("Cache sweeper disabled (sweep_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid sweep_schedule '%s': %v — sweeper disabled", schedule, err)
		return
	}
	log.Printf("Cache sweeper scheduled (cron: %s)", schedule)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			time.Sleep(next.Sub(now))

			removed := cache.Sweep()
			hits, misses := cache.Stats()
			log.Printf("cache sweep removed=%d live=%d hits=%d misses=%d", removed, cache.Len(), hits, misses)
		}
	}()
}

// RunWatcher scans dir on the given cron schedule and analyzes any article
// text file that has no recorded classification yet. Blocks forever.
func RunWatcher(cfg Config, orch *Orchestrator, db *sql.DB, dir string) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(cfg.SweepSchedule)
	if err != nil {
		log.Fatalf("Invalid sweep_schedule '%s': %v", cfg.SweepSchedule, err)
	}
	log.Printf("Watching %s (cron: %s)", dir, cfg.SweepSchedule)

	for {
		scanWatchDir(orch, db, dir)

		now := time.Now()
		next := sched.Next(now)
		log.Printf("Next scan at %s (in %s)", next.Format("Mon Jan 2 15:04"), next.Sub(now).Round(time.Second))
		time.Sleep(next.Sub(now))
	}
}

func scanWatchDir(orch *Orchestrator, db *sql.DB, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("watch read dir error: %v", err)
		return
	}

	var pending []ArticleInput
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		seen, err := AlreadyAnalyzed(db, entry.Name())
		if err != nil {
			log.Printf("watch history check error file=%s: %v", entry.Name(), err)
			continue
		}
		if seen {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Printf("watch read error file=%s: %v", entry.Name(), err)
			continue
		}
		pending = append(pending, ArticleInput{FileName: entry.Name(), Content: string(content)})
	}
	if len(pending) == 0 {
		return
	}
	log.Printf("watch found %d new article(s)", len(pending))

	results, err := orch.AnalyzeArticlesBatch(pending)
	if err != nil {
		log.Printf("watch analyze error (%s): %v", ErrorCode(err), err)
		return
	}
	for i, result := range results {
		if err := RecordAnalysis(db, pending[i].FileName, result); err != nil {
			log.Printf("watch record error file=%s: %v", pending[i].FileName, err)
			continue
		}
		log.Printf("analyzed file=%s section=%q confidence=%.2f needs_review=%v",
			pending[i].FileName, result.Classification.Section,
			result.Classification.Confidence, result.Classification.NeedsReview)
	}
}
