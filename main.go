package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: redaktor <command> [args]

Commands:
  analyze <file>...   full analysis (metadata + section + scores) per file
  metadata <file>     extract title and author
  section <file>      classify into a journal section
  spelling <file>     spell-check the article
  review <file>       score the article on five criteria
  watch <dir>         analyze new .txt files on a schedule
  history             show recent classifications`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg := LoadConfig()
	orch := NewOrchestrator(cfg)

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "analyze":
		if len(os.Args) < 3 {
			usage()
		}
		var inputs []ArticleInput
		for _, path := range os.Args[2:] {
			inputs = append(inputs, ArticleInput{FileName: path, Content: readArticle(path)})
		}
		results, err := orch.AnalyzeArticlesBatch(inputs)
		if err != nil {
			log.Fatalf("analyze failed (%s): %v", ErrorCode(err), err)
		}
		for i, r := range results {
			if err := RecordAnalysis(db, inputs[i].FileName, r); err != nil {
				log.Printf("history record error file=%s: %v", inputs[i].FileName, err)
			}
		}
		printJSON(results)

	case "metadata":
		meta, err := orch.ExtractMetadata(argFile(), readArticle(argFile()))
		exitOn(err)
		printJSON(meta)

	case "section":
		path := argFile()
		content := readArticle(path)
		meta, err := orch.ExtractMetadata(path, content)
		exitOn(err)
		result, err := orch.DetectSection(content, meta.Title)
		exitOn(err)
		if result.NeedsReview {
			result = orch.RetryClassification(content, meta.Title, 3)
		}
		printJSON(result)

	case "spelling":
		report, err := orch.CheckSpelling(readArticle(argFile()), argFile())
		exitOn(err)
		printJSON(report)

	case "review":
		review, err := orch.ReviewArticle(readArticle(argFile()), argFile())
		exitOn(err)
		printJSON(review)

	case "watch":
		dir := cfg.WatchDir
		if len(os.Args) > 2 {
			dir = os.Args[2]
		}
		if dir == "" {
			usage()
		}
		StartCacheSweeper(cfg.SweepSchedule, orch.cache)
		RunWatcher(cfg, orch, db, dir)

	case "history":
		entries, err := RecentHistory(db, 20)
		exitOn(err)
		for _, e := range entries {
			review := ""
			if e.NeedsReview {
				review = " [needs review]"
			}
			fmt.Printf("%s  %-40s %s (%.2f)%s\n",
				e.ClassifiedAt.Format("2006-01-02 15:04"), e.FileName, e.Section, e.Confidence, review)
		}

	default:
		usage()
	}
}

func argFile() string {
	if len(os.Args) < 3 {
		usage()
	}
	return os.Args[2]
}

func readArticle(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

func exitOn(err error) {
	if err != nil {
		log.Fatalf("%s: %v", ErrorCode(err), err)
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("marshal output: %v", err)
	}
	fmt.Println(string(out))
}
