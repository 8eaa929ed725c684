package main

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const AuthorUnknown = "Автор неизвестен"

type ArticleMetadata struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

type SpellingError struct {
	Word       string `json:"word"`
	Suggestion string `json:"suggestion"`
	Context    string `json:"context"`
}

type SpellingReport struct {
	Errors []SpellingError `json:"errors"`
	Count  int             `json:"count"`
}

type ArticleReview struct {
	Relevance       int    `json:"relevance"`
	Novelty         int    `json:"novelty"`
	Structure       int    `json:"structure"`
	Clarity         int    `json:"clarity"`
	Literacy        int    `json:"literacy"`
	Overall         int    `json:"overall"`
	Recommendations string `json:"recommendations"`
}

type ArticleInput struct {
	FileName string
	Content  string
}

type ArticleAnalysis struct {
	Title          string               `json:"title"`
	Author         string               `json:"author"`
	Classification ClassificationResult `json:"classification"`
	StructureScore int                  `json:"structure_score"`
	QualityScore   int                  `json:"quality_score"`
}

func (o *Orchestrator) contentPrefix(content string) string {
	if len(content) > o.cfg.ContentPrefixChars {
		return content[:o.cfg.ContentPrefixChars]
	}
	return content
}

// fallbackTitle derives a human-readable title from the uploaded file name
// when the model gives nothing usable.
func fallbackTitle(fileName string) string {
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Без названия"
	}
	return base
}

var authorPlaceholders = map[string]bool{
	"":            true,
	"null":        true,
	"none":        true,
	"unknown":     true,
	"n/a":         true,
	"author":      true,
	"автор":       true,
	"не указан":   true,
	"неизвестен":  true,
	"неизвестный": true,
}

// normalizeAuthor collapses whitespace, trims trailing punctuation and maps
// placeholder values to the unknown-author sentinel. A trailing period is
// kept: initials like "Иванов И.И." end with one legitimately.
func normalizeAuthor(author string) string {
	author = strings.Join(strings.Fields(author), " ")
	author = strings.TrimRight(author, " ,;:")
	if authorPlaceholders[strings.ToLower(author)] {
		return AuthorUnknown
	}
	return author
}

// clampScore coerces a model-provided score to the 1-5 scale. Missing or
// non-numeric values default to the neutral middle rather than failing the
// review.
func clampScore(v gjson.Result) int {
	if !v.Exists() || (v.Type != gjson.Number && v.Type != gjson.String) {
		return 3
	}
	f := v.Float()
	if f == 0 && v.Type == gjson.String {
		return 3
	}
	switch {
	case f < 1:
		return 1
	case f > 5:
		return 5
	}
	return int(f + 0.5)
}

// --- ExtractMetadata ---

func (o *Orchestrator) ExtractMetadata(fileName, content string) (ArticleMetadata, error) {
	if cached, ok := o.cache.Get(taskMetadata, content, fileName); ok {
		return cached.(ArticleMetadata), nil
	}

	prompt := fmt.Sprintf(`Extract the title and author from this scientific article.
The article is in Russian. Use the exact wording from the text.

Respond with JSON only (no markdown):
{"title": "...", "author": "..."}

File name: %s

Article text:
%s`, fileName, o.contentPrefix(content))

	raw, err := o.Invoke(DispatchRequest{Prompt: prompt, MaxTokens: 512, TaskType: taskMetadata})
	if err != nil {
		return ArticleMetadata{}, err
	}

	meta := ArticleMetadata{Title: fallbackTitle(fileName), Author: AuthorUnknown}
	var parsed ArticleMetadata
	if SafeParse(raw, &parsed) {
		if strings.TrimSpace(parsed.Title) != "" {
			meta.Title = strings.TrimSpace(parsed.Title)
		}
		meta.Author = normalizeAuthor(parsed.Author)
	}

	o.cache.Put(taskMetadata, content, fileName, meta)
	return meta, nil
}

// --- DetectSection ---

type sectionResponse struct {
	Section    string  `json:"section"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func sectionPrompt(content, title string, intensified bool, attempt int) string {
	var b strings.Builder
	b.WriteString("Classify this Russian scientific article into exactly one journal section from:\n")
	for _, s := range canonicalSections {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	if intensified {
		fmt.Fprintf(&b, "\nThis is attempt %d. Previous attempts produced no usable section. You MUST pick one of the three sections above, verbatim.\n", attempt)
	}
	b.WriteString(`
Set confidence between 0 and 1.

Respond with JSON only (no markdown):
{"section": "...", "confidence": 0.9, "reasoning": "..."}
`)
	fmt.Fprintf(&b, "\nTitle: %s\n\nArticle text:\n%s", title, content)
	return b.String()
}

func (o *Orchestrator) DetectSection(content, title string) (ClassificationResult, error) {
	if cached, ok := o.cache.Get(taskSection, content, title); ok {
		return cached.(ClassificationResult), nil
	}

	prompt := sectionPrompt(o.contentPrefix(content), title, false, 0)
	raw, err := o.Invoke(DispatchRequest{Prompt: prompt, MaxTokens: 512, TaskType: taskSection})
	if err != nil {
		return ClassificationResult{}, err
	}

	result := o.classifyFromRaw(raw)
	o.cache.Put(taskSection, content, title, result)
	return result, nil
}

func (o *Orchestrator) classifyFromRaw(raw string) ClassificationResult {
	var parsed sectionResponse
	if !SafeParse(raw, &parsed) {
		return finalizeClassification(SectionUnassigned, false, 0, "unparsable model response", o.cfg.LowConfidence)
	}
	section, matched := MatchSection(parsed.Section, o.glossary)
	return finalizeClassification(section, matched, parsed.Confidence, parsed.Reasoning, o.cfg.LowConfidence)
}

// --- CheckSpelling ---

func (o *Orchestrator) CheckSpelling(content, fileName string) (SpellingReport, error) {
	if cached, ok := o.cache.Get(taskSpelling, content, fileName); ok {
		return cached.(SpellingReport), nil
	}

	prompt := fmt.Sprintf(`Find spelling errors in this Russian scientific article.
Report only genuine misspellings, not terminology or proper names.
For each error give the misspelled word, the corrected word and a short
surrounding context.

Respond with JSON only (no markdown):
{"errors": [{"word": "...", "suggestion": "...", "context": "..."}]}

Article text:
%s`, o.contentPrefix(content))

	raw, err := o.Invoke(DispatchRequest{Prompt: prompt, MaxTokens: 2048, TaskType: taskSpelling})
	if err != nil {
		return SpellingReport{}, err
	}

	var parsed struct {
		Errors []SpellingError `json:"errors"`
	}
	report := SpellingReport{Errors: []SpellingError{}}
	if SafeParse(raw, &parsed) {
		report.Errors = filterSpellingErrors(parsed.Errors)
	}
	report.Count = len(report.Errors)

	o.cache.Put(taskSpelling, content, fileName, report)
	return report, nil
}

// filterSpellingErrors drops entries where the "error" equals its own
// suggestion: a word that corrects to itself is not an error.
func filterSpellingErrors(errors []SpellingError) []SpellingError {
	out := []SpellingError{}
	for _, e := range errors {
		word := strings.TrimSpace(e.Word)
		suggestion := strings.TrimSpace(e.Suggestion)
		if word == "" || strings.EqualFold(word, suggestion) {
			continue
		}
		out = append(out, SpellingError{Word: word, Suggestion: suggestion, Context: strings.TrimSpace(e.Context)})
	}
	return out
}

// --- ReviewArticle ---

func (o *Orchestrator) ReviewArticle(content, fileName string) (ArticleReview, error) {
	if cached, ok := o.cache.Get(taskReview, content, fileName); ok {
		return cached.(ArticleReview), nil
	}

	prompt := fmt.Sprintf(`Review this Russian scientific article on five criteria,
each scored 1-5: relevance, novelty, structure, clarity, literacy.
Add an overall score (1-5) and concrete recommendations for the author.

Respond with JSON only (no markdown):
{"relevance": 4, "novelty": 3, "structure": 4, "clarity": 4, "literacy": 5, "overall": 4, "recommendations": "..."}

Article text:
%s`, o.contentPrefix(content))

	raw, err := o.Invoke(DispatchRequest{Prompt: prompt, MaxTokens: 1024, TaskType: taskReview})
	if err != nil {
		return ArticleReview{}, err
	}

	review := reviewFromRaw(raw)
	o.cache.Put(taskReview, content, fileName, review)
	return review, nil
}

// reviewFromRaw extracts scores field by field so one malformed value does
// not sink the rest of the review.
func reviewFromRaw(raw string) ArticleReview {
	candidate := ExtractJSON(raw)
	if !gjson.Valid(candidate) {
		candidate = RepairTruncated(candidate)
	}
	if !gjson.Valid(candidate) {
		candidate = "{}"
	}
	doc := gjson.Parse(candidate)

	review := ArticleReview{
		Relevance:       clampScore(doc.Get("relevance")),
		Novelty:         clampScore(doc.Get("novelty")),
		Structure:       clampScore(doc.Get("structure")),
		Clarity:         clampScore(doc.Get("clarity")),
		Literacy:        clampScore(doc.Get("literacy")),
		Recommendations: strings.TrimSpace(doc.Get("recommendations").String()),
	}
	if overall := doc.Get("overall"); overall.Exists() {
		review.Overall = clampScore(overall)
	} else {
		review.Overall = (review.Relevance + review.Novelty + review.Structure + review.Clarity + review.Literacy + 2) / 5
	}
	return review
}

// --- AnalyzeArticle / AnalyzeArticlesBatch ---

func batchPrompt(articles []ArticleInput, prefixChars int) string {
	var b strings.Builder
	b.WriteString("Analyze the following Russian scientific articles. For EACH article extract title and author, classify it into exactly one journal section from:\n")
	for _, s := range canonicalSections {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	b.WriteString(`
and score structure and quality from 1 to 5. Set confidence between 0 and 1.

Respond with a JSON array only (no markdown), one element per article, in input order:
[{"title": "...", "author": "...", "section": "...", "confidence": 0.9, "structure_score": 4, "quality_score": 3, "reasoning": "..."}]
`)
	for i, a := range articles {
		content := a.Content
		if len(content) > prefixChars {
			content = content[:prefixChars]
		}
		fmt.Fprintf(&b, "\n--- Article %d (file: %s) ---\n%s\n", i+1, a.FileName, content)
	}
	return b.String()
}

// fallbackAnalysis is the per-article default used when the provider
// returned fewer array elements than articles, or failed entirely.
func (o *Orchestrator) fallbackAnalysis(a ArticleInput) ArticleAnalysis {
	return ArticleAnalysis{
		Title:          fallbackTitle(a.FileName),
		Author:         AuthorUnknown,
		Classification: finalizeClassification(SectionUnassigned, false, 0, "no analysis produced", o.cfg.LowConfidence),
		StructureScore: 3,
		QualityScore:   3,
	}
}

func (o *Orchestrator) analysisFromItem(a ArticleInput, item gjson.Result) ArticleAnalysis {
	out := o.fallbackAnalysis(a)
	if !item.Exists() {
		return out
	}
	if title := strings.TrimSpace(item.Get("title").String()); title != "" {
		out.Title = title
	}
	out.Author = normalizeAuthor(item.Get("author").String())
	section, matched := MatchSection(item.Get("section").String(), o.glossary)
	out.Classification = finalizeClassification(section, matched,
		item.Get("confidence").Float(), strings.TrimSpace(item.Get("reasoning").String()), o.cfg.LowConfidence)
	out.StructureScore = clampScore(item.Get("structure_score"))
	out.QualityScore = clampScore(item.Get("quality_score"))
	return out
}

func (o *Orchestrator) AnalyzeArticle(fileName, content string) (ArticleAnalysis, error) {
	results, err := o.AnalyzeArticlesBatch([]ArticleInput{{FileName: fileName, Content: content}})
	if err != nil {
		return ArticleAnalysis{}, err
	}
	return results[0], nil
}

// AnalyzeArticlesBatch analyzes up to BatchSize articles per model call.
// The result always has one element per input: articles the provider
// skipped get per-item defaults, and results are re-associated by position.
func (o *Orchestrator) AnalyzeArticlesBatch(articles []ArticleInput) ([]ArticleAnalysis, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	results := make([]ArticleAnalysis, 0, len(articles))
	for start := 0; start < len(articles); start += o.cfg.BatchSize {
		end := start + o.cfg.BatchSize
		if end > len(articles) {
			end = len(articles)
		}
		chunk, err := o.analyzeChunk(articles[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, chunk...)
	}
	return results, nil
}

func (o *Orchestrator) analyzeChunk(articles []ArticleInput) ([]ArticleAnalysis, error) {
	// Every article in the chunk enters the key: its file name plus its
	// own prefix digest.
	var aux strings.Builder
	for i, a := range articles {
		if i > 0 {
			aux.WriteByte('|')
		}
		aux.WriteString(a.FileName)
		aux.WriteByte('=')
		aux.WriteString(o.cache.PrefixDigest(a.Content))
	}
	fmt.Fprintf(&aux, "|n=%d", len(articles))

	cacheContent := articles[0].Content
	auxKey := aux.String()
	if cached, ok := o.cache.Get(taskBatch, cacheContent, auxKey); ok {
		return cached.([]ArticleAnalysis), nil
	}

	prompt := batchPrompt(articles, o.cfg.ContentPrefixChars)
	raw, err := o.Invoke(DispatchRequest{Prompt: prompt, MaxTokens: 2048, TaskType: taskBatch})
	if err != nil {
		return nil, err
	}

	candidate := ExtractJSONArray(raw)
	if !gjson.Valid(candidate) {
		candidate = RepairTruncated(candidate)
	}
	if !gjson.Valid(candidate) {
		candidate = "[]"
	}
	items := gjson.Parse(candidate).Array()
	if len(items) < len(articles) {
		log.Printf("llm batch short response got=%d want=%d", len(items), len(articles))
	}

	results := make([]ArticleAnalysis, len(articles))
	for i, a := range articles {
		if i < len(items) {
			results[i] = o.analysisFromItem(a, items[i])
		} else {
			results[i] = o.fallbackAnalysis(a)
		}
	}

	o.cache.Put(taskBatch, cacheContent, auxKey, results)
	return results, nil
}

// --- RetryClassification ---

// RetryClassification re-runs section detection with an intensified prompt,
// advancing through fallback models and backing off between attempts.
// Credential failures end the loop early; anything else degrades to the
// review-queue sentinel naming the attempt count.
func (o *Orchestrator) RetryClassification(content, title string, maxRetries int) ClassificationResult {
	if maxRetries < 1 {
		maxRetries = 3
	}

	attempts := 0
	for attempt := 0; attempt < maxRetries; attempt++ {
		attempts++
		prompt := sectionPrompt(o.contentPrefix(content), title, true, attempt+1)
		raw, err := o.Invoke(DispatchRequest{
			Prompt:     prompt,
			MaxTokens:  512,
			TaskType:   taskSection,
			ModelIndex: attempt,
		})
		if err != nil {
			code := ErrorCode(err)
			log.Printf("retry classification attempt=%d error=%s", attempt+1, code)
			if code == CodeAPIKeyMissing || code == CodeAPIKeyInvalid {
				break
			}
		} else {
			result := o.classifyFromRaw(raw)
			if result.Section != SectionUnassigned {
				return result
			}
		}
		if attempt < maxRetries-1 {
			o.sleep(time.Duration(1<<attempt) * time.Second)
		}
	}

	return finalizeClassification(SectionUnassigned, false, 0,
		fmt.Sprintf("classification failed after %d attempts", attempts), o.cfg.LowConfidence)
}

// ClearCache drops every cached result; exposed for the re-upload flow
// where an editor replaces an article's source file.
func (o *Orchestrator) ClearCache() {
	o.cache.Clear()
}
