package main

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// Task types partition the cache and tag requests in logs.
const (
	taskMetadata = "metadata"
	taskSection  = "section"
	taskSpelling = "spelling"
	taskReview   = "review"
	taskAnalyze  = "analyze"
	taskBatch    = "batch"
)

// DispatchRequest is one logical model invocation. ModelIndex seeds the
// escalation state so callers (RetryClassification) can start past the
// primary model.
type DispatchRequest struct {
	Prompt     string
	MaxTokens  int
	TaskType   string
	ModelIndex int
}

type failureKind int

const (
	failureAuth failureKind = iota
	failureQuota
	failureModelUnavailable
	failureServer
	failureNetwork
	failureMalformed
)

// classifyFailure buckets a provider failure for the escalation chain.
// Grounded on the status code when one exists, message text otherwise.
func classifyFailure(f *callFailure) failureKind {
	switch f.Status {
	case 401, 403:
		return failureAuth
	case 429:
		return failureQuota
	case 400, 404, 422:
		// Free tiers reject retired model names as bad requests.
		if strings.Contains(strings.ToLower(f.Body), "model") {
			return failureModelUnavailable
		}
		return failureMalformed
	}
	if f.Status >= 500 {
		return failureServer
	}
	if f.Status == 0 {
		return failureNetwork
	}

	lower := strings.ToLower(f.Body)
	switch {
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests") || strings.Contains(lower, "quota"):
		return failureQuota
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		return failureAuth
	}
	return failureMalformed
}

func isDailyQuota(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "per day") || strings.Contains(lower, "daily") ||
		strings.Contains(lower, "tpd") || strings.Contains(lower, "rpd")
}

// Orchestrator owns the shared mutable state (limiter, cache) and the
// provider registry. Construct one per process; tests construct isolated
// instances with fake registries and clocks.
type Orchestrator struct {
	cfg      Config
	registry []ProviderConfig
	limiter  *RateLimiter
	cache    *ResponseCache
	client   *http.Client
	glossary *SectionGlossary
	sleep    func(time.Duration)
}

func NewOrchestrator(cfg Config) *Orchestrator {
	registry := BuildProviderRegistry(cfg)
	var glossary *SectionGlossary
	if cfg.GlossaryPath != "" {
		g, err := LoadSectionGlossary(cfg.GlossaryPath)
		if err != nil {
			log.Printf("glossary disabled: %v", err)
		} else {
			glossary = g
		}
	}
	return &Orchestrator{
		cfg:      cfg,
		registry: registry,
		limiter:  NewRateLimiter(registry, time.Duration(cfg.CooldownSeconds)*time.Second),
		cache:    NewResponseCache(time.Duration(cfg.CacheTTLMinutes)*time.Minute, cfg.CacheMaxEntries, cfg.CachePrefixChars),
		client:   &http.Client{Timeout: externalHTTPTimeout},
		glossary: glossary,
		sleep:    time.Sleep,
	}
}

func (o *Orchestrator) availableProviders() []ProviderConfig {
	var avail []ProviderConfig
	for _, p := range o.registry {
		if p.Configured() {
			avail = append(avail, p)
		}
	}
	return avail
}

func (o *Orchestrator) callProvider(p ProviderConfig, model, prompt string, maxTokens int) (string, *callFailure) {
	if p.Name == providerAnthropic {
		return callAnthropic(p, model, prompt, maxTokens)
	}
	return callChatCompletions(o.client, p, model, prompt, maxTokens)
}

// Invoke walks the escalation chain until one provider/model combination
// answers or every slot is spent. Each transition consumes a model slot, a
// provider slot, or a retry slot, so total attempts are bounded by
// models×providers plus the retry budget.
func (o *Orchestrator) Invoke(req DispatchRequest) (string, error) {
	avail := o.availableProviders()
	if len(avail) == 0 {
		return "", &OrchestratorError{
			Code:    CodeAPIKeyMissing,
			Message: "no provider credentials configured",
		}
	}

	providerIdx := 0
	modelIdx := req.ModelIndex
	if modelIdx < 0 || modelIdx >= len(avail[0].Models) {
		modelIdx = 0
	}
	retries := 0
	var lastFailure *callFailure

	nextProvider := func() bool {
		if providerIdx+1 < len(avail) {
			providerIdx++
			modelIdx = 0
			return true
		}
		return false
	}

	for {
		p := avail[providerIdx]
		model := p.Models[modelIdx]

		o.limiter.AwaitTurn(p.Name)
		log.Printf("llm dispatch task=%s provider=%s model=%s attempt p=%d m=%d r=%d",
			req.TaskType, p.Name, model, providerIdx, modelIdx, retries)

		text, fail := o.callProvider(p, model, req.Prompt, req.MaxTokens)
		if fail == nil {
			o.limiter.RecordSuccess(p.Name)
			return text, nil
		}
		lastFailure = fail

		switch classifyFailure(fail) {
		case failureAuth:
			log.Printf("llm auth rejected provider=%s", p.Name)
			if nextProvider() {
				continue
			}
			return "", &OrchestratorError{
				Code:    CodeAPIKeyInvalid,
				Message: "provider rejected the configured credentials",
				Err:     fail,
			}

		case failureQuota:
			o.limiter.RecordQuotaError(p.Name)
			daily := isDailyQuota(fail.Body)
			log.Printf("llm quota provider=%s model=%s daily=%v", p.Name, model, daily)
			// A daily cap will not clear within this request; skip the
			// remaining models of this provider.
			if !daily && modelIdx+1 < len(p.Models) {
				modelIdx++
				o.sleep(time.Second)
				continue
			}
			if nextProvider() {
				continue
			}
			if retries < o.cfg.RetryBudget {
				backoff := time.Duration(1<<retries) * 2 * time.Second
				retries++
				log.Printf("llm quota backoff=%s retry=%d/%d", backoff, retries, o.cfg.RetryBudget)
				o.sleep(backoff)
				continue
			}
			msg := "per-minute rate limit reached on all providers"
			suggestion := "wait a minute and retry"
			if daily {
				msg = "daily request quota exhausted"
				suggestion = "retry tomorrow or configure an additional provider key"
			}
			return "", &OrchestratorError{
				Code:       CodeRateLimit,
				Message:    msg,
				Suggestion: suggestion,
				Err:        fail,
			}

		case failureModelUnavailable:
			log.Printf("llm model unavailable provider=%s model=%s", p.Name, model)
			if modelIdx+1 < len(p.Models) {
				modelIdx++
				continue
			}
			if nextProvider() {
				continue
			}
			return "", &OrchestratorError{
				Code:    CodeGeneric,
				Message: fmt.Sprintf("no usable model on any provider (last: %s/%s)", p.Name, model),
				Err:     fail,
			}

		case failureServer, failureNetwork:
			log.Printf("llm provider down provider=%s: %v", p.Name, fail)
			if nextProvider() {
				continue
			}
			return "", &OrchestratorError{
				Code:    CodeAllProvidersExhausted,
				Message: "all providers unavailable",
				Err:     lastFailure,
			}

		default: // failureMalformed: a 2xx with an unusable payload is not retried
			return "", &OrchestratorError{
				Code:    CodeGeneric,
				Message: "provider returned an unusable response",
				Err:     fail,
			}
		}
	}
}
