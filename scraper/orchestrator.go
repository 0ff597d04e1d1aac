package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"atlas_scraper/config"
	"atlas_scraper/models"
	"atlas_scraper/services"
	"atlas_scraper/storage"
)

// RunStore persists operational run records. Nil disables run tracking.
type RunStore interface {
	CreateRun(run *models.AnalysisRun) (int64, error)
	UpdateRun(run *models.AnalysisRun) error
	Log(runID *int64, level models.LogLevel, message, platform string) error
}

// ArchiveStore receives real-confidence analyses. Nil disables archiving.
type ArchiveStore interface {
	SaveAnalysis(ctx context.Context, a *models.Analysis) error
}

// ImageArchiver stores listing images out of band. Nil disables it.
type ImageArchiver interface {
	Archive(platform models.Platform, urls []string)
}

// AnalyzeRequest is one unit of work for the orchestrator.
type AnalyzeRequest struct {
	RequestID   string
	Platform    models.Platform
	URL         string
	UseMockData bool
}

// Orchestrator runs the scrape-or-degrade pipeline: cache, browser scrape
// with retries, partial extraction, synthetic fallback, enrichment, cache
// write. It always produces an Outcome; errors surface only for invalid
// input or a cancelled context.
type Orchestrator struct {
	cfg       *config.Config
	launcher  Launcher
	cache     *storage.FileCache
	runs      RunStore
	archive   ArchiveStore
	images    ImageArchiver
	analyzer  *services.Analyzer
	generator *services.Generator
	backoff   *BackoffPolicy
	delay     DelayFunc
	log       *logrus.Logger
}

type OrchestratorOptions struct {
	Config    *config.Config
	Launcher  Launcher
	Cache     *storage.FileCache
	Runs      RunStore
	Archive   ArchiveStore
	Images    ImageArchiver
	Analyzer  *services.Analyzer
	Generator *services.Generator
	Backoff   *BackoffPolicy
	Delay     DelayFunc
	Log       *logrus.Logger
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	if opts.Backoff == nil {
		opts.Backoff = NewBackoff(opts.Config.Scraper, nil)
	}
	if opts.Delay == nil {
		opts.Delay = HumanDelay(nil)
	}
	if opts.Log == nil {
		opts.Log = logrus.New()
	}
	return &Orchestrator{
		cfg:       opts.Config,
		launcher:  opts.Launcher,
		cache:     opts.Cache,
		runs:      opts.Runs,
		archive:   opts.Archive,
		images:    opts.Images,
		analyzer:  opts.Analyzer,
		generator: opts.Generator,
		backoff:   opts.Backoff,
		delay:     opts.Delay,
		log:       opts.Log,
	}
}

// Analyze resolves one listing URL to an analysis, degrading through
// partial and synthetic data rather than failing.
func (o *Orchestrator) Analyze(ctx context.Context, req AnalyzeRequest) (*Outcome, error) {
	if _, ok := models.ParsePlatform(string(req.Platform)); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, req.Platform)
	}
	if !req.Platform.MatchesURL(req.URL) {
		return nil, fmt.Errorf("%w: url %q does not match platform %s", ErrUnsupportedPlatform, req.URL, req.Platform)
	}

	log := o.log.WithFields(logrus.Fields{
		"platform": req.Platform,
		"url":      req.URL,
		"request":  req.RequestID,
	})

	run := &models.AnalysisRun{
		RequestID: req.RequestID,
		Platform:  req.Platform,
		URL:       req.URL,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	if o.runs != nil {
		if id, err := o.runs.CreateRun(run); err != nil {
			log.WithError(err).Warn("run record create failed")
		} else {
			run.ID = id
		}
	}

	var runID *int64
	if run.ID != 0 {
		runID = &run.ID
	}

	outcome, err := o.analyze(ctx, req, runID, log)

	run.Status = models.RunStatusCompleted
	if err != nil {
		run.Status = models.RunStatusFailed
		run.ErrorMessage = err.Error()
	}
	if outcome != nil {
		run.Confidence = outcome.Confidence
		run.CacheHit = outcome.CacheHit
		run.CaptchaDetected = outcome.CaptchaDetected
		run.Attempts = outcome.Attempts
	}
	now := time.Now()
	run.FinishedAt = &now
	if o.runs != nil && run.ID != 0 {
		if uerr := o.runs.UpdateRun(run); uerr != nil {
			log.WithError(uerr).Warn("run record update failed")
		}
	}

	return outcome, err
}

func (o *Orchestrator) analyze(ctx context.Context, req AnalyzeRequest, runID *int64, log *logrus.Entry) (*Outcome, error) {
	if cached, ok := o.cache.Get(req.Platform, req.URL); ok {
		log.Info("cache hit")
		return &Outcome{
			Analysis:   cached,
			Confidence: cachedConfidence(cached),
			CacheHit:   true,
		}, nil
	}

	if req.UseMockData {
		record := o.generator.FullySynthetic(req.Platform, req.URL)
		return o.finish(ctx, req, record, models.ConfidenceSynthetic, 0, false, log)
	}

	record, confidence, attempts, captcha := o.scrape(ctx, req, runID, log)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return o.finish(ctx, req, record, confidence, attempts, captcha, log)
}

// scrape drives the browser through up to MaxAttempts navigations and
// returns the best record it got, degrading to partial or synthetic data.
func (o *Orchestrator) scrape(ctx context.Context, req AnalyzeRequest, runID *int64, log *logrus.Entry) (*models.PropertyRecord, models.Confidence, int, bool) {
	var partial *models.PropertyRecord
	captcha := false
	attempts := 0

	maxAttempts := o.backoff.MaxAttempts
	platformCfg := o.cfg.Platforms[req.Platform]

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}
		attempts = attempt

		record, p, blocked, err := o.attempt(ctx, req, platformCfg, log)
		if p != nil && partial == nil {
			partial = p
		}
		if blocked {
			captcha = true
			o.logRun(runID, models.LogLevelWarn, "captcha detected, degrading to fallback data", req.Platform)
			break
		}
		if err == nil && record != nil {
			return record, models.ConfidenceReal, attempts, false
		}

		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Warn("scrape attempt failed")
			o.logRun(runID, models.LogLevelWarn, fmt.Sprintf("attempt %d failed: %v", attempt, err), req.Platform)
		}

		if attempt < maxAttempts {
			if werr := o.backoff.Wait(ctx, attempt); werr != nil {
				break
			}
		}
	}

	if partial != nil {
		o.generator.FillPartial(partial)
		return partial, models.ConfidencePartial, attempts, captcha
	}

	record := o.generator.FullySynthetic(req.Platform, req.URL)
	return record, models.ConfidenceSynthetic, attempts, captcha
}

// attempt runs one browser session against the URL. Returns the full record
// on success, any partial record it could salvage, and whether the page was
// a bot wall.
func (o *Orchestrator) attempt(ctx context.Context, req AnalyzeRequest, platformCfg *config.PlatformConfig, log *logrus.Entry) (record, partial *models.PropertyRecord, blocked bool, err error) {
	session, err := o.launcher.NewSession(ctx)
	if err != nil {
		return nil, nil, false, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer session.Close()

	preDelay := 2 * time.Second
	if platformCfg != nil && platformCfg.PreNavDelayMS > 0 {
		preDelay = time.Duration(platformCfg.PreNavDelayMS) * time.Millisecond
	}
	if err := o.delay(ctx, preDelay, preDelay+time.Second); err != nil {
		return nil, nil, false, err
	}

	if err := session.Navigate(ctx, req.URL); err != nil {
		return nil, nil, false, err
	}

	session.SimulateReading()

	if session.CaptchaPresent() {
		if text, terr := session.Text(); terr == nil {
			if p, ok := ExtractPartial(req.Platform, req.URL, text); ok {
				partial = p
			}
		}
		return nil, partial, true, ErrBlocked
	}

	html, err := session.Content()
	if err != nil {
		return nil, nil, false, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, false, fmt.Errorf("%w: %v", ErrParse, err)
	}

	parser, err := ForPlatform(req.Platform)
	if err != nil {
		return nil, nil, false, err
	}

	parsed, err := parser.Parse(doc, req.URL)
	if err != nil {
		// Selectors found nothing; the raw text may still hold fragments.
		if text, terr := session.Text(); terr == nil {
			if p, ok := ExtractPartial(req.Platform, req.URL, text); ok {
				partial = p
			}
		}
		return nil, partial, false, err
	}

	if parsed.Price > 0 && parsed.SquareMeters > 0 {
		return parsed, nil, false, nil
	}

	// Incomplete extraction counts as partial, not success.
	parsed.Source.Partial = true
	return nil, parsed, false, fmt.Errorf("%w: incomplete listing fields", ErrParse)
}

// finish enriches the record, caches and archives the result.
func (o *Orchestrator) finish(ctx context.Context, req AnalyzeRequest, record *models.PropertyRecord, confidence models.Confidence, attempts int, captcha bool, log *logrus.Entry) (*Outcome, error) {
	analysis := o.analyzer.Analyze(ctx, record, confidence)

	outcome := &Outcome{
		Analysis:        analysis,
		Confidence:      confidence,
		CaptchaDetected: captcha,
		Attempts:        attempts,
	}

	// A result assembled after cancellation must not poison the cache.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	ttl := confidence.CacheTTL()
	switch {
	case confidence == models.ConfidenceReal && o.cfg.Cache.DefaultTTL > 0:
		ttl = o.cfg.Cache.DefaultTTL
	case confidence == models.ConfidenceSynthetic && !captcha:
		ttl = time.Hour
	}
	o.cache.Put(req.Platform, req.URL, analysis, ttl)

	if confidence == models.ConfidenceReal {
		if o.archive != nil {
			if err := o.archive.SaveAnalysis(ctx, analysis); err != nil {
				log.WithError(err).Warn("archive write failed")
			}
		}
		if o.images != nil && len(analysis.Images) > 0 {
			o.images.Archive(req.Platform, analysis.Images)
		}
	}

	log.WithFields(logrus.Fields{
		"confidence": confidence,
		"attempts":   attempts,
		"captcha":    captcha,
	}).Info("analysis complete")

	return outcome, nil
}

func (o *Orchestrator) logRun(runID *int64, level models.LogLevel, message string, platform models.Platform) {
	if o.runs == nil {
		return
	}
	if err := o.runs.Log(runID, level, message, string(platform)); err != nil && !errors.Is(err, context.Canceled) {
		o.log.WithError(err).Debug("run log write failed")
	}
}

// cachedConfidence reconstructs the confidence tag from a cached payload.
func cachedConfidence(a *models.Analysis) models.Confidence {
	switch {
	case !a.IsFallback:
		return models.ConfidenceReal
	case a.Source.Partial:
		return models.ConfidencePartial
	default:
		return models.ConfidenceSynthetic
	}
}
