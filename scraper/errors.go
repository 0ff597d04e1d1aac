package scraper

import (
	"errors"

	"atlas_scraper/models"
)

var (
	// ErrUnsupportedPlatform means the platform is outside the supported set.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrBlocked means the target served a CAPTCHA or bot wall. Retrying the
	// same session will not help.
	ErrBlocked = errors.New("blocked by anti-bot protection")

	// ErrTransient covers timeouts and navigation failures worth retrying.
	ErrTransient = errors.New("transient scrape failure")

	// ErrParse means the page loaded but the expected fields were missing.
	ErrParse = errors.New("listing parse failed")
)

// Outcome is the tagged result of one analysis: the payload plus how it was
// produced. Callers branch on Confidence, never on error strings.
type Outcome struct {
	Analysis        *models.Analysis
	Confidence      models.Confidence
	CacheHit        bool
	CaptchaDetected bool
	Attempts        int
}
