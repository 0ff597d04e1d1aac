package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"

	"atlas_scraper/config"
	"atlas_scraper/identity"
)

// stealthScript patches the fingerprint surfaces headless Chromium leaks:
// navigator.webdriver, empty plugin lists and the language order.
const stealthScript = `
(function() {
    'use strict';
    Object.defineProperty(navigator, 'webdriver', { get: () => undefined, configurable: true });
    delete Object.getPrototypeOf(navigator).webdriver;
    Object.defineProperty(navigator, 'languages', { get: () => ['es-ES', 'es', 'en'], configurable: true });
    Object.defineProperty(navigator, 'plugins', {
        get: () => [
            { name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer' },
            { name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai' },
            { name: 'Native Client', filename: 'internal-nacl-plugin' }
        ],
        configurable: true
    });
    window.chrome = window.chrome || { runtime: {} };
})();
`

// captchaTriggers are the substrings a blocked page shows in its visible text.
var captchaTriggers = []string{"captcha", "robot", "verificación", "verificacion"}

// Session is one browser page against one listing URL. The production
// implementation drives playwright; tests inject fakes.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Content() (string, error)
	Text() (string, error)
	CaptchaPresent() bool
	SimulateReading()
	Close()
}

// Launcher creates sessions. Close releases the underlying browser.
type Launcher interface {
	NewSession(ctx context.Context) (Session, error)
	Close()
}

// PlaywrightLauncher runs a single Chromium instance and hands out one
// freshly fingerprinted context per session.
type PlaywrightLauncher struct {
	cfg     config.ScraperConfig
	log     *logrus.Logger
	rng     *rand.Rand
	pw      *playwright.Playwright
	browser playwright.Browser
}

func NewPlaywrightLauncher(cfg config.ScraperConfig, log *logrus.Logger, rng *rand.Rand) (*PlaywrightLauncher, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	runOpts := &playwright.RunOptions{}
	if cfg.BrowserDataDir != "" {
		runOpts.DriverDirectory = cfg.BrowserDataDir
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	}
	if cfg.ProxyURL != "" {
		opts.Proxy = &playwright.Proxy{Server: cfg.ProxyURL}
	}

	browser, err := pw.Chromium.Launch(opts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	return &PlaywrightLauncher{cfg: cfg, log: log, rng: rng, pw: pw, browser: browser}, nil
}

func (l *PlaywrightLauncher) NewSession(ctx context.Context) (Session, error) {
	fp := identity.Random(l.rng)

	browserCtx, err := l.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:  playwright.String(fp.UserAgent),
		Viewport:   &playwright.Size{Width: fp.ViewportWidth, Height: fp.ViewportHeight},
		Locale:     playwright.String(fp.Locale),
		TimezoneId: playwright.String(fp.TimezoneID),
		ExtraHttpHeaders: map[string]string{
			"Accept-Language": fp.AcceptLanguage,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}

	if err := browserCtx.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		browserCtx.Close()
		return nil, fmt.Errorf("add init script: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}

	l.log.WithField("fingerprint", fp.String()).Debug("session started")

	return &playwrightSession{
		cfg:  l.cfg,
		ctx:  browserCtx,
		page: page,
		rng:  l.rng,
	}, nil
}

func (l *PlaywrightLauncher) Close() {
	if l.browser != nil {
		l.browser.Close()
	}
	if l.pw != nil {
		l.pw.Stop()
	}
}

type playwrightSession struct {
	cfg  config.ScraperConfig
	ctx  playwright.BrowserContext
	page playwright.Page
	rng  *rand.Rand
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(s.cfg.NavTimeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return nil
}

func (s *playwrightSession) Content() (string, error) {
	return s.page.Content()
}

func (s *playwrightSession) Text() (string, error) {
	return s.page.InnerText("body")
}

// CaptchaPresent probes the visible text for challenge wording and the DOM
// for captcha frames.
func (s *playwrightSession) CaptchaPresent() bool {
	text, err := s.page.InnerText("body")
	if err == nil {
		lower := strings.ToLower(text)
		for _, trigger := range captchaTriggers {
			if strings.Contains(lower, trigger) {
				return true
			}
		}
	}

	for _, selector := range []string{`iframe[src*="captcha"]`, `img[src*="captcha"]`} {
		if count, err := s.page.Locator(selector).Count(); err == nil && count > 0 {
			return true
		}
	}
	return false
}

// SimulateReading moves the mouse and scrolls the page in small randomized
// steps, the way a person skims a listing.
func (s *playwrightSession) SimulateReading() {
	s.page.Mouse().Move(float64(300+s.rng.Intn(400)), float64(200+s.rng.Intn(300)))
	s.page.WaitForTimeout(float64(200 + s.rng.Intn(300)))
	s.page.Mouse().Move(float64(400+s.rng.Intn(300)), float64(300+s.rng.Intn(200)))
	s.page.WaitForTimeout(float64(200 + s.rng.Intn(300)))

	for i := 0; i < 2+s.rng.Intn(3); i++ {
		amount := 200 + s.rng.Intn(400)
		s.page.Evaluate(fmt.Sprintf(`window.scrollBy(0, %d)`, amount))
		s.page.WaitForTimeout(float64(300 + s.rng.Intn(400)))
	}
}

func (s *playwrightSession) Close() {
	if s.page != nil {
		s.page.Close()
	}
	if s.ctx != nil {
		s.ctx.Close()
	}
}
