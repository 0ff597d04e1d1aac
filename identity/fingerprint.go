package identity

import (
	"fmt"
	"math/rand"
)

// Fingerprint is one coherent browser identity: user agent, viewport and
// locale always come from the same draw so the combination stays plausible.
type Fingerprint struct {
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	TimezoneID     string
	AcceptLanguage string
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
}

var viewports = []struct{ W, H int }{
	{1920, 1080},
	{1680, 1050},
	{1536, 864},
	{1440, 900},
	{1366, 768},
}

// Random draws a fingerprint from the pools. Callers pass their own rng so
// tests can seed it.
func Random(rng *rand.Rand) Fingerprint {
	vp := viewports[rng.Intn(len(viewports))]
	return Fingerprint{
		UserAgent:      userAgents[rng.Intn(len(userAgents))],
		ViewportWidth:  vp.W,
		ViewportHeight: vp.H,
		Locale:         "es-ES",
		TimezoneID:     "Europe/Madrid",
		AcceptLanguage: "es-ES,es;q=0.9,en;q=0.6",
	}
}

func (f Fingerprint) String() string {
	return fmt.Sprintf("%dx%d %s", f.ViewportWidth, f.ViewportHeight, f.UserAgent)
}
