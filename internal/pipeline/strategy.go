package pipeline

import (
	"strings"

	"bookstitch/internal/urlutil"
)

// Strategy names a discovery approach for a run.
type Strategy string

const (
	StrategyAuto      Strategy = "auto"
	StrategyGitHub    Strategy = "github"
	StrategySitemap   Strategy = "sitemap"
	StrategyScraping  Strategy = "scraping"
	StrategyUniversal Strategy = "universal"
	StrategyFusion    Strategy = "fusion"
)

// requestedAuto reports whether the caller left strategy selection to the
// resolver.
func requestedAuto(requested string) bool {
	s := strings.ToLower(strings.TrimSpace(requested))
	return s == "" || s == string(StrategyAuto)
}

// selectStrategy resolves "auto" to a concrete strategy: GitHub-hosted
// sources read straight from the repository, browser-capable runs fuse all
// sources, and everything else combines sitemap and heuristic discovery.
func selectStrategy(requested, baseURL string, browserAvailable bool) Strategy {
	s := Strategy(strings.ToLower(strings.TrimSpace(requested)))
	if s == "" {
		s = StrategyAuto
	}
	if s != StrategyAuto {
		if s == StrategyFusion && !browserAvailable {
			return StrategyUniversal
		}
		return s
	}

	if urlutil.Host(baseURL) == "github.com" {
		return StrategyGitHub
	}
	if browserAvailable {
		return StrategyFusion
	}
	return StrategyUniversal
}
