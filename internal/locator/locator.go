package locator

import (
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Locator discovers spreadsheet exports in a set of directories and ranks
// them by the date embedded in their file names.
type Locator struct {
	logger *zap.Logger
	now    func() time.Time
}

// New builds a Locator.
func New(logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{logger: logger, now: time.Now}
}

// FindCandidates globs every pattern inside every directory and returns the
// matches without duplicates, in discovery order.
func (l *Locator) FindCandidates(dirs, patterns []string) []string {
	seen := make(map[string]struct{})
	var out []string

	for _, dir := range dirs {
		for _, pattern := range patterns {
			matches, err := filepath.Glob(filepath.Join(dir, pattern))
			if err != nil {
				l.logger.Warn("skip malformed file pattern", zap.String("pattern", pattern), zap.Error(err))
				continue
			}
			for _, m := range matches {
				if _, ok := seen[m]; ok {
					continue
				}
				seen[m] = struct{}{}
				out = append(out, m)
			}
		}
	}

	return out
}

// FindDated behaves like FindCandidates but keeps only files whose base name
// matches datePattern. When none does, every candidate is returned.
func (l *Locator) FindDated(dirs, patterns []string, datePattern *regexp.Regexp) []string {
	candidates := l.FindCandidates(dirs, patterns)
	if datePattern == nil {
		return candidates
	}

	var dated []string
	for _, c := range candidates {
		if datePattern.MatchString(filepath.Base(c)) {
			dated = append(dated, c)
		}
	}

	if len(dated) == 0 {
		if len(candidates) > 0 {
			l.logger.Debug("no dated candidates, using all", zap.Int("candidates", len(candidates)))
		}
		return candidates
	}
	return dated
}

// PickLatest returns the path whose file name carries the latest date. Ties
// keep input order; undated names sort last.
func (l *Locator) PickLatest(paths []string) (string, bool) {
	if len(paths) == 0 {
		return "", false
	}

	type dated struct {
		path string
		date time.Time
	}

	now := l.now()
	ranked := make([]dated, len(paths))
	for i, p := range paths {
		d, _ := ExtractDate(filepath.Base(p), now)
		ranked[i] = dated{path: p, date: d}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].date.After(ranked[j].date)
	})

	return ranked[0].path, true
}
