package trust

import (
	"sync"
)

const neutralScore = 0.5

// Stats holds the trust state for a single source domain
type Stats struct {
	Score     float64 `json:"score"`
	Successes int     `json:"successes"`
	Failures  int     `json:"failures"`
}

// Table maps source domains to trust scores in [0, 1]. Unknown domains
// start at a neutral prior; accepted and rejected images adjust the
// score by a fixed step.
type Table struct {
	step  float64
	data  map[string]*Stats
	mutex sync.RWMutex
}

// DefaultSeeds returns the prior trust scores for known retailer domains
func DefaultSeeds() map[string]float64 {
	return map[string]float64{
		"checkers.co.za":   0.8,
		"shoprite.co.za":   0.8,
		"pnp.co.za":        0.8,
		"makro.co.za":      0.8,
		"woolworths.co.za": 0.8,
		"takealot.com":     0.8,
	}
}

// New creates a trust table with the given adjustment step and seed scores
func New(step float64, seeds map[string]float64) *Table {
	t := &Table{
		step: step,
		data: make(map[string]*Stats, len(seeds)),
	}
	for domain, score := range seeds {
		t.data[domain] = &Stats{Score: clamp(score)}
	}
	return t
}

// Score returns the current trust score for a domain. Domains never seen
// before score the neutral prior.
func (t *Table) Score(domain string) float64 {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if s, ok := t.data[domain]; ok {
		return s.Score
	}
	return neutralScore
}

// RecordOutcome adjusts a domain's trust after an image from it was
// approved or rejected. The empty domain is ignored.
func (t *Table) RecordOutcome(domain string, approved bool) {
	if domain == "" {
		return
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	s, ok := t.data[domain]
	if !ok {
		s = &Stats{Score: neutralScore}
		t.data[domain] = s
	}

	if approved {
		s.Successes++
		s.Score = clamp(s.Score + t.step)
	} else {
		s.Failures++
		s.Score = clamp(s.Score - t.step)
	}
}

// Snapshot returns a copy of all tracked domains and their stats
func (t *Table) Snapshot() map[string]Stats {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	out := make(map[string]Stats, len(t.data))
	for domain, s := range t.data {
		out[domain] = *s
	}
	return out
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
