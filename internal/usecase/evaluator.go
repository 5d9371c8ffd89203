package usecase

import (
	"context"
	"log"
	"regexp"
	"sort"
	"strings"

	"github.com/shelfpix/backend/internal/domain"
)

var nonWordRegex = regexp.MustCompile(`[^a-z0-9']+`)

// Scoring weights for the composite candidate score
const (
	baseScoreFloor     = 0.4  // score for a candidate with no title overlap
	coverageWeight     = 0.6  // weight of title word coverage on top of the floor
	brandTextBonus     = 0.15 // brand named in the surrounding text
	sizeConflictFactor = 0.1  // multiplicative penalty for a contradicting pack size
	minCandidateScore  = 0.15 // pre-penalty composites below this are discarded
	maxSemanticRank    = 5    // how many survivors get thumbnail re-ranking
)

// EvaluatorConfig holds the tunable evaluation knobs
type EvaluatorConfig struct {
	StrictVariant        bool
	SizeTolerancePercent float64
}

// Evaluator filters and ranks search candidates for an item before
// anything is downloaded at full resolution.
type Evaluator struct {
	trust      domain.TrustTable
	vision     domain.VisionClient
	downloader domain.Downloader
	config     EvaluatorConfig
	debug      bool
}

// NewEvaluator creates an evaluator with its scoring dependencies
func NewEvaluator(
	trust domain.TrustTable,
	vision domain.VisionClient,
	downloader domain.Downloader,
	config EvaluatorConfig,
) *Evaluator {
	return &Evaluator{
		trust:      trust,
		vision:     vision,
		downloader: downloader,
		config:     config,
	}
}

// SetDebug toggles scoring trace logs
func (e *Evaluator) SetDebug(enabled bool) {
	e.debug = enabled
}

type scoredCandidate struct {
	candidate domain.Candidate
	score     float64
}

// Evaluate filters candidates against the item's variant and size,
// scores the survivors, and returns them best first. The best survivors
// are re-ordered by semantic thumbnail similarity when the vision model
// is reachable; otherwise the composite order stands.
func (e *Evaluator) Evaluate(ctx context.Context, item domain.Item, candidates []domain.Candidate) ([]domain.Candidate, error) {
	scored := make([]scoredCandidate, 0, len(candidates))

	for _, c := range candidates {
		if e.config.StrictVariant && variantConflicts(item, c.Text) {
			if e.debug {
				log.Printf("[EVAL] drop %s: variant %q absent from text", c.URL, item.Variant)
			}
			continue
		}

		score := e.score(item, c)
		if score < minCandidateScore {
			if e.debug {
				log.Printf("[EVAL] drop %s: score %.3f below cutoff", c.URL, score)
			}
			continue
		}

		// A contradicting pack size ranks the candidate last instead
		// of excluding it; the cutoff above judges relevance before
		// the penalty so a sole conflicted match can still be tried.
		if SizesConflict(item.SizeValue, item.SizeUnit, c.Text, e.config.SizeTolerancePercent) {
			score *= sizeConflictFactor
			if e.debug {
				log.Printf("[EVAL] penalize %s: pack size conflicts, score %.3f", c.URL, score)
			}
		}

		scored = append(scored, scoredCandidate{candidate: c, score: score})
	}

	if len(scored) == 0 {
		return nil, domain.ErrNoCandidates
	}

	// Stable ordering: score descending, original rank breaks ties
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].candidate.Rank < scored[j].candidate.Rank
	})

	ranked := make([]domain.Candidate, len(scored))
	for i, sc := range scored {
		ranked[i] = sc.candidate
	}

	e.semanticRerank(ctx, item, ranked)

	return ranked, nil
}

// score combines title coverage, brand presence and source trust into
// one composite in [0, 1]. The size penalty is applied by the caller,
// after the relevance cutoff.
func (e *Evaluator) score(item domain.Item, c domain.Candidate) float64 {
	score := baseScoreFloor + coverageWeight*titleCoverage(item.Title, c.Text)

	if item.Brand != "" && containsBrand(c.Text, item.Brand) {
		score += brandTextBonus
	}
	if score > 1.0 {
		score = 1.0
	}

	return score * e.trust.Score(c.SourceDomain)
}

// semanticRerank reorders the head of ranked in place by thumbnail
// similarity. Any failure leaves the composite order untouched.
func (e *Evaluator) semanticRerank(ctx context.Context, item domain.Item, ranked []domain.Candidate) {
	n := len(ranked)
	if n > maxSemanticRank {
		n = maxSemanticRank
	}
	if n < 2 || e.vision == nil {
		return
	}

	head := make([]domain.Candidate, 0, n)
	thumbnails := make([][]byte, 0, n)
	for _, c := range ranked[:n] {
		if c.ThumbnailURL == "" {
			head = append(head, c)
			thumbnails = append(thumbnails, nil)
			continue
		}
		asset, err := e.downloader.Fetch(ctx, c.ThumbnailURL)
		if err != nil {
			head = append(head, c)
			thumbnails = append(thumbnails, nil)
			continue
		}
		head = append(head, c)
		thumbnails = append(thumbnails, asset.Data)
	}

	order, err := e.vision.RankThumbnails(ctx, BuildDescriptions(item), thumbnails)
	if err != nil {
		if e.debug {
			log.Printf("[EVAL] semantic rerank unavailable: %v", err)
		}
		return
	}

	// A malformed order would duplicate candidates and break the
	// next-best fallback chain; only a full permutation is applied.
	if len(order) != n {
		return
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n || seen[idx] {
			return
		}
		seen[idx] = true
	}

	reordered := make([]domain.Candidate, n)
	for i, idx := range order {
		reordered[i] = head[idx]
	}
	copy(ranked, reordered)
}

// variantConflicts reports whether candidate text names the product but
// not the item's variant. Text without any words is neutral.
func variantConflicts(item domain.Item, text string) bool {
	if item.Variant == "" || strings.TrimSpace(text) == "" {
		return false
	}

	words := tokenize(text)
	for token := range tokenize(item.Variant) {
		if words[token] {
			return false
		}
	}
	return true
}

// titleCoverage is the fraction of the item's title words present in text
func titleCoverage(title, text string) float64 {
	titleTokens := tokenize(title)
	if len(titleTokens) == 0 {
		return 0
	}

	words := tokenize(text)
	matched := 0
	for token := range titleTokens {
		if words[token] {
			matched++
		}
	}
	return float64(matched) / float64(len(titleTokens))
}

// containsBrand matches brand tokens as substrings so multi-word and
// stylized brand names ("Nu Look") still register.
func containsBrand(text, brand string) bool {
	lower := strings.ToLower(text)
	for token := range tokenize(brand) {
		if len(token) >= 2 && strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, t := range nonWordRegex.Split(strings.ToLower(s), -1) {
		if t != "" {
			tokens[t] = true
		}
	}
	return tokens
}
