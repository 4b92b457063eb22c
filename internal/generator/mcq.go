package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/wordbox/backend/internal/models"
)

// OptionCount is the number of options in a complete question.
const OptionCount = 4

var (
	// ErrEmptyTranslation means the target word has no usable translation.
	ErrEmptyTranslation = errors.New("generator: word has empty translation")
	// ErrGenerationExhausted means the retry budget ran out before a
	// usable word was found.
	ErrGenerationExhausted = errors.New("generator: retry budget exhausted")
	// ErrNoCandidates means no non-excluded word exists at all.
	ErrNoCandidates = errors.New("generator: no candidate words left")
)

// WordSource is the read side of the vocabulary the generator draws from.
// Implementations exclude soft-deleted words.
type WordSource interface {
	// Bounds returns the smallest and largest live word id. hi < lo
	// when the vocabulary is empty.
	Bounds(ctx context.Context) (lo, hi int64, err error)
	// Probe returns the first live word with id >= pivot (forward) or the
	// last one with id < pivot (backward), skipping exclude. It returns
	// nil when there is none.
	Probe(ctx context.Context, pivot int64, forward bool, exclude []int64) (*models.Word, error)
	// SameCategory returns up to limit live words of the category in
	// random order, skipping exclude.
	SameCategory(ctx context.Context, categoryID int64, exclude []int64, limit int) ([]models.Word, error)
}

// RetryPolicy bounds every randomized loop in the generator.
type RetryPolicy struct {
	// MaxProbeAttempts caps random id probes for one word pick.
	MaxProbeAttempts int
	// MaxDistractorAttempts caps random picks while filling distractors.
	MaxDistractorAttempts int
	// CategoryFetchFactor is how many same-category rows are fetched per
	// missing distractor.
	CategoryFetchFactor int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxProbeAttempts:      40,
		MaxDistractorAttempts: 100,
		CategoryFetchFactor:   50,
	}
}

// Question is a generated question including its answer. Only Public()
// may be sent to clients.
type Question struct {
	Prompt  string
	WordID  int64
	Options []models.QuestionOption
}

func (q *Question) Public() models.Question {
	opts := make([]models.QuestionOption, len(q.Options))
	copy(opts, q.Options)
	return models.Question{Prompt: q.Prompt, Options: opts}
}

func (q *Question) Complete() bool {
	return len(q.Options) == OptionCount
}

func (q *Question) OptionIDs() []int64 {
	ids := make([]int64, len(q.Options))
	for i, o := range q.Options {
		ids[i] = o.WordID
	}
	return ids
}

type Generator struct {
	source WordSource
	policy RetryPolicy
	script *unicode.RangeTable

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Generator)

func WithPolicy(p RetryPolicy) Option {
	return func(g *Generator) { g.policy = p }
}

func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rng = r }
}

// WithScript sets the target-language script. Words whose source text
// contains characters of this script are treated as corrupt rows.
func WithScript(t *unicode.RangeTable) Option {
	return func(g *Generator) { g.script = t }
}

func New(source WordSource, opts ...Option) *Generator {
	g := &Generator{
		source: source,
		policy: DefaultRetryPolicy(),
		script: unicode.Arabic,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Usable reports whether w can appear in a question: both texts are
// non-blank and the source text carries no target-script characters.
func (g *Generator) Usable(w models.Word) bool {
	if strings.TrimSpace(w.Source) == "" || strings.TrimSpace(w.Target) == "" {
		return false
	}
	for _, r := range w.Source {
		if unicode.Is(g.script, r) {
			return false
		}
	}
	return true
}

// Build creates a question for word. The options hold the word's
// translation once plus up to three distractors with distinct trimmed
// translations, none of which is in excludeTexts. Fewer than four options
// is returned without error when the vocabulary cannot supply more.
func (g *Generator) Build(ctx context.Context, word models.Word, excludeTexts []string) (*Question, error) {
	correctText := strings.TrimSpace(word.Target)
	if correctText == "" {
		return nil, ErrEmptyTranslation
	}

	seen := map[string]bool{correctText: true}
	for _, t := range excludeTexts {
		seen[strings.TrimSpace(t)] = true
	}

	distractors, err := g.pickDistractors(ctx, word, seen, OptionCount-1)
	if err != nil {
		return nil, err
	}

	options := make([]models.QuestionOption, 0, OptionCount)
	options = append(options, models.QuestionOption{WordID: word.ID, Text: correctText})
	for _, d := range distractors {
		options = append(options, models.QuestionOption{WordID: d.ID, Text: strings.TrimSpace(d.Target)})
	}

	g.mu.Lock()
	g.rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	g.mu.Unlock()

	return &Question{
		Prompt:  strings.TrimSpace(word.Source),
		WordID:  word.ID,
		Options: options,
	}, nil
}

func (g *Generator) pickDistractors(ctx context.Context, word models.Word, seen map[string]bool, k int) ([]models.Word, error) {
	exclude := map[int64]bool{word.ID: true}
	picked := make([]models.Word, 0, k)

	take := func(w models.Word) {
		exclude[w.ID] = true
		text := strings.TrimSpace(w.Target)
		if seen[text] {
			return
		}
		seen[text] = true
		picked = append(picked, w)
	}

	if word.CategoryID != nil {
		candidates, err := g.source.SameCategory(ctx, *word.CategoryID, idList(exclude), k*g.policy.CategoryFetchFactor)
		if err != nil {
			return nil, fmt.Errorf("same-category distractors: %w", err)
		}
		g.mu.Lock()
		g.rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
		g.mu.Unlock()

		for _, c := range candidates {
			if len(picked) >= k {
				break
			}
			if exclude[c.ID] || !g.Usable(c) {
				continue
			}
			take(c)
		}
	}

	for attempts := 0; len(picked) < k && attempts < g.policy.MaxDistractorAttempts; attempts++ {
		w, err := g.RandomWord(ctx, exclude)
		if errors.Is(err, ErrNoCandidates) || errors.Is(err, ErrGenerationExhausted) {
			break
		}
		if err != nil {
			return nil, err
		}
		take(*w)
	}

	return picked, nil
}

// RandomWord draws a usable word whose id is not in exclude by probing a
// random id in [lo, hi], scanning forward and then backward.
func (g *Generator) RandomWord(ctx context.Context, exclude map[int64]bool) (*models.Word, error) {
	lo, hi, err := g.source.Bounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("word bounds: %w", err)
	}
	if hi < lo {
		return nil, ErrNoCandidates
	}

	skip := idList(exclude)
	for attempt := 0; attempt < g.policy.MaxProbeAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		g.mu.Lock()
		pivot := lo + g.rng.Int63n(hi-lo+1)
		g.mu.Unlock()

		w, err := g.source.Probe(ctx, pivot, true, skip)
		if err != nil {
			return nil, fmt.Errorf("probe forward: %w", err)
		}
		if w == nil {
			w, err = g.source.Probe(ctx, pivot, false, skip)
			if err != nil {
				return nil, fmt.Errorf("probe backward: %w", err)
			}
		}
		if w == nil {
			return nil, ErrNoCandidates
		}
		if g.Usable(*w) {
			return w, nil
		}
		skip = append(skip, w.ID)
	}

	return nil, ErrGenerationExhausted
}

// Shuffle permutes n elements with the generator's random source.
func (g *Generator) Shuffle(n int, swap func(i, j int)) {
	g.mu.Lock()
	g.rng.Shuffle(n, swap)
	g.mu.Unlock()
}

func idList(set map[int64]bool) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
