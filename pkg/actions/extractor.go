package actions

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	merrors "github.com/otherjamesbrown/minutes-cli/pkg/errors"
	"github.com/otherjamesbrown/minutes-cli/pkg/logging"
	"github.com/otherjamesbrown/minutes-cli/pkg/textutil"
)

const (
	// DefaultMinConfidence is the extractor's own floor. Candidates must
	// score strictly above it.
	DefaultMinConfidence = 0.5

	// DuplicateSimilarity is the task similarity above which two items with
	// the same owner are considered the same action.
	DuplicateSimilarity = 0.8

	baseConfidence = 0.5
	contextSize    = 1
)

// Config controls the Extractor.
type Config struct {
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`
}

// DefaultConfig returns the default extractor configuration.
func DefaultConfig() Config {
	return Config{MinConfidence: DefaultMinConfidence}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: extractor min_confidence must be in [0,1], got %g", merrors.ErrInvalidConfig, c.MinConfidence)
	}
	return nil
}

// Extractor finds action items in meeting text using phrase patterns and
// keyword heuristics. It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	cfg    Config
	logger logging.Logger
}

// NewExtractor creates an Extractor. A nil logger disables logging.
func NewExtractor(cfg Config, logger logging.Logger) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Extractor{cfg: cfg, logger: logger}, nil
}

// Extract returns the deduplicated action items in text, ordered by
// descending confidence.
func (e *Extractor) Extract(text string, knownSpeakers []string) []ActionItem {
	sentences := textutil.SplitSentences(text)

	var candidates []ActionItem
	for i, sentence := range sentences {
		for _, p := range actionPatterns {
			for _, m := range p.findAll(sentence) {
				item, ok := e.build(sentence, m, sentences, i, knownSpeakers)
				if !ok {
					continue
				}
				if item.Confidence <= e.cfg.MinConfidence {
					e.logger.Debug("Action candidate below confidence floor",
						logging.F("pattern", p.name),
						logging.F("task", item.Task),
						logging.F("confidence", item.Confidence))
					continue
				}
				candidates = append(candidates, item)
			}
		}
	}

	items := deduplicate(candidates)
	e.logger.Debug("Extracted action items",
		logging.F("sentences", len(sentences)),
		logging.F("candidates", len(candidates)),
		logging.F("items", len(items)))
	return items
}

func (e *Extractor) build(sentence string, m match, sentences []string, idx int, speakers []string) (ActionItem, bool) {
	if len(strings.Fields(m.task)) < 2 {
		return ActionItem{}, false
	}

	owner := resolveOwner(sentence, m.ownerPhrase, speakers)
	deadline := resolveDeadline(sentence)

	return ActionItem{
		Task:       m.task,
		Owner:      owner,
		Deadline:   deadline,
		Priority:   resolvePriority(sentence),
		Status:     StatusPending,
		Context:    surroundingContext(sentences, idx),
		Confidence: score(sentence, owner, deadline, m.task),
	}, true
}

// resolveOwner tries, in order: words of the owner phrase that appear in a
// known speaker name, a name-like word before an action verb that is a known
// speaker, and a leading "Name:" tag on a first-person commitment.
func resolveOwner(sentence, ownerPhrase string, speakers []string) string {
	if ownerPhrase != "" {
		for _, word := range strings.Fields(ownerPhrase) {
			word = strings.TrimFunc(word, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsDigit(r)
			})
			if word != "" && isKnownSpeaker(word, speakers) {
				return word
			}
		}
	}

	for _, re := range namePatterns {
		sub := re.FindStringSubmatch(sentence)
		if sub == nil {
			continue
		}
		if isKnownSpeaker(sub[1], speakers) {
			return sub[1]
		}
	}

	if selfAssignRegex.MatchString(sentence) {
		if sub := leadingSpeakerRegex.FindStringSubmatch(sentence); sub != nil {
			return sub[1]
		}
	}
	return ""
}

// isKnownSpeaker reports whether name occurs, case-insensitively, inside any speaker name.
func isKnownSpeaker(name string, speakers []string) bool {
	lower := strings.ToLower(name)
	for _, s := range speakers {
		if strings.Contains(strings.ToLower(s), lower) {
			return true
		}
	}
	return false
}

func resolveDeadline(sentence string) string {
	lower := strings.ToLower(sentence)
	for _, m := range deadlineMatchers {
		if d, ok := m.find(lower); ok {
			return d
		}
	}
	return ""
}

func resolvePriority(sentence string) Priority {
	lower := strings.ToLower(sentence)
	for _, rule := range priorityRules {
		if containsAny(lower, rule.indicators) {
			return rule.priority
		}
	}
	return PriorityMedium
}

func surroundingContext(sentences []string, idx int) string {
	start := max(0, idx-contextSize)
	end := min(len(sentences), idx+contextSize+1)
	return strings.Join(sentences[start:end], " ")
}

func score(sentence, owner, deadline, task string) float64 {
	lower := strings.ToLower(sentence)
	confidence := baseConfidence

	if containsAny(lower, strongVerbs) {
		confidence += 0.2
	}
	if owner != "" {
		confidence += 0.2
	}
	if deadline != "" {
		confidence += 0.15
	}
	if len(strings.Fields(task)) >= 3 {
		confidence += 0.1
	}
	if containsAny(lower, hedgingTerms) {
		confidence -= 0.2
	}

	return min(1.0, max(0.0, confidence))
}

// deduplicate drops items whose task is near-identical to a kept item with
// the same owner, keeping the higher-confidence one. Replacement filters the
// old item out and appends the new one.
func deduplicate(items []ActionItem) []ActionItem {
	kept := make([]ActionItem, 0, len(items))

	for _, item := range items {
		dup := -1
		for i, k := range kept {
			if k.Owner == item.Owner && textutil.Jaccard(item.Task, k.Task) > DuplicateSimilarity {
				dup = i
				break
			}
		}

		switch {
		case dup < 0:
			kept = append(kept, item)
		case item.Confidence > kept[dup].Confidence:
			kept = append(without(kept, dup), item)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Confidence > kept[j].Confidence
	})
	return kept
}

func without[T any](items []T, idx int) []T {
	out := make([]T, 0, len(items))
	out = append(out, items[:idx]...)
	return append(out, items[idx+1:]...)
}
