package prompt

import (
	"sort"

	"github.com/opensoc/triagent/internal/alert"
	"github.com/opensoc/triagent/internal/corpus"
)

// DefaultMaxExamples is the grounding example cap when none is configured.
const DefaultMaxExamples = 3

// Builder selects grounding examples and assembles prompt payloads.
// Building is a pure function of (corpus, context, role, note): corpus
// emptiness is rejected at load time, so Build never fails. With no
// usable examples it degrades to zero-shot.
type Builder struct {
	corpus      *corpus.Corpus
	maxExamples int
}

// NewBuilder creates a Builder over an already-loaded corpus.
func NewBuilder(c *corpus.Corpus, maxExamples int) *Builder {
	if maxExamples <= 0 {
		maxExamples = DefaultMaxExamples
	}
	return &Builder{corpus: c, maxExamples: maxExamples}
}

// Build assembles the payload for one attempt. The corrective note is empty
// on the first attempt and carries the prior rule-violation summary on
// feedback-augmented retries.
func (b *Builder) Build(ctx *alert.Context, role Role, note string, attempt int) *Payload {
	return &Payload{
		Role:           role,
		Context:        ctx,
		Examples:       b.selectExamples(ctx.Severity),
		CorrectiveNote: note,
		Attempt:        attempt,
	}
}

// selectExamples picks up to maxExamples corpus entries, nearest severity
// first, with ties broken by corpus order. The same entry is never selected
// twice. Selection is deterministic for a fixed corpus and context.
func (b *Builder) selectExamples(sev alert.Severity) []corpus.Example {
	all := b.corpus.Examples()
	idx := make([]int, len(all))
	for i := range idx {
		idx[i] = i
	}

	target := sev.Rank()
	distance := func(i int) int {
		d := all[i].SeverityRank() - target
		if d < 0 {
			d = -d
		}
		return d
	}

	sort.SliceStable(idx, func(a, b int) bool {
		return distance(idx[a]) < distance(idx[b])
	})

	k := b.maxExamples
	if k > len(idx) {
		k = len(idx)
	}
	selected := make([]corpus.Example, 0, k)
	for _, i := range idx[:k] {
		selected = append(selected, all[i])
	}
	return selected
}
