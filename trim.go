package parley

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/rivo/uniseg"
)

// CharsPerToken approximates how many characters one token spans when
// converting an owed token count into a truncation length.
const CharsPerToken = 4

// TrimObserver records trimming outcomes.
type TrimObserver interface {
	ObserveTrim(model string, before, after int, satisfied bool)
}

// TrimResult describes a trimming pass.
type TrimResult struct {
	Messages []Message
	Before   int // tokens counted on the input
	After    int // tokens counted on Messages
	Trimmed  bool
}

// Trimmer shortens message lists to fit a token budget.
type Trimmer struct {
	counter  TokenCounter
	logger   *slog.Logger
	observer TrimObserver
}

// TrimmerOption configures a Trimmer.
type TrimmerOption func(*Trimmer)

// WithTrimLogger sets the logger used to report unsatisfiable budgets.
func WithTrimLogger(l *slog.Logger) TrimmerOption {
	return func(t *Trimmer) { t.logger = l }
}

// WithTrimObserver sets an observer notified after every trim that had to
// cut content.
func WithTrimObserver(o TrimObserver) TrimmerOption {
	return func(t *Trimmer) { t.observer = o }
}

// NewTrimmer returns a Trimmer that counts with counter.
func NewTrimmer(counter TokenCounter, opts ...TrimmerOption) *Trimmer {
	t := &Trimmer{
		counter: counter,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Trim reduces msgs so that their token count for model is at most
// maxTokens. Within budget, msgs is returned as is. Otherwise a trimmed copy
// is returned; the caller's slice is never modified.
//
// Messages before the cull start index (where the running total first
// reaches a third of the budget) are never touched. From there to the end,
// unimportant messages are tail-truncated first, then important ones.
// System messages are never truncated. When the budget still cannot be met
// the best-effort copy is returned together with an *Error of kind
// KindTokenBudgetUnsatisfiable.
func (t *Trimmer) Trim(msgs []Message, model string, maxTokens int) (TrimResult, error) {
	total := t.counter.Count(msgs, model)
	if total <= maxTokens {
		return TrimResult{Messages: msgs, Before: total, After: total}, nil
	}

	out := CloneMessages(msgs)
	start := t.cullStart(out, model, maxTokens/3)
	excess := total - maxTokens

	excess = t.sweep(out[start:], model, excess, false)
	if excess > 0 {
		excess = t.sweep(out[start:], model, excess, true)
	}

	after := t.counter.Count(out, model)
	res := TrimResult{Messages: out, Before: total, After: after, Trimmed: true}
	if t.observer != nil {
		t.observer.ObserveTrim(model, total, after, after <= maxTokens)
	}
	if after > maxTokens {
		t.logger.Warn("token budget unsatisfiable",
			"model", model, "budget", maxTokens, "before", total, "after", after)
		return res, NewError(KindTokenBudgetUnsatisfiable,
			fmt.Sprintf("messages need %d tokens after trimming, budget is %d", after, maxTokens),
			ErrBudgetUnsatisfiable)
	}
	return res, nil
}

// cullStart returns the index of the message at which the running token
// total first reaches keep.
func (t *Trimmer) cullStart(msgs []Message, model string, keep int) int {
	running := 0
	for i, m := range msgs {
		running += messageTokens(t.counter, m, model)
		if running >= keep {
			return i
		}
	}
	return len(msgs)
}

// sweep tail-truncates msgs in order until excess is paid off and returns
// the excess still owed. Important messages are only cut when
// includeImportant is set.
func (t *Trimmer) sweep(msgs []Message, model string, excess int, includeImportant bool) int {
	for i := range msgs {
		if excess <= 0 {
			break
		}
		m := &msgs[i]
		if m.Role == RoleSystem || (m.Important && !includeImportant) {
			continue
		}
		for excess > 0 && m.Content != "" {
			before := messageTokens(t.counter, *m, model)
			owed := min(excess, len(t.counter.Encode(m.Content, model)))
			truncated := dropTail(m.Content, owed*CharsPerToken)
			if truncated == m.Content {
				break
			}
			m.Content = truncated
			excess -= before - messageTokens(t.counter, *m, model)
		}
	}
	return excess
}

// dropTail removes the last n user-perceived characters of s.
func dropTail(s string, n int) string {
	if n <= 0 {
		return s
	}
	keep := uniseg.GraphemeClusterCount(s) - n
	if keep <= 0 {
		return ""
	}
	g := uniseg.NewGraphemes(s)
	end := 0
	for i := 0; i < keep && g.Next(); i++ {
		_, end = g.Positions()
	}
	return s[:end]
}
