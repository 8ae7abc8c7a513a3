package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/pbias-leaderboard/pbias-go/internal/domain"
)

// SubmissionBudget caps how many submissions a participant may score within
// a fixed window. A max of 0 disables the budget.
type SubmissionBudget struct {
	mu     sync.Mutex
	counts map[string]*windowCounter

	maxPerWindow int
	windowSize   time.Duration
	now          func() time.Time
}

type windowCounter struct {
	count     int
	windowEnd time.Time
}

// NewSubmissionBudget creates a budget of maxPerWindow submissions per
// windowSize for each participant.
func NewSubmissionBudget(maxPerWindow int, windowSize time.Duration) *SubmissionBudget {
	return &SubmissionBudget{
		counts:       make(map[string]*windowCounter),
		maxPerWindow: maxPerWindow,
		windowSize:   windowSize,
		now:          time.Now,
	}
}

// Take consumes one submission from the participant's budget, or returns a
// rate_limited error when the window is exhausted.
func (b *SubmissionBudget) Take(participant string) error {
	if b.maxPerWindow <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	wc, ok := b.counts[participant]
	if !ok || !now.Before(wc.windowEnd) {
		b.counts[participant] = &windowCounter{count: 1, windowEnd: now.Add(b.windowSize)}
		return nil
	}
	if wc.count >= b.maxPerWindow {
		return domain.NewError(domain.KindRateLimited, "Submission limit reached",
			fmt.Sprintf("At most %d submissions per %s", b.maxPerWindow, b.windowSize),
			fmt.Sprintf("Try again after %s", wc.windowEnd.UTC().Format(time.RFC3339)),
		)
	}
	wc.count++
	return nil
}

// Remaining returns how many submissions the participant has left in the
// current window. It returns -1 when the budget is disabled.
func (b *SubmissionBudget) Remaining(participant string) int {
	if b.maxPerWindow <= 0 {
		return -1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	wc, ok := b.counts[participant]
	if !ok || !b.now().Before(wc.windowEnd) {
		return b.maxPerWindow
	}
	return b.maxPerWindow - wc.count
}

// Prune forgets participants whose window has ended and returns how many
// were removed.
func (b *SubmissionBudget) Prune() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	n := 0
	for key, wc := range b.counts {
		if !now.Before(wc.windowEnd) {
			delete(b.counts, key)
			n++
		}
	}
	return n
}
