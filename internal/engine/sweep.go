package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/lazypower/tabwarden/internal/host"
)

// Sweep evaluates the enabled eviction policies in fixed order: duplicate,
// idle, memory. Duplicates go first so the later policies judge a deduplicated
// set. Each policy re-lists live tabs, so removals by an earlier policy are
// already gone. Policy failures are logged and isolated — a failed removal
// never aborts the rest of the cycle. Returns the total number of tabs closed.
func (e *Engine) Sweep(ctx context.Context) int {
	cfg := e.Settings().Sweep
	total := 0

	if cfg.Duplicates {
		total += e.runPolicy(ctx, "duplicate", e.markDuplicates)
	}
	if cfg.Idle {
		total += e.runPolicy(ctx, "idle", e.markIdle)
	}
	if cfg.Memory {
		total += e.runPolicy(ctx, "memory", e.markMemoryHeavy)
	}

	return total
}

// runPolicy lists live tabs, asks the policy for its mark set, and executes the
// removal as one batch. One ClosedEntry per closed tab, one summary log line per
// policy. A removal failure is surfaced only via the logs.
func (e *Engine) runPolicy(ctx context.Context, reason string, mark func(ctx context.Context, tabs []host.Tab) []host.Tab) int {
	tabs, err := e.Dir.List(ctx)
	if err != nil {
		log.Printf("sweep: list tabs for %s policy: %v", reason, err)
		return 0
	}

	marked := mark(ctx, tabs)
	if len(marked) == 0 {
		return 0
	}

	ids := make([]string, len(marked))
	for i, t := range marked {
		ids[i] = t.ID
	}

	if err := e.Remover.Remove(ctx, ids); err != nil {
		log.Printf("sweep: close %d %s tabs: %v", len(ids), reason, err)
		e.DB.AddLog(fmt.Sprintf("failed to close %d %s tab(s): %v", len(ids), reason, err))
		return 0
	}

	now := time.Now().UnixMilli()
	for _, t := range marked {
		if err := e.DB.AddClosed(t.URL, t.Title, reason, now); err != nil {
			log.Printf("sweep: record closed %s: %v", t.ID, err)
		}
		if err := e.DB.ForgetActivity(t.ID); err != nil {
			log.Printf("sweep: forget %s: %v", t.ID, err)
		}
	}
	if err := e.DB.AddLog(fmt.Sprintf("closed %d %s tab(s)", len(marked), reason)); err != nil {
		log.Printf("sweep: log: %v", err)
	}

	return len(marked)
}

// markIdle marks every unpinned, unfocused tab whose last activity is older
// than the configured threshold. A tab with no ledger entry defaults to
// "active now" — never evicted on the cycle that first sees it.
func (e *Engine) markIdle(ctx context.Context, tabs []host.Tab) []host.Tab {
	threshold := e.Settings().Sweep.IdleThreshold().Milliseconds()
	now := time.Now().UnixMilli()

	var marked []host.Tab
	for _, t := range tabs {
		if t.Pinned || t.Active {
			continue
		}
		last, err := e.DB.LastActive(t.ID, now)
		if err != nil {
			log.Printf("sweep: last active %s: %v", t.ID, err)
			continue
		}
		if now-last > threshold {
			marked = append(marked, t)
		}
	}
	return marked
}

// markDuplicates groups unpinned tabs by exact URL and, within each group,
// keeps the most recently active one. A focused duplicate always survives,
// even when it is not the most recent — recency updates on focus, so the gap
// is a narrow race, and closing the tab the user is looking at is never right.
func (e *Engine) markDuplicates(ctx context.Context, tabs []host.Tab) []host.Tab {
	activity, err := e.DB.AllActivity()
	if err != nil {
		log.Printf("sweep: load activity: %v", err)
		return nil
	}

	byURL := make(map[string][]host.Tab)
	for _, t := range tabs {
		if t.Pinned || host.Privileged(t.URL) {
			continue
		}
		byURL[t.URL] = append(byURL[t.URL], t)
	}

	var marked []host.Tab
	for _, group := range byURL {
		if len(group) < 2 {
			continue
		}
		// Most recently active first; unknown tabs sort last (least worth keeping)
		sort.SliceStable(group, func(i, j int) bool {
			return activity[group[i].ID] > activity[group[j].ID]
		})
		for _, t := range group[1:] {
			if t.Active {
				continue
			}
			marked = append(marked, t)
		}
	}
	return marked
}

// markMemoryHeavy marks unpinned, unfocused tabs whose private memory exceeds
// the configured threshold. Without a sampler, or without samples (permission
// not granted), the policy is a silent no-op. Tabs with no sample are skipped.
func (e *Engine) markMemoryHeavy(ctx context.Context, tabs []host.Tab) []host.Tab {
	if e.Sampler == nil {
		return nil
	}
	samples, err := e.Sampler.Sample(ctx)
	if err != nil {
		log.Printf("sweep: memory samples: %v", err)
		return nil
	}
	if len(samples) == 0 {
		return nil
	}

	limit := int64(e.Settings().Sweep.MemoryThresholdMB) * 1024 * 1024

	var marked []host.Tab
	for _, t := range tabs {
		if t.Pinned || t.Active {
			continue
		}
		bytes, ok := samples[t.ID]
		if !ok {
			continue
		}
		if bytes > limit {
			marked = append(marked, t)
		}
	}
	return marked
}
