package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/url"
	"sort"
	"strings"

	"github.com/lazypower/tabwarden/internal/host"
	"github.com/lazypower/tabwarden/internal/llm"
	"github.com/lazypower/tabwarden/internal/store"
)

// ErrService marks a categorization-service failure (network, auth, non-2xx).
// The credential-missing case surfaces as llm.ErrNoCredential instead.
var ErrService = errors.New("categorization service failed")

// maxContextRelationships caps how many relationship edges go into the prompt.
const maxContextRelationships = 50

// Workspace is one proposed cluster of tabs used together for a task.
type Workspace struct {
	Name   string   `json:"name"`
	TabIDs []string `json:"tabIds"`
}

// groupColors is the tab-group palette, assigned round-robin per inference run.
var groupColors = []string{"blue", "red", "yellow", "green", "pink", "purple", "cyan", "orange", "grey"}

// InferWorkspaces runs the full inference pipeline: build context from live
// tabs and relationships, make one categorization call, validate the proposal
// against the current live set, and apply each surviving workspace. Returns
// the number of workspaces applied. Per-workspace apply failures are logged
// and do not fail the run.
func (e *Engine) InferWorkspaces(ctx context.Context) (int, error) {
	client := e.LLM
	if client == nil {
		var err error
		client, err = llm.NewClient(e.Settings().LLM)
		if err != nil {
			return 0, err
		}
	}

	tabs, err := e.Dir.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tabs: %w", err)
	}
	eligible := make([]host.Tab, 0, len(tabs))
	for _, t := range tabs {
		if !host.Privileged(t.URL) {
			eligible = append(eligible, t)
		}
	}
	if len(eligible) < 2 {
		log.Printf("infer: only %d eligible tabs, nothing to group", len(eligible))
		return 0, nil
	}

	tabsBlock, relBlock, err := e.buildContext(eligible)
	if err != nil {
		return 0, err
	}

	resp, err := client.Complete(ctx, llm.WorkspacePrompt(tabsBlock, relBlock))
	if err != nil {
		e.DB.AddLog(fmt.Sprintf("workspace inference failed: %v", err))
		return 0, fmt.Errorf("%w: %v", ErrService, err)
	}

	proposed := parseWorkspaceResponse(resp.Content)
	if len(proposed) == 0 {
		log.Printf("infer: service proposed no workspaces")
		e.DB.AddLog("workspace inference found no groupings")
		return 0, nil
	}

	applied := e.applyWorkspaces(ctx, proposed)
	if err := e.DB.AddLog(fmt.Sprintf("grouped %d workspace(s)", applied)); err != nil {
		log.Printf("infer: log: %v", err)
	}
	return applied, nil
}

// buildContext renders the prompt blocks: one line per eligible tab with its
// engagement stats, and the strongest still-live relationship edges. Edges
// need at least 2 transitions; rank is transitions × average dwell, so a pair
// that is both frequent and sticky outranks one that is frequent but fleeting.
func (e *Engine) buildContext(eligible []host.Tab) (string, string, error) {
	engagement, err := e.DB.AllEngagement()
	if err != nil {
		return "", "", fmt.Errorf("load engagement: %w", err)
	}

	live := make(map[string]bool, len(eligible))
	var tb strings.Builder
	for _, t := range eligible {
		live[t.ID] = true
		eng := engagement[t.ID]
		minutes := int(math.Round(eng.TotalSeconds / 60))
		fmt.Fprintf(&tb, "%s | %s | %s | %dm | %d visits\n", t.ID, t.Title, hostname(t.URL), minutes, eng.Visits)
	}

	rels, err := e.DB.AllRelationships(2)
	if err != nil {
		return "", "", fmt.Errorf("load relationships: %w", err)
	}
	kept := rels[:0]
	for _, r := range rels {
		if live[r.TabA] && live[r.TabB] {
			kept = append(kept, r)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		return score(kept[i]) > score(kept[j])
	})
	if len(kept) > maxContextRelationships {
		kept = kept[:maxContextRelationships]
	}

	var rb strings.Builder
	for _, r := range kept {
		fmt.Fprintf(&rb, "%s <-> %s (%d switches, avg %.0fs)\n", r.TabA, r.TabB, r.Transitions, r.AvgDwellSeconds())
	}

	return tb.String(), rb.String(), nil
}

// score ranks a relationship edge: frequent and sticky beats frequent and
// fleeting.
func score(r store.Relationship) float64 {
	return float64(r.Transitions) * r.AvgDwellSeconds()
}

// applyWorkspaces validates each proposal against the current live tab set and
// applies the survivors via the configured grouping mode.
func (e *Engine) applyWorkspaces(ctx context.Context, proposed []Workspace) int {
	tabs, err := e.Dir.List(ctx)
	if err != nil {
		log.Printf("infer: re-list tabs: %v", err)
		return 0
	}
	live := make(map[string]bool, len(tabs))
	for _, t := range tabs {
		live[t.ID] = true
	}

	mode := e.Settings().Grouping.Mode
	applied := 0
	colorIdx := 0

	for _, ws := range proposed {
		valid := make([]string, 0, len(ws.TabIDs))
		for _, id := range ws.TabIDs {
			if live[id] {
				valid = append(valid, id)
			}
		}
		log.Printf("infer: workspace %q: %d/%d proposed tabs still live", ws.Name, len(valid), len(ws.TabIDs))
		if len(valid) < 2 {
			continue
		}

		var applyErr error
		if mode == "window" {
			applyErr = e.Grouper.NewWindow(ctx, valid)
		} else {
			applyErr = e.Grouper.Group(ctx, ws.Name, groupColors[colorIdx%len(groupColors)], valid)
			colorIdx++
		}
		if applyErr != nil {
			log.Printf("infer: apply workspace %q: %v", ws.Name, applyErr)
			continue
		}
		applied++
	}

	return applied
}

// parseWorkspaceResponse extracts the first balanced brace-delimited JSON
// object from the response text. The service may wrap JSON in prose or code
// fences; anything unparseable means zero workspaces, not an error — the
// output format is only loosely trusted.
func parseWorkspaceResponse(content string) []Workspace {
	content = strings.TrimSpace(content)

	// Strip markdown code fences if present
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	block := firstJSONObject(content)
	if block == "" {
		return nil
	}

	var result struct {
		Workspaces []Workspace `json:"workspaces"`
	}
	if err := json.Unmarshal([]byte(block), &result); err != nil {
		log.Printf("infer: unparseable service response: %v", err)
		return nil
	}
	return result.Workspaces
}

// firstJSONObject returns the first balanced {...} block in s, or "".
func firstJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// hostname extracts the host part of a tab URL, falling back to the raw string.
func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
