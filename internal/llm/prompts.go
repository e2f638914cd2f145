package llm

import "fmt"

// WorkspacePrompt generates the prompt for workspace grouping. tabs and
// relationships are pre-formatted one-entry-per-line blocks built by the engine.
func WorkspacePrompt(tabs, relationships string) string {
	rels := relationships
	if rels == "" {
		rels = "(none recorded)"
	}

	return fmt.Sprintf(`You are a browser workspace organizer. Below are the user's open tabs and
observed co-usage relationships between them. Cluster the tabs into workspaces —
groups of tabs the user works with together on one task.

OPEN TABS (id | title | site | minutes used | visits):
%s

RELATIONSHIPS (tab id pairs the user switches between, strongest first):
%s

Rules:
- Every workspace must contain at least 2 tabs
- A tab belongs to at most one workspace
- Leave unrelated tabs out entirely — do not force everything into a workspace
- Name each workspace after the task, 1-3 words (e.g. "Flight booking", "Go debugging")
- Use the relationships as the primary signal, titles and sites as secondary
- Return ONLY a JSON object, no other text

Return a JSON object:
{
  "workspaces": [
    { "name": "Task name", "tabIds": ["id1", "id2"] }
  ]
}

If no grouping makes sense, return: {"workspaces": []}`, tabs, rels)
}
