package engine

// minLinkDwellMs is the minimum dwell before a focus change counts as a
// relationship between the departing and arriving tab. Shorter dwells are
// focus flicker: they still count toward the departed tab's engagement, but
// they say nothing about the two tabs being used together.
const minLinkDwellMs = 3000

// TabActivated applies a focus-change event with timestamp ts (epoch ms).
// The previously focused tab is credited with its dwell; a qualifying
// transition also updates the relationship edge for the pair. Replaying the
// same activation (same tab, zero dwell) is a no-op, so duplicate event
// delivery never double-counts.
func (e *Engine) TabActivated(id string, ts int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.focusID != "" {
		dwell := ts - e.focusStart
		if dwell < 0 {
			dwell = 0
		}
		if e.focusID == id && dwell == 0 {
			return nil
		}

		if err := e.DB.AddEngagement(e.focusID, float64(dwell)/1000); err != nil {
			return err
		}
		if dwell >= minLinkDwellMs && id != e.focusID {
			if err := e.DB.AddTransition(e.focusID, id, float64(dwell)/1000); err != nil {
				return err
			}
		}
	}

	e.focusID = id
	e.focusStart = ts
	return e.DB.TouchActivity(id, ts)
}
