package database

import (
	"context"
	"fmt"
)

// TitleChange is a page whose title differs between two runs.
type TitleChange struct {
	URL    string `json:"url"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// RunDiff is the difference between two stored runs of one origin.
type RunDiff struct {
	Origin   string        `json:"origin"`
	Previous RunRecord     `json:"previous"`
	Current  RunRecord     `json:"current"`
	Added    []PageRecord  `json:"added,omitempty"`
	Removed  []PageRecord  `json:"removed,omitempty"`
	Retitled []TitleChange `json:"retitled,omitempty"`

	// Unchanged counts pages present in both runs with the same title.
	Unchanged int `json:"unchanged"`
}

// HasChanges reports whether the page sets or titles differ.
func (d *RunDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Retitled) > 0
}

// DiffPages compares two page lists by URL. Added pages keep the order of
// current, removed pages the order of previous.
func DiffPages(previous, current []PageRecord) (added, removed []PageRecord, retitled []TitleChange, unchanged int) {
	before := make(map[string]PageRecord, len(previous))
	for _, p := range previous {
		before[p.URL] = p
	}
	after := make(map[string]struct{}, len(current))

	for _, p := range current {
		after[p.URL] = struct{}{}
		old, ok := before[p.URL]
		switch {
		case !ok:
			added = append(added, p)
		case old.Title != p.Title:
			retitled = append(retitled, TitleChange{URL: p.URL, Before: old.Title, After: p.Title})
		default:
			unchanged++
		}
	}
	for _, p := range previous {
		if _, ok := after[p.URL]; !ok {
			removed = append(removed, p)
		}
	}
	return added, removed, retitled, unchanged
}

// DiffRuns loads two runs and compares their pages.
func (h *HistoryDB) DiffRuns(ctx context.Context, previousID, currentID int64) (*RunDiff, error) {
	previous, err := h.GetRun(ctx, previousID)
	if err != nil {
		return nil, err
	}
	if previous == nil {
		return nil, fmt.Errorf("run %d not found", previousID)
	}
	current, err := h.GetRun(ctx, currentID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("run %d not found", currentID)
	}
	if previous.Origin != current.Origin {
		return nil, fmt.Errorf("run %d belongs to %s, not %s", previousID, previous.Origin, current.Origin)
	}

	previousPages, err := h.RunPages(ctx, previousID)
	if err != nil {
		return nil, err
	}
	currentPages, err := h.RunPages(ctx, currentID)
	if err != nil {
		return nil, err
	}

	d := &RunDiff{
		Origin:   current.Origin,
		Previous: *previous,
		Current:  *current,
	}
	d.Added, d.Removed, d.Retitled, d.Unchanged = DiffPages(previousPages, currentPages)
	return d, nil
}
