// Package actions extracts action items from meeting text and merges
// action items coming from independent sources.
package actions

import "sort"

// Unassigned is shown in place of a missing owner or deadline.
const Unassigned = "TBD"

// Priority of an action item.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities high before medium before low.
// Unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Status of an action item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ActionItem is a single action found by the Extractor.
// Owner and Deadline are empty when they could not be resolved.
type ActionItem struct {
	Task       string   `json:"task" yaml:"task"`
	Owner      string   `json:"owner,omitempty" yaml:"owner,omitempty"`
	Deadline   string   `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Priority   Priority `json:"priority" yaml:"priority"`
	Status     Status   `json:"status" yaml:"status"`
	Context    string   `json:"context" yaml:"context"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
}

// Entry is the structured action shape used when merging action items
// from different sources. A nil Confidence counts as zero.
type Entry struct {
	Task       string   `json:"task" yaml:"task"`
	Owner      string   `json:"owner,omitempty" yaml:"owner,omitempty"`
	Deadline   string   `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Priority   Priority `json:"priority" yaml:"priority"`
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// DisplayOwner returns the owner or the TBD placeholder.
func (e Entry) DisplayOwner() string {
	if e.Owner == "" {
		return Unassigned
	}
	return e.Owner
}

// DisplayDeadline returns the deadline or the TBD placeholder.
func (e Entry) DisplayDeadline() string {
	if e.Deadline == "" {
		return Unassigned
	}
	return e.Deadline
}

// ConfidenceValue returns the confidence, treating a missing value as 0.
func (e Entry) ConfidenceValue() float64 {
	if e.Confidence == nil {
		return 0
	}
	return *e.Confidence
}

// EntryView is the presentation form of an Entry with placeholders filled in.
type EntryView struct {
	Task       string   `json:"task" yaml:"task"`
	Owner      string   `json:"owner" yaml:"owner"`
	Deadline   string   `json:"deadline" yaml:"deadline"`
	Priority   Priority `json:"priority" yaml:"priority"`
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// View returns the presentation form of e.
func (e Entry) View() EntryView {
	return EntryView{
		Task:       e.Task,
		Owner:      e.DisplayOwner(),
		Deadline:   e.DisplayDeadline(),
		Priority:   e.Priority,
		Confidence: e.Confidence,
	}
}

// ToEntry normalizes an extracted item into the merge-time shape.
func (a ActionItem) ToEntry() Entry {
	conf := a.Confidence
	return Entry{
		Task:       a.Task,
		Owner:      a.Owner,
		Deadline:   a.Deadline,
		Priority:   a.Priority,
		Confidence: &conf,
	}
}

// FilterByConfidence keeps items whose confidence is at least min.
func FilterByConfidence(items []ActionItem, min float64) []ActionItem {
	out := make([]ActionItem, 0, len(items))
	for _, item := range items {
		if item.Confidence >= min {
			out = append(out, item)
		}
	}
	return out
}

// OwnerGroup is the set of entries assigned to one owner.
type OwnerGroup struct {
	Owner   string
	Entries []Entry
}

// GroupByOwner groups entries by display owner in first-seen order.
// Entries inside a group are ordered high, medium, low priority; the sort is stable.
func GroupByOwner(entries []Entry) []OwnerGroup {
	var groups []OwnerGroup
	index := make(map[string]int)

	for _, e := range entries {
		owner := e.DisplayOwner()
		i, ok := index[owner]
		if !ok {
			i = len(groups)
			index[owner] = i
			groups = append(groups, OwnerGroup{Owner: owner})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}

	for _, g := range groups {
		sort.SliceStable(g.Entries, func(a, b int) bool {
			return g.Entries[a].Priority.Rank() < g.Entries[b].Priority.Rank()
		})
	}
	return groups
}
