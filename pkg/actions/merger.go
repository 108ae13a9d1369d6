package actions

import "github.com/otherjamesbrown/minutes-cli/pkg/textutil"

// MergeSimilarity is the task similarity above which a secondary item is
// considered a duplicate of an entry already in the merged list.
const MergeSimilarity = 0.7

// Merge combines primary entries with extracted items. Primary entries are
// copied unchanged; each secondary item either replaces a similar entry with
// strictly lower confidence, is dropped as a duplicate, or is appended.
// The result depends only on input order.
func Merge(primary []Entry, secondary []ActionItem) []Entry {
	merged := make([]Entry, len(primary), len(primary)+len(secondary))
	copy(merged, primary)

	for _, item := range secondary {
		incoming := item.ToEntry()

		dup := -1
		for i, existing := range merged {
			if textutil.Jaccard(incoming.Task, existing.Task) > MergeSimilarity {
				dup = i
				break
			}
		}

		switch {
		case dup < 0:
			merged = append(merged, incoming)
		case incoming.ConfidenceValue() > merged[dup].ConfidenceValue():
			merged = append(without(merged, dup), incoming)
		}
	}
	return merged
}
