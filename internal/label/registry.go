// Package label maintains the ordered set of distinct label values of an
// annotation project and the cascade that keeps view labels inside it.
package label

import (
	"github.com/hyperjump/fuda/internal/models"
)

// Add returns labels with newLabel appended. Matching is exact and
// case-sensitive; adding a present or empty label is a benign no-op
// (an empty cell already means "unlabeled" in the persisted CSV).
func Add(labels []string, newLabel string) []string {
	if newLabel == "" {
		return labels
	}
	for _, l := range labels {
		if l == newLabel {
			return labels
		}
	}
	return append(labels, newLabel)
}

// Remove returns labels without the given value, preserving order.
// Removing an absent label is a no-op.
func Remove(labels []string, label string) []string {
	out := labels[:0]
	for _, l := range labels {
		if l != label {
			out = append(out, l)
		}
	}
	return out
}

// Contains reports whether labels holds the exact value.
func Contains(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

// CascadeClear sets the label of every text unit in every view to nil when
// its current label is not in validLabels. Purely in-memory; persistence
// is a separate explicit save.
func CascadeClear(views [][]models.TextUnit, validLabels []string) {
	for _, view := range views {
		for i := range view {
			if view[i].Label != nil && !Contains(validLabels, *view[i].Label) {
				view[i].Label = nil
			}
		}
	}
}
