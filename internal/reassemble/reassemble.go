// Package reassemble writes dispatched translations back into a registry.
package reassemble

import (
	"fmt"

	"github.com/valpere/doctran/internal/dispatcher"
	"github.com/valpere/doctran/internal/registry"
)

// Reassemble copies every successful batch's translations into the nodes
// they came from, addressed by GlobalIndex. Nodes of failed batches keep
// their original text. Writes already made are never rolled back.
//
// The returned error is nil when every batch succeeded, otherwise it is the
// stream's *dispatcher.AggregateTranslationError.
func Reassemble(reg *registry.Registry, result *dispatcher.Result) (*registry.Registry, error) {
	if reg == nil || result == nil {
		return reg, nil
	}

	for _, out := range result.Outcomes {
		if !out.OK() {
			continue
		}
		if len(out.Translated) != len(out.Batch.Nodes) {
			return reg, fmt.Errorf("batch %d: %w", out.Batch.BatchIndex, dispatcher.ErrLengthMismatch)
		}
		for j, node := range out.Batch.Nodes {
			if err := reg.Set(node.GlobalIndex, out.Translated[j]); err != nil {
				return reg, fmt.Errorf("failed to reassemble batch %d: %w", out.Batch.BatchIndex, err)
			}
		}
	}

	if agg := result.Err(); agg != nil {
		return reg, agg
	}
	return reg, nil
}
