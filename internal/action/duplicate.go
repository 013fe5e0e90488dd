package action

import (
	"context"
	"fmt"
)

func init() {
	register(KindDetectDuplicates, validateDetectDuplicates, executeDetectDuplicates)
}

func validateDetectDuplicates(ctx context.Context, d *Dispatcher, a Action) Result {
	if a.ScopeLocationID == "" {
		return ok()
	}

	loc, err := d.store.GetLocation(ctx, a.ScopeLocationID)
	if err != nil {
		return invalid("detect duplicates: looking up location: %s", err)
	}

	if loc == nil {
		return invalid("detect duplicates: location %q not found", a.ScopeLocationID)
	}

	return ok()
}

// executeDetectDuplicates finds every content identity with more than one
// referencing entry — byte-identical files the indexer has already
// deduplicated by hash but that still occupy separate paths on disk — and
// returns their IDs for the caller to inspect via internal/query's entry
// listing. The wasted-bytes estimate recounts each group's actual
// referencing entries via ListEntriesByContentID rather than trusting
// ContentIdentity.EntryCount outright, since that counter is maintained by
// separate increment/decrement calls elsewhere and could in principle
// drift from the entries table it's meant to summarize.
func executeDetectDuplicates(ctx context.Context, d *Dispatcher, a Action) (Output, error) {
	dupes, err := d.store.ListDuplicateContent(ctx, a.ScopeLocationID)
	if err != nil {
		return Output{}, fmt.Errorf("action: detecting duplicates: %w", err)
	}

	ids := make([]string, 0, len(dupes))

	var wastedBytes int64

	for _, ci := range dupes {
		entries, err := d.store.ListEntriesByContentID(ctx, ci.ID)
		if err != nil {
			return Output{}, fmt.Errorf("action: listing entries for content %s: %w", ci.ID, err)
		}

		if len(entries) < 2 {
			continue
		}

		ids = append(ids, ci.ID)
		wastedBytes += ci.TotalSize * int64(len(entries)-1)
	}

	return Output{
		EntityIDs: ids,
		Summary:   fmt.Sprintf("%d duplicate content groups, %d bytes reclaimable", len(ids), wastedBytes),
	}, nil
}
