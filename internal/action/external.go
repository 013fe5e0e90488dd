package action

import (
	"context"

	"github.com/spacedriveapp/sdcore/internal/eventbus"
)

// externalTaskKind values match the ones used in the event's
// ExternalTaskKind field; an external collaborator subscribes on the bus
// and filters by this string.
const (
	externalTaskThumbnails      = "generate_thumbnails"
	externalTaskContentAnalysis = "content_analysis"
	externalTaskMetadataExtract = "metadata_extract"
)

func init() {
	register(KindGenerateThumbnails, validateContentIDAction("generate thumbnails"), executeExternalTask(externalTaskThumbnails))
	register(KindContentAnalysis, validateContentIDAction("content analysis"), executeExternalTask(externalTaskContentAnalysis))
	register(KindMetadataExtract, validateContentIDAction("metadata extract"), executeExternalTask(externalTaskMetadataExtract))
}

// validateContentIDAction builds a validateFunc shared by the three
// external-collaborator actions: each only needs a's ContentID to resolve
// to a known content identity, since thumbnailing/analysis/metadata
// extraction all key off content, not a specific entry path.
func validateContentIDAction(action string) validateFunc {
	return func(ctx context.Context, d *Dispatcher, a Action) Result {
		if a.ContentID == "" {
			return invalid("%s: content_id is required", action)
		}

		ci, err := d.store.GetContentIdentity(ctx, a.ContentID)
		if err != nil {
			return invalid("%s: looking up content identity: %s", action, err)
		}

		if ci == nil {
			return invalid("%s: content identity %q not found", action, a.ContentID)
		}

		return ok()
	}
}

// executeExternalTask builds an executeFunc for one of the three actions
// this engine deliberately does not perform itself (spec.md §1 names
// thumbnail/proxy generation and EXIF/metadata extraction as external
// collaborators; content analysis follows the same shape). Dispatch's
// only job here is to announce the work on the bus — a thumbnailer,
// analyzer, or metadata extractor process subscribes and does the actual
// processing, then writes its result back through the store directly.
func executeExternalTask(taskKind string) executeFunc {
	return func(ctx context.Context, d *Dispatcher, a Action) (Output, error) {
		d.publish(ctx, eventbus.Event{
			Kind:             eventbus.KindExternalTaskRequested,
			ExternalTaskKind: taskKind,
			ContentID:        a.ContentID,
		})

		return Output{EntityID: a.ContentID, Summary: taskKind + " requested"}, nil
	}
}
