package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacedriveapp/sdcore/internal/action"
)

// newDuplicateCmd exposes duplicate content detection: every content
// identity referenced by more than one entry, scoped to the whole library
// or one location.
func newDuplicateCmd() *cobra.Command {
	var scopeLocationID string

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Find duplicate file content within a library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			libraryID, err := requireLibraryFlag()
			if err != nil {
				return err
			}

			h, err := openLibrary(cc, libraryID)
			if err != nil {
				return err
			}
			defer h.Close()

			out, err := h.dispatcher.Dispatch(cmd.Context(), action.Action{
				Kind: action.KindDetectDuplicates, ScopeLocationID: scopeLocationID,
			})
			if err != nil {
				return err
			}

			fmt.Println(out.Summary)

			for _, id := range out.EntityIDs {
				fmt.Println(id)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&scopeLocationID, "location", "", "restrict the search to one location (defaults to the whole library)")

	return cmd
}
