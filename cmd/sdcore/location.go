package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacedriveapp/sdcore/internal/action"
)

// newLocationCmd groups location management: adding a filesystem path
// under a volume to a library, removing one, and (re)indexing it.
func newLocationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "location",
		Short: "Manage locations within a library",
	}

	cmd.AddCommand(newLocationAddCmd())
	cmd.AddCommand(newLocationRemoveCmd())
	cmd.AddCommand(newLocationIndexCmd())
	cmd.AddCommand(newIndexAllCmd())

	return cmd
}

func newLocationAddCmd() *cobra.Command {
	var (
		volumeID  string
		name      string
		indexMode string
	)

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Add a filesystem path as a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
				Kind: action.KindLocationAdd, VolumeID: volumeID, Path: args[0], Name: name, IndexMode: indexMode,
			})
			if err != nil {
				return err
			}

			statusf(cc.Quiet, "%s", out.Summary)
			fmt.Println(out.EntityID)

			return nil
		},
	}

	cmd.Flags().StringVar(&volumeID, "volume", "", "volume UUID the path lives on (required)")
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the path)")
	cmd.Flags().StringVar(&indexMode, "mode", "", "index mode: deep or content (defaults to deep)")
	cmd.MarkFlagRequired("volume")

	return cmd
}

func newLocationRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <location-id>",
		Short: "Remove a location from its library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
				Kind: action.KindLocationRemove, LocationID: args[0],
			})
			if err != nil {
				return err
			}

			statusf(cc.Quiet, "%s", out.Summary)

			return nil
		},
	}
}

func newLocationIndexCmd() *cobra.Command {
	var indexMode string

	cmd := &cobra.Command{
		Use:   "index <location-id>",
		Short: "Queue an indexing job for one location (run `sdcore serve` to process it)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
				Kind: action.KindLocationIndex, LocationID: args[0], IndexMode: indexMode,
			})
			if err != nil {
				return err
			}

			statusf(cc.Quiet, "%s (job %s)", out.Summary, out.JobID)

			return nil
		},
	}

	cmd.Flags().StringVar(&indexMode, "mode", "", "override the location's index mode for this run")

	return cmd
}

func newIndexAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index-all",
		Short: "Queue an indexing job for every location in the library",
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

			out, err := h.dispatcher.Dispatch(cmd.Context(), action.Action{Kind: action.KindIndex})
			if err != nil {
				return err
			}

			statusf(cc.Quiet, "%s", out.Summary)

			return nil
		},
	}
}
