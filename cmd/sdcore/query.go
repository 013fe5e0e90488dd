package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacedriveapp/sdcore/internal/query"
)

// newQueryCmd groups the engine's read-only query surface: volumes,
// file-by-path lookup, disk-usage breakdowns, and duplicate-free files
// unique to one location. These never go through the action dispatcher —
// internal/query reads directly off the store, matching spec.md §6's
// distinction between the action dispatcher and a separate read-only
// query layer.
func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Read-only lookups against a library",
	}

	cmd.AddCommand(newQueryVolumesCmd())
	cmd.AddCommand(newQueryFileCmd())
	cmd.AddCommand(newQuerySpaceCmd())
	cmd.AddCommand(newQueryUniqueCmd())

	return cmd
}

func newQueryVolumesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "volumes",
		Short: "List every volume known to the library",
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

			q := query.New(h.store)

			vols, err := q.ListVolumes(cmd.Context())
			if err != nil {
				return err
			}

			printVolumes(cmd.OutOrStdout(), vols)

			return nil
		},
	}
}

func newQueryFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "file <fs-path>",
		Short: "Resolve an absolute filesystem path to its indexed entry",
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

			q := query.New(h.store)

			entry, err := q.GetFileByPath(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if entry == nil {
				return fmt.Errorf("no indexed entry found at %s", args[0])
			}

			fmt.Printf("%s\t%s\t%s\t%s\n", entry.ID, entry.Name, entry.Kind, formatBytes(entry.Size))

			return nil
		},
	}
}

func newQuerySpaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "space <location-id>",
		Short: "Show a disk-usage breakdown of a location's top-level children",
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

			q := query.New(h.store)

			layout, err := q.GetSpaceLayout(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printSpaceLayout(cmd.OutOrStdout(), layout)

			return nil
		},
	}
}

func newQueryUniqueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unique <location-id>",
		Short: "List files under a location whose content exists nowhere else in the library",
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

			q := query.New(h.store)

			files, err := q.FindFilesUniqueToLocation(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printUniqueFiles(cmd.OutOrStdout(), files)

			return nil
		},
	}
}
