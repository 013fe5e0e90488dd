package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacedriveapp/sdcore/internal/action"
)

// newFileCmd groups the synchronous file operations: copy, delete, and
// content-hash validation against a single entry already known to the
// library's index.
func newFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Copy, delete, or validate indexed files",
	}

	cmd.AddCommand(newFileCopyCmd())
	cmd.AddCommand(newFileDeleteCmd())
	cmd.AddCommand(newFileValidateCmd())

	return cmd
}

func newFileCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <entry-id> <dest-path>",
		Short: "Copy an indexed file to a new filesystem path",
		Args:  cobra.ExactArgs(2),
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
				Kind: action.KindFileCopy, SourceEntryID: args[0], DestPath: args[1],
			})
			if err != nil {
				return err
			}

			statusf(cc.Quiet, "%s", out.Summary)

			return nil
		},
	}
}

func newFileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entry-id>",
		Short: "Delete an indexed file or directory from disk and from the index",
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
				Kind: action.KindFileDelete, SourceEntryID: args[0],
			})
			if err != nil {
				return err
			}

			statusf(cc.Quiet, "%s", out.Summary)

			return nil
		},
	}
}

func newFileValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <entry-id>",
		Short: "Recompute a file's content hash and compare it to the recorded identity",
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
				Kind: action.KindFileValidate, SourceEntryID: args[0],
			})
			if err != nil {
				return err
			}

			fmt.Println(out.Summary)

			return nil
		},
	}
}
