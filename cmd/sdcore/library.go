package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacedriveapp/sdcore/internal/action"
	"github.com/spacedriveapp/sdcore/internal/config"
	"github.com/spacedriveapp/sdcore/internal/query"
)

// newLibraryCmd groups the library lifecycle subcommands: a library is a
// directory under the data directory (see internal/action.LibraryRegistry),
// not a long-lived server-side resource, so create/delete here are direct,
// synchronous wrappers over the action dispatcher.
func newLibraryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage libraries",
	}

	cmd.AddCommand(newLibraryCreateCmd())
	cmd.AddCommand(newLibraryDeleteCmd())
	cmd.AddCommand(newLibraryListCmd())

	return cmd
}

func newLibraryCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())
			name := args[0]

			registry := action.NewLibraryRegistry(cc.Cfg.DataDir, cc.Logger)
			d := action.NewDispatcher(registry, nil, nil, nil, nil, nil, cc.Device.ID, nowMS, cc.Logger)

			out, err := d.Dispatch(cmd.Context(), action.Action{Kind: action.KindLibraryCreate, LibraryName: name})
			if err != nil {
				return err
			}

			if err := persistLibraryName(cc, out.EntityID, name); err != nil {
				return fmt.Errorf("library created (%s) but failed to save its name to config: %w", out.EntityID, err)
			}

			statusf(cc.Quiet, "created library %q (%s)", name, out.EntityID)
			fmt.Println(out.EntityID)

			return nil
		},
	}
}

// persistLibraryName records name (and default sync/index preferences)
// into the on-disk config's Libraries map — executeLibraryCreate only
// provisions the library's directory and UUID, it does not know about
// config.Config, so the CLI owns writing the display name back.
func persistLibraryName(cc *CLIContext, libraryID, name string) error {
	cc.Cfg.Libraries[libraryID] = config.LibraryPref{
		Name:         name,
		SyncEnabled:  true,
		IndexOnMount: true,
	}

	return config.Save(cc.Cfg.ConfigPath, cc.Cfg.Config)
}

func newLibraryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <library-id>",
		Short: "Delete a library and all its data — irreversible",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())
			libraryID := args[0]

			registry := action.NewLibraryRegistry(cc.Cfg.DataDir, cc.Logger)
			d := action.NewDispatcher(registry, nil, nil, nil, nil, nil, cc.Device.ID, nowMS, cc.Logger)

			if _, err := d.Dispatch(cmd.Context(), action.Action{Kind: action.KindLibraryDelete, LibraryID: libraryID}); err != nil {
				return err
			}

			delete(cc.Cfg.Libraries, libraryID)

			if err := config.Save(cc.Cfg.ConfigPath, cc.Cfg.Config); err != nil {
				cc.Logger.Warn("library deleted but failed to update config", "error", err)
			}

			statusf(cc.Quiet, "deleted library %s", libraryID)

			return nil
		},
	}
}

func newLibraryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all libraries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			libs, err := query.ListLibraries(cc.Cfg.DataDir, cc.Cfg.Config)
			if err != nil {
				return err
			}

			printLibraries(cmd.OutOrStdout(), libs)

			return nil
		},
	}
}
