package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
)

// newReloadCmd sends SIGHUP to a running `sdcore serve` daemon for the
// given library, triggering a config reload (see serve.go's sighupChannel
// handling) without restarting its in-flight jobs.
func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Signal a running serve daemon to reload its config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			libraryID, err := requireLibraryFlag()
			if err != nil {
				return err
			}

			pidPath := filepath.Join(cc.Cfg.DataDir, "libraries", libraryID, "serve.pid")

			if err := sendSIGHUP(pidPath); err != nil {
				return err
			}

			statusf(cc.Quiet, "sent reload signal to serve daemon for library %s", libraryID)

			return nil
		},
	}
}
