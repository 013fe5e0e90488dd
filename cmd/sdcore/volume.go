package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacedriveapp/sdcore/internal/action"
)

// newVolumeCmd groups volume tracking and the ad-hoc throughput speed
// test — volume detection/rescan itself is `sdcore serve`'s job
// (internal/volume.Manager's periodic Reconcile), not a one-shot CLI
// action, since it needs an open store long enough to diff the OS's
// mounted partitions against previously-known rows.
func newVolumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volume",
		Short: "Track, untrack, or benchmark volumes",
	}

	cmd.AddCommand(newVolumeTrackCmd())
	cmd.AddCommand(newVolumeUntrackCmd())
	cmd.AddCommand(newVolumeSpeedTestCmd())
	cmd.AddCommand(newVolumeScanCmd())

	return cmd
}

func newVolumeTrackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "track <volume-id>",
		Short: "Mark a volume as tracked (its locations will be indexed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatchVolumeAction(cmd, action.KindVolumeTrack, args[0])
		},
	}
}

func newVolumeUntrackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "untrack <volume-id>",
		Short: "Mark a volume as untracked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatchVolumeAction(cmd, action.KindVolumeUntrack, args[0])
		},
	}
}

func newVolumeSpeedTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "speed-test <volume-id>",
		Short: "Benchmark a volume's sequential read/write throughput",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatchVolumeAction(cmd, action.KindVolumeSpeedTest, args[0])
		},
	}
}

func dispatchVolumeAction(cmd *cobra.Command, kind action.Kind, volumeID string) error {
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

	out, err := h.dispatcher.Dispatch(cmd.Context(), action.Action{Kind: kind, VolumeID: volumeID})
	if err != nil {
		return err
	}

	fmt.Println(out.Summary)

	return nil
}

func newVolumeScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one volume-detection pass against the OS's mounted partitions",
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

			mgr := volumeManagerFor(cc, h)

			if err := mgr.Reconcile(cmd.Context()); err != nil {
				return fmt.Errorf("scanning volumes: %w", err)
			}

			statusf(cc.Quiet, "volume scan complete")

			return nil
		},
	}
}
