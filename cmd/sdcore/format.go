package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/query"
)

// isTerminal reports whether w is an interactive terminal — used to decide
// whether to pad a table to a fixed column width or emit plain
// tab-separated text a script can parse, the same distinction the teacher
// draws between human and scripted output.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// newTableWriter returns a tabwriter configured for human-readable output
// when w is a terminal, or minimal padding for piped/redirected output.
func newTableWriter(w io.Writer) *tabwriter.Writer {
	padding := 2
	if !isTerminal(w) {
		padding = 1
	}

	return tabwriter.NewWriter(w, 0, 4, padding, ' ', 0)
}

// formatBytes renders n as a human-readable byte size, e.g. "1.2 MB".
func formatBytes(n int64) string {
	if n < 0 {
		return "-"
	}

	return humanize.Bytes(uint64(n))
}

// formatBytesU renders an unsigned byte count, for model.Volume's
// uint64-typed capacity fields.
func formatBytesU(n uint64) string {
	return humanize.Bytes(n)
}

// formatTimeMS renders a Unix-millisecond timestamp as a relative duration,
// e.g. "3 days ago", or "-" for a zero timestamp.
func formatTimeMS(ms int64) string {
	if ms <= 0 {
		return "-"
	}

	return humanize.Time(time.UnixMilli(ms))
}

// printLibraries writes a library listing table to w.
func printLibraries(w io.Writer, libs []query.Library) {
	tw := newTableWriter(w)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tNAME\tSYNC\tINDEX-ON-MOUNT")

	for _, l := range libs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.ID, l.Name, yesNo(l.SyncEnabled), yesNo(l.IndexOnMount))
	}
}

// printVolumes writes a volume listing table to w.
func printVolumes(w io.Writer, vols []*model.Volume) {
	tw := newTableWriter(w)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tNAME\tMOUNT\tFS\tSIZE\tAVAILABLE\tTRACKED\tONLINE")

	for _, v := range vols {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			v.ID, v.Name, v.MountPoint, v.FileSystem,
			formatBytesU(v.TotalBytes), formatBytesU(v.AvailableBytes),
			yesNo(v.IsTracked), yesNo(v.Online))
	}
}

// printSpaceLayout writes a disk-usage breakdown table to w, largest first.
func printSpaceLayout(w io.Writer, entries []query.SpaceLayoutEntry) {
	tw := newTableWriter(w)
	defer tw.Flush()

	fmt.Fprintln(tw, "NAME\tKIND\tSIZE")

	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.Kind, formatBytes(e.Size))
	}
}

// printUniqueFiles writes a table of files unique to a location to w.
func printUniqueFiles(w io.Writer, files []query.UniqueFile) {
	tw := newTableWriter(w)
	defer tw.Flush()

	fmt.Fprintln(tw, "ENTRY-ID\tCONTENT-HASH\tSIZE")

	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.EntryID, shortHash(f.ContentHash), formatBytes(f.TotalSize))
	}
}

// yesNo renders a bool as "yes"/"no" for table cells.
func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}

// shortHash truncates a content hash to a readable prefix, mirroring how
// git and similar tools abbreviate hex digests in table output.
func shortHash(hash string) string {
	const prefixLen = 12

	if len(hash) <= prefixLen {
		return hash
	}

	return hash[:prefixLen]
}

// statusf writes a one-line status message to stderr, unless quiet is set.
// Kept distinct from table output (which goes to stdout) so redirecting
// stdout to a file or pipe doesn't also capture progress chatter.
func statusf(quiet bool, format string, args ...any) {
	if quiet {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}

	fmt.Fprint(os.Stderr, msg)
}
