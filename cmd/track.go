package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track <id|uri|link>",
	Short: "Show a single track",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	id, err := parseID("track", args[0])
	if err != nil {
		return err
	}

	track, err := app.client.GetTrack(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get track: %w", err)
	}
	if track == nil {
		return fmt.Errorf("track %s not found", id)
	}

	if jsonRequested() {
		return printJSON(cmd.OutOrStdout(), track)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s\n", track.Name)
	fmt.Fprintf(w, "  Artist:   %s\n", strings.Join(track.Artists, ", "))
	if track.Album != "" {
		fmt.Fprintf(w, "  Album:    %s\n", track.Album)
	}
	fmt.Fprintf(w, "  Duration: %s\n", formatDuration(track.Duration))
	if track.Explicit {
		fmt.Fprintf(w, "  Explicit: yes\n")
	}
	fmt.Fprintf(w, "  URL:      %s\n", track.URL)
	return nil
}
