package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var playlistCmd = &cobra.Command{
	Use:   "playlist <id|uri|link>",
	Short: "List the tracks of a playlist",
	Long: `Fetch a playlist and every page of its tracks.

Tracks that are unavailable or have no artist are skipped. If a page fails
to load, the tracks fetched up to that point are shown.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlaylist,
}

func init() {
	rootCmd.AddCommand(playlistCmd)
}

func runPlaylist(cmd *cobra.Command, args []string) error {
	id, err := parseID("playlist", args[0])
	if err != nil {
		return err
	}

	pl, err := app.client.GetPlaylist(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get playlist: %w", err)
	}
	if pl == nil {
		return fmt.Errorf("playlist %s not found or empty", id)
	}

	if jsonRequested() {
		return printJSON(cmd.OutOrStdout(), pl)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s", pl.Name)
	if pl.Owner != "" {
		fmt.Fprintf(w, " by %s", pl.Owner)
	}
	fmt.Fprintf(w, " (%d of %d tracks)\n\n", len(pl.Tracks), pl.Total)
	writeTracks(w, pl.Tracks, columnWidth())
	return nil
}
