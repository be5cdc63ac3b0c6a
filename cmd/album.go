package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var albumCmd = &cobra.Command{
	Use:   "album <id|uri|link>",
	Short: "List the tracks of an album",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlbum,
}

func init() {
	rootCmd.AddCommand(albumCmd)
}

func runAlbum(cmd *cobra.Command, args []string) error {
	id, err := parseID("album", args[0])
	if err != nil {
		return err
	}

	album, err := app.client.GetAlbum(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get album: %w", err)
	}
	if album == nil {
		return fmt.Errorf("album %s not found or empty", id)
	}

	if jsonRequested() {
		return printJSON(cmd.OutOrStdout(), album)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s - %s", strings.Join(album.Artists, ", "), album.Name)
	if album.ReleaseDate != "" {
		fmt.Fprintf(w, " (%s)", album.ReleaseDate)
	}
	fmt.Fprintf(w, "\n\n")
	writeTracks(w, album.Tracks, columnWidth())
	return nil
}
