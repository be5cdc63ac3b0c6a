package cmd

import (
	"errors"
	"fmt"

	"github.com/jfmyers9/spotlite/pkg/webapi"
	"github.com/spf13/cobra"
)

var recommendLimit int

var recommendCmd = &cobra.Command{
	Use:   "recommend <track>...",
	Short: "Recommend tracks similar to the given ones",
	Long: `Recommend tracks based on up to five seed tracks. Seeds may be IDs,
URIs or links; extra seeds are ignored.

Only available in anonymous mode. With a client id and secret configured
this command fails without contacting Spotify.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().IntVarP(&recommendLimit, "limit", "n", webapi.DefaultRecommendationLimit, "Number of tracks (max 100)")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	seeds := make([]string, 0, len(args))
	for _, arg := range args {
		id, err := parseID("track", arg)
		if err != nil {
			return err
		}
		seeds = append(seeds, id)
	}

	hits, err := app.client.GetRecommendations(cmd.Context(), seeds, recommendLimit)
	if errors.Is(err, webapi.ErrUnsupported) {
		return fmt.Errorf("recommendations need anonymous mode; unset client_id and client_secret")
	}
	if err != nil {
		return fmt.Errorf("failed to get recommendations: %w", err)
	}
	if hits == nil {
		return fmt.Errorf("recommendations request failed, see --log-level debug")
	}

	if jsonRequested() {
		return printJSON(cmd.OutOrStdout(), hits)
	}
	if len(hits) == 0 {
		return errNoResults
	}

	writeHits(cmd.OutOrStdout(), hits, columnWidth())
	return nil
}
