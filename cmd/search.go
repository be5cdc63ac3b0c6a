package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// errNoResults makes the process exit 1 when nothing matched.
var errNoResults = errors.New("no results")

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for tracks",
	Long: `Search the catalog for tracks matching the query.

The number of results is set by search_limit in the config file.

Exit codes:
  0 - At least one track found
  1 - No tracks found or the search failed`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	hits, err := app.client.Search(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if hits == nil {
		return fmt.Errorf("search for %q failed, see --log-level debug", query)
	}

	if jsonRequested() {
		return printJSON(cmd.OutOrStdout(), hits)
	}
	if len(hits) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "No tracks found for %q\n", query)
		return errNoResults
	}

	writeHits(cmd.OutOrStdout(), hits, columnWidth())
	return nil
}
