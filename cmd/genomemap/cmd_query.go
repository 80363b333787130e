package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/sanonone/genomemap/pkg/client"
	"github.com/sanonone/genomemap/pkg/search"
	"github.com/spf13/cobra"
)

// queryFlags are shared by the query subcommands.
type queryFlags struct {
	server    string
	authToken string
	threshold float32
	count     int
}

func (f *queryFlags) client(global *globalOptions) *client.Client {
	token := f.authToken
	if token == "" {
		token = global.cfg.Server.AuthToken
	}
	return client.New(f.server, token)
}

// limits returns the optional threshold and count set on the command line.
func (f *queryFlags) limits(cmd *cobra.Command) (*float32, *int) {
	var threshold *float32
	var count *int
	if cmd.Flags().Changed("threshold") {
		threshold = &f.threshold
	}
	if cmd.Flags().Changed("count") {
		count = &f.count
	}
	return threshold, count
}

// newQueryCmd creates the "genomemap query" subcommand.
func newQueryCmd(global *globalOptions) *cobra.Command {
	flags := &queryFlags{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a running genomemap server",
	}

	cmd.PersistentFlags().StringVar(&flags.server, "server", "http://localhost:8000", "base URL of the server")
	cmd.PersistentFlags().StringVar(&flags.authToken, "auth-token", "", "bearer token (default from config)")

	cmd.AddCommand(
		newQueryMoviesCmd(global, flags),
		newQueryTagsCmd(global, flags),
		newQueryInfoCmd(global, flags),
	)

	return cmd
}

func newQueryMoviesCmd(global *globalOptions, flags *queryFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "movies <tag[=priority]>...",
		Short: "Find movies for a weighted tag set",
		Long: "Find movies located on the map nodes that score highest for the given tags.\n" +
			"Priorities default to 1; negative priorities push a tag away.",
		Example: "  genomemap query movies dark=1 'based on a book=0.5' funny=-1 --count 10",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := parsePrioritizedTags(args)
			if err != nil {
				return err
			}
			threshold, count := flags.limits(cmd)
			req := search.MovieSearchRequest{Tags: tags, Threshold: threshold, Count: count}
			return runQueryMovies(cmd.Context(), cmd.OutOrStdout(), flags.client(global), req)
		},
	}

	cmd.Flags().Float32Var(&flags.threshold, "threshold", 0, "minimum node score")
	cmd.Flags().IntVar(&flags.count, "count", 0, "maximum number of movies")

	return cmd
}

func newQueryTagsCmd(global *globalOptions, flags *queryFlags) *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "tags <tag>...",
		Short: "Find tags related to a tag set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := search.ParseMatchingMethod(method)
			if err != nil {
				return err
			}
			threshold, count := flags.limits(cmd)
			req := search.TagSimilarityRequest{Tags: args, Method: m, Threshold: threshold, Count: count}
			return runQueryTags(cmd.Context(), cmd.OutOrStdout(), flags.client(global), req)
		},
	}

	cmd.Flags().StringVar(&method, "method", string(search.Similar), "matching method: similar or enclosed")
	cmd.Flags().Float32Var(&flags.threshold, "threshold", 0, "maximum tag score")
	cmd.Flags().IntVar(&flags.count, "count", 0, "maximum number of tags")

	return cmd
}

func newQueryInfoCmd(global *globalOptions, flags *queryFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the map loaded by the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryInfo(cmd.Context(), cmd.OutOrStdout(), flags.client(global))
		},
	}
}

// parsePrioritizedTags splits "name=priority" arguments. The priority is
// taken after the last '=' and defaults to 1.
func parsePrioritizedTags(args []string) ([]search.PrioritizedTag, error) {
	tags := make([]search.PrioritizedTag, 0, len(args))
	for _, arg := range args {
		name, priority := arg, float32(1)
		if i := strings.LastIndex(arg, "="); i >= 0 {
			p, err := strconv.ParseFloat(arg[i+1:], 32)
			if err != nil {
				return nil, fmt.Errorf("invalid priority in '%s': %w", arg, err)
			}
			name, priority = arg[:i], float32(p)
		}
		if name == "" {
			return nil, fmt.Errorf("empty tag name in '%s'", arg)
		}
		tags = append(tags, search.PrioritizedTag{Tag: name, Priority: priority})
	}
	return tags, nil
}

func runQueryMovies(ctx context.Context, w io.Writer, c *client.Client, req search.MovieSearchRequest) error {
	resp, err := c.FindMovies(ctx, req)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tIMDB\tTMDB")
	for _, m := range resp.Movies {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.ID, m.Title, m.IMDbID, m.TMDbID)
	}
	return tw.Flush()
}

func runQueryTags(ctx context.Context, w io.Writer, c *client.Client, req search.TagSimilarityRequest) error {
	resp, err := c.SimilarTags(ctx, req)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tSCORE")
	for _, m := range resp.Matches {
		fmt.Fprintf(tw, "%s\t%.4f\n", m.Tag, m.Score)
	}
	return tw.Flush()
}

func runQueryInfo(ctx context.Context, w io.Writer, c *client.Client) error {
	info, err := c.MapInfo(ctx)
	if err != nil {
		return err
	}
	printMapInfo(w, info)
	return nil
}

func printMapInfo(w io.Writer, info search.MapInfo) {
	fmt.Fprintf(w, "dimensions:     %v\n", info.Dimensions)
	fmt.Fprintf(w, "nodes:          %d\n", info.Nodes)
	fmt.Fprintf(w, "output size:    %d\n", info.OutputSize)
	fmt.Fprintf(w, "metric:         %s\n", info.Metric)
	fmt.Fprintf(w, "tags:           %d\n", info.Tags)
	fmt.Fprintf(w, "movies:         %d\n", info.Movies)
	fmt.Fprintf(w, "indexed movies: %d\n", info.IndexedMovies)
	fmt.Fprintf(w, "occupied nodes: %d\n", info.OccupiedNodes)
}
