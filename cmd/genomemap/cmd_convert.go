package main

import (
	"fmt"
	"io"

	"github.com/sanonone/genomemap/pkg/genome"
	"github.com/spf13/cobra"
)

// newConvertCmd creates the "genomemap convert" subcommand.
func newConvertCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "convert <scores>",
		Short: "Convert a genome scores file into a score matrix",
		Long: "Read a movieId,tagId,relevance file sorted by movie and tag and write one row per\n" +
			"movie holding its relevance for every tag, the format train and serve expect.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.OutOrStdout(), args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "genome-matrix.csv", "matrix file to write")

	return cmd
}

func runConvert(w io.Writer, scoresPath, matrixPath string) error {
	rows, err := genome.ConvertScores(scoresPath, matrixPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %d movies to %s\n", rows, matrixPath)
	return nil
}
