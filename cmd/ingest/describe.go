package main

import (
	"encoding/json"

	"github.com/OFFIS-RIT/influence/pkg/graph"

	"github.com/spf13/cobra"
)

func newDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe NAME",
		Short: "Print the graph view of a politician",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := a.open(ctx, false)
			if err != nil {
				return err
			}
			defer res.Close()

			view, err := graph.DescribePolitician(ctx, res.graph, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		},
	}
}
