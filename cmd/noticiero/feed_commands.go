package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"noticiero/internal/store"
)

func newFeedsCommand(ctx *commandContext) *cobra.Command {
	feedsCmd := &cobra.Command{
		Use:     "feeds",
		Aliases: []string{"feed"},
		Short:   "Manage RSS feed sources",
	}

	var activeOnly bool
	var jsonOut bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List feed sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			sources, err := st.ListFeedSources(cmd.Context(), activeOnly)
			if err != nil {
				return err
			}
			if jsonOut {
				if sources == nil {
					sources = []*store.FeedSource{}
				}
				return writeJSON(cmd, sources)
			}
			if len(sources) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No feed sources registered")
				return nil
			}
			rows := make([][]string, 0, len(sources))
			for _, src := range sources {
				active := "no"
				if src.Active {
					active = "yes"
				}
				rows = append(rows, []string{src.ID, src.Name, active, src.URL})
			}
			writeRows(cmd, []string{"ID", "Name", "Active", "URL"}, rows, nil)
			return nil
		},
	}
	listCmd.Flags().BoolVar(&activeOnly, "active", false, "Only list active sources")
	listCmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	addCmd := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Register a feed source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			src, err := st.AddFeedSource(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added feed %s (%s)\n", src.ID, src.Name)
			return nil
		},
	}

	feedsCmd.AddCommand(listCmd, addCmd,
		newFeedActiveCommand(ctx, "activate", true),
		newFeedActiveCommand(ctx, "deactivate", false),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Remove a feed source",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				st, err := ctx.openStore()
				if err != nil {
					return err
				}
				if err := st.DeleteFeedSource(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted feed %s\n", args[0])
				return nil
			},
		},
	)
	return feedsCmd
}

func newFeedActiveCommand(ctx *commandContext, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Mark a feed source as %s", map[bool]string{true: "active", false: "inactive"}[active]),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			src, err := st.SetFeedActive(cmd.Context(), args[0], active)
			if err != nil {
				return err
			}
			state := "inactive"
			if src.Active {
				state = "active"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Feed %s is now %s\n", src.Name, state)
			return nil
		},
	}
}
