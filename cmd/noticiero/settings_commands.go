package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change broadcast settings",
	}

	var jsonOut bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show channel, presenters and censored words",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			cfg, err := st.Settings(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, cfg)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Channel:          %s\n", cfg.ChannelName)
			fmt.Fprintf(out, "Male presenter:   %s\n", cfg.MalePresenter)
			fmt.Fprintf(out, "Female presenter: %s\n", cfg.FemalePresenter)
			censored := "(none)"
			if len(cfg.CensoredWords) > 0 {
				censored = strings.Join(cfg.CensoredWords, ", ")
			}
			fmt.Fprintf(out, "Censored words:   %s\n", censored)
			return nil
		},
	}
	showCmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	var (
		channel    string
		male       string
		female     string
		censored   []string
		clearWords bool
	)
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Update broadcast settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("channel") && !flags.Changed("male") && !flags.Changed("female") &&
				!flags.Changed("censor") && !clearWords {
				return errors.New("nothing to update: pass at least one flag")
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			cfg, err := st.Settings(cmd.Context())
			if err != nil {
				return err
			}
			if flags.Changed("channel") {
				cfg.ChannelName = channel
			}
			if flags.Changed("male") {
				cfg.MalePresenter = male
			}
			if flags.Changed("female") {
				cfg.FemalePresenter = female
			}
			if clearWords {
				cfg.CensoredWords = nil
			}
			if flags.Changed("censor") {
				cfg.CensoredWords = censored
			}
			updated, err := st.UpdateSettings(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Settings updated for %s\n", updated.ChannelName)
			return nil
		},
	}
	setCmd.Flags().StringVar(&channel, "channel", "", "Channel name")
	setCmd.Flags().StringVar(&male, "male", "", "Male presenter name")
	setCmd.Flags().StringVar(&female, "female", "", "Female presenter name")
	setCmd.Flags().StringSliceVar(&censored, "censor", nil, "Censored words (replaces the list; comma separated or repeated)")
	setCmd.Flags().BoolVar(&clearWords, "clear-censored", false, "Remove every censored word")

	settingsCmd.AddCommand(showCmd, setCmd)
	return settingsCmd
}
