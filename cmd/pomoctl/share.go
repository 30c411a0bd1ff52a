package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pomodoroplaza/internal/heatmap"
	"pomodoroplaza/internal/snapshot"
)

func historyCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent completions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state := a.ctrl.Snapshot(cmd.Context())
			out := cmd.OutOrStdout()
			completed := heatmap.Latest(state.CompletedTimers, limit)
			if len(completed) == 0 {
				fmt.Fprintln(out, "No completed timers yet.")
				return nil
			}
			for _, entry := range completed {
				fmt.Fprintf(out, "%s  %-24s %d min\n",
					entry.CompletedAt.In(a.cfg.Location).Format("2006-01-02 15:04"), entry.TimerTitle, entry.DurationMinutes)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries")

	return cmd
}

var heatmapGlyphs = []string{".", "░", "▒", "▓", "█"}

func heatmapCmd(a *app) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Show daily completions as a calendar strip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state := a.ctrl.Snapshot(cmd.Context())
			result := heatmap.Build(state.CompletedTimers, a.ctrl.Now(), a.cfg.Location, days)

			var strip strings.Builder
			for i, day := range result.Days {
				if i > 0 && i%7 == 0 {
					strip.WriteByte('\n')
				}
				strip.WriteString(heatmapGlyphs[day.Level])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s .. %s, %d completions\n", result.From, result.To, result.Total)
			fmt.Fprintln(out, strip.String())
			return nil
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", heatmap.DefaultDays, "Days to include")

	return cmd
}

func shareCmd(a *app) *cobra.Command {
	var tokenOnly bool

	cmd := &cobra.Command{
		Use:   "share",
		Short: "Print a link that carries the current timers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state := a.ctrl.Snapshot(cmd.Context())
			if tokenOnly {
				token, err := snapshot.EncodeShare(state)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			}
			link, err := snapshot.ShareURL(a.cfg.ShareBaseURL, state)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}

	cmd.Flags().BoolVar(&tokenOnly, "token", false, "Print only the encoded state")

	return cmd
}

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import [link-or-token]",
		Short: "Replace the local timers with a shared state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shared := strings.TrimSpace(args[0])
			decode := snapshot.DecodeShare
			if strings.Contains(shared, "?") || strings.Contains(shared, "://") {
				decode = snapshot.StateFromURL
			}
			state, ok := decode(shared, a.ctrl.Now())
			if !ok {
				return errors.New("shared state could not be decoded")
			}
			a.ctrl.Replace(cmd.Context(), state)
			printTimers(cmd.OutOrStdout(), a.ctrl.Snapshot(cmd.Context()))
			return nil
		},
	}
}

func exportCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the state document as YAML or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state := a.ctrl.Snapshot(cmd.Context())
			var (
				payload []byte
				err     error
			)
			switch format {
			case "yaml", "yml":
				payload, err = snapshot.MarshalYAML(state)
			case "json":
				payload, err = snapshot.Marshal(state)
				payload = append(payload, '\n')
			default:
				return fmt.Errorf("unknown format %q, use yaml or json", format)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(payload)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format (yaml, json)")

	return cmd
}
