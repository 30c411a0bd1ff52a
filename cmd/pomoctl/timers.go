package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pomodoroplaza/internal/model"
	"pomodoroplaza/internal/timerstate"
)

func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List timers in display order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printTimers(cmd.OutOrStdout(), a.ctrl.Snapshot(cmd.Context()))
			return nil
		},
	}
}

func addCmd(a *app) *cobra.Command {
	var spec model.TimerSpec

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a timer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.Title = strings.TrimSpace(args[0])
			if err := model.ValidateTimerSpec(spec); err != nil {
				return err
			}
			timer := a.ctrl.AddTimer(cmd.Context(), spec)
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q (%s, %d per day) as %s\n",
				timer.Title, timerstate.FormatMinutes(timer.DurationMinutes), timer.DailyLimit, timer.ID)
			return nil
		},
	}

	cmd.Flags().IntVarP(&spec.DurationMinutes, "minutes", "m", 25, "Countdown length in minutes")
	cmd.Flags().IntVarP(&spec.DailyLimit, "limit", "l", 4, "Completions allowed per day")
	cmd.Flags().StringVarP(&spec.Color, "color", "c", "", "Display color (defaults to the palette)")

	return cmd
}

func editCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit [timer]",
		Short: "Change a timer's title, length, limit or color",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timer, err := resolveTimer(a.ctrl.Snapshot(cmd.Context()), args[0])
			if err != nil {
				return err
			}

			var patch model.TimerPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				title, _ := flags.GetString("title")
				patch.Title = &title
			}
			if flags.Changed("minutes") {
				minutes, _ := flags.GetInt("minutes")
				patch.DurationMinutes = &minutes
			}
			if flags.Changed("limit") {
				limit, _ := flags.GetInt("limit")
				patch.DailyLimit = &limit
			}
			if flags.Changed("color") {
				color, _ := flags.GetString("color")
				patch.Color = &color
			}

			updated, err := a.ctrl.PatchTimer(cmd.Context(), timer.ID, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %q\n", updated.Title)
			return nil
		},
	}

	cmd.Flags().StringP("title", "t", "", "New title")
	cmd.Flags().IntP("minutes", "m", 0, "New length in minutes")
	cmd.Flags().IntP("limit", "l", 0, "New daily limit")
	cmd.Flags().StringP("color", "c", "", "New color")

	return cmd
}

func deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete [timer]",
		Aliases: []string{"rm"},
		Short:   "Delete a timer",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timer, err := resolveTimer(a.ctrl.Snapshot(cmd.Context()), args[0])
			if err != nil {
				return err
			}
			if err := a.ctrl.DeleteTimer(cmd.Context(), timer.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", timer.Title)
			return nil
		},
	}
}

func moveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move [timer] [position]",
		Short: "Move a timer to a 1-based position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			state := a.ctrl.Snapshot(cmd.Context())
			timer, err := resolveTimer(state, args[0])
			if err != nil {
				return err
			}
			target, err := strconv.Atoi(args[1])
			if err != nil || target < 1 || target > len(state.Timers) {
				return fmt.Errorf("position must be between 1 and %d", len(state.Timers))
			}

			ids := make([]string, 0, len(state.Timers))
			for _, t := range ordered(state) {
				if t.ID != timer.ID {
					ids = append(ids, t.ID)
				}
			}
			ids = append(ids[:target-1], append([]string{timer.ID}, ids[target-1:]...)...)

			if err := a.ctrl.Reorder(cmd.Context(), ids); err != nil {
				return err
			}
			printTimers(cmd.OutOrStdout(), a.ctrl.Snapshot(cmd.Context()))
			return nil
		},
	}
}

func resetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset [timer]",
		Short: "Reset a timer's usage for today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timer, err := resolveTimer(a.ctrl.Snapshot(cmd.Context()), args[0])
			if err != nil {
				return err
			}
			if err := a.ctrl.ResetTimer(cmd.Context(), timer.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset usage of %q\n", timer.Title)
			return nil
		},
	}
}

// resolveTimer accepts a timer id, a 1-based list number or an exact title.
func resolveTimer(state model.State, ref string) (model.Timer, error) {
	if timer, _, ok := state.FindTimer(ref); ok {
		return timer, nil
	}
	timers := ordered(state)
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(timers) {
		return timers[n-1], nil
	}
	for _, timer := range timers {
		if strings.EqualFold(timer.Title, ref) {
			return timer, nil
		}
	}
	return model.Timer{}, fmt.Errorf("%w: %s", timerstate.ErrTimerNotFound, ref)
}

func ordered(state model.State) []model.Timer {
	timers := make([]model.Timer, len(state.Timers))
	for _, timer := range state.Timers {
		if timer.Position >= 0 && timer.Position < len(timers) && timers[timer.Position].ID == "" {
			timers[timer.Position] = timer
			continue
		}
		// positions are not a permutation; keep stored order
		return append([]model.Timer(nil), state.Timers...)
	}
	return timers
}

func printTimers(w io.Writer, state model.State) {
	timers := ordered(state)
	if len(timers) == 0 {
		fmt.Fprintln(w, "No timers yet. Add one with: pomoctl add \"Deep work\" -m 25 -l 4")
		return
	}

	active := state.ActiveTimer()
	for i, timer := range timers {
		marker := " "
		if active != nil && active.ID == timer.ID {
			marker = ">"
		}
		limit := ""
		if timer.LimitReached() {
			limit = " (limit reached)"
		}
		fmt.Fprintf(w, "%s %d. %-24s %-12s %d/%d today%s\n",
			marker, i+1, timer.Title, timerstate.FormatMinutes(timer.DurationMinutes),
			timer.UsedToday, timer.DailyLimit, limit)
	}
}
