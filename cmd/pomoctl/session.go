package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"pomodoroplaza/internal/controller"
	"pomodoroplaza/internal/model"
	"pomodoroplaza/internal/timerstate"
)

func startCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start [timer]",
		Short: "Start or resume a timer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timer, err := resolveTimer(a.ctrl.Snapshot(cmd.Context()), args[0])
			if err != nil {
				return err
			}
			if err := a.ctrl.StartTimer(cmd.Context(), timer.ID); err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), a.ctrl)
			return nil
		},
	}
}

func pauseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the running timer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state := a.ctrl.Snapshot(cmd.Context())
			if active := state.ActiveTimer(); active != nil {
				a.ctrl.PauseTimer(cmd.Context(), active.ID)
			}
			printStatus(cmd.OutOrStdout(), a.ctrl)
			return nil
		},
	}
}

func stopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Cancel the active timer without counting it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.ctrl.StopTimer(cmd.Context())
			printStatus(cmd.OutOrStdout(), a.ctrl)
			return nil
		},
	}
}

func breakCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "break",
		Short: "Start or skip the break",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start the break countdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ctrl.StartBreakCountdown(cmd.Context()); err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), a.ctrl)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "skip",
		Short: "Skip the current break",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.ctrl.StopBreakTimer(cmd.Context())
			printStatus(cmd.OutOrStdout(), a.ctrl)
			return nil
		},
	})

	return cmd
}

func pauseDurationCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pause-duration [minutes]",
		Short: "Set the break length for future breaks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.Atoi(args[0])
			if err != nil {
				return timerstate.ErrInvalidPauseDuration
			}
			if err := a.ctrl.UpdateGlobalPauseDuration(cmd.Context(), minutes); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Breaks now last %s\n", timerstate.FormatMinutes(minutes))
			return nil
		},
	}
}

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the countdown and today's usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printStatus(cmd.OutOrStdout(), a.ctrl)
			fmt.Fprintln(cmd.OutOrStdout())
			printTimers(cmd.OutOrStdout(), a.ctrl.Snapshot(cmd.Context()))
			return nil
		},
	}
}

func runCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Drive the countdown in the foreground until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			events := a.ctrl.Subscribe(64)
			defer a.ctrl.Unsubscribe(events)

			done := make(chan error, 1)
			go func() {
				done <- a.ctrl.Run(ctx)
			}()

			printStatus(out, a.ctrl)
			for {
				select {
				case err := <-done:
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				case event, ok := <-events:
					if !ok {
						return nil
					}
					if event.Type == timerstate.EventRejected {
						continue
					}
					fmt.Fprintf(out, "[%s] %s: %s\n", event.At.Format("15:04:05"), event.Title, event.Message)
				}
			}
		},
	}
}

func printStatus(w io.Writer, ctrl *controller.Controller) {
	state := ctrl.Snapshot(context.Background())

	switch state.Countdown.Phase {
	case model.PhaseRunning, model.PhasePaused:
		timer, _, _ := state.FindTimer(state.Countdown.TimerID)
		verb := "Running"
		if state.Countdown.Phase == model.PhasePaused {
			verb = "Paused"
		}
		fmt.Fprintf(w, "%s %q %s (%.0f%%)\n", verb, timer.Title,
			timerstate.FormatClock(state.Countdown.Remaining),
			timerstate.Progress(state.Countdown.Remaining, timer.DurationSeconds()))
	case model.PhaseBreak:
		fmt.Fprintf(w, "Break %s\n", timerstate.FormatClock(state.Countdown.Remaining))
	case model.PhaseBreakPending:
		fmt.Fprintln(w, "Break ready, start it with: pomoctl break start")
	default:
		fmt.Fprintln(w, "Idle")
	}
	fmt.Fprintf(w, "Usage resets in %s\n", ctrl.TimeUntilReset())
}
