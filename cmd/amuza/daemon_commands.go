package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"amuza/internal/daemonctl"
	"amuza/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the amuza daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the amuza daemon (completely terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.StopAcknowledged {
				fmt.Fprintln(stdout, "Stop request sent")
			} else {
				fmt.Fprintln(stdout, "Stopping sampling daemon...")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the amuza daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx),
				5*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			fmt.Fprintln(stdout, "Daemon restarted")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and sampling status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			status := &ipc.StatusResponse{}
			client, err := ctx.dialClient()
			if err == nil {
				resp, statusErr := client.Status()
				client.Close()
				if statusErr != nil {
					return statusErr
				}
				status = resp
			}

			renderStatus(stdout, status, colorize)
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func renderStatus(stdout io.Writer, status *ipc.StatusResponse, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}
	if status.Running {
		fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
		fmt.Fprintln(stdout, renderStatusLine("Tray", statusInfo, status.Tray, colorize))
		fmt.Fprintln(stdout, renderStatusLine("Phase", statusInfo, status.Phase, colorize))
		if status.Well != "" {
			detail := status.Well
			if status.Total > 0 {
				detail = fmt.Sprintf("%s (%d of %d)", status.Well, status.Position, status.Total)
			}
			fmt.Fprintln(stdout, renderStatusLine("Well", statusInfo, detail, colorize))
		}
		if status.SessionPath != "" {
			fmt.Fprintln(stdout, renderStatusLine("Readings", statusOK, status.SessionPath, colorize))
		}
		droppedKind := statusOK
		if status.Dropped > 0 {
			droppedKind = statusWarn
		}
		fmt.Fprintln(stdout, renderStatusLine("Dropped frames", droppedKind, strconv.FormatUint(status.Dropped, 10), colorize))
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "Not running (run `amuza start`)", colorize))
	}
	fmt.Fprintln(stdout)

	if len(status.Profiles) > 0 {
		for _, line := range renderSectionHeader("Calibration", colorize) {
			fmt.Fprintln(stdout, line)
		}
		rows := make([][]string, 0, len(status.Profiles))
		for _, profile := range status.Profiles {
			rows = append(rows, []string{
				metaboliteDisplayName(profile.Metabolite),
				fmt.Sprintf("%.4f", profile.Gain),
				fmt.Sprintf("%.4f", profile.Offset),
			})
		}
		fmt.Fprintln(stdout, renderTable([]string{"Metabolite", "Gain", "Offset"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
	}

	for _, line := range renderSectionHeader("Runs", colorize) {
		fmt.Fprintln(stdout, line)
	}
	if status.RunsTotal == 0 {
		fmt.Fprintln(stdout, "No recorded runs")
		return
	}
	rows := [][]string{
		{"Total", strconv.Itoa(status.RunsTotal)},
		{"Completed", strconv.Itoa(status.RunsCompleted)},
		{"Failed", strconv.Itoa(status.RunsFailed)},
		{"Stopped", strconv.Itoa(status.RunsStopped)},
	}
	fmt.Fprintln(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	if status.ActiveRun != nil {
		fmt.Fprintf(stdout, "Active run: %s (%s %s)\n", status.ActiveRun.ID, status.ActiveRun.Kind, status.ActiveRun.Wells)
	}
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{}
	if ctx.socketFlag != nil {
		if socket := strings.TrimSpace(*ctx.socketFlag); socket != "" {
			opts.SocketPath = socket
		}
	}
	if ctx.configFlag != nil {
		if config := strings.TrimSpace(*ctx.configFlag); config != "" {
			opts.ConfigPath = config
		}
	}
	return opts
}
