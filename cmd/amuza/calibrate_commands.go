package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"amuza/internal/ipc"
)

func newCalibrateCommand(ctx *commandContext) *cobra.Command {
	calibrateCmd := &cobra.Command{
		Use:   "calibrate <metabolite>",
		Short: "Recompute a sensor gain from the current reading window",
		Long: "Recompute the gain for one metabolite (glutamate, glutamine, glucose, " +
			"or lactate) from the live reading window. The expected concentration " +
			"must be set first with `amuza calibrate set-expected`, and the needle " +
			"should sit in a well containing the standard solution.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Calibrate(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s gain set to %.4f\n",
					metaboliteDisplayName(resp.Profile.Metabolite), resp.Profile.Gain)
				return nil
			})
		},
	}

	setExpectedCmd := &cobra.Command{
		Use:   "set-expected <metabolite> <concentration>",
		Short: "Set the expected standard concentration used for calibration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			concentration, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("parse concentration %q: %w", args[1], err)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.SetExpected(strings.TrimSpace(args[0]), concentration); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Expected %s concentration set to %g\n",
					strings.ToLower(strings.TrimSpace(args[0])), concentration)
				return nil
			})
		},
	}

	setGainCmd := &cobra.Command{
		Use:   "set-gain <metabolite> <gain>",
		Short: "Override a sensor gain directly",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gain, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("parse gain %q: %w", args[1], err)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.SetGain(strings.TrimSpace(args[0]), gain); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s gain set to %g\n",
					metaboliteDisplayName(args[0]), gain)
				return nil
			})
		},
	}

	calibrateCmd.AddCommand(setExpectedCmd)
	calibrateCmd.AddCommand(setGainCmd)
	return calibrateCmd
}
