package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"amuza/internal/ipc"
)

func newTrayCommand(ctx *commandContext) *cobra.Command {
	trayCmd := &cobra.Command{
		Use:   "tray",
		Short: "Control the needle tray",
	}

	ejectCmd := &cobra.Command{
		Use:   "eject",
		Short: "Eject the tray for plate loading",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Eject()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Tray ejected (phase: %s)\n", resp.Phase)
				return nil
			})
		},
	}

	insertCmd := &cobra.Command{
		Use:   "insert",
		Short: "Insert the tray and lock the plate in place",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Insert()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Tray inserted (phase: %s)\n", resp.Phase)
				return nil
			})
		},
	}

	trayCmd.AddCommand(ejectCmd)
	trayCmd.AddCommand(insertCmd)
	return trayCmd
}
