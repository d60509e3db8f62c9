// Command amuzad runs the sampling daemon in the foreground. It is the
// systemd-friendly entry point; the amuza CLI can also launch the same
// runtime as a detached process.
package main

import (
	"context"
	"fmt"
	"os"

	"amuza/internal/config"
	"amuza/internal/daemonrun"
)

func main() {
	configPath := ""
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-c", "--config":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "amuzad: --config requires a path")
				os.Exit(2)
			}
			i++
			configPath = args[i]
		case "-h", "--help":
			fmt.Println("Usage: amuzad [--config path]")
			return
		default:
			fmt.Fprintf(os.Stderr, "amuzad: unknown argument %q\n", args[i])
			os.Exit(2)
		}
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "amuzad: load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "amuzad: ensure directories: %v\n", err)
		os.Exit(1)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		fmt.Fprintf(os.Stderr, "amuzad: %v\n", err)
		os.Exit(1)
	}
}
