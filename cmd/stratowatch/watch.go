package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/fentz26/stratowatch/internal/config"
	"github.com/fentz26/stratowatch/internal/tui"
	"github.com/spf13/cobra"
)

var (
	watchGroup    string
	watchNoDaemon bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Chart instance state history live in the terminal",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchGroup, "group", "", "Only chart this compute group")
	watchCmd.Flags().BoolVar(&watchNoDaemon, "no-daemon", false, "Do not start the daemon when it is not running")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !isDaemonRunning() {
		if watchNoDaemon {
			return fmt.Errorf("daemon not reachable at %s", apiAddr)
		}
		fmt.Println("⚡ stratowatch daemon not running. Starting background service...")
		if err := startDaemon(); err != nil {
			return fmt.Errorf("failed to start daemon: %w", err)
		}
	}

	// The TUI owns the terminal, so logs go to a file.
	logger, err := newLogger(filepath.Join(config.Dir(), "watch.log"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	app, err := tui.New(newAPIClient(), tui.Options{
		Group:        watchGroup,
		Presets:      cfg.Presets,
		ActivePreset: cfg.ActivePreset(),
		PollInterval: cfg.PollInterval,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func isDaemonRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := newAPIClient().CheckHealth(ctx)
	return err == nil
}

func startDaemon() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	cmd := exec.Command(exe, "daemon", "--config", configPath)
	configureDaemonProc(cmd)

	// Detach from the terminal the TUI is about to take over.
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return err
	}

	fmt.Print("   Waiting for daemon...")
	for i := 0; i < 20; i++ {
		if isDaemonRunning() {
			fmt.Println(" Done.")
			return nil
		}
		time.Sleep(250 * time.Millisecond)
		fmt.Print(".")
	}
	fmt.Println(" Timeout!")
	return fmt.Errorf("daemon started but API not reachable at %s", apiAddr)
}
