package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/internal/config"
	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/internal/logging"
	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/internal/orchestrator"
	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/internal/power"
	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/internal/pve"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		planOnly   bool
		opts       orchestrator.Options
	)

	cmd := &cobra.Command{
		Use:          "ups-shutdown",
		Short:        "UPS断电时按优先级优雅关停Proxmox客户机并关闭主机",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, planOnly, opts)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "/etc/ups-shutdown/config.yaml", "config file path")
	cmd.Flags().BoolVar(&planOnly, "plan-only", false, "print the execution plan and exit, no lock, no side effects")
	cmd.Flags().BoolVar(&opts.TestMode, "test-mode", false, "log every step without touching guests or the host")
	cmd.Flags().BoolVar(&opts.GuestsOnly, "guests-only", false, "run guest actions but skip the host power-off")
	cmd.Flags().BoolVar(&opts.SimulateFailure, "simulate-failure", false, "bypass the power check and treat the supply as failing")
	cmd.Flags().BoolVar(&opts.SkipInitialWait, "skip-initial-wait", false, "skip the initial wait (trigger already debounced the event)")
	cmd.Flags().StringVar(&opts.Event, "event", "", "free-text event label recorded with every log line")

	return cmd
}

func run(ctx context.Context, configPath string, planOnly bool, opts orchestrator.Options) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}

	client := pve.NewClient(logger)
	reader := power.NewNUTReader(cfg.UPS.Name)

	orch := orchestrator.New(orchestrator.Config{
		UPSName:                  cfg.UPS.Name,
		ProceedOnUnknown:         cfg.UPS.ProceedOnUnknown,
		BoostLowBatteryThreshold: cfg.UPS.BoostLowBatteryThreshold,
		InitialWait:              cfg.Timing.InitialWait,
		ActionDelay:              cfg.Timing.ActionDelay,
		GracePeriod:              cfg.Timing.GracePeriod,
		SyncAfterAction:          cfg.Behavior.SyncAfterAction,
		LockFile:                 cfg.Behavior.LockFile,
		Defaults:                 cfg.PlanDefaults(),
		Overrides:                cfg.OverrideTable(),
	}, client, client, client, reader, logger)

	if planOnly {
		entries, err := orch.Plan(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%-8s %-4s %-6s %-24s %s\n", "PRIORITY", "KIND", "ID", "NAME", "ACTION")
		for _, e := range entries {
			fmt.Printf("%-8d %-4s %-6d %-24s %s\n", e.Priority, e.Kind, e.ID, e.Name, e.Action)
		}
		return nil
	}

	state, err := orch.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("shutdown run ended in state %s: %w", state, err)
	}

	logger.Infof("Shutdown run finished in state %s", state)
	return nil
}
