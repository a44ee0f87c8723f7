package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/internal/config"
	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/internal/power"
)

// powerstat 读一次UPS状态，打印快照与分类结果；无任何副作用
func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "powerstat",
		Short:        "打印当前UPS读数与电源状态判定",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "/etc/ups-shutdown/config.yaml", "config file path")
	return cmd
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	reader := power.NewNUTReader(cfg.UPS.Name)
	reading, err := reader.Read(ctx)
	if err != nil {
		fmt.Printf("ups:      %s\n", cfg.UPS.Name)
		fmt.Printf("status:   unknown (%v)\n", err)
	} else {
		fmt.Printf("ups:      %s\n", cfg.UPS.Name)
		fmt.Printf("status:   %s\n", strings.Join(reading.StatusTokens, " "))
		if reading.ChargeKnown {
			fmt.Printf("charge:   %.0f%%\n", reading.ChargePercent)
		} else {
			fmt.Printf("charge:   unknown\n")
		}
		if reading.RuntimeKnown {
			fmt.Printf("runtime:  %ds\n", reading.RuntimeSeconds)
		} else {
			fmt.Printf("runtime:  unknown\n")
		}
	}

	decision := power.Classify(reading, cfg.UPS.ProceedOnUnknown, cfg.UPS.BoostLowBatteryThreshold)
	fmt.Printf("decision: %s\n", decision)
	return nil
}
