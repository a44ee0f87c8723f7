package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/internal/plan"
	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/pkg/models"
)

// Config 应用配置
type Config struct {
	UPS       UPSConfig        `mapstructure:"ups"`
	Defaults  DefaultsConfig   `mapstructure:"defaults"`
	Timing    TimingConfig     `mapstructure:"timing"`
	Behavior  BehaviorConfig   `mapstructure:"behavior"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Overrides []OverrideConfig `mapstructure:"overrides"`
}

// UPSConfig UPS配置
type UPSConfig struct {
	Name                     string  `mapstructure:"name"`
	ProceedOnUnknown         bool    `mapstructure:"proceed_on_unknown"`
	BoostLowBatteryThreshold float64 `mapstructure:"boost_low_battery_threshold"`
}

// DefaultsConfig 类型级默认优先级与动作
type DefaultsConfig struct {
	VMPriority int    `mapstructure:"vm_priority"`
	CTPriority int    `mapstructure:"ct_priority"`
	VMAction   string `mapstructure:"vm_action"`
	CTAction   string `mapstructure:"ct_action"`
}

// TimingConfig 等待与间隔配置
type TimingConfig struct {
	InitialWait time.Duration `mapstructure:"initial_wait"`
	ActionDelay time.Duration `mapstructure:"action_delay"`
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

// BehaviorConfig 行为配置
type BehaviorConfig struct {
	SyncAfterAction bool   `mapstructure:"sync_after_action"`
	LockFile        string `mapstructure:"lock_file"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// OverrideConfig 单个工作负载的覆盖项
type OverrideConfig struct {
	Kind     string `mapstructure:"kind"`
	ID       int    `mapstructure:"id"`
	Priority int    `mapstructure:"priority"`
	Action   string `mapstructure:"action"`
}

// Load 加载配置文件；未知键一律拒绝，配置是声明式数据而非代码
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("UPS_SHUTDOWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.UnmarshalExact(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("ups.name", "ups@localhost")
	v.SetDefault("ups.proceed_on_unknown", false)
	v.SetDefault("ups.boost_low_battery_threshold", 20)

	v.SetDefault("defaults.vm_priority", 100)
	v.SetDefault("defaults.ct_priority", 100)
	v.SetDefault("defaults.vm_action", string(models.ActionShutdown))
	v.SetDefault("defaults.ct_action", string(models.ActionShutdown))

	v.SetDefault("timing.initial_wait", "60s")
	v.SetDefault("timing.action_delay", "5s")
	v.SetDefault("timing.grace_period", "120s")

	v.SetDefault("behavior.sync_after_action", true)
	v.SetDefault("behavior.lock_file", "/run/lock/ups-shutdown.lock")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
}

// validate 校验类型、动作与覆盖表
func (c *Config) validate() error {
	if c.UPS.Name == "" {
		return fmt.Errorf("ups.name must not be empty")
	}

	if !models.Action(c.Defaults.VMAction).ValidFor(models.KindVM) {
		return fmt.Errorf("defaults.vm_action %q is not a valid vm action", c.Defaults.VMAction)
	}
	if !models.Action(c.Defaults.CTAction).ValidFor(models.KindContainer) {
		return fmt.Errorf("defaults.ct_action %q is not a valid ct action", c.Defaults.CTAction)
	}

	seen := make(map[plan.OverrideKey]bool)
	for i, ov := range c.Overrides {
		kind := models.Kind(ov.Kind)
		if !kind.Valid() {
			return fmt.Errorf("overrides[%d]: unknown kind %q", i, ov.Kind)
		}
		if !models.Action(ov.Action).ValidFor(kind) {
			return fmt.Errorf("overrides[%d]: action %q is not valid for kind %q", i, ov.Action, ov.Kind)
		}
		key := plan.OverrideKey{Kind: kind, ID: ov.ID}
		if seen[key] {
			return fmt.Errorf("overrides[%d]: duplicate entry for %s %d", i, ov.Kind, ov.ID)
		}
		seen[key] = true
	}

	return nil
}

// PlanDefaults 转换为计划构建器的默认值
func (c *Config) PlanDefaults() plan.Defaults {
	return plan.Defaults{
		VMPriority: c.Defaults.VMPriority,
		CTPriority: c.Defaults.CTPriority,
		VMAction:   models.Action(c.Defaults.VMAction),
		CTAction:   models.Action(c.Defaults.CTAction),
	}
}

// OverrideTable 构建一次性的不可变覆盖表
func (c *Config) OverrideTable() map[plan.OverrideKey]plan.Override {
	table := make(map[plan.OverrideKey]plan.Override, len(c.Overrides))
	for _, ov := range c.Overrides {
		key := plan.OverrideKey{Kind: models.Kind(ov.Kind), ID: ov.ID}
		table[key] = plan.Override{
			Priority: ov.Priority,
			Action:   models.Action(ov.Action),
		}
	}
	return table
}
