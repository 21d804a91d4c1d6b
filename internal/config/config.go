package config

import (
	"fmt"
	"time"
)

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	AntiSpam AntiSpamConfig `yaml:"anti_spam"`
	AntiNuke AntiNukeConfig `yaml:"anti_nuke"`
	AntiRaid AntiRaidConfig `yaml:"anti_raid"`
	Detector DetectorConfig `yaml:"detector"`
	Backup   BackupConfig   `yaml:"backup"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

type BotConfig struct {
	Token  string `yaml:"token"`
	Prefix string `yaml:"prefix"`
}

type AntiSpamConfig struct {
	MessageThreshold int    `yaml:"message_threshold"`
	TimeWindowSec    int    `yaml:"time_window"`
	MentionThreshold int    `yaml:"mention_threshold"`
	Punishment       string `yaml:"punishment"`
	DurationSec      int    `yaml:"duration"`
}

type AntiNukeConfig struct {
	MaxChannelDeletes int `yaml:"max_channel_deletes"`
	MaxRoleDeletes    int `yaml:"max_role_deletes"`
	BanThreshold      int `yaml:"ban_threshold"`
}

type AntiRaidConfig struct {
	JoinThreshold     int    `yaml:"join_threshold"`
	TimeWindowSec     int    `yaml:"time_window"`
	VerificationLevel int    `yaml:"verification_level"`
	Action            string `yaml:"action"`
}

type DetectorConfig struct {
	Threshold float64 `yaml:"threshold"`
}

type BackupConfig struct {
	IntervalSec int `yaml:"interval"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func Default() *Config {
	return &Config{
		Bot: BotConfig{Prefix: "!"},
		AntiSpam: AntiSpamConfig{
			MessageThreshold: 5,
			TimeWindowSec:    10,
			MentionThreshold: 5,
			Punishment:       "mute",
			DurationSec:      300,
		},
		AntiNuke: AntiNukeConfig{
			MaxChannelDeletes: 3,
			MaxRoleDeletes:    3,
			BanThreshold:      5,
		},
		AntiRaid: AntiRaidConfig{
			JoinThreshold:     10,
			TimeWindowSec:     60,
			VerificationLevel: 1,
			Action:            "kick",
		},
		Detector: DetectorConfig{Threshold: 0.85},
		Backup:   BackupConfig{IntervalSec: 3600},
		Database: DatabaseConfig{Path: "defender.db"},
		Metrics:  MetricsConfig{ListenAddr: ":9109"},
		Log:      LogConfig{Level: "info", File: "defender.log"},
	}
}

// Validate rejects malformed settings. Called once at startup; a config
// that fails here is fatal, a config that reloads badly later is ignored.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("bot token is required")
	}
	if c.AntiSpam.MessageThreshold < 1 {
		return fmt.Errorf("anti_spam.message_threshold must be >= 1, got %d", c.AntiSpam.MessageThreshold)
	}
	if c.AntiSpam.TimeWindowSec < 1 {
		return fmt.Errorf("anti_spam.time_window must be >= 1, got %d", c.AntiSpam.TimeWindowSec)
	}
	switch c.AntiSpam.Punishment {
	case "mute", "kick", "ban":
	default:
		return fmt.Errorf("anti_spam.punishment must be mute, kick or ban, got %q", c.AntiSpam.Punishment)
	}
	if c.AntiNuke.MaxChannelDeletes < 1 || c.AntiNuke.MaxRoleDeletes < 1 {
		return fmt.Errorf("anti_nuke delete thresholds must be >= 1")
	}
	if c.AntiRaid.JoinThreshold < 2 {
		return fmt.Errorf("anti_raid.join_threshold must be >= 2, got %d", c.AntiRaid.JoinThreshold)
	}
	if c.AntiRaid.TimeWindowSec < 1 {
		return fmt.Errorf("anti_raid.time_window must be >= 1, got %d", c.AntiRaid.TimeWindowSec)
	}
	if c.AntiRaid.VerificationLevel < 0 || c.AntiRaid.VerificationLevel > 4 {
		return fmt.Errorf("anti_raid.verification_level must be 0-4, got %d", c.AntiRaid.VerificationLevel)
	}
	switch c.AntiRaid.Action {
	case "kick", "ban", "timeout", "warn":
	default:
		return fmt.Errorf("anti_raid.action must be kick, ban, timeout or warn, got %q", c.AntiRaid.Action)
	}
	if c.Detector.Threshold < 0 || c.Detector.Threshold > 1 {
		return fmt.Errorf("detector.threshold must be in [0,1], got %f", c.Detector.Threshold)
	}
	if c.Backup.IntervalSec < 60 {
		return fmt.Errorf("backup.interval must be >= 60 seconds, got %d", c.Backup.IntervalSec)
	}
	return nil
}

func (c *AntiSpamConfig) TimeWindow() time.Duration { return time.Duration(c.TimeWindowSec) * time.Second }
func (c *AntiSpamConfig) Duration() time.Duration   { return time.Duration(c.DurationSec) * time.Second }
func (c *AntiRaidConfig) TimeWindow() time.Duration { return time.Duration(c.TimeWindowSec) * time.Second }
func (c *BackupConfig) Interval() time.Duration     { return time.Duration(c.IntervalSec) * time.Second }
