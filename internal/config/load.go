package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Loader reads the YAML config file, applies environment overrides, and can
// watch the file for live threshold updates. Wiring-level settings (token,
// database path, listen addresses) are fixed at startup and never reloaded.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *Config
	onChange []func(*Config)
}

func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch hot-reloads thresholds on file changes. A file that fails to parse
// or validate is ignored and the previous config stays active.
func (l *Loader) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(l.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					cfg, err := l.load()
					if err != nil {
						continue
					}
					l.apply(cfg)
				}
			case <-w.Errors:
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

func (l *Loader) apply(cfg *Config) {
	l.mu.Lock()
	// Reloads only adjust detection thresholds; keep startup wiring intact.
	cfg.Bot = l.current.Bot
	cfg.Database = l.current.Database
	cfg.Metrics = l.current.Metrics
	cfg.Log = l.current.Log
	l.current = cfg
	callbacks := make([]func(*Config), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}

func (l *Loader) load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", l.path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", l.path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		cfg.Bot.Token = v
	}
	if v := os.Getenv("COMMAND_PREFIX"); v != "" {
		cfg.Bot.Prefix = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	envInt("ANTI_SPAM_THRESHOLD", &cfg.AntiSpam.MessageThreshold)
	envInt("ANTI_SPAM_WINDOW", &cfg.AntiSpam.TimeWindowSec)
	envInt("ANTI_SPAM_DURATION", &cfg.AntiSpam.DurationSec)
	if v := os.Getenv("ANTI_SPAM_PUNISHMENT"); v != "" {
		cfg.AntiSpam.Punishment = v
	}
	envInt("MAX_CHANNEL_DELETES", &cfg.AntiNuke.MaxChannelDeletes)
	envInt("MAX_ROLE_DELETES", &cfg.AntiNuke.MaxRoleDeletes)
	envInt("BAN_THRESHOLD", &cfg.AntiNuke.BanThreshold)
	envInt("JOIN_THRESHOLD", &cfg.AntiRaid.JoinThreshold)
	envInt("JOIN_WINDOW", &cfg.AntiRaid.TimeWindowSec)
	envInt("VERIFICATION_LEVEL", &cfg.AntiRaid.VerificationLevel)
	envInt("BACKUP_INTERVAL", &cfg.Backup.IntervalSec)
	if v := os.Getenv("AI_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Detector.Threshold = f
		}
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
