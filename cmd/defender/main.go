package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zapricaa/ai-defender-bot/internal/backup"
	"github.com/zapricaa/ai-defender-bot/internal/bot"
	"github.com/zapricaa/ai-defender-bot/internal/classifier"
	"github.com/zapricaa/ai-defender-bot/internal/commands"
	"github.com/zapricaa/ai-defender-bot/internal/config"
	"github.com/zapricaa/ai-defender-bot/internal/correlator"
	"github.com/zapricaa/ai-defender-bot/internal/database"
	"github.com/zapricaa/ai-defender-bot/internal/detectors"
	"github.com/zapricaa/ai-defender-bot/internal/engine"
	"github.com/zapricaa/ai-defender-bot/internal/lockdown"
	"github.com/zapricaa/ai-defender-bot/internal/logging"
	"github.com/zapricaa/ai-defender-bot/internal/metrics"
	"github.com/zapricaa/ai-defender-bot/internal/models"
	"github.com/zapricaa/ai-defender-bot/internal/platform"
	"github.com/zapricaa/ai-defender-bot/internal/response"
	"github.com/zapricaa/ai-defender-bot/internal/state"
	"github.com/zapricaa/ai-defender-bot/internal/watchdog"
)

const executorWorkers = 4

func main() {
	configPath := flag.String("config", "config.yml", "path to configuration file")
	flag.Parse()

	loader, err := config.NewLoader(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	if err := logging.InitGlobalLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "logging init failed: %v\n", err)
		os.Exit(1)
	}
	logging.Info("Starting protection engine")

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logging.Critical("Database init failed: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	// The session is created before anything that needs the platform, so
	// every component acts through one shared connection. Nothing touches
	// the platform until Connect succeeds.
	session, err := bot.New(cfg.Bot.Token)
	if err != nil {
		logging.Critical("Session init failed: %v", err)
		os.Exit(1)
	}
	client := platform.NewDiscordClient(session.Discord())

	joins := state.NewJoinTracker()
	suspects := state.NewSuspectSet()
	damage := make(chan models.DamageReport, 16)

	auditCorrelator := correlator.New(client)
	machine := lockdown.NewMachine(client, joins, cfg.AntiRaid.VerificationLevel)
	defer machine.Close()

	spam := detectors.NewSpamDetector(cfg.AntiSpam)
	nuke := detectors.NewNukeDetector(cfg.AntiNuke, auditCorrelator)
	raid := detectors.NewRaidDetector(cfg.AntiRaid, joins, suspects, machine)
	monitor := classifier.NewMonitor(classifier.NoopScorer{}, db, cfg.Detector.Threshold)
	store := backup.NewStore(client, db)

	executor := response.NewExecutor(client, db, "", damage, executorWorkers)
	defer executor.Close()

	eng := engine.New(spam, nuke, raid, monitor, executor, store, damage, cfg.Backup.Interval())
	session.AttachEngine(eng)

	// The watchdog exists before the gateway opens so the very first
	// payload already counts as a heartbeat.
	dog := watchdog.New(30 * time.Second)
	dog.RegisterComponent("gateway", 5*time.Minute)
	session.OnActivity(func() { dog.Heartbeat("gateway") })

	if err := session.Connect(); err != nil {
		logging.Critical("Gateway connect failed: %v", err)
		os.Exit(1)
	}
	defer session.Close()
	executor.SetSelfID(session.SelfID())

	cmdHandler := commands.NewHandler(machine, store, db, dog)
	if err := cmdHandler.Register(session.Discord()); err != nil {
		logging.Warn("Command registration failed: %v", err)
	}

	eng.Start()
	defer eng.Close()

	loader.OnChange(func(next *config.Config) {
		eng.Reconfigure(next)
		machine.Reconfigure(next.AntiRaid.VerificationLevel)
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		logging.Warn("Config hot reload unavailable: %v", err)
	} else {
		defer stopWatch()
	}

	stopMetrics := metrics.Serve(cfg.Metrics.ListenAddr)
	defer stopMetrics()

	dog.Start()
	defer dog.Stop()

	logging.Info("All components started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logging.Info("Received %v, shutting down", s)
	case msg := <-dog.Fatal():
		logging.Critical("Watchdog escalation: %s", msg)
	}
}
