// Package main provides the player entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/osa030/walkbox/internal/app/audio"
	"github.com/osa030/walkbox/internal/app/control"
	"github.com/osa030/walkbox/internal/app/engine"
	"github.com/osa030/walkbox/internal/app/input"
	"github.com/osa030/walkbox/internal/app/notify"
	"github.com/osa030/walkbox/internal/domain/catalog"
	"github.com/osa030/walkbox/internal/infra/buttons"
	"github.com/osa030/walkbox/internal/infra/config"
	"github.com/osa030/walkbox/internal/infra/logger"
	"github.com/osa030/walkbox/internal/infra/sink"
)

var (
	app        = kingpin.New("walkbox", "walkbox portable audio player")
	configPath = app.Flag("config", "Path to config file").Default("config/player.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// scan command
	scanCmd = app.Command("scan", "Scan the storage for playable tracks and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the player (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger from flags first so config problems get logged
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// Re-init logger from config unless flags pinned it
	if !*verbose && *logfile == "" {
		if err := logger.Init(logger.Config{Output: cfg.Log.Output, Level: cfg.Log.Level}); err != nil {
			zlog.Fatal().Msgf("Failed to initialize logger: %v", err)
		}
	}

	// Handle scan command
	if command == scanCmd.FullCommand() {
		if err := printTracks(cfg); err != nil {
			zlog.Fatal().Msgf("Scan failed: %v", err)
		}
		return
	}

	// Run player (defer ensures cleanup runs even on error return)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		os.Exit(1)
	}
}

// run executes the main player logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	fsys := afero.NewOsFs()

	notifier := notify.NewManager()
	defer notifier.Close()

	// Every notification also lands in the log
	logID, logCh := notifier.Subscribe(32)
	defer notifier.Unsubscribe(logID)
	go func() {
		for n := range logCh {
			zlog.Debug().Msgf("Notification: seq=%d kind=%s track=%s", n.Seq, n.Kind, n.TrackName)
		}
	}()

	// Enumerate the storage. Failure here is fatal: without a catalog
	// there is nothing to play.
	cat, err := catalog.Build(fsys, cfg.Storage.Root, cfg.Storage.Extensions)
	if err != nil {
		notifier.Publish(notify.Notification{Kind: notify.StorageFatal, Detail: err.Error()})
		return errors.Wrap(err, "storage enumeration failed")
	}
	if cat.IsEmpty() {
		zlog.Warn().Msgf("No playable tracks found: root=%s", cfg.Storage.Root)
	} else {
		zlog.Info().Msgf("Catalog ready: tracks=%d total_size=%d", cat.Len(), cat.TotalSize())
	}

	board := control.NewStatusBoard()

	// Create sink
	snk, err := sink.New(cfg.Sink, sink.Deps{
		Board:    board,
		Notifier: notifier,
		Catalog:  cat,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create sink")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := snk.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start sink")
	}
	defer snk.Close()

	// Create audio backend
	backend, err := audio.New(cfg.Backend, fsys, snk)
	if err != nil {
		return errors.Wrap(err, "failed to create audio backend")
	}
	defer backend.Close()

	machine := control.NewMachine(cat, backend, snk.IsConnected, notifier)

	// The transport callback only enqueues; the loop drains
	remote := input.NewRemote(0)
	snk.SetCommandHandler(remote.Offer)

	// Local buttons
	btns := input.NewButtons(cfg.Buttons,
		openLine(cfg.Buttons.NextDevice, cfg.Buttons.NextKey),
		openLine(cfg.Buttons.PrevDevice, cfg.Buttons.PrevKey))
	defer btns.Close()

	eng := engine.New(engine.Config{
		Machine:   machine,
		Backend:   backend,
		Buttons:   btns,
		Remote:    remote,
		Board:     board,
		Catalog:   cat,
		Connected: snk.IsConnected,
		Interval:  cfg.Player.TickInterval(),
	})

	engineErrCh := make(chan error, 1)
	go func() {
		engineErrCh <- eng.Run(ctx)
	}()

	// Wait for shutdown signal or control loop exit
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
		cancel()
		<-engineErrCh
	case err := <-engineErrCh:
		if err != nil {
			return errors.Wrap(err, "control loop failed")
		}
	}

	zlog.Info().Msg("Player stopped")
	return nil
}

// openLine opens one configured button device. A missing device is not
// fatal: the player runs without that button.
func openLine(device string, keyCode uint16) input.LineReader {
	if device == "" {
		return nil
	}

	r, err := buttons.Open(device, keyCode)
	if err != nil {
		zlog.Warn().Msgf("Button device unavailable, running without it: device=%s err=%v", device, err)
		return buttons.Stub{}
	}
	zlog.Info().Msgf("Button device ready: device=%s key=%d", device, keyCode)
	return r
}

// printTracks enumerates the storage and prints the catalog.
func printTracks(cfg *config.Config) error {
	cat, err := catalog.Build(afero.NewOsFs(), cfg.Storage.Root, cfg.Storage.Extensions)
	if err != nil {
		return err
	}

	fmt.Printf("%d track(s) under %s\n", cat.Len(), cfg.Storage.Root)
	for i := 0; i < cat.Len(); i++ {
		tr := cat.At(i)
		if tr.HasMetadata() {
			fmt.Printf("  %3d  %-40s %s - %s\n", i, tr.Name, tr.Artist, tr.Title)
		} else {
			fmt.Printf("  %3d  %s\n", i, tr.Name)
		}
	}
	return nil
}
