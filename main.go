package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/yhkl-dev/SonicCLI/backend"
	"github.com/yhkl-dev/SonicCLI/cache"
	"github.com/yhkl-dev/SonicCLI/config"
	"github.com/yhkl-dev/SonicCLI/history"
	"github.com/yhkl-dev/SonicCLI/library"
	"github.com/yhkl-dev/SonicCLI/logging"
	"github.com/yhkl-dev/SonicCLI/player"
	"github.com/yhkl-dev/SonicCLI/playback"
	"github.com/yhkl-dev/SonicCLI/query"
	"github.com/yhkl-dev/SonicCLI/realtime"
	"github.com/yhkl-dev/SonicCLI/ui"
)

var (
	_ playback.Transport = (*player.MPVPlayer)(nil)
	_ playback.Transport = (*player.BeepPlayer)(nil)
	_ player.Player      = (*player.MPVPlayer)(nil)
	_ player.Player      = (*player.BeepPlayer)(nil)
	_ query.Channel      = (*realtime.Manager)(nil)
	_ query.Warmer       = (*playback.Controller)(nil)
	_ playback.Playlist  = (*query.Coordinator)(nil)
)

func main() {
	flags := pflag.NewFlagSet("soniccli", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "path to config.toml")
	flags.StringP("server", "s", "", "SonicStream backend url")
	flags.StringP("user", "u", "", "user id for history and collections")
	flags.String("log-file", "", "log file path")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("player", "", "playback backend (mpv or beep)")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "soniccli: %v\n", err)
		os.Exit(1)
	}

	logCloser, err := logging.Setup(logging.Options{
		File:       cfg.Log.File,
		Level:      cfg.Log.Level,
		Debug:      cfg.Log.Debug,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "soniccli: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()

	if err = multierr.Append(err, logCloser.Close()); err != nil {
		fmt.Fprintf(os.Stderr, "soniccli: %v\n", err)
		os.Exit(1)
	}
}

func run(parent context.Context, cfg *config.Config) (err error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	client := backend.Init(cfg.Server.URL, cfg.Server.UserID, cfg.Player.GetHTTPTimeout())
	lib := library.NewBackendLibrary(client)
	resultCache := cache.New()

	recorder, err := history.New(history.Options{
		Driver:       cfg.History.Driver,
		UserID:       cfg.Server.UserID,
		Timeout:      cfg.Player.GetHTTPTimeout(),
		FirebaseURL:  cfg.History.FirebaseURL,
		FirebaseAuth: cfg.History.FirebaseAuth,
		RedisURL:     cfg.History.RedisURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create history recorder: %w", err)
	}
	defer func() {
		err = multierr.Append(err, recorder.Close())
	}()

	plr, err := newPlayer(ctx, cfg)
	if err != nil {
		return err
	}
	defer plr.Cleanup()

	coord := query.NewCoordinator(ctx, lib, nil, resultCache, nil, query.Options{
		Debounce:       cfg.Search.GetDebounce(),
		MinQueryLength: cfg.Search.MinQueryLength,
	})
	defer coord.Close()

	ctrl := playback.NewController(lib, resultCache, plr, recorder, coord, playback.Options{
		WarmupRate:     rate.Limit(cfg.Player.WarmupPerSecond),
		WarmupBurst:    cfg.Player.WarmupBurst,
		HistoryTimeout: cfg.Player.GetHTTPTimeout(),
	})
	defer ctrl.Wait()
	coord.SetWarmer(ctrl)

	var tasks conc.WaitGroup
	defer tasks.Wait()
	defer cancel()

	var channel query.Channel
	if cfg.Server.Realtime {
		manager := realtime.NewManager(realtime.Options{
			URL:            client.WebSocketURL(),
			UserID:         cfg.Server.UserID,
			DeviceID:       uuid.NewString(),
			ReconnectDelay: cfg.Server.GetReconnectDelay(),
			Heartbeat:      cfg.Server.GetHeartbeat(),
		}, coord.HandleMessage)
		coord.SetChannel(manager)
		channel = manager
		tasks.Go(func() { manager.Run(ctx) })
	}

	app := ui.NewApp(ctx, cfg, lib, plr, coord, ctrl, channel)
	tasks.Go(func() {
		<-ctx.Done()
		app.Stop()
	})

	log.Info().
		Str("server", cfg.Server.URL).
		Str("player", cfg.Player.Backend).
		Bool("realtime", cfg.Server.Realtime).
		Msg("starting music player")
	if err := app.Run(); err != nil {
		return fmt.Errorf("application error: %w", err)
	}

	log.Info().Msg("shutting down")
	return nil
}

func newPlayer(ctx context.Context, cfg *config.Config) (player.Player, error) {
	switch cfg.Player.Backend {
	case "beep":
		p, err := player.NewBeepPlayer(cfg.Player.SampleRate, cfg.Player.GetHTTPTimeout())
		if err != nil {
			return nil, fmt.Errorf("failed to start beep player: %w", err)
		}
		return p, nil
	default:
		p, err := player.NewMPVPlayer(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to start mpv player: %w", err)
		}
		return p, nil
	}
}
