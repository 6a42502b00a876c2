package main

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"runtime"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run() error {
	var args cliArgs
	cliCtx := kong.Parse(
		&args,
		kong.Name("tilecrop"),
		kong.UsageOnError(),
	)
	if err := cliCtx.Run(); err != nil {
		return err
	}

	return nil
}

type serveCmd struct {
	OutputDir string `arg:"" help:"Directory to write finalized tiles into" default:"output"`
	Config    string `help:"Path to a YAML config file" type:"existingfile" optional:""`
	Open      bool   `help:"Open the browser automatically when the server starts" default:"true"`
	Once      bool   `help:"Exit after the order is finalized" default:"true"`
	Verbose   bool   `help:"Enable verbose logging" default:"false"`
}

func (cmd *serveCmd) Run() error {
	level := zerolog.InfoLevel
	if cmd.Verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.NewConsoleWriter()).Level(level)
	zerolog.DefaultContextLogger = &log.Logger

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	ctx = log.Logger.WithContext(ctx)

	cfg, err := LoadConfig(cmd.Config)
	if err != nil {
		return err
	}

	session := NewSession(cfg, NewGGRenderer())

	app := NewWebApp(WebConfig{
		Session: session,
		Writer:  &TileWriter{OutputDir: cmd.OutputDir},
		Editor:  cfg,
		OnBeforeShutdown: func() {
			log.Ctx(ctx).Info().Msg("Shutting down editor...")
		},
		OnReady: func(addr string) {
			log.Ctx(ctx).Info().Msgf("Editor started at %s", addr)
			if cmd.Open {
				if err := openBrowser(addr); err != nil {
					log.Error().Err(err).Msg("Failed to open browser")
				}
			}
		},
		OnFinalized: func(tiles []SavedTile) {
			log.Ctx(ctx).Info().Int("tiles", len(tiles)).Msg("Order finalized")
			if cmd.Once {
				cancel()
			}
		},
	})

	if err := app.Run(ctx); err != nil {
		return err
	}

	return nil
}

type cliArgs struct {
	Serve serveCmd `cmd:"" default:"withargs"`
}

func openBrowser(addr string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", addr).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", addr).Start()
	default:
		return exec.Command("xdg-open", addr).Start()
	}
}
