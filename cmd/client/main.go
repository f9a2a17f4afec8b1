// Command client is an interactive terminal front end for the student
// records API. It reads STUDENTS_API_URL and CLIENT_TIMEOUT from the
// environment or a .env file.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/student-records/internal/client"
	"github.com/tbourn/student-records/internal/config"
	"github.com/tbourn/student-records/internal/console"
	"github.com/tbourn/student-records/internal/sysutil"
)

func main() {
	_ = godotenv.Load()
	sysutil.SetupLogging(os.Stderr, "warn", true)

	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid client configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	c := console.New(
		client.New(cfg.APIURL, cfg.Timeout),
		os.Stdin,
		colorable.NewColorableStdout(),
		console.Options{Clear: tty, Color: tty},
	)
	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("console stopped")
		os.Exit(1)
	}
}
