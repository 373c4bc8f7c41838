package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/appetiteclub/frontdesk/pkg/backend"
)

const appName = "bookctl"

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	backendURL string
	token      string
	timeout    time.Duration
	logLevel   string
}

func (g *globals) logger() apt.Logger {
	return apt.NewLogger(g.logLevel)
}

func (g *globals) client() *backend.Client {
	opts := []backend.Option{
		backend.WithTimeout(g.timeout),
		backend.WithLogger(g.logger()),
	}
	if g.token != "" {
		opts = append(opts, backend.WithTokenSource(backend.StaticToken(g.token)))
	}
	return backend.NewClient(g.backendURL, opts...)
}

func NewRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           appName,
		Short:         "Book tables and manage reservations against the reservations backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.backendURL, "backend-url", envOrDef("FRONTDESK_BACKEND_URL", "http://localhost:5000"), "reservations backend base URL")
	flags.StringVar(&g.token, "token", os.Getenv("FRONTDESK_TOKEN"), "bearer token from 'bookctl login'")
	flags.DurationVar(&g.timeout, "timeout", backend.DefaultTimeout, "per request timeout")
	flags.StringVar(&g.logLevel, "log-level", envOrDef("FRONTDESK_LOG_LEVEL", "error"), "log level: debug, info, error")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newLoginCmd(g))
	root.AddCommand(newRegisterCmd(g))
	root.AddCommand(newAvailabilityCmd(g))
	root.AddCommand(newBookCmd(g))
	root.AddCommand(newReservationsCmd(g))
	root.AddCommand(newTablesCmd(g))
	root.AddCommand(newWatchCmd(g))
	root.AddCommand(newOutcomesCmd(g))

	return root
}

func Execute() {
	// Flag defaults read FRONTDESK_* variables, so a local .env must load first.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOrDef(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}
