package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ksred/studio-payroll/internal/apiclient"
	"github.com/ksred/studio-payroll/internal/config"
	"github.com/ksred/studio-payroll/internal/session"
)

// init configures logging for an interactive tool: warnings only unless
// DEBUG is set, always written to stderr
func init() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	zlog.Logger = zerolog.New(output).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// app carries what every command needs
type app struct {
	cfg    *config.Config
	store  session.FileStore
	client *apiclient.Client
}

func newApp() (*app, error) {
	cfg := config.Load()

	path := cfg.TokenFile
	if path == "" {
		path = session.DefaultTokenPath()
	}
	store := session.FileStore{Path: path}

	sess, err := store.Attach()
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		store:  store,
		client: apiclient.New(cfg.APIURL, sess, apiclient.WithTimeout(cfg.HTTPTimeout)),
	}, nil
}

// requireLogin fails fast when no token is stored
func (a *app) requireLogin() error {
	if !a.client.Session().Authenticated() {
		return errors.New("not logged in, run: studioctl login")
	}
	return nil
}

// explain turns an expired session into an actionable message
func explain(err error) error {
	if errors.Is(err, apiclient.ErrAuthExpired) {
		return fmt.Errorf("%w, run: studioctl login", err)
	}
	return err
}

func main() {
	a, err := newApp()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to initialize")
	}

	root := &cobra.Command{
		Use:           "studioctl",
		Short:         "Manage studio instructors, bookings and monthly payroll",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		a.loginCmd(),
		a.signupCmd(),
		a.logoutCmd(),
		a.settlementsCmd(),
		a.workspacesCmd(),
		a.instructorsCmd(),
		a.membersCmd(),
		a.calendarCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", explain(err))
		os.Exit(1)
	}
}
