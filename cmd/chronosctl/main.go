package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ryanbastic/go-chronos/internal/client"
	"github.com/ryanbastic/go-chronos/internal/config"
)

var errNotLoggedIn = errors.New("not logged in, run chronosctl login first")

// app carries what every command needs once the config is loaded.
type app struct {
	out        io.Writer
	configPath string
	store      *config.ClientStore
	cfg        config.ClientConfig
	api        *client.Client
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "chronosctl",
		Short: "Chronos time-tracking matrices from the terminal",
		Long: `chronosctl talks to a Chronos API server.

Sign in once with an ID token, then create matrices, manage their
categories, paint cells, and export grids.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/chronos/config.yaml)")

	root.AddCommand(
		a.configCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.profileCmd(),
		a.matrixCmd(),
		a.categoryCmd(),
		a.paintCmd(),
		a.statsCmd(),
		a.exportCmd(),
		a.gridCmd(),
	)
	return root
}

func (a *app) load(_ *cobra.Command, _ []string) error {
	path := a.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultClientPath(); err != nil {
			return err
		}
	}
	store, err := config.OpenClient(path)
	if err != nil {
		return err
	}
	cfg, err := store.Config()
	if err != nil {
		return err
	}
	a.store = store
	a.cfg = cfg
	a.api = client.New(cfg.APIURL,
		client.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		client.WithToken(cfg.Token),
		client.WithRetries(cfg.Retries, 200*time.Millisecond),
	)
	return nil
}

// authed guards commands that need a stored session. An expired session is
// forgotten so the next run asks for a login.
func (a *app) authed(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if a.cfg.Token == "" {
			return errNotLoggedIn
		}
		err := run(cmd, args)
		if client.IsKind(err, client.KindUnauthorized) {
			if clearErr := a.store.SetToken(""); clearErr != nil {
				return errors.Join(err, clearErr)
			}
			return fmt.Errorf("session expired, run chronosctl login: %w", err)
		}
		return err
	}
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the CLI configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session := "none"
			if a.cfg.Token != "" {
				session = "stored"
			}
			fmt.Fprintf(a.out, "api_url: %s\ntimeout: %s\nretries: %d\nsession: %s\n", a.cfg.APIURL, a.cfg.Timeout, a.cfg.Retries, session)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-url <url>",
		Short: "Point the CLI at another API server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.SetAPIURL(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "api url set to %s\n", args[0])
			return nil
		},
	})
	return cmd
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q", kind, raw)
	}
	return id, nil
}
