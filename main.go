package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/peterbourgon/ff/v3/fftoml"

	wifilog "github.com/shazow/wifilinker/internal/log"
	"github.com/shazow/wifilinker/internal/tui"
	"github.com/shazow/wifilinker/linker"
	"github.com/shazow/wifilinker/wifi"
)

var (
	// Version is the version of the application. It is set at build time.
	Version string = "dev"
)

// app holds the root flags and the lazily built backend and linker.
type app struct {
	config   linker.Config
	logLevel string
	logJSON  bool
	theme    string

	backend wifi.Backend
	linker  *linker.Linker
}

// start builds the logger, backend and linker. Logs go to w.
func (a *app) start(w io.Writer) error {
	level, err := wifilog.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	logger := wifilog.Init(wifilog.NewHandler(w, wifilog.Options{Level: level, JSON: a.logJSON}))

	if a.theme != "" {
		f, err := os.Open(a.theme)
		if err != nil {
			return fmt.Errorf("error loading theme: %w", err)
		}
		defer f.Close()
		if err := tui.LoadTheme(f); err != nil {
			return fmt.Errorf("error loading theme: %w", err)
		}
	}

	a.backend, err = GetBackend(logger)
	if err != nil {
		return err
	}
	a.linker, err = linker.New(a.backend, a.config, logger)
	if err != nil {
		a.close()
		return err
	}
	return nil
}

func (a *app) close() {
	if a.linker != nil {
		a.linker.Shutdown()
	}
	if closer, ok := a.backend.(io.Closer); ok {
		closer.Close()
	}
}

// main is the entry point of the application
func main() {
	a := &app{config: linker.DefaultConfig()}

	rootFlagSet := flag.NewFlagSet("wifilinker", flag.ExitOnError)
	rootFlagSet.String("config", "", "path to a TOML config file (env: WIFILINKER_CONFIG)")
	rootFlagSet.StringVar(&a.theme, "theme", "", "path to theme toml file (env: WIFILINKER_THEME)")
	rootFlagSet.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootFlagSet.BoolVar(&a.logJSON, "log-json", false, "log records as JSON")
	rootFlagSet.DurationVar(&a.config.RadioReadyTimeout, "radio-ready-timeout", a.config.RadioReadyTimeout, "how long to wait for the radio to power up")
	rootFlagSet.DurationVar(&a.config.RadioPollInterval, "radio-poll-interval", a.config.RadioPollInterval, "how often to poll the radio while it powers up")
	rootFlagSet.DurationVar(&a.config.ExistingProfileGrace, "existing-profile-grace", a.config.ExistingProfileGrace, "how long a stored profile gets to associate")
	rootFlagSet.DurationVar(&a.config.ScanSettle, "scan-settle", a.config.ScanSettle, "how long to wait for scan results when none are announced")
	rootFlagSet.IntVar(&a.config.MinPassphraseLength, "min-passphrase-length", a.config.MinPassphraseLength, "shortest passphrase accepted for a new profile")
	version := rootFlagSet.Bool("version", false, "display version")

	options := []ff.Option{
		ff.WithEnvVarPrefix("WIFILINKER"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(fftoml.Parser),
		ff.WithAllowMissingConfigFile(true),
	}

	scanFlagSet := flag.NewFlagSet("scan", flag.ExitOnError)
	scanAll := scanFlagSet.Bool("all", false, "list every access point instead of the strongest per network")
	scanCmd := &ffcli.Command{
		Name:       "scan",
		ShortUsage: "wifilinker scan [-all]",
		ShortHelp:  "Scan for wifi networks",
		FlagSet:    scanFlagSet,
		Exec: func(ctx context.Context, args []string) error {
			if err := a.start(os.Stderr); err != nil {
				return err
			}
			defer a.close()
			return runScan(ctx, os.Stdout, a.linker, *scanAll)
		},
	}

	connectFlagSet := flag.NewFlagSet("connect", flag.ExitOnError)
	connectPassphrase := connectFlagSet.String("passphrase", "", "passphrase for the network (env: WIFILINKER_PASSPHRASE)")
	connectSecurity := connectFlagSet.String("security", "auto", "security type (auto, open, wep, wpa)")
	connectTimeout := connectFlagSet.Duration("timeout", time.Minute, "how long to wait for the outcome")
	connectCmd := &ffcli.Command{
		Name:       "connect",
		ShortUsage: "wifilinker connect [flags] <ssid>",
		ShortHelp:  "Connect to a wifi network and wait for the outcome",
		FlagSet:    connectFlagSet,
		Options:    []ff.Option{ff.WithEnvVarPrefix("WIFILINKER")},
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("connect requires an ssid")
			}
			security, err := wifi.ParseSecurityType(*connectSecurity)
			if err != nil {
				return err
			}
			if err := a.start(os.Stderr); err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(ctx, *connectTimeout)
			defer cancel()
			return runConnect(ctx, os.Stdout, a.linker, args[0], *connectPassphrase, security)
		},
	}

	disconnectCmd := &ffcli.Command{
		Name:       "disconnect",
		ShortUsage: "wifilinker disconnect",
		ShortHelp:  "Forget the last network, drop the link and power the radio down",
		Exec: func(ctx context.Context, args []string) error {
			if err := a.start(os.Stderr); err != nil {
				return err
			}
			defer a.close()
			return runDisconnect(os.Stdout, a.linker)
		},
	}

	profilesCmd := &ffcli.Command{
		Name:       "profiles",
		ShortUsage: "wifilinker profiles",
		ShortHelp:  "List stored network profiles",
		Exec: func(ctx context.Context, args []string) error {
			if err := a.start(os.Stderr); err != nil {
				return err
			}
			defer a.close()
			return runProfiles(os.Stdout, a.linker)
		},
	}

	shareCmd := &ffcli.Command{
		Name:       "share",
		ShortUsage: "wifilinker share <ssid>",
		ShortHelp:  "Show a QR code that joins a stored network",
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("share requires an ssid")
			}
			if err := a.start(os.Stderr); err != nil {
				return err
			}
			defer a.close()
			return runShare(os.Stdout, a.backend, args[0])
		},
	}

	root := &ffcli.Command{
		ShortUsage:  "wifilinker [flags] <subcommand> [args...]",
		FlagSet:     rootFlagSet,
		Options:     options,
		Subcommands: []*ffcli.Command{scanCmd, connectCmd, disconnectCmd, profilesCmd, shareCmd},
		Exec: func(ctx context.Context, args []string) error {
			if *version {
				fmt.Println(Version)
				return nil
			}
			// The terminal belongs to the TUI; records are kept for its log view.
			if err := a.start(io.Discard); err != nil {
				return err
			}
			defer a.close()
			return runTUI(a.linker)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := root.ParseAndRun(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
