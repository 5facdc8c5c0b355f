package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "nittei-gerorin",
	Short: "Pick candidate meeting times from your Google Calendar",
	Long: `日程げろりん serves a weekly calendar on a local address. Log in with Google,
click events or free slots to collect candidate meeting times, and copy the
list to the clipboard as plain text.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the calendar page on the configured listen address",
	RunE:  runServe,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and reachability of the providers",
	RunE:  runCheck,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", configFileName, "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(serveCmd, checkCmd)
}

func main() {
	loadDotEnv()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (*Config, *zap.Logger, error) {
	config, err := readConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading config file: %w", err)
	}
	if verbose {
		config.VerbosityLevel = 2
	}
	log, err := newLogger(config.VerbosityLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating logger: %w", err)
	}
	return config, log, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	config, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", config.Listen, err)
	}

	overlays, err := NewCalendarFactory(config).Overlays()
	if err != nil {
		return err
	}

	provider := NewGoogleProvider(config, "http://"+ln.Addr().String()+callbackPath, log)
	go provider.Load(ctx)

	calendar := NewGoogleCalendar(config, log)
	controller := NewController(ControllerOptions{
		Session:   NewSession(provider, calendar, calendar, log),
		Selection: NewSelection(config.Location()),
		Overlays:  asCalendarProviders(overlays),
		Clipboard: systemClipboard{},
		Config:    config,
		Logger:    log,
	})

	fmt.Printf("📅 日程げろりん: http://%s/\n", ln.Addr())
	return NewServer(controller, log).Serve(ctx, ln)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	config, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*config.RequestTimeout.Duration+5*time.Second)
	defer cancel()

	failed := false
	provider := NewGoogleProvider(config, "http://"+config.Listen+callbackPath, log)
	if err := provider.Load(ctx); err != nil {
		fmt.Printf("❌ Google: %v\n", err)
		failed = true
	} else {
		fmt.Println("✅ Google: client configured, endpoints resolved")
	}

	factory := NewCalendarFactory(config)
	overlays, err := factory.Overlays()
	if err != nil {
		return err
	}
	for _, p := range overlays {
		if err := factory.ValidateCalendarAccess(ctx, p); err != nil {
			fmt.Printf("❌ CalDAV %s: %v\n", p.Name(), err)
			failed = true
			continue
		}
		fmt.Printf("✅ CalDAV %s: calendar found\n", p.Name())
	}

	if failed {
		return fmt.Errorf("configuration check failed")
	}
	return nil
}
