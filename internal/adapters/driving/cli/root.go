package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/filingwatch/internal/core/ports/driving"
	"github.com/custodia-labs/filingwatch/internal/logger"
)

// Services are the driving ports the commands call.
type Services struct {
	Scheduler     driving.Scheduler
	Subscriptions driving.SubscriptionService
}

// Bootstrap builds the services from the configuration file at path.
// The returned function releases whatever the services hold open.
type Bootstrap func(configPath string) (Services, func() error, error)

// serviceAnnotation marks commands that need the services built.
const serviceAnnotation = "services"

var needsServices = map[string]string{serviceAnnotation: "true"}

var (
	version = "dev"

	configPath string
	logLevel   string
	verbose    bool

	scheduler           driving.Scheduler
	subscriptionService driving.SubscriptionService

	bootstrap Bootstrap
	release   func() error
)

var rootCmd = &cobra.Command{
	Use:   "filingwatch",
	Short: "Ingest insider ownership filings and notify subscribers",
	Long: `Filingwatch discovers ownership filings (forms 3, 4 and 5) in the public
filing archive's daily indexes, stores them with their parsed form data, and
emails each subscriber a digest of the new filings matching their filters.

Configuration is read from the environment, optionally layered over a TOML
file given with --config or FILINGWATCH_CONFIG.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("FILINGWATCH_CONFIG"),
		"path to a TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")
}

// SetServices installs already-built services. Commands skip the
// bootstrap when services are present.
func SetServices(s Services) {
	scheduler = s.Scheduler
	subscriptionService = s.Subscriptions
}

// Execute runs the root command. b is called once, before the first
// command that needs services.
func Execute(v string, b Bootstrap) error {
	if v != "" {
		version = v
	}
	bootstrap = b

	err := rootCmd.Execute()
	if release != nil {
		if closeErr := release(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown: %w", closeErr))
		}
		release = nil
	}
	return err
}

func setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[serviceAnnotation] == "true" && bootstrap != nil && scheduler == nil {
		services, closeFn, err := bootstrap(configPath)
		if err != nil {
			return err
		}
		SetServices(services)
		release = closeFn
	}
	return applyLogFlags()
}

// applyLogFlags lets the command line override the configured level.
func applyLogFlags() error {
	if verbose {
		logger.SetVerbose(true)
		return nil
	}
	if logLevel == "" {
		return nil
	}
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	return nil
}
