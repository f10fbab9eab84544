// Package cmd implements the chainstate command line application: the
// narrow CLI surface that wraps the state-transition engine for local use.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chainforge/chainstate/foundation/logger"
)

// config holds every value this CLI accepts from the environment or the
// command line, loaded once at startup.
type config struct {
	conf.Version
	DataRoot    string `conf:"default:zblock/data"`
	GenesisPath string `conf:"default:zblock/genesis.json"`
}

var (
	cfg config
	log *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "chainstate",
	Short: "Validate blocks and transition state for the chainstate engine.",
}

// Execute parses configuration, wires the application logger, and runs
// whichever subcommand was requested.
func Execute(build string) {
	cfg.Version = conf.Version{
		Build: build,
		Desc:  "chainstate state-transition engine",
	}

	help, err := conf.Parse("CHAINSTATE", &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return
		}
		fmt.Println(err)
		os.Exit(1)
	}

	l, err := logger.New("CHAINSTATE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer l.Sync()
	log = l

	log.Infow("startup", "version", build, "dataRoot", cfg.DataRoot, "genesisPath", cfg.GenesisPath, "traceid", uuid.NewString())
	defer log.Infow("shutdown complete")

	if err := rootCmd.Execute(); err != nil {
		log.Errorw("shutdown", "ERROR", err)
		os.Exit(1)
	}
}
