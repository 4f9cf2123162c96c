package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hupe1980/agoramesh/config"
	"github.com/hupe1980/agoramesh/logging"
)

// app carries state shared by all subcommands once PersistentPreRunE ran.
type app struct {
	configPath string
	envFile    string
	logLevel   string

	settings *config.Settings
	catalog  *config.Catalog
	logger   *logging.RunLogger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "agora",
		Short:         "Run opinion dynamics experiments with LLM persona agents",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "agora.yaml", "settings file (missing file means defaults)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(a), newResumeCmd(a), newCheckCmd(a), newScenariosCmd(a))
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}

	s, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return err
	}
	s.ApplyEnv(os.LookupEnv)
	if a.logLevel != "" {
		s.Logging.Level = a.logLevel
	}
	a.settings = s

	cat, err := config.Builtin()
	if err != nil {
		return err
	}
	a.catalog = cat

	level, err := logging.ParseLevel(s.Logging.Level)
	if err != nil {
		return err
	}
	a.logger = logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: s.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
	return nil
}
