/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/valpere/peredoc/internal/config"
	"github.com/valpere/peredoc/internal/logging"
)

var version = "0.3.0"

var (
	cfgFile string
	envFile string

	v      = config.New()
	cfg    *config.Config
	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "peredoc",
	Short: "Structure-preserving document translator",
	Long: `A CLI application that translates documentation files with an LLM while
keeping their structure: code blocks, front matter, markup and notebook
cells come back untouched.

Supported formats: Markdown/MDX, reStructuredText, HTML, Python, Jupyter notebooks

Use "peredoc translate --help" for translation options.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd); err != nil {
			return err
		}
		return initConfig()
	},
}

// configKeys maps command-line flags onto config keys. Only the flags of
// the command being run are bound, so subcommands can share flag names.
var configKeys = map[string]string{
	"log-level":   "log_level",
	"log-format":  "log_format",
	"db":          "db_path",
	"input-root":  "input_directory",
	"output-root": "output_directory",
	"provider":    "provider",
	"model":       "model",
	"source":      "source_lang",
	"target":      "target_lang",
	"glossary":    "glossary_path",
	"max-chunk":   "max_chunk",
	"workers":     "workers",
	"timeout":     "timeout",
	"max-retries": "max_retries",
	"refine":      "refine",
	"validate":    "validate",
	"protect":     "protect",
	"no-cache":    "no_cache",
	"addr":        "serve_addr",
}

func bindFlags(cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := configKeys[f.Name]; ok && err == nil {
			err = v.BindPFlag(key, f)
		}
	})
	return err
}

// initConfig loads .env, the config file and the environment, then builds
// the logger every subcommand uses.
func initConfig() error {
	if _, err := config.LoadEnv(envFile); err != nil {
		return err
	}
	c, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	l, err := logging.New(c.LogFormat, c.LogLevel)
	if err != nil {
		return err
	}
	cfg, logger = c, l
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./peredoc.yaml or ~/.config/peredoc/peredoc.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Dotenv file with provider credentials")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console or json)")
	rootCmd.PersistentFlags().String("db", "./data/peredoc.db", "Database path for translation memory, glossary and batch log")
}
