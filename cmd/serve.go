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
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/peredoc/internal/httpapi"
	"github.com/valpere/peredoc/internal/orchestrator"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the translation pipeline over HTTP",
	Long: `Start an HTTP server exposing the same pipeline as "translate":

  GET  /healthz
  GET  /v1/formats
  POST /v1/translate       {"path": "guide.md", "content": "..."}
  GET  /v1/batches/:id`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		host, portStr, err := net.SplitHostPort(cfg.ServeAddr)
		if err != nil {
			return fmt.Errorf("invalid listen address %q: %w", cfg.ServeAddr, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid listen port %q: %w", portStr, err)
		}
		if host == "" {
			host = "0.0.0.0"
		}

		svc, err := buildService(cfg)
		if err != nil {
			return err
		}
		db, err := openStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		gloss, err := loadGlossary(ctx, cfg, db)
		if err != nil {
			return err
		}

		opts := orchestrator.Options{
			SourceLang:    cfg.SourceLang,
			TargetLang:    cfg.TargetLang,
			MaxChunk:      cfg.MaxChunk,
			Glossary:      gloss,
			ServiceConfig: serviceConfig(cfg),
			CacheScope:    cacheScope(cfg, svc),
		}
		if !cfg.NoCache {
			opts.Cache = db
		}
		pipeline := orchestrator.New(svc, opts, logger)

		server := httpapi.NewServer(pipeline, db, logger, httpapi.Options{Host: host, Port: port})
		return server.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().StringP("provider", "p", "gemini", "Translation provider")
	serveCmd.Flags().StringP("target", "t", "ar", "Target language code")
}
