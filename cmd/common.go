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
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/valpere/peredoc/internal/config"
	"github.com/valpere/peredoc/internal/glossary"
	"github.com/valpere/peredoc/internal/store"
	"github.com/valpere/peredoc/internal/translator"
)

// openStore opens the SQLite database, creating its directory first.
func openStore(path string) (*store.Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// buildService constructs the configured provider's translation service.
func buildService(c *config.Config) (translator.TranslationService, error) {
	return translator.NewService(translator.Options{
		Provider:    c.Provider,
		Model:       c.Model,
		APIKey:      c.APIKey(),
		BaseURL:     c.BaseURL(),
		Credentials: c.Credentials.GoogleCredentials,
		Temperature: c.Temperature,
	}, translator.LLMOptions{
		MaxAttempts: c.MaxRetries,
		Timeout:     c.Timeout,
		Protect:     c.Protect,
		Validate:    c.ValidateLang,
		Refine:      c.Refine,
		Logger:      logger,
	})
}

func serviceConfig(c *config.Config) translator.ServiceConfig {
	return translator.ServiceConfig{
		Credentials: c.Credentials.GoogleCredentials,
		APIKey:      c.APIKey(),
		Model:       c.Model,
		BaseURL:     c.BaseURL(),
		Timeout:     c.Timeout,
	}
}

// cacheScope keys translation memory by provider and model so switching
// either never reuses another model's output.
func cacheScope(c *config.Config, svc translator.TranslationService) string {
	if c.Model == "" {
		return svc.Name()
	}
	return svc.Name() + "/" + c.Model
}

// loadGlossary merges the stored terms of the language pair with the
// glossary file; file entries win.
func loadGlossary(ctx context.Context, c *config.Config, db *store.Store) (glossary.Glossary, error) {
	var g glossary.Glossary
	if db != nil {
		terms, err := db.GetGlossaryTerms(ctx, c.SourceLang, c.TargetLang)
		if err != nil {
			return glossary.Glossary{}, fmt.Errorf("failed to load glossary terms: %w", err)
		}
		g = glossary.New(terms)
	}
	if c.GlossaryPath != "" {
		fromFile, err := glossary.Load(c.GlossaryPath)
		if err != nil {
			return glossary.Glossary{}, err
		}
		g = g.Merge(fromFile)
	}
	return g, nil
}

// withStore opens the database for the duration of fn.
func withStore(fn func(ctx context.Context, db *store.Store) error) error {
	db, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(context.Background(), db)
}
