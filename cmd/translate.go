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
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/valpere/peredoc/internal/orchestrator"
	"github.com/valpere/peredoc/internal/store"
)

var (
	batchLabel   string
	resumeBatch  string
	pickFiles    bool
	deleteInput  bool
	noProgress   bool
	instructions string
)

var translateCmd = &cobra.Command{
	Use:   "translate [paths...]",
	Short: "Translate documentation files",
	Long: `Translate every supported file under the given paths (default: the input
root) and write the results to the output root, mirroring the directory layout.

Each file is processed independently: a file that fails is reported and the
batch carries on. Every result is appended to the batch log; use --resume
with the printed batch ID to skip files already written.

Example:
  peredoc translate --target uk docs/
  peredoc translate --provider ollama --model llama3.2 --workers 4 --target de
  peredoc translate --resume b_0d6c... --target de`,
	RunE: runTranslate,
}

func runTranslate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths := args
	if len(paths) == 0 {
		paths = []string{cfg.InputDirectory}
	}
	files, err := orchestrator.Discover(paths, cfg.FileTypes())
	if err != nil {
		return fmt.Errorf("failed to collect input files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no supported files found in %v", paths)
	}
	if pickFiles {
		if files, err = selectFilesInteractively(files); err != nil {
			return err
		}
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

	batch, skip, err := startBatch(ctx, db, svc.Name())
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Batch: %s (%d files)\n", batch.ID, len(files))

	opts := orchestrator.Options{
		InputRoot:     cfg.InputDirectory,
		Roots:         inputDirs(paths),
		OutputRoot:    cfg.OutputDirectory,
		BatchLabel:    batch.Label,
		SourceLang:    cfg.SourceLang,
		TargetLang:    cfg.TargetLang,
		MaxChunk:      cfg.MaxChunk,
		Workers:       cfg.Workers,
		Glossary:      gloss,
		Instructions:  instructions,
		ServiceConfig: serviceConfig(cfg),
		CacheScope:    cacheScope(cfg, svc),
		Skip:          skip,
		DeleteInput:   deleteInput,
	}
	if !cfg.NoCache {
		opts.Cache = db
	}

	var progress *progressView
	if !noProgress {
		progress = newProgressView(len(files))
		opts.OnProgress = progress.update
	}
	opts.OnResult = func(r orchestrator.Result) {
		if progress != nil {
			progress.done(r)
		}
		if r.State == orchestrator.StateSkipped {
			return
		}
		rec := store.FileRecord{
			BatchID:   batch.ID,
			File:      r.File,
			Output:    r.Output,
			State:     string(r.State),
			ErrorKind: r.ErrorKind,
			Message:   r.Message,
			Chunks:    r.Chunks,
		}
		// The batch context may already be cancelled; the log entry still
		// has to land so --resume sees it.
		if err := db.AppendFileResult(context.WithoutCancel(ctx), rec); err != nil {
			logger.Error().Err(err).Str("file", r.File).Msg("failed to record file result")
		}
	}

	pipeline := orchestrator.New(svc, opts, logger)
	results := pipeline.RunBatch(ctx, files)
	if progress != nil {
		progress.wait()
	}

	s := orchestrator.Summarize(results)
	for _, r := range results {
		if !r.OK() && r.State != orchestrator.StateSkipped {
			fmt.Fprintf(os.Stderr, "FAILED %s: [%s] %s\n", r.File, r.ErrorKind, r.Message)
		}
	}
	fmt.Printf("Batch %s: %d written, %d failed, %d skipped of %d files\n",
		batch.ID, s.Written, s.Failed, s.Skipped, s.Total)

	if ctx.Err() != nil {
		return fmt.Errorf("translation interrupted; rerun with --resume %s", batch.ID)
	}
	if s.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", s.Failed, s.Total)
	}
	return nil
}

// startBatch creates a new batch, or reopens resumeBatch and returns the
// files it already wrote.
func startBatch(ctx context.Context, db *store.Store, provider string) (store.Batch, map[string]bool, error) {
	if resumeBatch != "" {
		b, err := db.GetBatch(ctx, resumeBatch)
		if err != nil {
			return store.Batch{}, nil, fmt.Errorf("failed to resume batch: %w", err)
		}
		skip, err := db.WrittenFiles(ctx, b.ID)
		if err != nil {
			return store.Batch{}, nil, fmt.Errorf("failed to load batch progress: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Resuming batch %s: %d files already written\n", b.ID, len(skip))
		return *b, skip, nil
	}

	label := batchLabel
	if label == "" {
		label = filepath.Base(filepath.Clean(cfg.InputDirectory))
	}
	b, err := db.CreateBatch(ctx, store.Batch{
		Label:      label,
		InputRoot:  cfg.InputDirectory,
		OutputRoot: cfg.OutputDirectory,
		SourceLang: cfg.SourceLang,
		TargetLang: cfg.TargetLang,
		Provider:   provider,
	})
	if err != nil {
		return store.Batch{}, nil, fmt.Errorf("failed to create batch: %w", err)
	}
	return b, nil, nil
}

// selectFilesInteractively lets the user narrow the discovered files.
// inputDirs returns the directory arguments. Files found under one mirror
// their layout below it when they lie outside the input root.
func inputDirs(paths []string) []string {
	var dirs []string
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			dirs = append(dirs, p)
		}
	}
	return dirs
}

func selectFilesInteractively(files []string) ([]string, error) {
	prompt := &survey.MultiSelect{
		Message:  "Select files to translate:",
		Options:  files,
		Default:  files,
		PageSize: 15,
	}
	var selected []string
	if err := survey.AskOne(prompt, &selected, survey.WithValidator(survey.MinItems(1))); err != nil {
		return nil, fmt.Errorf("file selection cancelled: %w", err)
	}
	return selected, nil
}

// progressView renders one bar for the batch and one per file in flight.
// Its methods are called from the pipeline callbacks, which never overlap.
type progressView struct {
	p     *mpb.Progress
	total *mpb.Bar
	files map[string]*mpb.Bar
}

func newProgressView(n int) *progressView {
	p := mpb.New(mpb.WithWidth(60), mpb.WithOutput(os.Stderr))
	total := p.AddBar(int64(n),
		mpb.PrependDecorators(decor.Name("files", decor.WCSyncSpaceR)),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Counters(0, " | %d/%d"),
			decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 6}, decor.WCSyncSpace),
		),
	)
	return &progressView{p: p, total: total, files: make(map[string]*mpb.Bar)}
}

func (pv *progressView) update(ev orchestrator.Progress) {
	if ev.State != orchestrator.StateTranslating || ev.Chunks == 0 {
		return
	}
	bar, ok := pv.files[ev.File]
	if !ok {
		bar = pv.p.AddBar(int64(ev.Chunks),
			mpb.BarRemoveOnComplete(),
			mpb.PrependDecorators(decor.Name(filepath.Base(ev.File), decor.WCSyncSpaceR)),
			mpb.AppendDecorators(decor.Counters(0, " | chunk %d/%d")),
		)
		pv.files[ev.File] = bar
	}
	bar.SetCurrent(int64(ev.Chunk))
}

func (pv *progressView) done(r orchestrator.Result) {
	if bar, ok := pv.files[r.File]; ok {
		if r.OK() {
			bar.SetCurrent(int64(r.Chunks))
		}
		bar.Abort(true)
		delete(pv.files, r.File)
	}
	pv.total.Increment()
}

func (pv *progressView) wait() {
	pv.p.Wait()
}

func init() {
	rootCmd.AddCommand(translateCmd)

	f := translateCmd.Flags()
	f.String("input-root", "input_files", "Input root; output paths mirror paths relative to it")
	f.String("output-root", "output_files", "Output root")
	f.StringVar(&batchLabel, "batch", "", "Batch label (default: base name of the input root)")
	f.StringP("provider", "p", "gemini", "Translation provider (see \"peredoc providers\")")
	f.StringP("model", "m", "", "Model name (default: the provider's default model)")
	f.StringP("source", "s", "en", "Source language code, or auto to detect per file")
	f.StringP("target", "t", "ar", "Target language code")
	f.StringP("glossary", "g", "", "Glossary file (YAML or JSON)")
	f.Int("max-chunk", 8292, "Maximum characters per chunk")
	f.IntP("workers", "w", 1, "Files translated concurrently")
	f.Duration("timeout", 0, "Timeout of one backend call (default 2m)")
	f.Int("max-retries", 3, "Total attempts per chunk including the first (1 = no retries)")
	f.Bool("refine", false, "Run a second refinement pass over each chunk")
	f.Bool("validate", false, "Retry replies that are not in the target language")
	f.Bool("protect", false, "Replace markup with placeholders before translation")
	f.Bool("no-cache", false, "Disable translation memory")
	f.StringVar(&instructions, "instructions", "", "Extra instructions appended to the translation prompt")
	f.StringVar(&resumeBatch, "resume", "", "Resume a batch by ID, skipping files already written")
	f.BoolVar(&pickFiles, "pick", false, "Pick the files to translate interactively")
	f.BoolVar(&deleteInput, "delete-input", false, "Delete each input file after its translation is written")
	f.BoolVar(&noProgress, "no-progress", false, "Disable progress bars")
}
