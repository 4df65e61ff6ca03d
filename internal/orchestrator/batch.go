package orchestrator

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/valpere/peredoc/internal/document"
)

// Summary counts a batch's outcomes.
type Summary struct {
	Total   int `json:"total"`
	Written int `json:"written"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Summarize counts results by terminal state.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.State {
		case StateWritten:
			s.Written++
		case StateSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
	}
	return s
}

// RunBatch processes files with at most Workers in flight and returns one
// Result per file in input order. Failures are isolated: every file is
// attempted unless ctx is cancelled, in which case the files not yet
// started fail with the context error.
func (p *Pipeline) RunBatch(ctx context.Context, files []string) []Result {
	results := make([]Result, len(files))

	// Two inputs resolving to one output would overwrite each other; the
	// later one fails before any work is done.
	claimed := make(map[string]string, len(files))

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i, file := range files {
		if other, out, dup := p.claimOutput(claimed, file); dup {
			results[i] = p.rejected(file, &document.IOError{
				Op:   "write",
				Path: out,
				Err:  fmt.Errorf("%s and %s resolve to the same output", other, file),
			})
			continue
		}
		if p.opts.Skip[file] {
			results[i] = Result{File: file, State: StateSkipped}
			p.report(results[i])
			p.progress(Progress{File: file, State: StateSkipped})
			continue
		}
		g.Go(func() error {
			results[i] = p.ProcessFile(ctx, file)
			p.report(results[i])
			return nil
		})
	}
	_ = g.Wait()

	s := Summarize(results)
	p.logger.Info().
		Int("total", s.Total).
		Int("written", s.Written).
		Int("failed", s.Failed).
		Int("skipped", s.Skipped).
		Msg("batch finished")
	return results
}

// claimOutput records the output of a supported file and reports the
// earlier input already holding it.
func (p *Pipeline) claimOutput(claimed map[string]string, file string) (other, out string, dup bool) {
	if _, err := p.opts.Registry.ForPath(file); err != nil {
		return "", "", false
	}
	out, err := p.OutputPath(file)
	if err != nil {
		return "", "", false
	}
	if other, ok := claimed[out]; ok {
		return other, out, true
	}
	claimed[out] = file
	return "", out, false
}

// rejected fails file without processing it.
func (p *Pipeline) rejected(file string, err error) Result {
	r := Result{File: file, State: StateFailed, Err: err, ErrorKind: KindOf(err), Message: err.Error()}
	p.logger.Error().Err(err).Str("file", file).Str("kind", r.ErrorKind).Msg("file failed")
	p.report(r)
	p.progress(Progress{File: file, State: StateFailed})
	return r
}

// Discover expands paths into an ordered file list. Directories are walked
// recursively and only files whose extension is in exts are kept; explicit
// file arguments are kept as given so unsupported ones are reported.
func Discover(paths []string, exts []string) ([]string, error) {
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(e)] = true
	}

	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			add(root)
			continue
		}
		var found []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if allowed[strings.ToLower(filepath.Ext(path))] {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}
	return files, nil
}

// OutputPath mirrors inputPath's location relative to InputRoot under
// OutputRoot/BatchLabel. A file outside InputRoot is made relative to the
// first of Roots that contains it; failing that it keeps only its base name.
func (p *Pipeline) OutputPath(inputPath string) (string, error) {
	abs, err := filepath.Abs(inputPath)
	if err != nil {
		return "", err
	}
	rel := filepath.Base(inputPath)
	for _, root := range append([]string{p.opts.InputRoot}, p.opts.Roots...) {
		if root == "" {
			continue
		}
		r, ok, err := relativeTo(root, abs)
		if err != nil {
			return "", err
		}
		if ok {
			rel = r
			break
		}
	}
	return filepath.Join(p.opts.OutputRoot, p.opts.BatchLabel, rel), nil
}

func relativeTo(root, abs string) (string, bool, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return "", false, err
	}
	r, err := filepath.Rel(root, abs)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false, nil
	}
	return r, true, nil
}
