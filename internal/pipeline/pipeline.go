// Package pipeline merges every discovered document into an output directory.
package pipeline

import (
	"context"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dannyswat/xmlmerge"
	"github.com/dannyswat/xmlmerge/internal/codec"
	"github.com/dannyswat/xmlmerge/internal/discovery"
)

// Status is the outcome of one document.
type Status string

const (
	StatusMerged  Status = "MERGED"
	StatusCopied  Status = "COPIED"  // no variant touched the document
	StatusSkipped Status = "SKIPPED" // variants exist but no original does
	StatusFailed  Status = "FAILED"
)

// Outcome describes what happened to one document.
type Outcome struct {
	File       string
	Status     Status
	ChangeSets []xmlmerge.ChangeSet
	Result     *xmlmerge.MergeResult
	Err        error
}

// Runner merges file sets. The zero value is not usable; set FS and Output.
type Runner struct {
	FS             afero.Fs
	Logger         *zap.Logger
	Strategy       xmlmerge.Strategy
	Workers        int
	Output         string
	PostProcessors []xmlmerge.PostProcessor
}

// Run processes sets concurrently. A failing document does not stop the
// others; every failure is returned in the aggregated error and in its Outcome.
func (r *Runner) Run(ctx context.Context, sets []discovery.FileSet) ([]Outcome, error) {
	logger := r.logger()
	if err := r.FS.MkdirAll(r.Output, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output directory %s", r.Output)
	}

	outcomes := make([]Outcome, len(sets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Workers, 1))
	for i, set := range sets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = Outcome{File: set.Name, Status: StatusFailed, Err: err}
				return nil
			}
			outcomes[i] = r.process(set, logger.With(zap.String("file", set.Name)))
			return nil
		})
	}
	_ = g.Wait()

	var result *multierror.Error
	for _, o := range outcomes {
		if o.Err != nil {
			result = multierror.Append(result, errors.Wrap(o.Err, o.File))
		}
	}
	return outcomes, result.ErrorOrNil()
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) process(set discovery.FileSet, logger *zap.Logger) Outcome {
	out := Outcome{File: set.Name}
	fail := func(err error) Outcome {
		out.Status = StatusFailed
		out.Err = err
		logger.Error("document failed", zap.Error(err))
		return out
	}

	if !set.HasOriginal() {
		logger.Warn("no original document, skipping", zap.Int("variants", len(set.Variants)))
		out.Status = StatusSkipped
		return out
	}

	if len(set.Variants) == 0 {
		data, err := afero.ReadFile(r.FS, set.Original)
		if err != nil {
			return fail(errors.Wrap(err, "read original"))
		}
		if err := r.write(set.Name, data); err != nil {
			return fail(err)
		}
		logger.Info("no variants, copied original")
		out.Status = StatusCopied
		return out
	}

	c, ok := codec.ForFile(set.Name)
	if !ok {
		return fail(errors.Errorf("no codec for %s", set.Name))
	}
	original, err := r.parse(c, set.Original)
	if err != nil {
		return fail(err)
	}

	for _, v := range set.Variants {
		doc, err := r.parse(c, v.Path)
		if err != nil {
			return fail(err)
		}
		cs := xmlmerge.Detect(original.Root, doc.Root, v.Name)
		logger.Debug("detected changes", zap.String("variant", v.Name), zap.Int("changes", len(cs.Changes)))
		out.ChangeSets = append(out.ChangeSets, cs)
	}

	result, err := xmlmerge.Merge(original.Root, out.ChangeSets, r.Strategy)
	if err != nil {
		var ce *xmlmerge.ConflictError
		if errors.As(err, &ce) {
			for _, conflict := range ce.Conflicts {
				logger.Warn("conflict", zap.String("address", conflict.Address.String()), zap.String("attribute", conflict.Attribute))
			}
		}
		return fail(err)
	}
	out.Result = result
	r.logResult(logger, result)

	merged := result.Merged
	for _, p := range r.PostProcessors {
		if !p.Match(original.Root) {
			continue
		}
		if merged, err = p.Process(original.Root, merged); err != nil {
			return fail(err)
		}
		break
	}
	result.Merged = merged

	data, err := c.Serialize(&xmlmerge.Document{
		Root:        merged,
		Declaration: original.Declaration,
		Doctype:     original.Doctype,
	})
	if err != nil {
		return fail(err)
	}
	if err := r.write(set.Name, data); err != nil {
		return fail(err)
	}

	logger.Info("merged document",
		zap.Int("variants", len(set.Variants)),
		zap.Int("changes", result.Stats.Total),
		zap.Int("conflicts", result.Stats.Conflicts))
	out.Status = StatusMerged
	return out
}

func (r *Runner) logResult(logger *zap.Logger, result *xmlmerge.MergeResult) {
	for _, race := range result.Races {
		logger.Warn("removal overlaps another variant's edit",
			zap.String("removed", race.Removal.Address.String()),
			zap.String("removed_by", race.Removal.Source),
			zap.String("edited", race.Edit.Address.String()),
			zap.String("edited_by", race.Edit.Source))
	}
	for _, c := range result.Skipped {
		logger.Debug("change did not apply", zap.Stringer("change", c))
	}
}

func (r *Runner) parse(c codec.Codec, path string) (*xmlmerge.Document, error) {
	data, err := afero.ReadFile(r.FS, path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return c.Parse(path, data)
}

func (r *Runner) write(name string, data []byte) error {
	path := filepath.Join(r.Output, name)
	if err := afero.WriteFile(r.FS, path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// ConflictFailures lists the documents rejected with *xmlmerge.ConflictError.
func ConflictFailures(outcomes []Outcome) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		var ce *xmlmerge.ConflictError
		if o.Err != nil && errors.As(o.Err, &ce) {
			out = append(out, o)
		}
	}
	return out
}
