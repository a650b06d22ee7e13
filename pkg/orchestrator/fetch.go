package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glorpus-work/apkfetch/pkg/archive"
	"github.com/glorpus-work/apkfetch/pkg/download"
	pkgerrors "github.com/glorpus-work/apkfetch/pkg/errors"
	"github.com/glorpus-work/apkfetch/pkg/fsutil"
	"github.com/glorpus-work/apkfetch/pkg/hooks"
	"github.com/glorpus-work/apkfetch/pkg/logger"
	"github.com/glorpus-work/apkfetch/pkg/metrics"
	"github.com/glorpus-work/apkfetch/pkg/model"
	"github.com/glorpus-work/apkfetch/pkg/signer"
	"github.com/sirupsen/logrus"
)

// Fetch resolves req, downloads every artifact of the plan and assembles one
// installable archive. A plan without secondaries yields the primary as is.
func (o *Orchestrator) Fetch(ctx context.Context, req Request, opts FetchOptions) (*FetchResult, error) {
	res, err := o.fetch(ctx, req, opts)
	if err != nil {
		o.fail(err)
		return nil, err
	}
	emit(o.Hooks, Event{
		Type:       EventSuccess,
		Phase:      PhaseDone,
		Plan:       res.Plan,
		DownloadID: res.DownloadID,
		Filename:   res.Filename,
		Size:       int64(len(res.Data)),
		Original:   res.Original,
	})
	return res, nil
}

func (o *Orchestrator) fetch(ctx context.Context, req Request, opts FetchOptions) (*FetchResult, error) {
	plan, err := o.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir, err = os.MkdirTemp("", "apkfetch_")
		if err != nil {
			return nil, pkgerrors.Wrap(err, "could not create work directory")
		}
		defer func() { _ = os.RemoveAll(workDir) }()
	}

	parts, err := o.download(ctx, plan, workDir, opts.Concurrency)
	if err != nil {
		return nil, err
	}

	res := &FetchResult{Plan: plan}
	if !plan.HasSecondaries() {
		res.Data = parts[0].Data
		res.Filename = plan.Filename()
		res.Original = true
	} else {
		res.Data, err = o.assemble(ctx, parts)
		if err != nil {
			return nil, err
		}
		res.Filename = plan.MergedFilename()
	}

	if opts.OutputDir != "" {
		res.Path = filepath.Join(opts.OutputDir, res.Filename)
		if err := fsutil.WriteFileAtomic(res.Path, res.Data, fsutil.FileModeDefault); err != nil {
			return nil, pkgerrors.Wrap(err, "could not write artifact")
		}
	}
	if o.Artifacts != nil {
		res.DownloadID, err = o.Artifacts.Put(res.Filename, res.Data)
		if err != nil {
			return nil, err
		}
	}

	if err := o.runScript(hooks.PostDownload, plan, res.Filename, res.Path); err != nil {
		return nil, err
	}
	return res, nil
}

func (o *Orchestrator) download(ctx context.Context, plan *model.DownloadPlan, dir string, concurrency int) ([]archive.Part, error) {
	artifacts := plan.Artifacts()
	total := len(artifacts)
	headers := map[string]string{}
	if cookie := plan.CookieHeader(); cookie != "" {
		headers["Cookie"] = cookie
	}

	items := make([]download.Item, 0, total)
	for i, a := range artifacts {
		u := a.GetURL()
		if u == nil {
			return nil, model.NewFailure(model.KindProtocol, fmt.Sprintf("invalid url for %s", a.Name))
		}
		items = append(items, download.Item{
			ID:       a.Name,
			URL:      u,
			Headers:  headers,
			Filename: fmt.Sprintf("%02d-%s.apk", i, a.Name),
		})
	}

	emit(o.Hooks, Event{
		Type:    EventProgress,
		Phase:   PhaseDownload,
		Current: 0,
		Total:   total,
		Message: fmt.Sprintf("Downloading %d artifact(s) of %s %s...", total, plan.Package, plan.VersionString),
	})

	paths, err := o.DL.FetchAll(ctx, items, download.Options{
		Dir:         dir,
		Concurrency: concurrency,
		OnItemDone: func(done, total int, id string) {
			emit(o.Hooks, Event{
				Type:    EventProgress,
				Phase:   PhaseDownload,
				Current: done,
				Total:   total,
				Message: fmt.Sprintf("Downloaded %s (%d/%d)", id, done, total),
			})
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, model.WrapFailure(model.KindCancelled, "download", ctx.Err())
		}
		return nil, model.WrapFailure(model.KindNetwork, "download", err)
	}

	parts := make([]archive.Part, 0, total)
	for _, it := range items {
		data, err := os.ReadFile(paths[it.ID])
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "could not read %s", it.ID)
		}
		parts = append(parts, archive.Part{Name: it.ID, Data: data})
	}
	return parts, nil
}

// assemble merges parts[1:] into parts[0] and signs the result.
func (o *Orchestrator) assemble(ctx context.Context, parts []archive.Part) ([]byte, error) {
	merger := o.Merger
	if merger == nil {
		merger = archive.NaiveMerger{}
	}
	sign := o.Signer
	if sign == nil {
		sign = signer.Noop{}
	}

	emit(o.Hooks, Event{
		Type:    EventProgress,
		Phase:   PhaseMerge,
		Message: fmt.Sprintf("Merging %d split APKs (%s)...", len(parts)-1, merger.Name()),
	})
	start := time.Now()
	merged, err := merger.Merge(ctx, parts[0].Data, parts[1:])
	if err != nil {
		if ctx.Err() != nil {
			return nil, model.WrapFailure(model.KindCancelled, "merge", ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrMergeFailed, err)
	}
	metrics.ObserveMerge(merger.Name(), time.Since(start), len(merged))
	logger.Debug("Merged artifacts", logrus.Fields{"strategy": merger.Name(), "size": len(merged)})

	emit(o.Hooks, Event{
		Type:    EventProgress,
		Phase:   PhaseSign,
		Message: fmt.Sprintf("Signing APK (%s)...", sign.Name()),
	})
	return sign.Sign(ctx, merged), nil
}
