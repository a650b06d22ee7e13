// Package orchestrator implements the resolution engine: cached credential
// first, then a bounded loop of fresh credentials, then artifact assembly.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glorpus-work/apkfetch/pkg/auth"
	"github.com/glorpus-work/apkfetch/pkg/device"
	pkgerrors "github.com/glorpus-work/apkfetch/pkg/errors"
	"github.com/glorpus-work/apkfetch/pkg/hooks"
	"github.com/glorpus-work/apkfetch/pkg/logger"
	"github.com/glorpus-work/apkfetch/pkg/metrics"
	"github.com/glorpus-work/apkfetch/pkg/model"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

// Resolve runs the state machine for req and returns the plan. Progress is
// reported through Hooks, followed by exactly one success or error event.
func (o *Orchestrator) Resolve(ctx context.Context, req Request) (*model.DownloadPlan, error) {
	plan, err := o.resolve(ctx, req)
	if err != nil {
		o.fail(err)
		return nil, err
	}
	emit(o.Hooks, Event{Type: EventSuccess, Phase: PhaseDone, Plan: plan})
	return plan, nil
}

// resolve is Resolve without the terminal event.
func (o *Orchestrator) resolve(ctx context.Context, req Request) (*model.DownloadPlan, error) {
	start := time.Now()
	plan, err := o.resolvePlan(ctx, req)
	outcome := "success"
	if err != nil {
		outcome = string(model.KindOf(err))
	}
	metrics.ObserveResolution(outcome, time.Since(start))
	if err != nil {
		return nil, err
	}

	if !plan.MatchVersion(req.Version) {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrVersionMismatch, "%s %s does not satisfy %q", plan.Package, plan.VersionString, req.Version)
	}
	if err := o.runScript(hooks.PostResolve, plan, "", ""); err != nil {
		return nil, err
	}
	return plan, nil
}

func (o *Orchestrator) resolvePlan(ctx context.Context, req Request) (*model.DownloadPlan, error) {
	if req.Package == "" {
		return nil, model.NewFailure(model.KindNotFound, "empty package id")
	}
	profile := device.BuildProfile(req.Device, req.Region)
	key := profile.CacheKey()

	if plan, ok := o.tryCached(ctx, req.Package, profile, key); ok {
		return plan, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, model.WrapFailure(model.KindCancelled, "", err)
	}
	return o.tryFresh(ctx, req.Package, profile, key)
}

// tryCached reports whether the stored credential produced a plan. Any
// failure moves on to fresh credentials; the same credential is never retried.
func (o *Orchestrator) tryCached(ctx context.Context, pkg string, profile device.Profile, key string) (*model.DownloadPlan, bool) {
	if o.Store == nil {
		return nil, false
	}
	cred, ok := o.Store.Load(key)
	if !ok {
		return nil, false
	}

	region := profile.Region()
	emit(o.Hooks, Event{
		Type:    EventProgress,
		Phase:   PhaseCached,
		Message: fmt.Sprintf("Trying cached token (%s)...", region.Key),
	})

	plan, err := o.Catalog.Resolve(ctx, pkg, cred, region)
	if err == nil {
		metrics.ObserveAttempt("cached", "success")
		return plan, true
	}

	kind := model.KindOf(err)
	metrics.ObserveAttempt("cached", string(kind))
	logger.Warn("Cached credential rejected", logrus.Fields{
		"package": pkg,
		"attempt": 0,
		"kind":    kind,
		"error":   err,
	})
	emit(o.Hooks, Event{
		Type:    EventProgress,
		Phase:   PhaseCached,
		Kind:    kind,
		Message: fmt.Sprintf("Cached token failed (%s), getting new...", kind),
	})
	return nil, false
}

// tryFresh issues up to MaxAttempts credentials. A credential is saved only
// once it produced a plan.
func (o *Orchestrator) tryFresh(ctx context.Context, pkg string, profile device.Profile, key string) (*model.DownloadPlan, error) {
	cfg := o.Config.withDefaults()
	region := profile.Region()

	var (
		plan    *model.DownloadPlan
		last    *model.Failure
		attempt int
		delay   time.Duration
	)

	backoff := retry.WithMaxRetries(uint64(cfg.MaxAttempts-1), retry.BackoffFunc(func() (time.Duration, bool) {
		return delay, false
	}))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		emit(o.Hooks, Event{
			Type:    EventProgress,
			Phase:   PhaseIssue,
			Attempt: attempt,
			Message: fmt.Sprintf("Getting token #%d for %s...", attempt, region.Key),
		})

		cred, err := o.Issuer.Issue(ctx, profile)
		metrics.ObserveIssuance(err == nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.attemptFailed(pkg, attempt, model.KindNoCredential, err)
			delay = cfg.IssuanceBackoff
			return retry.RetryableError(err)
		}

		logger.Debug("Checking package with fresh credential", logrus.Fields{"package": pkg, "attempt": attempt})
		p, err := o.Catalog.Resolve(ctx, pkg, cred, region)
		if err != nil {
			f := asFailure(err)
			if f.Kind == model.KindCancelled || ctx.Err() != nil {
				return f
			}
			metrics.ObserveAttempt("fresh", string(f.Kind))
			last = f
			o.attemptFailed(pkg, attempt, f.Kind, err)
			delay = cfg.RetryBackoff
			return retry.RetryableError(f)
		}

		metrics.ObserveAttempt("fresh", "success")
		o.saveCredential(key, cred)
		plan = p
		return nil
	})

	switch {
	case err == nil:
		return plan, nil
	case ctx.Err() != nil:
		return nil, model.WrapFailure(model.KindCancelled, "", ctx.Err())
	case model.KindOf(err) == model.KindCancelled:
		return nil, err
	}

	if last == nil {
		last = model.WrapFailure(model.KindNoCredential, "every issuance attempt failed", err)
	}
	return nil, &model.ExhaustedError{Attempts: attempt, Last: last}
}

func (o *Orchestrator) attemptFailed(pkg string, attempt int, kind model.Kind, err error) {
	logger.Warn("Resolution attempt failed", logrus.Fields{
		"package": pkg,
		"attempt": attempt,
		"kind":    kind,
		"error":   err,
	})
	emit(o.Hooks, Event{
		Type:    EventProgress,
		Phase:   PhaseIssue,
		Attempt: attempt,
		Kind:    kind,
		Message: fmt.Sprintf("Token #%d failed: %s", attempt, kind),
	})
}

func (o *Orchestrator) saveCredential(key string, cred *auth.Credential) {
	if o.Store != nil {
		o.Store.Save(key, cred)
	}
}

func (o *Orchestrator) fail(err error) {
	emit(o.Hooks, Event{
		Type:    EventError,
		Kind:    model.KindOf(err),
		Message: "Error: " + err.Error(),
	})
}

func (o *Orchestrator) runScript(hookType hooks.HookType, plan *model.DownloadPlan, filename, path string) error {
	if o.Scripts == nil {
		return nil
	}
	names := make([]string, 0, len(plan.Secondaries))
	for _, s := range plan.Secondaries {
		names = append(names, s.Name)
	}
	err := o.Scripts.Execute(hookType, hooks.HookContext{
		PackageName:   plan.Package,
		VersionCode:   plan.VersionCode,
		VersionString: plan.VersionString,
		Title:         plan.Title,
		Filename:      filename,
		ArtifactPath:  path,
		Secondaries:   names,
	})
	return pkgerrors.Wrapf(err, "%s hook", hookType)
}

// asFailure classifies errors that did not come out of the catalog client.
func asFailure(err error) *model.Failure {
	var f *model.Failure
	if errors.As(err, &f) {
		return f
	}
	if errors.Is(err, context.Canceled) {
		return model.WrapFailure(model.KindCancelled, "", err)
	}
	return model.WrapFailure(model.KindProtocol, "", err)
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}
