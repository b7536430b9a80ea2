package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/metal-toolbox/powerctl/internal/intersight"
	"github.com/metal-toolbox/powerctl/internal/inventory"
	"github.com/metal-toolbox/powerctl/internal/metrics"
	"github.com/metal-toolbox/powerctl/internal/model"
	"github.com/metal-toolbox/powerctl/internal/power"
)

const (
	pkgName = "internal/runner"
)

var (
	// ErrRunHalted is returned when a failure stopped the run before all targets were attempted.
	ErrRunHalted = errors.New("run halted")

	// ErrRunAborted is returned when the run context was canceled before all targets were attempted.
	ErrRunAborted = errors.New("run aborted")

	// ErrNoTargets is returned when the run has no targets.
	ErrNoTargets = errors.New("no target servers configured")
)

// Controller is the power state controller the runner drives for each target.
type Controller interface {
	AccountName(ctx context.Context) (string, error)
	UpdatePowerState(ctx context.Context, target model.ServerTarget, powerState string) (*model.Task, error)
}

// Options set the run failure policy.
type Options struct {
	// HaltOnLookupError stops the run when a target could not be resolved,
	// by default the target is marked failed and the run continues.
	HaltOnLookupError bool
}

// A Runner instance applies a power state to a list of target servers, one at a time.
type Runner struct {
	controller Controller
	logger     *logrus.Entry
	opts       Options
}

func New(controller Controller, logger *logrus.Entry, opts Options) *Runner {
	return &Runner{
		controller: controller,
		logger:     logger,
		opts:       opts,
	}
}

// Run applies the power state to each target in order and returns the tasks attempted.
//
// Failures are collected in the returned error, the run stops early only on account or API key errors,
// on lookup errors when HaltOnLookupError is set, or when ctx is canceled.
func (r *Runner) Run(ctx context.Context, targets []model.ServerTarget, powerState string) ([]*model.Task, error) {
	ctx, span := otel.Tracer(pkgName).Start(
		ctx,
		"Runner.Run",
		trace.WithAttributes(attribute.Int("targets", len(targets)), attribute.String("powerState", powerState)),
	)
	defer span.End()

	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	account, err := r.controller.AccountName(ctx)
	if err != nil {
		r.logger.WithError(err).Error("Intersight account unavailable, verify the API key ID and secret key")
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{"account": account, "targets": len(targets)}).Info("Intersight account found")

	tasks := make([]*model.Task, 0, len(targets))

	var merr *multierror.Error

	for idx, target := range targets {
		if ctx.Err() != nil {
			merr = multierror.Append(
				merr,
				errors.Wrap(ErrRunAborted, fmt.Sprintf("%s, %d of %d targets not attempted", ctx.Err(), len(targets)-idx, len(targets))),
			)

			break
		}

		startTS := time.Now()

		task, err := r.controller.UpdatePowerState(ctx, target, powerState)
		if task != nil {
			tasks = append(tasks, task)
			registerTargetMetrics(startTS, task)
		}

		if err == nil {
			continue
		}

		merr = multierror.Append(merr, errors.Wrap(err, "target '"+target.Identifier+"'"))

		if r.halts(err) {
			notAttempted := len(targets) - idx - 1

			r.logger.WithError(err).WithField("notAttempted", notAttempted).Error("run halted")

			merr = multierror.Append(
				merr,
				errors.Wrap(ErrRunHalted, fmt.Sprintf("%d of %d targets not attempted", notAttempted, len(targets))),
			)

			break
		}
	}

	r.summary(tasks)

	return tasks, merr.ErrorOrNil()
}

// halts returns true when err is to stop the run.
//
// Account and API key errors affect every target, write errors only the target at hand.
func (r *Runner) halts(err error) bool {
	switch {
	case errors.Is(err, inventory.ErrAccountAccess), errors.Is(err, intersight.ErrAPIKey):
		return true
	case errors.Is(err, power.ErrPowerStateUpdate):
		return false
	default:
		return r.opts.HaltOnLookupError
	}
}

func (r *Runner) summary(tasks []*model.Task) {
	var succeeded, failed int

	for _, task := range tasks {
		le := r.logger.WithFields(logrus.Fields{
			"taskID":     task.ID.String(),
			"identifier": task.Target.Identifier,
			"server":     task.ServerName,
			"state":      task.State(),
		})

		switch task.State() {
		case model.StateSucceeded:
			succeeded++

			le.Info(task.Status.Last())
		default:
			failed++

			le.WithField("err", task.Error).Warn(task.Status.Last())
		}
	}

	r.logger.WithFields(logrus.Fields{
		"attempted": len(tasks),
		"succeeded": succeeded,
		"failed":    failed,
	}).Info("run complete")
}

func registerTargetMetrics(startTS time.Time, task *model.Task) {
	labels := prometheus.Labels{
		"powerState": task.PowerState,
		"state":      string(task.State()),
	}

	metrics.TargetCounter.With(labels).Inc()
	metrics.TargetRunTimeSummary.With(labels).Observe(time.Since(startTS).Seconds())
}
