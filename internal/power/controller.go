package power

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/metal-toolbox/powerctl/internal/intersight"
	"github.com/metal-toolbox/powerctl/internal/inventory"
	"github.com/metal-toolbox/powerctl/internal/model"
	sm "github.com/metal-toolbox/powerctl/internal/statemachine"
	"github.com/metal-toolbox/powerctl/internal/store"
)

const (
	pkgName = "internal/power"

	// ServerSettingsPath is the collection holding the compute.ServerSetting objects.
	ServerSettingsPath = "/compute/ServerSettings"

	// ServerSettingsObjectType names the server settings object in logs and errors.
	ServerSettingsObjectType = "Server Settings (Power State Only)"
)

var (
	// ErrPowerStateUpdate is returned when the power state could not be written to the server settings object.
	ErrPowerStateUpdate = errors.New("power state update failed")
)

// Options are the Controller parameters, fixed for the lifetime of the Controller.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type Options struct {
	// BaseURL is the Intersight API base URL, used to build server references.
	BaseURL string

	// Organization scopes the server settings lookup, defaults to "default".
	Organization string

	// ValueMap translates power state names, defaults to DefaultValueMap().
	ValueMap ValueMap

	// StrictMatch fails a target whose identifier matches more than one server.
	StrictMatch bool

	// DryRun resolves targets without submitting the power state update.
	DryRun bool

	// Store records task state, defaults to an in-memory store.
	Store store.Storage
}

// Controller changes the power state of servers through the Intersight API.
type Controller struct {
	caller   intersight.Caller
	resolver *inventory.Resolver
	locator  *inventory.Locator
	logger   *logrus.Logger
	opts     Options
}

// New returns a Controller that reaches the Intersight API through the given Caller.
func New(caller intersight.Caller, logger *logrus.Logger, opts Options) *Controller {
	if opts.BaseURL == "" {
		opts.BaseURL = intersight.DefaultBaseURL
	}

	if opts.Organization == "" {
		opts.Organization = model.DefaultOrganization
	}

	if len(opts.ValueMap.Values) == 0 {
		opts.ValueMap = DefaultValueMap()
	}

	if opts.Store == nil {
		opts.Store = store.NewMemStore()
	}

	resolver := inventory.NewResolver(caller, logger)

	return &Controller{
		caller:   caller,
		resolver: resolver,
		locator:  inventory.NewLocator(resolver, opts.BaseURL, opts.StrictMatch),
		logger:   logger,
		opts:     opts,
	}
}

// Store returns the task store the controller records tasks in.
func (c *Controller) Store() store.Storage {
	return c.opts.Store
}

// Resolver returns the object resolver used by the controller.
func (c *Controller) Resolver() *inventory.Resolver {
	return c.resolver
}

// Locator returns the server locator used by the controller.
func (c *Controller) Locator() *inventory.Locator {
	return c.locator
}

// AccountName returns the name of the Intersight account the API credentials belong to.
func (c *Controller) AccountName(ctx context.Context) (string, error) {
	return c.resolver.AccountName(ctx)
}

// UpdatePowerState locates the target server, resolves its server settings object and submits
// the power state to it.
//
// The returned task is in the succeeded or failed state, a failed task is returned along with the error.
func (c *Controller) UpdatePowerState(ctx context.Context, target model.ServerTarget, powerState string) (*model.Task, error) {
	task := model.NewTask(target, strings.TrimSpace(powerState))

	ctx, span := otel.Tracer(pkgName).Start(
		ctx,
		"Controller.UpdatePowerState",
		trace.WithAttributes(
			attribute.String("taskID", task.ID.String()),
			attribute.String("identifier", task.Target.Identifier),
			attribute.String("powerState", task.PowerState),
		),
	)
	defer span.End()

	le := c.logger.WithFields(logrus.Fields{
		"taskID":         task.ID.String(),
		"identifier":     task.Target.Identifier,
		"formFactor":     task.Target.FormFactor,
		"connectionType": task.Target.ConnectionType,
		"powerState":     task.PowerState,
	})

	if _, err := c.opts.Store.AddTask(ctx, *task); err != nil {
		le.WithError(err).Warn("task record not stored")
	}

	le.Info("configuring " + ServerSettingsObjectType)

	tctx := &sm.HandlerContext{
		Ctx:    ctx,
		TaskID: task.ID.String(),
		Logger: le,
	}

	m := sm.NewTaskStateMachine(c)
	if err := m.Run(ctx, task, c, tctx); err != nil {
		span.RecordError(err)

		return task, err
	}

	return task, nil
}
