package power

import (
	"fmt"
	"net/http"
	"strings"

	sw "github.com/filanov/stateswitch"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/metal-toolbox/powerctl/internal/inventory"
	"github.com/metal-toolbox/powerctl/internal/metrics"
	"github.com/metal-toolbox/powerctl/internal/model"
	sm "github.com/metal-toolbox/powerctl/internal/statemachine"
)

var _ sm.TaskTransitioner = (*Controller)(nil)

// taskAndContext asserts the statemachine handler arguments.
func taskAndContext(t sw.StateSwitch, args sw.TransitionArgs) (*model.Task, *sm.HandlerContext, error) {
	tctx, ok := args.(*sm.HandlerContext)
	if !ok {
		return nil, nil, sm.ErrInvalidTaskHandlerContext
	}

	task, ok := t.(*model.Task)
	if !ok {
		return nil, nil, errors.Wrap(sm.ErrTaskTypeAssertion, fmt.Sprintf("%T", t))
	}

	return task, tctx, nil
}

// Resolve locates the target server, its server settings object and maps the requested power state.
func (c *Controller) Resolve(t sw.StateSwitch, args sw.TransitionArgs) error {
	task, tctx, err := taskAndContext(t, args)
	if err != nil {
		return err
	}

	ref, server, err := c.locator.Locate(tctx.Ctx, task.Target)
	if err != nil {
		return err
	}

	task.Server = ref
	task.ServerName = server.Name

	tctx.Logger = tctx.Logger.WithFields(logrus.Fields{"server": server.Name, "serverMoid": ref.Moid})

	settingsMoid, err := c.resolver.MoidByAttributes(
		tctx.Ctx,
		ServerSettingsPath+"?$top=1000",
		map[string]interface{}{"Server": ref},
		inventory.WithOrganization(c.opts.Organization),
		inventory.WithObjectType(ServerSettingsObjectType),
	)
	if err != nil {
		return err
	}

	task.SettingsMoid = settingsMoid

	backend, recognized := c.opts.ValueMap.Lookup(task.PowerState)
	if !recognized {
		metrics.PowerStateUnmappedCounter.Inc()

		tctx.Logger.WithField("accepted", strings.Join(c.opts.ValueMap.FrontEndValues(), ", ")).Warn(
			"unknown power state value, it is passed to Intersight as is",
		)
	}

	task.BackendValue = backend
	task.Status.Append(fmt.Sprintf("resolved server %s, settings %s", server.Name, settingsMoid))

	return nil
}

// Submit writes the mapped power state to the server settings object.
func (c *Controller) Submit(t sw.StateSwitch, args sw.TransitionArgs) error {
	task, tctx, err := taskAndContext(t, args)
	if err != nil {
		return err
	}

	if c.opts.DryRun {
		task.Status.Append("dry run, power state update skipped")
		tctx.Logger.WithField("value", task.BackendValue).Info("dry run, power state update skipped")

		return nil
	}

	path := ServerSettingsPath + "/" + task.SettingsMoid
	body := map[string]interface{}{c.opts.ValueMap.Attribute: task.BackendValue}

	if _, err := c.caller.Call(tctx.Ctx, http.MethodPost, path, body); err != nil {
		return errors.Wrap(
			ErrPowerStateUpdate,
			fmt.Sprintf("%s at %s: %s", ServerSettingsObjectType, path, err.Error()),
		)
	}

	task.Status.Append("power state update submitted")
	tctx.Logger.WithField("value", task.BackendValue).Info("power state update submitted")

	return nil
}

// SaveState records the task in the store.
func (c *Controller) SaveState(t sw.StateSwitch, args sw.TransitionArgs) error {
	task, tctx, err := taskAndContext(t, args)
	if err != nil {
		return err
	}

	if err := c.opts.Store.UpdateTask(tctx.Ctx, *task); err != nil {
		tctx.Logger.WithError(err).Warn("task state not stored")
	}

	return nil
}

// FailedState records the transition error on the task.
func (c *Controller) FailedState(t sw.StateSwitch, args sw.TransitionArgs) error {
	task, tctx, err := taskAndContext(t, args)
	if err != nil {
		return err
	}

	if tctx.Err != nil {
		task.Error = tctx.Err.Error()
	}

	task.Status.Append("power state update failed")
	tctx.Logger.WithError(tctx.Err).Error("power state update failed")

	return nil
}
