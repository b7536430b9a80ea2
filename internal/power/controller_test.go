package power

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/metal-toolbox/powerctl/internal/fixtures"
	"github.com/metal-toolbox/powerctl/internal/inventory"
	"github.com/metal-toolbox/powerctl/internal/model"
	"github.com/metal-toolbox/powerctl/internal/store"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard

	return l
}

func postsTo(f *fixtures.FakeIntersight) []fixtures.FakeCall {
	posts := []fixtures.FakeCall{}

	for _, c := range f.Calls() {
		if c.Method == http.MethodPost {
			posts = append(posts, c)
		}
	}

	return posts
}

func TestUpdatePowerState(t *testing.T) {
	blade1 := model.ServerTarget{Identifier: "Demo-Blade-Server-1", FormFactor: model.FormFactorBlade, ConnectionType: model.ConnectionFIAttached}
	rack1 := model.ServerTarget{Identifier: "WZP23420ABC", FormFactor: model.FormFactorRack, ConnectionType: model.ConnectionStandalone}

	tests := []struct {
		name         string
		target       model.ServerTarget
		powerState   string
		opts         Options
		setup        func(f *fixtures.FakeIntersight)
		wantState    string
		wantBackend  string
		wantSettings string
		wantPost     bool
		wantErr      error
	}{
		{
			name:         "blade power on",
			target:       blade1,
			powerState:   "Power On",
			wantState:    "succeeded",
			wantBackend:  "PowerOn",
			wantSettings: fixtures.Blade1SettingsMoid,
			wantPost:     true,
		},
		{
			name:         "defaults applied to target",
			target:       model.ServerTarget{Identifier: "FCH2511722B"},
			powerState:   "power off",
			wantState:    "succeeded",
			wantBackend:  "PowerOff",
			wantSettings: fixtures.Blade2SettingsMoid,
			wantPost:     true,
		},
		{
			name:         "standalone rack reboot CIMC",
			target:       rack1,
			powerState:   "Reboot CIMC",
			wantState:    "succeeded",
			wantBackend:  "Reboot",
			wantSettings: fixtures.Rack1SettingsMoid,
			wantPost:     true,
		},
		{
			name:         "unknown power state passed through",
			target:       blade1,
			powerState:   "Foo",
			wantState:    "succeeded",
			wantBackend:  "Foo",
			wantSettings: fixtures.Blade1SettingsMoid,
			wantPost:     true,
		},
		{
			name:         "settings scoped to another organization",
			target:       blade1,
			powerState:   "Shutdown",
			opts:         Options{Organization: "engineering"},
			wantState:    "succeeded",
			wantBackend:  "Shutdown",
			wantSettings: fixtures.Blade1EngSettingsMoid,
			wantPost:     true,
		},
		{
			name:         "dry run",
			target:       blade1,
			powerState:   "Hard Reset",
			opts:         Options{DryRun: true},
			wantState:    "succeeded",
			wantBackend:  "HardReset",
			wantSettings: fixtures.Blade1SettingsMoid,
		},
		{
			name:       "server not found",
			target:     model.ServerTarget{Identifier: "FCH0000000X"},
			powerState: "Power On",
			wantState:  "failed",
			wantErr:    inventory.ErrServerNotFound,
		},
		{
			name:       "settings not found",
			target:     blade1,
			powerState: "Power On",
			setup: func(f *fixtures.FakeIntersight) {
				f.SetResponse(http.MethodGet, fixtures.ServerSettingsPath, `{"Results": []}`)
			},
			wantState: "failed",
			wantErr:   inventory.ErrObjectNotFound,
		},
		{
			name:       "write fails",
			target:     blade1,
			powerState: "Power Cycle",
			setup: func(f *fixtures.FakeIntersight) {
				f.SetError(http.MethodPost, ServerSettingsPath+"/"+fixtures.Blade1SettingsMoid, fixtures.StatusError(http.StatusForbidden))
			},
			wantState:    "failed",
			wantBackend:  "PowerCycle",
			wantSettings: fixtures.Blade1SettingsMoid,
			wantPost:     true,
			wantErr:      ErrPowerStateUpdate,
		},
		{
			name:       "account unavailable",
			target:     blade1,
			powerState: "Power On",
			setup: func(f *fixtures.FakeIntersight) {
				f.SetError(http.MethodGet, fixtures.AccountsPath, fixtures.StatusError(http.StatusUnauthorized))
			},
			wantState: "failed",
			wantErr:   inventory.ErrAccountAccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := fixtures.NewFakeIntersight()
			if tt.setup != nil {
				tt.setup(fake)
			}

			taskStore := store.NewMemStore()
			tt.opts.Store = taskStore

			c := New(fake, testLogger(), tt.opts)

			task, err := c.UpdatePowerState(context.Background(), tt.target, tt.powerState)
			require.NotNil(t, task)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, task.Error, tt.wantErr.Error())
			} else {
				require.Nil(t, err)
				assert.Empty(t, task.Error)
			}

			assert.Equal(t, tt.wantState, string(task.State()))
			assert.Equal(t, tt.wantBackend, task.BackendValue)
			assert.Equal(t, tt.wantSettings, task.SettingsMoid)
			assert.True(t, task.Completed())

			stored, err := taskStore.TaskByID(context.Background(), task.ID.String())
			require.Nil(t, err)
			assert.Equal(t, task.State(), stored.State())

			posts := postsTo(fake)
			if !tt.wantPost {
				assert.Empty(t, posts)
				return
			}

			require.Len(t, posts, 1)
			assert.Equal(t, ServerSettingsPath+"/"+tt.wantSettings, posts[0].Path)
			assert.Equal(t, map[string]interface{}{"AdminPowerState": tt.wantBackend}, posts[0].Body)
		})
	}
}

func TestUpdatePowerStateServerReference(t *testing.T) {
	fake := fixtures.NewFakeIntersight()
	c := New(fake, testLogger(), Options{BaseURL: fixtures.BaseURL})

	task, err := c.UpdatePowerState(
		context.Background(),
		model.ServerTarget{Identifier: "db-primary", FormFactor: model.FormFactorBlade, ConnectionType: model.ConnectionFIAttached},
		"Power On",
	)
	require.Nil(t, err)

	assert.Equal(t, "Demo-Blade-Server-2", task.ServerName)
	assert.Equal(
		t,
		&model.ObjectReference{
			ClassID:    "mo.MoRef",
			Moid:       fixtures.Blade2Moid,
			ObjectType: "compute.Blade",
			Link:       fixtures.BaseURL + "/compute/Blades/" + fixtures.Blade2Moid,
		},
		task.Server,
	)
}

func TestUpdatePowerStateAccountFailureStopsEarly(t *testing.T) {
	ctrl := gomock.NewController(t)
	caller := fixtures.NewMockCaller(ctrl)

	// no collection is fetched and nothing is written once the account check fails
	caller.EXPECT().
		Call(gomock.Any(), http.MethodGet, fixtures.AccountsPath, nil).
		Times(1).
		Return(nil, fixtures.StatusError(http.StatusUnauthorized))

	c := New(caller, testLogger(), Options{})

	task, err := c.UpdatePowerState(context.Background(), model.ServerTarget{Identifier: "x"}, "Power On")
	assert.ErrorIs(t, err, inventory.ErrAccountAccess)
	assert.Equal(t, model.StateFailed, task.State())

	tasks, _ := c.Store().Tasks(context.Background())
	require.Len(t, tasks, 1)
	assert.Equal(t, model.StateFailed, tasks[0].State())
}
