package runner

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	"github.com/metal-toolbox/powerctl/internal/model"
)

// MockController is a mock type for the Controller type
type MockController struct {
	mock.Mock
}

// AccountName provides a mock function with given fields: ctx
func (_m *MockController) AccountName(ctx context.Context) (string, error) {
	ret := _m.Called(ctx)

	return ret.String(0), ret.Error(1)
}

// UpdatePowerState provides a mock function with given fields: ctx, target, powerState
func (_m *MockController) UpdatePowerState(ctx context.Context, target model.ServerTarget, powerState string) (*model.Task, error) {
	ret := _m.Called(ctx, target, powerState)

	var r0 *model.Task
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Task)
	}

	return r0, ret.Error(1)
}
