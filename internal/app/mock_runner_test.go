package app

import (
	"context"

	"github.com/stretchr/testify/mock"

	"dockhand/pkg/runtime"
)

// mockRunner is a testify mock of runtime.CommandRunner matched on the full argv.
type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, args ...string) (runtime.ExecutionResult, error) {
	ret := m.Called(args)
	return ret.Get(0).(runtime.ExecutionResult), ret.Error(1)
}

func (m *mockRunner) expect(res runtime.ExecutionResult, args ...string) *mock.Call {
	return m.On("Run", args).Return(res, nil)
}

const (
	testImage       = "alpine:3.14.0"
	testContainerID = "9c1d2e3f4a5b"
	inspectOutput   = `[{"Id": "sha256:0a97eee8041e"}]`
)
