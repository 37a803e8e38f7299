package docker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"dockhand/pkg/runtime"
)

type fakeRunner struct {
	mu        sync.Mutex
	responses map[string][]fakeResponse
	calls     [][]string
}

type fakeResponse struct {
	res runtime.ExecutionResult
	err error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		responses: make(map[string][]fakeResponse),
	}
}

func (f *fakeRunner) stub(args string, out, stderr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[args] = append(f.responses[args], fakeResponse{res: runtime.ExecutionResult{Out: out, Err: stderr}})
}

func (f *fakeRunner) stubErr(args string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[args] = append(f.responses[args], fakeResponse{err: err})
}

func (f *fakeRunner) Run(ctx context.Context, args ...string) (runtime.ExecutionResult, error) {
	key := strings.Join(args, " ")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), args...))
	queue := f.responses[key]
	if len(queue) == 0 {
		return runtime.ExecutionResult{}, fmt.Errorf("unexpected docker call: %s", key)
	}
	resp := queue[0]
	f.responses[key] = queue[1:]
	return resp.res, resp.err
}

func (f *fakeRunner) callsFor(args ...string) int {
	key := strings.Join(args, " ")
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if strings.Join(call, " ") == key {
			count++
		}
	}
	return count
}

func (f *fakeRunner) lastCall() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}
