package tts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

// fakeRunner is a scripted CommandRunner. Executables are installed by
// name; run results and spawn errors are keyed by executable base name.
type fakeRunner struct {
	mu      sync.Mutex
	paths   map[string]string
	results map[string]RunResult
	errs    map[string]error
	calls   []fakeCall
}

type fakeCall struct {
	name string
	args []string
}

func newFakeRunner(names ...string) *fakeRunner {
	f := &fakeRunner{
		paths:   make(map[string]string),
		results: make(map[string]RunResult),
		errs:    make(map[string]error),
	}
	for _, name := range names {
		f.install(name)
	}
	return f
}

func (f *fakeRunner) install(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths[name] = "/usr/bin/" + name
}

func (f *fakeRunner) setResult(name string, res RunResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[name] = res
}

func (f *fakeRunner) setError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[name] = err
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if path, ok := f.paths[name]; ok {
		return path, nil
	}
	return "", fmt.Errorf("%s not found on PATH", name)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (RunResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{name: name, args: args})
	res := f.results[filepath.Base(name)]
	err := f.errs[filepath.Base(name)]
	f.mu.Unlock()

	if ctx.Err() != nil {
		return RunResult{}, ctx.Err()
	}
	return res, err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRunner) lastCall(t *testing.T) fakeCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no commands were run")
	}
	return f.calls[len(f.calls)-1]
}

var _ CommandRunner = (*fakeRunner)(nil)

func TestExecRunner_LookPath_Missing(t *testing.T) {
	runner := NewExecRunner()
	if _, err := runner.LookPath("pai-no-such-binary"); err == nil {
		t.Error("LookPath() should fail for a missing binary")
	}
}

func TestExecRunner_Run_SpawnError(t *testing.T) {
	runner := NewExecRunner()
	_, err := runner.Run(context.Background(), "/nonexistent/pai-test-binary")
	if err == nil {
		t.Error("Run() should fail when the binary does not exist")
	}
}

func TestExecRunner_Run_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewExecRunner()
	_, err := runner.Run(ctx, "/nonexistent/pai-test-binary")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
