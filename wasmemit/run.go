package wasmemit

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/regionlift/errors"
	"github.com/wippyai/regionlift/region"
)

// Chooser picks the successor index for a block with n > 1 successors.
// Results outside [0, n) select the last successor.
type Chooser func(block region.ID, n int) int

// Config holds configuration for runner creation.
type Config struct {
	Logger *zap.Logger
	// MemoryLimitPages caps guest memory; emitted modules declare none, so
	// this only matters for foreign modules passed to Run.
	MemoryLimitPages uint32
}

// Runner executes emitted modules with wazero. It is safe for concurrent
// use; per-run state travels in the call context.
type Runner struct {
	runtime wazero.Runtime
	logger  *zap.Logger
	mu      sync.Mutex
	closed  bool
}

type runKey struct{}

// runState is the host side of one execution.
type runState struct {
	choose    Chooser
	trace     []region.ID
	fuel      int
	exhausted bool
}

// NewRunner creates a runtime with the env host module instantiated.
func NewRunner(ctx context.Context, cfg Config) (*Runner, error) {
	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	_, err := rt.NewHostModuleBuilder(ImportModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(hostVisit),
			[]api.ValueType{api.ValueTypeI32}, nil).
		Export(ImportVisit).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(hostChoose),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		Export(ImportChoose).
		Instantiate(ctx)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindInternal, err, "instantiate env host module")
	}

	return &Runner{runtime: rt, logger: logger}, nil
}

func hostVisit(ctx context.Context, _ api.Module, stack []uint64) {
	st := ctx.Value(runKey{}).(*runState)
	if len(st.trace) >= st.fuel {
		st.exhausted = true
		panic(errors.FuelExhausted(st.fuel))
	}
	st.trace = append(st.trace, region.ID(api.DecodeI32(stack[0])))
}

func hostChoose(ctx context.Context, _ api.Module, stack []uint64) {
	st := ctx.Value(runKey{}).(*runState)
	block := region.ID(api.DecodeI32(stack[0]))
	n := int(api.DecodeI32(stack[1]))
	k := 0
	if st.choose != nil {
		k = st.choose(block, n)
	}
	stack[0] = api.EncodeI32(int32(clamp(k, n)))
}

// clamp maps out-of-range choices to the last successor.
func clamp(k, n int) int {
	if k < 0 || k >= n {
		return n - 1
	}
	return k
}

// Run executes run() of an emitted module and returns the visited blocks in
// order. More than fuel visits abort the run with KindFuelExhausted; the
// trace gathered so far is returned alongside the error.
func (r *Runner) Run(ctx context.Context, module []byte, choose Chooser, fuel int) ([]region.ID, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, errors.InvalidArgument(errors.PhaseRuntime, "runner is closed")
	}
	if fuel <= 0 {
		return nil, errors.InvalidArgument(errors.PhaseRuntime, "fuel must be positive")
	}

	compiled, err := r.runtime.CompileModule(ctx, module)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidData, err, "compile module")
	}
	defer compiled.Close(ctx)

	// Anonymous instances so concurrent runs do not collide on the name.
	mod, err := r.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindInternal, err, "instantiate module")
	}
	defer mod.Close(ctx)

	fn := mod.ExportedFunction(ExportRun)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", ExportRun)
	}

	st := &runState{choose: choose, fuel: fuel}
	_, err = fn.Call(context.WithValue(ctx, runKey{}, st))
	if st.exhausted {
		r.logger.Debug("fuel exhausted", zap.Int("fuel", fuel))
		return st.trace, errors.FuelExhausted(fuel)
	}
	if err != nil {
		return st.trace, errors.Wrap(errors.PhaseRuntime, errors.KindInternal, err, "call "+ExportRun)
	}
	r.logger.Debug("run finished", zap.Int("visits", len(st.trace)))
	return st.trace, nil
}

// Close releases the runtime.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.runtime.Close(ctx)
}

// Run executes module once on a throwaway runner.
func Run(ctx context.Context, module []byte, choose Chooser, fuel int) ([]region.ID, error) {
	r, err := NewRunner(ctx, Config{})
	if err != nil {
		return nil, err
	}
	defer r.Close(ctx)
	return r.Run(ctx, module, choose, fuel)
}
