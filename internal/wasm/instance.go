package wasm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	abi "github.com/woxQAQ/orgcreds-wasm/api/wasm"
)

// InstanceManager creates and manages module instances.
type InstanceManager struct {
	runtime   *Runtime
	logger    *zap.Logger
	hostFuncs *HostFunctionsImpl
}

// NewInstanceManager creates a new instance manager.
func NewInstanceManager(runtime *Runtime, hostFuncs *HostFunctionsImpl, logger *zap.Logger) *InstanceManager {
	return &InstanceManager{
		runtime:   runtime,
		hostFuncs: hostFuncs,
		logger:    logger.With(zap.String("component", "wasm-instance")),
	}
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// Module name to instantiate.
	ModuleName string

	// Instance ID (if empty, one is generated).
	InstanceID string
}

// Instance represents an instantiated Wasm module.
type Instance struct {
	// wazero module instance.
	module api.Module

	runtime *Runtime
	timeout time.Duration

	// Instance metadata.
	ID        string
	Name      string
	CreatedAt int64

	// Exported functions (cached for performance).
	exports map[string]api.Function
}

// Instantiate creates a new instance from a compiled module.
// The env host functions are linked into the guest.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	compiled, ok := m.runtime.GetCompiledModule(config.ModuleName)
	if !ok {
		return nil, &ModuleNotFoundError{ModuleName: config.ModuleName}
	}

	if limit := m.runtime.config.MaxInstances; limit > 0 && m.runtime.ActiveInstances() >= limit {
		return nil, &InstanceLimitError{Max: limit}
	}

	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = generateInstanceID()
	}

	m.logger.Info("Instantiating Wasm module",
		zap.String("module", config.ModuleName),
		zap.String("instance_id", instanceID),
	)

	if err := m.ensureHostModules(ctx); err != nil {
		return nil, err
	}

	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithStartFunctions()

	// Reactor modules (Go c-shared, TinyGo) must run _initialize before
	// any export is called.
	if _, ok := compiled.Module.ExportedFunctions()[abi.ExportInitialize]; ok {
		moduleConfig = moduleConfig.WithStartFunctions(abi.ExportInitialize)
	}

	if m.runtime.config.DebugEnabled {
		moduleConfig = moduleConfig.WithStdout(os.Stderr).WithStderr(os.Stderr)
	}

	module, err := m.runtime.runtime.InstantiateModule(ctx, compiled.Module, moduleConfig)
	if err != nil {
		return nil, &InstantiationError{
			ModuleName: config.ModuleName,
			InstanceID: instanceID,
			Err:        err,
		}
	}

	exports := m.cacheExportedFunctions(module)

	instance := &Instance{
		module:    module,
		runtime:   m.runtime,
		timeout:   m.runtime.config.ExecutionTimeout,
		ID:        instanceID,
		Name:      config.ModuleName,
		CreatedAt: time.Now().Unix(),
		exports:   exports,
	}

	m.runtime.StoreInstance(instanceID, instance)

	m.logger.Info("Module instantiated successfully",
		zap.String("instance_id", instanceID),
		zap.Int("exported_functions", len(exports)),
	)

	return instance, nil
}

// ensureHostModules instantiates wasi_snapshot_preview1 and the env host
// module once per runtime.
func (m *InstanceManager) ensureHostModules(ctx context.Context) error {
	r := m.runtime
	r.hostOnce.Do(func() {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, r.runtime); err != nil {
			r.hostErr = fmt.Errorf("failed to instantiate WASI: %w", err)
			return
		}

		builder := r.runtime.NewHostModuleBuilder(abi.ImportModule)
		m.exportHostFunctions(builder)

		if _, err := builder.Instantiate(ctx); err != nil {
			r.hostErr = fmt.Errorf("failed to instantiate host module: %w", err)
		}
	})
	return r.hostErr
}

// exportHostFunctions registers Go functions for import by Wasm modules.
func (m *InstanceManager) exportHostFunctions(builder wazero.HostModuleBuilder) {
	impl := m.hostFuncs

	builder.NewFunctionBuilder().
		WithFunc(impl.getAccessToken).
		WithParameterNames("addr_out", "len_out").
		Export(abi.ImportGetAccessToken)

	builder.NewFunctionBuilder().
		WithFunc(impl.getInstanceURL).
		WithParameterNames("addr_out", "len_out").
		Export(abi.ImportGetInstanceURL)
}

// cacheExportedFunctions caches references to the boundary exports.
func (m *InstanceManager) cacheExportedFunctions(module api.Module) map[string]api.Function {
	exports := make(map[string]api.Function)

	for _, name := range []string{abi.ExportAllocate, abi.ExportDeallocate} {
		if fn := module.ExportedFunction(name); fn != nil {
			exports[name] = fn
		}
	}

	return exports
}

// Call invokes an exported function, bounded by the execution timeout.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn, ok := i.exports[name]
	if !ok {
		if fn = i.module.ExportedFunction(name); fn == nil {
			return nil, &FunctionNotFoundError{ModuleName: i.Name, FunctionName: name}
		}
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	res, err := fn.Call(ctx, params...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Duration: i.timeout}
		}
		return nil, fmt.Errorf("call to '%s' in module '%s' failed: %w", name, i.Name, err)
	}

	return res, nil
}

// Allocate calls the guest's allocate export.
func (i *Instance) Allocate(ctx context.Context, size uint32) (uint32, error) {
	res, err := i.Call(ctx, abi.ExportAllocate, uint64(size))
	if err != nil {
		return 0, err
	}
	return uint32(res[0]), nil
}

// Deallocate calls the guest's deallocate export.
func (i *Instance) Deallocate(ctx context.Context, ptr uint32) error {
	_, err := i.Call(ctx, abi.ExportDeallocate, uint64(ptr))
	return err
}

// Memory returns a helper over the instance's linear memory.
func (i *Instance) Memory() *Memory {
	return NewMemory(i.module)
}

// Close closes the instance and releases resources.
func (i *Instance) Close(ctx context.Context) error {
	i.runtime.DeleteInstance(i.ID)
	return i.module.Close(ctx)
}

var instanceSeq atomic.Uint64

// generateInstanceID generates a unique instance ID.
func generateInstanceID() string {
	return fmt.Sprintf("inst-%d-%d", time.Now().UnixNano(), instanceSeq.Add(1))
}
