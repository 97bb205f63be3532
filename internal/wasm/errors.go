package wasm

import (
	"errors"
	"fmt"
	"time"
)

// ErrOutOfBounds is wrapped by MemoryAccessError when a region falls
// outside the guest's linear memory.
var ErrOutOfBounds = errors.New("out of bounds")

// CompilationError occurs when Wasm module compilation fails
type CompilationError struct {
	ModuleName string
	Err        error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("failed to compile Wasm module '%s': %v", e.ModuleName, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// InstantiationError occurs when module instantiation fails
type InstantiationError struct {
	ModuleName string
	InstanceID string
	Err        error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to instantiate module '%s' (instance: %s): %v",
		e.ModuleName, e.InstanceID, e.Err)
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}

// ModuleNotFoundError occurs when a module is not in cache
type ModuleNotFoundError struct {
	ModuleName string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module '%s' not found in cache", e.ModuleName)
}

// FunctionNotFoundError occurs when an exported function is missing
type FunctionNotFoundError struct {
	ModuleName   string
	FunctionName string
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("function '%s' not found in module '%s'",
		e.FunctionName, e.ModuleName)
}

// MissingMemoryError occurs when a guest does not export its linear memory.
type MissingMemoryError struct {
	ModuleName string
	MemoryName string
}

func (e *MissingMemoryError) Error() string {
	return fmt.Sprintf("memory '%s' not exported by module '%s'", e.MemoryName, e.ModuleName)
}

// SignatureMismatchError occurs when an export or import has the wrong type.
type SignatureMismatchError struct {
	ModuleName   string
	FunctionName string
	Want         string
	Got          string
}

func (e *SignatureMismatchError) Error() string {
	return fmt.Sprintf("function '%s' in module '%s' has signature %s, want %s",
		e.FunctionName, e.ModuleName, e.Got, e.Want)
}

// UnexpectedImportError occurs when a guest imports something the host
// does not provide.
type UnexpectedImportError struct {
	ModuleName   string
	ImportModule string
	ImportName   string
}

func (e *UnexpectedImportError) Error() string {
	return fmt.Sprintf("module '%s' imports unsupported function '%s.%s'",
		e.ModuleName, e.ImportModule, e.ImportName)
}

// MemoryAccessError occurs when memory operations fail
type MemoryAccessError struct {
	Operation string
	Address   uint32
	Length    uint32
	Err       error
}

func (e *MemoryAccessError) Error() string {
	return fmt.Sprintf("memory access failed (op=%s, addr=%d, len=%d): %v",
		e.Operation, e.Address, e.Length, e.Err)
}

func (e *MemoryAccessError) Unwrap() error {
	return e.Err
}

// HostFunctionError occurs when host function execution fails
type HostFunctionError struct {
	FunctionName string
	Err          error
}

func (e *HostFunctionError) Error() string {
	return fmt.Sprintf("host function '%s' failed: %v", e.FunctionName, e.Err)
}

func (e *HostFunctionError) Unwrap() error {
	return e.Err
}

// InstanceLimitError occurs when MaxInstances instances are already active.
type InstanceLimitError struct {
	Max int
}

func (e *InstanceLimitError) Error() string {
	return fmt.Sprintf("instance limit reached (max: %d)", e.Max)
}

// TimeoutError occurs when Wasm execution times out
type TimeoutError struct {
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Wasm execution timed out after %v", e.Duration)
}
