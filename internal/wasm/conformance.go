package wasm

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/tetratelabs/wazero/api"

	abi "github.com/woxQAQ/orgcreds-wasm/api/wasm"
)

// Check is the outcome of one conformance check. A nil Err means it passed.
type Check struct {
	Name string
	Err  error
}

// Passed reports whether the check succeeded.
func (c Check) Passed() bool {
	return c.Err == nil
}

var (
	i32 = api.ValueTypeI32

	allocateSig   = funcSig{params: []api.ValueType{i32}, results: []api.ValueType{i32}}
	deallocateSig = funcSig{params: []api.ValueType{i32}}
	accessorSig   = funcSig{params: []api.ValueType{i32, i32}}
)

type funcSig struct {
	params  []api.ValueType
	results []api.ValueType
}

func sigOf(def api.FunctionDefinition) funcSig {
	return funcSig{params: def.ParamTypes(), results: def.ResultTypes()}
}

func (s funcSig) equal(o funcSig) bool {
	return slices.Equal(s.params, o.params) && slices.Equal(s.results, o.results)
}

func (s funcSig) String() string {
	names := func(ts []api.ValueType) string {
		out := make([]string, len(ts))
		for i, t := range ts {
			out[i] = api.ValueTypeName(t)
		}
		return "(" + strings.Join(out, ", ") + ")"
	}
	return names(s.params) + " -> " + names(s.results)
}

// CheckABI statically verifies a compiled guest against the boundary
// contract: the memory, allocate and deallocate exports with their
// signatures, and imports restricted to the env accessors (plus WASI).
func CheckABI(compiled *CompiledModule) []Check {
	mod := compiled.Module
	name := compiled.Name

	checks := make([]Check, 0, 4)

	memCheck := Check{Name: "export:" + abi.ExportMemory}
	if _, ok := mod.ExportedMemories()[abi.ExportMemory]; !ok {
		memCheck.Err = &MissingMemoryError{ModuleName: name, MemoryName: abi.ExportMemory}
	}
	checks = append(checks, memCheck)

	exports := mod.ExportedFunctions()
	for _, want := range []struct {
		fn  string
		sig funcSig
	}{
		{abi.ExportAllocate, allocateSig},
		{abi.ExportDeallocate, deallocateSig},
	} {
		c := Check{Name: "export:" + want.fn}
		def, ok := exports[want.fn]
		switch {
		case !ok:
			c.Err = &FunctionNotFoundError{ModuleName: name, FunctionName: want.fn}
		case !sigOf(def).equal(want.sig):
			c.Err = &SignatureMismatchError{
				ModuleName:   name,
				FunctionName: want.fn,
				Want:         want.sig.String(),
				Got:          sigOf(def).String(),
			}
		}
		checks = append(checks, c)
	}

	checks = append(checks, Check{Name: "imports", Err: checkImports(name, mod.ImportedFunctions())})

	return checks
}

func checkImports(name string, imports []api.FunctionDefinition) error {
	for _, def := range imports {
		module, fn, _ := def.Import()
		if module == abi.WASIModule {
			continue
		}
		if module != abi.ImportModule || !slices.Contains(abi.HostImports, fn) {
			return &UnexpectedImportError{ModuleName: name, ImportModule: module, ImportName: fn}
		}
		if got := sigOf(def); !got.equal(accessorSig) {
			return &SignatureMismatchError{
				ModuleName:   name,
				FunctionName: module + "." + fn,
				Want:         accessorSig.String(),
				Got:          got.String(),
			}
		}
	}
	return nil
}

// ProbeAllocator exercises a live guest's allocator:
//   - allocate(0) is accepted,
//   - for every size, allocate/deallocate/allocate succeeds in bounds,
//   - regions live at the same time do not overlap or corrupt each other.
func ProbeAllocator(ctx context.Context, inst *Instance, sizes []uint32) []Check {
	mem := inst.Memory()
	checks := make([]Check, 0, len(sizes)+2)

	zero := Check{Name: "allocate:zero"}
	if ptr, err := inst.Allocate(ctx, 0); err != nil {
		zero.Err = err
	} else {
		zero.Err = inst.Deallocate(ctx, ptr)
	}
	checks = append(checks, zero)

	for _, size := range sizes {
		checks = append(checks, Check{
			Name: fmt.Sprintf("allocate:cycle/%d", size),
			Err:  probeCycle(ctx, inst, mem, size),
		})
	}

	checks = append(checks, Check{Name: "allocate:disjoint", Err: probeDisjoint(ctx, inst, mem, sizes)})

	return checks
}

func probeCycle(ctx context.Context, inst *Instance, mem *Memory, size uint32) error {
	for round := 0; round < 2; round++ {
		ptr, err := inst.Allocate(ctx, size)
		if err != nil {
			return err
		}
		if size > 0 {
			if uint64(ptr)+uint64(size) > uint64(mem.Size()) {
				return &MemoryAccessError{Operation: "allocate", Address: ptr, Length: size, Err: ErrOutOfBounds}
			}
			if ptr == 0 {
				return &MemoryAccessError{Operation: "allocate", Length: size, Err: fmt.Errorf("null address")}
			}
		}
		if err := inst.Deallocate(ctx, ptr); err != nil {
			return err
		}
	}
	return nil
}

func probeDisjoint(ctx context.Context, inst *Instance, mem *Memory, sizes []uint32) error {
	type region struct {
		ptr, size uint32
		fill      byte
	}

	var live []region
	defer func() {
		for _, r := range live {
			_ = inst.Deallocate(ctx, r.ptr)
		}
	}()

	for i, size := range sizes {
		if size == 0 {
			continue
		}
		ptr, err := inst.Allocate(ctx, size)
		if err != nil {
			return err
		}
		r := region{ptr: ptr, size: size, fill: byte(i + 1)}
		live = append(live, r)

		view, ok := mem.ReadBytes(ptr, size)
		if !ok {
			return &MemoryAccessError{Operation: "write", Address: ptr, Length: size, Err: ErrOutOfBounds}
		}
		for j := range view {
			view[j] = r.fill
		}
	}

	for _, r := range live {
		view, ok := mem.ReadBytes(r.ptr, r.size)
		if !ok {
			return &MemoryAccessError{Operation: "read", Address: r.ptr, Length: r.size, Err: ErrOutOfBounds}
		}
		if !bytes.Equal(view, bytes.Repeat([]byte{r.fill}, int(r.size))) {
			return &MemoryAccessError{
				Operation: "read",
				Address:   r.ptr,
				Length:    r.size,
				Err:       fmt.Errorf("region overlaps another live allocation"),
			}
		}
	}

	return nil
}
