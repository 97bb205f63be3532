// Package wasmtest builds small hand-encoded guest modules for exercising
// the host side of the credential boundary without a Wasm toolchain.
package wasmtest

// The conforming guest is equivalent to:
//
//	(module
//	  (import "env" "get_access_token" (func (param i32 i32)))
//	  (import "env" "get_instance_url" (func (param i32 i32)))
//	  (memory (export "memory") 1)
//	  (global $heap (mut i32) (i32.const 1024))
//	  (func (export "allocate") (param i32) (result i32)
//	    global.get $heap
//	    global.get $heap
//	    local.get 0
//	    i32.add
//	    global.set $heap)
//	  (func (export "deallocate") (param i32))
//	  (func (export "probe_access_token") (call 0 (i32.const 0) (i32.const 4)))
//	  (func (export "probe_instance_url") (call 1 (i32.const 8) (i32.const 12))))
//
// The probe exports let tests drive the host accessors through a real guest:
// the host writes the buffer address and length at the given offsets.

const (
	// HeapBase is where the fixture allocator starts handing out memory.
	HeapBase = 1024

	ProbeAccessToken = "probe_access_token"
	ProbeInstanceURL = "probe_instance_url"

	// Out-parameter offsets used by the probe exports.
	AccessTokenAddrOut = 0
	AccessTokenLenOut  = 4
	InstanceURLAddrOut = 8
	InstanceURLLenOut  = 12
)

// Options produce non-conforming variants of the fixture guest.
type Options struct {
	// OmitDeallocate drops the deallocate export.
	OmitDeallocate bool

	// OmitMemory drops the memory export.
	OmitMemory bool

	// AllocateNoParams exports allocate as () -> i32.
	AllocateNoParams bool

	// ExtraImport adds env.<name> with the accessor signature.
	ExtraImport string
}

const (
	valI32 = 0x7f

	secType   = 0x01
	secImport = 0x02
	secFunc   = 0x03
	secMemory = 0x05
	secGlobal = 0x06
	secExport = 0x07
	secCode   = 0x0a

	kindFunc   = 0x00
	kindMemory = 0x02

	opEnd       = 0x0b
	opCall      = 0x10
	opLocalGet  = 0x20
	opGlobalGet = 0x23
	opGlobalSet = 0x24
	opI32Const  = 0x41
	opI32Add    = 0x6a
)

// type indices
const (
	typeAllocate   = 0 // (i32) -> i32
	typeDeallocate = 1 // (i32) -> ()
	typeAccessor   = 2 // (i32, i32) -> ()
	typeProbe      = 3 // () -> ()
	typeNoParams   = 4 // () -> i32
)

// ConformingGuest returns a guest that satisfies the boundary contract.
func ConformingGuest() []byte {
	return Guest(Options{})
}

// Guest encodes a fixture guest module.
func Guest(opts Options) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	out = append(out, section(secType, vec(
		funcType([]byte{valI32}, []byte{valI32}),
		funcType([]byte{valI32}, nil),
		funcType([]byte{valI32, valI32}, nil),
		funcType(nil, nil),
		funcType(nil, []byte{valI32}),
	))...)

	imports := [][]byte{
		importFunc("env", "get_access_token", typeAccessor),
		importFunc("env", "get_instance_url", typeAccessor),
	}
	if opts.ExtraImport != "" {
		imports = append(imports, importFunc("env", opts.ExtraImport, typeAccessor))
	}
	out = append(out, section(secImport, vec(imports...))...)

	imported := uint32(len(imports))

	type fn struct {
		name    string
		typeIdx uint32
		body    []byte
	}

	var allocate fn
	if opts.AllocateNoParams {
		allocate = fn{"allocate", typeNoParams, []byte{opGlobalGet, 0}}
	} else {
		allocate = fn{"allocate", typeAllocate, []byte{
			opGlobalGet, 0,
			opGlobalGet, 0,
			opLocalGet, 0,
			opI32Add,
			opGlobalSet, 0,
		}}
	}

	funcs := []fn{allocate}
	if !opts.OmitDeallocate {
		funcs = append(funcs, fn{"deallocate", typeDeallocate, nil})
	}
	funcs = append(funcs,
		fn{ProbeAccessToken, typeProbe, []byte{
			opI32Const, AccessTokenAddrOut,
			opI32Const, AccessTokenLenOut,
			opCall, 0,
		}},
		fn{ProbeInstanceURL, typeProbe, []byte{
			opI32Const, InstanceURLAddrOut,
			opI32Const, InstanceURLLenOut,
			opCall, 1,
		}},
	)

	var types, exports, bodies [][]byte
	if !opts.OmitMemory {
		exports = append(exports, export("memory", kindMemory, 0))
	}
	for i, f := range funcs {
		types = append(types, uleb(f.typeIdx))
		exports = append(exports, export(f.name, kindFunc, imported+uint32(i)))
		bodies = append(bodies, codeBody(f.body))
	}

	out = append(out, section(secFunc, vec(types...))...)
	// one memory, limits: min 1 page, no max
	out = append(out, section(secMemory, vec([]byte{0x00, 0x01}))...)
	// mutable i32 heap pointer initialised to HeapBase (signed LEB128 0x80 0x08)
	out = append(out, section(secGlobal, vec([]byte{valI32, 0x01, opI32Const, 0x80, 0x08, opEnd}))...)
	out = append(out, section(secExport, vec(exports...))...)
	out = append(out, section(secCode, vec(bodies...))...)

	return out
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func vec(items ...[]byte) []byte {
	out := uleb(uint32(len(items)))
	for _, item := range items {
		out = append(out, item...)
	}
	return out
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func section(id byte, body []byte) []byte {
	out := append([]byte{id}, uleb(uint32(len(body)))...)
	return append(out, body...)
}

func funcType(params, results []byte) []byte {
	out := []byte{0x60}
	out = append(out, uleb(uint32(len(params)))...)
	out = append(out, params...)
	out = append(out, uleb(uint32(len(results)))...)
	return append(out, results...)
}

func importFunc(module, field string, typeIdx uint32) []byte {
	out := append(name(module), name(field)...)
	out = append(out, kindFunc)
	return append(out, uleb(typeIdx)...)
}

func export(field string, kind byte, idx uint32) []byte {
	out := append(name(field), kind)
	return append(out, uleb(idx)...)
}

// codeBody wraps instructions in a function body with no locals.
func codeBody(instrs []byte) []byte {
	body := []byte{0x00} // local declaration count
	body = append(body, instrs...)
	body = append(body, opEnd)
	return append(uleb(uint32(len(body))), body...)
}
