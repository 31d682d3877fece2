package wasmemit

import (
	"github.com/wippyai/regionlift/errors"
	"github.com/wippyai/regionlift/region"
	"github.com/wippyai/regionlift/wasmemit/internal/binary"
)

// Section ids.
const (
	sectionType     = 0x01
	sectionImport   = 0x02
	sectionFunction = 0x03
	sectionExport   = 0x07
	sectionCode     = 0x0A
)

// Opcodes used by the lowering.
const (
	opBlock    = 0x02
	opLoop     = 0x03
	opIf       = 0x04
	opElse     = 0x05
	opEnd      = 0x0B
	opBr       = 0x0C
	opBrIf     = 0x0D
	opCall     = 0x10
	opLocalGet = 0x20
	opLocalSet = 0x21
	opI32Const = 0x41
	opI32Eqz   = 0x45
	opI32Eq    = 0x46
	opI32Or    = 0x72

	blockTypeEmpty = 0x40
	valTypeI32     = 0x7F
	funcTypeMarker = 0x60
	externFunc     = 0x00
)

// Function indices: imports first, then the exported body.
const (
	funcVisit  = 0
	funcChoose = 1
	funcRun    = 2
)

// Locals of run.
const (
	localNext = 0
	localTmp  = 1
)

const (
	ImportModule = "env"
	ImportVisit  = "visit"
	ImportChoose = "choose"
	ExportRun    = "run"
)

// Emit lowers a lifted tree into a module with one exported function, run.
//
// The module imports env.visit(block i32) and env.choose(block, n i32) i32.
// run keeps the next block to execute in a local. Every composite becomes a
// loop that dispatches on that local to the child holding the block, and
// falls out once the block lies outside the composite. Every leaf calls
// visit and selects its successor, asking choose when there is more than
// one. The function returns when a leaf without successors ran.
func Emit(tree *region.Tree) ([]byte, error) {
	if tree == nil {
		return nil, errors.InvalidArgument(errors.PhaseEmit, "nil tree")
	}
	root := tree.Root()
	if tree.Region(root) == nil {
		return nil, errors.OutOfBounds(errors.PhaseEmit, nil, int(root), tree.Len())
	}
	entry := region.NoRegion
	for _, l := range tree.Leaves(root) {
		if tree.Region(l).IsFunctionEntrypoint() {
			entry = l
			break
		}
	}
	if entry == region.NoRegion {
		return nil, errors.Internal(errors.PhaseEmit, "root does not contain the entry block")
	}

	code := &binary.Buffer{}
	code.AppendByte(opI32Const)
	code.WriteI32(int32(entry))
	code.AppendByte(opLocalSet)
	code.WriteU32(localNext)
	if err := lower(code, tree, root); err != nil {
		return nil, err
	}
	code.AppendByte(opEnd)

	body := &binary.Buffer{}
	body.WriteU32(1) // one local group
	body.WriteU32(2)
	body.AppendByte(valTypeI32)
	body.WriteBytes(code.Bytes)

	return encodeModule(body), nil
}

type taskKind uint8

const (
	taskLower taskKind = iota
	taskChild
	taskBytes
)

type task struct {
	raw  []byte
	id   region.ID
	kind taskKind
}

// lower writes the code for root using an explicit work stack. Trees nest
// one level per rewrite, so recursion depth would follow the function size.
func lower(code *binary.Buffer, tree *region.Tree, root region.ID) error {
	stack := []task{{kind: taskLower, id: root}}
	if tree.Region(tree.Resolve(root)).Variant() == region.BasicBlock {
		// A bare leaf still needs a dispatch frame for its br targets.
		stack[0] = task{kind: taskChild, id: root}
		code.AppendByte(opLoop)
		code.AppendByte(blockTypeEmpty)
		stack = append([]task{{kind: taskBytes, raw: []byte{opEnd}}}, stack...)
	}

	for len(stack) > 0 {
		tk := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch tk.kind {
		case taskBytes:
			code.WriteBytes(tk.raw)

		case taskChild:
			// block; br_if 0 unless $next is one of the child's blocks;
			// <child>; br 1 (re-dispatch); end
			code.AppendByte(opBlock)
			code.AppendByte(blockTypeEmpty)
			writeMembership(code, tree.Leaves(tk.id))
			code.AppendByte(opI32Eqz)
			code.AppendByte(opBrIf)
			code.WriteU32(0)
			stack = append(stack,
				task{kind: taskBytes, raw: []byte{opBr, 1, opEnd}},
				task{kind: taskLower, id: tk.id})

		case taskLower:
			id := tree.Resolve(tk.id)
			r := tree.Region(id)
			if r == nil {
				return errors.OutOfBounds(errors.PhaseEmit, nil, int(id), tree.Len())
			}
			switch r.Variant() {
			case region.BasicBlock:
				writeLeaf(code, id, r.Successors())
			case region.Composite:
				code.AppendByte(opLoop)
				code.AppendByte(blockTypeEmpty)
				stack = append(stack, task{kind: taskBytes, raw: []byte{opEnd}})
				children := r.Children()
				for i := len(children) - 1; i >= 0; i-- {
					stack = append(stack, task{kind: taskChild, id: children[i]})
				}
			default:
				return errors.Internal(errors.PhaseEmit, "unresolved alias "+tree.Label(id))
			}
		}
	}
	return nil
}

// writeMembership leaves 1 on the stack when $next is one of leaves.
func writeMembership(code *binary.Buffer, leaves []region.ID) {
	if len(leaves) == 0 {
		code.AppendByte(opI32Const)
		code.WriteI32(0)
		return
	}
	for i, l := range leaves {
		code.AppendByte(opLocalGet)
		code.WriteU32(localNext)
		code.AppendByte(opI32Const)
		code.WriteI32(int32(l))
		code.AppendByte(opI32Eq)
		if i > 0 {
			code.AppendByte(opI32Or)
		}
	}
}

// writeLeaf reports the visit and stores the chosen successor, or -1 when
// the block exits the function. An out-of-range choice takes the last
// successor.
func writeLeaf(code *binary.Buffer, id region.ID, succs []region.ID) {
	code.AppendByte(opI32Const)
	code.WriteI32(int32(id))
	code.AppendByte(opCall)
	code.WriteU32(funcVisit)

	switch len(succs) {
	case 0:
		setNext(code, -1)
		return
	case 1:
		setNext(code, int32(succs[0]))
		return
	}

	code.AppendByte(opI32Const)
	code.WriteI32(int32(id))
	code.AppendByte(opI32Const)
	code.WriteI32(int32(len(succs)))
	code.AppendByte(opCall)
	code.WriteU32(funcChoose)
	code.AppendByte(opLocalSet)
	code.WriteU32(localTmp)

	// if $tmp == 0 { s0 } else if $tmp == 1 { s1 } ... else { sN-1 }
	last := len(succs) - 1
	for k := 0; k < last; k++ {
		code.AppendByte(opLocalGet)
		code.WriteU32(localTmp)
		code.AppendByte(opI32Const)
		code.WriteI32(int32(k))
		code.AppendByte(opI32Eq)
		code.AppendByte(opIf)
		code.AppendByte(blockTypeEmpty)
		setNext(code, int32(succs[k]))
		code.AppendByte(opElse)
	}
	setNext(code, int32(succs[last]))
	for k := 0; k < last; k++ {
		code.AppendByte(opEnd)
	}
}

func setNext(code *binary.Buffer, v int32) {
	code.AppendByte(opI32Const)
	code.WriteI32(v)
	code.AppendByte(opLocalSet)
	code.WriteU32(localNext)
}

func encodeModule(body *binary.Buffer) []byte {
	buf := &binary.Buffer{}
	buf.WriteBytes([]byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}) // magic + version

	types := &binary.Buffer{}
	types.WriteU32(3)
	// 0: (i32) -> ()
	types.WriteBytes([]byte{funcTypeMarker, 1, valTypeI32, 0})
	// 1: (i32, i32) -> i32
	types.WriteBytes([]byte{funcTypeMarker, 2, valTypeI32, valTypeI32, 1, valTypeI32})
	// 2: () -> ()
	types.WriteBytes([]byte{funcTypeMarker, 0, 0})
	buf.WriteSection(sectionType, types)

	imports := &binary.Buffer{}
	imports.WriteU32(2)
	imports.WriteString(ImportModule)
	imports.WriteString(ImportVisit)
	imports.AppendByte(externFunc)
	imports.WriteU32(0)
	imports.WriteString(ImportModule)
	imports.WriteString(ImportChoose)
	imports.AppendByte(externFunc)
	imports.WriteU32(1)
	buf.WriteSection(sectionImport, imports)

	funcs := &binary.Buffer{}
	funcs.WriteU32(1)
	funcs.WriteU32(2)
	buf.WriteSection(sectionFunction, funcs)

	exports := &binary.Buffer{}
	exports.WriteU32(1)
	exports.WriteString(ExportRun)
	exports.AppendByte(externFunc)
	exports.WriteU32(funcRun)
	buf.WriteSection(sectionExport, exports)

	code := &binary.Buffer{}
	code.WriteU32(1)
	code.WriteU32(uint32(body.Len()))
	code.WriteBytes(body.Bytes)
	buf.WriteSection(sectionCode, code)

	return buf.Bytes
}
