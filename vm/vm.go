package vm

import (
	"fmt"
	"os"

	"ankoku/compiler"

	"github.com/sirupsen/logrus"
)

// gcAllocationThreshold sets when maybeCollect runs a collection at one of
// the allocation sites the design calls out (NewObject, string
// concatenation, DefineGlobal): whenever the heap arena's length (live
// plus freed slots) is a non-zero multiple of it. It is a simple size
// trigger, not a generational heuristic.
const gcAllocationThreshold = 256

// VM is the single-threaded stack interpreter. It owns the operand stack,
// the globals table, and the heap arena; none of this state is ever
// shared or mutated from outside Run.
type VM struct {
	stack    Stack
	ip       int
	globals  *HashTable
	heap     *Heap
	interner *stringInterner

	debug   bool
	gcDebug bool
}

// New builds a VM with empty globals and an empty heap.
func New() *VM {
	return &VM{
		globals:  newHashTable(),
		heap:     newHeap(),
		interner: newStringInterner(),
	}
}

// SetDebug enables a per-instruction stack trace to logrus.
func (vm *VM) SetDebug(debug bool) { vm.debug = debug }

// SetGCDebug enables collect()'s begin/end trace lines and forces a
// collection at every eligible allocation site instead of waiting for the
// size threshold, which is useful for shaking out GC bugs under test.
func (vm *VM) SetGCDebug(gcDebug bool) { vm.gcDebug = gcDebug }

// Run executes bytecode to completion (OP_RETURN) or until a runtime
// error occurs. The VM's globals and heap persist across calls, which is
// what lets the REPL accumulate global state across separate compiles.
func (vm *VM) Run(bytecode compiler.Bytecode) error {
	vm.ip = 0
	ins := bytecode.Instructions

	for {
		if vm.debug {
			vm.traceStack()
		}

		op := compiler.Opcode(ins[vm.ip])
		width := 1

		switch op {
		case compiler.OP_RETURN:
			return nil

		case compiler.OP_CONSTANT:
			index := compiler.ReadUint8(ins, vm.ip+1)
			if err := vm.push(vm.toValue(bytecode.ConstantsPool[index])); err != nil {
				return err
			}
			width = 2

		case compiler.OP_NEGATE:
			a, _ := vm.stack.Pop()
			if a.Kind != ValueReal {
				return TypeError{Expected: "Real", Kind: ArithmeticOperand}
			}
			if err := vm.push(Real(-a.r)); err != nil {
				return err
			}

		case compiler.OP_NOT:
			a, _ := vm.stack.Pop()
			if a.Kind != ValueBool {
				return TypeError{Expected: "Bool", Kind: ArithmeticOperand}
			}
			if err := vm.push(Bool(!a.b)); err != nil {
				return err
			}

		case compiler.OP_ADD:
			if err := vm.add(); err != nil {
				return err
			}

		case compiler.OP_SUB:
			if err := vm.numericBinary(func(a, b float64) float64 { return a - b }); err != nil {
				return err
			}

		case compiler.OP_MUL:
			if err := vm.numericBinary(func(a, b float64) float64 { return a * b }); err != nil {
				return err
			}

		case compiler.OP_DIV:
			if err := vm.numericBinary(func(a, b float64) float64 { return a / b }); err != nil {
				return err
			}

		case compiler.OP_GREATER:
			if err := vm.comparison(func(a, b float64) bool { return a > b }); err != nil {
				return err
			}

		case compiler.OP_LESS:
			if err := vm.comparison(func(a, b float64) bool { return a < b }); err != nil {
				return err
			}

		case compiler.OP_POP:
			vm.stack.Pop()

		case compiler.OP_PRINT:
			v, _ := vm.stack.Pop()
			fmt.Fprintln(os.Stdout, vm.stringFormat(v))

		case compiler.OP_NEW_OBJECT:
			ref := vm.allocTable()
			if err := vm.push(Obj(ref)); err != nil {
				return err
			}
			// The table is only reachable once it's on the stack, so a
			// collection must not run until after it's pushed — otherwise
			// it's freed as unreachable and the handle below dangles.
			vm.maybeCollect()

		case compiler.OP_OBJECT_SET:
			value, _ := vm.stack.Pop()
			key, _ := vm.stack.Pop()
			table, ok := vm.peekTable()
			if !ok {
				return TypeError{Expected: "Table", Kind: ObjectSetMustBeObject}
			}
			keyStr, ok := vm.asString(key)
			if !ok {
				return TypeError{Expected: "String", Kind: KeyMustBeString}
			}
			table.Set(keyStr, value)

		case compiler.OP_DEFINE_GLOBAL:
			name := bytecode.NameConstants[compiler.ReadUint8(ins, vm.ip+1)]
			value, _ := vm.stack.Pop()
			vm.globals.Set(name, value)
			vm.maybeCollect()
			width = 2

		case compiler.OP_GET_GLOBAL:
			name := bytecode.NameConstants[compiler.ReadUint8(ins, vm.ip+1)]
			value, ok := vm.globals.Get(name)
			if !ok {
				return UndefinedVariableError{Name: name}
			}
			if err := vm.push(value); err != nil {
				return err
			}
			width = 2

		case compiler.OP_SET_GLOBAL:
			name := bytecode.NameConstants[compiler.ReadUint8(ins, vm.ip+1)]
			value, _ := vm.stack.Peek()
			if _, ok := vm.globals.Get(name); !ok {
				return UndefinedVariableError{Name: name}
			}
			vm.globals.Set(name, value)
			width = 2

		case compiler.OP_GET_LOCAL:
			slot := compiler.ReadUint8(ins, vm.ip+1)
			if err := vm.push(vm.stack[slot]); err != nil {
				return err
			}
			width = 2

		case compiler.OP_SET_LOCAL:
			slot := compiler.ReadUint8(ins, vm.ip+1)
			value, _ := vm.stack.Peek()
			vm.stack[slot] = value
			width = 2

		case compiler.OP_JUMP_IF_FALSE:
			target := compiler.ReadUint32(ins, vm.ip+1)
			value, _ := vm.stack.Peek()
			if value.IsFalsey() {
				vm.ip = target
				continue
			}
			width = 1 + compiler.JumpOperandWidth

		case compiler.OP_JUMP:
			vm.ip = compiler.ReadUint32(ins, vm.ip+1)
			continue

		default:
			return fmt.Errorf("vm: unknown opcode %d at ip %d", op, vm.ip)
		}

		vm.ip += width
	}
}

func (vm *VM) push(v Value) error {
	return vm.stack.Push(v)
}

// toValue lifts a compile-time constant-pool entry (an any holding a
// float64, bool, nil, or string) into a runtime Value, allocating and
// interning heap storage for strings.
func (vm *VM) toValue(constant any) Value {
	switch c := constant.(type) {
	case float64:
		return Real(c)
	case bool:
		return Bool(c)
	case nil:
		return Null()
	case string:
		return Obj(vm.allocString(c))
	default:
		logrus.Panicln(fmt.Sprintf("vm: constant pool entry of unsupported type %T", constant))
		return Null()
	}
}

// add implements Add's dual nature: string concatenation when the left
// operand is a string, numeric addition (left strictly Real, right
// coerced) otherwise.
func (vm *VM) add() error {
	b, _ := vm.stack.Pop()
	a, _ := vm.stack.Pop()

	if left, ok := vm.asString(a); ok {
		concatenated := left + vm.stringFormat(b)
		ref := vm.allocString(concatenated)
		// Root the freshly allocated string on the stack before a
		// collection can run, or it's unreachable and gets swept before
		// the caller ever sees it.
		if err := vm.push(Obj(ref)); err != nil {
			return err
		}
		vm.maybeCollect()
		return nil
	}

	if a.Kind != ValueReal {
		return TypeError{Expected: "Real", Kind: ArithmeticOperand}
	}
	right, ok := coerceReal(b)
	if !ok {
		return TypeError{Expected: "Real", Kind: ArithmeticOperand}
	}
	return vm.push(Real(a.r + right))
}

// numericBinary backs Sub/Mul/Div: the left operand must already be Real,
// the right is coerced the way coerceReal does for Add.
func (vm *VM) numericBinary(op func(a, b float64) float64) error {
	b, _ := vm.stack.Pop()
	a, _ := vm.stack.Pop()
	if a.Kind != ValueReal {
		return TypeError{Expected: "Real", Kind: ArithmeticOperand}
	}
	right, ok := coerceReal(b)
	if !ok {
		return TypeError{Expected: "Real", Kind: ArithmeticOperand}
	}
	return vm.push(Real(op(a.r, right)))
}

// comparison backs Greater/Less, which operate on Real without coercion
// on either side.
func (vm *VM) comparison(cmp func(a, b float64) bool) error {
	b, _ := vm.stack.Pop()
	a, _ := vm.stack.Pop()
	if a.Kind != ValueReal || b.Kind != ValueReal {
		return TypeError{Expected: "Real", Kind: ArithmeticOperand}
	}
	return vm.push(Bool(cmp(a.r, b.r)))
}

func (vm *VM) asString(v Value) (string, bool) {
	if v.Kind != ValueObj {
		return "", false
	}
	obj := vm.heap.get(v.obj)
	if obj.kind != objString {
		return "", false
	}
	return obj.str.Bytes, true
}

func (vm *VM) peekTable() (*HashTable, bool) {
	v, ok := vm.stack.Peek()
	if !ok || v.Kind != ValueObj {
		return nil, false
	}
	obj := vm.heap.get(v.obj)
	if obj.kind != objTable {
		return nil, false
	}
	return obj.table, true
}

// maybeCollect runs the garbage collector once the heap has grown enough
// to be worth the pass, or unconditionally under gcDebug so GC behavior
// is exercised deterministically by small test programs.
func (vm *VM) maybeCollect() {
	if vm.gcDebug {
		vm.collect()
		return
	}
	if len(vm.heap.objects) > 0 && len(vm.heap.objects)%gcAllocationThreshold == 0 {
		vm.collect()
	}
}

func (vm *VM) traceStack() {
	values := make([]string, 0, len(vm.stack))
	for _, v := range vm.stack {
		values = append(values, vm.stringFormat(v))
	}
	logrus.WithField("ip", vm.ip).Debugln("stack:", values)
}
