package compiler

// This file implements the ASTCompiler, which compiles the abstract syntax tree (AST) directly to bytecode.

import (
	"ankoku/ast"
	"ankoku/token"
	"fmt"
	"os"
	"strings"

	"github.com/josharian/intern"
	"github.com/sirupsen/logrus"
)

// maxLocals is the compile-time cap on live locals in one function, set by
// the one-byte GetLocal/SetLocal operand (§4.4).
const maxLocals = 256

// maxConstants is the compile-time cap on the constant pool and on the
// global-name pool, set by their one-byte operands.
const maxConstants = 256

// Local represents a local variable in the compiler.
type Local struct {
	// The variable's name
	name string
	// The variable's depth in the scope stack. Used to determine when variables go out of scope.
	depth uint16
	// Whether the variable has been initialized. Used to prevent accessing uninitialized variables.
	initialized bool
	// The slot index where the variable is stored. Used for local variable access in the VM.
	slot uint16
}

// ASTCompiler is a visitor that compiles AST nodes directly to bytecode. It
// implements both ast.ExpressionVisitor and ast.StmtVisitor to traverse and
// compile the abstract syntax tree in a single pass.
type ASTCompiler struct {
	// The resulting compiled bytecode.
	bytecode Bytecode
	// constantIndex dedupes ConstantsPool entries by semantic equality, so
	// two occurrences of the same literal share a single constant-table
	// slot (§4.3 "Constant interning").
	constantIndex map[any]int
	// A stack of local variables in the current scope, ordered by
	// declaration; the most recently declared variable is always last.
	locals []Local
	// The current depth of nested scopes. Used to determine when local variables go out of scope.
	scopeDepth uint16
}

// NewASTCompiler creates a new AST-to-bytecode compiler.
func NewASTCompiler() *ASTCompiler {
	return &ASTCompiler{
		bytecode: Bytecode{
			Instructions:  Instructions{},
			ConstantsPool: []any{},
			NameConstants: []string{},
		},
		constantIndex: make(map[any]int),
		locals:        []Local{},
		scopeDepth:    0,
	}
}

// DumpBytecode writes the compiled bytecode to a file with a `.anic`
// extension, hex-encoded so it can be inspected in a text editor.
func (ac *ASTCompiler) DumpBytecode(filePath string) error {
	if filePath == "" {
		filePath = "bytecode.anic"
	} else {
		filePath = filePath + ".anic"
	}
	fDescriptor, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("error creating ankoku bytecode file: %s", err.Error())
	}
	defer fDescriptor.Close()

	encoded := fmt.Sprintf("%x", ac.bytecode.Instructions)
	_, err = fDescriptor.Write([]byte(encoded))
	return err
}

// DisassembleBytecode renders the compiled bytecode to a human-readable
// textual form and optionally saves it to disk.
func (ac *ASTCompiler) DisassembleBytecode(saveToDisk bool, filePath string) (string, error) {
	var builder strings.Builder
	ins := ac.bytecode.Instructions
	ip := 0

	for ip < len(ins) {
		line, consumed, err := ac.disassembleInstruction(ip)
		if err != nil {
			return "", err
		}
		builder.WriteString(line)
		builder.WriteString("\n")
		ip += consumed
	}

	disassembled := builder.String()
	logrus.Debugln(disassembled)

	if saveToDisk {
		if filePath == "" {
			filePath = "bytecode.danic"
		} else {
			filePath = filePath + ".danic"
		}
		fDescriptor, err := os.Create(filePath)
		if err != nil {
			return "", fmt.Errorf("error creating disassembled bytecode file: %s", err.Error())
		}
		defer fDescriptor.Close()
		if _, err := fDescriptor.WriteString(disassembled); err != nil {
			return "", err
		}
	}
	return disassembled, nil
}

// disassembleInstruction renders the single instruction at ip and returns
// its textual form plus the total byte width consumed (opcode + operands).
func (ac *ASTCompiler) disassembleInstruction(ip int) (string, int, error) {
	ins := ac.bytecode.Instructions
	op := Opcode(ins[ip])
	def, err := Get(op)
	if err != nil {
		return "", 0, err
	}

	width := 1
	for _, w := range def.OperandWidths {
		width += w
	}

	switch op {
	case OP_CONSTANT, OP_DEFINE_GLOBAL, OP_GET_GLOBAL, OP_SET_GLOBAL:
		operand := ReadUint8(ins, ip+1)
		var detail string
		if op == OP_CONSTANT {
			detail = fmt.Sprintf("%v", ac.bytecode.ConstantsPool[operand])
		} else {
			detail = ac.bytecode.NameConstants[operand]
		}
		return fmt.Sprintf("%04d %-12s %4d  ; %s", ip, def.Name, operand, detail), width, nil
	case OP_GET_LOCAL, OP_SET_LOCAL:
		operand := ReadUint8(ins, ip+1)
		return fmt.Sprintf("%04d %-12s %4d  ; slot", ip, def.Name, operand), width, nil
	case OP_JUMP, OP_JUMP_IF_FALSE:
		operand := ReadUint32(ins, ip+1)
		return fmt.Sprintf("%04d %-12s %4d  ; -> %04d", ip, def.Name, operand, operand), width, nil
	default:
		return fmt.Sprintf("%04d %-12s", ip, def.Name), width, nil
	}
}

// CompileAST compiles a sequence of statements into a Bytecode chunk.
// Compile-time failures (too many locals, redeclaration in the same
// scope, too large a constant/global pool) are fatal in this revision
// (§7): they panic with a typed SemanticError/DeveloperError, logged on
// the way out, and recovered here into an error.
func (ac *ASTCompiler) CompileAST(statements []ast.Stmt) (b Bytecode, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case SemanticError:
				err = v
			case DeveloperError:
				err = v
			default:
				panic(r)
			}
		}
	}()

	for _, stmt := range statements {
		stmt.Accept(ac)
	}

	ac.emit(OP_RETURN)
	return ac.bytecode, nil
}

// semanticFault logs and panics with a SemanticError, to be recovered by
// CompileAST. logrus.Panicln panics with a *logrus.Entry (the message
// only becomes the log line, not the value passed to it), so the panic
// value itself must be raised separately for CompileAST's recover to see
// the typed error rather than an *logrus.Entry it can never match.
func (ac *ASTCompiler) semanticFault(message string) {
	err := SemanticError{Message: message}
	logrus.WithField("phase", "compile").Debugln(err.Error())
	panic(err)
}

// developerFault logs and panics with a DeveloperError; see semanticFault.
func (ac *ASTCompiler) developerFault(message string) {
	err := DeveloperError{Message: message}
	logrus.WithField("phase", "compile").Debugln(err.Error())
	panic(err)
}

// VisitBinary handles binary expressions (+, -, *, /, >, <).
func (ac *ASTCompiler) VisitBinary(binary ast.Binary) any {
	binary.Left.Accept(ac)
	binary.Right.Accept(ac)

	switch binary.Operator.TokenType {
	case token.ADD:
		ac.emit(OP_ADD)
	case token.SUB:
		ac.emit(OP_SUB)
	case token.MULT:
		ac.emit(OP_MUL)
	case token.DIV:
		ac.emit(OP_DIV)
	case token.LARGER:
		ac.emit(OP_GREATER)
	case token.LESS:
		ac.emit(OP_LESS)
	default:
		ac.developerFault(fmt.Sprintf("unsupported binary operator %q reached the compiler", binary.Operator.Lexeme))
	}

	return nil
}

// VisitUnary handles unary expressions (-, !).
func (ac *ASTCompiler) VisitUnary(unary ast.Unary) any {
	unary.Right.Accept(ac)

	switch unary.Operator.TokenType {
	case token.SUB:
		ac.emit(OP_NEGATE)
	case token.BANG:
		ac.emit(OP_NOT)
	default:
		ac.developerFault(fmt.Sprintf("unsupported unary operator %q reached the compiler", unary.Operator.Lexeme))
	}
	return nil
}

// VisitLiteral emits a Constant instruction for a literal value, interning
// string literals at the Go-string level via josharian/intern so repeated
// identical literals across a compile share backing storage.
func (ac *ASTCompiler) VisitLiteral(literal ast.Literal) any {
	value := literal.Value
	if s, ok := value.(string); ok {
		value = intern.String(s)
	}
	ac.emitConstant(value)
	return nil
}

// VisitGrouping handles parenthesized expressions.
func (ac *ASTCompiler) VisitGrouping(grouping ast.Grouping) any {
	grouping.Expression.Accept(ac)
	return nil
}

// VisitObjectExpression compiles an object literal by allocating a fresh
// table and setting each field in source order (§4.3: "An object literal
// emits NewObject, then for each (key, value) emits Constant k(key-string)
// ; <value> ; ObjectSet").
func (ac *ASTCompiler) VisitObjectExpression(object ast.Object) any {
	ac.emit(OP_NEW_OBJECT)
	for _, field := range object.Fields {
		ac.emitConstant(intern.String(field.Key.Lexeme))
		field.Value.Accept(ac)
		ac.emit(OP_OBJECT_SET)
	}
	return nil
}

// VisitVariableExpression compiles variable access. A name that resolves
// to neither a local nor a previously seen global still compiles: the
// name is registered in NameConstants and a GetGlobal is emitted
// unconditionally, leaving "is this name actually defined" to the VM at
// run time (§7: UndefinedVariableError is a runtime error), mirroring
// how the original compiler emits GetGlobal for any non-local without
// checking the name against anything.
func (ac *ASTCompiler) VisitVariableExpression(variable ast.Variable) any {
	identifier := variable.Name.Lexeme

	slotIndex := ac.resolveLocal(identifier)
	if slotIndex != -1 {
		if !ac.locals[slotIndex].initialized {
			ac.semanticFault(fmt.Sprintf("can't read local variable '%s' in its own initializer", identifier))
		}
		ac.emit(OP_GET_LOCAL, slotIndex)
		return nil
	}

	ac.emit(OP_GET_GLOBAL, ac.resolveOrAddGlobalName(identifier))
	return nil
}

// VisitAssignExpression compiles an assignment expression. As with
// VisitVariableExpression, an assignment to a name with no matching
// local always emits SetGlobal; whether that global exists is a runtime
// question (§4.4: "error if undefined").
func (ac *ASTCompiler) VisitAssignExpression(assign ast.Assign) any {
	name := assign.Name.Lexeme

	// Compile the right-hand side first so it is on TOS when Set{Local,Global} runs.
	assign.Value.Accept(ac)

	slotIndex := ac.resolveLocal(name)
	if slotIndex != -1 {
		ac.locals[slotIndex].initialized = true
		ac.emit(OP_SET_LOCAL, slotIndex)
		return nil
	}

	ac.emit(OP_SET_GLOBAL, ac.resolveOrAddGlobalName(name))
	return nil
}

// VisitVarStmt handles `var NAME (= E)?;`.
func (ac *ASTCompiler) VisitVarStmt(varStmt ast.VarStmt) any {
	variableName := varStmt.Name.Lexeme

	if ac.scopeDepth == 0 {
		index := ac.resolveOrAddGlobalName(variableName)
		if varStmt.Initializer != nil {
			varStmt.Initializer.Accept(ac)
		} else {
			ac.emitConstant(nil)
		}
		ac.emit(OP_DEFINE_GLOBAL, index)
		return nil
	}

	ac.declareLocal(variableName)
	if varStmt.Initializer != nil {
		varStmt.Initializer.Accept(ac)
	} else {
		ac.emitConstant(nil)
	}
	slot := ac.locals[len(ac.locals)-1].slot
	ac.emit(OP_SET_LOCAL, int(slot))
	ac.locals[len(ac.locals)-1].initialized = true

	return nil
}

// VisitLogicalExpression compiles `&&`/`||` with short-circuiting (§4.3).
func (ac *ASTCompiler) VisitLogicalExpression(logical ast.Logical) any {
	logical.Left.Accept(ac)

	switch logical.Operator.TokenType {
	case token.LOGICAL_OR, token.OR:
		jumpIfFalsePos := ac.emitPlaceholderJump(OP_JUMP_IF_FALSE)
		jumpEndPos := ac.emitPlaceholderJump(OP_JUMP)

		ac.patchJump(jumpIfFalsePos, len(ac.bytecode.Instructions))
		ac.emit(OP_POP)
		logical.Right.Accept(ac)

		ac.patchJump(jumpEndPos, len(ac.bytecode.Instructions))
	case token.LOGICAL_AND, token.AND:
		jumpIfFalsePos := ac.emitPlaceholderJump(OP_JUMP_IF_FALSE)

		ac.emit(OP_POP)
		logical.Right.Accept(ac)

		ac.patchJump(jumpIfFalsePos, len(ac.bytecode.Instructions))
	default:
		ac.developerFault(fmt.Sprintf("unsupported logical operator %q reached the compiler", logical.Operator.Lexeme))
	}
	return nil
}

func (ac *ASTCompiler) VisitExpressionStmt(exprStmt ast.ExpressionStmt) any {
	exprStmt.Expression.Accept(ac)
	ac.emit(OP_POP)
	return nil
}

func (ac *ASTCompiler) VisitPrintStmt(printStmt ast.PrintStmt) any {
	printStmt.Expression.Accept(ac)
	ac.emit(OP_PRINT)
	return nil
}

// VisitBlockStmt compiles a block, popping every local that goes out of
// scope on exit — one Pop per local (§4.3), not a single batched opcode.
func (ac *ASTCompiler) VisitBlockStmt(blockStmt ast.BlockStmt) any {
	ac.beginScope()
	for _, stmt := range blockStmt.Statements {
		stmt.Accept(ac)
	}

	popped := ac.endScope()
	for i := 0; i < popped; i++ {
		ac.emit(OP_POP)
	}
	return nil
}

// VisitIfStmt compiles an if/else via back-patched jumps (§4.3). Both
// branches must discard the condition exactly once, so the jump that
// skips the else-side Pop is unconditional — emitted even when there is
// no source-level else — rather than only when Else != nil; omitting it
// in the no-else case makes the true path fall through into the
// false-path Pop and double-pop its own Then result.
func (ac *ASTCompiler) VisitIfStmt(ifStmt ast.IfStmt) any {
	ifStmt.Condition.Accept(ac)

	jumpIfFalsePatch := ac.emitPlaceholderJump(OP_JUMP_IF_FALSE)
	ac.emit(OP_POP)

	ifStmt.Then.Accept(ac)

	jumpOverElsePatch := ac.emitPlaceholderJump(OP_JUMP)

	elsePos := len(ac.bytecode.Instructions)
	ac.patchJump(jumpIfFalsePatch, elsePos)
	ac.emit(OP_POP)

	if ifStmt.Else != nil {
		ifStmt.Else.Accept(ac)
	}

	endPos := len(ac.bytecode.Instructions)
	ac.patchJump(jumpOverElsePatch, endPos)
	return nil
}

// VisitWhileStmt compiles a while loop via back-patched jumps (§4.3).
func (ac *ASTCompiler) VisitWhileStmt(whileStmt ast.WhileStmt) any {
	loopStartPos := len(ac.bytecode.Instructions)

	whileStmt.Condition.Accept(ac)

	jumpIfFalsePatch := ac.emitPlaceholderJump(OP_JUMP_IF_FALSE)
	ac.emit(OP_POP)

	whileStmt.Body.Accept(ac)

	ac.emit(OP_JUMP, loopStartPos)

	loopEndPos := len(ac.bytecode.Instructions)
	ac.patchJump(jumpIfFalsePatch, loopEndPos)
	ac.emit(OP_POP)

	return nil
}

// patchJump overwrites a Jump/JumpIfFalse instruction's placeholder
// operand with the actual absolute byte offset once it is known.
//
// jumpPos is the byte index of the jump instruction's opcode (before the
// jump was emitted); targetPos is the absolute byte offset the jump
// should land on.
func (ac *ASTCompiler) patchJump(jumpPos int, targetPos int) {
	PatchJump(ac.bytecode.Instructions, jumpPos+1, targetPos)
}

// emitConstant interns value into the constant pool (deduplicated by
// semantic equality, §4.3) and emits a Constant instruction referencing
// it.
func (ac *ASTCompiler) emitConstant(value any) {
	ac.emit(OP_CONSTANT, ac.addConstant(value))
}

// addConstant returns value's index in the constant pool, adding it if
// not already present.
func (ac *ASTCompiler) addConstant(value any) int {
	if idx, ok := ac.constantIndex[value]; ok {
		return idx
	}
	if len(ac.bytecode.ConstantsPool) >= maxConstants {
		ac.semanticFault("constant pool exceeded 256 entries")
	}
	ac.bytecode.ConstantsPool = append(ac.bytecode.ConstantsPool, value)
	index := len(ac.bytecode.ConstantsPool) - 1
	ac.constantIndex[value] = index
	return index
}

// resolveOrAddGlobalName returns name's index in the NameConstants pool,
// registering it if this is the first time the compiler has seen it. A
// global name carries no declared/defined state of its own at compile
// time: read, assignment, and `var` all fall through to the same pool
// slot, and whether the name is actually bound is resolved by the VM
// against globals at run time.
func (ac *ASTCompiler) resolveOrAddGlobalName(value string) int {
	if index := ac.resolveGlobal(value); index != -1 {
		return index
	}
	if len(ac.bytecode.NameConstants) >= maxConstants {
		ac.semanticFault("global name pool exceeded 256 entries")
	}
	ac.bytecode.NameConstants = append(ac.bytecode.NameConstants, value)
	return len(ac.bytecode.NameConstants) - 1
}

// emit constructs a bytecode instruction and appends it to the instruction stream.
func (ac *ASTCompiler) emit(opcode Opcode, operands ...int) {
	instruction := MakeInstruction(opcode, operands...)
	if len(instruction) == 0 {
		ac.developerFault(fmt.Sprintf("opcode %d has no definition", opcode))
	}
	ac.bytecode.Instructions = append(ac.bytecode.Instructions, instruction...)
}

// emitPlaceholderJump emits a Jump/JumpIfFalse with a placeholder
// 0xFFFFFFFF operand and returns the position of its opcode byte, to be
// passed to patchJump once the real target is known.
func (ac *ASTCompiler) emitPlaceholderJump(opcode Opcode) int {
	position := len(ac.bytecode.Instructions)
	ac.emit(opcode, 0xFFFFFFFF)
	return position
}

// beginScope increments the scope depth when compiling a block statement.
func (ac *ASTCompiler) beginScope() {
	ac.scopeDepth++
}

// endScope decrements the scope depth and removes any local variables
// that go out of scope, returning how many were removed.
func (ac *ASTCompiler) endScope() int {
	ac.scopeDepth--

	count := 0
	for len(ac.locals) > 0 && ac.locals[len(ac.locals)-1].depth > ac.scopeDepth {
		ac.locals = ac.locals[:len(ac.locals)-1]
		count++
	}
	return count
}

// declareLocal adds a local variable, checking for same-scope
// redeclaration, and assigns it a slot index. Fatal compile errors (too
// many locals, redeclaration) panic via semanticFault (§7).
func (ac *ASTCompiler) declareLocal(name string) {
	for i := len(ac.locals) - 1; i >= 0; i-- {
		if ac.locals[i].depth < ac.scopeDepth {
			break
		}
		if ac.locals[i].name == name {
			ac.semanticFault(fmt.Sprintf("redefinition of variable '%s' in the same scope", name))
		}
	}

	if len(ac.locals) >= maxLocals {
		ac.semanticFault("too many local variables in one function")
	}

	slot := uint16(len(ac.locals))
	ac.locals = append(ac.locals, Local{
		name:        name,
		depth:       ac.scopeDepth,
		initialized: false,
		slot:        slot,
	})
}

// resolveLocal returns the slot index of the innermost local named name,
// or -1 if it isn't a local.
func (ac *ASTCompiler) resolveLocal(name string) int {
	for i := len(ac.locals) - 1; i >= 0; i-- {
		if ac.locals[i].name == name {
			return int(ac.locals[i].slot)
		}
	}
	return -1
}

// resolveGlobal returns name's index in NameConstants, or -1 if absent.
func (ac *ASTCompiler) resolveGlobal(name string) int {
	for i, n := range ac.bytecode.NameConstants {
		if n == name {
			return i
		}
	}
	return -1
}
