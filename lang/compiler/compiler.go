package compiler

import (
	"fmt"
	gotoken "go/token"

	goscanner "go/scanner"

	"wisp/lang/intern"
	"wisp/lang/scanner"
	"wisp/lang/token"
)

// precedence orders the Pratt table, low to high (spec §4.D).
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

// parseFn is a Pratt prefix or infix handler: it consumes p.previous (already
// advanced past) and emits bytecode for it, tracking canAssign for the
// assignment-target check.
type parseFn func(p *parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

// rules is the fixed Pratt table keyed by token type (spec §4.D). Declared
// as a package-level var (not per-call) so parsePrecedence stays a flat
// table lookup, matching the spec's "table as data, not methods" note (§9).
var rules [token.WHILE + 1]parseRule

func init() {
	rules[token.LEFT_PAREN] = parseRule{prefix: (*parser).grouping, infix: (*parser).call, precedence: precCall}
	rules[token.DOT] = parseRule{precedence: precNone}
	rules[token.MINUS] = parseRule{prefix: (*parser).unary, infix: (*parser).binary, precedence: precTerm}
	rules[token.PLUS] = parseRule{infix: (*parser).binary, precedence: precTerm}
	rules[token.SLASH] = parseRule{infix: (*parser).binary, precedence: precFactor}
	rules[token.STAR] = parseRule{infix: (*parser).binary, precedence: precFactor}
	rules[token.BANG] = parseRule{prefix: (*parser).unary, precedence: precNone}
	rules[token.BANG_EQUAL] = parseRule{infix: (*parser).binary, precedence: precEquality}
	rules[token.EQUAL_EQUAL] = parseRule{infix: (*parser).binary, precedence: precEquality}
	rules[token.GREATER] = parseRule{infix: (*parser).binary, precedence: precComparison}
	rules[token.GREATER_EQUAL] = parseRule{infix: (*parser).binary, precedence: precComparison}
	rules[token.LESS] = parseRule{infix: (*parser).binary, precedence: precComparison}
	rules[token.LESS_EQUAL] = parseRule{infix: (*parser).binary, precedence: precComparison}
	rules[token.IDENTIFIER] = parseRule{prefix: (*parser).variable, precedence: precNone}
	rules[token.STRING] = parseRule{prefix: (*parser).string, precedence: precNone}
	rules[token.NUMBER] = parseRule{prefix: (*parser).number, precedence: precNone}
	rules[token.AND] = parseRule{infix: (*parser).and_, precedence: precAnd}
	rules[token.OR] = parseRule{infix: (*parser).or_, precedence: precOr}
	rules[token.FALSE] = parseRule{prefix: (*parser).literal, precedence: precNone}
	rules[token.NIL] = parseRule{prefix: (*parser).literal, precedence: precNone}
	rules[token.TRUE] = parseRule{prefix: (*parser).literal, precedence: precNone}
}

// funcType distinguishes the implicit top-level script FunctionCompiler from
// a user-defined one (spec §4.D); the distinction gates whether `return` is
// legal and what endFuncCompiler's epilogue means.
type funcType int

const (
	typeScript funcType = iota
	typeFunction
)

const uninitialized = -1

// local is a compile-time-only record for a declared name living in a
// function's stack window (spec §3).
type local struct {
	name       string
	depth      int
	isCaptured bool
}

// compUpvalue is the compile-time upvalue record tracked on the *capturing*
// function's compiler (spec §3 "Compile-time Upvalue").
type compUpvalue struct {
	index   uint8
	isLocal bool
}

const (
	maxLocals   = 256
	maxUpvalues = 256
	maxArity    = 255 // 256th parameter is the error case (spec §8)
)

// funcCompiler is one stack frame of nested function compilation, linked
// toward its enclosing (lexically outer) compiler (spec §4.D).
type funcCompiler struct {
	enclosing *funcCompiler
	function  *Function
	typ       funcType
	locals    []local
	upvalues  []compUpvalue
	scopeDepth int
}

// parser drives the scanner and holds the Pratt-parsing cursor plus the
// function-compiler stack (spec §4.D "Parser state" + "FunctionCompiler
// state").
type parser struct {
	scan     *scanner.Scanner
	interner *intern.Table

	current, previous token.Token

	errs      goscanner.ErrorList
	panicMode bool

	cur *funcCompiler
}

// Compile scans and compiles source in a single pass, returning the
// top-level script Function or the accumulated compile errors (spec §4.D
// "compile(source) → either(top-level function, compile-error)").
func Compile(source string, interner *intern.Table) (*Function, error) {
	p := &parser{scan: scanner.New(source), interner: interner}
	p.pushFuncCompiler(typeScript, "")

	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}
	p.consume(token.EOF, "Expect end of expression.")

	fn := p.endFuncCompiler()
	if len(p.errs) > 0 {
		p.errs.Sort()
		return nil, p.errs.Err()
	}
	return fn, nil
}

func (p *parser) pushFuncCompiler(typ funcType, name string) {
	fc := &funcCompiler{
		enclosing: p.cur,
		typ:       typ,
		function:  &Function{Name: name, Chunk: NewChunk()},
		// slot 0 is reserved (spec §3: "name of the function at slot 0 ... never
		// read by user code").
		locals: []local{{name: "", depth: 0}},
	}
	p.cur = fc
}

func (p *parser) endFuncCompiler() *Function {
	p.emitByte(byte(NIL))
	p.emitByte(byte(RETURN))
	fn := p.cur.function
	fn.UpvalueCount = uint16(len(p.cur.upvalues))
	enclosing := p.cur.enclosing
	upvalues := p.cur.upvalues
	p.cur = enclosing
	if p.cur != nil {
		idx, ok := p.cur.function.Chunk.WriteConstant(fn)
		if !ok {
			p.error("Too many constants in one chunk.")
			idx = 0
		}
		p.emitByte(byte(CLOSURE))
		p.emitByte(byte(idx))
		for _, uv := range upvalues {
			p.emitByte(boolByte(uv.isLocal))
			p.emitByte(uv.index)
		}
	}
	return fn
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// --- token stream plumbing -------------------------------------------------

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scan.Scan()
		if p.current.Type != token.ILLEGAL {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *parser) check(t token.Type) bool { return p.current.Type == t }

func (p *parser) match(t token.Type) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(t token.Type, msg string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *parser) error(msg string)          { p.errorAt(p.previous, msg) }

func (p *parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.errs.Add(gotoken.Position{Line: tok.Line}, msg)
}

// synchronize discards tokens until a likely statement boundary, the same
// error floor as clox's (spec §4.D "Error recovery").
func (p *parser) synchronize() {
	p.panicMode = false
	for p.current.Type != token.EOF {
		if p.previous.Type == token.SEMICOLON {
			return
		}
		switch p.current.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.advance()
	}
}

// --- bytecode emission helpers ---------------------------------------------

func (p *parser) chunk() *Chunk { return p.cur.function.Chunk }

func (p *parser) emitByte(b byte) { p.chunk().Write(b, p.previous.Line) }

func (p *parser) emitBytes(a, b byte) {
	p.emitByte(a)
	p.emitByte(b)
}

func (p *parser) emitConstant(value any) {
	idx, ok := p.chunk().WriteConstant(value)
	if !ok {
		p.error("Too many constants in one chunk.")
		return
	}
	p.emitBytes(byte(CONSTANT), byte(idx))
}

// emitJump writes op followed by a two-byte placeholder and returns the
// offset of the placeholder for patchJump (spec §4.D "Jump patching").
func (p *parser) emitJump(op Opcode) int {
	p.emitByte(byte(op))
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.chunk().code) - 2
}

func (p *parser) patchJump(offset int) {
	jump := len(p.chunk().code) - offset - 2
	if jump > 0xffff {
		p.error("Too much code to jump over.")
		return
	}
	p.chunk().code[offset] = byte(jump >> 8)
	p.chunk().code[offset+1] = byte(jump)
}

func (p *parser) emitLoop(loopStart int) {
	p.emitByte(byte(LOOP))
	offset := len(p.chunk().code) - loopStart + 2
	if offset > 0xffff {
		p.error("Too much code to jump over.")
		return
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

// --- declarations & statements ---------------------------------------------

func (p *parser) declaration() {
	switch {
	case p.match(token.FUN):
		p.funDeclaration()
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function(typeFunction)
	p.defineVariable(global)
}

func (p *parser) function(typ funcType) {
	name := p.previous.Lexeme
	p.pushFuncCompiler(typ, name)
	p.beginScope()

	p.consume(token.LEFT_PAREN, "Expect '(' after function name.")
	if !p.check(token.RIGHT_PAREN) {
		for {
			if int(p.cur.function.Arity) >= maxArity {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			} else {
				p.cur.function.Arity++
			}
			constIdx := p.parseVariable("Expect parameter name.")
			p.defineVariable(constIdx)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RIGHT_PAREN, "Expect ')' after parameters.")
	p.consume(token.LEFT_BRACE, "Expect '{' before function body.")
	p.block()

	p.endFuncCompiler() // emits CLOSURE into the enclosing chunk
}

func (p *parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")
	if p.match(token.EQUAL) {
		p.expression()
	} else {
		p.emitByte(byte(NIL))
	}
	p.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

// parseVariable consumes an identifier, declares it if local, and returns
// the constant-pool index of its interned name (meaningful only for
// globals; defineVariable ignores it for locals).
func (p *parser) parseVariable(errMsg string) int {
	p.consume(token.IDENTIFIER, errMsg)
	p.declareLocal()
	if p.cur.scopeDepth > 0 {
		return 0
	}
	name := p.interner.Intern(p.previous.Lexeme)
	idx, ok := p.chunk().WriteConstant(name)
	if !ok {
		p.error("Too many constants in one chunk.")
	}
	return idx
}

// declareLocal implements spec §4.D "Declaring a local"; a no-op at global
// scope (globals aren't added to the locals vector).
func (p *parser) declareLocal() {
	if p.cur.scopeDepth == 0 {
		return
	}
	name := p.previous.Lexeme
	for i := len(p.cur.locals) - 1; i >= 0; i-- {
		l := p.cur.locals[i]
		if l.depth != uninitialized && l.depth < p.cur.scopeDepth {
			break
		}
		if l.name == name {
			p.error("Variable with this name already declared in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *parser) addLocal(name string) {
	if len(p.cur.locals) >= maxLocals {
		p.error("Too many local variables in function.")
		return
	}
	p.cur.locals = append(p.cur.locals, local{name: name, depth: uninitialized})
}

func (p *parser) markInitialized() {
	if p.cur.scopeDepth == 0 {
		return
	}
	p.cur.locals[len(p.cur.locals)-1].depth = p.cur.scopeDepth
}

func (p *parser) defineVariable(globalConstIdx int) {
	if p.cur.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitBytes(byte(DEFINE_GLOBAL), byte(globalConstIdx))
}

func (p *parser) beginScope() { p.cur.scopeDepth++ }

func (p *parser) endScope() {
	p.cur.scopeDepth--
	for len(p.cur.locals) > 0 && p.cur.locals[len(p.cur.locals)-1].depth > p.cur.scopeDepth {
		p.emitByte(byte(POP))
		p.cur.locals = p.cur.locals[:len(p.cur.locals)-1]
	}
}

func (p *parser) statement() {
	switch {
	case p.match(token.PRINT):
		p.printStatement()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	case p.match(token.LEFT_BRACE):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) block() {
	for !p.check(token.RIGHT_BRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RIGHT_BRACE, "Expect '}' after block.")
}

func (p *parser) printStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after value.")
	p.emitByte(byte(PRINT))
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after expression.")
	p.emitByte(byte(POP))
}

func (p *parser) ifStatement() {
	p.consume(token.LEFT_PAREN, "Expect '(' after 'if'.")
	p.expression()
	p.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	thenJump := p.emitJump(JUMP_IF_FALSE)
	p.emitByte(byte(POP))
	p.statement()

	elseJump := p.emitJump(JUMP)
	p.patchJump(thenJump)
	p.emitByte(byte(POP))

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loopStart := len(p.chunk().code)
	p.consume(token.LEFT_PAREN, "Expect '(' after 'while'.")
	p.expression()
	p.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	exitJump := p.emitJump(JUMP_IF_FALSE)
	p.emitByte(byte(POP))
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitByte(byte(POP))
}

func (p *parser) forStatement() {
	p.beginScope()
	p.consume(token.LEFT_PAREN, "Expect '(' after 'for'.")

	switch {
	case p.match(token.SEMICOLON):
		// no initializer
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.chunk().code)
	exitJump := -1
	if !p.check(token.SEMICOLON) {
		p.expression()
		p.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = p.emitJump(JUMP_IF_FALSE)
		p.emitByte(byte(POP))
	} else {
		p.advance() // consume ';'
	}

	if !p.check(token.RIGHT_PAREN) {
		bodyJump := p.emitJump(JUMP)
		incrStart := len(p.chunk().code)
		p.expression()
		p.emitByte(byte(POP))
		p.consume(token.RIGHT_PAREN, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrStart
		p.patchJump(bodyJump)
	} else {
		p.advance() // consume ')'
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitByte(byte(POP))
	}
	p.endScope()
}

func (p *parser) returnStatement() {
	if p.cur.typ == typeScript {
		p.error("Can't return from top-level code.")
	}
	if p.match(token.SEMICOLON) {
		p.emitByte(byte(NIL))
		p.emitByte(byte(RETURN))
		return
	}
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after return value.")
	p.emitByte(byte(RETURN))
}

// --- expressions -------------------------------------------------------

func (p *parser) expression() { p.parsePrecedence(precAssignment) }

func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	rule := rules[p.previous.Type]
	if rule.prefix == nil {
		p.error("Expect expression.")
		return
	}
	canAssign := prec <= precAssignment
	rule.prefix(p, canAssign)

	for prec <= rules[p.current.Type].precedence {
		p.advance()
		infix := rules[p.previous.Type].infix
		infix(p, canAssign)
	}

	if canAssign && p.match(token.EQUAL) {
		p.error("Invalid assignment target.")
	}
}

func (p *parser) number(bool) {
	var f float64
	fmt.Sscanf(p.previous.Lexeme, "%g", &f)
	p.emitConstant(f)
}

func (p *parser) string(bool) {
	lexeme := p.previous.Lexeme
	name := p.interner.Intern(lexeme[1 : len(lexeme)-1]) // strip surrounding quotes
	p.emitConstant(name)
}

func (p *parser) literal(bool) {
	switch p.previous.Type {
	case token.FALSE:
		p.emitByte(byte(FALSE))
	case token.NIL:
		p.emitByte(byte(NIL))
	case token.TRUE:
		p.emitByte(byte(TRUE))
	}
}

func (p *parser) grouping(bool) {
	p.expression()
	p.consume(token.RIGHT_PAREN, "Expect ')' after expression.")
}

func (p *parser) unary(bool) {
	opType := p.previous.Type
	p.parsePrecedence(precUnary)
	switch opType {
	case token.BANG:
		p.emitByte(byte(NOT))
	case token.MINUS:
		p.emitByte(byte(NEGATE))
	}
}

func (p *parser) binary(bool) {
	opType := p.previous.Type
	rule := rules[opType]
	p.parsePrecedence(rule.precedence + 1)

	switch opType {
	case token.BANG_EQUAL:
		p.emitBytes(byte(EQUAL), byte(NOT))
	case token.EQUAL_EQUAL:
		p.emitByte(byte(EQUAL))
	case token.GREATER:
		p.emitByte(byte(GREATER))
	case token.GREATER_EQUAL:
		p.emitBytes(byte(LESS), byte(NOT))
	case token.LESS:
		p.emitByte(byte(LESS))
	case token.LESS_EQUAL:
		p.emitBytes(byte(GREATER), byte(NOT))
	case token.PLUS:
		p.emitByte(byte(ADD))
	case token.MINUS:
		p.emitByte(byte(SUBTRACT))
	case token.STAR:
		p.emitByte(byte(MULTIPLY))
	case token.SLASH:
		p.emitByte(byte(DIVIDE))
	}
}

func (p *parser) call(bool) {
	argc := p.argumentList()
	p.emitBytes(byte(CALL), argc)
}

func (p *parser) argumentList() byte {
	var argc int
	if !p.check(token.RIGHT_PAREN) {
		for {
			p.expression()
			if argc == 255 {
				p.error("Can't have more than 255 arguments.")
			}
			argc++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RIGHT_PAREN, "Expect ')' after arguments.")
	return byte(argc)
}

func (p *parser) and_(bool) {
	endJump := p.emitJump(JUMP_IF_FALSE)
	p.emitByte(byte(POP))
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

func (p *parser) or_(bool) {
	elseJump := p.emitJump(JUMP_IF_FALSE)
	endJump := p.emitJump(JUMP)
	p.patchJump(elseJump)
	p.emitByte(byte(POP))
	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

func (p *parser) variable(canAssign bool) {
	p.namedVariable(p.previous.Lexeme, canAssign)
}

func (p *parser) namedVariable(name string, canAssign bool) {
	var getOp, setOp Opcode
	idx, ok := p.resolveLocal(p.cur, name)
	switch {
	case ok:
		getOp, setOp = GET_LOCAL, SET_LOCAL
	default:
		if idx, ok = p.resolveUpvalue(p.cur, name); ok {
			getOp, setOp = GET_UPVALUE, SET_UPVALUE
		} else {
			interned := p.interner.Intern(name)
			constIdx, wrote := p.chunk().WriteConstant(interned)
			if !wrote {
				p.error("Too many constants in one chunk.")
			}
			idx, getOp, setOp = constIdx, GET_GLOBAL, SET_GLOBAL
		}
	}

	if canAssign && p.match(token.EQUAL) {
		p.expression()
		p.emitBytes(byte(setOp), byte(idx))
		return
	}
	p.emitBytes(byte(getOp), byte(idx))
}

// resolveLocal implements spec §4.D step 1.
func (p *parser) resolveLocal(fc *funcCompiler, name string) (int, bool) {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].name == name {
			if fc.locals[i].depth == uninitialized {
				p.error("Can't read local variable in its own initializer.")
			}
			return i, true
		}
	}
	return 0, false
}

// resolveUpvalue implements spec §4.D step 2, recursing up the enclosing
// chain and deduplicating within one function via addUpvalue.
func (p *parser) resolveUpvalue(fc *funcCompiler, name string) (int, bool) {
	if fc.enclosing == nil {
		return 0, false
	}
	if idx, ok := p.resolveLocal(fc.enclosing, name); ok {
		fc.enclosing.locals[idx].isCaptured = true
		return p.addUpvalue(fc, uint8(idx), true), true
	}
	if idx, ok := p.resolveUpvalue(fc.enclosing, name); ok {
		return p.addUpvalue(fc, uint8(idx), false), true
	}
	return 0, false
}

func (p *parser) addUpvalue(fc *funcCompiler, index uint8, isLocal bool) int {
	for i, uv := range fc.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(fc.upvalues) >= maxUpvalues {
		p.error("Too many closure variables in function.")
		return 0
	}
	fc.upvalues = append(fc.upvalues, compUpvalue{index: index, isLocal: isLocal})
	return len(fc.upvalues) - 1
}
