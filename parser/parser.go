package parser

import (
	"fmt"
	"strings"
)

// Parser consumes a token stream and produces a Program: an ordered item
// list per section, a local symbol table, and the export/import sets.
//
// Tokens are fully scanned up front into a random-access slice, and all
// advancement goes through next()/peek()/unget(), which only ever move an
// index into that slice. There is no separate one-token pending buffer, so
// a pushed-back token can never be bypassed by a direct read of the
// underlying stream — the hazard described for a buffer-based lookahead
// design does not apply to this shape.
type Parser struct {
	tokens   []Token
	pos      int
	filename string
	lines    []string

	curSection string
	sectionPos map[string]int
	items      map[string][]ParsedItem
	sectionSeq []string

	symbols *SymbolTable
	exports map[string]bool
	imports map[string]bool
	errors  *ErrorList
}

// NewParser creates a parser over source, tagging diagnostics with filename.
func NewParser(source, filename string) *Parser {
	lex := NewLexer(source, filename)
	tokens := lex.TokenizeAll()
	p := &Parser{
		tokens:     tokens,
		filename:   filename,
		lines:      strings.Split(source, "\n"),
		curSection: ".text",
		sectionPos: make(map[string]int),
		items:      make(map[string][]ParsedItem),
		symbols:    NewSymbolTable(),
		exports:    make(map[string]bool),
		imports:    make(map[string]bool),
		errors:     lex.Errors(),
	}
	return p
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEoF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) next() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) unget() {
	if p.pos > 0 {
		p.pos--
	}
}

func (p *Parser) rawLine(lineNo int) string {
	if lineNo-1 < 0 || lineNo-1 >= len(p.lines) {
		return ""
	}
	return strings.TrimRight(p.lines[lineNo-1], "\r")
}

func (p *Parser) addError(pos Position, kind ErrorKind, msg string) {
	p.errors.AddError(NewErrorWithContext(pos, kind, msg, p.rawLine(pos.Line)))
}

// recoverToNewline discards tokens until (and including) the next newline
// or EoF, so one bad statement doesn't cascade into spurious errors.
func (p *Parser) recoverToNewline() {
	for {
		tok := p.peek()
		if tok.Type == TokenNewline || tok.Type == TokenEoF {
			return
		}
		p.next()
	}
}

func (p *Parser) skipNewlines() {
	for p.peek().Type == TokenNewline {
		p.next()
	}
}

func (p *Parser) expectEndOfStatement() {
	tok := p.peek()
	if tok.Type == TokenNewline || tok.Type == TokenEoF {
		if tok.Type == TokenNewline {
			p.next()
		}
		return
	}
	p.addError(tok.Pos, ErrorSyntax, fmt.Sprintf("expected end of line, got %s %q", tok.Type, tok.Literal))
	p.recoverToNewline()
}

// curPos returns the current byte offset within curSection.
func (p *Parser) curPos() int {
	return p.sectionPos[p.curSection]
}

func (p *Parser) advance(n int) {
	p.sectionPos[p.curSection] += n
}

func (p *Parser) switchSection(name string) {
	if _, ok := p.items[name]; !ok {
		p.sectionSeq = append(p.sectionSeq, name)
	}
	p.curSection = name
	if _, ok := p.sectionPos[name]; !ok {
		p.sectionPos[name] = 0
	}
}

func (p *Parser) appendItem(item ParsedItem) {
	p.items[p.curSection] = append(p.items[p.curSection], item)
}

// Errors returns the accumulated lex/parse error list.
func (p *Parser) Errors() *ErrorList {
	return p.errors
}

// Parse runs the lexer/parser pass and returns the finished Program.
func (p *Parser) Parse() (*Program, error) {
	p.switchSection(".text")

	for {
		p.skipNewlines()
		tok := p.peek()
		if tok.Type == TokenEoF {
			break
		}

		switch tok.Type {
		case TokenIdentifier:
			p.parseLabelOrError()
		case TokenDirective:
			p.next()
			p.handleDirective(tok)
		case TokenMnemonic:
			p.next()
			p.parseInstruction(tok)
		default:
			p.addError(tok.Pos, ErrorSyntax, fmt.Sprintf("unexpected token %s %q", tok.Type, tok.Literal))
			p.recoverToNewline()
		}
	}

	if p.errors.HasErrors() {
		return nil, p.errors
	}

	program := &Program{
		ItemsBySection: p.items,
		SectionOrder:   p.sectionSeq,
		Symbols:        p.symbols,
		Exports:        p.exports,
		Imports:        p.imports,
	}
	return program, nil
}

func (p *Parser) parseLabelOrError() {
	identTok := p.next()
	if p.peek().Type != TokenColon {
		p.addError(identTok.Pos, ErrorSyntax, fmt.Sprintf("unexpected identifier %q", identTok.Literal))
		p.unget()
		p.recoverToNewline()
		return
	}
	p.next() // consume ':'
	name := identTok.Literal

	if p.peek().Type == TokenDirective && p.peek().Literal == "imm" {
		p.next() // consume '.imm'
		val, ok := p.parseImmediateValue()
		if !ok {
			p.recoverToNewline()
			return
		}
		if err := p.symbols.Define(name, uint32(val), ".abs"); err != nil {
			p.addError(identTok.Pos, ErrorDuplicateLabel, err.Error())
		}
		p.expectEndOfStatement()
		return
	}

	if err := p.symbols.Define(name, uint32(p.curPos()), p.curSection); err != nil {
		p.addError(identTok.Pos, ErrorDuplicateLabel, err.Error())
	}
	// A label may be immediately followed by a directive or instruction on
	// the same line; fall through to the main dispatch instead of consuming
	// the rest of the statement here.
}

// parseImmediateValue parses a (possibly signed) literal immediate, the
// only form `.imm VALUE` and `sysc imm8` accept.
func (p *Parser) parseImmediateValue() (int64, bool) {
	tok := p.peek()
	switch tok.Type {
	case TokenImmediate:
		p.next()
		return tok.Value, true
	case TokenPlus:
		p.next()
		inner := p.peek()
		if inner.Type != TokenImmediate {
			p.addError(inner.Pos, ErrorSyntax, "expected immediate after '+'")
			return 0, false
		}
		p.next()
		return inner.Value, true
	default:
		p.addError(tok.Pos, ErrorSyntax, fmt.Sprintf("expected immediate value, got %s %q", tok.Type, tok.Literal))
		return 0, false
	}
}

func (p *Parser) handleDirective(tok Token) {
	switch tok.Literal {
	case "global", "export":
		name := p.expectIdentifier()
		if name != "" {
			p.exports[name] = true
			p.symbols.MarkGlobal(name)
		}
		p.expectEndOfStatement()
	case "import":
		name := p.expectIdentifier()
		if name != "" {
			p.imports[name] = true
			p.symbols.MarkGlobal(name)
			// An import has no section/value of its own until link time;
			// Defined stays false so local resolution skips it.
		}
		p.expectEndOfStatement()
	case "text":
		p.switchSection(".text")
		p.expectEndOfStatement()
	case "data":
		p.switchSection(".data")
		p.expectEndOfStatement()
	case "bss":
		p.switchSection(".bss")
		p.expectEndOfStatement()
	case "section":
		name := p.expectIdentifier()
		if name == "" {
			name = p.expectDirectiveAsName()
		}
		if name != "" {
			p.switchSection(name)
		}
		p.expectEndOfStatement()
	case "byte":
		p.parseByteDirective()
	case "word":
		p.parseWordDirective()
	case "ascii":
		p.parseAsciiDirective()
	case "imm":
		p.addError(tok.Pos, ErrorInvalidDirective, ".imm must follow a label, e.g. NAME: .imm VALUE")
		p.recoverToNewline()
	default:
		p.addError(tok.Pos, ErrorInvalidDirective, fmt.Sprintf("unknown directive %q", tok.Literal))
		p.recoverToNewline()
	}
}

// expectIdentifier consumes and returns an identifier token's literal, or ""
// (recording an error) if the next token isn't one.
func (p *Parser) expectIdentifier() string {
	tok := p.peek()
	if tok.Type != TokenIdentifier {
		p.addError(tok.Pos, ErrorSyntax, fmt.Sprintf("expected identifier, got %s %q", tok.Type, tok.Literal))
		return ""
	}
	p.next()
	return tok.Literal
}

// expectDirectiveAsName allows `.section .foo` where the section name itself
// lexes as a directive token because it begins with '.'.
func (p *Parser) expectDirectiveAsName() string {
	tok := p.peek()
	if tok.Type != TokenDirective {
		return ""
	}
	p.next()
	return "." + tok.Literal
}

func (p *Parser) parseByteDirective() {
	var values []byte
	for {
		v, ok := p.parseImmediateValue()
		if !ok {
			p.recoverToNewline()
			return
		}
		if v < 0 || v > 0xFF {
			p.addError(p.peek().Pos, ErrorInvalidOperand, fmt.Sprintf(".byte value %d out of range 0..255", v))
		}
		values = append(values, byte(v))
		if p.peek().Type == TokenComma {
			p.next()
			continue
		}
		break
	}
	p.appendItem(ParsedItem{Kind: ItemData, Data: values})
	p.advance(len(values))
	p.expectEndOfStatement()
}

func (p *Parser) parseWordDirective() {
	v, ok := p.parseImmediateValue()
	if !ok {
		p.recoverToNewline()
		return
	}
	if v < 0 || v > 0xFFFF {
		p.addError(p.peek().Pos, ErrorInvalidOperand, fmt.Sprintf(".word value %d out of range 0..65535", v))
	}
	data := []byte{byte(v >> 8), byte(v)}
	p.appendItem(ParsedItem{Kind: ItemData, Data: data})
	p.advance(2)
	p.expectEndOfStatement()
}

func (p *Parser) parseAsciiDirective() {
	tok := p.peek()
	if tok.Type != TokenString {
		p.addError(tok.Pos, ErrorSyntax, "expected string literal after .ascii")
		p.recoverToNewline()
		return
	}
	p.next()
	data := []byte(tok.Literal)
	p.appendItem(ParsedItem{Kind: ItemData, Data: data})
	p.advance(len(data))
	p.expectEndOfStatement()
}

func (p *Parser) parseInstruction(tok Token) {
	mnemonic := tok.Literal
	inst := ParsedInstruction{
		Mnemonic: mnemonic,
		Rd:       -1,
		Rs:       -1,
		Rb:       -1,
		Pos:      tok.Pos,
		RawLine:  p.rawLine(tok.Pos.Line),
		Offset0:  p.curPos(),
	}

	switch {
	case isVirtual(mnemonic):
		p.parseVirtual(mnemonic, &inst)
	case isAType(mnemonic):
		inst.Family = FamilyA
		p.parseTwoRegisters(&inst)
	case isIType(mnemonic):
		inst.Family = FamilyI
		p.parseRegisterAndOperand(&inst)
	case isMType(mnemonic):
		inst.Family = FamilyM
		p.parseMemoryOperand(&inst)
	case isBranchType(mnemonic):
		p.parseBranch(mnemonic, &inst)
	case isSType(mnemonic):
		inst.Family = FamilyS
		p.parseStackOperand(mnemonic, &inst)
	case isPType(mnemonic):
		inst.Family = FamilyP
		p.parsePeekPoke(mnemonic, &inst)
	case isXType(mnemonic):
		inst.Family = FamilyX
		p.parseExtended(mnemonic, &inst)
	default:
		p.addError(tok.Pos, ErrorInvalidInstruction, fmt.Sprintf("unknown mnemonic %q", mnemonic))
		p.recoverToNewline()
		return
	}

	p.appendItem(ParsedItem{Kind: ItemInstruction, Instruction: inst})
	p.advance(2)
	p.expectEndOfStatement()
}

func (p *Parser) parseVirtual(mnemonic string, inst *ParsedInstruction) {
	switch mnemonic {
	case "nop":
		inst.Family = FamilyA
		inst.Mnemonic = "add"
		inst.Rd, inst.Rs = 0, 0
		inst.IsNop = true
	case "inc":
		inst.Family = FamilyI
		inst.Mnemonic = "addi"
		inst.Rd = p.expectRegister()
		inst.Imm = ImmediateOperand(1)
	case "dec":
		inst.Family = FamilyI
		inst.Mnemonic = "subi"
		inst.Rd = p.expectRegister()
		inst.Imm = ImmediateOperand(1)
	}
}

func (p *Parser) expectRegister() int {
	tok := p.peek()
	if tok.Type != TokenRegister {
		p.addError(tok.Pos, ErrorUnknownRegister, fmt.Sprintf("expected register, got %s %q", tok.Type, tok.Literal))
		return -1
	}
	p.next()
	n := registerNumber(tok.Literal)
	return n
}

func registerNumber(canon string) int {
	n := 0
	fmt.Sscanf(canon, "r%d", &n)
	return n
}

func (p *Parser) expectComma() {
	tok := p.peek()
	if tok.Type != TokenComma {
		p.addError(tok.Pos, ErrorSyntax, fmt.Sprintf("expected ',', got %s %q", tok.Type, tok.Literal))
		return
	}
	p.next()
}

func (p *Parser) parseTwoRegisters(inst *ParsedInstruction) {
	inst.Rd = p.expectRegister()
	p.expectComma()
	inst.Rs = p.expectRegister()
}

func (p *Parser) parseOperand() Operand {
	tok := p.peek()
	switch tok.Type {
	case TokenImmediate:
		p.next()
		return ImmediateOperand(uint16(uint32(tok.Value)))
	case TokenPlus:
		p.next()
		inner := p.peek()
		if inner.Type != TokenImmediate {
			p.addError(inner.Pos, ErrorSyntax, "expected immediate after '+'")
			return ImmediateOperand(0)
		}
		p.next()
		return ImmediateOperand(uint16(inner.Value))
	case TokenIdentifier:
		p.next()
		p.symbols.Reference(tok.Literal)
		return LabelOperand(tok.Literal)
	default:
		p.addError(tok.Pos, ErrorInvalidOperand, fmt.Sprintf("expected immediate or label, got %s %q", tok.Type, tok.Literal))
		return ImmediateOperand(0)
	}
}

func (p *Parser) parseRegisterAndOperand(inst *ParsedInstruction) {
	inst.Rd = p.expectRegister()
	p.expectComma()
	inst.Imm = p.parseOperand()
}

// sprName maps a canonical register used in the offset slot of a M-type
// address to its SPR selector literal, per spec.md's -6/-7/-8 encodings.
func sprName(canon string) (int, bool) {
	switch canon {
	case "r10":
		return SPRTr, true
	case "r12":
		return SPRSp, true
	case "r14":
		return SPRPc, true
	}
	return 0, false
}

func (p *Parser) parseMemoryOperand(inst *ParsedInstruction) {
	inst.Rd = p.expectRegister()
	p.expectComma()
	if p.peek().Type != TokenLBracket {
		p.addError(p.peek().Pos, ErrorInvalidOperand, "expected '[' to start memory operand")
		return
	}
	p.next()
	inst.Rb = p.expectRegister()
	inst.Offset = 0
	if p.peek().Type == TokenComma {
		p.next()
		offTok := p.peek()
		if offTok.Type == TokenRegister {
			p.next()
			if spr, ok := sprName(offTok.Literal); ok {
				inst.Offset = spr
			} else {
				p.addError(offTok.Pos, ErrorInvalidOperand, fmt.Sprintf("register %q is not a valid SPR selector", offTok.Literal))
			}
		} else {
			v, ok := p.parseImmediateValue()
			if !ok {
				return
			}
			if v < -5 || v > 7 {
				p.addError(offTok.Pos, ErrorInvalidOperand, fmt.Sprintf("M-type offset %d out of range [-5,7]", v))
			}
			inst.Offset = int(v)
		}
	}
	if p.peek().Type != TokenRBracket {
		p.addError(p.peek().Pos, ErrorInvalidOperand, "expected ']' to close memory operand")
		return
	}
	p.next()
}

func (p *Parser) parseBranch(mnemonic string, inst *ParsedInstruction) {
	first := p.peek()
	if first.Type == TokenRegister {
		inst.Family = FamilyBR
		inst.Rs = p.expectRegister()
		p.expectComma()
		inst.Rb = p.expectRegister() // rs_hi, reuses Rb slot
		return
	}

	inst.Family = FamilyBI
	explicitAbs := false
	if first.Type == TokenAt {
		p.next()
		explicitAbs = true
	}
	inst.Imm = p.parseOperand()
	// A label names an absolute location; only a bare numeric literal can be
	// a PC-relative offset, so the abs bit follows the operand's shape unless
	// '@' forces it.
	inst.Abs = explicitAbs || inst.Imm.Kind == OperandLabel
}

func (p *Parser) parseStackOperand(mnemonic string, inst *ParsedInstruction) {
	switch mnemonic {
	case "push":
		inst.Rs = p.expectRegister()
	case "pop":
		inst.Rd = p.expectRegister()
	case "subsp", "addsp":
		tok := p.peek()
		if tok.Type == TokenRegister {
			inst.Rs = p.expectRegister()
		} else {
			v, ok := p.parseImmediateValue()
			if !ok {
				return
			}
			if v < 0 || v > 0x7F {
				p.addError(tok.Pos, ErrorInvalidOperand, fmt.Sprintf("%s immediate %d out of range 0..127", mnemonic, v))
			}
			inst.Imm = ImmediateOperand(uint16(v))
		}
	}
}

func (p *Parser) parsePeekPoke(mnemonic string, inst *ParsedInstruction) {
	if mnemonic == "peek" {
		inst.Rd = p.expectRegister()
	} else {
		inst.Rs = p.expectRegister()
	}
	p.expectComma()
	inst.Imm = p.parseOperand()
}

func (p *Parser) parseExtended(mnemonic string, inst *ParsedInstruction) {
	if mnemonic != "sysc" {
		return
	}
	if p.peek().Type == TokenImmediate {
		v, ok := p.parseImmediateValue()
		if ok {
			if v < 0 || v > 0xFF {
				p.addError(p.peek().Pos, ErrorInvalidOperand, fmt.Sprintf("sysc immediate %d out of range 0..255", v))
			}
			inst.Imm = ImmediateOperand(uint16(v))
		}
	}
}
