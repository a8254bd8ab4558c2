package asm

import (
	"strconv"
	"strings"

	"moonflower/bytecode"
	"moonflower/diag"
)

// ModuleResolver lets the assembler resolve an `import` directive against
// already-loaded modules, mirroring compiler.ModuleResolver without an
// import of the compiler package (component C and component D are
// siblings, neither depends on the other).
type ModuleResolver interface {
	FindModule(name string) (index uint16, mod *bytecode.Module, found bool)
}

// Assemble parses source (one directive per logical line) and returns the
// finished Module plus whatever diagnostics were raised. Assembly, like
// compilation, proceeds past errors so a caller sees every message from a
// single pass.
func Assemble(name, source string, resolver ModuleResolver) (*bytecode.Module, diag.Messages) {
	ctx := NewContext()
	dataLabels := make(map[string]uint16)

	lines := strings.Split(source, "\n")
	for i, raw := range lines {
		loc := diag.Location{Line: i + 1, Column: 1}
		line := stripComment(raw)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parseLine(ctx, dataLabels, resolver, line, loc)
	}

	for label, sites := range ctx.LabelTodo {
		addr, ok := ctx.Labels[label]
		if !ok {
			ctx.errorf(diag.Location{}, "undefined label: %s", label)
			continue
		}
		for _, idx := range sites {
			patchLabel(ctx, idx, addr)
		}
	}

	mod := &bytecode.Module{
		Name:          name,
		Text:          ctx.Program,
		Data:          ctx.Data,
		Exports:       ctx.Exports,
		NativeExports: ctx.NativeExports,
		Imports:       ctx.Imports,
		EntryPoint:    ctx.EntryPoint,
	}
	return mod, ctx.Messages
}

func patchLabel(ctx *Context, idx int, addr uint16) {
	instr := &ctx.Program[idx]
	if instr.Op.IsRelativeJump() {
		rel := int32(addr) - int32(idx) - 1
		instr.SetDI(rel)
		return
	}
	instr.SetAddr(bytecode.ProgramAddress{Module: bytecode.SelfModule, Offset: addr})
}

func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		return line[:i]
	}
	return line
}

func parseLine(ctx *Context, dataLabels map[string]uint16, resolver ModuleResolver, line string, loc diag.Location) {
	fields := strings.Fields(line)

	// A leading `label:` token may share its line with the instruction it
	// labels (`main: isetc 0, 7`) or stand alone (`main:`).
	if strings.HasSuffix(fields[0], ":") {
		ctx.AddLabel(strings.TrimSuffix(fields[0], ":"), loc)
		if len(fields) == 1 {
			return
		}
		line = strings.TrimSpace(line[strings.Index(line, ":")+1:])
		fields = strings.Fields(line)
	}

	directive := strings.ToLower(fields[0])

	switch directive {
	case "entry":
		if ctx.HasEntry {
			ctx.errorf(loc, "duplicate entry directive")
			return
		}
		ctx.EntryPoint = uint16(len(ctx.Program))
		ctx.HasEntry = true
		return

	case "export":
		parseExport(ctx, fields, loc)
		return

	case "import":
		parseImport(ctx, dataLabels, resolver, line, loc)
		return
	}

	operandText := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	operands := splitOperands(operandText)
	emitMnemonic(ctx, dataLabels, directive, operands, loc)
}

func parseExport(ctx *Context, fields []string, loc diag.Location) {
	if len(fields) < 2 {
		ctx.errorf(loc, "export requires a name")
		return
	}
	name := fields[1]
	if len(fields) >= 3 && strings.ToLower(fields[2]) == "native" {
		ctx.NativeExports[name] = uint32(len(ctx.Program))
		return
	}
	ctx.Exports[name] = uint16(len(ctx.Program))
}

// parseImport handles `import MODULE { NAME ... };`: each named symbol is
// resolved against resolver, a 16-byte PolyFunc record is written to the
// module's data segment, and the symbol is registered under dataLabels so
// later `setdat` lines can reference it by name instead of a raw offset.
func parseImport(ctx *Context, dataLabels map[string]uint16, resolver ModuleResolver, line string, loc diag.Location) {
	open := strings.Index(line, "{")
	close := strings.Index(line, "}")
	if open < 0 || close < 0 || close < open {
		ctx.errorf(loc, "malformed import directive")
		return
	}

	header := strings.Fields(line[len("import"):open])
	if len(header) != 1 {
		ctx.errorf(loc, "import requires exactly one module name")
		return
	}
	moduleName := strings.Trim(header[0], `"`)

	namesText := line[open+1 : close]
	namesText = strings.ReplaceAll(namesText, ",", " ")
	names := strings.Fields(namesText)
	if len(names) == 0 {
		ctx.warnf(loc, "Unused import")
		return
	}

	idx, mod, found := resolver.FindModule(moduleName)

	for _, sym := range names {
		if !found {
			ctx.errorf(loc, "import references an unloaded module: %s", moduleName)
			ctx.Imports = append(ctx.Imports, bytecode.Import{FromModule: moduleName, Name: sym})
			continue
		}

		var poly bytecode.PolyFunc
		switch {
		case hasKey(mod.Exports, sym):
			poly = bytecode.PolyFunc{Tag: bytecode.PolyTagMoonflower, Addr: bytecode.ProgramAddress{Module: idx, Offset: mod.Exports[sym]}}
		case hasNativeKey(mod.NativeExports, sym):
			poly = bytecode.PolyFunc{Tag: bytecode.PolyTagNative, NativeIndex: mod.NativeExports[sym]}
		default:
			ctx.errorf(loc, "import references an unexported symbol: %s.%s", moduleName, sym)
			ctx.Imports = append(ctx.Imports, bytecode.Import{FromModule: moduleName, Name: sym})
			continue
		}

		enc := poly.Encode()
		off := uint16(len(ctx.Data))
		ctx.Data = append(ctx.Data, enc[:]...)
		dataLabels[sym] = off
		ctx.Imports = append(ctx.Imports, bytecode.Import{FromModule: moduleName, Name: sym, AtOffset: off})
	}
}

func hasKey(m map[string]uint16, k string) bool    { _, ok := m[k]; return ok }
func hasNativeKey(m map[string]uint32, k string) bool { _, ok := m[k]; return ok }

func splitOperands(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// emitMnemonic decodes one instruction mnemonic and its operands. Label
// operands (setadr/jmp/jmpifn) that aren't yet in ctx.Labels are emitted
// as placeholders and queued in ctx.LabelTodo for the final patch pass.
func emitMnemonic(ctx *Context, dataLabels map[string]uint16, mnemonic string, operands []string, loc diag.Location) {
	op, ok := bytecode.OpFromString(mnemonic)
	if !ok {
		ctx.errorf(loc, "unknown mnemonic: %s", mnemonic)
		return
	}

	want := operandCount(op)
	if len(operands) != want {
		ctx.errorf(loc, "%s expects %d operand(s), got %d", mnemonic, want, len(operands))
		return
	}

	switch op {
	case bytecode.Terminate:
		ctx.Program = append(ctx.Program, bytecode.NewDI(op, 0, parseInt(ctx, operands[0], loc)))

	case bytecode.Isetc:
		ctx.Program = append(ctx.Program, bytecode.NewDI(op, parseReg(ctx, operands[0], loc), parseInt(ctx, operands[1], loc)))
	case bytecode.Fsetc:
		ctx.Program = append(ctx.Program, bytecode.NewDF(op, parseReg(ctx, operands[0], loc), parseFloatOperand(ctx, operands[1], loc)))
	case bytecode.Bsetc:
		ctx.Program = append(ctx.Program, bytecode.NewDB(op, parseReg(ctx, operands[0], loc), parseBoolOperand(ctx, operands[1], loc)))

	case bytecode.Setadr:
		a := parseReg(ctx, operands[0], loc)
		idx := len(ctx.Program)
		ctx.Program = append(ctx.Program, bytecode.NewAddrInstr(op, a, bytecode.ProgramAddress{}))
		queueLabel(ctx, operands[1], idx)

	case bytecode.Setdat:
		a := parseReg(ctx, operands[0], loc)
		b := parseDataOffset(ctx, dataLabels, operands[1], loc)
		c := parseReg(ctx, operands[2], loc)
		ctx.Program = append(ctx.Program, bytecode.NewBC(op, a, b, c))

	case bytecode.Cpy, bytecode.Iadd, bytecode.Isub, bytecode.Imul, bytecode.Idiv, bytecode.Iclt,
		bytecode.Iaddc, bytecode.Icltc, bytecode.Fadd, bytecode.Fsub, bytecode.Fmul, bytecode.Fdiv:
		a := parseReg(ctx, operands[0], loc)
		b := parseReg(ctx, operands[1], loc)
		c := parseReg(ctx, operands[2], loc)
		ctx.Program = append(ctx.Program, bytecode.NewBC(op, a, b, c))

	case bytecode.Jmp:
		idx := len(ctx.Program)
		ctx.Program = append(ctx.Program, bytecode.NewDI(op, 0, 0))
		queueLabel(ctx, operands[0], idx)

	case bytecode.Jmpifn:
		a := parseReg(ctx, operands[0], loc)
		idx := len(ctx.Program)
		ctx.Program = append(ctx.Program, bytecode.NewDI(op, a, 0))
		queueLabel(ctx, operands[1], idx)

	case bytecode.Call:
		a := parseReg(ctx, operands[0], loc)
		b := parseReg(ctx, operands[1], loc)
		ctx.Program = append(ctx.Program, bytecode.NewBC(op, a, b, 0))

	case bytecode.Ret:
		ctx.Program = append(ctx.Program, bytecode.NewBC(op, 0, 0, 0))

	case bytecode.Cfcall:
		a := parseReg(ctx, operands[0], loc)
		ctx.Program = append(ctx.Program, bytecode.NewBC(op, a, 0, 0))

	case bytecode.Pfcall:
		a := parseReg(ctx, operands[0], loc)
		b := parseReg(ctx, operands[1], loc)
		ctx.Program = append(ctx.Program, bytecode.NewBC(op, a, b, 0))
	}
}

func operandCount(op bytecode.Op) int {
	switch op {
	case bytecode.Terminate, bytecode.Cfcall:
		return 1
	case bytecode.Isetc, bytecode.Fsetc, bytecode.Bsetc, bytecode.Jmpifn, bytecode.Call, bytecode.Pfcall:
		return 2
	case bytecode.Setadr:
		return 2
	case bytecode.Setdat, bytecode.Cpy, bytecode.Iadd, bytecode.Isub, bytecode.Imul, bytecode.Idiv,
		bytecode.Iclt, bytecode.Iaddc, bytecode.Icltc, bytecode.Fadd, bytecode.Fsub, bytecode.Fmul, bytecode.Fdiv:
		return 3
	case bytecode.Jmp:
		return 1
	case bytecode.Ret:
		return 0
	}
	return 0
}

func queueLabel(ctx *Context, label string, idx int) {
	if addr, ok := ctx.Labels[label]; ok {
		patchLabel(ctx, idx, addr)
		return
	}
	ctx.LabelTodo[label] = append(ctx.LabelTodo[label], idx)
}

func parseReg(ctx *Context, s string, loc diag.Location) int16 {
	v, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		ctx.errorf(loc, "invalid frame offset: %s", s)
		return 0
	}
	return int16(v)
}

func parseInt(ctx *Context, s string, loc diag.Location) int32 {
	v, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		ctx.errorf(loc, "invalid integer literal: %s", s)
		return 0
	}
	return int32(v)
}

func parseFloatOperand(ctx *Context, s string, loc diag.Location) float32 {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		ctx.errorf(loc, "invalid float literal: %s", s)
		return 0
	}
	return float32(v)
}

func parseBoolOperand(ctx *Context, s string, loc diag.Location) bool {
	switch s {
	case "true", "1":
		return true
	case "false", "0":
		return false
	}
	ctx.errorf(loc, "invalid bool literal: %s", s)
	return false
}

// parseDataOffset accepts either a numeric literal or a name registered by
// a prior `import` directive.
func parseDataOffset(ctx *Context, dataLabels map[string]uint16, s string, loc diag.Location) int16 {
	if off, ok := dataLabels[s]; ok {
		return int16(off)
	}
	return parseReg(ctx, s, loc)
}
