package decompile

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dhamidi/jbcm/classfile"
	"github.com/dhamidi/jbcm/flow"
	"github.com/dhamidi/jbcm/ir"
	"github.com/dhamidi/jbcm/opcode"
)

var ErrBadConstant = errors.New("unresolvable constant pool reference")

// Method is everything the scan needs about one method. Class is the
// internal name of the declaring class.
type Method struct {
	Class      string
	Name       string
	Descriptor string
	Static     bool
	Code       []byte
	Exceptions []ExceptionEntry
	Locals     ir.LocalVariableTable
	Pool       ConstantPool
}

type Result struct {
	Source     string
	Parameters []ir.ParameterSrc
	// Created and Deregistered count the emitters of the scan.
	Created      int
	Deregistered int
	// Diagnostics describe code shapes the output does not model
	// faithfully.
	Diagnostics []string
}

type Decompiler struct {
	opts Options
}

func New(opts Options) *Decompiler {
	if opts.IndentMark == "" {
		opts.IndentMark = DefaultOptions().IndentMark
	}
	return &Decompiler{opts: opts}
}

// LocalsFromCode converts the LocalVariableTable attributes of code.
func LocalsFromCode(code *classfile.Code) ir.LocalVariableTable {
	var lvt ir.LocalVariableTable
	for _, lv := range code.LocalVariables() {
		typ := opcode.Object
		if t, _, err := classfile.ParseType(lv.Descriptor); err == nil {
			typ = t.String()
		}
		lvt = append(lvt, ir.LocalName{
			Slot:    int(lv.Slot),
			Name:    lv.Name,
			Type:    typ,
			StartPC: int(lv.StartPC),
			Length:  int(lv.Length),
		})
	}
	return lvt
}

// Method decompiles the body of m in one forward pass.
func (d *Decompiler) Method(m Method) (*Result, error) {
	return d.method(m, 0)
}

type startEmitter struct {
	em  Emitter
	end int
}

type span struct{ from, to int }

type scan struct {
	m      Method
	opts   Options
	code   []byte
	ret    classfile.Type
	stack  *ir.MethodStack
	src    *SourceBuffer
	engine *Engine
	roles  flow.Roles

	starts    map[int][]startEmitter
	doWhile   map[int]*Loop
	handlers  map[int]bool
	silent    []span
	catchVars map[*ir.VariableInfo]bool
	anonymous int

	// monitors counts the synchronized blocks opened since the last
	// monitorexit.
	monitors    int
	switches    []*flow.Switch
	diagnostics []string
}

func (d *Decompiler) method(m Method, depth int) (*Result, error) {
	mt, err := classfile.ParseMethodType(m.Descriptor)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name, err)
	}
	if err := checkPool(m); err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name, err)
	}
	src := NewSourceBuffer(d.opts.IndentMark, depth)
	s := &scan{
		m:         m,
		opts:      d.opts,
		code:      m.Code,
		ret:       mt.Return,
		stack:     ir.NewMethodStack(classfile.SourceName(m.Class), m.Name, !m.Static),
		src:       src,
		engine:    NewEngine(m.Code, src),
		starts:    make(map[int][]startEmitter),
		doWhile:   make(map[int]*Loop),
		handlers:  make(map[int]bool),
		catchVars: make(map[*ir.VariableInfo]bool),
	}
	s.parameters(mt)

	conds, err := flow.FindConditions(m.Code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name, err)
	}
	s.roles = flow.Classify(conds)
	for _, c := range conds {
		if c.Usage == ir.UsageDoWhileLoop {
			lp := NewDoWhile(c, d.opts.EndComments)
			s.doWhile[c.Index] = lp
			s.addStart(lp.StartIndex(), c.UpperIndex(), lp)
		}
	}
	s.tryBlocks()
	for _, list := range s.starts {
		slices.SortStableFunc(list, func(a, b startEmitter) int { return cmp.Compare(b.end, a.end) })
	}

	indices, err := opcode.Indices(m.Code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name, err)
	}
	for _, idx := range indices {
		if err := s.visit(idx); err != nil {
			return nil, fmt.Errorf("%s: %s at %d: %w", m.Name, opcode.Opcode(m.Code[idx]), idx, err)
		}
	}
	if err := s.engine.Finish(); err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name, err)
	}
	for _, sw := range s.switches {
		if !sw.IsFinished() {
			s.report("%s closed before every case was reached", sw)
		}
	}
	return &Result{
		Source:       src.String(),
		Parameters:   s.stack.Parameters(),
		Created:      s.engine.Created(),
		Deregistered: s.engine.Deregistered(),
		Diagnostics:  s.diagnostics,
	}, nil
}

// report logs a code shape that the output does not reproduce faithfully
// and records it on the result.
func (s *scan) report(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Warningf("%s: %s", s.m.Name, msg)
	s.diagnostics = append(s.diagnostics, msg)
}

// checkPool fails when m has no constant pool but its code or exception
// table refers to one.
func checkPool(m Method) error {
	if m.Pool != nil {
		return nil
	}
	for _, e := range m.Exceptions {
		if e.CatchType != 0 {
			return fmt.Errorf("%w: catch type #%d without a constant pool", ErrBadConstant, e.CatchType)
		}
	}
	indices, err := opcode.Indices(m.Code)
	if err != nil {
		return nil
	}
	for _, idx := range indices {
		if index, ok := opcode.PoolIndex(m.Code, idx); ok {
			return fmt.Errorf("%w: %s at %d refers to #%d without a constant pool", ErrBadConstant, opcode.Opcode(m.Code[idx]), idx, index)
		}
	}
	return nil
}

func (s *scan) parameters(mt classfile.MethodType) {
	slot := 0
	if !s.m.Static {
		slot = 1
	}
	for _, p := range mt.Params {
		typ := p.String()
		if e, ok := s.m.Locals.Lookup(slot, 0, 0); ok && e.Name != "" {
			s.stack.AddParameter(e.Name, typ)
		} else {
			s.stack.AddParameterUnnamed(typ)
		}
		slot += p.Slots()
	}
}

func (s *scan) addStart(idx, end int, em Emitter) {
	s.starts[idx] = append(s.starts[idx], startEmitter{em: em, end: end})
}

// tryBlocks turns the exception table into try emitters. Handlers the
// compiler generates for synchronized blocks are not shown; their code up
// to the rethrow is simulated silently.
func (s *scan) tryBlocks() {
	type key struct{ start, end int }
	groups := make(map[key][]ExceptionEntry)
	var order []key

	for _, e := range s.m.Exceptions {
		if e.Start >= e.End || e.End > len(s.code) || e.Handler >= len(s.code) {
			log.Warningf("%s: ignoring malformed exception entry %+v", s.m.Name, e)
			continue
		}
		if s.monitorGuard(e) {
			log.Debugf("%s: exception entry %+v guards a synchronized block", s.m.Name, e)
			s.silence(e.Handler)
			continue
		}
		if e.Start <= e.Handler && e.Handler < e.End {
			s.report("exception entry %+v covers its own handler", e)
			s.silence(e.Handler)
			continue
		}
		k := key{e.Start, e.End}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], e)
	}

	for _, k := range order {
		entries := groups[k]
		slices.SortStableFunc(entries, func(a, b ExceptionEntry) int { return cmp.Compare(a.Handler, b.Handler) })
		clauses := make([]CatchClause, len(entries))
		for i, e := range entries {
			typ := "Throwable"
			if e.CatchType != 0 {
				typ = classfile.ClassType(s.m.Pool.ClassName(e.CatchType)).String()
			}
			clauses[i] = CatchClause{Handler: e.Handler, Type: typ, Var: s.catchVariable(e.Handler, typ)}
		}
		closeAt := s.tryEnd(entries[0].Handler, entries[len(entries)-1].Handler)
		em := NewTryCatch(k.start, k.end, closeAt, clauses, s.stack, s.opts.EndComments)
		s.addStart(k.start, closeAt, em)
	}
}

// monitorGuard reports whether e protects the body of a synchronized block:
// the instruction before its range is monitorenter and the last one inside
// is monitorexit.
func (s *scan) monitorGuard(e ExceptionEntry) bool {
	before := opcode.LastBefore(s.code, 0, e.Start)
	last := opcode.LastBefore(s.code, e.Start, e.End)
	return before >= 0 && last >= 0 &&
		opcode.Opcode(s.code[before]) == opcode.Monitorenter &&
		opcode.Opcode(s.code[last]) == opcode.Monitorexit
}

func (s *scan) silence(handler int) {
	if s.handlers[handler] {
		return
	}
	s.handlers[handler] = true
	to := handler
	for idx := handler; idx < len(s.code); idx = opcode.Next(s.code, idx) {
		to = idx
		if opcode.Opcode(s.code[idx]) == opcode.Athrow {
			break
		}
	}
	s.silent = append(s.silent, span{handler, to})
}

func (s *scan) quiet(idx int) bool {
	for _, sp := range s.silent {
		if idx >= sp.from && idx <= sp.to {
			return true
		}
	}
	return false
}

// tryEnd is where a try statement closes: the target of the goto that
// skips the handlers, or else the instruction after the last handler's
// reachable code.
func (s *scan) tryEnd(first, last int) int {
	before := opcode.LastBefore(s.code, 0, first)
	if before >= 0 {
		if op := opcode.Opcode(s.code[before]); op == opcode.Goto || op == opcode.GotoW {
			if target := before + opcode.Branch(s.code, before); target > last {
				return target
			}
		}
	}
	end := flow.MaxIndex(flow.Trace(s.code, last))
	if end < 0 {
		return len(s.code)
	}
	return opcode.Next(s.code, end)
}

// catchVariable names the exception of a handler after the local it is
// stored into, when the handler starts with a store.
func (s *scan) catchVariable(handler int, typ string) *ir.VariableInfo {
	op := opcode.Opcode(s.code[handler])
	if op.Is(opcode.Store) {
		slot := opcode.LocalSlot(s.code, handler)
		if v, err := s.declare(slot, typ, handler); err == nil {
			s.catchVars[v] = true
			return v
		}
	}
	s.anonymous++
	v := &ir.VariableInfo{Name: "ex" + strconv.Itoa(s.anonymous), Type: typ}
	s.catchVars[v] = true
	return v
}

func (s *scan) visit(idx int) error {
	op := opcode.Opcode(s.code[idx])
	tested := false
	if lp, ok := s.doWhile[idx]; ok && op.Is(opcode.Conditional) {
		lhs, rhs, err := s.sides(op)
		if err != nil {
			return err
		}
		lp.SetTest(lhs, rhs)
		tested = true
	}

	if op == opcode.Monitorexit {
		if s.monitors > 1 {
			s.report("monitorexit at %d closes %d nested synchronized blocks at once", idx, s.monitors)
		}
		s.monitors = 0
	}
	s.engine.Dispatch(idx)
	for _, st := range s.starts[idx] {
		s.engine.Register(st.em, idx)
	}
	if s.handlers[idx] {
		s.stack.ClearOperands()
		s.stack.AddOperand(ir.ExprOperand("ex", "java.lang.Throwable", opcode.Athrow))
	}
	return s.step(idx, op, tested)
}

func (s *scan) stmt(idx int, line string) {
	if s.quiet(idx) {
		return
	}
	s.src.Line(line)
}

func (s *scan) push(o ir.Operand) { s.stack.AddOperand(o) }

func (s *scan) pop() (ir.Operand, error) { return s.stack.PopOperand() }

// sides pops the operands of a conditional jump and renders them as the
// two sides of its comparison.
func (s *scan) sides(op opcode.Opcode) (lhs, rhs string, err error) {
	if op.Info().Pops == 2 {
		ops, err := s.stack.PopOperands(2)
		if err != nil {
			return "", "", err
		}
		return ops[0].Expression(), ops[1].Expression(), nil
	}
	v, err := s.pop()
	if err != nil {
		return "", "", err
	}
	switch {
	case v.IsCompare():
		return v.Left, v.Right, nil
	case op == opcode.Ifnull || op == opcode.Ifnonnull:
		return v.Expression(), "null", nil
	case v.Type == "boolean":
		return v.Expression(), "false", nil
	}
	return v.Expression(), "0", nil
}

func (s *scan) owner(class string) string {
	if class == s.m.Class {
		return classfile.SimpleName(class)
	}
	return classfile.SourceName(class)
}

func (s *scan) className(index int) string {
	return classfile.ClassType(s.m.Pool.ClassName(uint16(index))).String()
}

// local returns the variable in slot, declaring it from the local variable
// table or its type when nothing has been stored there yet.
func (s *scan) local(slot int, typ string, idx int) (*ir.VariableInfo, error) {
	if v, ok := s.stack.Local(slot); ok {
		return v, nil
	}
	log.Debugf("%s: slot %d read at %d before any store", s.m.Name, slot, idx)
	return s.declare(slot, typ, idx)
}

func (s *scan) declare(slot int, typ string, idx int) (*ir.VariableInfo, error) {
	if e, ok := s.m.Locals.Lookup(slot, idx, opcode.Next(s.code, idx)); ok && e.Name != "" {
		return s.stack.SetNamedVariable(slot, e.Name, typ)
	}
	return s.stack.SetVariable(slot, typ, s.m.Locals)
}

var intFamily = map[string]bool{
	"int": true, "short": true, "byte": true, "char": true, "boolean": true,
}

func storeType(val ir.Operand, info opcode.Info) string {
	switch info.Type {
	case "int":
		if intFamily[val.Type] {
			return val.Type
		}
	case opcode.Object:
		if val.Type != "" && !ir.IsPrimitive(val.Type) {
			return val.Type
		}
	}
	return info.Type
}

func sameKind(a, b string) bool {
	return a == b || (intFamily[a] && intFamily[b]) || (!ir.IsPrimitive(a) && !ir.IsPrimitive(b))
}

func (s *scan) store(idx, slot int, info opcode.Info) error {
	val, err := s.pop()
	if err != nil {
		return err
	}
	if val.Var != nil && s.catchVars[val.Var] {
		_, err := s.stack.SetNamedVariable(slot, val.Var.Name, val.Var.Type)
		return err
	}
	typ := storeType(val, info)
	if v, ok := s.stack.Local(slot); ok && sameKind(v.Type, typ) {
		s.stmt(idx, fmt.Sprintf("%s = %s;", v.Name, val.Expression()))
		return nil
	}
	v, err := s.declare(slot, typ, idx)
	if err != nil {
		return err
	}
	s.stmt(idx, fmt.Sprintf("%s %s = %s;", v.Type, v.Name, val.Expression()))
	return nil
}

func (s *scan) step(idx int, op opcode.Opcode, tested bool) error {
	code := s.code
	if op == opcode.Wide {
		op = opcode.Opcode(opcode.U1(code, idx+1))
	}
	info := op.Info()

	switch {
	case op == opcode.Nop:
	case op == opcode.Bipush || op == opcode.Sipush:
		s.push(ir.ExprOperand(strconv.Itoa(opcode.Operand(code, idx)), "int", op))
	case op == opcode.Ldc || op == opcode.LdcW || op == opcode.Ldc2W:
		index := opcode.U2(code, idx+1)
		if op == opcode.Ldc {
			index = opcode.U1(code, idx+1)
		}
		text, typ, ok := s.m.Pool.Literal(uint16(index))
		if !ok {
			log.Warningf("%s: %s #%d is not a loadable constant", s.m.Name, op, index)
			text, typ = "cp_"+strconv.Itoa(index), opcode.Object
		}
		s.push(ir.ExprOperand(text, typ, op))
	case op.Is(opcode.Const):
		s.push(ir.ExprOperand(info.Const, info.Type, op))
	case op.Is(opcode.Load):
		v, err := s.local(opcode.LocalSlot(code, idx), info.Type, idx)
		if err != nil {
			return err
		}
		s.push(ir.VarOperand(v, op))
	case op.Is(opcode.Store):
		return s.store(idx, opcode.LocalSlot(code, idx), info)
	case op.Is(opcode.ArrayLoad):
		ops, err := s.stack.PopOperands(2)
		if err != nil {
			return err
		}
		arr, index := ops[0], ops[1]
		typ := info.Type
		if elem, ok := strings.CutSuffix(arr.Type, "[]"); ok {
			typ = elem
		}
		s.push(ir.ExprOperand(arr.Nested()+"["+index.Expression()+"]", typ, op))
	case op.Is(opcode.ArrayStore):
		ops, err := s.stack.PopOperands(3)
		if err != nil {
			return err
		}
		s.stmt(idx, fmt.Sprintf("%s[%s] = %s;", ops[0].Nested(), ops[1].Expression(), ops[2].Expression()))
	case op.Is(opcode.StackOp):
		return s.stackOp(idx, op)
	case op.Is(opcode.Negate):
		v, err := s.pop()
		if err != nil {
			return err
		}
		s.push(ir.CompoundOperand("-"+v.Nested(), info.Type, op))
	case op.Is(opcode.Math):
		ops, err := s.stack.PopOperands(2)
		if err != nil {
			return err
		}
		expr := ops[0].Nested() + " " + info.Symbol + " " + ops[1].Nested()
		s.push(ir.CompoundOperand(expr, info.Type, op))
	case op == opcode.Iinc:
		slot, delta := opcode.IncrementOf(code, idx)
		v, err := s.local(slot, "int", idx)
		if err != nil {
			return err
		}
		switch {
		case delta == 1:
			s.stmt(idx, v.Name+"++;")
		case delta == -1:
			s.stmt(idx, v.Name+"--;")
		case delta < 0:
			s.stmt(idx, fmt.Sprintf("%s -= %d;", v.Name, -delta))
		default:
			s.stmt(idx, fmt.Sprintf("%s += %d;", v.Name, delta))
		}
	case op.Is(opcode.Convert):
		v, err := s.pop()
		if err != nil {
			return err
		}
		s.push(ir.CompoundOperand("("+info.Type+") "+v.Nested(), info.Type, op))
	case op.Is(opcode.Compare):
		ops, err := s.stack.PopOperands(2)
		if err != nil {
			return err
		}
		s.push(ir.CompareOperand(ops[0].Nested(), ops[1].Nested(), op))
	case op.Is(opcode.Conditional):
		if tested {
			return nil
		}
		return s.conditional(idx, op)
	case op.Is(opcode.Subroutine):
		if op == opcode.Ret {
			s.stmt(idx, fmt.Sprintf("// ret %d", opcode.LocalSlot(code, idx)))
			return nil
		}
		s.push(ir.ExprOperand("returnAddress", "returnAddress", op))
		s.stmt(idx, fmt.Sprintf("// jsr %d", idx+opcode.Branch(code, idx)))
	case op == opcode.Goto || op == opcode.GotoW:
	case op.Is(opcode.Switch):
		key, err := s.pop()
		if err != nil {
			return err
		}
		sw, err := flow.DecodeSwitch(code, idx)
		if err != nil {
			return err
		}
		s.switches = append(s.switches, sw)
		if sw.ReturnPacked && !flow.IsSimplePacked(code, sw.Cases, sw.Default) {
			s.diagnostics = append(s.diagnostics, fmt.Sprintf("%s: cases do not converge, closing at %d", sw, sw.EndIndex))
		}
		s.engine.Register(NewSwitch(sw, key.Expression(), s.opts.EndComments), idx)
	case op.Is(opcode.Exit):
		if op == opcode.Return {
			s.stmt(idx, "return;")
			return nil
		}
		v, err := s.pop()
		if err != nil {
			return err
		}
		s.stmt(idx, "return "+s.returnValue(v)+";")
	case op.Is(opcode.Field):
		return s.field(idx, op)
	case op.Is(opcode.Invoke):
		return s.invoke(idx, op)
	case op.Is(opcode.Allocate):
		return s.allocate(idx, op)
	case op == opcode.Arraylength:
		v, err := s.pop()
		if err != nil {
			return err
		}
		s.push(ir.ExprOperand(v.Nested()+".length", "int", op))
	case op == opcode.Athrow:
		v, err := s.pop()
		if err != nil {
			return err
		}
		s.stmt(idx, "throw "+v.Expression()+";")
	case op == opcode.Checkcast:
		v, err := s.pop()
		if err != nil {
			return err
		}
		typ := s.className(opcode.U2(code, idx+1))
		s.push(ir.CompoundOperand("("+typ+") "+v.Nested(), typ, op))
	case op == opcode.Instanceof:
		v, err := s.pop()
		if err != nil {
			return err
		}
		typ := s.className(opcode.U2(code, idx+1))
		s.push(ir.CompoundOperand(v.Nested()+" instanceof "+typ, "boolean", op))
	case op == opcode.Monitorenter:
		v, err := s.pop()
		if err != nil {
			return err
		}
		s.engine.Register(NewSynchronized(idx, v.Expression(), s.opts.EndComments), idx)
		s.monitors++
	case op == opcode.Monitorexit:
		_, err := s.pop()
		return err
	default:
		return fmt.Errorf("%w: %s", opcode.ErrUnknownOpcode, op)
	}
	return nil
}

func (s *scan) returnValue(v ir.Operand) string {
	if s.ret.Base == "boolean" && s.ret.Dims == 0 {
		switch v.Expression() {
		case "0":
			return "false"
		case "1":
			return "true"
		}
	}
	return v.Expression()
}

func (s *scan) conditional(idx int, op opcode.Opcode) error {
	lhs, rhs, err := s.sides(op)
	if err != nil {
		return err
	}
	if loop, ok := s.roles.Loops[idx]; ok {
		s.engine.Register(NewWhile(loop, lhs, rhs, s.opts.EndComments), idx)
		return nil
	}
	if c, ok := s.roles.Ifs[idx]; ok {
		s.engine.Register(NewIf(c, lhs, rhs, s.opts.EndComments), idx)
		return nil
	}
	s.report("conditional at %d has no structure", idx)
	return nil
}

// discard prints a value that is popped without being used when computing
// it had an effect.
func (s *scan) discard(idx int, v ir.Operand) {
	if v.Op.Is(opcode.Invoke) {
		s.stmt(idx, v.Expression()+";")
	}
}

func (s *scan) stackOp(idx int, op opcode.Opcode) error {
	st := s.stack
	pop := func(n int) ([]ir.Operand, error) { return st.PopOperands(n) }
	pushAll := func(ops ...ir.Operand) {
		for _, o := range ops {
			st.AddOperand(o.Copy())
		}
	}

	switch op {
	case opcode.Pop:
		v, err := s.pop()
		if err != nil {
			return err
		}
		s.discard(idx, v)
	case opcode.Pop2:
		v, err := s.pop()
		if err != nil {
			return err
		}
		if v.Category() == 1 {
			w, err := s.pop()
			if err != nil {
				return err
			}
			s.discard(idx, w)
		}
		s.discard(idx, v)
	case opcode.Dup:
		v, err := st.Peek()
		if err != nil {
			return err
		}
		pushAll(v)
	case opcode.DupX1:
		ops, err := pop(2)
		if err != nil {
			return err
		}
		pushAll(ops[1], ops[0], ops[1])
	case opcode.DupX2:
		ops, err := pop(2)
		if err != nil {
			return err
		}
		if ops[0].Category() == 2 {
			pushAll(ops[1], ops[0], ops[1])
			return nil
		}
		v3, err := s.pop()
		if err != nil {
			return err
		}
		pushAll(ops[1], v3, ops[0], ops[1])
	case opcode.Dup2:
		v1, err := s.pop()
		if err != nil {
			return err
		}
		if v1.Category() == 2 {
			pushAll(v1, v1)
			return nil
		}
		v2, err := s.pop()
		if err != nil {
			return err
		}
		pushAll(v2, v1, v2, v1)
	case opcode.Dup2X1:
		v1, err := s.pop()
		if err != nil {
			return err
		}
		if v1.Category() == 2 {
			v2, err := s.pop()
			if err != nil {
				return err
			}
			pushAll(v1, v2, v1)
			return nil
		}
		ops, err := pop(2)
		if err != nil {
			return err
		}
		v3, v2 := ops[0], ops[1]
		pushAll(v2, v1, v3, v2, v1)
	case opcode.Dup2X2:
		v1, err := s.pop()
		if err != nil {
			return err
		}
		if v1.Category() == 2 {
			v2, err := s.pop()
			if err != nil {
				return err
			}
			if v2.Category() == 2 {
				pushAll(v1, v2, v1)
				return nil
			}
			v3, err := s.pop()
			if err != nil {
				return err
			}
			pushAll(v1, v3, v2, v1)
			return nil
		}
		v2, err := s.pop()
		if err != nil {
			return err
		}
		v3, err := s.pop()
		if err != nil {
			return err
		}
		if v3.Category() == 2 {
			pushAll(v2, v1, v3, v2, v1)
			return nil
		}
		v4, err := s.pop()
		if err != nil {
			return err
		}
		pushAll(v2, v1, v4, v3, v2, v1)
	case opcode.Swap:
		ops, err := pop(2)
		if err != nil {
			return err
		}
		pushAll(ops[1], ops[0])
	}
	return nil
}

func (s *scan) field(idx int, op opcode.Opcode) error {
	index := opcode.U2(s.code, idx+1)
	ref, ok := s.m.Pool.MemberRef(uint16(index))
	if !ok {
		return fmt.Errorf("%w: field #%d", ErrBadConstant, index)
	}
	typ := opcode.Object
	if t, _, err := classfile.ParseType(ref.Descriptor); err == nil {
		typ = t.String()
	}

	switch op {
	case opcode.Getstatic:
		s.push(ir.ExprOperand(s.owner(ref.Class)+"."+ref.Name, typ, op))
	case opcode.Putstatic:
		v, err := s.pop()
		if err != nil {
			return err
		}
		s.stmt(idx, fmt.Sprintf("%s.%s = %s;", s.owner(ref.Class), ref.Name, v.Expression()))
	case opcode.Getfield:
		obj, err := s.pop()
		if err != nil {
			return err
		}
		s.push(ir.ExprOperand(obj.Nested()+"."+ref.Name, typ, op))
	case opcode.Putfield:
		ops, err := s.stack.PopOperands(2)
		if err != nil {
			return err
		}
		s.stmt(idx, fmt.Sprintf("%s.%s = %s;", ops[0].Nested(), ref.Name, ops[1].Expression()))
	}
	return nil
}

func (s *scan) invoke(idx int, op opcode.Opcode) error {
	index := uint16(opcode.U2(s.code, idx+1))
	var ref classfile.MemberRef
	ok := false
	if op == opcode.Invokedynamic {
		ref.Name, ref.Descriptor, ok = s.m.Pool.InvokeDynamic(index)
	} else {
		ref, ok = s.m.Pool.MemberRef(index)
	}
	if !ok {
		return fmt.Errorf("%w: method #%d", ErrBadConstant, index)
	}
	mt, err := classfile.ParseMethodType(ref.Descriptor)
	if err != nil {
		return err
	}
	args, err := s.stack.PopOperands(len(mt.Params))
	if err != nil {
		return err
	}
	texts := make([]string, len(args))
	for i, a := range args {
		texts[i] = a.Expression()
	}
	argList := strings.Join(texts, ", ")

	var expr string
	switch op {
	case opcode.Invokestatic:
		expr = fmt.Sprintf("%s.%s(%s)", s.owner(ref.Class), ref.Name, argList)
	case opcode.Invokedynamic:
		expr = fmt.Sprintf("%s(%s)", ref.Name, argList)
	default:
		obj, err := s.pop()
		if err != nil {
			return err
		}
		if ref.Name == "<init>" {
			return s.construct(idx, obj, ref, argList)
		}
		target := obj.Nested()
		if op == opcode.Invokespecial && obj.Var != nil && obj.Var.Name == "this" && ref.Class != s.m.Class {
			target = "super"
		}
		expr = fmt.Sprintf("%s.%s(%s)", target, ref.Name, argList)
	}

	if mt.Return.Base == "void" {
		s.stmt(idx, expr+";")
		return nil
	}
	s.push(ir.ExprOperand(expr, mt.Return.String(), op))
	return nil
}

// construct folds `new T; dup; <args>; invokespecial <init>` into a single
// `new T(args)` operand and renders this(...) and super(...) calls.
func (s *scan) construct(idx int, obj ir.Operand, ref classfile.MemberRef, args string) error {
	if obj.Op == opcode.New {
		text := fmt.Sprintf("new %s(%s)", obj.Type, args)
		if top, err := s.stack.Peek(); err == nil && top.Op == opcode.New && top.Expr == obj.Expr {
			s.pop()
			s.push(ir.ExprOperand(text, obj.Type, opcode.Invokespecial))
			return nil
		}
		s.stmt(idx, text+";")
		return nil
	}
	if obj.Var != nil && obj.Var.Name == "this" && s.m.Name == "<init>" {
		kw := "super"
		if ref.Class == s.m.Class {
			kw = "this"
		}
		if kw == "super" && args == "" {
			return nil
		}
		s.stmt(idx, fmt.Sprintf("%s(%s);", kw, args))
		return nil
	}
	s.stmt(idx, fmt.Sprintf("%s.<init>(%s);", obj.Nested(), args))
	return nil
}

func (s *scan) allocate(idx int, op opcode.Opcode) error {
	code := s.code
	switch op {
	case opcode.New:
		typ := s.className(opcode.U2(code, idx+1))
		s.push(ir.ExprOperand("new "+typ, typ, op))
	case opcode.Newarray, opcode.Anewarray:
		count, err := s.pop()
		if err != nil {
			return err
		}
		elem := opcode.ArrayType(opcode.U1(code, idx+1))
		if op == opcode.Anewarray {
			elem = s.className(opcode.U2(code, idx+1))
		}
		s.push(ir.ExprOperand("new "+elem+"["+count.Expression()+"]", elem+"[]", op))
	case opcode.Multianewarray:
		t := classfile.ClassType(s.m.Pool.ClassName(uint16(opcode.U2(code, idx+1))))
		dims := opcode.U1(code, idx+3)
		counts, err := s.stack.PopOperands(dims)
		if err != nil {
			return err
		}
		base := t
		base.Dims = 0
		var sb strings.Builder
		sb.WriteString("new " + base.String())
		for _, c := range counts {
			sb.WriteString("[" + c.Expression() + "]")
		}
		sb.WriteString(strings.Repeat("[]", max(t.Dims-dims, 0)))
		s.push(ir.ExprOperand(sb.String(), t.String(), op))
	}
	return nil
}
