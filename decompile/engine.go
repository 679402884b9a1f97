// Package decompile turns method bytecode into indented Java-like source.
// A single forward scan simulates the operand stack while a stack of
// emitters opens and closes the control structures found by package flow.
package decompile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dhamidi/jbcm/opcode"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("jbcm.decompile")

var ErrUnclosed = errors.New("structure left open at end of method")

// Response tells the engine what to do after an emitter saw an index.
type Response int

const (
	// Continue passes the index on to the next emitter.
	Continue Response = iota
	// Consumed stops the index from reaching emitters registered earlier.
	Consumed
	// Deregister removes the emitter; the index still propagates.
	Deregister
)

func (r Response) String() string {
	switch r {
	case Continue:
		return "continue"
	case Consumed:
		return "consumed"
	case Deregister:
		return "deregister"
	}
	return fmt.Sprintf("response(%d)", int(r))
}

// Emitter owns one control structure and writes its delimiters as the scan
// reaches the indices it cares about.
type Emitter interface {
	Emit(op opcode.Opcode, code []byte, idx, operand int, src *SourceBuffer) Response
}

// Engine holds the active emitters of one method scan. Indices are
// dispatched newest emitter first, so inner structures close before the
// structures around them.
type Engine struct {
	code   []byte
	src    *SourceBuffer
	active []Emitter

	created      int
	deregistered int
}

func NewEngine(code []byte, src *SourceBuffer) *Engine {
	return &Engine{code: code, src: src}
}

func (e *Engine) at(idx int) (opcode.Opcode, int) {
	if idx < 0 || idx >= len(e.code) {
		return opcode.Nop, 0
	}
	return opcode.Opcode(e.code[idx]), opcode.Operand(e.code, idx)
}

// Register adds em and immediately hands it the current index, which is
// where every emitter writes its opening line.
func (e *Engine) Register(em Emitter, idx int) {
	e.created++
	op, operand := e.at(idx)
	if em.Emit(op, e.code, idx, operand, e.src) == Deregister {
		e.deregistered++
		return
	}
	e.active = append(e.active, em)
}

func (e *Engine) Dispatch(idx int) {
	op, operand := e.at(idx)
	for i := len(e.active) - 1; i >= 0; i-- {
		switch e.active[i].Emit(op, e.code, idx, operand, e.src) {
		case Deregister:
			e.active = append(e.active[:i], e.active[i+1:]...)
			e.deregistered++
		case Consumed:
			return
		}
	}
}

// Finish dispatches the index one past the last instruction so every
// structure that ends with the method closes, then reports any that did
// not.
func (e *Engine) Finish() error {
	e.Dispatch(len(e.code))
	if len(e.active) == 0 {
		return nil
	}
	open := make([]string, len(e.active))
	for i, em := range e.active {
		open[i] = fmt.Sprint(em)
	}
	return fmt.Errorf("%w: %s", ErrUnclosed, strings.Join(open, ", "))
}

func (e *Engine) Active() int       { return len(e.active) }
func (e *Engine) Created() int      { return e.created }
func (e *Engine) Deregistered() int { return e.deregistered }
