// Package export serialises the control-flow analysis of methods for
// visualisers: the classified jump conditions and decoded switches.
package export

import (
	"github.com/dhamidi/jbcm/classfile"
	"github.com/dhamidi/jbcm/flow"
	"github.com/dhamidi/jbcm/opcode"
)

type Report struct {
	Class   string         `json:"class"`
	Methods []MethodReport `json:"methods"`
}

type MethodReport struct {
	Name       string      `json:"name"`
	Descriptor string      `json:"descriptor"`
	CodeSize   int         `json:"codeSize"`
	Conditions []Condition `json:"conditions,omitempty"`
	Switches   []Switch    `json:"switches,omitempty"`
	Lines      []Line      `json:"lines,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type Condition struct {
	Index  int    `json:"index"`
	Op     string `json:"op"`
	Target int    `json:"target"`
	Usage  string `json:"usage"`
	// TestIndex is the conditional testing a while loop, -1 otherwise.
	TestIndex int `json:"testIndex"`
	LoopEnd   int `json:"loopEnd,omitempty"`
}

// Line maps the instruction at Index to its source line.
type Line struct {
	Index int `json:"index"`
	Line  int `json:"line"`
}

type Switch struct {
	Index        int    `json:"index"`
	Op           string `json:"op"`
	Low          int    `json:"low,omitempty"`
	High         int    `json:"high,omitempty"`
	EndIndex     int    `json:"endIndex"`
	ReturnPacked bool   `json:"returnPacked,omitempty"`
	Default      Case   `json:"default"`
	Cases        []Case `json:"cases"`
}

type Case struct {
	Match     int   `json:"match"`
	Target    int   `json:"target"`
	EndTarget int   `json:"endTarget"`
	Flow      []int `json:"flow,omitempty"`
}

// Build analyses every method of cf that has code.
func Build(cf *classfile.ClassFile) *Report {
	r := &Report{Class: classfile.SourceName(cf.ClassName())}
	for i := range cf.Methods {
		m := &cf.Methods[i]
		code := m.Code()
		if code == nil {
			continue
		}
		mr := BuildMethod(m.Name, m.Descriptor, code.Bytes)
		for _, ln := range code.LineNumbers() {
			mr.Lines = append(mr.Lines, Line{Index: int(ln.StartPC), Line: int(ln.Line)})
		}
		r.Methods = append(r.Methods, mr)
	}
	return r
}

// BuildMethod analyses one method body. Analysis errors are recorded in
// the report instead of being returned.
func BuildMethod(name, descriptor string, code []byte) MethodReport {
	mr := MethodReport{Name: name, Descriptor: descriptor, CodeSize: len(code)}

	conds, err := flow.FindConditions(code)
	if err != nil {
		mr.Error = err.Error()
		return mr
	}
	for _, c := range conds {
		mr.Conditions = append(mr.Conditions, Condition{
			Index:     c.Index,
			Op:        c.Op.String(),
			Target:    c.TargetIndex(),
			Usage:     c.Usage.String(),
			TestIndex: c.PotentialIfIndex,
			LoopEnd:   c.LoopEndIndexForIf,
		})
	}

	indices, _ := opcode.Indices(code)
	for _, idx := range indices {
		if !opcode.Opcode(code[idx]).Is(opcode.Switch) {
			continue
		}
		sw, err := flow.DecodeSwitch(code, idx)
		if err != nil {
			mr.Error = err.Error()
			return mr
		}
		mr.Switches = append(mr.Switches, switchOf(sw))
	}
	return mr
}

func switchOf(sw *flow.Switch) Switch {
	s := Switch{
		Index:        sw.Index,
		Op:           sw.Op.String(),
		Low:          sw.Low,
		High:         sw.High,
		EndIndex:     sw.EndIndex,
		ReturnPacked: sw.ReturnPacked,
		Default:      caseOf(sw.Default),
	}
	for _, c := range sw.Cases {
		s.Cases = append(s.Cases, caseOf(c))
	}
	return s
}

func caseOf(c *flow.SwitchCase) Case {
	return Case{Match: c.Match, Target: c.Target, EndTarget: c.EndTarget, Flow: c.Flow}
}
