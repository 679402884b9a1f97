package export

import (
	"encoding"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	jsoniter "github.com/json-iterator/go"
)

type Encoder interface {
	encoding.TextMarshaler
	Encode(r *Report) error
}

// New returns the encoder for a format name: json, cbor or line.
func New(format string, w io.Writer) (Encoder, error) {
	switch format {
	case "json":
		return NewJSONEncoder(w), nil
	case "cbor":
		return NewCBOREncoder(w), nil
	case "line":
		return NewLineEncoder(w), nil
	}
	return nil, fmt.Errorf("unknown format: %s (expected json, cbor, or line)", format)
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type JSONEncoder struct {
	w      io.Writer
	report *Report
}

func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

func (e *JSONEncoder) Encode(r *Report) error {
	e.report = r
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(append(text, '\n'))
	return err
}

func (e *JSONEncoder) MarshalText() ([]byte, error) {
	return json.MarshalIndent(e.report, "", "  ")
}

// cborEncMode encodes canonically so equal reports produce equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("export: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type CBOREncoder struct {
	w      io.Writer
	report *Report
}

func NewCBOREncoder(w io.Writer) *CBOREncoder {
	return &CBOREncoder{w: w}
}

func (e *CBOREncoder) Encode(r *Report) error {
	e.report = r
	data, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(data)
	return err
}

// MarshalText returns the binary CBOR encoding.
func (e *CBOREncoder) MarshalText() ([]byte, error) {
	return cborEncMode.Marshal(e.report)
}

// DecodeCBOR reads a report written by CBOREncoder.
func DecodeCBOR(data []byte) (*Report, error) {
	var r Report
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

// LineEncoder writes one tab separated line per method, condition and
// switch case.
type LineEncoder struct {
	w      io.Writer
	report *Report
}

func NewLineEncoder(w io.Writer) *LineEncoder {
	return &LineEncoder{w: w}
}

func (e *LineEncoder) Encode(r *Report) error {
	e.report = r
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *LineEncoder) MarshalText() ([]byte, error) {
	var sb strings.Builder
	r := e.report

	for _, m := range r.Methods {
		fmt.Fprintf(&sb, "method\t%s\t%s%s\t%d\n", r.Class, m.Name, m.Descriptor, m.CodeSize)
		if m.Error != "" {
			fmt.Fprintf(&sb, "error\t%s\n", m.Error)
		}
		for _, c := range m.Conditions {
			fmt.Fprintf(&sb, "cond\t%d\t%s\t%d\t%s\t%d\n", c.Index, c.Op, c.Target, c.Usage, c.TestIndex)
		}
		for _, s := range m.Switches {
			fmt.Fprintf(&sb, "switch\t%d\t%s\t%d\t%t\n", s.Index, s.Op, s.EndIndex, s.ReturnPacked)
			for _, c := range s.Cases {
				fmt.Fprintf(&sb, "case\t%d\t%d\t%d\n", c.Match, c.Target, c.EndTarget)
			}
			fmt.Fprintf(&sb, "default\t%d\t%d\n", s.Default.Target, s.Default.EndTarget)
		}
		for _, l := range m.Lines {
			fmt.Fprintf(&sb, "line\t%d\t%d\n", l.Index, l.Line)
		}
	}
	return []byte(sb.String()), nil
}
