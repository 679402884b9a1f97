package decompile

import (
	"context"
	"fmt"
	"strings"

	"github.com/dhamidi/jbcm/classfile"
	"github.com/dhamidi/jbcm/ir"
	"golang.org/x/sync/errgroup"
)

// MethodOf builds the scan input for a method of cf. It returns false for
// methods without code.
func MethodOf(cf *classfile.ClassFile, m *classfile.Member) (Method, bool) {
	code := m.Code()
	if code == nil {
		return Method{}, false
	}
	return Method{
		Class:      cf.ClassName(),
		Name:       m.Name,
		Descriptor: m.Descriptor,
		Static:     m.AccessFlags.IsStatic(),
		Code:       code.Bytes,
		Exceptions: ExceptionEntries(code),
		Locals:     LocalsFromCode(code),
		Pool:       cf.ConstantPool,
	}, true
}

// Class renders cf as a Java-like source file. Method bodies are
// decompiled concurrently; a method that fails to decompile gets a comment
// in place of its body and does not affect the others.
func (d *Decompiler) Class(ctx context.Context, cf *classfile.ClassFile) (string, error) {
	bodies := make([]string, len(cf.Methods))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(d.opts.Workers, 1))
	for i := range cf.Methods {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			bodies[i] = d.renderMethod(cf, &cf.Methods[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	src := NewSourceBuffer(d.opts.IndentMark, 0)
	name := cf.ClassName()
	if i := strings.LastIndexByte(name, '/'); i > 0 {
		src.Linef("package %s;", classfile.SourceName(name[:i]))
		src.Line("")
	}
	src.Line(classHeader(cf) + " {")
	src.Indent()
	for i := range cf.Fields {
		src.Line(fieldDecl(cf, &cf.Fields[i]))
	}
	for i, body := range bodies {
		if i > 0 || len(cf.Fields) > 0 {
			src.Line("")
		}
		src.Raw(body)
	}
	src.Close("")
	return src.String(), nil
}

func classHeader(cf *classfile.ClassFile) string {
	flags := cf.AccessFlags
	parts := flags.ClassModifiers()
	kind := "class"
	switch {
	case flags.Has(classfile.AccAnnotation):
		kind = "@interface"
	case flags.IsInterface():
		kind = "interface"
	case flags.IsEnum():
		kind = "enum"
	}
	parts = append(parts, kind, classfile.SimpleName(cf.ClassName()))

	super := cf.SuperClassName()
	var ifaces []string
	for _, n := range cf.InterfaceNames() {
		ifaces = append(ifaces, classfile.SourceName(n))
	}
	if kind == "class" && super != "" && super != "java/lang/Object" {
		parts = append(parts, "extends", classfile.SourceName(super))
	}
	if len(ifaces) > 0 {
		kw := "implements"
		if kind == "interface" {
			kw = "extends"
		}
		parts = append(parts, kw, strings.Join(ifaces, ", "))
	}
	return strings.Join(parts, " ")
}

func fieldDecl(cf *classfile.ClassFile, f *classfile.Member) string {
	typ := "java.lang.Object"
	if t, _, err := classfile.ParseType(f.Descriptor); err == nil {
		typ = t.String()
	}
	parts := append(f.AccessFlags.FieldModifiers(), typ, f.Name)
	decl := strings.Join(parts, " ")
	if idx := f.ConstantValue(); idx != 0 {
		if text, _, ok := cf.ConstantPool.Literal(idx); ok {
			decl += " = " + text
		}
	}
	return decl + ";"
}

func (d *Decompiler) renderMethod(cf *classfile.ClassFile, m *classfile.Member) string {
	src := NewSourceBuffer(d.opts.IndentMark, 1)
	mt, err := classfile.ParseMethodType(m.Descriptor)
	if err != nil {
		src.Linef("// %s%s: %v", m.Name, m.Descriptor, err)
		return src.String()
	}

	in, hasCode := MethodOf(cf, m)
	tooLarge := hasCode && d.opts.MaxCodeSize > 0 && len(in.Code) > d.opts.MaxCodeSize

	var res *Result
	var derr error
	if hasCode && !tooLarge {
		res, derr = d.method(in, 2)
		if derr != nil {
			log.Warningf("%s: %v", classfile.SourceName(cf.ClassName()), derr)
		}
	}

	var params []ir.ParameterSrc
	if res != nil {
		params = res.Parameters
	} else {
		stack := ir.NewMethodStack(classfile.SourceName(cf.ClassName()), m.Name, !m.AccessFlags.IsStatic())
		for _, p := range mt.Params {
			stack.AddParameterUnnamed(p.String())
		}
		params = stack.Parameters()
	}
	src.Line(methodHeader(cf, m, mt, params))

	switch {
	case !hasCode:
		return strings.TrimSuffix(src.String(), "\n") + ";\n"
	case tooLarge:
		src.Indent()
		src.Linef("// code too large to decompile (%d bytes)", len(in.Code))
		src.Close("")
	case derr != nil:
		src.Indent()
		src.Linef("// decompilation failed: %v", derr)
		src.Close("")
	default:
		src.Raw(res.Source)
		src.Line("}")
	}
	return src.String()
}

func methodHeader(cf *classfile.ClassFile, m *classfile.Member, mt classfile.MethodType, params []ir.ParameterSrc) string {
	mods := m.AccessFlags.MethodModifiers()
	if m.Name == "<clinit>" {
		return "static {"
	}

	var decl []string
	for _, p := range params {
		if p.Name == "this" {
			continue
		}
		decl = append(decl, p.Type+" "+p.Name)
	}
	name := m.Name
	if name == "<init>" {
		name = classfile.SimpleName(cf.ClassName())
	} else {
		name = mt.Return.String() + " " + name
	}
	header := fmt.Sprintf("%s(%s)", name, strings.Join(decl, ", "))
	if len(mods) > 0 {
		header = strings.Join(mods, " ") + " " + header
	}
	if throws := m.Throws(); len(throws) > 0 {
		names := make([]string, len(throws))
		for i, t := range throws {
			names[i] = classfile.SourceName(t)
		}
		header += " throws " + strings.Join(names, ", ")
	}
	if m.Code() == nil {
		return header
	}
	return header + " {"
}
