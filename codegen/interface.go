package codegen

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/dicej/wit-bindgen-go/abi"
	"github.com/dicej/wit-bindgen-go/errors"
)

// Interface generates one imported or exported interface: its type
// declarations, then a wrapper per function. A function whose translation
// fails is skipped and reported at Finish; the rest of the interface is
// unaffected.
func (g *Generator) Interface(dir abi.Direction, iface *abi.Interface) error {
	if iface == nil {
		return errors.InvalidData(errors.PhaseValidate, nil, "nil interface")
	}
	frag := &fragment{name: iface.Name}
	g.fragments = append(g.fragments, frag)

	// Exposed resources are registered before any declaration so handle
	// types inside records and signatures resolve to the table-backed path.
	if dir == abi.Export {
		for _, td := range iface.TypeDefs {
			if _, ok := td.Type.Kind.(*wit.Resource); ok {
				g.registerExposedResource(iface, td)
			}
		}
	}

	for _, td := range iface.TypeDefs {
		g.declareTypeDef(frag, dir, iface, td)
	}

	if dir == abi.Import {
		g.emitImports(frag, iface)
	} else {
		g.emitExports(frag, iface)
	}
	return nil
}

func (g *Generator) registerExposedResource(iface *abi.Interface, td abi.TypeDefEntry) {
	module := "[export]" + iface.Module
	i32 := []abi.WasmType{abi.I32}
	info := &resourceInfo{
		exposed:  true,
		goName:   goName(td.Name),
		implType: goName(td.Name) + "Exports",
		tableVar: goLocalName(td.Name) + "Table",
		newFn:    g.externFor(module, "[resource-new]"+td.Name, abi.Signature{Params: i32, Results: i32}),
		repFn:    g.externFor(module, "[resource-rep]"+td.Name, abi.Signature{Params: i32, Results: i32}),
		dropFn:   g.externFor(module, "[resource-drop]"+td.Name, abi.Signature{Params: i32}),
	}
	g.resources[td.Type] = info
	g.needsRepTable = true
}

func (g *Generator) declareTypeDef(frag *fragment, dir abi.Direction, iface *abi.Interface, td abi.TypeDefEntry) {
	name := goName(td.Name)
	b := &frag.src

	switch kind := td.Type.Kind.(type) {
	case *wit.Record:
		fmt.Fprintf(b, "type %s struct {\n", name)
		for _, field := range kind.Fields {
			fmt.Fprintf(b, "\t%s %s\n", goName(field.Name), g.typeName(field.Type))
		}
		b.WriteString("}\n\n")

	case *wit.Variant:
		g.declareVariant(b, name, kind)

	case *wit.Enum:
		fmt.Fprintf(b, "type %s %s\n\n", name, enumRepr(len(kind.Cases)))
		b.WriteString("const (\n")
		for i, c := range kind.Cases {
			if i == 0 {
				fmt.Fprintf(b, "\t%s%s %s = iota\n", name, goName(c.Name), name)
			} else {
				fmt.Fprintf(b, "\t%s%s\n", name, goName(c.Name))
			}
		}
		b.WriteString(")\n\n")

	case *wit.Flags:
		g.declareFlags(b, name, kind)

	case *wit.Resource:
		g.declareResource(frag, dir, iface, td)

	case wit.Type:
		// alias
		fmt.Fprintf(b, "type %s = %s\n\n", name, g.typeName(kind))

	default:
		fmt.Fprintf(b, "type %s = %s\n\n", name, g.typeDefNameForKind(td.Type))
	}
}

// typeDefNameForKind names the underlying shape of an aliased option,
// result, tuple or list definition.
func (g *Generator) typeDefNameForKind(t *wit.TypeDef) string {
	anon := *t
	anon.Name = nil
	return g.typeDefName(&anon)
}

func (g *Generator) declareVariant(b *strings.Builder, name string, v *wit.Variant) {
	fmt.Fprintf(b, "type %sTag %s\n\n", name, enumRepr(len(v.Cases)))
	fmt.Fprintf(b, "type %s struct {\n", name)
	fmt.Fprintf(b, "\tTag %sTag\n", name)
	for _, c := range v.Cases {
		if c.Type != nil {
			fmt.Fprintf(b, "\t%s %s\n", goName(c.Name), g.typeName(c.Type))
		}
	}
	b.WriteString("}\n\n")

	for i, c := range v.Cases {
		ctor := name + goName(c.Name)
		if c.Type != nil {
			fmt.Fprintf(b, "func %s(v %s) %s {\n", ctor, g.typeName(c.Type), name)
			fmt.Fprintf(b, "\treturn %s{Tag: %d, %s: v}\n", name, i, goName(c.Name))
		} else {
			fmt.Fprintf(b, "func %s() %s {\n", ctor, name)
			fmt.Fprintf(b, "\treturn %s{Tag: %d}\n", name, i)
		}
		b.WriteString("}\n\n")
	}
}

func (g *Generator) declareFlags(b *strings.Builder, name string, f *wit.Flags) {
	repr := flagsRepr(f)
	fmt.Fprintf(b, "type %s %s\n\n", name, repr)

	if len(f.Flags) <= 32 {
		b.WriteString("const (\n")
		for i, flag := range f.Flags {
			if i == 0 {
				fmt.Fprintf(b, "\t%s%s %s = 1 << iota\n", name, goName(flag.Name), name)
			} else {
				fmt.Fprintf(b, "\t%s%s\n", name, goName(flag.Name))
			}
		}
		b.WriteString(")\n\n")
		return
	}

	// Wide flag sets index bits across 32-bit words; bit 32 is bit 0 of
	// word 1.
	b.WriteString("const (\n")
	for i, flag := range f.Flags {
		if i == 0 {
			fmt.Fprintf(b, "\t%s%s uint32 = iota\n", name, goName(flag.Name))
		} else {
			fmt.Fprintf(b, "\t%s%s\n", name, goName(flag.Name))
		}
	}
	b.WriteString(")\n\n")
	fmt.Fprintf(b, "func (f *%s) Set(bit uint32) {\n", name)
	b.WriteString("\tf[bit/32] |= 1 << (bit % 32)\n")
	b.WriteString("}\n\n")
	fmt.Fprintf(b, "func (f %s) Has(bit uint32) bool {\n", name)
	b.WriteString("\treturn f[bit/32]&(1<<(bit%32)) != 0\n")
	b.WriteString("}\n\n")
}

func (g *Generator) declareResource(frag *fragment, dir abi.Direction, iface *abi.Interface, td abi.TypeDefEntry) {
	name := goName(td.Name)
	b := &frag.src

	if dir == abi.Import {
		fmt.Fprintf(b, "type %s struct {\n", name)
		b.WriteString("\thandle int32\n")
		b.WriteString("}\n\n")

		dropFn := g.externFor(iface.Module, "[resource-drop]"+td.Name,
			abi.Signature{Params: []abi.WasmType{abi.I32}})
		fmt.Fprintf(b, "// Drop releases the handle. Further use of the receiver is invalid.\n")
		fmt.Fprintf(b, "func (self *%s) Drop() {\n", name)
		b.WriteString("\tif self.handle >= 0 {\n")
		fmt.Fprintf(b, "\t\t%s(self.handle)\n", dropFn)
		b.WriteString("\t\tself.handle = -1\n")
		b.WriteString("\t}\n")
		b.WriteString("}\n\n")
		return
	}

	info := g.resources[td.Type]

	fmt.Fprintf(b, "type %s interface {\n", info.implType)
	for _, fn := range iface.Functions {
		if fn.Kind == abi.Method && abi.Dealias(fn.Resource) == abi.Dealias(td.Type) {
			sig := g.hostSignature(fn, true)
			fmt.Fprintf(b, "\t%s\n", sig)
			g.stubs = append(g.stubs, stubMethod{ifaceType: info.implType, signature: sig})
		}
	}
	b.WriteString("}\n\n")

	fmt.Fprintf(b, "var %s = newRepTable[%s]()\n\n", info.tableVar, info.implType)

	// The destructor releases whatever the table still holds for the rep.
	dtorSym := iface.Module + "#[dtor]" + td.Name
	fmt.Fprintf(b, "//go:wasmexport %s\n", dtorSym)
	fmt.Fprintf(b, "func %s(rep int32) {\n", "wasmexport_"+sanitize(dtorSym))
	fmt.Fprintf(b, "\t%s.remove(rep)\n", info.tableVar)
	b.WriteString("}\n\n")
}

// hostSignature renders "Name(params) result" for an interface method or a
// stub. skipSelf drops the receiver parameter of methods.
func (g *Generator) hostSignature(f *abi.Function, skipSelf bool) string {
	params := f.Params
	if skipSelf && f.Kind == abi.Method && len(params) > 0 {
		params = params[1:]
	}

	var name string
	switch f.Kind {
	case abi.Constructor:
		name = "New" + g.resourceTypeName(f.Resource)
	case abi.Static:
		name = g.resourceTypeName(f.Resource) + goName(f.ItemName())
	case abi.Method:
		name = goName(f.ItemName())
	default:
		name = goName(f.Name)
	}

	parts := make([]string, len(params))
	used := newNameSet()
	for i, p := range params {
		parts[i] = fmt.Sprintf("%s %s", used.reserve(goLocalName(p.Name)), g.typeName(p.Type))
	}

	result := ""
	if len(f.Results) == 1 {
		result = " " + g.resultTypeName(f)
	}
	return fmt.Sprintf("%s(%s)%s", name, strings.Join(parts, ", "), result)
}

// resultTypeName is the Go result type of a function; constructors of
// exposed resources hand back the implementation value itself.
func (g *Generator) resultTypeName(f *abi.Function) string {
	if f.Kind == abi.Constructor {
		if info := g.resourceInfoFor(f.Resource); info != nil && info.exposed {
			return info.implType
		}
	}
	return g.typeName(f.Results[0].Type)
}

func (g *Generator) emitImports(frag *fragment, iface *abi.Interface) {
	for _, f := range iface.Functions {
		g.emitImportFunc(frag, iface, f)
	}
}

func (g *Generator) emitImportFunc(frag *fragment, iface *abi.Interface, f *abi.Function) {
	fg := newFuncGen(g, abi.Import, iface, f)

	isMethod := f.Kind == abi.Method && len(f.Params) > 0
	for i, p := range f.Params {
		if isMethod && i == 0 {
			fg.params = append(fg.params, fg.locals.reserve("self"))
			continue
		}
		fg.params = append(fg.params, fg.locals.reserve(goLocalName(p.Name)))
	}

	if err := abi.Call[string](fg, abi.Import, iface.Module, f); err != nil {
		g.recordError(f, err)
		return
	}

	b := &frag.src
	var head string
	declared := f.Params
	if isMethod {
		declared = declared[1:]
	}
	parts := make([]string, len(declared))
	for i, p := range declared {
		idx := i
		if isMethod {
			idx++
		}
		parts[i] = fmt.Sprintf("%s %s", fg.params[idx], g.typeName(p.Type))
	}
	result := ""
	if len(f.Results) == 1 {
		result = " " + g.typeName(f.Results[0].Type)
	}

	switch f.Kind {
	case abi.Method:
		head = fmt.Sprintf("func (%s *%s) %s(%s)%s {",
			fg.params[0], g.resourceTypeName(f.Resource), goName(f.ItemName()),
			strings.Join(parts, ", "), result)
	case abi.Constructor:
		head = fmt.Sprintf("func New%s(%s)%s {",
			g.resourceTypeName(f.Resource), strings.Join(parts, ", "), result)
	case abi.Static:
		head = fmt.Sprintf("func %s%s(%s)%s {",
			g.resourceTypeName(f.Resource), goName(f.ItemName()),
			strings.Join(parts, ", "), result)
	default:
		head = fmt.Sprintf("func %s(%s)%s {",
			goName(f.Name), strings.Join(parts, ", "), result)
	}

	b.WriteString(head + "\n")
	writeIndented(b, fg.src.String())
	b.WriteString("}\n\n")
}

func (g *Generator) emitExports(frag *fragment, iface *abi.Interface) {
	b := &frag.src
	exportsType := g.exportsTypeName(iface)
	implVar := g.implVar(iface)

	fmt.Fprintf(b, "type %s interface {\n", exportsType)
	for _, f := range iface.Functions {
		if f.Kind == abi.Method {
			continue // lives on the resource's own interface
		}
		sig := g.hostSignature(f, false)
		fmt.Fprintf(b, "\t%s\n", sig)
		g.stubs = append(g.stubs, stubMethod{ifaceType: exportsType, signature: sig})
	}
	b.WriteString("}\n\n")

	fmt.Fprintf(b, "var %s %s\n\n", implVar, exportsType)
	fmt.Fprintf(b, "// Set%s registers the implementation the exported functions\n", exportsType)
	fmt.Fprintf(b, "// dispatch to. It must be called from an init function.\n")
	fmt.Fprintf(b, "func Set%s(impl %s) {\n", exportsType, exportsType)
	fmt.Fprintf(b, "\t%s = impl\n", implVar)
	b.WriteString("}\n\n")

	for _, f := range iface.Functions {
		g.emitExportFunc(frag, iface, f)
	}
}

func (g *Generator) emitExportFunc(frag *fragment, iface *abi.Interface, f *abi.Function) {
	sig, err := abi.WasmSignature(abi.Export, f)
	if err != nil {
		g.recordError(f, err)
		return
	}

	if sig.IndirectParams {
		// The host spills the argument record through guest allocation.
		g.noteRealloc()
	}

	fg := newFuncGen(g, abi.Export, iface, f)
	for i := range sig.Params {
		fg.params = append(fg.params, fmt.Sprintf("p%d", i))
	}

	if err := abi.Call[string](fg, abi.Export, iface.Module, f); err != nil {
		g.recordError(f, err)
		return
	}

	b := &frag.src
	sym := f.CoreExportName(iface.Module)
	wrapper := "wasmexport_" + sanitize(sym)

	fmt.Fprintf(b, "//go:wasmexport %s\n", sym)
	fmt.Fprintf(b, "func %s(%s)%s {\n", wrapper, coreParams(sig.Params), coreResults(sig.Results))
	writeIndented(b, fg.src.String())
	b.WriteString("}\n\n")

	// Anything parked for the caller's benefit is released when the host
	// signals it has copied the results out.
	if sig.RetPtr || fg.pinned {
		g.needsPinned = true
		fmt.Fprintf(b, "//go:wasmexport %s\n", abi.PostReturnName(sym))
		fmt.Fprintf(b, "func %s() {\n", "wasmexport_post_"+sanitize(sym))
		b.WriteString("\tresetPins()\n")
		b.WriteString("}\n\n")
	}
}

func writeIndented(b *strings.Builder, body string) {
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		if line == "" {
			b.WriteString("\n")
			continue
		}
		b.WriteString("\t" + line + "\n")
	}
}
