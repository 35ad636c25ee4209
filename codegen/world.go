package codegen

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/dicej/wit-bindgen-go/abi"
	"github.com/dicej/wit-bindgen-go/errors"
	"github.com/dicej/wit-bindgen-go/layout"
)

// Generator accumulates generated bindings across the interfaces of one
// world and assembles them into output files. All accumulators are
// monotone: later interfaces only widen what earlier ones requested, so the
// assembled output is independent of everything except the input order.
type Generator struct {
	opts  Opts
	sizes *layout.Calculator
	log   *zap.Logger

	fragments []*fragment

	externs     map[string]string // module#name -> go func name
	externDecls map[string]string // go func name -> rendered decl

	resources map[*wit.TypeDef]*resourceInfo

	stubs []stubMethod

	// whole-module accumulators
	needsOption     bool
	needsResult     bool
	needsUnsafe     bool
	needsMath       bool
	needsRuntime    bool
	needsPinned     bool
	needsRealloc    bool
	needsRepTable   bool
	needsExportArea bool
	exportAreaSize  uint32
	tupleArities    map[int]bool

	errs []error
}

type fragment struct {
	name string
	src  strings.Builder
}

// resourceInfo describes how handles of one resource type are represented.
// Exposed resources (declared by an export interface) go through the rep
// table and the canonical intrinsics; all others are opaque handle wrappers.
type resourceInfo struct {
	exposed  bool
	goName   string
	implType string
	tableVar string
	newFn    string
	repFn    string
	dropFn   string
}

type stubMethod struct {
	ifaceType string
	signature string
}

func New(opts Opts) *Generator {
	return &Generator{
		opts:         opts.withDefaults(),
		sizes:        layout.NewCalculator(),
		log:          Logger(),
		externs:      make(map[string]string),
		externDecls:  make(map[string]string),
		resources:    make(map[*wit.TypeDef]*resourceInfo),
		tupleArities: make(map[int]bool),
	}
}

// Generate runs a whole world in one call: every import interface, then
// every export interface, then assembly.
func Generate(opts Opts, imports, exports []*abi.Interface) (Files, error) {
	g := New(opts)
	for _, iface := range imports {
		if err := g.Interface(abi.Import, iface); err != nil {
			return nil, err
		}
	}
	for _, iface := range exports {
		if err := g.Interface(abi.Export, iface); err != nil {
			return nil, err
		}
	}
	return g.Finish()
}

func (g *Generator) noteTupleArity(n int)  { g.tupleArities[n] = true }
func (g *Generator) resourceInfoFor(t *wit.TypeDef) *resourceInfo {
	if t == nil {
		return nil
	}
	return g.resources[abi.Dealias(t)]
}

// noteRealloc marks that the host will call back into guest memory
// allocation: lifted strings and lists arrive in realloc'd buffers, and
// spilled export parameters do too. The helper rides the pin list.
func (g *Generator) noteRealloc() {
	g.needsRealloc = true
	g.needsPinned = true
	g.needsUnsafe = true
}

func (g *Generator) noteExportReturnArea(size, align uint32) {
	g.needsExportArea = true
	if size > g.exportAreaSize {
		g.exportAreaSize = size
	}
	_ = align // the area is 8-aligned, the maximum the ABI produces
}

// externFor declares (once) a core import and returns its Go symbol. The
// same (module, name) pair always resolves to the same symbol.
func (g *Generator) externFor(module, name string, sig abi.Signature) string {
	key := module + "#" + name
	if goSym, ok := g.externs[key]; ok {
		return goSym
	}
	goSym := "wasmimport_" + sanitize(module+"_"+name)

	var b strings.Builder
	fmt.Fprintf(&b, "//go:wasmimport %s %s\n", module, name)
	fmt.Fprintf(&b, "func %s(%s)%s\n", goSym, coreParams(sig.Params), coreResults(sig.Results))

	g.externs[key] = goSym
	g.externDecls[goSym] = b.String()
	return goSym
}

func coreParams(types []abi.WasmType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = fmt.Sprintf("p%d %s", i, coreType(t))
	}
	return strings.Join(parts, ", ")
}

func coreResults(types []abi.WasmType) string {
	switch len(types) {
	case 0:
		return ""
	case 1:
		return " " + coreType(types[0])
	default:
		parts := make([]string, len(types))
		for i, t := range types {
			parts[i] = coreType(t)
		}
		return " (" + strings.Join(parts, ", ") + ")"
	}
}

func sanitize(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// implVar names the package-level variable holding the user's
// implementation of an export interface.
func (g *Generator) implVar(iface *abi.Interface) string {
	if iface == nil || iface.Name == "" {
		return "worldImpl"
	}
	return goLocalName(iface.Name) + "Impl"
}

func (g *Generator) exportsTypeName(iface *abi.Interface) string {
	if iface == nil || iface.Name == "" {
		return "WorldExports"
	}
	return goName(iface.Name) + "Exports"
}

// Finish assembles the accumulated fragments, externs and helpers into the
// output file set. Generation errors collected along the way are reported
// together; failed functions are absent from the output, everything else is
// complete.
func (g *Generator) Finish() (Files, error) {
	var b strings.Builder

	b.WriteString("// Code generated by wit-bindgen-go. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "package %s\n\n", g.opts.PackageName)

	if imports := g.fileImports(); len(imports) > 0 {
		b.WriteString("import (\n")
		for _, imp := range imports {
			fmt.Fprintf(&b, "\t%q\n", imp)
		}
		b.WriteString(")\n\n")
	}

	for _, frag := range g.fragments {
		b.WriteString(frag.src.String())
	}

	g.renderExterns(&b)
	g.renderHelpers(&b)

	files := Files{g.opts.OutFile: []byte(b.String())}
	if g.opts.Stubs && len(g.stubs) > 0 {
		files["stubs.go"] = []byte(g.renderStubs())
	}

	if len(g.errs) > 0 {
		return files, errors.New(errors.PhaseEmit, errors.KindInvalidData).
			Cause(stderrors.Join(g.errs...)).
			Detail("%d generation error(s)", len(g.errs)).
			Build()
	}
	return files, nil
}

func (g *Generator) fileImports() []string {
	var imports []string
	if g.needsMath {
		imports = append(imports, "math")
	}
	if g.needsRuntime {
		imports = append(imports, "runtime")
	}
	if g.needsUnsafe {
		imports = append(imports, "unsafe")
	}
	sort.Strings(imports)
	return imports
}

func (g *Generator) renderExterns(b *strings.Builder) {
	if len(g.externDecls) == 0 {
		return
	}
	names := make([]string, 0, len(g.externDecls))
	for name := range g.externDecls {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(g.externDecls[name])
		b.WriteString("\n")
	}
}

func (g *Generator) renderStubs() string {
	var b strings.Builder
	b.WriteString("// Skeleton implementations. Fill in the bodies and register\n")
	b.WriteString("// them from an init function.\n\n")
	fmt.Fprintf(&b, "package %s\n\n", g.opts.PackageName)

	byType := make(map[string][]string)
	var order []string
	for _, s := range g.stubs {
		if _, seen := byType[s.ifaceType]; !seen {
			order = append(order, s.ifaceType)
		}
		byType[s.ifaceType] = append(byType[s.ifaceType], s.signature)
	}

	for _, ifaceType := range order {
		implName := ifaceType + "Impl"
		fmt.Fprintf(&b, "type %s struct{}\n\n", implName)
		for _, sig := range byType[ifaceType] {
			fmt.Fprintf(&b, "func (%s) %s {\n", implName, sig)
			b.WriteString("\tpanic(\"not implemented\")\n")
			b.WriteString("}\n\n")
		}
	}
	return b.String()
}

func (g *Generator) recordError(f *abi.Function, err error) {
	g.log.Warn("function skipped",
		zap.String("function", f.Name),
		zap.Error(err))
	g.errs = append(g.errs, err)
}
