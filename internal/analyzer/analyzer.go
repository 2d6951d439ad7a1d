// Package analyzer walks C sources with tree-sitter and reports symbol
// definition and use events.
//
// The walk is purely syntactic: there is no preprocessing and no type
// resolution. Aggregate types behind member accesses are recovered from
// visible declarations where possible and degrade to "?" otherwise, and
// access modes are derived from the expression shape around each
// identifier.
package analyzer

import (
	"context"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"

	"github.com/avdolov/sindex"
)

// Analyzer parses C files and feeds events to a Reporter. It doubles as the
// stream table consumed by the build coordinator: every analyzed file
// occupies one stream slot in open order.
type Analyzer struct {
	parser  *sitter.Parser
	streams []string
}

func New() *Analyzer {
	p := sitter.NewParser()
	p.SetLanguage(c.GetLanguage())
	return &Analyzer{parser: p}
}

// NumStreams implements sindex.StreamTable.
func (a *Analyzer) NumStreams() int { return len(a.streams) }

// StreamPath implements sindex.StreamTable.
func (a *Analyzer) StreamPath(i int) (string, bool) {
	if i < 0 || i >= len(a.streams) {
		return "", false
	}
	return a.streams[i], true
}

// Analyze parses one file and reports every symbol event found in it.
func (a *Analyzer) Analyze(ctx context.Context, path string, r sindex.Reporter) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", path, err)
	}
	stream := len(a.streams)
	a.streams = append(a.streams, path)

	tree, err := a.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return fmt.Errorf("analyze %s: parse: %w", path, err)
	}
	defer tree.Close()

	w := &walker{
		src:      src,
		stream:   stream,
		report:   r,
		kinds:    map[string]sindex.Kind{},
		locals:   map[string]bool{},
		aggrs:    map[string]string{},
		typedefs: map[string]string{},
	}
	if err := w.walk(tree.RootNode()); err != nil {
		return fmt.Errorf("analyze %s: %w", path, err)
	}
	return nil
}

// walker carries per-file traversal state.
type walker struct {
	src    []byte
	stream int
	report sindex.Reporter

	fn       string                 // enclosing function name, "" at file scope
	kinds    map[string]sindex.Kind // declared identifiers -> kind
	locals   map[string]bool        // block-scope or static identifiers
	aggrs    map[string]string      // variable name -> struct/union tag
	typedefs map[string]string      // typedef name -> struct/union tag
}

func (w *walker) pos(n *sitter.Node) sindex.Position {
	p := n.StartPoint()
	return sindex.Position{Stream: w.stream, Line: int(p.Row) + 1, Col: int(p.Column) + 1}
}

func (w *walker) text(n *sitter.Node) string { return n.Content(w.src) }

func (w *walker) emit(n *sitter.Node, name string, kind sindex.Kind, mode sindex.Mode, local bool) error {
	return w.report.Report(sindex.Event{
		Pos:     w.pos(n),
		Name:    name,
		Kind:    kind,
		Mode:    mode,
		Context: w.fn,
		Local:   local,
	})
}

func (w *walker) emitMember(n *sitter.Node, agg, member string, mode sindex.Mode, local bool) error {
	return w.report.Report(sindex.Event{
		Pos:      w.pos(n),
		Name:     agg,
		Kind:     sindex.KindMember,
		Mode:     mode,
		Context:  w.fn,
		Local:    local,
		IsMember: true,
		Member:   member,
	})
}

func (w *walker) walk(n *sitter.Node) error {
	switch n.Type() {
	case "function_definition":
		return w.functionDefinition(n)
	case "declaration":
		return w.declaration(n, w.fn != "")
	case "type_definition":
		return w.typeDefinition(n)
	case "struct_specifier", "union_specifier", "enum_specifier":
		return w.typeSpecifier(n)
	case "preproc_def", "preproc_function_def":
		if name := n.ChildByFieldName("name"); name != nil {
			return w.emit(name, w.text(name), sindex.KindMacro, sindex.ModeDef, false)
		}
		return nil
	case "call_expression":
		return w.callExpression(n)
	case "assignment_expression":
		return w.assignment(n)
	case "update_expression":
		// x++ and --x read and write the value.
		if arg := n.ChildByFieldName("argument"); arg != nil {
			return w.use(arg, sindex.ModeValRead|sindex.ModeValWrite)
		}
		return nil
	case "pointer_expression":
		return w.pointerExpression(n, sindex.ModeValRead)
	case "field_expression":
		return w.fieldExpression(n, sindex.ModeValRead)
	case "identifier":
		return w.use(n, sindex.ModeValRead)
	}
	return w.walkChildren(n)
}

func (w *walker) walkChildren(n *sitter.Node) error {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if err := w.walk(n.NamedChild(i)); err != nil {
			return err
		}
	}
	return nil
}

// use reports an identifier use with the given access mode, seeing through
// parentheses, subscripts, dereferences and member accesses. The kind comes
// from declarations seen earlier in the file and falls back to variable.
func (w *walker) use(n *sitter.Node, mode sindex.Mode) error {
	switch n.Type() {
	case "identifier":
		name := w.text(n)
		kind, ok := w.kinds[name]
		if !ok {
			kind = sindex.KindVariable
		}
		return w.emit(n, name, kind, mode, w.locals[name])
	case "pointer_expression":
		return w.pointerExpression(n, mode)
	case "field_expression":
		return w.fieldExpression(n, mode)
	case "subscript_expression":
		if arg := n.ChildByFieldName("argument"); arg != nil {
			if err := w.use(arg, mode); err != nil {
				return err
			}
		}
		if idx := n.ChildByFieldName("index"); idx != nil {
			return w.walk(idx)
		}
		return nil
	case "parenthesized_expression":
		if inner := n.NamedChild(0); inner != nil {
			return w.use(inner, mode)
		}
		return nil
	}
	return w.walk(n)
}

func (w *walker) pointerExpression(n *sitter.Node, mode sindex.Mode) error {
	op := n.ChildByFieldName("operator")
	arg := n.ChildByFieldName("argument")
	if arg == nil {
		return w.walkChildren(n)
	}
	var m sindex.Mode
	if op != nil && w.text(op) == "&" {
		m = sindex.ModeAddrRead
	} else {
		// A dereference reads the pointer value itself and carries the
		// surrounding access into the pointer class.
		m = sindex.ModeValRead
		if mode&sindex.ModeValRead != 0 {
			m |= sindex.ModePtrRead
		}
		if mode&sindex.ModeValWrite != 0 {
			m |= sindex.ModePtrWrite
		}
	}
	return w.use(arg, m)
}

func (w *walker) fieldExpression(n *sitter.Node, mode sindex.Mode) error {
	arg := n.ChildByFieldName("argument")
	field := n.ChildByFieldName("field")
	if arg == nil || field == nil {
		return w.walkChildren(n)
	}

	memberMode := mode
	if op := n.ChildByFieldName("operator"); op != nil && w.text(op) == "->" {
		memberMode = 0
		if mode&sindex.ModeValRead != 0 {
			memberMode |= sindex.ModePtrRead
		}
		if mode&sindex.ModeValWrite != 0 {
			memberMode |= sindex.ModePtrWrite
		}
	}

	// The base is read as a value no matter what happens to the member.
	if err := w.use(arg, sindex.ModeValRead); err != nil {
		return err
	}

	agg, local := "", false
	if arg.Type() == "identifier" {
		base := w.text(arg)
		agg = w.aggrs[base]
		local = w.locals[base]
	}
	return w.emitMember(field, agg, w.text(field), memberMode, local)
}

func (w *walker) assignment(n *sitter.Node) error {
	mode := sindex.ModeValWrite
	if op := n.ChildByFieldName("operator"); op != nil && w.text(op) != "=" {
		// Compound assignment reads the old value too.
		mode |= sindex.ModeValRead
	}
	if left := n.ChildByFieldName("left"); left != nil {
		if err := w.use(left, mode); err != nil {
			return err
		}
	}
	if right := n.ChildByFieldName("right"); right != nil {
		return w.walk(right)
	}
	return nil
}

func (w *walker) callExpression(n *sitter.Node) error {
	fn := n.ChildByFieldName("function")
	if fn != nil {
		if fn.Type() == "identifier" {
			name := w.text(fn)
			if err := w.emit(fn, name, sindex.KindFunction, sindex.ModeValRead, w.locals[name]); err != nil {
				return err
			}
		} else if err := w.walk(fn); err != nil {
			return err
		}
	}
	if args := n.ChildByFieldName("arguments"); args != nil {
		return w.walkChildren(args)
	}
	return nil
}

func (w *walker) functionDefinition(n *sitter.Node) error {
	static := hasStorageClass(n, w.src, "static")
	decl := n.ChildByFieldName("declarator")

	if name := declaratorName(decl); name != nil {
		fname := w.text(name)
		w.kinds[fname] = sindex.KindFunction
		if static {
			w.locals[fname] = true
		}
		if err := w.emit(name, fname, sindex.KindFunction, sindex.ModeDef, static); err != nil {
			return err
		}
		prev := w.fn
		w.fn = fname
		defer func() { w.fn = prev }()
	}

	if err := w.parameters(decl); err != nil {
		return err
	}
	if body := n.ChildByFieldName("body"); body != nil {
		return w.walkChildren(body)
	}
	return nil
}

// parameters reports each function parameter as a block-scope definition.
func (w *walker) parameters(decl *sitter.Node) error {
	fd := decl
	for fd != nil && fd.Type() != "function_declarator" {
		fd = fd.ChildByFieldName("declarator")
	}
	if fd == nil {
		return nil
	}
	params := fd.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		if p.Type() != "parameter_declaration" {
			continue
		}
		name := declaratorName(p.ChildByFieldName("declarator"))
		if name == nil {
			continue
		}
		pname := w.text(name)
		w.kinds[pname] = sindex.KindVariable
		w.locals[pname] = true
		w.recordAggr(pname, p.ChildByFieldName("type"))
		if err := w.emit(name, pname, sindex.KindVariable, sindex.ModeDef, true); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) declaration(n *sitter.Node, block bool) error {
	static := hasStorageClass(n, w.src, "static")
	local := block || static

	typeNode := n.ChildByFieldName("type")
	if typeNode != nil {
		// A struct/union/enum definition may ride on the declaration.
		if err := w.walk(typeNode); err != nil {
			return err
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "init_declarator":
			if err := w.declare(child.ChildByFieldName("declarator"), typeNode, local); err != nil {
				return err
			}
			if value := child.ChildByFieldName("value"); value != nil {
				if err := w.walk(value); err != nil {
					return err
				}
			}
		case "identifier", "pointer_declarator", "array_declarator", "function_declarator":
			if err := w.declare(child, typeNode, local); err != nil {
				return err
			}
		}
	}
	return nil
}

// declare reports one declared name. A prototype declares a function,
// anything else (including a pointer to function) a variable.
func (w *walker) declare(decl, typeNode *sitter.Node, local bool) error {
	name := declaratorName(decl)
	if name == nil {
		return nil
	}
	kind := sindex.KindVariable
	if decl != nil && decl.Type() == "function_declarator" {
		kind = sindex.KindFunction
	}
	dname := w.text(name)
	w.kinds[dname] = kind
	if local {
		w.locals[dname] = true
	}
	if kind == sindex.KindVariable {
		w.recordAggr(dname, typeNode)
	}
	return w.emit(name, dname, kind, sindex.ModeDef, local)
}

func (w *walker) typeDefinition(n *sitter.Node) error {
	t := n.ChildByFieldName("type")
	if t != nil {
		switch t.Type() {
		case "struct_specifier", "union_specifier", "enum_specifier":
			if err := w.typeSpecifier(t); err != nil {
				return err
			}
		}
	}
	name := declaratorName(n.ChildByFieldName("declarator"))
	if name == nil {
		return nil
	}
	tname := w.text(name)
	w.kinds[tname] = sindex.KindStruct
	if t != nil && (t.Type() == "struct_specifier" || t.Type() == "union_specifier") {
		if tag := t.ChildByFieldName("name"); tag != nil {
			w.typedefs[tname] = w.text(tag)
		} else {
			w.typedefs[tname] = tname
		}
	}
	return w.emit(name, tname, sindex.KindStruct, sindex.ModeDef, false)
}

// typeSpecifier handles struct, union and enum specifiers. A specifier with
// a body defines the tag, its members or enumerators; a bare tag reference
// is recorded as a use with no access bits set.
func (w *walker) typeSpecifier(n *sitter.Node) error {
	tag := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")

	aggName := ""
	if tag != nil {
		aggName = w.text(tag)
	}
	if body == nil {
		if tag == nil {
			return nil
		}
		return w.emit(tag, aggName, sindex.KindStruct, 0, false)
	}
	if tag != nil {
		if err := w.emit(tag, aggName, sindex.KindStruct, sindex.ModeDef, false); err != nil {
			return err
		}
	}

	if n.Type() == "enum_specifier" {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			e := body.NamedChild(i)
			if e.Type() != "enumerator" {
				continue
			}
			if name := e.ChildByFieldName("name"); name != nil {
				ename := w.text(name)
				w.kinds[ename] = sindex.KindVariable
				if err := w.emit(name, ename, sindex.KindVariable, sindex.ModeDef, false); err != nil {
					return err
				}
			}
			if v := e.ChildByFieldName("value"); v != nil {
				if err := w.walk(v); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for i := 0; i < int(body.NamedChildCount()); i++ {
		f := body.NamedChild(i)
		if f.Type() != "field_declaration" {
			continue
		}
		if name := declaratorName(f.ChildByFieldName("declarator")); name != nil {
			if err := w.emitMember(name, aggName, w.text(name), sindex.ModeDef, false); err != nil {
				return err
			}
		}
		if t := f.ChildByFieldName("type"); t != nil {
			switch t.Type() {
			case "struct_specifier", "union_specifier", "enum_specifier":
				if err := w.typeSpecifier(t); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// recordAggr remembers the aggregate tag behind a variable so later member
// accesses can name it.
func (w *walker) recordAggr(varName string, typeNode *sitter.Node) {
	if typeNode == nil {
		return
	}
	switch typeNode.Type() {
	case "struct_specifier", "union_specifier":
		if tag := typeNode.ChildByFieldName("name"); tag != nil {
			w.aggrs[varName] = w.text(tag)
		}
	case "type_identifier":
		if tag, ok := w.typedefs[w.text(typeNode)]; ok {
			w.aggrs[varName] = tag
		}
	}
}

// declaratorName digs through pointer, array, parenthesized and function
// declarators to the declared identifier.
func declaratorName(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier", "type_identifier":
			return n
		case "pointer_declarator", "function_declarator", "array_declarator", "init_declarator":
			n = n.ChildByFieldName("declarator")
		case "parenthesized_declarator":
			n = n.NamedChild(0)
		default:
			return nil
		}
	}
	return nil
}

func hasStorageClass(n *sitter.Node, src []byte, class string) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "storage_class_specifier" && c.Content(src) == class {
			return true
		}
	}
	return false
}
