package javasrc

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/efebarandurmaz/flowgraph/pkg/treesitter"
)

// ParseFile parses one Java compilation unit. The syntax tree is released
// before returning; only the declaration model is kept.
func ParseFile(ctx context.Context, path string, src []byte) (*File, error) {
	tree, err := treesitter.Parse(ctx, "java", src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", path, err)
	}
	defer tree.Close()

	p := &fileParser{src: src, file: &File{Path: path}}
	p.program(tree.RootNode())
	return p.file, nil
}

type fileParser struct {
	src  []byte
	file *File
}

func (p *fileParser) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(p.src)
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		if c == nil || isComment(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func isComment(n *sitter.Node) bool {
	switch n.Type() {
	case "line_comment", "block_comment", "comment":
		return true
	}
	return false
}

func childOfType(n *sitter.Node, typ string) *sitter.Node {
	for _, c := range namedChildren(n) {
		if c.Type() == typ {
			return c
		}
	}
	return nil
}

func (p *fileParser) program(root *sitter.Node) {
	for _, n := range namedChildren(root) {
		switch n.Type() {
		case "package_declaration":
			for _, c := range namedChildren(n) {
				if c.Type() == "scoped_identifier" || c.Type() == "identifier" {
					p.file.Package = p.text(c)
				}
			}
		case "import_declaration":
			if imp := p.importPath(n); imp != "" {
				p.file.Imports = append(p.file.Imports, imp)
			}
		case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
			p.typeDecl(n, "")
		}
	}
}

func (p *fileParser) importPath(n *sitter.Node) string {
	var path string
	wildcard := false
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "scoped_identifier", "identifier":
			path = p.text(c)
		case "asterisk":
			wildcard = true
		}
	}
	if path != "" && wildcard {
		path += ".*"
	}
	return path
}

var declKinds = map[string]Kind{
	"class_declaration":     KindClass,
	"interface_declaration": KindInterface,
	"enum_declaration":      KindEnum,
	"record_declaration":    KindRecord,
}

func (p *fileParser) typeDecl(n *sitter.Node, outer string) {
	name := p.text(n.ChildByFieldName("name"))
	if name == "" {
		return
	}
	if outer != "" {
		name = outer + "." + name
	}
	t := &Type{
		Name:        name,
		Package:     p.file.Package,
		Kind:        declKinds[n.Type()],
		Annotations: p.annotations(childOfType(n, "modifiers")),
		File:        p.file,
		Line:        line(n),
	}
	p.file.Types = append(p.file.Types, t)

	if t.Kind == KindRecord {
		for _, c := range namedChildren(n.ChildByFieldName("parameters")) {
			if v, ok := p.parameter(c); ok {
				t.Fields = append(t.Fields, v)
			}
		}
	}
	p.typeBody(t, n.ChildByFieldName("body"))
}

func (p *fileParser) typeBody(t *Type, body *sitter.Node) {
	for _, c := range namedChildren(body) {
		switch c.Type() {
		case "field_declaration":
			typ := compactType(p.text(c.ChildByFieldName("type")))
			for _, d := range namedChildren(c) {
				if d.Type() == "variable_declarator" {
					t.Fields = append(t.Fields, Variable{Name: p.text(d.ChildByFieldName("name")), Type: typ})
				}
			}
		case "method_declaration":
			t.Methods = append(t.Methods, p.method(t, c))
		case "enum_body_declarations":
			p.typeBody(t, c)
		case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
			p.typeDecl(c, t.Name)
		}
	}
}

func (p *fileParser) method(t *Type, n *sitter.Node) *Method {
	mods := childOfType(n, "modifiers")
	m := &Method{
		Name:        p.text(n.ChildByFieldName("name")),
		ReturnType:  compactType(p.text(n.ChildByFieldName("type"))),
		Visibility:  p.visibility(mods, t.Kind),
		Annotations: p.annotations(mods),
		Line:        line(n),
	}
	for _, c := range namedChildren(n.ChildByFieldName("parameters")) {
		if v, ok := p.parameter(c); ok {
			m.Params = append(m.Params, v)
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		p.scanBody(m, body)
	}
	return m
}

func (p *fileParser) parameter(n *sitter.Node) (Variable, bool) {
	switch n.Type() {
	case "formal_parameter":
		return Variable{
			Name: p.text(n.ChildByFieldName("name")),
			Type: compactType(p.text(n.ChildByFieldName("type"))),
		}, true
	case "spread_parameter":
		var v Variable
		for _, c := range namedChildren(n) {
			switch c.Type() {
			case "modifiers":
			case "variable_declarator":
				v.Name = p.text(c.ChildByFieldName("name"))
			default:
				if v.Type == "" {
					v.Type = compactType(p.text(c)) + "..."
				}
			}
		}
		return v, v.Type != ""
	}
	return Variable{}, false
}

// visibility maps modifiers to public/protected/private/package. Interface
// members without a modifier are public.
func (p *fileParser) visibility(mods *sitter.Node, kind Kind) string {
	if mods != nil {
		for i := 0; i < int(mods.ChildCount()); i++ {
			switch c := mods.Child(i); c.Type() {
			case "public", "protected", "private":
				return c.Type()
			}
		}
	}
	if kind == KindInterface {
		return "public"
	}
	return "package"
}

func (p *fileParser) annotations(mods *sitter.Node) []Annotation {
	var out []Annotation
	for _, c := range namedChildren(mods) {
		if c.Type() != "marker_annotation" && c.Type() != "annotation" {
			continue
		}
		name := p.text(c.ChildByFieldName("name"))
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		a := Annotation{Name: name, Elements: map[string][]Value{}, Line: line(c)}
		for _, arg := range namedChildren(c.ChildByFieldName("arguments")) {
			if arg.Type() == "element_value_pair" {
				key := p.text(arg.ChildByFieldName("key"))
				a.Elements[key] = p.values(arg.ChildByFieldName("value"))
				continue
			}
			a.Elements["value"] = p.values(arg)
		}
		out = append(out, a)
	}
	return out
}

func (p *fileParser) values(n *sitter.Node) []Value {
	if n == nil {
		return nil
	}
	if n.Type() == "element_value_array_initializer" {
		var out []Value
		for _, c := range namedChildren(n) {
			out = append(out, p.values(c)...)
		}
		return out
	}
	return []Value{p.value(n)}
}

func (p *fileParser) value(n *sitter.Node) Value {
	if s, ok := p.stringValue(n); ok {
		return Value{Text: s, IsString: true}
	}
	return Value{Text: p.text(n)}
}

// stringValue evaluates string literals and concatenations of them.
func (p *fileParser) stringValue(n *sitter.Node) (string, bool) {
	switch n.Type() {
	case "string_literal":
		return unquote(p.text(n)), true
	case "parenthesized_expression":
		if inner := namedChildren(n); len(inner) == 1 {
			return p.stringValue(inner[0])
		}
	case "binary_expression":
		op := n.ChildByFieldName("operator")
		left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")
		if op == nil || op.Type() != "+" || left == nil || right == nil {
			return "", false
		}
		l, ok := p.stringValue(left)
		if !ok {
			return "", false
		}
		r, ok := p.stringValue(right)
		if !ok {
			return "", false
		}
		return l + r, true
	}
	return "", false
}

func unquote(lit string) string {
	if strings.HasPrefix(lit, `"""`) && strings.HasSuffix(lit, `"""`) && len(lit) >= 6 {
		body := strings.TrimPrefix(lit[3:len(lit)-3], "\n")
		return body
	}
	if s, err := strconv.Unquote(lit); err == nil {
		return s
	}
	return strings.Trim(lit, `"`)
}

// scanBody collects local variables and method invocations in a body.
func (p *fileParser) scanBody(m *Method, n *sitter.Node) {
	switch n.Type() {
	case "local_variable_declaration":
		typ := compactType(p.text(n.ChildByFieldName("type")))
		for _, d := range namedChildren(n) {
			if d.Type() != "variable_declarator" {
				continue
			}
			local := Variable{Name: p.text(d.ChildByFieldName("name")), Type: typ}
			if value := d.ChildByFieldName("value"); typ == "var" && value != nil && value.Type() == "object_creation_expression" {
				local.Type = compactType(p.text(value.ChildByFieldName("type")))
			}
			m.Locals = append(m.Locals, local)
		}
	case "enhanced_for_statement":
		m.Locals = append(m.Locals, Variable{
			Name: p.text(n.ChildByFieldName("name")),
			Type: compactType(p.text(n.ChildByFieldName("type"))),
		})
	case "method_invocation":
		m.Calls = append(m.Calls, p.call(n))
	}
	for _, c := range namedChildren(n) {
		p.scanBody(m, c)
	}
}

func (p *fileParser) call(n *sitter.Node) Call {
	c := Call{Name: p.text(n.ChildByFieldName("name")), Line: line(n)}
	obj := n.ChildByFieldName("object")
	switch {
	case obj == nil:
		c.ReceiverKind = ReceiverNone
	case obj.Type() == "this":
		c.ReceiverKind = ReceiverThis
	case obj.Type() == "identifier":
		c.ReceiverKind = ReceiverName
		c.Receiver = p.text(obj)
	case obj.Type() == "field_access":
		if inner := obj.ChildByFieldName("object"); inner != nil && inner.Type() == "this" {
			c.ReceiverKind = ReceiverField
			c.Receiver = p.text(obj.ChildByFieldName("field"))
		} else {
			c.ReceiverKind = ReceiverName
			c.Receiver = p.text(obj)
		}
	case obj.Type() == "object_creation_expression":
		c.ReceiverKind = ReceiverNew
		c.Receiver = compactType(p.text(obj.ChildByFieldName("type")))
	default:
		c.ReceiverKind = ReceiverOther
		c.Receiver = p.text(obj)
	}
	for _, arg := range namedChildren(n.ChildByFieldName("arguments")) {
		c.Args = append(c.Args, p.value(arg))
	}
	return c
}

var typeSpacing = strings.NewReplacer(", ", ",", "< ", "<", " <", "<", " >", ">", " [", "[")

// compactType collapses whitespace in a type's source text:
// "Map<String, List<Order>>" becomes "Map<String,List<Order>>".
func compactType(s string) string {
	return typeSpacing.Replace(strings.Join(strings.Fields(s), " "))
}
