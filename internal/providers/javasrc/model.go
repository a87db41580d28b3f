// Package javasrc parses Java sources with tree-sitter into a small
// declaration model shared by the Java, Spring and Kafka providers.
package javasrc

import "strings"

// Kind is the declaration kind of a type.
type Kind string

const (
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindEnum      Kind = "enum"
	KindRecord    Kind = "record"
)

// File is one parsed compilation unit.
type File struct {
	Path    string
	Package string
	Imports []string
	Types   []*Type
}

// Type is a class, interface, enum or record declaration. Nested types are
// listed separately with dotted names ("Outer.Inner").
type Type struct {
	Name        string
	Package     string
	Kind        Kind
	Annotations []Annotation
	Fields      []Variable
	Methods     []*Method
	File        *File
	Line        int
}

// FQN returns the package-qualified type name.
func (t *Type) FQN() string {
	if t.Package == "" {
		return t.Name
	}
	return t.Package + "." + t.Name
}

// Annotation returns the first annotation with the given simple name.
func (t *Type) Annotation(name string) (Annotation, bool) {
	return findAnnotation(t.Annotations, name)
}

// Field returns the field declared with the given name.
func (t *Type) Field(name string) (Variable, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Variable{}, false
}

// MethodsNamed returns the methods with the given name in declaration order.
func (t *Type) MethodsNamed(name string) []*Method {
	var out []*Method
	for _, m := range t.Methods {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// Method is a method declaration. Constructors are not recorded.
type Method struct {
	Name        string
	ReturnType  string
	Visibility  string
	Params      []Variable
	Annotations []Annotation
	Locals      []Variable
	Calls       []Call
	Line        int
}

// Signature renders "name(T1,T2):Ret" from the declared type text.
func (m *Method) Signature() string {
	types := make([]string, len(m.Params))
	for i, p := range m.Params {
		types[i] = p.Type
	}
	return m.Name + "(" + strings.Join(types, ",") + "):" + m.ReturnType
}

// Annotation returns the first annotation with the given simple name.
func (m *Method) Annotation(name string) (Annotation, bool) {
	return findAnnotation(m.Annotations, name)
}

// Variable is a field, parameter or local variable.
type Variable struct {
	Name string
	Type string
}

// ReceiverKind classifies the object a method is invoked on.
type ReceiverKind int

const (
	// ReceiverNone is an unqualified call such as "m()".
	ReceiverNone ReceiverKind = iota
	// ReceiverThis is "this.m()".
	ReceiverThis
	// ReceiverName is "x.m()" where x is a variable or type name.
	ReceiverName
	// ReceiverField is "this.x.m()".
	ReceiverField
	// ReceiverNew is "new X().m()"; Receiver holds the type.
	ReceiverNew
	// ReceiverOther covers chained and computed receivers.
	ReceiverOther
)

// Call is a method invocation inside a method body.
type Call struct {
	Name         string
	Receiver     string
	ReceiverKind ReceiverKind
	Args         []Value
	Line         int
}

// Value is an annotation element value or call argument. String literals are
// unquoted and flagged; anything else keeps its source text.
type Value struct {
	Text     string
	IsString bool
}

// Annotation is a use of an annotation. A single unnamed element is stored
// under "value".
type Annotation struct {
	Name     string
	Elements map[string][]Value
	Line     int
}

// Values returns the values of the first element present among keys.
func (a Annotation) Values(keys ...string) []Value {
	for _, k := range keys {
		if v, ok := a.Elements[k]; ok {
			return v
		}
	}
	return nil
}

// Strings returns the string-literal values of the first element present
// among keys.
func (a Annotation) Strings(keys ...string) []string {
	var out []string
	for _, v := range a.Values(keys...) {
		if v.IsString {
			out = append(out, v.Text)
		}
	}
	return out
}

// Has reports whether any of the keys is present.
func (a Annotation) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := a.Elements[k]; ok {
			return true
		}
	}
	return false
}

func findAnnotation(list []Annotation, name string) (Annotation, bool) {
	for _, a := range list {
		if a.Name == name {
			return a, true
		}
	}
	return Annotation{}, false
}

// MethodRef returns the raw "<fqn>#<signature>" reference of m declared in t.
func MethodRef(t *Type, m *Method) string {
	return t.FQN() + "#" + m.Signature()
}
