package javasrc

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Project is the parsed view of one source tree.
type Project struct {
	Root  string
	Files []*File
	types map[string]*Type
	order []*Type
}

// NewProject indexes the types of files by fully-qualified name. When two
// files declare the same name the first one wins.
func NewProject(root string, files []*File) *Project {
	p := &Project{Root: root, Files: files, types: make(map[string]*Type)}
	for _, f := range files {
		for _, t := range f.Types {
			if _, dup := p.types[t.FQN()]; dup {
				continue
			}
			p.types[t.FQN()] = t
			p.order = append(p.order, t)
		}
	}
	return p
}

// Types returns every indexed type in file order.
func (p *Project) Types() []*Type { return p.order }

// Type looks a type up by fully-qualified name.
func (p *Project) Type(fqn string) (*Type, bool) {
	t, ok := p.types[fqn]
	return t, ok
}

// ResolveType finds the project type a type reference in from denotes,
// using explicit imports, wildcard imports, the file's package and finally
// the name as written. Generic arguments and array suffixes are ignored.
func (p *Project) ResolveType(from *File, ref string) (*Type, bool) {
	name := baseTypeName(ref)
	if name == "" {
		return nil, false
	}
	head, rest, nested := strings.Cut(name, ".")
	if from != nil {
		for _, imp := range from.Imports {
			var candidate string
			switch {
			case strings.HasSuffix(imp, ".*"):
				candidate = strings.TrimSuffix(imp, "*") + name
			case imp == head || strings.HasSuffix(imp, "."+head):
				candidate = imp
				if nested {
					candidate += "." + rest
				}
			default:
				continue
			}
			if t, ok := p.types[candidate]; ok {
				return t, true
			}
		}
		if from.Package != "" {
			if t, ok := p.types[from.Package+"."+name]; ok {
				return t, true
			}
		}
	}
	t, ok := p.types[name]
	return t, ok
}

func baseTypeName(ref string) string {
	if i := strings.IndexByte(ref, '<'); i >= 0 {
		ref = ref[:i]
	}
	ref = strings.TrimSuffix(ref, "...")
	for strings.HasSuffix(ref, "[]") {
		ref = strings.TrimSuffix(ref, "[]")
	}
	return strings.TrimSpace(ref)
}

// ResolveCall resolves an invocation made inside m of t to its target type
// and method. Overloads are told apart by argument count; anything still
// ambiguous is not resolved.
func (p *Project) ResolveCall(t *Type, m *Method, c Call) (*Type, *Method, bool) {
	var target *Type
	switch c.ReceiverKind {
	case ReceiverNone, ReceiverThis:
		target = t
	case ReceiverName:
		if v, ok := lookupVariable(t, m, c.Receiver); ok {
			target, _ = p.ResolveType(t.File, v.Type)
		} else {
			target, _ = p.ResolveType(t.File, c.Receiver)
		}
	case ReceiverField:
		if f, ok := t.Field(c.Receiver); ok {
			target, _ = p.ResolveType(t.File, f.Type)
		}
	case ReceiverNew:
		target, _ = p.ResolveType(t.File, c.Receiver)
	}
	if target == nil {
		return nil, nil, false
	}
	method := pickMethod(target, c.Name, len(c.Args))
	if method == nil {
		return nil, nil, false
	}
	return target, method, true
}

// ReceiverType returns the declared type text of the variable a call is
// made on, or "" when the receiver is not a variable.
func ReceiverType(t *Type, m *Method, c Call) string {
	switch c.ReceiverKind {
	case ReceiverName:
		if v, ok := lookupVariable(t, m, c.Receiver); ok {
			return v.Type
		}
	case ReceiverField:
		if f, ok := t.Field(c.Receiver); ok {
			return f.Type
		}
	}
	return ""
}

func lookupVariable(t *Type, m *Method, name string) (Variable, bool) {
	if m != nil {
		for i := len(m.Locals) - 1; i >= 0; i-- {
			if m.Locals[i].Name == name {
				return m.Locals[i], true
			}
		}
		for _, v := range m.Params {
			if v.Name == name {
				return v, true
			}
		}
	}
	return t.Field(name)
}

func pickMethod(t *Type, name string, argc int) *Method {
	candidates := t.MethodsNamed(name)
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		return candidates[0]
	}
	var match *Method
	for _, m := range candidates {
		if len(m.Params) != argc {
			continue
		}
		if match != nil {
			return nil
		}
		match = m
	}
	return match
}

// Loader parses source trees once and hands the same Project to every
// provider scanning that root.
type Loader struct {
	workers int
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]*Project
}

// NewLoader creates a loader parsing with the given number of workers.
func NewLoader(workers int, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{workers: workers, logger: logger, cache: make(map[string]*Project)}
}

// Load returns the parsed project for root.
func (l *Loader) Load(ctx context.Context, root string) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve source root: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.cache[abs]; ok {
		return p, nil
	}

	start := time.Now()
	paths, err := Walk(abs)
	if err != nil {
		return nil, err
	}
	files, err := ParseFiles(ctx, paths, l.workers)
	if err != nil {
		return nil, err
	}
	p := NewProject(abs, files)
	l.cache[abs] = p
	l.logger.Info("java sources parsed",
		"root", abs,
		"files", len(files),
		"types", len(p.order),
		"duration", time.Since(start),
	)
	return p, nil
}

// RelPath returns the slash-separated path of f relative to the project root.
func (p *Project) RelPath(f *File) string {
	if f == nil {
		return ""
	}
	rel, err := filepath.Rel(p.Root, f.Path)
	if err != nil {
		return f.Path
	}
	return filepath.ToSlash(rel)
}
