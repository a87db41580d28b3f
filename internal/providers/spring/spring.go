// Package spring reports HTTP endpoints declared with Spring MVC mapping
// annotations and binds each to its handler method.
package spring

import (
	"context"
	"log/slog"
	"strings"

	"github.com/efebarandurmaz/flowgraph/internal/facts"
	"github.com/efebarandurmaz/flowgraph/internal/placeholder"
	"github.com/efebarandurmaz/flowgraph/internal/providers/javasrc"
)

// Name is the provider identifier.
const Name = "spring"

// httpMethods maps shortcut mapping annotations to their HTTP method.
var httpMethods = map[string]string{
	"GetMapping":    "GET",
	"PostMapping":   "POST",
	"PutMapping":    "PUT",
	"DeleteMapping": "DELETE",
	"PatchMapping":  "PATCH",
}

const (
	requestMapping = "RequestMapping"
	// anyMethod is used for @RequestMapping without a method element.
	anyMethod = "REQUEST"
)

// Provider extracts endpoints and handlers.
type Provider struct {
	loader *javasrc.Loader
	logger *slog.Logger
}

// New creates the provider.
func New(loader *javasrc.Loader, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{loader: loader, logger: logger}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Description() string {
	return "HTTP endpoints from Spring @*Mapping annotations"
}

// ContributeFacts implements providers.Provider.
func (p *Provider) ContributeFacts(ctx context.Context, sourceRoot string, props *placeholder.Resolver) (*facts.RawFactSet, error) {
	proj, err := p.loader.Load(ctx, sourceRoot)
	if err != nil {
		return nil, err
	}

	fs := facts.New("")
	for _, t := range proj.Types() {
		classAnn, hasClass := t.Annotation(requestMapping)
		base := ""
		if hasClass {
			base = firstPath(classAnn, props)
		}
		file := proj.RelPath(t.File)

		for _, m := range t.Methods {
			ann, verbs, ok := mapping(m)
			if !ok {
				continue
			}
			path := joinPath(base, firstPath(ann, props))
			produces := props.ResolveAll(ann.Strings("produces"))
			consumes := props.ResolveAll(ann.Strings("consumes"))
			if hasClass {
				if len(produces) == 0 {
					produces = props.ResolveAll(classAnn.Strings("produces"))
				}
				if len(consumes) == 0 {
					consumes = props.ResolveAll(classAnn.Strings("consumes"))
				}
			}

			origin := facts.Origin{Provider: Name, File: file, Line: ann.Line}
			for _, method := range verbs {
				fs.Endpoints = append(fs.Endpoints, facts.RawEndpoint{
					HTTPMethod: method,
					Path:       path,
					Produces:   produces,
					Consumes:   consumes,
					Origin:     origin,
				})
				fs.Handlers = append(fs.Handlers, facts.RawHandler{
					Endpoint: facts.EndpointRef{
						ID:         "endpoint:" + method + " " + path,
						HTTPMethod: method,
						Path:       path,
					},
					MethodRef: javasrc.MethodRef(t, m),
					Origin:    origin,
				})
			}
		}
	}
	p.logger.Debug("spring facts extracted", "endpoints", len(fs.Endpoints))
	return fs, nil
}

// mapping returns the first mapping annotation on m and the HTTP methods it
// declares.
func mapping(m *javasrc.Method) (javasrc.Annotation, []string, bool) {
	for _, a := range m.Annotations {
		if verb, ok := httpMethods[a.Name]; ok {
			return a, []string{verb}, true
		}
		if a.Name == requestMapping {
			return a, requestMethods(a), true
		}
	}
	return javasrc.Annotation{}, nil, false
}

// requestMethods reads method = RequestMethod.X (or an array of them).
func requestMethods(a javasrc.Annotation) []string {
	var out []string
	for _, v := range a.Values("method") {
		name := v.Text
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		if name = strings.ToUpper(strings.TrimSpace(name)); name != "" {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return []string{anyMethod}
	}
	return out
}

func firstPath(a javasrc.Annotation, props *placeholder.Resolver) string {
	paths := a.Strings("value", "path")
	if len(paths) == 0 {
		return ""
	}
	return props.Resolve(paths[0])
}

// joinPath joins a class-level base path and a method path, inserting a
// slash only when neither side has one. An empty result maps to "/".
func joinPath(base, path string) string {
	var out string
	switch {
	case base == "":
		out = path
	case path == "":
		out = base
	case strings.HasSuffix(base, "/") || strings.HasPrefix(path, "/"):
		out = base + path
	default:
		out = base + "/" + path
	}
	if out == "" {
		return "/"
	}
	return out
}
