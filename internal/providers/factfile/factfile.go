// Package factfile loads facts recorded by external extractors from a JSON
// or YAML document shaped like facts.RawFactSet.
package factfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/efebarandurmaz/flowgraph/internal/facts"
	"github.com/efebarandurmaz/flowgraph/internal/placeholder"
)

// Name is the provider identifier.
const Name = "factfile"

// Provider reads one facts file.
type Provider struct {
	path string
}

// New creates a provider for path. A relative path is taken relative to the
// scanned source root.
func New(path string) *Provider {
	return &Provider{path: path}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Description() string {
	return "facts recorded by external extractors (" + p.path + ")"
}

// ContributeFacts implements providers.Provider.
func (p *Provider) ContributeFacts(_ context.Context, sourceRoot string, props *placeholder.Resolver) (*facts.RawFactSet, error) {
	if p.path == "" {
		return nil, fmt.Errorf("factfile: no path configured")
	}
	path := p.path
	if !filepath.IsAbs(path) {
		path = filepath.Join(sourceRoot, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facts file: %w", err)
	}
	fs, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	resolve(fs, props)
	stamp(fs, filepath.Base(path))
	return fs, nil
}

// Decode parses a fact set; ext selects the format (".json", ".yaml", ".yml").
func Decode(data []byte, ext string) (*facts.RawFactSet, error) {
	var fs facts.RawFactSet
	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&fs); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fs); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported facts file type %q", ext)
	}
	return &fs, nil
}

// Encode writes fs in the format selected by ext.
func Encode(fs *facts.RawFactSet, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".json":
		return json.MarshalIndent(fs, "", "  ")
	case ".yaml", ".yml":
		return yaml.Marshal(fs)
	default:
		return nil, fmt.Errorf("unsupported facts file type %q", ext)
	}
}

func resolve(fs *facts.RawFactSet, props *placeholder.Resolver) {
	for i := range fs.Topics {
		fs.Topics[i].Name = props.Resolve(fs.Topics[i].Name)
	}
	for i := range fs.Endpoints {
		fs.Endpoints[i].Path = props.Resolve(fs.Endpoints[i].Path)
	}
	for i := range fs.Handlers {
		fs.Handlers[i].Endpoint.Path = props.Resolve(fs.Handlers[i].Endpoint.Path)
	}
	for i := range fs.Messaging {
		fs.Messaging[i].TopicRef = props.Resolve(fs.Messaging[i].TopicRef)
	}
}

// stamp fills in the origin of facts that do not carry one.
func stamp(fs *facts.RawFactSet, file string) {
	set := func(o *facts.Origin) {
		if o.Provider == "" {
			o.Provider = Name
		}
		if o.File == "" {
			o.File = file
		}
	}
	for i := range fs.Methods {
		set(&fs.Methods[i].Origin)
	}
	for i := range fs.Endpoints {
		set(&fs.Endpoints[i].Origin)
	}
	for i := range fs.Topics {
		set(&fs.Topics[i].Origin)
	}
	for i := range fs.Calls {
		set(&fs.Calls[i].Origin)
	}
	for i := range fs.Handlers {
		set(&fs.Handlers[i].Origin)
	}
	for i := range fs.Messaging {
		set(&fs.Messaging[i].Origin)
	}
}
