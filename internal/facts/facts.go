// Package facts defines the raw structural facts produced by extractors and
// enrichment providers and consumed by the graph assembler.
package facts

// Direction is the role a method plays on a message topic.
type Direction string

const (
	DirectionProduces Direction = "produces"
	DirectionConsumes Direction = "consumes"
)

// Role names recorded by providers on messaging facts.
const (
	RoleMethod = "method"
	RoleTopic  = "topic"
)

// Origin records where a fact was observed. It only feeds diagnostics.
type Origin struct {
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	File     string `json:"file,omitempty" yaml:"file,omitempty"`
	Line     int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// RawMethod is a discovered method declaration or call-site observation.
type RawMethod struct {
	ClassName   string `json:"className" yaml:"className"`
	MethodName  string `json:"methodName" yaml:"methodName"`
	Signature   string `json:"signature,omitempty" yaml:"signature,omitempty"`
	Visibility  string `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	PackageName string `json:"packageName,omitempty" yaml:"packageName,omitempty"`
	ModuleName  string `json:"moduleName,omitempty" yaml:"moduleName,omitempty"`
	Origin      Origin `json:"origin,omitempty" yaml:"origin,omitempty"`
}

// RawEndpoint is an HTTP route declaration.
type RawEndpoint struct {
	HTTPMethod string   `json:"httpMethod" yaml:"httpMethod"`
	Path       string   `json:"path" yaml:"path"`
	Produces   []string `json:"produces,omitempty" yaml:"produces,omitempty"`
	Consumes   []string `json:"consumes,omitempty" yaml:"consumes,omitempty"`
	Origin     Origin   `json:"origin,omitempty" yaml:"origin,omitempty"`
}

// RawTopic is a message topic declaration.
type RawTopic struct {
	Name   string `json:"name" yaml:"name"`
	Origin Origin `json:"origin,omitempty" yaml:"origin,omitempty"`
}

// RawCall is a caller -> callee relationship between raw method refs of the
// form "<class>#<method or signature>".
type RawCall struct {
	FromRef string `json:"fromRef" yaml:"fromRef"`
	ToRef   string `json:"toRef" yaml:"toRef"`
	Origin  Origin `json:"origin,omitempty" yaml:"origin,omitempty"`
}

// EndpointRef identifies an endpoint by its constituents. ID is whatever the
// provider pre-built; the assembler never uses it as an identity.
type EndpointRef struct {
	ID         string `json:"id,omitempty" yaml:"id,omitempty"`
	HTTPMethod string `json:"httpMethod" yaml:"httpMethod"`
	Path       string `json:"path" yaml:"path"`
}

// RawHandler binds an endpoint to the method that serves it.
type RawHandler struct {
	Endpoint  EndpointRef `json:"endpoint" yaml:"endpoint"`
	MethodRef string      `json:"methodRef" yaml:"methodRef"`
	Origin    Origin      `json:"origin,omitempty" yaml:"origin,omitempty"`
}

// RawMessaging links a method to a topic. From and To record which role the
// provider put on each side of the relationship; they are optional, but when
// present on a consumes fact they must name the topic as the source.
type RawMessaging struct {
	MethodRef string    `json:"methodRef" yaml:"methodRef"`
	TopicRef  string    `json:"topicRef" yaml:"topicRef"`
	Direction Direction `json:"direction" yaml:"direction"`
	From      string    `json:"from,omitempty" yaml:"from,omitempty"`
	To        string    `json:"to,omitempty" yaml:"to,omitempty"`
	Origin    Origin    `json:"origin,omitempty" yaml:"origin,omitempty"`
}

// RawFactSet is one scan's worth of facts. It is filled by providers and must
// not be mutated once handed to the assembler.
type RawFactSet struct {
	ProjectID string         `json:"projectId,omitempty" yaml:"projectId,omitempty"`
	Methods   []RawMethod    `json:"methods,omitempty" yaml:"methods,omitempty"`
	Endpoints []RawEndpoint  `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
	Topics    []RawTopic     `json:"topics,omitempty" yaml:"topics,omitempty"`
	Calls     []RawCall      `json:"calls,omitempty" yaml:"calls,omitempty"`
	Handlers  []RawHandler   `json:"handlers,omitempty" yaml:"handlers,omitempty"`
	Messaging []RawMessaging `json:"messaging,omitempty" yaml:"messaging,omitempty"`
}

// New returns an empty fact set for the given project.
func New(projectID string) *RawFactSet {
	return &RawFactSet{ProjectID: projectID}
}

// Merge appends every fact of other to s, preserving order.
func (s *RawFactSet) Merge(other *RawFactSet) {
	if other == nil {
		return
	}
	s.Methods = append(s.Methods, other.Methods...)
	s.Endpoints = append(s.Endpoints, other.Endpoints...)
	s.Topics = append(s.Topics, other.Topics...)
	s.Calls = append(s.Calls, other.Calls...)
	s.Handlers = append(s.Handlers, other.Handlers...)
	s.Messaging = append(s.Messaging, other.Messaging...)
}

// Count returns the total number of facts in the set.
func (s *RawFactSet) Count() int {
	if s == nil {
		return 0
	}
	return len(s.Methods) + len(s.Endpoints) + len(s.Topics) +
		len(s.Calls) + len(s.Handlers) + len(s.Messaging)
}
