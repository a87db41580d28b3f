package assembler

import (
	"strings"

	"github.com/efebarandurmaz/flowgraph/internal/facts"
	"github.com/efebarandurmaz/flowgraph/internal/normalize"
	"github.com/efebarandurmaz/flowgraph/internal/unified"
)

// dedupeMethods keeps the first fact seen for each canonical method id.
func (b *build) dedupeMethods() {
	seen := make(map[string]struct{}, len(b.facts.Methods))
	for _, m := range b.facts.Methods {
		id, ok := normalize.CanonicalMethodID(m.ClassName, m.MethodName, m.Signature)
		if !ok {
			b.report(facts.ErrMalformedFact, m.Origin, "method %q#%q lacks class or method name", m.ClassName, m.MethodName)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		b.methods = append(b.methods, dedupedMethod{id: id, fact: m})
	}
}

func (b *build) materializeMethods() {
	candidates := make(map[string]struct{})
	for _, dm := range b.methods {
		m := dm.fact
		typ := unified.NodeMethod
		if strings.EqualFold(m.Visibility, "private") {
			typ = unified.NodePrivateMethod
		}
		n := unified.Node{
			ID:   dm.id,
			Type: typ,
			Name: normalize.SimpleClassName(m.ClassName) + "." + m.MethodName,
		}
		n.Attrs.Set("visibility", m.Visibility)
		n.Attrs.Set("className", m.ClassName)
		n.Attrs.Set("packageName", m.PackageName)
		n.Attrs.Set("moduleName", m.ModuleName)
		n.Attrs.Set("signature", normalize.NormalizeSignature(m.Signature))
		if !b.insert(n, m.Origin) {
			continue
		}

		if m.PackageName == "" {
			continue
		}
		classID := normalize.CanonicalClassID(m.ClassName, m.PackageName)
		b.classOf[dm.id] = classID
		if _, ok := candidates[classID]; ok {
			continue
		}
		candidates[classID] = struct{}{}
		b.candidates = append(b.candidates, classCandidate{
			classID:     classID,
			simpleName:  normalize.SimpleClassName(m.ClassName),
			packageName: m.PackageName,
			serviceName: b.a.namer.DeriveServiceName(m.ModuleName, m.PackageName),
		})
	}
}

func (b *build) materializeEndpoints() {
	for _, ep := range b.facts.Endpoints {
		id, ok := normalize.CanonicalEndpointID(ep.HTTPMethod, ep.Path)
		if !ok {
			b.report(facts.ErrMalformedFact, ep.Origin, "endpoint %q %q lacks method or path", ep.HTTPMethod, ep.Path)
			continue
		}
		method := strings.ToUpper(ep.HTTPMethod)
		n := unified.Node{ID: id, Type: unified.NodeEndpoint, Name: method + " " + ep.Path}
		n.Attrs.Set("httpMethod", method)
		n.Attrs.Set("path", ep.Path)
		n.Attrs.Set("produces", ep.Produces)
		n.Attrs.Set("consumes", ep.Consumes)
		b.insert(n, ep.Origin)
	}
}

func (b *build) materializeTopics() {
	for _, t := range b.facts.Topics {
		name := normalize.TopicName(strings.TrimSpace(t.Name))
		if name == "" {
			b.report(facts.ErrMalformedFact, t.Origin, "topic %q has no name", t.Name)
			continue
		}
		b.insert(unified.Node{ID: normalize.CanonicalTopicID(name), Type: unified.NodeTopic, Name: name}, t.Origin)
	}
}

func (b *build) materializeClasses() {
	for _, c := range b.candidates {
		class := unified.Node{ID: c.classID, Type: unified.NodeClass, Name: c.simpleName}
		class.Attrs.Set("className", c.simpleName)
		class.Attrs.Set("packageName", c.packageName)
		class.Attrs.Set("serviceName", c.serviceName)
		if !b.insert(class, facts.Origin{}) {
			continue
		}

		serviceID := normalize.ServiceID(c.serviceName)
		service := unified.Node{ID: serviceID, Type: unified.NodeService, Name: c.serviceName}
		service.Attrs.Set("serviceName", c.serviceName)
		if !b.insert(service, facts.Origin{}) {
			continue
		}
		b.link(unified.EdgeBelongsTo, c.classID, serviceID, facts.Origin{})
	}
}

func (b *build) linkCalls() {
	for _, c := range b.facts.Calls {
		if c.FromRef == "" || c.ToRef == "" {
			b.report(facts.ErrMalformedFact, c.Origin, "call %q -> %q lacks an endpoint", c.FromRef, c.ToRef)
			continue
		}
		from := normalize.CanonicalMethodRef(c.FromRef)
		to := normalize.CanonicalMethodRef(c.ToRef)
		if !b.ensureMethod(from, c.Origin) || !b.ensureMethod(to, c.Origin) {
			continue
		}
		b.link(unified.EdgeCall, from, to, c.Origin)
	}
}

func (b *build) linkHandlers() {
	for _, h := range b.facts.Handlers {
		endpointID, ok := normalize.CanonicalEndpointID(h.Endpoint.HTTPMethod, h.Endpoint.Path)
		if !ok {
			b.report(facts.ErrAmbiguousReference, h.Origin, "handler endpoint %q lacks method or path", h.Endpoint.ID)
			continue
		}
		if _, _, found := strings.Cut(h.MethodRef, "#"); !found {
			b.report(facts.ErrAmbiguousReference, h.Origin, "handler method ref %q has no class separator", h.MethodRef)
			continue
		}
		methodID := normalize.CanonicalMethodRef(h.MethodRef)
		if !b.ensureEndpoint(endpointID, h.Endpoint, h.Origin) || !b.ensureMethod(methodID, h.Origin) {
			continue
		}
		b.link(unified.EdgeHandles, endpointID, methodID, h.Origin)
	}
}

func (b *build) linkMessaging() {
	for _, m := range b.facts.Messaging {
		topicName := normalize.TopicName(strings.TrimSpace(m.TopicRef))
		if m.MethodRef == "" || topicName == "" {
			b.report(facts.ErrMalformedFact, m.Origin, "messaging fact %q/%q lacks method or topic", m.MethodRef, m.TopicRef)
			continue
		}
		dir := facts.Direction(strings.ToLower(string(m.Direction)))
		var edgeType unified.EdgeType
		switch dir {
		case facts.DirectionProduces:
			if m.From == facts.RoleTopic || m.To == facts.RoleMethod {
				b.report(facts.ErrMalformedFact, m.Origin, "produces fact for %q names the topic as source", m.TopicRef)
				continue
			}
			edgeType = unified.EdgeProduces
		case facts.DirectionConsumes:
			if m.From == facts.RoleMethod || m.To == facts.RoleTopic {
				b.report(facts.ErrMalformedFact, m.Origin, "consumes fact for %q names the method as source", m.TopicRef)
				continue
			}
			edgeType = unified.EdgeConsumes
		default:
			b.report(facts.ErrMalformedFact, m.Origin, "unknown messaging direction %q", m.Direction)
			continue
		}

		methodID := normalize.CanonicalMethodRef(m.MethodRef)
		topicID := normalize.CanonicalTopicID(topicName)
		if !b.ensureMethod(methodID, m.Origin) || !b.ensureTopic(topicID, topicName, m.Origin) {
			continue
		}
		if edgeType == unified.EdgeProduces {
			b.link(edgeType, methodID, topicID, m.Origin)
		} else {
			b.link(edgeType, topicID, methodID, m.Origin)
		}
	}
}

func (b *build) linkDefinitions() {
	for _, dm := range b.methods {
		classID, ok := b.classOf[dm.id]
		if !ok {
			continue
		}
		if n, ok := b.g.Lookup(classID); !ok || n.Type != unified.NodeClass {
			continue
		}
		b.link(unified.EdgeDefines, dm.id, classID, dm.fact.Origin)
	}
}

// ensureMethod makes sure id names a method node, synthesizing one if the
// id is unknown.
func (b *build) ensureMethod(id string, origin facts.Origin) bool {
	if n, ok := b.g.Lookup(id); ok {
		if n.Type.IsMethod() {
			return true
		}
		b.report(facts.ErrAmbiguousReference, origin, "method ref %q resolves to a %s node", id, n.Type)
		return false
	}
	class, rest, _ := strings.Cut(id, "#")
	name := rest
	if i := strings.IndexByte(rest, '('); i >= 0 {
		name = rest[:i]
	}
	n := unified.Node{ID: id, Type: unified.NodeMethod, Name: id}
	if class != "" && name != "" {
		n.Name = normalize.SimpleClassName(class) + "." + name
		n.Attrs.Set("className", class)
	}
	n.Attrs.Set(AttrSynthesized, true)
	return b.insert(n, origin)
}

func (b *build) ensureTopic(id, name string, origin facts.Origin) bool {
	if n, ok := b.g.Lookup(id); ok {
		if n.Type == unified.NodeTopic {
			return true
		}
		b.report(facts.ErrAmbiguousReference, origin, "topic ref %q resolves to a %s node", id, n.Type)
		return false
	}
	n := unified.Node{ID: id, Type: unified.NodeTopic, Name: name}
	n.Attrs.Set(AttrSynthesized, true)
	return b.insert(n, origin)
}

func (b *build) ensureEndpoint(id string, ref facts.EndpointRef, origin facts.Origin) bool {
	if n, ok := b.g.Lookup(id); ok {
		if n.Type == unified.NodeEndpoint {
			return true
		}
		b.report(facts.ErrAmbiguousReference, origin, "endpoint ref %q resolves to a %s node", id, n.Type)
		return false
	}
	method := strings.ToUpper(ref.HTTPMethod)
	n := unified.Node{ID: id, Type: unified.NodeEndpoint, Name: method + " " + ref.Path}
	n.Attrs.Set("httpMethod", method)
	n.Attrs.Set("path", ref.Path)
	n.Attrs.Set(AttrSynthesized, true)
	return b.insert(n, origin)
}
