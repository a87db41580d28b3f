// Package kafka reports message topics and which methods produce to or
// consume from them, from Spring Kafka and Spring Cloud Stream annotations
// and KafkaTemplate sends.
package kafka

import (
	"context"
	"log/slog"
	"strings"

	"github.com/efebarandurmaz/flowgraph/internal/facts"
	"github.com/efebarandurmaz/flowgraph/internal/placeholder"
	"github.com/efebarandurmaz/flowgraph/internal/providers/javasrc"
)

// Name is the provider identifier.
const Name = "kafka"

const templateType = "KafkaTemplate"

// Provider extracts topics and messaging links.
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
	return "Kafka topics from @KafkaListener, @SendTo, @Input/@Output and KafkaTemplate.send"
}

// ContributeFacts implements providers.Provider.
func (p *Provider) ContributeFacts(ctx context.Context, sourceRoot string, props *placeholder.Resolver) (*facts.RawFactSet, error) {
	proj, err := p.loader.Load(ctx, sourceRoot)
	if err != nil {
		return nil, err
	}

	c := &collector{fs: facts.New(""), seen: make(map[string]struct{}), props: props}
	for _, t := range proj.Types() {
		file := proj.RelPath(t.File)
		for _, m := range t.Methods {
			ref := javasrc.MethodRef(t, m)
			for _, a := range m.Annotations {
				origin := facts.Origin{Provider: Name, File: file, Line: a.Line}
				switch a.Name {
				case "KafkaListener":
					c.link(ref, a.Strings("topics", "value"), facts.DirectionConsumes, origin)
				case "Input":
					c.link(ref, a.Strings("value"), facts.DirectionConsumes, origin)
				case "SendTo", "Output":
					c.link(ref, a.Strings("value"), facts.DirectionProduces, origin)
				}
			}
			for _, call := range m.Calls {
				if call.Name != "send" || len(call.Args) == 0 || !call.Args[0].IsString {
					continue
				}
				if !isTemplate(javasrc.ReceiverType(t, m, call)) {
					continue
				}
				origin := facts.Origin{Provider: Name, File: file, Line: call.Line}
				c.link(ref, []string{call.Args[0].Text}, facts.DirectionProduces, origin)
			}
		}
	}
	p.logger.Debug("kafka facts extracted", "topics", len(c.fs.Topics), "links", len(c.fs.Messaging))
	return c.fs, nil
}

func isTemplate(typ string) bool {
	if i := strings.IndexByte(typ, '<'); i >= 0 {
		typ = typ[:i]
	}
	return typ == templateType || strings.HasSuffix(typ, "."+templateType)
}

type collector struct {
	fs    *facts.RawFactSet
	seen  map[string]struct{}
	props *placeholder.Resolver
}

func (c *collector) link(methodRef string, topics []string, dir facts.Direction, origin facts.Origin) {
	for _, raw := range topics {
		topic := strings.TrimSpace(c.props.Resolve(raw))
		if topic == "" {
			continue
		}
		if _, ok := c.seen[topic]; !ok {
			c.seen[topic] = struct{}{}
			c.fs.Topics = append(c.fs.Topics, facts.RawTopic{Name: topic, Origin: origin})
		}
		m := facts.RawMessaging{
			MethodRef: methodRef,
			TopicRef:  topic,
			Direction: dir,
			Origin:    origin,
		}
		if dir == facts.DirectionConsumes {
			m.From, m.To = facts.RoleTopic, facts.RoleMethod
		} else {
			m.From, m.To = facts.RoleMethod, facts.RoleTopic
		}
		c.fs.Messaging = append(c.fs.Messaging, m)
	}
}
