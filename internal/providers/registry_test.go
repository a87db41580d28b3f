package providers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/efebarandurmaz/flowgraph/internal/facts"
	"github.com/efebarandurmaz/flowgraph/internal/placeholder"
)

type stubProvider struct {
	name  string
	topic string
	err   error
	calls *[]string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) ContributeFacts(_ context.Context, _ string, props *placeholder.Resolver) (*facts.RawFactSet, error) {
	if s.calls != nil {
		*s.calls = append(*s.calls, s.name)
	}
	if s.err != nil {
		return &facts.RawFactSet{Topics: []facts.RawTopic{{Name: "leaked"}}}, s.err
	}
	fs := facts.New("")
	fs.Topics = []facts.RawTopic{{Name: props.Resolve(s.topic)}}
	return fs, nil
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubProvider{name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&stubProvider{name: "a"}); err == nil {
		t.Error("expected error for duplicate name")
	}
	if _, err := r.Provider("a"); err != nil {
		t.Errorf("expected provider, got error: %v", err)
	}
	if _, err := r.Provider("unknown"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestRegistry_CollectRunsInOrder(t *testing.T) {
	var calls []string
	r := NewRegistry()
	for _, p := range []*stubProvider{
		{name: "first", topic: "${t1}", calls: &calls},
		{name: "broken", err: errors.New("boom"), calls: &calls},
		{name: "last", topic: "t2", calls: &calls},
	} {
		if err := r.Register(p); err != nil {
			t.Fatal(err)
		}
	}

	props := placeholder.FromMap(map[string]string{"t1": "orders"}, quiet)
	fs, reports, err := r.Collect(context.Background(), "proj", "/src", props, quiet)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got := strings.Join(calls, ","); got != "first,broken,last" {
		t.Errorf("run order = %s", got)
	}
	if fs.ProjectID != "proj" {
		t.Errorf("project id = %q", fs.ProjectID)
	}
	if len(fs.Topics) != 2 || fs.Topics[0].Name != "orders" || fs.Topics[1].Name != "t2" {
		t.Errorf("merged topics = %+v", fs.Topics)
	}
	if len(reports) != 3 || reports[1].Err == nil || reports[1].Facts != 0 {
		t.Errorf("reports = %+v", reports)
	}
}

func TestRegistry_CollectCancelled(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&stubProvider{name: "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := r.Collect(ctx, "p", "/src", nil, quiet); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRegistry_Select(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"java", "spring", "kafka"} {
		_ = r.Register(&stubProvider{name: n})
	}
	sub, err := r.Select([]string{"kafka", "java"})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(sub.Names(), ","); got != "kafka,java" {
		t.Errorf("selected = %s", got)
	}
	all, _ := r.Select(nil)
	if len(all.Names()) != 3 {
		t.Errorf("empty selection should keep all, got %v", all.Names())
	}
	if _, err := r.Select([]string{"nope"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestBuiltin(t *testing.T) {
	got := strings.Join(Builtin(Options{Logger: quiet}).Names(), ",")
	if got != "java,spring,kafka" {
		t.Errorf("builtin providers = %s", got)
	}
	got = strings.Join(Builtin(Options{FactsFile: "facts.yaml", Logger: quiet}).Names(), ",")
	if got != "java,spring,kafka,factfile" {
		t.Errorf("builtin providers with facts file = %s", got)
	}
}
