package javasrc

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRoot = "../testdata/greens-order"

func loadSample(t *testing.T) *Project {
	t.Helper()
	p, err := NewLoader(2, nil).Load(context.Background(), sampleRoot)
	require.NoError(t, err)
	return p
}

func TestWalk_HonorsGitignore(t *testing.T) {
	files, err := Walk(sampleRoot)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.ElementsMatch(t, []string{"OrderController.java", "OrderConsumer.java", "OrderService.java"}, names)
}

func TestWalk_MissingRoot(t *testing.T) {
	_, err := Walk(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestParseFile_Declarations(t *testing.T) {
	src := []byte(`package com.acme.billing;

import java.util.List;
import com.acme.shared.*;

@Service
public class InvoiceService {
  private final InvoiceRepository repo;
  private java.util.Map<String, List<Invoice>> cache, backup;

  public List<Invoice> find(java.lang.String customer, int limit) {
    var found = new InvoiceRepository();
    return repo.load(customer);
  }

  protected void bulk(String... ids) {
    for (Invoice inv : repo.all()) {
      this.audit(inv);
    }
  }

  void audit(Invoice inv) {}

  public InvoiceService() {}

  static class Cache {
    private void clear() {}
  }
}

interface Lookup {
  Invoice byId(String id);
}
`)
	f, err := ParseFile(context.Background(), "InvoiceService.java", src)
	require.NoError(t, err)

	assert.Equal(t, "com.acme.billing", f.Package)
	assert.Equal(t, []string{"java.util.List", "com.acme.shared.*"}, f.Imports)
	require.Len(t, f.Types, 3)

	svc := f.Types[0]
	assert.Equal(t, "com.acme.billing.InvoiceService", svc.FQN())
	assert.Equal(t, KindClass, svc.Kind)
	_, ok := svc.Annotation("Service")
	assert.True(t, ok)
	assert.Equal(t, []Variable{
		{Name: "repo", Type: "InvoiceRepository"},
		{Name: "cache", Type: "java.util.Map<String,List<Invoice>>"},
		{Name: "backup", Type: "java.util.Map<String,List<Invoice>>"},
	}, svc.Fields)

	require.Len(t, svc.Methods, 3, "constructors are not methods")
	find := svc.Methods[0]
	assert.Equal(t, "find(java.lang.String,int):List<Invoice>", find.Signature())
	assert.Equal(t, "public", find.Visibility)
	assert.Contains(t, find.Locals, Variable{Name: "found", Type: "InvoiceRepository"})
	require.Len(t, find.Calls, 1)
	assert.Equal(t, Call{Name: "load", Receiver: "repo", ReceiverKind: ReceiverName, Args: []Value{{Text: "customer"}}, Line: 13}, find.Calls[0])

	bulk := svc.Methods[1]
	assert.Equal(t, "bulk(String...):void", bulk.Signature())
	assert.Equal(t, "protected", bulk.Visibility)
	assert.Contains(t, bulk.Locals, Variable{Name: "inv", Type: "Invoice"})

	assert.Equal(t, "package", svc.Methods[2].Visibility)

	nested := f.Types[1]
	assert.Equal(t, "InvoiceService.Cache", nested.Name)
	assert.Equal(t, "private", nested.Methods[0].Visibility)

	lookup := f.Types[2]
	assert.Equal(t, KindInterface, lookup.Kind)
	assert.Equal(t, "public", lookup.Methods[0].Visibility)
}

func TestParseFile_AnnotationValues(t *testing.T) {
	src := []byte(`package x;
@RequestMapping(value = "/api" + "/v1", produces = {"application/json", "text/plain"})
class A {
  @KafkaListener(topics = {"a", "b"}, groupId = "g")
  @RequestMapping(path = "/r", method = RequestMethod.POST)
  @Deprecated
  void m() {}
}
`)
	f, err := ParseFile(context.Background(), "A.java", src)
	require.NoError(t, err)
	require.Len(t, f.Types, 1)

	rm, ok := f.Types[0].Annotation("RequestMapping")
	require.True(t, ok)
	assert.Equal(t, []string{"/api/v1"}, rm.Strings("value", "path"))
	assert.Equal(t, []string{"application/json", "text/plain"}, rm.Strings("produces"))

	m := f.Types[0].Methods[0]
	kl, ok := m.Annotation("KafkaListener")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, kl.Strings("topics"))

	mrm, _ := m.Annotation("RequestMapping")
	assert.Equal(t, []Value{{Text: "RequestMethod.POST"}}, mrm.Values("method"))
	dep, ok := m.Annotation("Deprecated")
	assert.True(t, ok)
	assert.Empty(t, dep.Elements)
}

func TestProject_ResolveCalls(t *testing.T) {
	p := loadSample(t)

	svc, ok := p.Type("com.greens.order.core.OrderService")
	require.True(t, ok)
	place := svc.MethodsNamed("placeOrder")[0]

	var resolved []string
	for _, c := range place.Calls {
		if target, m, ok := p.ResolveCall(svc, place, c); ok {
			resolved = append(resolved, target.Name+"."+m.Name)
		}
	}
	// paymentService.charge targets a type outside the tree and is dropped.
	assert.Equal(t, []string{
		"OrderService.validateCart",
		"OrderService.checkInventory",
		"OrderService.publishEvent",
		"OrderService.saveOrder",
	}, resolved)

	ctrl, ok := p.Type("com.greens.order.web.OrderController")
	require.True(t, ok)
	post := ctrl.MethodsNamed("placeOrder")[0]
	require.Len(t, post.Calls, 1)
	target, m, ok := p.ResolveCall(ctrl, post, post.Calls[0])
	require.True(t, ok)
	assert.Equal(t, "com.greens.order.core.OrderService", target.FQN())
	assert.Equal(t, "placeOrder(String):String", m.Signature())
}

func TestProject_ResolveType(t *testing.T) {
	svc := &File{Package: "com.a.web", Imports: []string{"com.a.core.Repo", "com.a.util.*"}}
	other := &File{Package: "com.a.core"}
	util := &File{Package: "com.a.util"}
	other.Types = []*Type{{Name: "Repo", Package: "com.a.core", File: other}, {Name: "Repo.Page", Package: "com.a.core", File: other}}
	util.Types = []*Type{{Name: "Clock", Package: "com.a.util", File: util}}
	svc.Types = []*Type{{Name: "Handler", Package: "com.a.web", File: svc}}
	p := NewProject("/src", []*File{svc, other, util})

	tests := []struct {
		ref  string
		want string
	}{
		{"Repo", "com.a.core.Repo"},
		{"List<Repo>", ""},
		{"Repo.Page", "com.a.core.Repo.Page"},
		{"Clock[]", "com.a.util.Clock"},
		{"Handler", "com.a.web.Handler"},
		{"com.a.util.Clock", "com.a.util.Clock"},
		{"Missing", ""},
	}
	for _, tt := range tests {
		got, ok := p.ResolveType(svc, tt.ref)
		if tt.want == "" {
			assert.False(t, ok, tt.ref)
			continue
		}
		require.True(t, ok, tt.ref)
		assert.Equal(t, tt.want, got.FQN(), tt.ref)
	}
}

func TestLoader_Caches(t *testing.T) {
	l := NewLoader(1, nil)
	a, err := l.Load(context.Background(), sampleRoot)
	require.NoError(t, err)
	b, err := l.Load(context.Background(), sampleRoot)
	require.NoError(t, err)
	assert.Same(t, a, b)
}
