package normalize

import "testing"

func TestNormalizeSignature(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"placeOrder(java.lang.String):java.lang.String", "placeOrder(String):String"},
		{"find(java.util.List<com.x.Order>,int):java.util.Optional<com.x.Order>", "find(List<Order>,int):Optional<Order>"},
		{"entries():java.util.Map.Entry", "entries():Map.Entry"},
		{"run():void", "run():void"},
		{"handle(String):String", "handle(String):String"},
		{"wrap(com.a.Outer$Inner):void", "wrap(Outer$Inner):void"},
		{"m(a.b.C$x.Y):void", "m(C$Y):void"},
		{"m(com.x.Outer$inner.Type):void", "m(Outer$Type):void"},
	}
	for _, tt := range tests {
		if got := NormalizeSignature(tt.in); got != tt.want {
			t.Errorf("NormalizeSignature(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeSignature_Idempotent(t *testing.T) {
	inputs := []string{
		"placeOrder(java.lang.String):java.lang.String",
		"a(x.y.Foo.bar.Baz):z.Q",
		"m(java.util.Map<java.lang.String,java.util.List<com.a.b.C>>):void",
		"plain",
		"weird(...)::",
		"m(a.b.C$x.Y):void",
		"m(com.x.Outer$inner.Type):void",
		"m(a.B$c.D$e.F):a.b.G$h.I",
	}
	for _, in := range inputs {
		once := NormalizeSignature(in)
		if twice := NormalizeSignature(once); twice != once {
			t.Errorf("not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestCanonicalMethodID(t *testing.T) {
	verbose, ok := CanonicalMethodID("com.a.B", "m", "m(java.lang.String):java.lang.String")
	if !ok {
		t.Fatal("expected verbose id")
	}
	short, _ := CanonicalMethodID("com.a.B", "m", "m(String):String")
	if verbose != short {
		t.Errorf("verbosity changed id: %q vs %q", verbose, short)
	}
	if verbose != "com.a.B#m(String):String" {
		t.Errorf("unexpected id %q", verbose)
	}

	tests := []struct {
		class, method, sig string
		want               string
		ok                 bool
	}{
		{"com.a.B", "m", "", "com.a.B#m", true},
		{"com.a.B", "m", "other(int):void", "com.a.B#m", true},
		{"", "m", "m():void", "", false},
		{"com.a.B", "", "m():void", "", false},
	}
	for _, tt := range tests {
		got, ok := CanonicalMethodID(tt.class, tt.method, tt.sig)
		if got != tt.want || ok != tt.ok {
			t.Errorf("CanonicalMethodID(%q,%q,%q) = %q,%v want %q,%v", tt.class, tt.method, tt.sig, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCanonicalMethodRef(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"com.a.B#m(java.lang.String):java.lang.String", "com.a.B#m(String):String"},
		{"com.a.B#m", "com.a.B#m"},
		{"com.a.B.m", "com.a.B.m"},
		{"#m()", "#m()"},
	}
	for _, tt := range tests {
		if got := CanonicalMethodRef(tt.in); got != tt.want {
			t.Errorf("CanonicalMethodRef(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalEndpointID(t *testing.T) {
	got, ok := CanonicalEndpointID("post", "/api/orders/{id}")
	if !ok || got != "endpoint:POST /api/orders/{id}" {
		t.Errorf("got %q,%v", got, ok)
	}
	if _, ok := CanonicalEndpointID("", "/x"); ok {
		t.Error("expected failure for empty method")
	}
	if _, ok := CanonicalEndpointID("GET", ""); ok {
		t.Error("expected failure for empty path")
	}
}

func TestCanonicalTopicID(t *testing.T) {
	a := CanonicalTopicID("orders")
	b := CanonicalTopicID("topic:orders")
	if a != "topic:orders" || b != a {
		t.Errorf("got %q and %q", a, b)
	}
	if CanonicalTopicID(CanonicalTopicID("x")) != "topic:x" {
		t.Error("not idempotent")
	}
}

func TestCanonicalClassID(t *testing.T) {
	if got := CanonicalClassID("com.x.OrderService", "com.x.core"); got != "com.x.core.OrderService" {
		t.Errorf("got %q", got)
	}
	if got := CanonicalClassID("OrderService", ""); got != "OrderService" {
		t.Errorf("got %q", got)
	}
}

func TestDeriveModule(t *testing.T) {
	tests := map[string]string{
		"":                   "",
		"orders":             "orders",
		"com.greens":         "greens",
		"com.greens.order":   "order",
		"com.greens.order.x": "order",
	}
	for in, want := range tests {
		if got := DeriveModule(in); got != want {
			t.Errorf("DeriveModule(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeriveServiceName(t *testing.T) {
	n := NewServiceNamer(nil)
	tests := []struct {
		module, pkg, want string
	}{
		{"billing", "com.x.core", "billing"},
		{"", "com.x.core", "x"},
		{"", "com.greens.order.web", "order"},
		{"", "com.core", DefaultServiceName},
		{"", "", DefaultServiceName},
		{"", "com..payments.", "payments"},
	}
	for _, tt := range tests {
		if got := n.DeriveServiceName(tt.module, tt.pkg); got != tt.want {
			t.Errorf("DeriveServiceName(%q,%q) = %q, want %q", tt.module, tt.pkg, got, tt.want)
		}
	}

	custom := NewServiceNamer([]string{"com", "greens"})
	if got := custom.DeriveServiceName("", "com.greens"); got != DefaultServiceName {
		t.Errorf("custom stopwords: got %q", got)
	}
	if got := custom.DeriveServiceName("", "com.greens.order.core"); got != "core" {
		t.Errorf("custom stopwords: got %q", got)
	}
}
