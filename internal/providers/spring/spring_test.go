package spring

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/flowgraph/internal/placeholder"
	"github.com/efebarandurmaz/flowgraph/internal/providers/javasrc"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newProvider() *Provider {
	return New(javasrc.NewLoader(2, quiet), quiet)
}

func TestContributeFacts_Sample(t *testing.T) {
	fs, err := newProvider().ContributeFacts(context.Background(), "../testdata/greens-order", nil)
	require.NoError(t, err)

	require.Len(t, fs.Endpoints, 2)
	assert.Equal(t, "POST", fs.Endpoints[0].HTTPMethod)
	assert.Equal(t, "/api/orders/{id}", fs.Endpoints[0].Path)
	assert.Equal(t, "GET", fs.Endpoints[1].HTTPMethod)

	require.Len(t, fs.Handlers, 2)
	h := fs.Handlers[0]
	assert.Equal(t, "endpoint:POST /api/orders/{id}", h.Endpoint.ID)
	assert.Equal(t, "com.greens.order.web.OrderController#placeOrder(String):String", h.MethodRef)
	assert.Equal(t, Name, h.Origin.Provider)
}

func TestContributeFacts_MappingVariants(t *testing.T) {
	root := t.TempDir()
	src := `package com.acme.api;

@RestController
@RequestMapping(path = "${api.base}", produces = "application/json")
public class CatalogController {

  @RequestMapping("items")
  public String any() { return ""; }

  @RequestMapping(value = "/bulk", method = {RequestMethod.PUT, RequestMethod.PATCH}, consumes = {"application/json", "text/csv"})
  public void bulk(String body) {}

  @DeleteMapping
  public void clear() {}

  @PostMapping(value = "/import", produces = "text/plain")
  public void importAll() {}

  public void helper() {}
}
`
	path := filepath.Join(root, "CatalogController.java")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	props := placeholder.FromMap(map[string]string{"api.base": "/catalog"}, quiet)
	fs, err := newProvider().ContributeFacts(context.Background(), root, props)
	require.NoError(t, err)

	type ep struct{ method, path string }
	var got []ep
	for _, e := range fs.Endpoints {
		got = append(got, ep{e.HTTPMethod, e.Path})
	}
	assert.Equal(t, []ep{
		{"REQUEST", "/catalog/items"},
		{"PUT", "/catalog/bulk"},
		{"PATCH", "/catalog/bulk"},
		{"DELETE", "/catalog"},
		{"POST", "/catalog/import"},
	}, got)

	assert.Equal(t, []string{"application/json"}, fs.Endpoints[0].Produces, "falls back to class produces")
	assert.Equal(t, []string{"application/json", "text/csv"}, fs.Endpoints[1].Consumes)
	assert.Equal(t, []string{"text/plain"}, fs.Endpoints[4].Produces, "method produces wins")
	assert.Len(t, fs.Handlers, 5)
}

func TestJoinPath(t *testing.T) {
	tests := []struct{ base, path, want string }{
		{"", "", "/"},
		{"", "/x", "/x"},
		{"/api", "", "/api"},
		{"/api", "x", "/api/x"},
		{"/api/", "x", "/api/x"},
		{"/api", "/x", "/api/x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, joinPath(tt.base, tt.path), "%q + %q", tt.base, tt.path)
	}
}
