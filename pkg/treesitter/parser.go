// Package treesitter keeps a registry of tree-sitter grammars and parses
// source with them.
package treesitter

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parse parses source with the named grammar. The caller must Close the
// returned tree.
func Parse(ctx context.Context, language string, source []byte) (*sitter.Tree, error) {
	langFn, ok := GetLanguage(language)
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s (not registered)", language)
	}

	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(langFn())

	tree, err := p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", language, err)
	}
	return tree, nil
}
