// Package query filters customizations with expr-lang expressions such as
//
//	tokenType == "monster" && options.imageSize > 1
//
// Each customization is exposed as id, tokenType, parentId, name, path,
// options and images.
package query

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

// ErrEmptyExpression is returned by Compile for a blank expression.
var ErrEmptyExpression = errors.New("filter expression must not be empty")

// Filter is a compiled boolean expression.
type Filter struct {
	program    *vm.Program
	expression string
}

// Compile parses expression. Unknown variables evaluate to nil.
func Compile(expression string) (*Filter, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	program, err := expr.Compile(expression,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compiling filter %q: %w", expression, err)
	}
	return &Filter{program: program, expression: expression}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.expression
}

// Match evaluates the filter against env.
func (f *Filter) Match(env map[string]any) (bool, error) {
	out, err := expr.Run(f.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluating filter %q: %w", f.expression, err)
	}
	matched, _ := out.(bool)
	return matched, nil
}

// Env builds the evaluation environment for c. name and path are the
// resolved display name and full path.
func Env(c *types.Customization, name, path string) map[string]any {
	opts := c.Options()
	return map[string]any{
		"id":        c.ID(),
		"tokenType": string(c.Type()),
		"parentId":  c.ParentID(),
		"name":      name,
		"path":      path,
		"options":   map[string]any(opts),
		"images":    c.AlternativeImages(),
	}
}
