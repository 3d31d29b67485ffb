package semantic

import (
	"strconv"
	"strings"

	"github.com/DeusData/codebase-execwalk/internal/syntax"
)

// maxConstantDepth bounds const-to-const indirection so self-referential
// constants fail instead of recursing forever.
const maxConstantDepth = 32

// Constant implements Model. Values are int64, float64, string, rune, bool
// or nil (the null literal).
func (x *Index) Constant(n *syntax.Node) (any, bool) {
	return x.constant(n, 0)
}

func (x *Index) constant(n *syntax.Node, depth int) (any, bool) {
	if n == nil || depth > maxConstantDepth {
		return nil, false
	}
	switch n.Kind() {
	case syntax.KindLiteral:
		return literal(n)
	case syntax.KindParenthesized:
		return x.constant(n.Field(syntax.RoleExpression), depth+1)
	case syntax.KindPrefixUnary:
		v, ok := x.constant(n.Field(syntax.RoleExpression), depth+1)
		if !ok {
			return nil, false
		}
		return unary(n.Op(), v)
	case syntax.KindBinary:
		l, ok := x.constant(n.Field(syntax.RoleLeft), depth+1)
		if !ok {
			return nil, false
		}
		r, ok := x.constant(n.Field(syntax.RoleRight), depth+1)
		if !ok {
			return nil, false
		}
		return binary(n.Op(), l, r)
	case syntax.KindConditional:
		c, ok := x.constant(n.Field(syntax.RoleCondition), depth+1)
		b, isBool := c.(bool)
		if !ok || !isBool {
			return nil, false
		}
		if b {
			return x.constant(n.Field(syntax.RoleConsequence), depth+1)
		}
		return x.constant(n.Field(syntax.RoleAlternative), depth+1)
	case syntax.KindInvocation:
		if !syntax.IsNameof(n) {
			return nil, false
		}
		args := syntax.Arguments(n)
		if len(args) != 1 {
			return nil, false
		}
		operand := syntax.ArgumentExpression(args[0])
		switch operand.Kind() {
		case syntax.KindMemberAccess:
			return simpleText(operand.Field(syntax.RoleName)), true
		case syntax.KindIdentifier, syntax.KindGenericName:
			return simpleText(operand), true
		}
		return nil, false
	case syntax.KindIdentifier, syntax.KindMemberAccess:
		s := x.Symbol(n)
		if s == nil || s.Kind != SymbolField || !s.Const || len(s.decls) == 0 {
			return nil, false
		}
		return x.constant(s.decls[0].Field(syntax.RoleValue), depth+1)
	}
	return nil, false
}

func literal(n *syntax.Node) (any, bool) {
	text := n.Text()
	raw := n.RawKind()
	switch {
	case raw == "null_literal":
		return nil, true
	case raw == "boolean_literal" || raw == "true" || raw == "false":
		return text == "true", true
	case raw == "character_literal":
		r, _, _, err := strconv.UnquoteChar(strings.Trim(text, "'"), '\'')
		if err != nil {
			return nil, false
		}
		return r, true
	case strings.Contains(raw, "string") || raw == "text_block":
		return stringLiteral(text)
	case strings.Contains(raw, "floating") || raw == "real_literal":
		f, err := strconv.ParseFloat(strings.TrimRight(strings.ReplaceAll(text, "_", ""), "fFdDmM"), 64)
		if err != nil {
			return nil, false
		}
		return f, true
	case strings.Contains(raw, "integer"):
		clean := strings.TrimRight(strings.ReplaceAll(text, "_", ""), "uUlL")
		if raw == "octal_integer_literal" && len(clean) > 1 {
			clean = "0o" + clean[1:]
		}
		i, err := strconv.ParseInt(clean, 0, 64)
		if err != nil {
			return nil, false
		}
		return i, true
	}
	return nil, false
}

func stringLiteral(text string) (any, bool) {
	switch {
	case strings.HasPrefix(text, `"""`):
		return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(text, `"""`), `"""`)), true
	case strings.HasPrefix(text, `@"`):
		return strings.ReplaceAll(text[2:len(text)-1], `""`, `"`), true
	case strings.HasPrefix(text, `$`):
		// interpolated strings are not constant
		return nil, false
	}
	s, err := strconv.Unquote(text)
	if err != nil {
		return strings.Trim(text, `"`), true
	}
	return s, true
}

func unary(op string, v any) (any, bool) {
	switch op {
	case "-":
		switch v := v.(type) {
		case int64:
			return -v, true
		case float64:
			return -v, true
		}
	case "+":
		switch v.(type) {
		case int64, float64:
			return v, true
		}
	case "!":
		if b, ok := v.(bool); ok {
			return !b, true
		}
	case "~":
		if i, ok := v.(int64); ok {
			return ^i, true
		}
	}
	return nil, false
}

func binary(op string, l, r any) (any, bool) {
	switch l := l.(type) {
	case int64:
		switch r := r.(type) {
		case int64:
			return intBinary(op, l, r)
		case float64:
			return floatBinary(op, float64(l), r)
		}
	case float64:
		switch r := r.(type) {
		case int64:
			return floatBinary(op, l, float64(r))
		case float64:
			return floatBinary(op, l, r)
		}
	case string:
		if op == "+" {
			return l + toString(r), true
		}
		if rs, ok := r.(string); ok {
			switch op {
			case "==":
				return l == rs, true
			case "!=":
				return l != rs, true
			}
		}
	case bool:
		rb, ok := r.(bool)
		if !ok {
			return nil, false
		}
		switch op {
		case "&&", "&":
			return l && rb, true
		case "||", "|":
			return l || rb, true
		case "^", "!=":
			return l != rb, true
		case "==":
			return l == rb, true
		}
	}
	if rs, ok := r.(string); ok && op == "+" {
		return toString(l) + rs, true
	}
	return nil, false
}

func intBinary(op string, l, r int64) (any, bool) {
	switch op {
	case "+":
		return l + r, true
	case "-":
		return l - r, true
	case "*":
		return l * r, true
	case "/":
		if r == 0 {
			return nil, false
		}
		return l / r, true
	case "%":
		if r == 0 {
			return nil, false
		}
		return l % r, true
	case "&":
		return l & r, true
	case "|":
		return l | r, true
	case "^":
		return l ^ r, true
	case "<<":
		if r < 0 || r > 63 {
			return nil, false
		}
		return l << r, true
	case ">>":
		if r < 0 || r > 63 {
			return nil, false
		}
		return l >> r, true
	case "==":
		return l == r, true
	case "!=":
		return l != r, true
	case "<":
		return l < r, true
	case "<=":
		return l <= r, true
	case ">":
		return l > r, true
	case ">=":
		return l >= r, true
	}
	return nil, false
}

func floatBinary(op string, l, r float64) (any, bool) {
	switch op {
	case "+":
		return l + r, true
	case "-":
		return l - r, true
	case "*":
		return l * r, true
	case "/":
		return l / r, true
	case "==":
		return l == r, true
	case "!=":
		return l != r, true
	case "<":
		return l < r, true
	case "<=":
		return l <= r, true
	case ">":
		return l > r, true
	case ">=":
		return l >= r, true
	}
	return nil, false
}

func toString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case rune:
		return string(v)
	case nil:
		return ""
	}
	return ""
}
