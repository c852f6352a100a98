package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/formlab/formrules/internal/types"
)

/*
 * Logic expression engine.
 *
 * A closed boolean grammar over 1-based condition indices:
 *
 *   expr    := or
 *   or      := and ("OR" and)*
 *   and     := unary ("AND" unary)*
 *   unary   := "NOT" unary | primary
 *   primary := "(" or ")" | index
 *
 * Precedence (highest to lowest): parentheses, NOT, AND, OR. AND/OR are
 * left-associative. Keywords are case-insensitive. An empty expression is
 * shorthand for "1" when the rule has exactly one condition; any other
 * reference to a missing condition index is an InvalidExpression, never
 * auto-corrected.
 *
 * Why hand-rolled recursive descent: the grammar is deliberately not a
 * general expression language. Five token kinds and three precedence levels
 * parse in ~100 lines with exact, human-readable error positions for the
 * rule builder; an embedded expression interpreter would widen the authored
 * surface beyond the contract.
 */

type tokenKind int

const (
	tokIndex tokenKind = iota
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind  tokenKind
	index int // condition index for tokIndex
	pos   int // byte offset in the source expression
	text  string
}

// LogicExpr is a parsed, validated logic expression ready for evaluation.
type LogicExpr struct {
	root logicNode
}

type logicNode struct {
	op    tokenKind // tokAnd, tokOr, tokNot, or tokIndex
	index int
	left  *logicNode
	right *logicNode
}

// ParseLogicExpression parses and validates an expression against the rule's
// condition count. An empty expression is valid shorthand for "1" when
// conditionCount is exactly one.
func ParseLogicExpression(expr string, conditionCount int) (*LogicExpr, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		if conditionCount == 1 {
			trimmed = "1"
		} else {
			return nil, fmt.Errorf("%w: expression is empty but rule has %d conditions", types.ErrInvalidExpression, conditionCount)
		}
	}
	if len(trimmed) > types.MaxExpressionLength {
		return nil, types.ErrExpressionTooLong
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens, conditionCount: conditionCount, src: trimmed}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		t := p.tokens[p.pos]
		return nil, fmt.Errorf("%w: unexpected %q at position %d (missing operator?)", types.ErrInvalidExpression, t.text, t.pos+1)
	}
	return &LogicExpr{root: *root}, nil
}

// ValidateExpression checks an expression without keeping the parse tree.
// Returns a human-readable error for the rule author on failure.
func ValidateExpression(expr string, conditionCount int) error {
	_, err := ParseLogicExpression(expr, conditionCount)
	return err
}

// GenerateDefaultExpression builds "1 <joiner> 2 <joiner> ... <joiner> n".
// Used by the authoring surface whenever a rule gains or loses a condition so
// the stored expression stays valid for the current condition count. Any
// joiner other than OR falls back to AND.
func GenerateDefaultExpression(conditionCount int, joiner string) string {
	if conditionCount <= 0 {
		return ""
	}
	j := "AND"
	if strings.EqualFold(joiner, "OR") {
		j = "OR"
	}
	var b strings.Builder
	for i := 1; i <= conditionCount; i++ {
		if i > 1 {
			b.WriteByte(' ')
			b.WriteString(j)
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(i))
	}
	return b.String()
}

// Eval evaluates the parsed expression against per-condition results.
// Indices were bounds-checked at parse time against the rule's condition
// count; a shorter results slice (conditions removed after parsing) reads as
// false rather than panicking.
func (e *LogicExpr) Eval(results []bool) bool {
	return evalNode(&e.root, results)
}

// EvaluateExpression parses and evaluates in one call. Convenience for
// callers without a compiled rule set.
func EvaluateExpression(expr string, results []bool) (bool, error) {
	parsed, err := ParseLogicExpression(expr, len(results))
	if err != nil {
		return false, err
	}
	return parsed.Eval(results), nil
}

func evalNode(n *logicNode, results []bool) bool {
	switch n.op {
	case tokIndex:
		i := n.index - 1
		if i < 0 || i >= len(results) {
			return false
		}
		return results[i]
	case tokNot:
		return !evalNode(n.left, results)
	case tokAnd:
		return evalNode(n.left, results) && evalNode(n.right, results)
	case tokOr:
		return evalNode(n.left, results) || evalNode(n.right, results)
	default:
		return false
	}
}

// tokenize scans the expression into tokens. Unbalanced parentheses surface
// at parse time; unknown words and characters fail here.
func tokenize(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, pos: i, text: "("})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, pos: i, text: ")"})
			i++
		case c >= '0' && c <= '9':
			start := i
			for i < len(src) && src[i] >= '0' && src[i] <= '9' {
				i++
			}
			text := src[start:i]
			n, err := strconv.Atoi(text)
			if err != nil {
				return nil, fmt.Errorf("%w: bad condition index %q at position %d", types.ErrInvalidExpression, text, start+1)
			}
			tokens = append(tokens, token{kind: tokIndex, index: n, pos: start, text: text})
		case isWordChar(c):
			start := i
			for i < len(src) && isWordChar(src[i]) {
				i++
			}
			word := src[start:i]
			switch strings.ToUpper(word) {
			case "AND":
				tokens = append(tokens, token{kind: tokAnd, pos: start, text: word})
			case "OR":
				tokens = append(tokens, token{kind: tokOr, pos: start, text: word})
			case "NOT":
				tokens = append(tokens, token{kind: tokNot, pos: start, text: word})
			default:
				return nil, fmt.Errorf("%w: unknown keyword %q at position %d (expected AND, OR, or NOT)", types.ErrInvalidExpression, word, start+1)
			}
		default:
			return nil, fmt.Errorf("%w: unexpected character %q at position %d", types.ErrInvalidExpression, string(c), i+1)
		}
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: expression is empty", types.ErrInvalidExpression)
	}
	return tokens, nil
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

type parser struct {
	tokens         []token
	pos            int
	conditionCount int
	src            string
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) parseOr() (*logicNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOr {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &logicNode{op: tokOr, left: left, right: right}
	}
}

func (p *parser) parseAnd() (*logicNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokAnd {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &logicNode{op: tokAnd, left: left, right: right}
	}
}

func (p *parser) parseUnary() (*logicNode, error) {
	t, ok := p.peek()
	if ok && t.kind == tokNot {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &logicNode{op: tokNot, left: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (*logicNode, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("%w: expression ends where a condition index was expected", types.ErrInvalidExpression)
	}
	switch t.kind {
	case tokLParen:
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return nil, fmt.Errorf("%w: unbalanced parentheses, missing ')' for '(' at position %d", types.ErrInvalidExpression, t.pos+1)
		}
		p.pos++
		return inner, nil
	case tokIndex:
		p.pos++
		if t.index < 1 || t.index > p.conditionCount {
			return nil, fmt.Errorf("%w: condition reference %d out of range [1, %d]", types.ErrInvalidExpression, t.index, p.conditionCount)
		}
		return &logicNode{op: tokIndex, index: t.index}, nil
	case tokRParen:
		return nil, fmt.Errorf("%w: unbalanced parentheses, unexpected ')' at position %d", types.ErrInvalidExpression, t.pos+1)
	default:
		return nil, fmt.Errorf("%w: unexpected %q at position %d, expected a condition index", types.ErrInvalidExpression, t.text, t.pos+1)
	}
}
