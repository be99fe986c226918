package query

import (
	"fmt"
	"regexp"
	"strings"
)

// SetLoader resolves an external set reference (@file or @-) to a set of
// strings (spec §4.5: "Set membership with @file pre-loads the set...;
// @- reads stdin before opening sources"). Supplied by the caller so the
// parser itself performs no I/O.
type SetLoader interface {
	LoadFile(path string) (map[string]struct{}, error)
	LoadStdin() (map[string]struct{}, error)
}

// Parser parses the query grammar (spec §4.5) into an Expr tree.
type Parser struct {
	lex  *Lexer
	tok  Token
	sets SetLoader
}

// Parse compiles a query string. sets may be nil if the query contains no
// @file/@- set references (using one when needed is reported as a
// QueryParseError-equivalent error).
func Parse(query string, sets SetLoader) (Expr, error) {
	p := &Parser{lex: NewLexer(query), sets: sets}
	if err := p.advance(); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != TokEOF {
		return nil, fmt.Errorf("query: unexpected trailing token %q at offset %d", p.tok.Text, p.tok.Pos)
	}
	return expr, nil
}

func (p *Parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *Parser) parseExpression() (Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == TokOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == TokAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}
	return left, nil
}

// parseUnary handles `not|! unary`, plus the two-word negated-operator
// spellings ("not eq", "not exists(...)", ...) which must produce a
// dedicated negated node rather than a generic Not wrapper, since the
// false-on-absent rule is encoded per-operator, not via boolean negation
// (spec §4.5: "Without ?, all predicates are implicitly false on absent
// fields (including the negated forms)").
func (p *Parser) parseUnary() (Expr, error) {
	if p.tok.Kind == TokNot {
		if neg, ok, err := p.tryParseNegatedPredicate(); err != nil {
			return nil, err
		} else if ok {
			return neg, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not{Inner: inner}, nil
	}
	return p.parsePrimary()
}

// tryParseNegatedPredicate looks ahead past "not" for exists(...), or
// falls through to the field-led predicate path where the field parser
// itself consumes a leading "not" when followed by a recognized word
// operator. It returns ok=false (without consuming input) when "not" is
// plain boolean negation instead.
func (p *Parser) tryParseNegatedPredicate() (Expr, bool, error) {
	save := *p.lex
	savedTok := p.tok
	if err := p.advance(); err != nil {
		return nil, false, err
	}
	if p.tok.Kind == TokIdent && isExistsWord(p.tok.Text) {
		if err := p.advance(); err != nil {
			return nil, false, err
		}
		if p.tok.Kind != TokLParen {
			return nil, false, fmt.Errorf("query: expected '(' after exists at offset %d", p.tok.Pos)
		}
		if err := p.advance(); err != nil {
			return nil, false, err
		}
		field, err := p.parseFieldRef()
		if err != nil {
			return nil, false, err
		}
		if p.tok.Kind != TokRParen {
			return nil, false, fmt.Errorf("query: expected ')' after exists field at offset %d", p.tok.Pos)
		}
		if err := p.advance(); err != nil {
			return nil, false, err
		}
		return Exists{Field: field, Negate: true}, true, nil
	}
	// Not an exists(...) form: restore lexer/token state so the caller
	// falls back to treating "not" as ordinary unary negation, or the
	// field-predicate path can still recognize "not eq"/"not like"/etc.
	*p.lex = save
	p.tok = savedTok
	return nil, false, nil
}

func isExistsWord(s string) bool {
	l := strings.ToLower(s)
	return l == "exists" || l == "exist"
}

func (p *Parser) parsePrimary() (Expr, error) {
	if p.tok.Kind == TokLParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.tok.Kind != TokRParen {
			return nil, fmt.Errorf("query: expected ')' at offset %d", p.tok.Pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil
	}
	if p.tok.Kind == TokIdent && isExistsWord(p.tok.Text) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != TokLParen {
			return nil, fmt.Errorf("query: expected '(' after exists at offset %d", p.tok.Pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		field, err := p.parseFieldRef()
		if err != nil {
			return nil, err
		}
		if p.tok.Kind != TokRParen {
			return nil, fmt.Errorf("query: expected ')' after exists field at offset %d", p.tok.Pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return Exists{Field: field}, nil
	}
	return p.parsePredicate()
}

func (p *Parser) parseFieldRef() (FieldRef, error) {
	ref := FieldRef{}
	literal := false
	if p.tok.Kind == TokDot {
		literal = true
		if err := p.advance(); err != nil {
			return ref, err
		}
	}
	var name string
	switch p.tok.Kind {
	case TokString:
		name = p.tok.Text
		literal = true
		if err := p.advance(); err != nil {
			return ref, err
		}
	case TokIdent:
		name = p.tok.Text
		if err := p.advance(); err != nil {
			return ref, err
		}
		for p.tok.Kind == TokDot {
			if err := p.advance(); err != nil {
				return ref, err
			}
			if p.tok.Kind != TokIdent {
				return ref, fmt.Errorf("query: expected path segment at offset %d", p.tok.Pos)
			}
			name += "." + p.tok.Text
			if err := p.advance(); err != nil {
				return ref, err
			}
		}
	default:
		return ref, fmt.Errorf("query: expected field name at offset %d", p.tok.Pos)
	}
	if !literal {
		switch strings.ToLower(name) {
		case "level", "message", "caller", "logger", "time":
			ref.Predefined = strings.ToLower(name)
		default:
			ref.Path = name
		}
	} else {
		ref.Path = name
	}
	if p.tok.Kind == TokQuestion {
		ref.IncludeAbsent = true
		if err := p.advance(); err != nil {
			return ref, err
		}
	}
	return ref, nil
}

func (p *Parser) parsePredicate() (Expr, error) {
	field, err := p.parseFieldRef()
	if err != nil {
		return nil, err
	}

	negatedByWord := false
	if p.tok.Kind == TokNot {
		negatedByWord = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	if p.tok.Kind == TokOp {
		return p.parseSymbolicOp(field, p.tok.Text)
	}
	if p.tok.Kind == TokIdent {
		word := strings.ToLower(p.tok.Text)
		switch word {
		case "eq":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return p.finishCompare(field, pick(negatedByWord, OpNe, OpEq))
		case "ne":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return p.finishCompare(field, OpNe)
		case "lt":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return p.finishCompare(field, OpLt)
		case "le":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return p.finishCompare(field, OpLe)
		case "gt":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return p.finishCompare(field, OpGt)
		case "ge":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return p.finishCompare(field, OpGe)
		case "contain", "contains":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return p.finishCompare(field, pick(negatedByWord, OpNotContains, OpContains))
		case "match", "matches":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return p.finishRegex(field, negatedByWord)
		case "like":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return p.finishLike(field, negatedByWord)
		case "in":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return p.finishInSet(field, negatedByWord)
		}
	}
	if negatedByWord {
		return nil, fmt.Errorf("query: expected operator after 'not' at offset %d", p.tok.Pos)
	}
	return nil, fmt.Errorf("query: expected operator at offset %d, got %q", p.tok.Pos, p.tok.Text)
}

func pick(cond bool, ifTrue, ifFalse CompareOp) CompareOp {
	if cond {
		return ifTrue
	}
	return ifFalse
}

func (p *Parser) parseSymbolicOp(field FieldRef, op string) (Expr, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	switch op {
	case "=":
		return p.finishCompare(field, OpEq)
	case "!=":
		return p.finishCompare(field, OpNe)
	case "<":
		return p.finishCompare(field, OpLt)
	case "<=":
		return p.finishCompare(field, OpLe)
	case ">":
		return p.finishCompare(field, OpGt)
	case ">=":
		return p.finishCompare(field, OpGe)
	case "~=":
		return p.finishCompare(field, OpContains)
	case "!~=":
		return p.finishCompare(field, OpNotContains)
	case "~~=":
		return p.finishRegexLiteral(field, false)
	case "!~~=":
		return p.finishRegexLiteral(field, true)
	default:
		return nil, fmt.Errorf("query: unknown operator %q", op)
	}
}

func (p *Parser) parseLiteral() (Literal, error) {
	switch p.tok.Kind {
	case TokString:
		lit := Literal{Kind: LiteralString, Str: p.tok.Text}
		return lit, p.advance()
	case TokNumber:
		lit := Literal{Kind: LiteralNumber, Num: p.tok.Num, Str: p.tok.Text}
		return lit, p.advance()
	case TokNull:
		return Literal{Kind: LiteralNull}, p.advance()
	case TokIdent:
		// A bare word rhs (e.g. `level = warning`) is treated as a string
		// literal, matching how level names and other bare comparisons
		// read naturally without quoting.
		lit := Literal{Kind: LiteralString, Str: p.tok.Text}
		return lit, p.advance()
	default:
		return Literal{}, fmt.Errorf("query: expected literal at offset %d", p.tok.Pos)
	}
}

func (p *Parser) finishCompare(field FieldRef, op CompareOp) (Expr, error) {
	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return Compare{Field: field, Op: op, Literal: lit}, nil
}

func (p *Parser) finishRegex(field FieldRef, negate bool) (Expr, error) {
	return p.finishRegexLiteral(field, negate)
}

func (p *Parser) finishRegexLiteral(field FieldRef, negate bool) (Expr, error) {
	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(lit.Str)
	if err != nil {
		return nil, fmt.Errorf("query: invalid regex %q: %w", lit.Str, err)
	}
	op := OpMatches
	if negate {
		op = OpNotMatches
	}
	return Compare{Field: field, Op: op, Literal: lit, Regex: re}, nil
}

func (p *Parser) finishLike(field FieldRef, negate bool) (Expr, error) {
	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(wildcardToRegex(lit.Str))
	if err != nil {
		return nil, fmt.Errorf("query: invalid wildcard pattern %q: %w", lit.Str, err)
	}
	return Like{Field: field, Pattern: re, Negate: negate}, nil
}

// wildcardToRegex translates a `like` pattern ('*' any run, '?' one
// char) into an anchored regexp (spec §4.5).
func wildcardToRegex(pattern string) string {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return b.String()
}

func (p *Parser) finishInSet(field FieldRef, negate bool) (Expr, error) {
	set := make(map[string]struct{})
	switch {
	case p.tok.Kind == TokAt:
		// '@-' (stdin) is special-cased before the usual lexer advance,
		// since '-' alone does not lex as a valid token on its own (spec
		// §4.5: "in @file, in @-").
		if p.lex.peekByte() == '-' {
			p.lex.pos++ // consume '-' directly
			if p.sets == nil {
				return nil, fmt.Errorf("query: @- set reference requires a SetLoader")
			}
			loaded, err := p.sets.LoadStdin()
			if err != nil {
				return nil, fmt.Errorf("query: loading @- set: %w", err)
			}
			set = loaded
			if err := p.advance(); err != nil {
				return nil, err
			}
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != TokIdent && p.tok.Kind != TokString {
			return nil, fmt.Errorf("query: expected file path after @ at offset %d", p.tok.Pos)
		}
		path := p.tok.Text
		if p.sets == nil {
			return nil, fmt.Errorf("query: @%s set reference requires a SetLoader", path)
		}
		loaded, err := p.sets.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("query: loading @%s: %w", path, err)
		}
		set = loaded
		if err := p.advance(); err != nil {
			return nil, err
		}
	case p.tok.Kind == TokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		for p.tok.Kind != TokRParen {
			lit, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			set[literalAsString(lit)] = struct{}{}
			if p.tok.Kind == TokComma {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		if p.tok.Kind != TokRParen {
			return nil, fmt.Errorf("query: expected ')' to close set at offset %d", p.tok.Pos)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("query: expected '(' or '@' after 'in' at offset %d", p.tok.Pos)
	}
	return InSet{Field: field, Set: set, Negate: negate}, nil
}

func literalAsString(lit Literal) string {
	if lit.Kind == LiteralNumber {
		return lit.Str
	}
	return lit.Str
}
