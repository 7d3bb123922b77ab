package parser

import (
	"strconv"
	"strings"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/ast"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

// Parse parses a FHIRPath expression into its AST.
func Parse(input string) (ast.Expression, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &Error{Pos: 0, Message: "empty expression"}
	}
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, &Error{Pos: p.peek().start, Message: "unexpected input after expression"}
	}
	return expr, nil
}

// MustParse is like Parse but panics on error.
func MustParse(input string) ast.Expression {
	expr, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return expr
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, msg string) error {
	return &Error{Pos: tok.start, Message: msg}
}

// expectSym consumes a symbol token or fails.
func (p *parser) expectSym(sym string) (token, error) {
	tok := p.peek()
	if tok.kind != tokSym || tok.text != sym {
		return tok, p.errorf(tok, "expected '"+sym+"'")
	}
	return p.advance(), nil
}

// Binding powers follow the grammar's rule order: a higher power binds
// tighter. Postfix invocation and indexing are handled separately and bind
// tightest of all.
const (
	bpImplies        = 10
	bpOrXor          = 20
	bpAnd            = 30
	bpMembership     = 40
	bpEquality       = 50
	bpInequality     = 60
	bpUnion          = 70
	bpType           = 80
	bpAdditive       = 90
	bpMultiplicative = 100
)

// binaryPower resolves the operator at the cursor, if any.
func (p *parser) binaryPower() (string, int, bool) {
	tok := p.peek()
	switch tok.kind {
	case tokSym:
		switch tok.text {
		case "|":
			return "|", bpUnion, true
		case "=", "~", "!=", "!~":
			return tok.text, bpEquality, true
		case "<", "<=", ">", ">=":
			return tok.text, bpInequality, true
		case "+", "-", "&":
			return tok.text, bpAdditive, true
		case "*", "/":
			return tok.text, bpMultiplicative, true
		}
	case tokIdent:
		switch tok.text {
		case "implies":
			return "implies", bpImplies, true
		case "or", "xor":
			return tok.text, bpOrXor, true
		case "and":
			return "and", bpAnd, true
		case "in", "contains":
			return tok.text, bpMembership, true
		case "is", "as":
			return tok.text, bpType, true
		case "div", "mod":
			return tok.text, bpMultiplicative, true
		}
	}
	return "", 0, false
}

// parseExpression implements precedence climbing over binary operators.
func (p *parser) parseExpression(minBP int) (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		op, bp, isOp := p.binaryPower()
		if !isOp || bp < minBP {
			return left, nil
		}
		p.advance()

		if op == "is" || op == "as" {
			spec, err := p.parseTypeSpecifier()
			if err != nil {
				return nil, err
			}
			left = &ast.TypeExpression{
				Base:    ast.At(left.Span().Start, p.prevEnd()),
				Op:      op,
				Operand: left,
				Type:    spec,
			}
			continue
		}

		right, err := p.parseExpression(bp + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpression{
			Base:  ast.At(left.Span().Start, right.Span().End),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) prevEnd() int {
	if p.pos == 0 {
		return 0
	}
	return p.tokens[p.pos-1].end
}

// parseUnary handles the polarity operators.
func (p *parser) parseUnary() (ast.Expression, error) {
	tok := p.peek()
	if tok.kind == tokSym && (tok.text == "+" || tok.text == "-") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{
			Base:    ast.At(tok.start, operand.Span().End),
			Op:      tok.text,
			Operand: operand,
		}, nil
	}
	primary, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parsePostfix(primary)
}

// parsePostfix folds member access, function invocation and indexing.
func (p *parser) parsePostfix(left ast.Expression) (ast.Expression, error) {
	for {
		tok := p.peek()
		if tok.kind != tokSym {
			return left, nil
		}
		switch tok.text {
		case ".":
			p.advance()
			nameTok := p.peek()
			if nameTok.kind != tokIdent {
				return nil, p.errorf(nameTok, "expected member name after '.'")
			}
			p.advance()
			if p.peek().kind == tokSym && p.peek().text == "(" {
				call, err := p.parseCall(left, nameTok)
				if err != nil {
					return nil, err
				}
				left = call
			} else {
				left = &ast.MemberExpression{
					Base:   ast.At(left.Span().Start, nameTok.end),
					Target: left,
					Name:   nameTok.text,
				}
			}
		case "[":
			p.advance()
			index, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			closing, err := p.expectSym("]")
			if err != nil {
				return nil, err
			}
			left = &ast.IndexerExpression{
				Base:   ast.At(left.Span().Start, closing.end),
				Target: left,
				Index:  index,
			}
		default:
			return left, nil
		}
	}
}

// parseCall parses the argument list of a function invocation.
func (p *parser) parseCall(target ast.Expression, nameTok token) (ast.Expression, error) {
	if _, err := p.expectSym("("); err != nil {
		return nil, err
	}

	var args []ast.Expression
	if !(p.peek().kind == tokSym && p.peek().text == ")") {
		for {
			arg, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind == tokSym && p.peek().text == "," {
				p.advance()
				continue
			}
			break
		}
	}
	closing, err := p.expectSym(")")
	if err != nil {
		return nil, err
	}

	start := nameTok.start
	if target != nil {
		start = target.Span().Start
	}
	return &ast.FunctionCall{
		Base:   ast.At(start, closing.end),
		Target: target,
		Name:   nameTok.text,
		Args:   args,
	}, nil
}

// parseTypeSpecifier parses a possibly namespace-qualified type name.
func (p *parser) parseTypeSpecifier() (ast.TypeSpecifier, error) {
	tok := p.peek()
	if tok.kind != tokIdent {
		return ast.TypeSpecifier{}, p.errorf(tok, "expected type name")
	}
	p.advance()

	if p.peek().kind == tokSym && p.peek().text == "." {
		p.advance()
		nameTok := p.peek()
		if nameTok.kind != tokIdent {
			return ast.TypeSpecifier{}, p.errorf(nameTok, "expected type name after namespace")
		}
		p.advance()
		return ast.TypeSpecifier{Qualifier: tok.text, Name: nameTok.text}, nil
	}
	return ast.TypeSpecifier{Name: tok.text}, nil
}

// operatorKeywords never follow a number as a bare quantity unit.
var operatorKeywords = map[string]bool{
	"and": true, "or": true, "xor": true, "implies": true,
	"in": true, "contains": true, "is": true, "as": true,
	"div": true, "mod": true, "true": true, "false": true,
}

// parsePrimary parses literals, identifiers, variables and parentheses.
func (p *parser) parsePrimary() (ast.Expression, error) {
	tok := p.peek()
	switch tok.kind {
	case tokNumber:
		p.advance()
		// A unit directly after a number forms a quantity literal.
		next := p.peek()
		if next.kind == tokString {
			p.advance()
			if _, err := types.NewQuantity(tok.text + " '" + next.text + "'"); err != nil {
				return nil, p.errorf(tok, "invalid quantity literal")
			}
			return &ast.QuantityLiteral{Base: ast.At(tok.start, next.end), Value: tok.text, Unit: next.text}, nil
		}
		if next.kind == tokIdent && !operatorKeywords[next.text] {
			p.advance()
			return &ast.QuantityLiteral{Base: ast.At(tok.start, next.end), Value: tok.text, Unit: next.text}, nil
		}
		if strings.Contains(tok.text, ".") {
			return &ast.DecimalLiteral{Base: ast.At(tok.start, tok.end), Value: tok.text}, nil
		}
		if n, err := strconv.ParseInt(tok.text, 10, 64); err == nil {
			return &ast.IntegerLiteral{Base: ast.At(tok.start, tok.end), Value: n}, nil
		}
		return &ast.DecimalLiteral{Base: ast.At(tok.start, tok.end), Value: tok.text}, nil

	case tokString:
		p.advance()
		return &ast.StringLiteral{Base: ast.At(tok.start, tok.end), Value: tok.text}, nil

	case tokDate:
		p.advance()
		if _, err := types.NewDate(tok.text); err != nil {
			return nil, p.errorf(tok, "invalid date literal")
		}
		return &ast.DateLiteral{Base: ast.At(tok.start, tok.end), Value: tok.text}, nil

	case tokDateTime:
		p.advance()
		if _, err := types.NewDateTime(tok.text); err != nil {
			return nil, p.errorf(tok, "invalid datetime literal")
		}
		return &ast.DateTimeLiteral{Base: ast.At(tok.start, tok.end), Value: tok.text}, nil

	case tokTime:
		p.advance()
		if _, err := types.NewTime(tok.text); err != nil {
			return nil, p.errorf(tok, "invalid time literal")
		}
		return &ast.TimeLiteral{Base: ast.At(tok.start, tok.end), Value: tok.text}, nil

	case tokExtConst:
		p.advance()
		return &ast.ExternalConstant{Base: ast.At(tok.start, tok.end), Name: tok.text}, nil

	case tokDollar:
		p.advance()
		base := ast.At(tok.start, tok.end)
		switch tok.text {
		case "this":
			return &ast.ThisRef{Base: base}, nil
		case "index":
			return &ast.IndexRef{Base: base}, nil
		default:
			return &ast.TotalRef{Base: base}, nil
		}

	case tokIdent:
		p.advance()
		switch tok.text {
		case "true":
			return &ast.BooleanLiteral{Base: ast.At(tok.start, tok.end), Value: true}, nil
		case "false":
			return &ast.BooleanLiteral{Base: ast.At(tok.start, tok.end), Value: false}, nil
		}
		if p.peek().kind == tokSym && p.peek().text == "(" {
			return p.parseCall(nil, tok)
		}
		return &ast.Identifier{Base: ast.At(tok.start, tok.end), Name: tok.text}, nil

	case tokSym:
		switch tok.text {
		case "(":
			p.advance()
			expr, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.expectSym(")"); err != nil {
				return nil, err
			}
			return expr, nil
		case "{":
			p.advance()
			closing, err := p.expectSym("}")
			if err != nil {
				return nil, err
			}
			return &ast.NullLiteral{Base: ast.At(tok.start, closing.end)}, nil
		}
	}
	return nil, p.errorf(tok, "unexpected token")
}
