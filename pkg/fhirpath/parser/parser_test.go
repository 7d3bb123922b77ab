package parser

import (
	"testing"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath/ast"
)

func parse(t *testing.T, input string) ast.Expression {
	t.Helper()
	expr, err := Parse(input)
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	return expr
}

func TestLiterals(t *testing.T) {
	if _, ok := parse(t, "{}").(*ast.NullLiteral); !ok {
		t.Error("expected null literal")
	}
	if lit, ok := parse(t, "true").(*ast.BooleanLiteral); !ok || !lit.Value {
		t.Error("expected boolean literal true")
	}
	if lit, ok := parse(t, "42").(*ast.IntegerLiteral); !ok || lit.Value != 42 {
		t.Error("expected integer literal 42")
	}
	if lit, ok := parse(t, "3.14").(*ast.DecimalLiteral); !ok || lit.Value != "3.14" {
		t.Error("expected decimal literal 3.14")
	}
	if lit, ok := parse(t, "'hi\\nthere'").(*ast.StringLiteral); !ok || lit.Value != "hi\nthere" {
		t.Error("expected escaped string literal")
	}
	if lit, ok := parse(t, "@2023-06-15").(*ast.DateLiteral); !ok || lit.Value != "2023-06-15" {
		t.Error("expected date literal")
	}
	if lit, ok := parse(t, "@2023-06-15T10:30:00Z").(*ast.DateTimeLiteral); !ok || lit.Value != "2023-06-15T10:30:00Z" {
		t.Error("expected datetime literal")
	}
	if lit, ok := parse(t, "@T14:30").(*ast.TimeLiteral); !ok || lit.Value != "14:30" {
		t.Error("expected time literal")
	}
}

func TestQuantityLiterals(t *testing.T) {
	q, ok := parse(t, "4 'g'").(*ast.QuantityLiteral)
	if !ok || q.Value != "4" || q.Unit != "g" {
		t.Errorf("expected 4 'g', got %#v", q)
	}

	q, ok = parse(t, "1 month").(*ast.QuantityLiteral)
	if !ok || q.Unit != "month" {
		t.Errorf("expected 1 month, got %#v", q)
	}

	// div is an operator, never a unit.
	if bin, ok := parse(t, "4 div 2").(*ast.BinaryExpression); !ok || bin.Op != "div" {
		t.Error("expected div binary expression")
	}
}

func TestPrecedence(t *testing.T) {
	// 1 + 2 * 3 parses as 1 + (2 * 3)
	add, ok := parse(t, "1 + 2 * 3").(*ast.BinaryExpression)
	if !ok || add.Op != "+" {
		t.Fatal("expected + at the top")
	}
	mul, ok := add.Right.(*ast.BinaryExpression)
	if !ok || mul.Op != "*" {
		t.Fatal("expected * on the right")
	}

	// a or b and c parses as a or (b and c)
	or, ok := parse(t, "a or b and c").(*ast.BinaryExpression)
	if !ok || or.Op != "or" {
		t.Fatal("expected or at the top")
	}
	if and, ok := or.Right.(*ast.BinaryExpression); !ok || and.Op != "and" {
		t.Fatal("expected and on the right")
	}

	// 1 < 2 = true parses as (1 < 2) = true
	eq, ok := parse(t, "1 < 2 = true").(*ast.BinaryExpression)
	if !ok || eq.Op != "=" {
		t.Fatal("expected = at the top")
	}
	if lt, ok := eq.Left.(*ast.BinaryExpression); !ok || lt.Op != "<" {
		t.Fatal("expected < on the left")
	}

	// a implies b or c parses as a implies (b or c)
	implies, ok := parse(t, "a implies b or c").(*ast.BinaryExpression)
	if !ok || implies.Op != "implies" {
		t.Fatal("expected implies at the top")
	}

	// -a * b parses as (-a) * b
	neg, ok := parse(t, "-a * b").(*ast.BinaryExpression)
	if !ok || neg.Op != "*" {
		t.Fatal("expected * at the top")
	}
	if _, ok := neg.Left.(*ast.UnaryExpression); !ok {
		t.Fatal("expected unary minus on the left")
	}
}

func TestPaths(t *testing.T) {
	member, ok := parse(t, "Patient.name.family").(*ast.MemberExpression)
	if !ok || member.Name != "family" {
		t.Fatal("expected member access chain")
	}
	inner, ok := member.Target.(*ast.MemberExpression)
	if !ok || inner.Name != "name" {
		t.Fatal("expected nested member access")
	}
	if head, ok := inner.Target.(*ast.Identifier); !ok || head.Name != "Patient" {
		t.Fatal("expected Patient head")
	}

	indexer, ok := parse(t, "name[0]").(*ast.IndexerExpression)
	if !ok {
		t.Fatal("expected indexer")
	}
	if _, ok := indexer.Index.(*ast.IntegerLiteral); !ok {
		t.Fatal("expected integer index")
	}

	if ident, ok := parse(t, "`PID-1`").(*ast.Identifier); !ok || ident.Name != "PID-1" {
		t.Fatal("expected delimited identifier")
	}
}

func TestFunctionCalls(t *testing.T) {
	call, ok := parse(t, "name.where(use = 'official')").(*ast.FunctionCall)
	if !ok || call.Name != "where" {
		t.Fatal("expected where call")
	}
	if call.Target == nil {
		t.Fatal("expected method receiver")
	}
	if len(call.Args) != 1 {
		t.Fatalf("expected 1 argument, got %d", len(call.Args))
	}

	bare, ok := parse(t, "today()").(*ast.FunctionCall)
	if !ok || bare.Target != nil || bare.Name != "today" {
		t.Fatal("expected bare call")
	}

	iif, ok := parse(t, "iif(true, 1, 2)").(*ast.FunctionCall)
	if !ok || len(iif.Args) != 3 {
		t.Fatal("expected 3-argument iif")
	}
}

func TestVariables(t *testing.T) {
	if ec, ok := parse(t, "%context").(*ast.ExternalConstant); !ok || ec.Name != "context" {
		t.Fatal("expected external constant")
	}
	if ec, ok := parse(t, "%`vs-name`").(*ast.ExternalConstant); !ok || ec.Name != "vs-name" {
		t.Fatal("expected delimited external constant")
	}
	if _, ok := parse(t, "$this").(*ast.ThisRef); !ok {
		t.Fatal("expected $this")
	}
	if _, ok := parse(t, "$index").(*ast.IndexRef); !ok {
		t.Fatal("expected $index")
	}
	if _, ok := parse(t, "$total").(*ast.TotalRef); !ok {
		t.Fatal("expected $total")
	}
}

func TestTypeExpressions(t *testing.T) {
	is, ok := parse(t, "value is Quantity").(*ast.TypeExpression)
	if !ok || is.Op != "is" || is.Type.Name != "Quantity" {
		t.Fatal("expected is expression")
	}

	as, ok := parse(t, "value as FHIR.string").(*ast.TypeExpression)
	if !ok || as.Op != "as" || as.Type.Qualifier != "FHIR" || as.Type.Name != "string" {
		t.Fatal("expected qualified as expression")
	}
}

func TestComments(t *testing.T) {
	expr := parse(t, `1 + // line comment
		2 /* block
		comment */ + 3`)
	if _, ok := expr.(*ast.BinaryExpression); !ok {
		t.Fatal("expected binary expression")
	}
}

func TestParseErrors(t *testing.T) {
	for _, bad := range []string{
		"",
		"  ",
		"1 +",
		"(1",
		"'unterminated",
		"a..b",
		"@2023-1-1",
		"$unknown",
		"1 ^ 2",
		"name[",
	} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("expected parse error for %q", bad)
		}
	}
}

func TestSpans(t *testing.T) {
	expr := parse(t, "name.family")
	span := expr.Span()
	if span.Start != 0 || span.End != len("name.family") {
		t.Errorf("unexpected span %+v", span)
	}
}
