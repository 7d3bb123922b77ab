// Package parser turns FHIRPath expression text into the ast package's
// expression tree.
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokDate
	tokDateTime
	tokTime
	tokExtConst
	tokDollar // $this, $index, $total
	tokSym    // punctuation and operator symbols
)

type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
}

// lexer scans expression text into tokens.
type lexer struct {
	input string
	pos   int
}

// lex tokenizes the whole input.
func lex(input string) ([]token, error) {
	l := &lexer{input: input}
	var tokens []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) errorf(pos int, format string, args ...interface{}) error {
	return &Error{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// Error is a positioned lexing or parsing error.
type Error struct {
	Pos     int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Message)
}

func (l *lexer) peekByte() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *lexer) byteAt(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *lexer) skipSpaceAndComments() error {
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.pos++
		case c == '/' && l.byteAt(1) == '/':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && l.byteAt(1) == '*':
			end := strings.Index(l.input[l.pos+2:], "*/")
			if end < 0 {
				return l.errorf(l.pos, "unterminated comment")
			}
			l.pos += 2 + end + 2
		default:
			return nil
		}
	}
	return nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func (l *lexer) next() (token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return token{}, err
	}
	start := l.pos
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, start: start, end: start}, nil
	}

	c := l.input[l.pos]
	switch {
	case isIdentStart(c):
		for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, text: l.input[start:l.pos], start: start, end: l.pos}, nil

	case c == '`':
		name, err := l.scanDelimited('`')
		if err != nil {
			return token{}, err
		}
		return token{kind: tokIdent, text: name, start: start, end: l.pos}, nil

	case c == '\'':
		s, err := l.scanString()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokString, text: s, start: start, end: l.pos}, nil

	case isDigit(c):
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
		if l.peekByte() == '.' && isDigit(l.byteAt(1)) {
			l.pos++
			for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
				l.pos++
			}
		}
		return token{kind: tokNumber, text: l.input[start:l.pos], start: start, end: l.pos}, nil

	case c == '@':
		return l.scanTemporal()

	case c == '%':
		l.pos++
		switch {
		case l.peekByte() == '\'':
			s, err := l.scanString()
			if err != nil {
				return token{}, err
			}
			return token{kind: tokExtConst, text: s, start: start, end: l.pos}, nil
		case l.peekByte() == '`':
			name, err := l.scanDelimited('`')
			if err != nil {
				return token{}, err
			}
			return token{kind: tokExtConst, text: name, start: start, end: l.pos}, nil
		case isIdentStart(l.peekByte()):
			nameStart := l.pos
			for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
				l.pos++
			}
			return token{kind: tokExtConst, text: l.input[nameStart:l.pos], start: start, end: l.pos}, nil
		default:
			return token{}, l.errorf(start, "expected name after '%%'")
		}

	case c == '$':
		l.pos++
		nameStart := l.pos
		for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
			l.pos++
		}
		name := l.input[nameStart:l.pos]
		if name != "this" && name != "index" && name != "total" {
			return token{}, l.errorf(start, "unknown special variable $%s", name)
		}
		return token{kind: tokDollar, text: name, start: start, end: l.pos}, nil

	default:
		// Multi-byte symbols first.
		for _, sym := range []string{"<=", ">=", "!=", "!~"} {
			if strings.HasPrefix(l.input[l.pos:], sym) {
				l.pos += 2
				return token{kind: tokSym, text: sym, start: start, end: l.pos}, nil
			}
		}
		if strings.IndexByte(".,()[]{}+-*/|&<>=~", c) >= 0 {
			l.pos++
			return token{kind: tokSym, text: string(c), start: start, end: l.pos}, nil
		}
		r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
		return token{}, l.errorf(start, "unexpected character %q", r)
	}
}

// scanDelimited reads a backtick-delimited identifier.
func (l *lexer) scanDelimited(delim byte) (string, error) {
	start := l.pos
	l.pos++ // opening delimiter
	nameStart := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != delim {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return "", l.errorf(start, "unterminated delimited identifier")
	}
	name := l.input[nameStart:l.pos]
	l.pos++ // closing delimiter
	return name, nil
}

// scanString reads a single-quoted string, resolving escape sequences.
func (l *lexer) scanString() (string, error) {
	start := l.pos
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch c {
		case '\'':
			l.pos++
			return b.String(), nil
		case '\\':
			l.pos++
			if l.pos >= len(l.input) {
				return "", l.errorf(start, "unterminated string")
			}
			esc := l.input[l.pos]
			switch esc {
			case '\'', '"', '\\', '/':
				b.WriteByte(esc)
				l.pos++
			case 'f':
				b.WriteByte('\f')
				l.pos++
			case 'n':
				b.WriteByte('\n')
				l.pos++
			case 'r':
				b.WriteByte('\r')
				l.pos++
			case 't':
				b.WriteByte('\t')
				l.pos++
			case 'u':
				if l.pos+5 > len(l.input) {
					return "", l.errorf(l.pos, "invalid unicode escape")
				}
				code, err := strconv.ParseUint(l.input[l.pos+1:l.pos+5], 16, 32)
				if err != nil {
					return "", l.errorf(l.pos, "invalid unicode escape")
				}
				b.WriteRune(rune(code))
				l.pos += 5
			default:
				return "", l.errorf(l.pos, "invalid escape sequence \\%c", esc)
			}
		default:
			if c < utf8.RuneSelf {
				b.WriteByte(c)
				l.pos++
			} else {
				r, size := utf8.DecodeRuneInString(l.input[l.pos:])
				if r == unicode.ReplacementChar && size == 1 {
					return "", l.errorf(l.pos, "invalid UTF-8 in string")
				}
				b.WriteRune(r)
				l.pos += size
			}
		}
	}
	return "", l.errorf(start, "unterminated string")
}

// scanTemporal reads @date, @datetime and @time literals.
func (l *lexer) scanTemporal() (token, error) {
	start := l.pos
	l.pos++ // '@'

	if l.peekByte() == 'T' {
		l.pos++
		text, err := l.scanTimePart()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokTime, text: text, start: start, end: l.pos}, nil
	}

	dateStart := l.pos
	if !l.scanDigits(4) {
		return token{}, l.errorf(start, "invalid date literal")
	}
	precision := 0
	for precision < 2 && l.peekByte() == '-' && isDigit(l.byteAt(1)) {
		l.pos++
		if !l.scanDigits(2) {
			return token{}, l.errorf(start, "invalid date literal")
		}
		precision++
	}

	if l.peekByte() != 'T' {
		return token{kind: tokDate, text: l.input[dateStart:l.pos], start: start, end: l.pos}, nil
	}

	l.pos++ // 'T'
	if isDigit(l.peekByte()) {
		if _, err := l.scanTimePart(); err != nil {
			return token{}, err
		}
	}
	// timezone
	switch l.peekByte() {
	case 'Z':
		l.pos++
	case '+', '-':
		if isDigit(l.byteAt(1)) {
			l.pos++
			if !l.scanDigits(2) || l.peekByte() != ':' {
				return token{}, l.errorf(start, "invalid timezone in datetime literal")
			}
			l.pos++
			if !l.scanDigits(2) {
				return token{}, l.errorf(start, "invalid timezone in datetime literal")
			}
		}
	}
	return token{kind: tokDateTime, text: l.input[dateStart:l.pos], start: start, end: l.pos}, nil
}

// scanTimePart reads hh[:mm[:ss[.fff]]] and returns its text.
func (l *lexer) scanTimePart() (string, error) {
	start := l.pos
	if !l.scanDigits(2) {
		return "", l.errorf(start, "invalid time literal")
	}
	for i := 0; i < 2; i++ {
		if l.peekByte() != ':' || !isDigit(l.byteAt(1)) {
			break
		}
		l.pos++
		if !l.scanDigits(2) {
			return "", l.errorf(start, "invalid time literal")
		}
	}
	if l.peekByte() == '.' && isDigit(l.byteAt(1)) {
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	return l.input[start:l.pos], nil
}

// scanDigits consumes exactly n digits.
func (l *lexer) scanDigits(n int) bool {
	for i := 0; i < n; i++ {
		if !isDigit(l.peekByte()) {
			return false
		}
		l.pos++
	}
	return true
}
