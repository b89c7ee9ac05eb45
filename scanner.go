package kaleidoscope

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

type TokenKind int

const (
	EOF TokenKind = iota
	IDENTIFIER
	NUMBER
	PUNCT

	// keywords
	DEF
	EXTERN
	IF
	THEN
	ELSE
	FOR
	IN
)

var keywords = map[string]TokenKind{
	"def":    DEF,
	"extern": EXTERN,
	"if":     IF,
	"then":   THEN,
	"else":   ELSE,
	"for":    FOR,
	"in":     IN,
}

func (t TokenKind) String() string {
	switch t {
	case EOF:
		return "EOF"
	case IDENTIFIER:
		return "IDENTIFIER"
	case NUMBER:
		return "NUMBER"
	case PUNCT:
		return "PUNCT"
	case DEF:
		return "def"
	case EXTERN:
		return "extern"
	case IF:
		return "if"
	case THEN:
		return "then"
	case ELSE:
		return "else"
	case FOR:
		return "for"
	case IN:
		return "in"
	}
	panic("unreachable")
}

func (t TokenKind) IsKeyword() bool {
	return t >= DEF && t <= IN
}

type Pos struct {
	Filename string
	Line     int
	Column   int
}

func (p Pos) String() string {
	if p.Column == 0 {
		return fmt.Sprintf("%s:%d", p.Filename, p.Line)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

type Token struct {
	Pos
	Kind    TokenKind
	Content []byte
	Value   float64
}

func (t Token) IsPunct(c rune) bool {
	if t.Kind != PUNCT {
		return false
	}
	r, _ := utf8.DecodeRune(t.Content)
	return r == c
}

func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "end of input"
	case IDENTIFIER:
		return fmt.Sprintf("identifier %q", t.Content)
	case NUMBER:
		return fmt.Sprintf("number %s", t.Content)
	case PUNCT:
		return fmt.Sprintf("'%s'", t.Content)
	}
	return fmt.Sprintf("keyword '%s'", t.Kind)
}

func ScanTokens(filename string, source []byte) ([]Token, error) {
	return ScanTokensAt(Pos{Filename: filename, Line: 1, Column: 1}, source)
}

func ScanTokensAt(start Pos, source []byte) ([]Token, error) {
	sc := NewScannerAt(start, source)
	tokens := []Token{}
	for {
		tok, err := sc.Scan()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == EOF {
			break
		}
	}
	return tokens, nil
}

type Scanner struct {
	pos      Pos
	startPos Pos
	source   []byte
	start    int
	end      int
}

func NewScanner(filename string, source []byte) Scanner {
	const DEFAULT_LINE = 1
	return NewScannerAt(Pos{Filename: filename, Line: DEFAULT_LINE, Column: 1}, source)
}

func NewScannerAt(start Pos, source []byte) Scanner {
	if start.Line == 0 {
		start.Line = 1
	}
	if start.Column == 0 {
		start.Column = 1
	}
	return Scanner{
		pos:    start,
		source: source,
	}
}

func (s *Scanner) Scan() (Token, error) {
	s.skipWhitespace()
	s.start = s.end
	s.startPos = s.pos
	if s.atEnd() {
		return s.token(EOF), nil
	}
	c := s.next()
	switch {
	case isAlpha(c):
		return s.id(), nil
	case isDigit(c), c == '.' && isDigit(s.peek(1)):
		return s.num()
	}
	return s.punct(), nil
}

func isAlpha(c byte) bool {
	return ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z')
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func (s *Scanner) id() Token {
	for isAlpha(s.next()) || isDigit(s.next()) {
		s.advance()
	}
	t := s.token(IDENTIFIER)
	if kind, ok := keywords[string(t.Content)]; ok {
		t.Kind = kind
	}
	return t
}

func (s *Scanner) num() (Token, error) {
	for isDigit(s.next()) || s.next() == '.' {
		s.advance()
	}
	t := s.token(NUMBER)
	val, err := strconv.ParseFloat(string(t.Content), 64)
	// Out of range literals are still numbers: ParseFloat yields ±Inf or 0.
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Token{Pos: t.Pos, Kind: EOF}, NewError(LexicalError, t.Pos, "malformed number literal %q", t.Content)
	}
	t.Value = val
	return t, nil
}

func (s *Scanner) punct() Token {
	_, size := utf8.DecodeRune(s.source[s.end:])
	s.end += size
	s.pos.Column++
	return s.token(PUNCT)
}

// skipWhitespace also drops '#' comments up to and including the newline.
func (s *Scanner) skipWhitespace() {
	for !s.atEnd() {
		switch s.next() {
		case ' ', '\t', '\r', '\n':
			s.advance()
		case '#':
			for !s.atEnd() && s.advance() != '\n' {
			}
		default:
			return
		}
	}
}

func (s *Scanner) atEnd() bool {
	return s.end >= len(s.source)
}

func (s *Scanner) next() byte {
	return s.peek(0)
}

func (s *Scanner) peek(n int) byte {
	if s.end+n >= len(s.source) {
		return 0
	}
	return s.source[s.end+n]
}

func (s *Scanner) advance() byte {
	c := s.next()
	s.end++
	if c == '\n' {
		s.pos.Line++
		s.pos.Column = 1
	} else {
		s.pos.Column++
	}
	return c
}

func (s *Scanner) token(t TokenKind) Token {
	content := s.source[s.start:s.end]
	s.start = s.end
	return Token{
		Pos:     s.startPos,
		Kind:    t,
		Content: content,
	}
}
