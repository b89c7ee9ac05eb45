package kaleidoscope

func ParseLine(filename string, source []byte) ([]Node, error) {
	tokens, err := ScanTokens(filename, source)
	if err != nil {
		return nil, err
	}
	psr := NewParser(tokens)
	return psr.ParseStatements()
}

type Parser struct {
	tokens []Token
	index  int
}

func NewParser(tokens []Token) Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != EOF {
		var eof Token
		if len(tokens) > 0 {
			eof.Pos = tokens[len(tokens)-1].Pos
		}
		eof.Kind = EOF
		tokens = append(tokens, eof)
	}
	return Parser{
		tokens: tokens,
		index:  0,
	}
}

// Offset is the number of tokens consumed so far.
func (p *Parser) Offset() int {
	return p.index
}

func (p *Parser) AtEOF() bool {
	return p.next().Kind == EOF
}

// ParseStatements parses every statement up to EOF and stops at the first error.
// Nodes parsed before the error are returned along with it.
func (p *Parser) ParseStatements() ([]Node, error) {
	nodes := make([]Node, 0)
	for p.SkipSeparators() {
		node, err := p.ParseStatement()
		if err != nil {
			return nodes, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// SkipSeparators consumes any ';' tokens and reports whether a statement follows.
func (p *Parser) SkipSeparators() bool {
	for p.next().IsPunct(';') {
		p.advance()
	}
	return !p.AtEOF()
}

// ParseStatement picks the production from the leading token.
// It returns a *Function for definitions and top-level expressions and
// a *Prototype for externs.
func (p *Parser) ParseStatement() (Node, error) {
	switch p.next().Kind {
	case DEF:
		return p.ParseDefinition()
	case EXTERN:
		return p.ParseExtern()
	default:
		return p.ParseTopLevel()
	}
}

func (p *Parser) ParseDefinition() (fn *Function, err error) {
	defer p.rollback(p.index, &err)
	if _, err := p.match(DEF); err != nil {
		return nil, err
	}
	proto, err := p.parsePrototype()
	if err != nil {
		return nil, err
	}
	body, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	return &Function{
		Proto: proto,
		Body:  body,
	}, nil
}

func (p *Parser) ParseExtern() (proto *Prototype, err error) {
	defer p.rollback(p.index, &err)
	if _, err := p.match(EXTERN); err != nil {
		return nil, err
	}
	return p.parsePrototype()
}

func (p *Parser) ParseTopLevel() (fn *Function, err error) {
	defer p.rollback(p.index, &err)
	start := p.next().Pos
	body, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	return &Function{
		Proto: &Prototype{
			Pos:    start,
			Name:   "",
			Params: make([]string, 0),
		},
		Body: body,
	}, nil
}

func (p *Parser) ParseExpr() (Expr, error) {
	lhs, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parseExpr(lhs, 0)
}

func (p *Parser) ParseExprAndEof() (Expr, error) {
	expr, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	_, err = p.match(EOF)
	if err != nil {
		return nil, err
	}
	return expr, nil
}

// parseExpr folds operators of at least minPrec into lhs. All binary
// operators are left-associative, so equal precedence never recurses.
func (p *Parser) parseExpr(lhs Expr, minPrec int) (Expr, error) {
	for precedence(p.next()) >= minPrec {
		op := p.advance()
		rhs, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		for precedence(p.next()) > precedence(op) {
			rhs, err = p.parseExpr(rhs, precedence(op)+1)
			if err != nil {
				return nil, err
			}
		}
		lhs = &BinaryExpr{
			Pos:   op.Pos,
			Op:    rune(op.Content[0]),
			Left:  lhs,
			Right: rhs,
		}
	}
	return lhs, nil
}

func precedence(t Token) int {
	switch {
	case t.IsPunct('*'):
		return 40
	case t.IsPunct('+'), t.IsPunct('-'):
		return 20
	case t.IsPunct('<'):
		return 10
	}
	return -1
}

func (p *Parser) parsePrimary() (Expr, error) {
	switch t := p.next(); t.Kind {
	case NUMBER:
		p.advance()
		return &NumberExpr{Pos: t.Pos, Value: t.Value}, nil
	case IDENTIFIER:
		if p.peek(1).IsPunct('(') {
			return p.parseCall()
		}
		p.advance()
		return &VariableExpr{Pos: t.Pos, Name: string(t.Content)}, nil
	case IF:
		return p.parseIf()
	case FOR:
		return p.parseFor()
	case PUNCT:
		if t.IsPunct('(') {
			p.advance()
			inner, err := p.ParseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.matchPunct(')', "to close parenthesized expression"); err != nil {
				return nil, err
			}
			return inner, nil
		}
	}
	return nil, NewError(SyntaxError, p.next().Pos, "expected expression, but got %s", p.next())
}

func (p *Parser) parseCall() (Expr, error) {
	callee := p.advance()
	if _, err := p.matchPunct('(', "after function name"); err != nil {
		return nil, err
	}
	args := make([]Expr, 0)
	if p.next().IsPunct(')') {
		p.advance()
		return &CallExpr{Pos: callee.Pos, Callee: string(callee.Content), Args: args}, nil
	}
	for {
		arg, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.next().IsPunct(')') {
			p.advance()
			break
		}
		if p.next().IsPunct(',') {
			p.advance()
			continue
		}
		return nil, NewError(SyntaxError, p.next().Pos, "expected ')' or ',' in argument list, but got %s", p.next())
	}
	return &CallExpr{
		Pos:    callee.Pos,
		Callee: string(callee.Content),
		Args:   args,
	}, nil
}

func (p *Parser) parseIf() (Expr, error) {
	kw := p.advance()
	cond, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.match(THEN); err != nil {
		return nil, err
	}
	then, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.match(ELSE); err != nil {
		return nil, err
	}
	els, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	return &IfExpr{
		Pos:  kw.Pos,
		Cond: cond,
		Then: then,
		Else: els,
	}, nil
}

func (p *Parser) parseFor() (Expr, error) {
	kw := p.advance()
	id, err := p.match(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.matchPunct('=', "after loop variable"); err != nil {
		return nil, err
	}
	start, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.matchPunct(',', "after loop start value"); err != nil {
		return nil, err
	}
	end, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	var step Expr
	if p.next().IsPunct(',') {
		p.advance()
		step, err = p.ParseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.match(IN); err != nil {
		return nil, err
	}
	body, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	return &ForExpr{
		Pos:   kw.Pos,
		Var:   string(id.Content),
		Start: start,
		End:   end,
		Step:  step,
		Body:  body,
	}, nil
}

// parsePrototype accepts parameter names with no separators: foo(a b c).
func (p *Parser) parsePrototype() (*Prototype, error) {
	name, err := p.match(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.matchPunct('(', "in prototype"); err != nil {
		return nil, err
	}
	params := make([]string, 0)
	for p.next().Kind == IDENTIFIER {
		params = append(params, string(p.advance().Content))
	}
	if _, err := p.matchPunct(')', "in prototype"); err != nil {
		return nil, err
	}
	return &Prototype{
		Pos:    name.Pos,
		Name:   string(name.Content),
		Params: params,
	}, nil
}

func (p *Parser) rollback(start int, err *error) {
	if *err != nil {
		p.index = start
	}
}

func (p *Parser) next() Token {
	return p.peek(0)
}

func (p *Parser) peek(n int) Token {
	if p.index+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.index+n]
}

func (p *Parser) advance() Token {
	t := p.next()
	if p.index < len(p.tokens)-1 {
		p.index++
	}
	return t
}

func (p *Parser) match(k TokenKind) (Token, error) {
	t := p.next()
	if t.Kind != k {
		return Token{Kind: k}, NewError(SyntaxError, t.Pos, "expected %s, but got %s", describeKind(k), t)
	}
	p.advance()
	return t, nil
}

func (p *Parser) matchPunct(c rune, context string) (Token, error) {
	t := p.next()
	if !t.IsPunct(c) {
		return Token{Kind: PUNCT}, NewError(SyntaxError, t.Pos, "expected '%c' %s, but got %s", c, context, t)
	}
	p.advance()
	return t, nil
}

func describeKind(k TokenKind) string {
	if k.IsKeyword() {
		return "'" + k.String() + "'"
	}
	switch k {
	case EOF:
		return "end of input"
	case IDENTIFIER:
		return "identifier"
	case NUMBER:
		return "number"
	case PUNCT:
		return "punctuation"
	}
	panic("unreachable")
}
