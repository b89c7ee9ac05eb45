package kaleidoscope

import (
	"strconv"
	"strings"
)

type Node interface {
	pos() Pos
	String() string
}

type Expr interface {
	Node
	expr()
}

type NumberExpr struct {
	Pos
	Value float64
}

type VariableExpr struct {
	Pos
	Name string
}

type BinaryExpr struct {
	Pos
	Op    rune
	Left  Expr
	Right Expr
}

type CallExpr struct {
	Pos
	Callee string
	Args   []Expr
}

type IfExpr struct {
	Pos
	Cond Expr
	Then Expr
	Else Expr
}

// ForExpr leaves Step nil when the source omits it.
type ForExpr struct {
	Pos
	Var   string
	Start Expr
	End   Expr
	Step  Expr
	Body  Expr
}

func (n *NumberExpr) pos() Pos   { return n.Pos }
func (v *VariableExpr) pos() Pos { return v.Pos }
func (b *BinaryExpr) pos() Pos   { return b.Pos }
func (c *CallExpr) pos() Pos     { return c.Pos }
func (i *IfExpr) pos() Pos       { return i.Pos }
func (f *ForExpr) pos() Pos      { return f.Pos }

func (n *NumberExpr) expr()   {}
func (v *VariableExpr) expr() {}
func (b *BinaryExpr) expr()   {}
func (c *CallExpr) expr()     {}
func (i *IfExpr) expr()       {}
func (f *ForExpr) expr()      {}

func (n *NumberExpr) String() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

func (v *VariableExpr) String() string {
	return v.Name
}

func (b *BinaryExpr) String() string {
	return "(" + string(b.Op) + " " + b.Left.String() + " " + b.Right.String() + ")"
}

func (c *CallExpr) String() string {
	var builder strings.Builder
	builder.WriteString("(call ")
	builder.WriteString(c.Callee)
	for _, arg := range c.Args {
		builder.WriteString(" ")
		builder.WriteString(arg.String())
	}
	builder.WriteString(")")
	return builder.String()
}

func (i *IfExpr) String() string {
	return "(if " + i.Cond.String() + " " + i.Then.String() + " " + i.Else.String() + ")"
}

func (f *ForExpr) String() string {
	step := "_"
	if f.Step != nil {
		step = f.Step.String()
	}
	return "(for " + f.Var + " " + f.Start.String() + " " + f.End.String() + " " + step + " " + f.Body.String() + ")"
}

type Prototype struct {
	Pos
	Name   string
	Params []string
}

func (p *Prototype) pos() Pos {
	return p.Pos
}

func (p *Prototype) IsAnonymous() bool {
	return p.Name == ""
}

func (p *Prototype) String() string {
	return p.Name + "(" + strings.Join(p.Params, " ") + ")"
}

type Function struct {
	Proto *Prototype
	Body  Expr
}

func (f *Function) pos() Pos {
	return f.Proto.Pos
}

func (f *Function) String() string {
	return "(def " + f.Proto.String() + " " + f.Body.String() + ")"
}

func PosOf(n Node) Pos {
	return n.pos()
}
