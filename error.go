package kaleidoscope

import "fmt"

type ErrorKind int

const (
	LexicalError ErrorKind = iota
	SyntaxError
	CompileError
)

func (k ErrorKind) String() string {
	switch k {
	case LexicalError:
		return "lexical"
	case SyntaxError:
		return "syntax"
	case CompileError:
		return "compile"
	}
	panic("unreachable")
}

type Error struct {
	pos   Pos
	kind  ErrorKind
	msg   string
	cause error
}

func NewError(kind ErrorKind, pos Pos, format string, args ...interface{}) Error {
	return Error{
		pos:  pos,
		kind: kind,
		msg:  fmt.Sprintf(format, args...),
	}
}

// WrapError keeps err reachable through errors.Is and errors.As.
func WrapError(kind ErrorKind, pos Pos, err error, format string, args ...interface{}) Error {
	e := NewError(kind, pos, format, args...)
	e.msg = fmt.Sprintf("%s: %s", e.msg, err)
	e.cause = err
	return e
}

func (e Error) Pos() Pos {
	return e.pos
}

func (e Error) Kind() ErrorKind {
	return e.kind
}

func (e Error) Message() string {
	return e.msg
}

func (e Error) Unwrap() error {
	return e.cause
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s error: %s", e.pos, e.kind, e.msg)
}
