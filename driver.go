package kaleidoscope

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cznic/mathutil"
)

type FunctionHandle interface {
	Name() string
	String() string
}

type Backend interface {
	CompilePrototype(proto *Prototype) (FunctionHandle, error)
	CompileFunction(fn *Function) (FunctionHandle, error)
}

// Executor is implemented by backends that can run a compiled anonymous unit.
type Executor interface {
	Execute(h FunctionHandle) (float64, error)
}

type StatementKind int

const (
	DefinitionStmt StatementKind = iota
	ExternStmt
	TopLevelStmt
)

func (k StatementKind) String() string {
	switch k {
	case DefinitionStmt:
		return "definition"
	case ExternStmt:
		return "extern"
	case TopLevelStmt:
		return "top-level expression"
	}
	panic("unreachable")
}

func (k StatementKind) acknowledgment() string {
	switch k {
	case DefinitionStmt:
		return "Parsed a function definition."
	case ExternStmt:
		return "Parsed an extern."
	case TopLevelStmt:
		return "Parsed a top-level expr."
	}
	panic("unreachable")
}

type Statement struct {
	Kind     StatementKind
	Proto    *Prototype
	Function *Function
	Handle   FunctionHandle
	Value    float64
	Executed bool
}

type LineReport struct {
	Statements []Statement
	Errors     []error
}

type DriverOptions struct {
	Filename string
	Prompt   string
	Dump     bool
	Execute  bool
	Logger   *slog.Logger
}

type Driver struct {
	backend  Backend
	out      io.Writer
	opts     DriverOptions
	log      *slog.Logger
	line     int
	errCount int
}

func NewDriver(backend Backend, out io.Writer, opts DriverOptions) *Driver {
	if opts.Filename == "" {
		opts.Filename = "<stdin>"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Driver{
		backend: backend,
		out:     out,
		opts:    opts,
		log:     logger,
	}
}

// ErrorCount is the number of errors reported since the driver was created.
func (d *Driver) ErrorCount() int {
	return d.errCount
}

// Run reads lines until EOF. Only a failing read ends the session early.
func (d *Driver) Run(in io.Reader) error {
	reader := bufio.NewReader(in)
	for {
		if d.opts.Prompt != "" {
			fmt.Fprint(d.out, d.opts.Prompt)
		}
		text, err := reader.ReadString('\n')
		if len(text) > 0 {
			d.HandleLine(text)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (d *Driver) HandleLine(text string) LineReport {
	d.line++
	return d.handle(strings.TrimRight(text, "\r\n"), d.line)
}

// HandleSource treats source as a single unit, so statements may span
// several lines. A syntax error still abandons everything after it.
func (d *Driver) HandleSource(source string) LineReport {
	source = strings.TrimRight(source, "\r\n")
	first := d.line + 1
	d.line += strings.Count(source, "\n") + 1
	return d.handle(source, first)
}

func (d *Driver) handle(source string, line int) LineReport {
	var report LineReport
	tokens, err := ScanTokensAt(Pos{Filename: d.opts.Filename, Line: line, Column: 1}, []byte(source))
	if err != nil {
		d.reportError(source, line, err)
		report.Errors = append(report.Errors, err)
		return report
	}
	d.log.Debug("line scanned", "line", line, "tokens", len(tokens)-1)
	p := NewParser(tokens)
	for p.SkipSeparators() {
		start := p.Offset()
		node, err := p.ParseStatement()
		if err != nil {
			d.reportError(source, line, err)
			report.Errors = append(report.Errors, err)
			d.log.Debug("rest of line abandoned", "line", line, "offset", start)
			break
		}
		stmt := newStatement(node)
		d.log.Debug("statement parsed", "kind", stmt.Kind.String(), "pos", PosOf(node).String(),
			"from", start, "to", p.Offset())
		fmt.Fprintln(d.out, stmt.Kind.acknowledgment())
		if err := d.compile(&stmt); err != nil {
			d.reportError(source, line, err)
			report.Errors = append(report.Errors, err)
		}
		report.Statements = append(report.Statements, stmt)
	}
	return report
}

func newStatement(node Node) Statement {
	switch node := node.(type) {
	case *Prototype:
		return Statement{Kind: ExternStmt, Proto: node}
	case *Function:
		kind := DefinitionStmt
		if node.Proto.IsAnonymous() {
			kind = TopLevelStmt
		}
		return Statement{Kind: kind, Proto: node.Proto, Function: node}
	}
	panic("unreachable")
}

func (d *Driver) compile(stmt *Statement) error {
	var (
		h   FunctionHandle
		err error
	)
	if stmt.Kind == ExternStmt {
		h, err = d.backend.CompilePrototype(stmt.Proto)
	} else {
		h, err = d.backend.CompileFunction(stmt.Function)
	}
	if err != nil {
		return err
	}
	stmt.Handle = h
	if d.opts.Dump {
		fmt.Fprintln(d.out, h.String())
	}
	if stmt.Kind != TopLevelStmt || !d.opts.Execute {
		return nil
	}
	ex, ok := d.backend.(Executor)
	if !ok {
		return nil
	}
	val, err := ex.Execute(h)
	if err != nil {
		return err
	}
	stmt.Value = val
	stmt.Executed = true
	fmt.Fprintf(d.out, "Evaluated to %f\n", val)
	return nil
}

func (d *Driver) reportError(source string, firstLine int, err error) {
	d.errCount++
	var e Error
	if !errors.As(err, &e) {
		fmt.Fprintf(d.out, "error: %s\n", err)
		return
	}
	fmt.Fprintln(d.out, e.Error())
	if e.Kind() == CompileError {
		return
	}
	lines := strings.Split(source, "\n")
	idx := e.Pos().Line - firstLine
	if idx < 0 || idx >= len(lines) {
		return
	}
	text := strings.TrimRight(lines[idx], "\r")
	col := mathutil.Clamp(e.Pos().Column-1, 0, len(text))
	fmt.Fprintf(d.out, "  %s\n  %s^\n", text, strings.Repeat(" ", col))
}
