package kaleidoscope_test

import (
	"bytes"
	"errors"
	"kaleidoscope"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDriver(opts kaleidoscope.DriverOptions) (*kaleidoscope.Driver, *bytes.Buffer) {
	var out bytes.Buffer
	return kaleidoscope.NewDriver(kaleidoscope.NewEvaluator(&out), &out, opts), &out
}

func TestDriverAcknowledgesStatements(t *testing.T) {
	d, out := newTestDriver(kaleidoscope.DriverOptions{Execute: true})
	report := d.HandleLine("def add(x y) x + y; extern sin(x); add(2, 3)\n")
	require.Empty(t, report.Errors)
	require.Len(t, report.Statements, 3)
	assert.Equal(t, kaleidoscope.DefinitionStmt, report.Statements[0].Kind)
	assert.Equal(t, kaleidoscope.ExternStmt, report.Statements[1].Kind)
	assert.Equal(t, kaleidoscope.TopLevelStmt, report.Statements[2].Kind)
	assert.True(t, report.Statements[2].Executed)
	assert.Equal(t, 5.0, report.Statements[2].Value)
	assert.Equal(t, "Parsed a function definition.\n"+
		"Parsed an extern.\n"+
		"Parsed a top-level expr.\n"+
		"Evaluated to 5.000000\n", out.String())
}

func TestDriverRecoversAfterSyntaxError(t *testing.T) {
	d, out := newTestDriver(kaleidoscope.DriverOptions{})
	report := d.HandleLine("def f( 1; def g() 2;")
	assert.Empty(t, report.Statements)
	require.Len(t, report.Errors, 1)
	var e kaleidoscope.Error
	require.True(t, errors.As(report.Errors[0], &e))
	assert.Equal(t, kaleidoscope.SyntaxError, e.Kind())
	assert.Equal(t, 1, d.ErrorCount())
	assert.NotContains(t, out.String(), "Parsed")

	out.Reset()
	report = d.HandleLine("def g() 2;")
	assert.Empty(t, report.Errors)
	require.Len(t, report.Statements, 1)
	assert.Equal(t, "g", report.Statements[0].Proto.Name)
	assert.Equal(t, "Parsed a function definition.\n", out.String())
	assert.Equal(t, 1, d.ErrorCount())
}

func TestDriverKeepsStatementsBeforeSyntaxError(t *testing.T) {
	d, out := newTestDriver(kaleidoscope.DriverOptions{})
	report := d.HandleLine("def a() 1; extern b(x); def c( 1; def d() 2")
	require.Len(t, report.Statements, 2)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 2, strings.Count(out.String(), "Parsed"))
}

func TestDriverAbandonsLineOnLexicalError(t *testing.T) {
	d, out := newTestDriver(kaleidoscope.DriverOptions{})
	report := d.HandleLine("1 + 2.3.4; def h() 1")
	assert.Empty(t, report.Statements)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "<stdin>:1:5: lexical error: malformed number literal \"2.3.4\"\n"+
		"  1 + 2.3.4; def h() 1\n"+
		"      ^\n", out.String())
}

func TestDriverContinuesAfterCompileError(t *testing.T) {
	d, out := newTestDriver(kaleidoscope.DriverOptions{Execute: true})
	report := d.HandleLine("foo(1); 2 + 3")
	require.Len(t, report.Statements, 2)
	require.Len(t, report.Errors, 1)
	assert.False(t, report.Statements[0].Executed)
	assert.True(t, report.Statements[1].Executed)
	assert.Contains(t, out.String(), "<stdin>:1:1: compile error: unknown function: foo\n")
	assert.Contains(t, out.String(), "Evaluated to 5.000000\n")
	assert.NotContains(t, out.String(), "^")
}

func TestDriverDump(t *testing.T) {
	d, out := newTestDriver(kaleidoscope.DriverOptions{Dump: true})
	d.HandleLine("def g() 2; extern cos(x); for i = 0, i < 2 in g()")
	assert.Equal(t, "Parsed a function definition.\n"+
		"(def g() 2)\n"+
		"Parsed an extern.\n"+
		"(extern cos(x) native)\n"+
		"Parsed a top-level expr.\n"+
		"(def () (for i 0 (< i 2) 1 (call g)))\n", out.String())
}

func TestDriverRun(t *testing.T) {
	d, out := newTestDriver(kaleidoscope.DriverOptions{Prompt: "ready> ", Execute: true})
	require.NoError(t, d.Run(strings.NewReader("1\n\n;;\n")))
	assert.Equal(t, "ready> Parsed a top-level expr.\n"+
		"Evaluated to 1.000000\n"+
		"ready> ready> ready> ", out.String())
	assert.Zero(t, d.ErrorCount())
}

func TestDriverRunWithoutTrailingNewline(t *testing.T) {
	d, out := newTestDriver(kaleidoscope.DriverOptions{Execute: true})
	require.NoError(t, d.Run(strings.NewReader("def f(x) x*2\nf(4)")))
	assert.Equal(t, "Parsed a function definition.\n"+
		"Parsed a top-level expr.\n"+
		"Evaluated to 8.000000\n", out.String())
}

func TestDriverReportsLineNumbers(t *testing.T) {
	d, out := newTestDriver(kaleidoscope.DriverOptions{Filename: "input.kal"})
	d.HandleLine("1")
	out.Reset()
	d.HandleLine("def (")
	assert.True(t, strings.HasPrefix(out.String(), "input.kal:2:5: syntax error: "), out.String())
}

func TestDriverHandleSource(t *testing.T) {
	d, out := newTestDriver(kaleidoscope.DriverOptions{Execute: true})
	report := d.HandleSource("def f(x)\n  x * 2\nf(4)\n1 + )\n")
	require.Len(t, report.Statements, 2)
	require.Len(t, report.Errors, 1)
	var e kaleidoscope.Error
	require.True(t, errors.As(report.Errors[0], &e))
	assert.Equal(t, 4, e.Pos().Line)
	assert.Equal(t, 5, e.Pos().Column)
	assert.Contains(t, out.String(), "Evaluated to 8.000000\n")
	assert.True(t, strings.HasSuffix(out.String(), "  1 + )\n      ^\n"), out.String())
}

type recordingBackend struct {
	compiled []string
}

type recordedHandle string

func (h recordedHandle) Name() string   { return string(h) }
func (h recordedHandle) String() string { return "<" + string(h) + ">" }

func (b *recordingBackend) CompilePrototype(proto *kaleidoscope.Prototype) (kaleidoscope.FunctionHandle, error) {
	b.compiled = append(b.compiled, "extern "+proto.String())
	return recordedHandle(proto.Name), nil
}

func (b *recordingBackend) CompileFunction(fn *kaleidoscope.Function) (kaleidoscope.FunctionHandle, error) {
	b.compiled = append(b.compiled, fn.String())
	return recordedHandle(fn.Proto.Name), nil
}

func TestDriverWithoutExecutor(t *testing.T) {
	var out bytes.Buffer
	backend := &recordingBackend{}
	d := kaleidoscope.NewDriver(backend, &out, kaleidoscope.DriverOptions{Execute: true, Dump: true})
	report := d.HandleLine("extern sin(x); def f(a) a; f(1)")
	require.Empty(t, report.Errors)
	assert.Equal(t, []string{
		"extern sin(x)",
		"(def f(a) a)",
		"(def () (call f 1))",
	}, backend.compiled)
	assert.False(t, report.Statements[2].Executed)
	assert.NotContains(t, out.String(), "Evaluated")
	assert.Contains(t, out.String(), "<f>\n")
}
