package kaleidoscope

import (
	"fmt"
	"io"
)

const DefaultMaxCallDepth = 10000

type EvalFunction struct {
	Proto  *Prototype
	Body   Expr
	native *Builtin
}

func (f *EvalFunction) Name() string {
	return f.Proto.Name
}

func (f *EvalFunction) String() string {
	switch {
	case f.Body != nil:
		return (&Function{Proto: f.Proto, Body: f.Body}).String()
	case f.native != nil:
		return "(extern " + f.Proto.String() + " native)"
	}
	return "(extern " + f.Proto.String() + ")"
}

// Evaluator is a tree-walking backend. Definitions are checked and lowered
// at compile time; anonymous units run through Execute.
type Evaluator struct {
	symbols   *SymbolTable
	functions map[string]*EvalFunction
	builtins  map[string]Builtin
	out       io.Writer
	maxDepth  int
	depth     int
}

func NewEvaluator(out io.Writer) *Evaluator {
	return &Evaluator{
		symbols:   NewSymbolTable(),
		functions: make(map[string]*EvalFunction),
		builtins:  Builtins(),
		out:       out,
		maxDepth:  DefaultMaxCallDepth,
	}
}

func (e *Evaluator) SetMaxCallDepth(depth int) {
	e.maxDepth = depth
}

func (e *Evaluator) Symbols() *SymbolTable {
	return e.symbols
}

func (e *Evaluator) CompilePrototype(proto *Prototype) (FunctionHandle, error) {
	var native *Builtin
	// A user definition hides the native of the same name.
	if sym, ok := e.symbols.Lookup(proto.Name); !ok || !sym.Defined {
		if b, ok := e.builtins[proto.Name]; ok {
			if b.Arity != len(proto.Params) {
				return nil, NewError(CompileError, proto.Pos, "external %s takes %d arguments, but was declared with %d",
					proto.Name, b.Arity, len(proto.Params))
			}
			native = &b
		}
	}
	sym, err := e.symbols.Declare(proto)
	if err != nil {
		return nil, err
	}
	if f, ok := e.functions[proto.Name]; ok {
		return f, nil
	}
	f := &EvalFunction{Proto: sym.Proto, native: native}
	e.functions[proto.Name] = f
	return f, nil
}

func (e *Evaluator) CompileFunction(fn *Function) (FunctionHandle, error) {
	if fn.Proto.IsAnonymous() {
		if err := Resolve(fn, e.symbols); err != nil {
			return nil, err
		}
		lowered := LowerFunction(fn)
		return &EvalFunction{Proto: lowered.Proto, Body: lowered.Body}, nil
	}
	if _, err := e.symbols.BeginDefinition(fn.Proto); err != nil {
		return nil, err
	}
	if err := Resolve(fn, e.symbols); err != nil {
		return nil, err
	}
	lowered := LowerFunction(fn)
	f := &EvalFunction{Proto: lowered.Proto, Body: lowered.Body}
	e.functions[fn.Proto.Name] = f
	e.symbols.MarkDefined(fn.Proto.Name)
	return f, nil
}

func (e *Evaluator) Execute(h FunctionHandle) (float64, error) {
	f, ok := h.(*EvalFunction)
	if !ok {
		return 0, fmt.Errorf("evaluator cannot execute %T", h)
	}
	if len(f.Proto.Params) != 0 {
		return 0, NewError(CompileError, f.Proto.Pos, "cannot execute %s: it takes %d arguments", f.Proto.Name, len(f.Proto.Params))
	}
	e.depth = 0
	return e.call(f, f.Proto.Pos, nil)
}

func (e *Evaluator) call(f *EvalFunction, at Pos, args []float64) (float64, error) {
	if f.Body == nil {
		if f.native == nil {
			return 0, NewError(CompileError, at, "unresolved external function: %s", f.Proto.Name)
		}
		return f.native.Call(e.out, args), nil
	}
	if e.depth >= e.maxDepth {
		return 0, NewError(CompileError, at, "maximum call depth %d exceeded in %s", e.maxDepth, f.Proto.Name)
	}
	e.depth++
	defer func() { e.depth-- }()
	env := make(map[string]float64, len(args))
	for i, param := range f.Proto.Params {
		env[param] = args[i]
	}
	return e.EvaluateExpr(f.Body, env)
}

func (e *Evaluator) EvaluateExpr(expr Expr, env map[string]float64) (float64, error) {
	switch ex := expr.(type) {
	case *NumberExpr:
		return ex.Value, nil
	case *VariableExpr:
		val, ok := env[ex.Name]
		if !ok {
			return 0, NewError(CompileError, ex.Pos, "unknown variable name: %s", ex.Name)
		}
		return val, nil
	case *BinaryExpr:
		return e.evaluateBinaryExpr(ex, env)
	case *CallExpr:
		return e.evaluateCallExpr(ex, env)
	case *IfExpr:
		cond, err := e.EvaluateExpr(ex.Cond, env)
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return e.EvaluateExpr(ex.Then, env)
		}
		return e.EvaluateExpr(ex.Else, env)
	case *ForExpr:
		return e.evaluateForExpr(ex, env)
	}
	panic("unreachable")
}

func (e *Evaluator) evaluateBinaryExpr(b *BinaryExpr, env map[string]float64) (float64, error) {
	left, err := e.EvaluateExpr(b.Left, env)
	if err != nil {
		return 0, err
	}
	right, err := e.EvaluateExpr(b.Right, env)
	if err != nil {
		return 0, err
	}
	switch b.Op {
	case '+':
		return left + right, nil
	case '-':
		return left - right, nil
	case '*':
		return left * right, nil
	case '<':
		if left < right {
			return 1, nil
		}
		return 0, nil
	}
	return 0, NewError(CompileError, b.Pos, "invalid binary operator: %c", b.Op)
}

func (e *Evaluator) evaluateCallExpr(c *CallExpr, env map[string]float64) (float64, error) {
	f, ok := e.functions[c.Callee]
	if !ok {
		return 0, NewError(CompileError, c.Pos, "unknown function: %s", c.Callee)
	}
	if len(f.Proto.Params) != len(c.Args) {
		return 0, NewError(CompileError, c.Pos, "incorrect number of arguments passed to %s", c.Callee)
	}
	args := make([]float64, 0, len(c.Args))
	for _, arg := range c.Args {
		val, err := e.EvaluateExpr(arg, env)
		if err != nil {
			return 0, err
		}
		args = append(args, val)
	}
	return e.call(f, c.Pos, args)
}

// evaluateForExpr runs body, then checks end with the current value of the
// loop variable before stepping, so the body always runs at least once.
func (e *Evaluator) evaluateForExpr(f *ForExpr, env map[string]float64) (float64, error) {
	start, err := e.EvaluateExpr(f.Start, env)
	if err != nil {
		return 0, err
	}
	old, shadowed := env[f.Var]
	defer func() {
		if shadowed {
			env[f.Var] = old
		} else {
			delete(env, f.Var)
		}
	}()
	env[f.Var] = start
	for {
		if _, err := e.EvaluateExpr(f.Body, env); err != nil {
			return 0, err
		}
		step := DefaultLoopStep
		if f.Step != nil {
			step, err = e.EvaluateExpr(f.Step, env)
			if err != nil {
				return 0, err
			}
		}
		end, err := e.EvaluateExpr(f.End, env)
		if err != nil {
			return 0, err
		}
		if end == 0 {
			break
		}
		env[f.Var] += step
	}
	return 0, nil
}
