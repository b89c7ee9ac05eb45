package llvmgen

import (
	"fmt"
	"sync"

	"kaleidoscope"

	"tinygo.org/x/go-llvm"
)

type Options struct {
	ModuleName string
	Optimize   bool
}

type Function struct {
	name  string
	value llvm.Value
}

func (f *Function) Name() string {
	return f.name
}

func (f *Function) String() string {
	return f.value.String()
}

func (f *Function) Value() llvm.Value {
	return f.value
}

// Backend emits LLVM IR for one session. Definitions accumulate in the
// current module until an anonymous unit is executed; the module is then
// handed to the JIT and a fresh one is opened.
type Backend struct {
	opts      Options
	ctx       llvm.Context
	module    llvm.Module
	builder   llvm.Builder
	fpm       llvm.PassManager
	hasPasses bool
	engine    llvm.ExecutionEngine
	hasEngine bool
	symbols   *kaleidoscope.SymbolTable
	values    map[string]llvm.Value
	modules   int
	anonCount int
}

func New(opts Options) *Backend {
	if opts.ModuleName == "" {
		opts.ModuleName = "kaleidoscope"
	}
	ctx := llvm.NewContext()
	b := &Backend{
		opts:    opts,
		ctx:     ctx,
		builder: ctx.NewBuilder(),
		symbols: kaleidoscope.NewSymbolTable(),
		values:  make(map[string]llvm.Value),
	}
	b.openModule()
	return b
}

func (b *Backend) Symbols() *kaleidoscope.SymbolTable {
	return b.symbols
}

// Module is the module currently receiving definitions.
func (b *Backend) Module() llvm.Module {
	return b.module
}

func (b *Backend) Dispose() {
	b.disposePasses()
	b.builder.Dispose()
	b.module.Dispose()
	if b.hasEngine {
		b.engine.Dispose()
	}
	b.ctx.Dispose()
}

func (b *Backend) openModule() {
	b.disposePasses()
	b.modules++
	name := b.opts.ModuleName
	if b.modules > 1 {
		name = fmt.Sprintf("%s.%d", name, b.modules)
	}
	b.module = b.ctx.NewModule(name)
	b.module.SetTarget(llvm.DefaultTargetTriple())
	if b.opts.Optimize {
		b.fpm = llvm.NewFunctionPassManagerForModule(b.module)
		b.fpm.AddInstructionCombiningPass()
		b.fpm.AddReassociatePass()
		b.fpm.AddGVNPass()
		b.fpm.AddCFGSimplificationPass()
		b.fpm.InitializeFunc()
		b.hasPasses = true
	}
}

func (b *Backend) disposePasses() {
	if b.hasPasses {
		b.fpm.FinalizeFunc()
		b.fpm.Dispose()
		b.hasPasses = false
	}
}

func (b *Backend) double() llvm.Type {
	return b.ctx.DoubleType()
}

func (b *Backend) CompilePrototype(proto *kaleidoscope.Prototype) (kaleidoscope.FunctionHandle, error) {
	if _, err := b.symbols.Declare(proto); err != nil {
		return nil, err
	}
	fun := b.declare(proto.Name, proto.Params)
	return &Function{name: proto.Name, value: fun}, nil
}

func (b *Backend) CompileFunction(fn *kaleidoscope.Function) (kaleidoscope.FunctionHandle, error) {
	name := fn.Proto.Name
	if fn.Proto.IsAnonymous() {
		b.anonCount++
		name = fmt.Sprintf("__anon_expr.%d", b.anonCount)
	} else if _, err := b.symbols.BeginDefinition(fn.Proto); err != nil {
		return nil, err
	}
	if err := kaleidoscope.Resolve(fn, b.symbols); err != nil {
		return nil, err
	}
	lowered := kaleidoscope.LowerFunction(fn)
	fun := b.declare(name, lowered.Proto.Params)
	if fun.BasicBlocksCount() != 0 {
		return nil, kaleidoscope.NewError(kaleidoscope.CompileError, fn.Proto.Pos, "function %s cannot be redefined", name)
	}
	if err := b.codegenBody(fun, lowered); err != nil {
		fun.EraseFromParentAsFunction()
		return nil, err
	}
	if !fn.Proto.IsAnonymous() {
		b.symbols.MarkDefined(name)
	}
	return &Function{name: name, value: fun}, nil
}

// declare returns the function called name in the current module, adding a
// double(double, ...) declaration when it is missing.
func (b *Backend) declare(name string, params []string) llvm.Value {
	fun := b.module.NamedFunction(name)
	if fun.IsNil() {
		paramTypes := make([]llvm.Type, len(params))
		for i := range paramTypes {
			paramTypes[i] = b.double()
		}
		functionType := llvm.FunctionType(b.double(), paramTypes, false)
		fun = llvm.AddFunction(b.module, name, functionType)
	}
	for i, param := range fun.Params() {
		if i < len(params) {
			param.SetName(params[i])
		}
	}
	return fun
}

func (b *Backend) codegenBody(fun llvm.Value, fn *kaleidoscope.Function) error {
	bb := b.ctx.AddBasicBlock(fun, "entry")
	b.builder.SetInsertPointAtEnd(bb)
	b.values = make(map[string]llvm.Value, len(fn.Proto.Params))
	for i, name := range fn.Proto.Params {
		b.values[name] = fun.Param(i)
	}
	ret, err := b.codegenExpr(fn.Body)
	if err != nil {
		return err
	}
	b.builder.CreateRet(ret)
	if err := llvm.VerifyFunction(fun, llvm.ReturnStatusAction); err != nil {
		return kaleidoscope.WrapError(kaleidoscope.CompileError, fn.Proto.Pos, err, "invalid function %s", fun.Name())
	}
	if b.opts.Optimize {
		b.fpm.RunFunc(fun)
	}
	return nil
}

func (b *Backend) codegenExpr(expr kaleidoscope.Expr) (llvm.Value, error) {
	switch expr := expr.(type) {
	case *kaleidoscope.NumberExpr:
		return llvm.ConstFloat(b.double(), expr.Value), nil
	case *kaleidoscope.VariableExpr:
		value, ok := b.values[expr.Name]
		if !ok {
			return llvm.Value{}, kaleidoscope.NewError(kaleidoscope.CompileError, expr.Pos, "unknown variable name: %s", expr.Name)
		}
		return value, nil
	case *kaleidoscope.BinaryExpr:
		return b.codegenBinary(expr)
	case *kaleidoscope.CallExpr:
		return b.codegenCall(expr)
	case *kaleidoscope.IfExpr:
		return b.codegenIf(expr)
	case *kaleidoscope.ForExpr:
		return b.codegenFor(expr)
	}
	panic("unreachable")
}

func (b *Backend) codegenBinary(expr *kaleidoscope.BinaryExpr) (llvm.Value, error) {
	left, err := b.codegenExpr(expr.Left)
	if err != nil {
		return llvm.Value{}, err
	}
	right, err := b.codegenExpr(expr.Right)
	if err != nil {
		return llvm.Value{}, err
	}
	switch expr.Op {
	case '+':
		return b.builder.CreateFAdd(left, right, "addtmp"), nil
	case '-':
		return b.builder.CreateFSub(left, right, "subtmp"), nil
	case '*':
		return b.builder.CreateFMul(left, right, "multmp"), nil
	case '<':
		cmp := b.builder.CreateFCmp(llvm.FloatULT, left, right, "cmptmp")
		return b.builder.CreateUIToFP(cmp, b.double(), "booltmp"), nil
	}
	return llvm.Value{}, kaleidoscope.NewError(kaleidoscope.CompileError, expr.Pos, "invalid binary operator: %c", expr.Op)
}

func (b *Backend) codegenCall(expr *kaleidoscope.CallExpr) (llvm.Value, error) {
	sym, ok := b.symbols.Lookup(expr.Callee)
	if !ok {
		return llvm.Value{}, kaleidoscope.NewError(kaleidoscope.CompileError, expr.Pos, "unknown function: %s", expr.Callee)
	}
	callee := b.declare(expr.Callee, sym.Proto.Params)
	if callee.ParamsCount() != len(expr.Args) {
		return llvm.Value{}, kaleidoscope.NewError(kaleidoscope.CompileError, expr.Pos, "incorrect number of arguments passed to %s", expr.Callee)
	}
	args := make([]llvm.Value, 0, len(expr.Args))
	for _, arg := range expr.Args {
		value, err := b.codegenExpr(arg)
		if err != nil {
			return llvm.Value{}, err
		}
		args = append(args, value)
	}
	return b.builder.CreateCall(callee.GlobalValueType(), callee, args, "calltmp"), nil
}

func (b *Backend) codegenIf(expr *kaleidoscope.IfExpr) (llvm.Value, error) {
	cond, err := b.codegenExpr(expr.Cond)
	if err != nil {
		return llvm.Value{}, err
	}
	zero := llvm.ConstFloat(b.double(), 0)
	cond = b.builder.CreateFCmp(llvm.FloatONE, cond, zero, "ifcond")
	fun := b.builder.GetInsertBlock().Parent()
	thenBB := b.ctx.AddBasicBlock(fun, "then")
	elseBB := b.ctx.AddBasicBlock(fun, "else")
	mergeBB := b.ctx.AddBasicBlock(fun, "ifcont")
	b.builder.CreateCondBr(cond, thenBB, elseBB)

	b.builder.SetInsertPointAtEnd(thenBB)
	thenValue, err := b.codegenExpr(expr.Then)
	if err != nil {
		return llvm.Value{}, err
	}
	b.builder.CreateBr(mergeBB)
	thenBB = b.builder.GetInsertBlock()

	b.builder.SetInsertPointAtEnd(elseBB)
	elseValue, err := b.codegenExpr(expr.Else)
	if err != nil {
		return llvm.Value{}, err
	}
	b.builder.CreateBr(mergeBB)
	elseBB = b.builder.GetInsertBlock()

	b.builder.SetInsertPointAtEnd(mergeBB)
	phi := b.builder.CreatePHI(b.double(), "iftmp")
	phi.AddIncoming([]llvm.Value{thenValue, elseValue}, []llvm.BasicBlock{thenBB, elseBB})
	return phi, nil
}

// codegenFor expects a lowered loop, so Step is never nil.
func (b *Backend) codegenFor(expr *kaleidoscope.ForExpr) (llvm.Value, error) {
	start, err := b.codegenExpr(expr.Start)
	if err != nil {
		return llvm.Value{}, err
	}
	preheaderBB := b.builder.GetInsertBlock()
	fun := preheaderBB.Parent()
	loopBB := b.ctx.AddBasicBlock(fun, "loop")
	b.builder.CreateBr(loopBB)
	b.builder.SetInsertPointAtEnd(loopBB)

	variable := b.builder.CreatePHI(b.double(), expr.Var)
	variable.AddIncoming([]llvm.Value{start}, []llvm.BasicBlock{preheaderBB})
	old, shadowed := b.values[expr.Var]
	b.values[expr.Var] = variable
	defer func() {
		if shadowed {
			b.values[expr.Var] = old
		} else {
			delete(b.values, expr.Var)
		}
	}()

	if _, err := b.codegenExpr(expr.Body); err != nil {
		return llvm.Value{}, err
	}
	step, err := b.codegenExpr(expr.Step)
	if err != nil {
		return llvm.Value{}, err
	}
	next := b.builder.CreateFAdd(variable, step, "nextvar")
	end, err := b.codegenExpr(expr.End)
	if err != nil {
		return llvm.Value{}, err
	}
	endCond := b.builder.CreateFCmp(llvm.FloatONE, end, llvm.ConstFloat(b.double(), 0), "loopcond")
	loopEndBB := b.builder.GetInsertBlock()
	afterBB := b.ctx.AddBasicBlock(fun, "afterloop")
	b.builder.CreateCondBr(endCond, loopBB, afterBB)
	b.builder.SetInsertPointAtEnd(afterBB)
	variable.AddIncoming([]llvm.Value{next}, []llvm.BasicBlock{loopEndBB})
	return llvm.ConstFloat(b.double(), 0), nil
}

var initJIT sync.Once

// Execute hands the current module to the JIT, runs h and opens a new module
// for the statements that follow.
func (b *Backend) Execute(h kaleidoscope.FunctionHandle) (float64, error) {
	f, ok := h.(*Function)
	if !ok {
		return 0, fmt.Errorf("llvm backend cannot execute %T", h)
	}
	if f.value.ParamsCount() != 0 {
		return 0, fmt.Errorf("cannot execute %s: it takes %d arguments", f.name, f.value.ParamsCount())
	}
	initJIT.Do(func() {
		llvm.LinkInMCJIT()
		llvm.InitializeNativeTarget()
		llvm.InitializeNativeAsmPrinter()
	})
	if !b.hasEngine {
		engine, err := llvm.NewMCJITCompiler(b.module, llvm.NewMCJITCompilerOptions())
		if err != nil {
			return 0, fmt.Errorf("create execution engine: %w", err)
		}
		b.engine = engine
		b.hasEngine = true
	} else {
		b.engine.AddModule(b.module)
	}
	b.openModule()
	result := b.engine.RunFunction(f.value, []llvm.GenericValue{})
	defer result.Dispose()
	return result.Float(b.double()), nil
}
