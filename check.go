package kaleidoscope

// Resolve checks that every variable in fn is bound by a parameter or an
// enclosing loop, and that every call names a known function with the
// right number of arguments. fn's own prototype must already be declared
// in symbols unless fn is anonymous.
func Resolve(fn *Function, symbols *SymbolTable) error {
	scope := NewScope(nil)
	for _, param := range fn.Proto.Params {
		scope.Define(param)
	}
	return resolveExpr(fn.Body, scope, symbols)
}

func resolveExpr(expr Expr, scope *Scope, symbols *SymbolTable) error {
	switch ex := expr.(type) {
	case *NumberExpr:
		return nil
	case *VariableExpr:
		if !scope.Has(ex.Name) {
			return NewError(CompileError, ex.Pos, "unknown variable name: %s", ex.Name)
		}
		return nil
	case *BinaryExpr:
		switch ex.Op {
		case '+', '-', '*', '<':
		default:
			return NewError(CompileError, ex.Pos, "invalid binary operator: %c", ex.Op)
		}
		if err := resolveExpr(ex.Left, scope, symbols); err != nil {
			return err
		}
		return resolveExpr(ex.Right, scope, symbols)
	case *CallExpr:
		sym, ok := symbols.Lookup(ex.Callee)
		if !ok {
			return NewError(CompileError, ex.Pos, "unknown function: %s", ex.Callee)
		}
		if sym.Arity() != len(ex.Args) {
			return NewError(CompileError, ex.Pos, "incorrect number of arguments passed to %s: expected %d, but got %d",
				ex.Callee, sym.Arity(), len(ex.Args))
		}
		for _, arg := range ex.Args {
			if err := resolveExpr(arg, scope, symbols); err != nil {
				return err
			}
		}
		return nil
	case *IfExpr:
		for _, e := range []Expr{ex.Cond, ex.Then, ex.Else} {
			if err := resolveExpr(e, scope, symbols); err != nil {
				return err
			}
		}
		return nil
	case *ForExpr:
		if err := resolveExpr(ex.Start, scope, symbols); err != nil {
			return err
		}
		inner := NewScope(scope)
		inner.Define(ex.Var)
		for _, e := range []Expr{ex.End, ex.Step, ex.Body} {
			if e == nil {
				continue
			}
			if err := resolveExpr(e, inner, symbols); err != nil {
				return err
			}
		}
		return nil
	}
	panic("unreachable")
}

type Scope struct {
	Parent *Scope
	Vars   map[string]struct{}
}

func NewScope(parent *Scope) *Scope {
	return &Scope{
		Parent: parent,
		Vars:   map[string]struct{}{},
	}
}

func (s *Scope) Define(name string) {
	s.Vars[name] = struct{}{}
}

func (s *Scope) Has(name string) bool {
	for scope := s; scope != nil; scope = scope.Parent {
		if _, ok := scope.Vars[name]; ok {
			return true
		}
	}
	return false
}
