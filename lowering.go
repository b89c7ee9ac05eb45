package kaleidoscope

const DefaultLoopStep = 1.0

// LowerFunction returns a copy of fn in which every loop without an explicit
// step counts by DefaultLoopStep. fn itself is left untouched.
func LowerFunction(fn *Function) *Function {
	return &Function{
		Proto: fn.Proto,
		Body:  lowerExpr(fn.Body),
	}
}

func lowerExpr(expr Expr) Expr {
	switch ex := expr.(type) {
	case *NumberExpr:
		return &NumberExpr{Pos: ex.Pos, Value: ex.Value}
	case *VariableExpr:
		return &VariableExpr{Pos: ex.Pos, Name: ex.Name}
	case *BinaryExpr:
		return &BinaryExpr{
			Pos:   ex.Pos,
			Op:    ex.Op,
			Left:  lowerExpr(ex.Left),
			Right: lowerExpr(ex.Right),
		}
	case *CallExpr:
		args := make([]Expr, 0, len(ex.Args))
		for _, arg := range ex.Args {
			args = append(args, lowerExpr(arg))
		}
		return &CallExpr{
			Pos:    ex.Pos,
			Callee: ex.Callee,
			Args:   args,
		}
	case *IfExpr:
		return &IfExpr{
			Pos:  ex.Pos,
			Cond: lowerExpr(ex.Cond),
			Then: lowerExpr(ex.Then),
			Else: lowerExpr(ex.Else),
		}
	case *ForExpr:
		var step Expr = &NumberExpr{Pos: ex.Pos, Value: DefaultLoopStep}
		if ex.Step != nil {
			step = lowerExpr(ex.Step)
		}
		return &ForExpr{
			Pos:   ex.Pos,
			Var:   ex.Var,
			Start: lowerExpr(ex.Start),
			End:   lowerExpr(ex.End),
			Step:  step,
			Body:  lowerExpr(ex.Body),
		}
	}
	panic("unreachable")
}
