package kaleidoscope

import (
	"fmt"
	"io"
	"math"
)

type Builtin struct {
	Arity int
	Call  func(out io.Writer, args []float64) float64
}

func unary(f func(float64) float64) Builtin {
	return Builtin{
		Arity: 1,
		Call: func(_ io.Writer, args []float64) float64 {
			return f(args[0])
		},
	}
}

// Builtins are the natives an extern declaration can bind to in the evaluator.
func Builtins() map[string]Builtin {
	return map[string]Builtin{
		"putchard": {
			Arity: 1,
			Call: func(out io.Writer, args []float64) float64 {
				fmt.Fprintf(out, "%c", byte(args[0]))
				return 0
			},
		},
		"printd": {
			Arity: 1,
			Call: func(out io.Writer, args []float64) float64 {
				fmt.Fprintf(out, "%f\n", args[0])
				return 0
			},
		},
		"sin":  unary(math.Sin),
		"cos":  unary(math.Cos),
		"sqrt": unary(math.Sqrt),
		"exp":  unary(math.Exp),
		"log":  unary(math.Log),
		"fabs": unary(math.Abs),
	}
}
