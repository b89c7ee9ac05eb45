package kaleidoscope

import (
	"sort"
)

type Symbol struct {
	Proto   *Prototype
	Defined bool
}

func (s *Symbol) Arity() int {
	return len(s.Proto.Params)
}

// SymbolTable is the function table a backend compiles against. It is owned
// by the backend and passed explicitly, never shared through globals.
type SymbolTable struct {
	symbols map[string]*Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		symbols: make(map[string]*Symbol),
	}
}

func (t *SymbolTable) Lookup(name string) (*Symbol, bool) {
	sym, ok := t.symbols[name]
	return sym, ok
}

// Declare records proto. Redeclaring a name is allowed only with the same
// arity; parameter names must be unique.
func (t *SymbolTable) Declare(proto *Prototype) (*Symbol, error) {
	if proto.IsAnonymous() {
		return nil, NewError(CompileError, proto.Pos, "anonymous function cannot be declared")
	}
	if err := checkParams(proto); err != nil {
		return nil, err
	}
	if sym, ok := t.symbols[proto.Name]; ok {
		if sym.Arity() != len(proto.Params) {
			return nil, NewError(CompileError, proto.Pos, "function %s redeclared with %d parameters, previously declared with %d",
				proto.Name, len(proto.Params), sym.Arity())
		}
		if !sym.Defined {
			sym.Proto = proto
		}
		return sym, nil
	}
	sym := &Symbol{Proto: proto}
	t.symbols[proto.Name] = sym
	return sym, nil
}

// BeginDefinition declares proto and rejects a second body for the same name.
func (t *SymbolTable) BeginDefinition(proto *Prototype) (*Symbol, error) {
	if sym, ok := t.symbols[proto.Name]; ok && sym.Defined {
		return nil, NewError(CompileError, proto.Pos, "function %s cannot be redefined", proto.Name)
	}
	sym, err := t.Declare(proto)
	if err != nil {
		return nil, err
	}
	sym.Proto = proto
	return sym, nil
}

func (t *SymbolTable) MarkDefined(name string) {
	if sym, ok := t.symbols[name]; ok {
		sym.Defined = true
	}
}

func (t *SymbolTable) Names() []string {
	names := make([]string, 0, len(t.symbols))
	for name := range t.symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkParams(proto *Prototype) error {
	seen := make(map[string]struct{}, len(proto.Params))
	for _, param := range proto.Params {
		if _, ok := seen[param]; ok {
			return NewError(CompileError, proto.Pos, "duplicate parameter %s in prototype of %s", param, proto.Name)
		}
		seen[param] = struct{}{}
	}
	return nil
}
