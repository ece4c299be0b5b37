package bytecode

import (
	"fmt"
	"math/big"

	"github.com/nilmpc/mpcnode/internal/field"
	"github.com/nilmpc/mpcnode/internal/mir"
)

// opKindTable maps a normalized mir.OpKind onto the corresponding bytecode
// OpKind; Map/Reduce/Zip/Unzip never reach this table because mir.Normalize
// has already expanded them.
var opKindTable = map[mir.OpKind]OpKind{
	mir.OpAdd:            OpAdd,
	mir.OpSub:            OpSub,
	mir.OpMul:            OpMul,
	mir.OpMod:            OpMod,
	mir.OpDiv:            OpDiv,
	mir.OpPow:            OpPow,
	mir.OpLessThan:       OpLessThan,
	mir.OpEquals:         OpEquals,
	mir.OpNot:            OpNot,
	mir.OpReveal:         OpReveal,
	mir.OpIfElse:         OpIfElse,
	mir.OpNewArray:       OpNewArray,
	mir.OpNewTuple:       OpNewTuple,
	mir.OpArrayAccessor:  OpArrayAccessor,
	mir.OpTupleAccessor:  OpTupleAccessor,
	mir.OpInnerProduct:   OpInnerProduct,
	mir.OpRandom:         OpRandom,
	mir.OpPublicKeyDerive: OpPublicKeyDerive,
	mir.OpEcdsaSign:      OpEcdsaSign,
	mir.OpEddsaSign:      OpEddsaSign,
}

// builder accumulates a Program while walking normalized MIR in topological
// order, maintaining the "MIR-id → bytecode-address table" spec §4.1 calls
// for (heapAddr), plus memoised Load addresses for inputs/literals so each
// is materialised at most once.
type builder struct {
	field     *field.Field
	prog      *Program
	heapAddr  map[mir.OperationID]Address
	inputAddr map[string]Address
	litAddr   map[string]Address
	// loadedInput/loadedLiteral memoise the single Load op materialised for
	// each name, so repeated references to the same input/literal reuse one
	// Heap slot instead of re-loading.
	loadedInput   map[string]Address
	loadedLiteral map[string]Address
}

// Lower translates a normalized MIR program into bytecode (spec §4.1
// "Bytecode generation"). Callers must pass the output of mir.Normalize,
// not a raw front-end program.
func Lower(f *field.Field, prog *mir.Program) (*Program, error) {
	b := &builder{
		field:         f,
		prog:          &Program{Parties: prog.Parties},
		heapAddr:      make(map[mir.OperationID]Address),
		inputAddr:     make(map[string]Address),
		litAddr:       make(map[string]Address),
		loadedInput:   make(map[string]Address),
		loadedLiteral: make(map[string]Address),
	}

	for i, in := range prog.Inputs {
		addr := Address{Index: i, Type: Input}
		b.inputAddr[in.Name] = addr
		b.prog.Inputs = append(b.prog.Inputs, InputSlot{Name: in.Name, Party: in.Party, Type: in.Type})
	}
	for i, lit := range prog.Literals {
		canon, err := canonicalizeLiteral(f, lit.Value)
		if err != nil {
			return nil, fmt.Errorf("bytecode: literal %q: %w", lit.Name, err)
		}
		addr := Address{Index: i, Type: Literal}
		b.litAddr[lit.Name] = addr
		b.prog.Literals = append(b.prog.Literals, LiteralSlot{Name: lit.Name, Type: lit.Type, Value: canon})
	}

	order, err := topoSort(prog.Operations)
	if err != nil {
		return nil, err
	}
	byID := make(map[mir.OperationID]mir.Operation, len(prog.Operations))
	for _, op := range prog.Operations {
		byID[op.ID] = op
	}
	for _, id := range order {
		op := byID[id]
		if err := b.lowerOp(op); err != nil {
			return nil, err
		}
	}

	for _, out := range prog.Outputs {
		src, ok := b.heapAddr[out.Source]
		if !ok {
			return nil, &mir.ErrUnknownOperationID{ID: out.Source}
		}
		b.prog.Outputs = append(b.prog.Outputs, OutputSlot{Name: out.Name, Source: src, Type: out.Type, Party: out.Party})
	}
	return b.prog, nil
}

// canonicalizeLiteral parses a decimal (possibly signed) literal and
// reduces it into non-negative ℤ_P form (spec §4.1 "Negative literals are
// canonicalised into ℤ_P form at lowering time so downstream code never
// sees BigInt negatives").
func canonicalizeLiteral(f *field.Field, decimal string) (string, error) {
	v, ok := new(big.Int).SetString(decimal, 10)
	if !ok {
		return "", fmt.Errorf("malformed decimal literal %q", decimal)
	}
	elem := f.Elem(v)
	return elem.BigInt().String(), nil
}

// resolveOperand materialises a Load op for Input/Literal operands on first
// use and otherwise returns the already-known Heap address of an
// OperandOperation.
func (b *builder) resolveOperand(o mir.Operand) (Address, error) {
	switch o.Kind {
	case mir.OperandOperation:
		addr, ok := b.heapAddr[o.ID]
		if !ok {
			return Address{}, &mir.ErrUnknownOperationID{ID: o.ID}
		}
		return addr, nil
	case mir.OperandInput:
		return b.materializeLoad(o.Name, b.inputAddr, b.loadedInput, Input)
	case mir.OperandLiteral:
		return b.materializeLoad(o.Name, b.litAddr, b.loadedLiteral, Literal)
	default:
		return Address{}, fmt.Errorf("bytecode: unsupported operand kind %d", o.Kind)
	}
}

// materializeLoad emits one Load op per distinct name the first time it is
// referenced, memoising the resulting Heap address in cache so later
// references to the same name reuse it (spec §3 "Inputs and literals are
// materialised by explicit Load operations that copy from Input/Literal
// space to Heap").
func (b *builder) materializeLoad(name string, table, cache map[string]Address, space AddressType) (Address, error) {
	if dest, ok := cache[name]; ok {
		return dest, nil
	}
	srcAddr, ok := table[name]
	if !ok {
		return Address{}, fmt.Errorf("bytecode: reference to unknown %s %q", space, name)
	}
	dest := Address{Index: b.prog.OperationsCount(), Type: Heap}
	b.prog.Ops = append(b.prog.Ops, Op{Kind: OpLoad, Dest: dest, Operand: srcAddr})
	cache[name] = dest
	return dest, nil
}

func (b *builder) lowerOp(op mir.Operation) error {
	kind, ok := opKindTable[op.Kind]
	if !ok {
		return fmt.Errorf("bytecode: no lowering for MIR op kind %v (operation %d)", op.Kind, op.ID)
	}
	operands := make([]Address, len(op.Operands))
	for i, o := range op.Operands {
		addr, err := b.resolveOperand(o)
		if err != nil {
			return err
		}
		operands[i] = addr
	}

	dest := Address{Index: b.prog.OperationsCount(), Type: Heap}
	out := Op{Kind: kind, Dest: dest, Type: op.ResultType, AccessorIndex: op.AccessorIndex, SourceMIRID: op.ID}
	switch kind {
	case OpNot, OpReveal, OpArrayAccessor, OpTupleAccessor:
		out.Operand = operands[0]
	case OpIfElse:
		if len(operands) != 3 {
			return fmt.Errorf("bytecode: IfElse operation %d needs 3 operands, got %d", op.ID, len(operands))
		}
		out.Operands = operands // [cond, trueVal, falseVal]
	case OpNewArray, OpNewTuple:
		out.Operands = operands
	default:
		if len(operands) != 2 {
			return fmt.Errorf("bytecode: %s operation %d needs 2 operands, got %d", kind, op.ID, len(operands))
		}
		out.Left, out.Right = operands[0], operands[1]
	}

	b.prog.Ops = append(b.prog.Ops, out)
	b.heapAddr[op.ID] = dest
	return nil
}

// topoSort orders operations so every operand referencing another
// operation is emitted first (spec §4.1 "A plan of MIR operation ids is
// built in a topological order"), detecting cycles (which can only arise
// from a malformed/corrupted program since Normalize never introduces
// them).
func topoSort(ops []mir.Operation) ([]mir.OperationID, error) {
	byID := make(map[mir.OperationID]mir.Operation, len(ops))
	indegree := make(map[mir.OperationID]int, len(ops))
	dependents := make(map[mir.OperationID][]mir.OperationID)
	for _, op := range ops {
		byID[op.ID] = op
		if _, ok := indegree[op.ID]; !ok {
			indegree[op.ID] = 0
		}
	}
	for _, op := range ops {
		for _, o := range op.Operands {
			if o.Kind == mir.OperandOperation {
				indegree[op.ID]++
				dependents[o.ID] = append(dependents[o.ID], op.ID)
			}
		}
	}
	queue := make([]mir.OperationID, 0, len(ops))
	for _, op := range ops {
		if indegree[op.ID] == 0 {
			queue = append(queue, op.ID)
		}
	}
	order := make([]mir.OperationID, 0, len(ops))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	if len(order) != len(ops) {
		return nil, fmt.Errorf("bytecode: operation graph contains a cycle")
	}
	return order, nil
}
