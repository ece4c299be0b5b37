package mir

import "fmt"

// ErrRecursiveFunction is returned when a user-defined function's call graph
// contains a cycle (spec §4.1 "user-defined functions are inlined
// (recursion is rejected before anything else)").
type ErrRecursiveFunction struct{ Function string }

func (e *ErrRecursiveFunction) Error() string {
	return fmt.Sprintf("mir: recursive function %q is not supported", e.Function)
}

// ErrUnknownOperationID is returned when an operand references an
// operation id that does not exist in the program (spec §6 "The JIT
// rejects any MIR that references an unknown operation id").
type ErrUnknownOperationID struct{ ID OperationID }

func (e *ErrUnknownOperationID) Error() string {
	return fmt.Sprintf("mir: reference to unknown operation id %d", e.ID)
}

// ErrUnusedInput is returned when a declared input is never referenced by
// any operation or output (spec §6 "...or an unused input").
type ErrUnusedInput struct{ Name string }

func (e *ErrUnusedInput) Error() string {
	return fmt.Sprintf("mir: input %q is never used", e.Name)
}

// OperandParam is a third OperandKind, local to function-body substitution:
// it names one of a Function's formal parameters by position (Operand.Index).
// It never appears in a Program's top-level Operations, only inside a
// Function.Body before Normalize inlines it away.
const OperandParam OperandKind = 100

// idAllocator hands out fresh, program-unique operation ids above the
// highest id already in use, so inlined/expanded copies never collide with
// the original program's ids.
type idAllocator struct{ next OperationID }

func newIDAllocator(prog *Program) *idAllocator {
	var max OperationID
	for _, op := range prog.Operations {
		if op.ID >= max {
			max = op.ID + 1
		}
	}
	for _, fn := range prog.Functions {
		for _, op := range fn.Body {
			if op.ID >= max {
				max = op.ID + 1
			}
		}
	}
	return &idAllocator{next: max}
}

func (a *idAllocator) alloc() OperationID {
	id := a.next
	a.next++
	return id
}

// checkAcyclic rejects functions whose call graph (Map/Reduce references
// inside a body, by Function name) contains a cycle, including
// self-recursion — checked "before anything else" per spec §4.1.
func checkAcyclic(fns map[string]Function) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(fns))
	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return &ErrRecursiveFunction{Function: name}
		}
		color[name] = gray
		fn, ok := fns[name]
		if ok {
			for _, op := range fn.Body {
				if op.Function != "" {
					if err := visit(op.Function); err != nil {
						return err
					}
				}
			}
		}
		color[name] = black
		return nil
	}
	for name := range fns {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// normalizer carries the state threaded through MIR preprocessing: the
// function table, the fresh-id allocator, and the output operation list
// being assembled.
type normalizer struct {
	fns   map[string]Function
	alloc *idAllocator
	out   []Operation
	// copied records the ids of top-level operations emitted verbatim
	// (their ids are unchanged, so later operands can still refer to them
	// by original id).
	copied map[OperationID]bool
}

// Normalize performs the MIR preprocessing pass (spec §4.1 "MIR
// preprocessing"): rejects recursive functions, inlines function calls
// (the only call sites being Map/Reduce bodies in this model — Nada
// programs invoke user functions exclusively through map/reduce/zip/unzip),
// and expands Map/Reduce/Zip/Unzip into their underlying per-element
// arithmetic/array operations. Compound types (arrays, tuples) are left
// intact, as the resulting flat operation list is what bytecode generation
// walks directly.
func Normalize(prog *Program) (*Program, error) {
	fns := make(map[string]Function, len(prog.Functions))
	for _, fn := range prog.Functions {
		fns[fn.Name] = fn
	}
	if err := checkAcyclic(fns); err != nil {
		return nil, err
	}
	if err := validateReferences(prog); err != nil {
		return nil, err
	}

	n := &normalizer{fns: fns, alloc: newIDAllocator(prog), copied: map[OperationID]bool{}}
	for _, op := range prog.Operations {
		if err := n.emit(op); err != nil {
			return nil, err
		}
	}

	out := &Program{
		Parties:    prog.Parties,
		Inputs:     prog.Inputs,
		Outputs:    prog.Outputs,
		Literals:   prog.Literals,
		Operations: n.out,
	}
	return out, nil
}

// validateReferences rejects MIR that references an unknown operation id or
// declares an input that nothing ever consumes (spec §6).
func validateReferences(prog *Program) error {
	ids := make(map[OperationID]bool, len(prog.Operations))
	for _, op := range prog.Operations {
		ids[op.ID] = true
	}
	used := make(map[string]bool, len(prog.Inputs))
	checkOperands := func(ops []Operand) error {
		for _, o := range ops {
			switch o.Kind {
			case OperandOperation:
				if !ids[o.ID] {
					return &ErrUnknownOperationID{ID: o.ID}
				}
			case OperandInput:
				used[o.Name] = true
			}
		}
		return nil
	}
	for _, op := range prog.Operations {
		if err := checkOperands(op.Operands); err != nil {
			return err
		}
	}
	for _, fn := range prog.Functions {
		for _, op := range fn.Body {
			if err := checkOperands(op.Operands); err != nil {
				return err
			}
		}
	}
	for _, in := range prog.Inputs {
		if !used[in.Name] {
			return &ErrUnusedInput{Name: in.Name}
		}
	}
	for _, out := range prog.Outputs {
		if !ids[out.Source] {
			return &ErrUnknownOperationID{ID: out.Source}
		}
	}
	return nil
}

// emit appends op (expanding Map/Reduce/Zip/Unzip, or copying verbatim) to
// n.out, preserving op.ID for every non-expanded operation so downstream
// Output.Source / operand references keep resolving.
func (n *normalizer) emit(op Operation) error {
	switch op.Kind {
	case OpMap:
		return n.emitMap(op)
	case OpReduce:
		return n.emitReduce(op)
	case OpZip:
		return n.emitZip(op)
	case OpUnzip:
		return n.emitUnzip(op)
	default:
		n.out = append(n.out, op)
		n.copied[op.ID] = true
		return nil
	}
}

// elementType returns the element type of an Array type, or the type
// itself when it is not an Array.
func elementType(arr Type) Type {
	if arr.Kind == Array {
		return *arr.Inner
	}
	return arr
}

// emitMap expands `result = map(array, f)` into one inlined copy of f's
// body per array element, writing an OpNewArray collecting the per-element
// results (spec §4.1 "map/reduce/zip/unzip are expanded to their underlying
// array operations").
func (n *normalizer) emitMap(op Operation) error {
	if len(op.Operands) != 1 || op.ResultType.Kind != Array {
		return fmt.Errorf("mir: malformed Map operation %d", op.ID)
	}
	fn, ok := n.fns[op.Function]
	if !ok {
		return fmt.Errorf("mir: map references unknown function %q", op.Function)
	}
	size := op.ResultType.Size
	elemIDs := make([]OperationID, size)
	for i := 0; i < size; i++ {
		accessorID := n.alloc.alloc()
		n.out = append(n.out, Operation{
			ID:            accessorID,
			Kind:          OpArrayAccessor,
			Operands:      []Operand{op.Operands[0]},
			AccessorIndex: i,
			ResultType:    *op.ResultType.Inner,
		})
		args := []Operand{{Kind: OperandOperation, ID: accessorID}}
		elemIDs[i] = n.inlineFunction(fn, args)
	}
	n.out = append(n.out, Operation{
		ID:         op.ID,
		Kind:       OpNewArray,
		Operands:   idsToOperands(elemIDs),
		ResultType: op.ResultType,
	})
	n.copied[op.ID] = true
	return nil
}

// emitReduce expands `result = reduce(array, initial, f)` into a left fold:
// acc_0 = initial; acc_{i+1} = f(acc_i, array[i]).
func (n *normalizer) emitReduce(op Operation) error {
	if len(op.Operands) != 2 {
		return fmt.Errorf("mir: malformed Reduce operation %d", op.ID)
	}
	fn, ok := n.fns[op.Function]
	if !ok {
		return fmt.Errorf("mir: reduce references unknown function %q", op.Function)
	}
	arrayOperand, initialOperand := op.Operands[0], op.Operands[1]
	size := n.arrayLen(arrayOperand)
	acc := initialOperand
	for i := 0; i < size; i++ {
		accessorID := n.alloc.alloc()
		n.out = append(n.out, Operation{
			ID:            accessorID,
			Kind:          OpArrayAccessor,
			Operands:      []Operand{arrayOperand},
			AccessorIndex: i,
			ResultType:    op.ResultType,
		})
		args := []Operand{acc, {Kind: OperandOperation, ID: accessorID}}
		foldID := n.inlineFunction(fn, args)
		acc = Operand{Kind: OperandOperation, ID: foldID}
	}
	// Alias op.ID to the final accumulator via an identity-shaped Add-with-
	// zero is wasteful; instead splice a trivial forwarding Not-of-Not is
	// also wasteful. Simplest: if the fold produced at least one step, retag
	// the last emitted operation's id to op.ID; otherwise (empty array)
	// forward the initial value directly.
	if size == 0 {
		n.out = append(n.out, Operation{ID: op.ID, Kind: OpNot, Operands: []Operand{initialOperand}, ResultType: op.ResultType})
	} else {
		n.out[len(n.out)-1].ID = op.ID
	}
	n.copied[op.ID] = true
	return nil
}

// emitZip expands `result = zip(a, b)` into an array of pairwise tuples.
func (n *normalizer) emitZip(op Operation) error {
	if len(op.Operands) != 2 || op.ResultType.Kind != Array {
		return fmt.Errorf("mir: malformed Zip operation %d", op.ID)
	}
	size := op.ResultType.Size
	tupleIDs := make([]OperationID, size)
	for i := 0; i < size; i++ {
		leftID, rightID := n.alloc.alloc(), n.alloc.alloc()
		n.out = append(n.out,
			Operation{ID: leftID, Kind: OpArrayAccessor, Operands: []Operand{op.Operands[0]}, AccessorIndex: i, ResultType: op.ResultType.Inner.Elements[0]},
			Operation{ID: rightID, Kind: OpArrayAccessor, Operands: []Operand{op.Operands[1]}, AccessorIndex: i, ResultType: op.ResultType.Inner.Elements[1]},
		)
		tupleID := n.alloc.alloc()
		n.out = append(n.out, Operation{
			ID:         tupleID,
			Kind:       OpNewTuple,
			Operands:   []Operand{{Kind: OperandOperation, ID: leftID}, {Kind: OperandOperation, ID: rightID}},
			ResultType: *op.ResultType.Inner,
		})
		tupleIDs[i] = tupleID
	}
	n.out = append(n.out, Operation{ID: op.ID, Kind: OpNewArray, Operands: idsToOperands(tupleIDs), ResultType: op.ResultType})
	n.copied[op.ID] = true
	return nil
}

// emitUnzip expands `result = unzip(arrayOfTuples)` into a tuple of arrays,
// the inverse of emitZip.
func (n *normalizer) emitUnzip(op Operation) error {
	if len(op.Operands) != 1 || op.ResultType.Kind != Tuple || len(op.ResultType.Elements) != 2 {
		return fmt.Errorf("mir: malformed Unzip operation %d", op.ID)
	}
	size := n.arrayLen(op.Operands[0])
	leftElems := make([]OperationID, size)
	rightElems := make([]OperationID, size)
	for i := 0; i < size; i++ {
		pairID := n.alloc.alloc()
		n.out = append(n.out, Operation{ID: pairID, Kind: OpArrayAccessor, Operands: []Operand{op.Operands[0]}, AccessorIndex: i, ResultType: op.ResultType})
		leftID, rightID := n.alloc.alloc(), n.alloc.alloc()
		n.out = append(n.out,
			Operation{ID: leftID, Kind: OpTupleAccessor, Operands: []Operand{{Kind: OperandOperation, ID: pairID}}, AccessorIndex: 0, ResultType: op.ResultType.Elements[0]},
			Operation{ID: rightID, Kind: OpTupleAccessor, Operands: []Operand{{Kind: OperandOperation, ID: pairID}}, AccessorIndex: 1, ResultType: op.ResultType.Elements[1]},
		)
		leftElems[i] = leftID
		rightElems[i] = rightID
	}
	leftArrID, rightArrID := n.alloc.alloc(), n.alloc.alloc()
	n.out = append(n.out,
		Operation{ID: leftArrID, Kind: OpNewArray, Operands: idsToOperands(leftElems), ResultType: op.ResultType.Elements[0]},
		Operation{ID: rightArrID, Kind: OpNewArray, Operands: idsToOperands(rightElems), ResultType: op.ResultType.Elements[1]},
	)
	n.out = append(n.out, Operation{
		ID:         op.ID,
		Kind:       OpNewTuple,
		Operands:   []Operand{{Kind: OperandOperation, ID: leftArrID}, {Kind: OperandOperation, ID: rightArrID}},
		ResultType: op.ResultType,
	})
	n.copied[op.ID] = true
	return nil
}

// arrayLen looks up the static size of an array-typed operand by scanning
// already-emitted operations for its producer (or, for inputs, the program
// would have supplied the type — here restricted to operation-produced
// arrays, which is the only case Reduce/Unzip require in practice since the
// front-end always materialises a Load before folding over an input array).
func (n *normalizer) arrayLen(operand Operand) int {
	if operand.Kind != OperandOperation {
		return 0
	}
	for _, op := range n.out {
		if op.ID == operand.ID && op.ResultType.Kind == Array {
			return op.ResultType.Size
		}
	}
	return 0
}

// inlineFunction clones fn.Body with fresh ids, substituting OperandParam
// references with args, appends the clone to n.out, and returns the id of
// the cloned return operation.
func (n *normalizer) inlineFunction(fn Function, args []Operand) OperationID {
	remap := make(map[OperationID]OperationID, len(fn.Body))
	for _, op := range fn.Body {
		remap[op.ID] = n.alloc.alloc()
	}
	for _, op := range fn.Body {
		clone := op
		clone.ID = remap[op.ID]
		clone.Operands = make([]Operand, len(op.Operands))
		for i, o := range op.Operands {
			switch o.Kind {
			case OperandParam:
				clone.Operands[i] = args[o.Index]
			case OperandOperation:
				clone.Operands[i] = Operand{Kind: OperandOperation, ID: remap[o.ID]}
			default:
				clone.Operands[i] = o
			}
		}
		n.out = append(n.out, clone)
	}
	return remap[fn.ReturnID]
}

func idsToOperands(ids []OperationID) []Operand {
	out := make([]Operand, len(ids))
	for i, id := range ids {
		out[i] = Operand{Kind: OperandOperation, ID: id}
	}
	return out
}
