// Package protocol implements the execution-ready protocol DAG the JIT
// lowers bytecode into: variant nodes tagged with an execution line (LOCAL,
// ONLINE, or a specific preprocessing kind) that the executor and the
// plan-construction pass operate on (spec §3 "Protocol node", §4.1
// "Bytecode → Protocol").
package protocol

import (
	"github.com/nilmpc/mpcnode/internal/bytecode"
	"github.com/nilmpc/mpcnode/internal/mir"
)

// Address reuses the bytecode package's (index, AddressType) pair: the
// protocol DAG addresses the same Heap/Input/Literal/Output spaces
// bytecode does, plus protocol-only Heap slots allocated for composite
// adapters (e.g. IfElse-with-secret-condition) that need intermediate
// results bytecode never materialised.
type Address = bytecode.Address

// ExecutionLineKind distinguishes how a protocol node executes.
type ExecutionLineKind int

const (
	Local ExecutionLineKind = iota
	Online
	Preprocessing
)

// PreprocessingKind enumerates the correlated-randomness element kinds the
// preprocessing pool tracks (spec §3 "Preprocessing pool"). MultiplicationTriple
// is not in the §3 enumeration's prose list but is required by §4.2's
// protocol table ("Mul(share·share) — consumes one triple"); both passages
// of spec.md are binding, so the pool model carries all ten kinds — see
// DESIGN.md.
type PreprocessingKind int

const (
	Compare PreprocessingKind = iota
	DivisionSecretDivisor
	Modulo
	EqualityPublicOutput
	TruncPr
	Trunc
	EqualitySecretOutput
	RandomInteger
	RandomBoolean
	MultiplicationTriple
)

func (k PreprocessingKind) String() string {
	names := [...]string{
		"Compare", "DivisionSecretDivisor", "Modulo", "EqualityPublicOutput",
		"TruncPr", "Trunc", "EqualitySecretOutput", "RandomInteger",
		"RandomBoolean", "MultiplicationTriple",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "Unknown"
	}
	return names[k]
}

// ExecutionLine tags a node with how it runs: LOCAL/ONLINE carry no further
// data, Preprocessing names which pool kind and how many elements it draws.
type ExecutionLine struct {
	Kind             ExecutionLineKind
	PreprocessingKey PreprocessingKind
	Consumes         int
}

func LocalLine() ExecutionLine  { return ExecutionLine{Kind: Local} }
func OnlineLine() ExecutionLine { return ExecutionLine{Kind: Online} }
func PrepLine(kind PreprocessingKind, count int) ExecutionLine {
	return ExecutionLine{Kind: Preprocessing, PreprocessingKey: kind, Consumes: count}
}

// Kind enumerates protocol node kinds (spec §4.2's protocol family table).
type Kind int

const (
	KindAdd Kind = iota
	KindSub
	KindMulSharePublic
	KindMulPublicPublic
	KindMulShareShare
	KindInnerProduct
	KindPrefixProduct
	KindMulTrunc
	KindNot
	KindIfElseLocal
	KindNewArray
	KindNewTuple
	KindArrayAccessor
	KindTupleAccessor
	KindRandom
	KindRandomBit
	KindRandomBitwise
	KindRandomQuaternary
	KindInvRandom
	KindBitAdder
	KindBitAdderMixed
	KindBitAdderSecret
	KindBitDecompose
	KindBitLessThan
	KindPostfixOr
	KindScale
	KindCompare
	KindLessThanZero
	KindQuaternaryLessThan
	KindEqualsPublic
	KindEqualsSecret
	KindDiv
	KindMod
	KindMod2M
	KindTruncPr
	KindPolyEval
	KindEcdsaDKG
	KindEcdsaAuxInfo
	KindEcdsaSign
	KindEddsaSign
	KindReveal
	KindConstant
)

func (k Kind) String() string {
	names := [...]string{
		"Add", "Sub", "MulSharePublic", "MulPublicPublic", "MulShareShare",
		"InnerProduct", "PrefixProduct", "MulTrunc", "Not", "IfElseLocal",
		"NewArray", "NewTuple", "ArrayAccessor", "TupleAccessor", "Random",
		"RandomBit", "RandomBitwise", "RandomQuaternary", "InvRandom",
		"BitAdder", "BitAdderMixed", "BitAdderSecret", "BitDecompose",
		"BitLessThan", "PostfixOr", "Scale", "Compare", "LessThanZero",
		"QuaternaryLessThan", "EqualsPublic", "EqualsSecret", "Div", "Mod",
		"Mod2M", "TruncPr", "PolyEval", "EcdsaDKG", "EcdsaAuxInfo",
		"EcdsaSign", "EddsaSign", "Reveal", "Constant",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "Unknown"
	}
	return names[k]
}

// Node is one protocol DAG entry (spec §3 "Protocol node": "kind, operand
// protocol addresses, result type, execution line ..., and the number of
// runtime elements it will draw from each pool").
type Node struct {
	Kind     Kind
	Dest     Address
	Operands []Address
	Type     mir.Type
	Line     ExecutionLine

	// AccessorIndex carries the logical element index for
	// ArrayAccessor/TupleAccessor, same convention as bytecode.Op.
	AccessorIndex int

	// ConstantValue holds the decimal, field-canonicalised value for
	// KindConstant nodes synthesised by the protocol layer itself (e.g. the
	// literal 1 the secret-IfElse expansion needs and which bytecode never
	// had a Literal slot for).
	ConstantValue string
}

// DAG is the complete, frozen protocol graph produced from a bytecode
// program, plus the aggregated preprocessing requirements the JIT computed
// while building it.
type DAG struct {
	Nodes        []Node
	Outputs      []bytecode.OutputSlot
	Requirements Requirements
}

// Requirements aggregates, per preprocessing element kind, the total count
// the program will consume (spec §4.1 "Requirements pass" / `ProgramRequirements`).
type Requirements struct {
	counts map[PreprocessingKind]int
}

func newRequirements() Requirements { return Requirements{counts: map[PreprocessingKind]int{}} }

func (r *Requirements) add(kind PreprocessingKind, n int) {
	if r.counts == nil {
		r.counts = map[PreprocessingKind]int{}
	}
	r.counts[kind] += n
}

// Add records that the program consumes n additional elements of kind.
// Exported for callers (tests, the executor's reservation path) that build
// a Requirements value outside of Translate.
func (r *Requirements) Add(kind PreprocessingKind, n int) { r.add(kind, n) }

// Count returns the total number of elements of kind this program consumes.
func (r Requirements) Count(kind PreprocessingKind) int { return r.counts[kind] }
