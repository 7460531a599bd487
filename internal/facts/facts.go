// Package facts holds the immutable input relations produced by the
// bytecode lifter and the lookup indexes built over them.
package facts

// Entity keys. All of them are opaque lifter identifiers compared only for
// equality and order.
type (
	Stmt   string
	Block  string
	Func   string
	Var    string
	Opcode string
)

// GlobalEntryBlock is the block at bytecode address zero.
const GlobalEntryBlock Block = "0x0"

// Pseudo-opcodes emitted by the lifter.
const (
	OpCallPrivate   Opcode = "CALLPRIVATE"
	OpReturnPrivate Opcode = "RETURNPRIVATE"
	OpPHI           Opcode = "PHI"
)

// StmtOpcode is one Statement_Opcode row.
type StmtOpcode struct {
	Stmt Stmt   `msgpack:"s"`
	Op   Opcode `msgpack:"o"`
}

// StmtBlock is one Statement_Block row.
type StmtBlock struct {
	Stmt  Stmt  `msgpack:"s"`
	Block Block `msgpack:"b"`
}

// StmtNext is one Statement_Next row of the global non-PHI order.
type StmtNext struct {
	Stmt Stmt `msgpack:"s"`
	Next Stmt `msgpack:"n"`
}

// Operand is a Statement_Uses or Statement_Defines row. Pos is the raw
// operand slot as emitted by the lifter.
type Operand struct {
	Stmt Stmt `msgpack:"s"`
	Var  Var  `msgpack:"v"`
	Pos  int  `msgpack:"p"`
}

// VarValue is one Variable_Value row. Value is canonical 0x-prefixed hex.
type VarValue struct {
	Var   Var    `msgpack:"v"`
	Value string `msgpack:"x"`
}

// BlockEdge is a LocalBlockEdge or FallthroughEdge row.
type BlockEdge struct {
	From Block `msgpack:"f"`
	To   Block `msgpack:"t"`
}

// CallEdge is one CallGraphEdge row.
type CallEdge struct {
	Caller Block `msgpack:"b"`
	Callee Func  `msgpack:"f"`
}

// CallReturn is one FunctionCallReturn row: a private call from Caller into
// Callee that resumes in Cont.
type CallReturn struct {
	Caller Block `msgpack:"b"`
	Callee Func  `msgpack:"f"`
	Cont   Block `msgpack:"c"`
}

// FuncBlock is one InFunction row.
type FuncBlock struct {
	Block Block `msgpack:"b"`
	Func  Func  `msgpack:"f"`
}

// FuncSelector is one PublicFunctionSelector row.
type FuncSelector struct {
	Func     Func   `msgpack:"f"`
	Selector string `msgpack:"s"`
}

// FuncName is one HighLevelFunctionName row.
type FuncName struct {
	Func Func   `msgpack:"f"`
	Name string `msgpack:"n"`
}

// FuncArg is a function-keyed positional binding (FormalArgs,
// FormalReturnArgs). Pos is zero-based.
type FuncArg struct {
	Func Func `msgpack:"f"`
	Var  Var  `msgpack:"v"`
	Pos  int  `msgpack:"p"`
}

// BlockArg is a call-site keyed positional binding (ActualArgs,
// ActualReturnArgs). Pos is zero-based.
type BlockArg struct {
	Block Block `msgpack:"b"`
	Var   Var   `msgpack:"v"`
	Pos   int   `msgpack:"p"`
}

// BlockGas is one Block_Gas row.
type BlockGas struct {
	Block Block  `msgpack:"b"`
	Gas   uint64 `msgpack:"g"`
}

// BlockChunk is one Block_CodeChunkAccessed row.
type BlockChunk struct {
	Block Block  `msgpack:"b"`
	Chunk uint64 `msgpack:"c"`
}

// Relation is an input table this core does not interpret (dynamic storage
// snapshots, hash preimages). It is carried through unchanged.
type Relation struct {
	Name string     `msgpack:"n"`
	Rows [][]string `msgpack:"r"`
}
