package compiler

import "fmt"

// Opcode is a single bytecode instruction tag (spec §4.B).
//
// "x OP x" is a "stack picture" describing the state of the stack before and
// after execution of the instruction. OP<k>/<s>/<argc> indicates an
// immediate one-byte operand that indexes into the specified table
// (constants, locals, upvalues) or counts arguments; OP<off16> indicates a
// big-endian two-byte jump offset.
type Opcode uint8

const ( //nolint:revive
	CONSTANT Opcode = iota //          - CONSTANT<k>         value
	NIL                    //          - NIL                 Nil
	TRUE                   //          - TRUE                True
	FALSE                  //          - FALSE               False
	POP                    //          x POP                 -
	GET_GLOBAL             //          - GET_GLOBAL<k>       value
	SET_GLOBAL             //      value SET_GLOBAL<k>       value
	GET_LOCAL              //          - GET_LOCAL<s>        value
	SET_LOCAL              //      value SET_LOCAL<s>        value
	GET_UPVALUE            //          - GET_UPVALUE<s>      value
	SET_UPVALUE            //      value SET_UPVALUE<s>      value
	DEFINE_GLOBAL          //      value DEFINE_GLOBAL<k>    -
	EQUAL                  //        a b EQUAL                bool
	GREATER                //        a b GREATER              bool
	LESS                   //        a b LESS                 bool
	ADD                    //        a b ADD                  a+b
	SUBTRACT               //        a b SUBTRACT             a-b
	MULTIPLY               //        a b MULTIPLY             a*b
	DIVIDE                 //        a b DIVIDE               a/b
	NOT                    //          x NOT                 !truthy(x)
	NEGATE                 //          x NEGATE              -x
	PRINT                  //          x PRINT                -
	JUMP                   //          - JUMP<off16>          -
	JUMP_IF_FALSE          //          x JUMP_IF_FALSE<off16> x   (not popped)
	LOOP                   //          - LOOP<off16>          -
	CALL                   // fn a1..an CALL<argc>           result
	CLOSURE                //          - CLOSURE<k>{is_local,index}*n  closure
	RETURN                 //      value RETURN                -

	maxOpcode
)

var opcodeNames = [...]string{
	CONSTANT:      "CONSTANT",
	NIL:           "NIL",
	TRUE:          "TRUE",
	FALSE:         "FALSE",
	POP:           "POP",
	GET_GLOBAL:    "GET_GLOBAL",
	SET_GLOBAL:    "SET_GLOBAL",
	GET_LOCAL:     "GET_LOCAL",
	SET_LOCAL:     "SET_LOCAL",
	GET_UPVALUE:   "GET_UPVALUE",
	SET_UPVALUE:   "SET_UPVALUE",
	DEFINE_GLOBAL: "DEFINE_GLOBAL",
	EQUAL:         "EQUAL",
	GREATER:       "GREATER",
	LESS:          "LESS",
	ADD:           "ADD",
	SUBTRACT:      "SUBTRACT",
	MULTIPLY:      "MULTIPLY",
	DIVIDE:        "DIVIDE",
	NOT:           "NOT",
	NEGATE:        "NEGATE",
	PRINT:         "PRINT",
	JUMP:          "JUMP",
	JUMP_IF_FALSE: "JUMP_IF_FALSE",
	LOOP:          "LOOP",
	CALL:          "CALL",
	CLOSURE:       "CLOSURE",
	RETURN:        "RETURN",
}

func (op Opcode) String() string {
	if int(op) >= len(opcodeNames) || opcodeNames[op] == "" {
		return fmt.Sprintf("<invalid opcode %d>", op)
	}
	return opcodeNames[op]
}

// operandSize returns the number of immediate operand bytes that follow the
// opcode in the bytecode stream, not counting CLOSURE's variable-length
// upvalue descriptor tail (the disassembler and dispatch loop handle that one
// specially).
func operandSize(op Opcode) int {
	switch op {
	case CONSTANT, GET_GLOBAL, SET_GLOBAL, GET_LOCAL, SET_LOCAL,
		GET_UPVALUE, SET_UPVALUE, DEFINE_GLOBAL, CALL, CLOSURE:
		return 1
	case JUMP, JUMP_IF_FALSE, LOOP:
		return 2
	default:
		return 0
	}
}
