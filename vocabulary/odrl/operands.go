package odrl

// Operator is an ODRL core constraint operator.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNeq      Operator = "neq"
	OpLt       Operator = "lt"
	OpLteq     Operator = "lteq"
	OpGt       Operator = "gt"
	OpGteq     Operator = "gteq"
	OpIsA      Operator = "isA"
	OpIsAnyOf  Operator = "isAnyOf"
	OpIsNoneOf Operator = "isNoneOf"
)

// Operators returns all core operators in a stable order.
func Operators() []Operator {
	return []Operator{OpEq, OpNeq, OpLt, OpLteq, OpGt, OpGteq, OpIsA, OpIsAnyOf, OpIsNoneOf}
}

// IsValid reports whether the operator is part of the core set.
func (o Operator) IsValid() bool {
	switch o {
	case OpEq, OpNeq, OpLt, OpLteq, OpGt, OpGteq, OpIsA, OpIsAnyOf, OpIsNoneOf:
		return true
	}
	return false
}

// IRI returns the full IRI for the operator.
func (o Operator) IRI() string {
	return Namespace + string(o)
}

// LeftOperand identifies the property a constraint restricts.
type LeftOperand string

const (
	OperandDateTime    LeftOperand = "dateTime"
	OperandCount       LeftOperand = "count"
	OperandElapsedTime LeftOperand = "elapsedTime"
	OperandPayAmount   LeftOperand = "payAmount"
	OperandPercentage  LeftOperand = "percentage"
	OperandSpatial     LeftOperand = "spatial"
	OperandPurpose     LeftOperand = "purpose"
	OperandRecipient   LeftOperand = "recipient"
)

// OperandInfo describes a left operand: which operators are compatible with
// its value type, and the expected literal datatype if any.
type OperandInfo struct {
	Label      string
	Definition string
	Operators  []Operator
	Datatype   string
}

// operands is the registry of core left operands. Operator compatibility and
// datatypes follow the ODRL 2.2 common vocabulary: ordered value types take
// comparison operators, named value types take set membership operators.
var operands = map[LeftOperand]OperandInfo{
	OperandDateTime: {
		Label:      "Datetime",
		Definition: "The date (and optional time) of exercising the action",
		Operators:  []Operator{OpEq, OpLt, OpLteq, OpGt, OpGteq},
		Datatype:   XSDDate,
	},
	OperandCount: {
		Label:      "Count",
		Definition: "Numeric count of executions of the action",
		Operators:  []Operator{OpEq, OpLt, OpLteq, OpGt, OpGteq},
		Datatype:   XSDInteger,
	},
	OperandElapsedTime: {
		Label:      "Elapsed Time",
		Definition: "A continuous elapsed time period",
		Operators:  []Operator{OpEq, OpLt, OpLteq},
		Datatype:   XSDDuration,
	},
	OperandPayAmount: {
		Label:      "Payment Amount",
		Definition: "The amount of a financial payment",
		Operators:  []Operator{OpEq, OpLt, OpLteq, OpGt, OpGteq},
		Datatype:   XSDDecimal,
	},
	OperandPercentage: {
		Label:      "Asset Percentage",
		Definition: "A percentage amount of the target asset",
		Operators:  []Operator{OpEq, OpLt, OpLteq, OpGt, OpGteq},
		Datatype:   XSDDecimal,
	},
	OperandSpatial: {
		Label:      "Geospatial Named Area",
		Definition: "A named geospatial area",
		Operators:  []Operator{OpEq, OpIsA, OpIsAnyOf, OpIsNoneOf},
	},
	OperandPurpose: {
		Label:      "Purpose",
		Definition: "A defined purpose for exercising the action",
		Operators:  []Operator{OpEq, OpIsA, OpIsAnyOf, OpIsNoneOf},
	},
	OperandRecipient: {
		Label:      "Recipient",
		Definition: "The party receiving the result of the action",
		Operators:  []Operator{OpEq, OpIsA, OpIsAnyOf, OpIsNoneOf},
	},
}

// IsValid reports whether the operand is part of the core set.
func (l LeftOperand) IsValid() bool {
	_, ok := operands[l]
	return ok
}

// IRI returns the full IRI for the left operand.
func (l LeftOperand) IRI() string {
	return Namespace + string(l)
}

// Info returns the operand registry entry.
func (l LeftOperand) Info() (OperandInfo, bool) {
	info, ok := operands[l]
	return info, ok
}

// Compatible reports whether the operator is valid for this operand's value
// type. Unknown operands are never compatible.
func (l LeftOperand) Compatible(op Operator) bool {
	info, ok := operands[l]
	if !ok {
		return false
	}
	for _, valid := range info.Operators {
		if valid == op {
			return true
		}
	}
	return false
}

// LeftOperands returns all core left operands in a stable order.
func LeftOperands() []LeftOperand {
	return []LeftOperand{
		OperandDateTime, OperandCount, OperandElapsedTime, OperandPayAmount,
		OperandPercentage, OperandSpatial, OperandPurpose, OperandRecipient,
	}
}
