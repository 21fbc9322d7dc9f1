package form

type ConditionOperator string

const (
	OpEquals    ConditionOperator = "equals"
	OpNotEquals ConditionOperator = "not_equals"
	OpContains  ConditionOperator = "contains"
	OpNotEmpty  ConditionOperator = "not_empty"
	OpEmpty     ConditionOperator = "empty"
)

func (op ConditionOperator) Valid() bool {
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpNotEmpty, OpEmpty:
		return true
	}
	return false
}

// TakesValue reports whether the operator compares against Condition.Value.
func (op ConditionOperator) TakesValue() bool {
	return op != OpEmpty && op != OpNotEmpty
}

type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

func (op LogicOperator) Valid() bool {
	return op == LogicAnd || op == LogicOr
}

type Condition struct {
	FieldID  string            `json:"fieldId"`
	Operator ConditionOperator `json:"operator"`
	Value    string            `json:"value"`
}

// Logic is a visibility rule. A nil *Logic means the field is always visible.
type Logic struct {
	Conditions []Condition   `json:"conditions"`
	Operator   LogicOperator `json:"operator"`
}

func (l *Logic) Clone() *Logic {
	if l == nil {
		return nil
	}
	c := &Logic{Operator: l.Operator}
	if l.Conditions != nil {
		c.Conditions = append([]Condition(nil), l.Conditions...)
	}
	return c
}

// References reports whether any condition targets fieldID.
func (l *Logic) References(fieldID string) bool {
	if l == nil {
		return false
	}
	for _, c := range l.Conditions {
		if c.FieldID == fieldID {
			return true
		}
	}
	return false
}
