package execution

import (
	"github.com/dbsys/heapdb/common"
	"github.com/dbsys/heapdb/storage"
)

// ComparisonType enumerates the comparison operators predicates support.
type ComparisonType int

const (
	Equal ComparisonType = iota
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
)

func (c ComparisonType) String() string {
	switch c {
	case Equal:
		return "="
	case NotEqual:
		return "!="
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	}
	return "?"
}

// satisfied reports whether `a op b` holds. Both values must have the same
// type.
func (c ComparisonType) satisfied(a, b common.Value) bool {
	cmp := a.Compare(b)
	switch c {
	case Equal:
		return cmp == 0
	case NotEqual:
		return cmp != 0
	case LessThan:
		return cmp < 0
	case LessThanOrEqual:
		return cmp <= 0
	case GreaterThan:
		return cmp > 0
	case GreaterThanOrEqual:
		return cmp >= 0
	}
	panic("unknown comparison type")
}

// JoinPredicate compares one column of the outer tuple against one column of
// the inner tuple.
type JoinPredicate struct {
	Op          ComparisonType
	LeftColumn  int
	RightColumn int
}

// Eval reports whether the pair of tuples satisfies the predicate.
func (p JoinPredicate) Eval(left, right storage.Tuple) bool {
	return p.Op.satisfied(left.GetValue(p.LeftColumn), right.GetValue(p.RightColumn))
}

// FieldPredicate compares one column of a tuple against a constant.
type FieldPredicate struct {
	Op      ComparisonType
	Column  int
	Operand common.Value
}

// Eval reports whether the tuple satisfies the predicate.
func (p FieldPredicate) Eval(t storage.Tuple) bool {
	return p.Op.satisfied(t.GetValue(p.Column), p.Operand)
}
