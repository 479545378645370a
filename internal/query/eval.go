package query

import (
	"fmt"
	"strings"
	"time"
)

// Row resolves a column reference to its value for Eval.
type Row func(column string) interface{}

// Eval reports whether a row satisfies the predicate. It mirrors the SQL
// rendering and exists to sanity-check filter construction without a
// database; a nil node accepts every row.
func Eval(n Node, row Row) bool {
	if n == nil {
		return true
	}
	switch node := n.(type) {
	case emptyNode:
		return false
	case andNode:
		for _, c := range node.children {
			if !Eval(c, row) {
				return false
			}
		}
		return true
	case orNode:
		for _, c := range node.children {
			if Eval(c, row) {
				return true
			}
		}
		return false
	case cmpNode:
		return evalCmp(node, row(node.column))
	case inNode:
		got := stringify(row(node.column))
		for _, v := range node.values {
			if node.fold && strings.EqualFold(got, stringify(v)) {
				return true
			}
			if !node.fold && got == stringify(v) {
				return true
			}
		}
		return false
	case nullNode:
		isNull := row(node.column) == nil
		return isNull != node.negate
	case matchNode:
		return strings.Contains(strings.ToLower(stringify(row(node.column))), strings.ToLower(node.term))
	}
	return true
}

func evalCmp(node cmpNode, got interface{}) bool {
	switch node.op {
	case "=":
		if node.fold {
			return strings.EqualFold(stringify(got), stringify(node.value))
		}
		return equal(got, node.value)
	case "<>":
		return !equal(got, node.value)
	case ">=":
		if gt, ok := got.(time.Time); ok {
			if wt, ok := node.value.(time.Time); ok {
				return !gt.Before(wt)
			}
		}
		return stringify(got) >= stringify(node.value)
	}
	return false
}

func equal(a, b interface{}) bool {
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
	}
	return stringify(a) == stringify(b)
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
