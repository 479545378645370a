package query

import (
	"fmt"
	"strings"
)

// Node is one predicate in the filter tree. Trees are built by the visibility
// layer and rendered to SQL exactly once, so intermediate shapes never leak
// into repositories.
type Node interface {
	isNode()
}

type andNode struct{ children []Node }

type orNode struct{ children []Node }

type cmpNode struct {
	column string
	op     string
	value  interface{}
	fold   bool
}

type inNode struct {
	column string
	values []interface{}
	fold   bool
}

type nullNode struct {
	column string
	negate bool
}

type matchNode struct {
	column string
	term   string
}

// emptyNode selects zero rows. Visibility decisions that deny a slice are
// expressed with this node instead of an error.
type emptyNode struct{}

func (andNode) isNode()   {}
func (orNode) isNode()    {}
func (cmpNode) isNode()   {}
func (inNode) isNode()    {}
func (nullNode) isNode()  {}
func (matchNode) isNode() {}
func (emptyNode) isNode() {}

// And conjoins the given nodes, flattening nested conjunctions and dropping
// nils. A single Empty child collapses the whole conjunction.
func And(nodes ...Node) Node {
	children := flatten(nodes, func(n Node) []Node {
		if a, ok := n.(andNode); ok {
			return a.children
		}
		return nil
	})
	for _, c := range children {
		if IsEmpty(c) {
			return Empty()
		}
	}
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	}
	return andNode{children: children}
}

// Or disjoins the given nodes, flattening nested disjunctions and dropping
// nils and Empty children (false is the identity for OR).
func Or(nodes ...Node) Node {
	children := flatten(nodes, func(n Node) []Node {
		if o, ok := n.(orNode); ok {
			return o.children
		}
		return nil
	})
	kept := children[:0]
	for _, c := range children {
		if !IsEmpty(c) {
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		if len(children) > 0 {
			return Empty()
		}
		return nil
	case 1:
		return kept[0]
	}
	return orNode{children: kept}
}

// Eq matches column = value.
func Eq(column string, value interface{}) Node {
	return cmpNode{column: column, op: "=", value: value}
}

// EqFold matches column = value case-insensitively.
func EqFold(column string, value string) Node {
	return cmpNode{column: column, op: "=", value: value, fold: true}
}

// Ne matches column <> value.
func Ne(column string, value interface{}) Node {
	return cmpNode{column: column, op: "<>", value: value}
}

// Gte matches column >= value.
func Gte(column string, value interface{}) Node {
	return cmpNode{column: column, op: ">=", value: value}
}

// In matches column membership in values. An empty set selects zero rows.
func In(column string, values []string) Node {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return inNode{column: column, values: out}
}

// IsNull matches rows where the column is NULL.
func IsNull(column string) Node {
	return nullNode{column: column}
}

// NotNull matches rows where the column is not NULL.
func NotNull(column string) Node {
	return nullNode{column: column, negate: true}
}

// Match performs a case-insensitive substring search on the column.
func Match(column, term string) Node {
	return matchNode{column: column, term: term}
}

// Empty selects zero rows.
func Empty() Node {
	return emptyNode{}
}

// IsEmpty reports whether the node provably selects zero rows.
func IsEmpty(n Node) bool {
	_, ok := n.(emptyNode)
	return ok
}

// ToSQL renders the tree into a WHERE-clause fragment with positional
// placeholders starting at startIdx. A nil node renders as a tautology so
// callers can always interpolate the result.
func ToSQL(n Node, startIdx int) (string, []interface{}) {
	if n == nil {
		return "1 = 1", nil
	}
	var args []interface{}
	clause := render(n, &args, startIdx)
	return clause, args
}

func render(n Node, args *[]interface{}, startIdx int) string {
	switch node := n.(type) {
	case emptyNode:
		return "1 = 0"
	case andNode:
		parts := make([]string, len(node.children))
		for i, c := range node.children {
			parts[i] = render(c, args, startIdx)
		}
		return "(" + strings.Join(parts, " AND ") + ")"
	case orNode:
		parts := make([]string, len(node.children))
		for i, c := range node.children {
			parts[i] = render(c, args, startIdx)
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	case cmpNode:
		*args = append(*args, node.value)
		placeholder := fmt.Sprintf("$%d", startIdx+len(*args)-1)
		if node.fold {
			return fmt.Sprintf("LOWER(%s) %s LOWER(%s)", node.column, node.op, placeholder)
		}
		return fmt.Sprintf("%s %s %s", node.column, node.op, placeholder)
	case inNode:
		if len(node.values) == 0 {
			return "1 = 0"
		}
		placeholders := make([]string, len(node.values))
		for i, v := range node.values {
			*args = append(*args, v)
			placeholders[i] = fmt.Sprintf("$%d", startIdx+len(*args)-1)
		}
		return fmt.Sprintf("%s IN (%s)", node.column, strings.Join(placeholders, ", "))
	case nullNode:
		if node.negate {
			return node.column + " IS NOT NULL"
		}
		return node.column + " IS NULL"
	case matchNode:
		*args = append(*args, "%"+node.term+"%")
		return fmt.Sprintf("%s ILIKE $%d", node.column, startIdx+len(*args)-1)
	}
	return "1 = 1"
}

func flatten(nodes []Node, expand func(Node) []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if inner := expand(n); inner != nil {
			out = append(out, inner...)
			continue
		}
		out = append(out, n)
	}
	return out
}
