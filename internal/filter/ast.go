package filter

// Node is a node of a parsed filter expression. The concrete types are
// ComparisonExpr, LogicalExpr, NotExpr, FunctionCallExpr, PropertyExpr and
// LiteralExpr; the set is closed.
type Node interface {
	filterNode()
}

// CompareOp is a comparison operator as written in filter text
type CompareOp string

const (
	OpEq CompareOp = "eq"
	OpNe CompareOp = "ne"
	OpGt CompareOp = "gt"
	OpLt CompareOp = "lt"
	OpGe CompareOp = "ge"
	OpLe CompareOp = "le"
)

// LogicalOp joins two boolean expressions
type LogicalOp string

const (
	OpAnd LogicalOp = "and"
	OpOr  LogicalOp = "or"
)

// ComparisonExpr represents a comparison (e.g., category eq 'Work').
// The grammar only produces a PropertyExpr on the left and a LiteralExpr on
// the right.
type ComparisonExpr struct {
	Op    CompareOp
	Left  Node
	Right Node
}

func (*ComparisonExpr) filterNode() {}

// LogicalExpr represents a binary and/or
type LogicalExpr struct {
	Op    LogicalOp
	Left  Node
	Right Node
}

func (*LogicalExpr) filterNode() {}

// NotExpr negates its source expression
type NotExpr struct {
	Source Node
}

func (*NotExpr) filterNode() {}

// FunctionCallExpr represents a function call (e.g., contains(title,'foo'))
type FunctionCallExpr struct {
	Func string
	Args []Node
}

func (*FunctionCallExpr) filterNode() {}

// PropertyExpr references a column by name
type PropertyExpr struct {
	Name string
}

func (*PropertyExpr) filterNode() {}

// LiteralExpr holds a string, int64, decimal.Decimal or bool value
type LiteralExpr struct {
	Value interface{}
}

func (*LiteralExpr) filterNode() {}

// Walk calls fn for node and each of its descendants in depth-first,
// left-to-right order. Returning false from fn skips the node's children.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *ComparisonExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *LogicalExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *NotExpr:
		Walk(n.Source, fn)
	case *FunctionCallExpr:
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
	}
}

// Properties returns the distinct property names referenced by node, in the
// order they first appear.
func Properties(node Node) []string {
	var names []string
	seen := make(map[string]struct{})
	Walk(node, func(n Node) bool {
		if p, ok := n.(*PropertyExpr); ok {
			if _, dup := seen[p.Name]; !dup {
				seen[p.Name] = struct{}{}
				names = append(names, p.Name)
			}
		}
		return true
	})
	return names
}

// countLiterals returns the number of LiteralExpr nodes under node.
func countLiterals(node Node) int {
	count := 0
	Walk(node, func(n Node) bool {
		if _, ok := n.(*LiteralExpr); ok {
			count++
		}
		return true
	})
	return count
}
