// Package outline nests a flat, heading-leveled element list into a forest.
package outline

// LeafLevel is the level given to non-heading elements. It is deeper than any
// real heading, so such elements always attach under the nearest open heading.
const LeafLevel = 999

// Item is one flat input element.
type Item[T any] struct {
	Name    string
	Element T
	Level   int
}

// Tree is a node of the built forest.
type Tree[T any] struct {
	Name     string
	Element  T
	Level    int
	Children []*Tree[T]
}

// Build nests items by level, preserving input order.
//
// A stack holds the path from the current root to the last inserted node.
// An item starts a new root when the stack is empty or its level is <= 1;
// otherwise entries at the same or a deeper level are popped and the item is
// attached to the new top.
func Build[T any](items []Item[T]) []*Tree[T] {
	type stackEntry struct {
		level int
		node  *Tree[T]
	}

	var roots []*Tree[T]
	var stack []stackEntry

	for _, it := range items {
		node := &Tree[T]{Name: it.Name, Element: it.Element, Level: it.Level}

		if len(stack) == 0 || it.Level <= 1 {
			roots = append(roots, node)
			stack = []stackEntry{{level: it.Level, node: node}}
			continue
		}

		for len(stack) > 0 && stack[len(stack)-1].level >= it.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, node)
		} else {
			// Every open entry was as deep or deeper: the item closes the whole
			// branch and begins a new one.
			roots = append(roots, node)
		}
		stack = append(stack, stackEntry{level: it.Level, node: node})
	}

	return roots
}

// Walk visits every node of the forest in pre-order. Returning false from fn
// stops the walk.
func Walk[T any](forest []*Tree[T], fn func(*Tree[T]) bool) bool {
	for _, t := range forest {
		if !fn(t) {
			return false
		}
		if !Walk(t.Children, fn) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the forest.
func Count[T any](forest []*Tree[T]) int {
	n := 0
	Walk(forest, func(*Tree[T]) bool {
		n++
		return true
	})
	return n
}
