// Package order decides whether one node is guaranteed to execute before
// another within the same executable body.
package order

import "github.com/DeusData/codebase-execwalk/internal/syntax"

// Result is the outcome of an order query. Unknown is a real answer: callers
// must decide how to treat it.
type Result uint8

const (
	Unknown Result = iota
	Before
	NotBefore
)

func (r Result) String() string {
	switch r {
	case Before:
		return "Before"
	case NotBefore:
		return "NotBefore"
	}
	return "Unknown"
}

// ExecutesBefore reports whether a executes before b. Nodes in different
// files or different members are Unknown, as is any pair in a body that
// contains a goto.
//
// Within one body the answer comes from the lowest common ancestor of a and
// b: sequences run by position, exclusive branches yield NotBefore, loops are
// ordered within one iteration, and a node nested in another completes
// before it. Code inside a lambda runs no earlier than the point where the
// lambda is created; code inside a local function may run wherever the
// function is called, so it has no order relative to code outside it.
func ExecutesBefore(a, b *syntax.Node) Result {
	if a == nil || b == nil || a.File() != b.File() {
		return Unknown
	}
	if a == b {
		return NotBefore
	}
	root := executableRoot(a)
	if root == nil || root != executableRoot(b) || hasGoto(root) {
		return Unknown
	}
	return executesBefore(a, b)
}

func executesBefore(a, b *syntax.Node) Result {
	lca := syntax.CommonAncestor(a, b)
	if lca == nil {
		return Unknown
	}
	da, db := outermostDeferred(a, lca), outermostDeferred(b, lca)
	switch {
	case da != nil && db != nil:
		return Unknown
	case db != nil:
		if db.Kind() == syntax.KindLambda && executesBefore(a, db) == Before {
			return Before
		}
		return Unknown
	case da != nil:
		if da.Kind() == syntax.KindLambda && executesBefore(b, da) == Before {
			return NotBefore
		}
		return Unknown
	}

	switch {
	case lca != a && lca != b:
	case lca.Kind() == syntax.KindLambda:
		// a lambda is created before its body can run
		if lca == a {
			return Before
		}
		return NotBefore
	case lca.Kind() == syntax.KindLocalFunction:
		return Unknown
	case lca == b:
		return Before
	default:
		return NotBefore
	}
	return compare(lca, syntax.ChildToward(lca, a), syntax.ChildToward(lca, b))
}

// compare orders two distinct children of n.
func compare(n, ca, cb *syntax.Node) Result {
	switch n.Kind() {
	case syntax.KindIf, syntax.KindConditional:
		if isBranch(n, ca) && isBranch(n, cb) {
			return NotBefore
		}
		return byPhase(n, ca, cb, func(ch *syntax.Node) int {
			if ch == n.Field(syntax.RoleCondition) {
				return 0
			}
			return 1
		})
	case syntax.KindFor:
		return byPhase(n, ca, cb, forPhase(n))
	case syntax.KindWhile:
		return byPhase(n, ca, cb, func(ch *syntax.Node) int {
			if ch == n.Field(syntax.RoleBody) {
				return 1
			}
			return 0
		})
	case syntax.KindDo:
		return byPhase(n, ca, cb, func(ch *syntax.Node) int {
			if ch == n.Field(syntax.RoleCondition) {
				return 1
			}
			return 0
		})
	case syntax.KindForEach:
		return byPhase(n, ca, cb, func(ch *syntax.Node) int {
			switch ch {
			case n.Field(syntax.RoleRight), n.Field(syntax.RoleValue):
				return 0
			case n.Field(syntax.RoleBody):
				return 2
			}
			return 1
		})
	case syntax.KindSwitch:
		if ca.Kind() == syntax.KindSwitchSection && cb.Kind() == syntax.KindSwitchSection {
			if ca.Index() < cb.Index() && fallsInto(n, ca, cb) {
				return Before
			}
			return NotBefore
		}
		return byPhase(n, ca, cb, func(ch *syntax.Node) int {
			if ch.Kind() == syntax.KindSwitchSection {
				return 1
			}
			return 0
		})
	case syntax.KindTry:
		if ca.Kind() == syntax.KindCatch && cb.Kind() == syntax.KindCatch {
			return NotBefore
		}
		return byPhase(n, ca, cb, func(ch *syntax.Node) int {
			switch ch.Kind() {
			case syntax.KindCatch:
				return 1
			case syntax.KindFinally:
				return 2
			}
			return 0
		})
	case syntax.KindAssignment:
		return byPhase(n, ca, cb, func(ch *syntax.Node) int {
			if ch == n.Field(syntax.RoleRight) {
				return 0
			}
			return 1
		})
	}
	return bySource(ca, cb)
}

// byPhase orders children by the phase of n they run in, and by source order
// within a phase.
func byPhase(n, ca, cb *syntax.Node, phase func(*syntax.Node) int) Result {
	pa, pb := phase(ca), phase(cb)
	switch {
	case pa < pb:
		return Before
	case pa > pb:
		return NotBefore
	}
	return bySource(ca, cb)
}

func bySource(ca, cb *syntax.Node) Result {
	if ca.Index() < cb.Index() {
		return Before
	}
	return NotBefore
}

func forPhase(n *syntax.Node) func(*syntax.Node) int {
	init, cond, body, _ := syntax.ForParts(n)
	return func(ch *syntax.Node) int {
		switch ch {
		case cond:
			return 1
		case body:
			return 2
		}
		for _, i := range init {
			if ch == i {
				return 0
			}
		}
		return 3
	}
}

func isBranch(n, ch *syntax.Node) bool {
	return ch == n.Field(syntax.RoleConsequence) || ch == n.Field(syntax.RoleAlternative)
}

// fallsInto reports whether control entering section from can reach section
// to by falling through every section in between.
func fallsInto(sw, from, to *syntax.Node) bool {
	for _, ch := range sw.Children()[from.Index():to.Index()] {
		if ch.Kind() == syntax.KindSwitchSection && !fallsThrough(ch) {
			return false
		}
	}
	return true
}

// fallsThrough reports whether control can run off the end of a switch
// section into the next one.
func fallsThrough(section *syntax.Node) bool {
	spec := section.Spec()
	if spec == nil || !spec.SwitchFallthrough || section.RawKind() == "switch_rule" {
		return false
	}
	return !endsInJump(section)
}

// endsInJump reports whether the last statement of n, looking into a
// trailing block, transfers control out of it.
func endsInJump(n *syntax.Node) bool {
	for {
		children := n.Children()
		if len(children) == 0 {
			return false
		}
		last := children[len(children)-1]
		switch last.Kind() {
		case syntax.KindBreak, syntax.KindContinue, syntax.KindReturn, syntax.KindThrow, syntax.KindGoto:
			return true
		case syntax.KindStatement:
			return last.RawKind() == "yield_statement"
		case syntax.KindBlock:
			n = last
			continue
		}
		return false
	}
}

// deferred reports whether n holds code that runs when invoked rather than
// where it is written.
func deferred(n *syntax.Node) bool {
	return n.Kind() == syntax.KindLambda || n.Kind() == syntax.KindLocalFunction
}

// outermostDeferred returns the outermost lambda or local function strictly
// between n and ancestor. A lambda expression itself is evaluated in place.
func outermostDeferred(n, ancestor *syntax.Node) *syntax.Node {
	if n == ancestor {
		return nil
	}
	var found *syntax.Node
	for p := n.Parent(); p != nil && p != ancestor; p = p.Parent() {
		if deferred(p) {
			found = p
		}
	}
	return found
}

// executableRoot returns the member (or field initializer) whose body
// contains n, looking through lambdas and local functions.
func executableRoot(n *syntax.Node) *syntax.Node {
	body := syntax.EnclosingBody(n)
	for body != nil && deferred(body) {
		body = syntax.EnclosingBody(body)
	}
	return body
}

func hasGoto(root *syntax.Node) bool {
	found := false
	syntax.Inspect(root, func(n *syntax.Node) bool {
		if n.Kind() == syntax.KindGoto {
			found = true
		}
		return !found
	})
	return found
}
