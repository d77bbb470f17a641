package model

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// ContentMatch is a state in the deterministic automaton compiled from a
// content expression. It is used to check whether a sequence of child types
// is valid for a node, and to find the nodes needed to complete one.
type ContentMatch struct {
	// ValidEnd is true when the automaton may stop in this state.
	ValidEnd bool
	next     []matchEdge
}

type matchEdge struct {
	typ  *NodeType
	next *ContentMatch
}

var emptyContentMatch = &ContentMatch{ValidEnd: true}

// MatchType returns the state reached after a node of the given type, or nil.
func (m *ContentMatch) MatchType(t *NodeType) *ContentMatch {
	for _, e := range m.next {
		if e.typ == t {
			return e.next
		}
	}
	return nil
}

// MatchFragment runs the children of frag in [start, end) through the automaton.
func (m *ContentMatch) MatchFragment(frag *Fragment, start, end int) *ContentMatch {
	cur := m
	for i := start; cur != nil && i < end; i++ {
		cur = cur.MatchType(frag.Child(i).Type)
	}
	return cur
}

// InlineContent reports whether this state accepts inline nodes.
func (m *ContentMatch) InlineContent() bool {
	return len(m.next) > 0 && m.next[0].typ.IsInline()
}

// DefaultType returns the first type that can be generated at this point.
func (m *ContentMatch) DefaultType() *NodeType {
	for _, e := range m.next {
		if !(e.typ.IsText() || e.typ.HasRequiredAttrs()) {
			return e.typ
		}
	}
	return nil
}

// Compatible reports whether both states accept at least one common type.
func (m *ContentMatch) Compatible(other *ContentMatch) bool {
	for _, a := range m.next {
		for _, b := range other.next {
			if a.typ == b.typ {
				return true
			}
		}
	}
	return false
}

// EdgeCount returns the number of outgoing edges.
func (m *ContentMatch) EdgeCount() int { return len(m.next) }

// Edge returns the type and target state of the n-th outgoing edge.
func (m *ContentMatch) Edge(n int) (*NodeType, *ContentMatch) {
	e := m.next[n]
	return e.typ, e.next
}

// FillBefore finds a fragment that, inserted before the children of after
// starting at startIndex, makes them match. When toEnd is true the result must
// also reach a valid end state. It returns nil when no such fragment exists.
func (m *ContentMatch) FillBefore(after *Fragment, toEnd bool, startIndex int) *Fragment {
	seen := []*ContentMatch{m}
	var search func(match *ContentMatch, types []*NodeType) *Fragment
	search = func(match *ContentMatch, types []*NodeType) *Fragment {
		finished := match.MatchFragment(after, startIndex, after.ChildCount())
		if finished != nil && (!toEnd || finished.ValidEnd) {
			nodes := make([]*Node, 0, len(types))
			for _, tp := range types {
				n := tp.CreateAndFill(nil, nil, nil)
				if n == nil {
					return nil
				}
				nodes = append(nodes, n)
			}
			return FragmentFromArray(nodes)
		}
		for _, e := range match.next {
			if e.typ.IsText() || e.typ.HasRequiredAttrs() || containsMatch(seen, e.next) {
				continue
			}
			seen = append(seen, e.next)
			if found := search(e.next, append(append([]*NodeType(nil), types...), e.typ)); found != nil {
				return found
			}
		}
		return nil
	}
	return search(m, nil)
}

func containsMatch(list []*ContentMatch, m *ContentMatch) bool {
	for _, x := range list {
		if x == m {
			return true
		}
	}
	return false
}

func (m *ContentMatch) String() string {
	var seen []*ContentMatch
	var scan func(*ContentMatch)
	scan = func(cm *ContentMatch) {
		seen = append(seen, cm)
		for _, e := range cm.next {
			if !containsMatch(seen, e.next) {
				scan(e.next)
			}
		}
	}
	scan(m)
	indexOf := func(cm *ContentMatch) int {
		for i, x := range seen {
			if x == cm {
				return i
			}
		}
		return -1
	}
	var lines []string
	for i, cm := range seen {
		out := strconv.Itoa(i)
		if cm.ValidEnd {
			out += "*"
		}
		out += " "
		for j, e := range cm.next {
			if j > 0 {
				out += ", "
			}
			out += e.typ.Name + "->" + strconv.Itoa(indexOf(e.next))
		}
		lines = append(lines, out)
	}
	return strings.Join(lines, "\n")
}

// Content expression parsing.

type exprKind int

const (
	exprChoice exprKind = iota
	exprSeq
	exprPlus
	exprStar
	exprOpt
	exprRange
	exprName
)

type contentExpr struct {
	kind     exprKind
	exprs    []*contentExpr
	expr     *contentExpr
	min, max int
	value    *NodeType
}

type tokenStream struct {
	source string
	tokens []string
	pos    int
	inline int // -1 unknown, 0 block, 1 inline
	schema *Schema
	err    error
}

func tokenize(s string) []string {
	var tokens []string
	runes := []rune(s)
	isWord := func(r rune) bool { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case isWord(r):
			j := i
			for j < len(runes) && isWord(runes[j]) {
				j++
			}
			tokens = append(tokens, string(runes[i:j]))
			i = j
		default:
			tokens = append(tokens, string(r))
			i++
		}
	}
	return tokens
}

func (s *tokenStream) next() string {
	if s.pos < len(s.tokens) {
		return s.tokens[s.pos]
	}
	return ""
}

func (s *tokenStream) eat(tok string) bool {
	if s.next() == tok {
		s.pos++
		return true
	}
	return false
}

func (s *tokenStream) fail(msg string) {
	if s.err == nil {
		s.err = fmt.Errorf("%s (in content expression %q)", msg, s.source)
	}
}

func parseContentMatch(source string, schema *Schema) (*ContentMatch, error) {
	stream := &tokenStream{source: source, tokens: tokenize(source), inline: -1, schema: schema}
	if stream.next() == "" {
		return emptyContentMatch, nil
	}
	expr := parseExpr(stream)
	if stream.err == nil && stream.next() != "" {
		stream.fail("unexpected trailing text")
	}
	if stream.err != nil {
		return nil, stream.err
	}
	match := buildDFA(buildNFA(expr))
	if err := checkForDeadEnds(match); err != nil {
		return nil, fmt.Errorf("%v (in content expression %q)", err, source)
	}
	return match, nil
}

func parseExpr(s *tokenStream) *contentExpr {
	var exprs []*contentExpr
	for {
		exprs = append(exprs, parseExprSeq(s))
		if s.err != nil || !s.eat("|") {
			break
		}
	}
	if len(exprs) == 1 {
		return exprs[0]
	}
	return &contentExpr{kind: exprChoice, exprs: exprs}
}

func parseExprSeq(s *tokenStream) *contentExpr {
	var exprs []*contentExpr
	for {
		exprs = append(exprs, parseExprSubscript(s))
		if s.err != nil {
			break
		}
		if n := s.next(); n == "" || n == ")" || n == "|" {
			break
		}
	}
	if len(exprs) == 1 {
		return exprs[0]
	}
	return &contentExpr{kind: exprSeq, exprs: exprs}
}

func parseExprSubscript(s *tokenStream) *contentExpr {
	expr := parseExprAtom(s)
	for s.err == nil {
		switch {
		case s.eat("+"):
			expr = &contentExpr{kind: exprPlus, expr: expr}
		case s.eat("*"):
			expr = &contentExpr{kind: exprStar, expr: expr}
		case s.eat("?"):
			expr = &contentExpr{kind: exprOpt, expr: expr}
		case s.eat("{"):
			expr = parseExprRange(s, expr)
		default:
			return expr
		}
	}
	return expr
}

func parseNum(s *tokenStream) int {
	n, err := strconv.Atoi(s.next())
	if err != nil {
		s.fail(fmt.Sprintf("expected number, got %q", s.next()))
		return 0
	}
	s.pos++
	return n
}

func parseExprRange(s *tokenStream, expr *contentExpr) *contentExpr {
	min := parseNum(s)
	max := min
	if s.eat(",") {
		if s.next() != "}" {
			max = parseNum(s)
		} else {
			max = -1
		}
	}
	if !s.eat("}") {
		s.fail("unclosed braced range")
	}
	return &contentExpr{kind: exprRange, min: min, max: max, expr: expr}
}

func resolveName(s *tokenStream, name string) []*NodeType {
	if t := s.schema.nodes[name]; t != nil {
		return []*NodeType{t}
	}
	var result []*NodeType
	for _, t := range s.schema.nodeOrder {
		if t.inGroup(name) {
			result = append(result, t)
		}
	}
	if len(result) == 0 {
		s.fail(fmt.Sprintf("no node type or group %q found", name))
	}
	return result
}

func parseExprAtom(s *tokenStream) *contentExpr {
	if s.eat("(") {
		expr := parseExpr(s)
		if !s.eat(")") {
			s.fail("missing closing paren")
		}
		return expr
	}
	tok := s.next()
	if tok == "" || !isWordToken(tok) {
		s.fail(fmt.Sprintf("unexpected token %q", tok))
		return &contentExpr{kind: exprSeq}
	}
	var exprs []*contentExpr
	for _, t := range resolveName(s, tok) {
		inline := 0
		if t.IsInline() {
			inline = 1
		}
		if s.inline == -1 {
			s.inline = inline
		} else if s.inline != inline {
			s.fail("mixing inline and block content")
		}
		exprs = append(exprs, &contentExpr{kind: exprName, value: t})
	}
	s.pos++
	if len(exprs) == 1 {
		return exprs[0]
	}
	return &contentExpr{kind: exprChoice, exprs: exprs}
}

func isWordToken(tok string) bool {
	for _, r := range tok {
		if !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

// NFA construction.

type nfaEdge struct {
	term *NodeType
	to   int
}

type nfaGraph struct {
	nodes [][]*nfaEdge
}

func (g *nfaGraph) node() int {
	g.nodes = append(g.nodes, nil)
	return len(g.nodes) - 1
}

func (g *nfaGraph) edge(from, to int, term *NodeType) *nfaEdge {
	e := &nfaEdge{term: term, to: to}
	g.nodes[from] = append(g.nodes[from], e)
	return e
}

func connect(edges []*nfaEdge, to int) {
	for _, e := range edges {
		e.to = to
	}
}

func (g *nfaGraph) compile(expr *contentExpr, from int) []*nfaEdge {
	switch expr.kind {
	case exprChoice:
		var out []*nfaEdge
		for _, e := range expr.exprs {
			out = append(out, g.compile(e, from)...)
		}
		return out
	case exprSeq:
		if len(expr.exprs) == 0 {
			return []*nfaEdge{g.edge(from, -1, nil)}
		}
		for i := 0; ; i++ {
			next := g.compile(expr.exprs[i], from)
			if i == len(expr.exprs)-1 {
				return next
			}
			from = g.node()
			connect(next, from)
		}
	case exprStar:
		loop := g.node()
		g.edge(from, loop, nil)
		connect(g.compile(expr.expr, loop), loop)
		return []*nfaEdge{g.edge(loop, -1, nil)}
	case exprPlus:
		loop := g.node()
		connect(g.compile(expr.expr, from), loop)
		connect(g.compile(expr.expr, loop), loop)
		return []*nfaEdge{g.edge(loop, -1, nil)}
	case exprOpt:
		return append([]*nfaEdge{g.edge(from, -1, nil)}, g.compile(expr.expr, from)...)
	case exprRange:
		cur := from
		for i := 0; i < expr.min; i++ {
			next := g.node()
			connect(g.compile(expr.expr, cur), next)
			cur = next
		}
		if expr.max == -1 {
			connect(g.compile(expr.expr, cur), cur)
		} else {
			for i := expr.min; i < expr.max; i++ {
				next := g.node()
				g.edge(cur, next, nil)
				connect(g.compile(expr.expr, cur), next)
				cur = next
			}
		}
		return []*nfaEdge{g.edge(cur, -1, nil)}
	case exprName:
		return []*nfaEdge{g.edge(from, -1, expr.value)}
	}
	return nil
}

func buildNFA(expr *contentExpr) *nfaGraph {
	g := &nfaGraph{nodes: [][]*nfaEdge{nil}}
	connect(g.compile(expr, 0), g.node())
	return g
}

func (g *nfaGraph) nullFrom(node int) []int {
	var result []int
	var scan func(int)
	scan = func(n int) {
		edges := g.nodes[n]
		if len(edges) == 1 && edges[0].term == nil {
			scan(edges[0].to)
			return
		}
		result = append(result, n)
		for _, e := range edges {
			if e.term == nil && !containsInt(result, e.to) {
				scan(e.to)
			}
		}
	}
	scan(node)
	sort.Ints(result)
	return result
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func stateKey(states []int) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}

func buildDFA(g *nfaGraph) *ContentMatch {
	labeled := make(map[string]*ContentMatch)
	final := len(g.nodes) - 1

	type termSet struct {
		term   *NodeType
		states []int
	}

	var explore func(states []int) *ContentMatch
	explore = func(states []int) *ContentMatch {
		var out []*termSet
		for _, node := range states {
			for _, e := range g.nodes[node] {
				if e.term == nil {
					continue
				}
				var set *termSet
				for _, o := range out {
					if o.term == e.term {
						set = o
					}
				}
				for _, n := range g.nullFrom(e.to) {
					if set == nil {
						set = &termSet{term: e.term}
						out = append(out, set)
					}
					if !containsInt(set.states, n) {
						set.states = append(set.states, n)
					}
				}
			}
		}
		state := &ContentMatch{ValidEnd: containsInt(states, final)}
		labeled[stateKey(states)] = state
		for _, o := range out {
			sort.Ints(o.states)
			next := labeled[stateKey(o.states)]
			if next == nil {
				next = explore(o.states)
			}
			state.next = append(state.next, matchEdge{typ: o.term, next: next})
		}
		return state
	}
	return explore(g.nullFrom(0))
}

var errDeadEnd = errors.New("only non-generatable nodes in a required position")

func checkForDeadEnds(match *ContentMatch) error {
	work := []*ContentMatch{match}
	for i := 0; i < len(work); i++ {
		state := work[i]
		dead := !state.ValidEnd
		var nodes []string
		for _, e := range state.next {
			nodes = append(nodes, e.typ.Name)
			if dead && !(e.typ.IsText() || e.typ.HasRequiredAttrs()) {
				dead = false
			}
			if !containsMatch(work, e.next) {
				work = append(work, e.next)
			}
		}
		if dead {
			return fmt.Errorf("%w: %s", errDeadEnd, strings.Join(nodes, ", "))
		}
	}
	return nil
}
