package model

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Attrs is the attribute set of a node or mark. Values are scalars
// (string, bool, numbers) or nil.
type Attrs map[string]any

// AttributeSpec describes one attribute. An attribute without a default is required.
type AttributeSpec struct {
	Name       string
	Default    any
	HasDefault bool
}

// NodeSpec describes a node type.
type NodeSpec struct {
	Name string

	// Content is the content expression, e.g. "paragraph+" or "(text | image)*".
	// Empty means the node is a leaf.
	Content string

	// Marks lists the marks allowed inside this node: space-separated mark names
	// or groups, "_" for all marks, "" for none. Nil means the default: all marks
	// for nodes with inline content, none otherwise.
	Marks *string

	// Group is a space-separated list of groups this type belongs to.
	Group string

	Inline   bool
	Atom     bool
	Defining bool
	Attrs    []AttributeSpec
}

// MarkSpec describes a mark type.
type MarkSpec struct {
	Name  string
	Attrs []AttributeSpec

	// Inclusive controls whether the mark extends to content inserted at its end.
	// Nil means true.
	Inclusive *bool

	// Excludes lists the marks that cannot coexist with this one. Nil means only
	// marks of the same type; "" means none; "_" means all.
	Excludes *string

	Group string
}

// SchemaSpec is the ordered vocabulary of a schema. The order of node types
// determines default types; the order of mark types determines mark rank.
type SchemaSpec struct {
	Nodes   []NodeSpec
	Marks   []MarkSpec
	TopNode string
}

// Schema holds compiled node and mark types. A schema is immutable once built
// and is safe to share between editing sessions.
type Schema struct {
	Spec      SchemaSpec
	nodes     map[string]*NodeType
	nodeOrder []*NodeType
	marks     map[string]*MarkType
	markOrder []*MarkType
	topType   *NodeType
	textType  *NodeType
}

// NodeType is a compiled node specification.
type NodeType struct {
	Name   string
	Schema *Schema
	Spec   NodeSpec

	groups        []string
	defaultAttrs  Attrs
	contentMatch  *ContentMatch
	markSet       []*MarkType
	allMarks      bool
	inlineContent bool
	block         bool
	text          bool
}

// MarkType is a compiled mark specification.
type MarkType struct {
	Name   string
	Schema *Schema
	Spec   MarkSpec

	rank         int
	groups       []string
	defaultAttrs Attrs
	excluded     []*MarkType
	instance     *Mark
}

// NewSchema compiles a schema specification.
func NewSchema(spec SchemaSpec) (*Schema, error) {
	s := &Schema{
		Spec:  spec,
		nodes: make(map[string]*NodeType),
		marks: make(map[string]*MarkType),
	}

	for _, ns := range spec.Nodes {
		if ns.Name == "" {
			return nil, fmt.Errorf("%w: node spec without name", ErrInvalidSchema)
		}
		if _, dup := s.nodes[ns.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate node type %q", ErrInvalidSchema, ns.Name)
		}
		nt := &NodeType{
			Name:   ns.Name,
			Schema: s,
			Spec:   ns,
			groups: strings.Fields(ns.Group),
			text:   ns.Name == "text",
		}
		nt.block = !(ns.Inline || nt.text)
		nt.defaultAttrs = defaultAttrs(ns.Attrs)
		s.nodes[ns.Name] = nt
		s.nodeOrder = append(s.nodeOrder, nt)
	}

	top := spec.TopNode
	if top == "" {
		top = "doc"
	}
	s.topType = s.nodes[top]
	if s.topType == nil {
		return nil, fmt.Errorf("%w: top node type %q not defined", ErrInvalidSchema, top)
	}
	s.textType = s.nodes["text"]
	if s.textType == nil {
		return nil, fmt.Errorf("%w: every schema needs a type named 'text'", ErrInvalidSchema)
	}
	if len(s.textType.Spec.Attrs) > 0 {
		return nil, fmt.Errorf("%w: the text node type should not have attributes", ErrInvalidSchema)
	}

	for i, ms := range spec.Marks {
		if _, dup := s.marks[ms.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate mark type %q", ErrInvalidSchema, ms.Name)
		}
		mt := &MarkType{
			Name:   ms.Name,
			Schema: s,
			Spec:   ms,
			rank:   i,
			groups: strings.Fields(ms.Group),
		}
		mt.defaultAttrs = defaultAttrs(ms.Attrs)
		if mt.defaultAttrs != nil && len(ms.Attrs) == 0 {
			mt.instance = &Mark{Type: mt, Attrs: Attrs{}}
		}
		s.marks[ms.Name] = mt
		s.markOrder = append(s.markOrder, mt)
	}

	for _, nt := range s.nodeOrder {
		match, err := parseContentMatch(nt.Spec.Content, s)
		if err != nil {
			return nil, fmt.Errorf("%w: content of %q: %v", ErrInvalidSchema, nt.Name, err)
		}
		nt.contentMatch = match
		nt.inlineContent = match.InlineContent()
	}

	for _, nt := range s.nodeOrder {
		var expr string
		if nt.Spec.Marks != nil {
			expr = *nt.Spec.Marks
		} else if nt.inlineContent {
			expr = "_"
		}
		if expr == "_" {
			nt.allMarks = true
			continue
		}
		set, err := s.gatherMarks(expr)
		if err != nil {
			return nil, fmt.Errorf("%w: marks of %q: %v", ErrInvalidSchema, nt.Name, err)
		}
		nt.markSet = set
	}

	for _, mt := range s.markOrder {
		if mt.Spec.Excludes == nil {
			mt.excluded = []*MarkType{mt}
			continue
		}
		set, err := s.gatherMarks(*mt.Spec.Excludes)
		if err != nil {
			return nil, fmt.Errorf("%w: excludes of %q: %v", ErrInvalidSchema, mt.Name, err)
		}
		mt.excluded = set
	}

	return s, nil
}

func (s *Schema) gatherMarks(expr string) ([]*MarkType, error) {
	var found []*MarkType
	for _, name := range strings.Fields(expr) {
		if name == "_" {
			return append([]*MarkType(nil), s.markOrder...), nil
		}
		if mt, ok := s.marks[name]; ok {
			found = append(found, mt)
			continue
		}
		ok := false
		for _, mt := range s.markOrder {
			if mt.inGroup(name) {
				found = append(found, mt)
				ok = true
			}
		}
		if !ok {
			return nil, fmt.Errorf("%w: mark or group %q", ErrUnknownType, name)
		}
	}
	return found, nil
}

func defaultAttrs(specs []AttributeSpec) Attrs {
	attrs := Attrs{}
	for _, a := range specs {
		if !a.HasDefault {
			return nil
		}
		attrs[a.Name] = a.Default
	}
	return attrs
}

func computeAttrs(specs []AttributeSpec, given Attrs) (Attrs, error) {
	built := Attrs{}
	for _, a := range specs {
		v, ok := given[a.Name]
		if !ok {
			if !a.HasDefault {
				return nil, fmt.Errorf("%w: %q", ErrMissingAttr, a.Name)
			}
			v = a.Default
		}
		built[a.Name] = v
	}
	return built, nil
}

// NodeType returns the node type with the given name, or nil.
func (s *Schema) NodeType(name string) *NodeType { return s.nodes[name] }

// MarkType returns the mark type with the given name, or nil.
func (s *Schema) MarkType(name string) *MarkType { return s.marks[name] }

// TopNodeType returns the type of document root nodes.
func (s *Schema) TopNodeType() *NodeType { return s.topType }

// NodeTypes returns node types in declaration order.
func (s *Schema) NodeTypes() []*NodeType { return append([]*NodeType(nil), s.nodeOrder...) }

// MarkTypes returns mark types in rank order.
func (s *Schema) MarkTypes() []*MarkType { return append([]*MarkType(nil), s.markOrder...) }

// Node creates a checked node of the named type.
func (s *Schema) Node(typeName string, attrs Attrs, content []*Node, marks []*Mark) (*Node, error) {
	nt := s.nodes[typeName]
	if nt == nil {
		return nil, fmt.Errorf("%w: node type %q", ErrUnknownType, typeName)
	}
	return nt.Create(attrs, FragmentFromArray(content), marks)
}

// Text creates a text node. Empty text is rejected.
func (s *Schema) Text(text string, marks []*Mark) (*Node, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	return newTextNode(s.textType, text, MarkSetFrom(marks)), nil
}

// Mark creates a mark of the named type.
func (s *Schema) Mark(typeName string, attrs Attrs) (*Mark, error) {
	mt := s.marks[typeName]
	if mt == nil {
		return nil, fmt.Errorf("%w: mark type %q", ErrUnknownType, typeName)
	}
	return mt.Create(attrs)
}

// IsBlock reports whether nodes of this type are block nodes.
func (t *NodeType) IsBlock() bool { return t.block }

// IsInline reports whether nodes of this type are inline nodes.
func (t *NodeType) IsInline() bool { return !t.block }

// IsText reports whether this is the schema's text type.
func (t *NodeType) IsText() bool { return t.text }

// IsTextblock reports whether this is a block type with inline content.
func (t *NodeType) IsTextblock() bool { return t.block && t.inlineContent }

// InlineContent reports whether this type's content is inline.
func (t *NodeType) InlineContent() bool { return t.inlineContent }

// IsLeaf reports whether the type allows no content.
func (t *NodeType) IsLeaf() bool { return t.contentMatch == emptyContentMatch }

// IsAtom reports whether nodes of this type are treated as a single unit.
func (t *NodeType) IsAtom() bool { return t.IsLeaf() || t.Spec.Atom }

// ContentMatch returns the start state of this type's content automaton.
func (t *NodeType) ContentMatch() *ContentMatch { return t.contentMatch }

// Groups returns the groups the type belongs to.
func (t *NodeType) Groups() []string { return append([]string(nil), t.groups...) }

func (t *NodeType) inGroup(name string) bool {
	for _, g := range t.groups {
		if g == name {
			return true
		}
	}
	return false
}

// HasRequiredAttrs reports whether the type has attributes without defaults.
func (t *NodeType) HasRequiredAttrs() bool { return t.defaultAttrs == nil }

// ComputeAttrs fills defaults into the given attributes.
func (t *NodeType) ComputeAttrs(attrs Attrs) (Attrs, error) {
	if attrs == nil && t.defaultAttrs != nil {
		return t.defaultAttrs, nil
	}
	return computeAttrs(t.Spec.Attrs, attrs)
}

// CompatibleContent reports whether content of type other may be joined onto this type.
func (t *NodeType) CompatibleContent(other *NodeType) bool {
	return t == other || t.contentMatch.Compatible(other.contentMatch)
}

// ValidContent reports whether the fragment is valid content for this type.
func (t *NodeType) ValidContent(content *Fragment) bool {
	result := t.contentMatch.MatchFragment(content, 0, content.ChildCount())
	if result == nil || !result.ValidEnd {
		return false
	}
	for _, child := range content.content {
		if !t.AllowsMarks(child.Marks) {
			return false
		}
	}
	return true
}

// CheckContent returns an error when the fragment is not valid content for this type.
func (t *NodeType) CheckContent(content *Fragment) error {
	if !t.ValidContent(content) {
		return fmt.Errorf("%w for node %s: %s", ErrInvalidContent, t.Name, content.String())
	}
	return nil
}

// AllowsMarkType reports whether marks of the given type may appear in this node.
func (t *NodeType) AllowsMarkType(mt *MarkType) bool {
	if t.allMarks {
		return true
	}
	for _, m := range t.markSet {
		if m == mt {
			return true
		}
	}
	return false
}

// AllowsMarks reports whether every mark in the set is allowed in this node.
func (t *NodeType) AllowsMarks(marks []*Mark) bool {
	for _, m := range marks {
		if !t.AllowsMarkType(m.Type) {
			return false
		}
	}
	return true
}

// Create builds a node of this type, validating attributes, content and marks.
func (t *NodeType) Create(attrs Attrs, content *Fragment, marks []*Mark) (*Node, error) {
	if t.text {
		return nil, fmt.Errorf("%w: use Schema.Text to create text nodes", ErrInvalidContent)
	}
	built, err := t.ComputeAttrs(attrs)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", t.Name, err)
	}
	if content == nil {
		content = EmptyFragment
	}
	if err := t.CheckContent(content); err != nil {
		return nil, err
	}
	return newNode(t, built, content, MarkSetFrom(marks)), nil
}

// CreateAndFill builds a node of this type, adding required nodes before and
// after the given content when needed. It returns nil when no valid node can be built.
func (t *NodeType) CreateAndFill(attrs Attrs, content *Fragment, marks []*Mark) *Node {
	built, err := t.ComputeAttrs(attrs)
	if err != nil {
		return nil
	}
	if content == nil {
		content = EmptyFragment
	}
	if content.Size() > 0 {
		before := t.contentMatch.FillBefore(content, false, 0)
		if before == nil {
			return nil
		}
		content = before.Append(content)
	}
	matched := t.contentMatch.MatchFragment(content, 0, content.ChildCount())
	if matched == nil {
		return nil
	}
	after := matched.FillBefore(EmptyFragment, true, 0)
	if after == nil {
		return nil
	}
	return newNode(t, built, content.Append(after), MarkSetFrom(marks))
}

func (t *NodeType) String() string { return t.Name }

// Create builds a mark of this type.
func (t *MarkType) Create(attrs Attrs) (*Mark, error) {
	if attrs == nil && t.instance != nil {
		return t.instance, nil
	}
	built, err := computeAttrs(t.Spec.Attrs, attrs)
	if err != nil {
		return nil, fmt.Errorf("mark %s: %w", t.Name, err)
	}
	return &Mark{Type: t, Attrs: built}, nil
}

// Excludes reports whether this mark type excludes the other.
func (t *MarkType) Excludes(other *MarkType) bool {
	for _, m := range t.excluded {
		if m == other {
			return true
		}
	}
	return false
}

// Inclusive reports whether the mark extends over content inserted at its end.
func (t *MarkType) Inclusive() bool {
	return t.Spec.Inclusive == nil || *t.Spec.Inclusive
}

// IsInSet returns the first mark of this type in the set, or nil.
func (t *MarkType) IsInSet(set []*Mark) *Mark {
	for _, m := range set {
		if m.Type == t {
			return m
		}
	}
	return nil
}

// RemoveFromSet removes all marks of this type from the set.
func (t *MarkType) RemoveFromSet(set []*Mark) []*Mark {
	var out []*Mark
	for i, m := range set {
		if m.Type == t {
			if out == nil {
				out = append([]*Mark{}, set[:i]...)
			}
			continue
		}
		if out != nil {
			out = append(out, m)
		}
	}
	if out == nil {
		return set
	}
	return out
}

func (t *MarkType) inGroup(name string) bool {
	for _, g := range t.groups {
		if g == name {
			return true
		}
	}
	return false
}

func (t *MarkType) String() string { return t.Name }

func attrsEqual(a, b Attrs) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !valueEqual(v, w) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && (fa == fb || (math.IsNaN(fa) && math.IsNaN(fb)))
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
