package model_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/prosecore/internal/engine/model"
	"github.com/dshills/prosecore/internal/engine/model/basic"
)

var b = basic.NewBuilder()

// Schema and content expression tests

func TestSchemaContentExpressions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"empty", "", false},
		{"sequence", "heading paragraph*", false},
		{"choice", "(paragraph | heading)+", false},
		{"range", "paragraph{1,3}", false},
		{"open range", "paragraph{2,}", false},
		{"group", "block+", false},
		{"trailing pipe", "paragraph |", true},
		{"unknown name", "nope+", true},
		{"unclosed paren", "(paragraph", true},
		{"mixed inline and block", "paragraph text", true},
		{"bad range", "paragraph{x}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := model.SchemaSpec{
				Nodes: []model.NodeSpec{
					{Name: "doc", Content: tt.content},
					{Name: "paragraph", Content: "text*", Group: "block"},
					{Name: "heading", Content: "text*", Group: "block"},
					{Name: "text"},
				},
			}
			_, err := model.NewSchema(spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSchema() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, model.ErrInvalidSchema) {
				t.Errorf("error %v does not wrap ErrInvalidSchema", err)
			}
		})
	}
}

func TestSchemaRejectsDeadEnds(t *testing.T) {
	spec := model.SchemaSpec{
		Nodes: []model.NodeSpec{
			{Name: "doc", Content: "figure"},
			{Name: "figure", Attrs: []model.AttributeSpec{{Name: "src"}}},
			{Name: "text"},
		},
	}
	if _, err := model.NewSchema(spec); err == nil {
		t.Fatal("expected error for required node with required attributes")
	}
}

func TestContentMatchRanges(t *testing.T) {
	spec := model.SchemaSpec{
		Nodes: []model.NodeSpec{
			{Name: "doc", Content: "paragraph{2,3}"},
			{Name: "paragraph", Content: "text*"},
			{Name: "text"},
		},
	}
	s, err := model.NewSchema(spec)
	if err != nil {
		t.Fatal(err)
	}
	para := s.NodeType("paragraph")
	p, _ := para.Create(nil, nil, nil)

	for count, valid := range map[int]bool{0: false, 1: false, 2: true, 3: true, 4: false} {
		nodes := make([]*model.Node, count)
		for i := range nodes {
			nodes[i] = p
		}
		got := s.TopNodeType().ValidContent(model.FragmentFromArray(nodes))
		if got != valid {
			t.Errorf("ValidContent with %d paragraphs = %v, want %v", count, got, valid)
		}
	}
}

func TestCreateAndFill(t *testing.T) {
	tests := []struct {
		typ  string
		want string
	}{
		{"doc", "doc(paragraph)"},
		{"list_item", "list_item(paragraph)"},
		{"bullet_list", "bullet_list(list_item(paragraph))"},
		{"blockquote", "blockquote(paragraph)"},
		{"paragraph", "paragraph"},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			n := b.Schema.NodeType(tt.typ).CreateAndFill(nil, nil, nil)
			if n == nil {
				t.Fatal("CreateAndFill returned nil")
			}
			if got := n.String(); got != tt.want {
				t.Errorf("CreateAndFill() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCreateRejectsInvalidContent(t *testing.T) {
	_, err := b.Schema.Node("doc", nil, []*model.Node{b.Text("loose")}, nil)
	if !errors.Is(err, model.ErrInvalidContent) {
		t.Fatalf("expected ErrInvalidContent, got %v", err)
	}
	_, err = b.Schema.Node("image", nil, nil, nil)
	if !errors.Is(err, model.ErrMissingAttr) {
		t.Fatalf("expected ErrMissingAttr, got %v", err)
	}
	if _, err := b.Schema.Text("", nil); !errors.Is(err, model.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if _, err := b.Schema.Node("table", nil, nil, nil); !errors.Is(err, model.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

// Node and fragment tests

func TestNodeSize(t *testing.T) {
	doc := b.Doc(b.P("hello"), b.Blockquote(b.P("a", b.Img("x.png"))))
	if got := doc.Content().Size(); got != 13 {
		t.Errorf("content size = %d, want 13", got)
	}
	if got := doc.Child(0).NodeSize(); got != 7 {
		t.Errorf("paragraph size = %d, want 7", got)
	}
	if got := b.Text("héllo").NodeSize(); got != 5 {
		t.Errorf("text size counts runes: got %d, want 5", got)
	}
}

func TestFragmentJoinsText(t *testing.T) {
	p := b.P("foo", "bar", b.Em("baz"), b.Em("qux"))
	if got := p.ChildCount(); got != 2 {
		t.Fatalf("ChildCount() = %d, want 2: %s", got, p)
	}
	if got := p.String(); got != `paragraph("foobar", em("bazqux"))` {
		t.Errorf("String() = %s", got)
	}
}

func TestNodeEq(t *testing.T) {
	a := b.Doc(b.P("hi", b.Strong("!")))
	c := b.Doc(b.P("hi", b.Strong("!")))
	if !a.Eq(c) {
		t.Error("independently built documents should be equal")
	}
	if a.Eq(b.Doc(b.P("hi!"))) {
		t.Error("documents with different marks should differ")
	}
	if b.H(1, "x").Eq(b.H(2, "x")) {
		t.Error("headings with different levels should differ")
	}
}

func TestTextBetween(t *testing.T) {
	doc := b.Doc(b.P("hello"), b.P(), b.P("world"))
	if got := doc.TextBetween(0, doc.Content().Size(), "\n", ""); got != "hello\n\nworld" {
		t.Errorf("TextBetween() = %q", got)
	}
	if got := doc.TextContent(); got != "helloworld" {
		t.Errorf("TextContent() = %q", got)
	}
	if got := doc.TextBetween(3, 14, "|", ""); got != "llo||worl" {
		t.Errorf("TextBetween(3, 14) = %q", got)
	}
}

func TestNodeAt(t *testing.T) {
	doc := b.Doc(b.P("ab"), b.Blockquote(b.P("cd")))
	tests := []struct {
		pos  int
		want string
	}{
		{0, `paragraph("ab")`},
		{1, `"ab"`},
		{2, `"ab"`},
		{4, `blockquote(paragraph("cd"))`},
		{5, `paragraph("cd")`},
	}
	for _, tt := range tests {
		n := doc.NodeAt(tt.pos)
		if n == nil {
			t.Errorf("NodeAt(%d) = nil", tt.pos)
			continue
		}
		if got := n.String(); got != tt.want {
			t.Errorf("NodeAt(%d) = %s, want %s", tt.pos, n, tt.want)
		}
	}
}

// Resolved position tests

func TestResolve(t *testing.T) {
	doc := b.Doc(b.P("one"), b.Blockquote(b.P("two")))

	tests := []struct {
		pos          int
		depth        int
		parent       string
		parentOffset int
		start, end   int
	}{
		{0, 0, "doc", 0, 0, 12},
		{1, 1, "paragraph", 0, 1, 4},
		{3, 1, "paragraph", 2, 1, 4},
		{5, 0, "doc", 5, 0, 12},
		{6, 1, "blockquote", 0, 6, 11},
		{8, 2, "paragraph", 1, 7, 10},
		{12, 0, "doc", 12, 0, 12},
	}
	for _, tt := range tests {
		r, err := doc.Resolve(tt.pos)
		if err != nil {
			t.Fatalf("Resolve(%d): %v", tt.pos, err)
		}
		if r.Depth != tt.depth || r.Parent().Type.Name != tt.parent || r.ParentOffset != tt.parentOffset {
			t.Errorf("Resolve(%d) = depth %d parent %s offset %d, want %d %s %d",
				tt.pos, r.Depth, r.Parent().Type.Name, r.ParentOffset, tt.depth, tt.parent, tt.parentOffset)
		}
		if r.Start(r.Depth) != tt.start || r.End(r.Depth) != tt.end {
			t.Errorf("Resolve(%d) start/end = %d/%d, want %d/%d", tt.pos, r.Start(r.Depth), r.End(r.Depth), tt.start, tt.end)
		}
	}

	r := doc.MustResolve(8)
	if r.Before(2) != 6 || r.After(2) != 11 || r.Before(1) != 5 || r.After(1) != 12 {
		t.Errorf("Before/After wrong: %d %d %d %d", r.Before(2), r.After(2), r.Before(1), r.After(1))
	}
	if got := r.NodeBefore().Text(); got != "t" {
		t.Errorf("NodeBefore() = %q", got)
	}
	if got := r.NodeAfter().Text(); got != "wo" {
		t.Errorf("NodeAfter() = %q", got)
	}
	if got := r.SharedDepth(10); got != 2 {
		t.Errorf("SharedDepth(10) = %d, want 2", got)
	}
	if got := r.SharedDepth(2); got != 0 {
		t.Errorf("SharedDepth(2) = %d, want 0", got)
	}
}

func TestResolveOutOfRange(t *testing.T) {
	doc := b.Doc(b.P("hello"))
	for _, pos := range []int{-1, 8, 100} {
		if _, err := doc.Resolve(pos); !errors.Is(err, model.ErrPositionOutOfRange) {
			t.Errorf("Resolve(%d) error = %v, want ErrPositionOutOfRange", pos, err)
		}
	}
}

func TestResolvedMarks(t *testing.T) {
	doc := b.Doc(b.P("a", b.Em("b"), b.Link("http://x", "c"), "d"))
	tests := []struct {
		pos  int
		want string
	}{
		{1, ""},
		{2, ""},
		{3, "em"},
		{4, ""}, // link is not inclusive at its end
		{5, ""},
	}
	for _, tt := range tests {
		marks := doc.MustResolve(tt.pos).Marks()
		var names []string
		for _, m := range marks {
			names = append(names, m.Type.Name)
		}
		if got := strings.Join(names, ","); got != tt.want {
			t.Errorf("Marks() at %d = %q, want %q", tt.pos, got, tt.want)
		}
	}
}

// Slice and replace tests

func TestSlice(t *testing.T) {
	doc := b.Doc(b.P("hello"), b.P("world"))
	tests := []struct {
		from, to int
		want     string
	}{
		{3, 10, `<paragraph("llo"), paragraph("wo")>(1,1)`},
		{1, 6, `<"hello">(0,0)`},
		{0, 7, `<paragraph("hello")>(0,0)`},
		{3, 3, `<>(0,0)`},
	}
	for _, tt := range tests {
		s, err := doc.Slice(tt.from, tt.to, false)
		if err != nil {
			t.Fatalf("Slice(%d, %d): %v", tt.from, tt.to, err)
		}
		if got := s.String(); got != tt.want {
			t.Errorf("Slice(%d, %d) = %s, want %s", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestReplace(t *testing.T) {
	doc := b.Doc(b.P("hello"), b.P("world"))
	s, _ := doc.Slice(3, 10, false)

	tests := []struct {
		name     string
		from, to int
		slice    *model.Slice
		want     *model.Node
	}{
		{"join paragraphs", 3, 10, model.EmptySlice, b.Doc(b.P("herld"))},
		{"insert text", 3, 3, model.NewSlice(model.FragmentFrom(b.Text("XY")), 0, 0), b.Doc(b.P("heXYllo"), b.P("world"))},
		{"open slice", 11, 11, s, b.Doc(b.P("hello"), b.P("worllo"), b.P("wold"))},
		{"replace block", 7, 14, model.NewSlice(model.FragmentFrom(b.HR()), 0, 0), b.Doc(b.P("hello"), b.HR())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := doc.Replace(tt.from, tt.to, tt.slice)
			if err != nil {
				t.Fatalf("Replace: %v", err)
			}
			if !got.Eq(tt.want) {
				t.Errorf("Replace() = %s, want %s", got, tt.want)
			}
			if err := got.Check(); err != nil {
				t.Errorf("result fails Check: %v", err)
			}
		})
	}
	if doc.String() != `doc(paragraph("hello"), paragraph("world"))` {
		t.Errorf("original document was modified: %s", doc)
	}
}

func TestReplaceErrors(t *testing.T) {
	doc := b.Doc(b.P("hello"))
	tests := []struct {
		name     string
		from, to int
		slice    *model.Slice
		content  bool
	}{
		{"block in textblock", 3, 3, model.NewSlice(model.FragmentFrom(b.P("x")), 0, 0), true},
		{"too deep", 0, 0, model.NewSlice(model.FragmentFrom(b.P("x")), 1, 1), false},
		{"inconsistent depths", 3, 3, model.NewSlice(model.FragmentFrom(b.P("x")), 1, 0), false},
		{"incompatible join", 3, 3, model.NewSlice(model.FragmentFrom(b.UL(b.LI(b.P("x")))), 1, 1), false},
		{"open deeper than content", 3, 3, model.NewSlice(model.FragmentFrom(b.Text("x")), 1, 1), false},
		{"negative open depth", 1, 1, model.NewSlice(model.FragmentFrom(b.Text("x")), -1, -1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := doc.Replace(tt.from, tt.to, tt.slice)
			var re *model.ReplaceError
			if !errors.As(err, &re) {
				t.Fatalf("expected ReplaceError, got %v", err)
			}
			if tt.content && !errors.Is(err, model.ErrInvalidContent) {
				t.Errorf("expected wrapped ErrInvalidContent, got %v", err)
			}
		})
	}
}

func TestReversedRange(t *testing.T) {
	doc := b.Doc(b.P("hello"))
	if got, err := doc.Replace(4, 2, model.EmptySlice); !errors.Is(err, model.ErrPositionOutOfRange) {
		t.Errorf("Replace(4, 2) = %v, %v; want ErrPositionOutOfRange", got, err)
	}
	if got, err := doc.Slice(4, 2, false); !errors.Is(err, model.ErrPositionOutOfRange) {
		t.Errorf("Slice(4, 2) = %v, %v; want ErrPositionOutOfRange", got, err)
	}
	if _, err := doc.Slice(9, 9, false); !errors.Is(err, model.ErrPositionOutOfRange) {
		t.Errorf("Slice(9, 9) error = %v, want ErrPositionOutOfRange", err)
	}
	if doc.TextContent() != "hello" {
		t.Errorf("document changed to %s", doc)
	}
}

// Mark tests

func TestMarkAddToSet(t *testing.T) {
	em, strong, code := b.EmMark(), b.StrongMark(), b.CodeMark()
	link := b.LinkMark("http://a")

	names := func(set []*model.Mark) []string {
		var out []string
		for _, m := range set {
			out = append(out, m.String())
		}
		return out
	}

	tests := []struct {
		name string
		mark *model.Mark
		set  []*model.Mark
		want []string
	}{
		{"into empty", em, nil, []string{"em"}},
		{"rank order", em, []*model.Mark{strong}, []string{"em", "strong"}},
		{"already present", em, []*model.Mark{em, strong}, []string{"em", "strong"}},
		{"replace same type", b.LinkMark("http://b"), []*model.Mark{link}, []string{`link(href="http://b" title=null)`}},
		{"code excludes all", code, []*model.Mark{em, strong}, []string{"code"}},
		{"excluded by existing", em, []*model.Mark{code}, []string{"code"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(tt.mark.AddToSet(tt.set))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("AddToSet() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMarkRemoveFromSet(t *testing.T) {
	em, strong := b.EmMark(), b.StrongMark()
	set := []*model.Mark{em, strong}
	if got := em.RemoveFromSet(set); len(got) != 1 || got[0] != strong {
		t.Errorf("RemoveFromSet() = %v", got)
	}
	if got := b.CodeMark().RemoveFromSet(set); len(got) != 2 {
		t.Errorf("removing absent mark changed the set: %v", got)
	}
	if !model.SameMarkSet(model.MarkSetFrom([]*model.Mark{strong, em}), set) {
		t.Error("MarkSetFrom should sort by rank")
	}
}

// Serialization tests

func TestNodeJSONRoundTrip(t *testing.T) {
	doc := b.Doc(
		b.H(2, "Title"),
		b.P("a ", b.Em("b ", b.Strong("c")), b.Link("http://x", "d"), b.Img("i.png"), b.Br()),
		b.UL(b.LI(b.P("item"))),
	)
	data, err := doc.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	back, err := model.NodeFromJSON(b.Schema, data)
	if err != nil {
		t.Fatalf("NodeFromJSON(%s): %v", data, err)
	}
	if !back.Eq(doc) {
		t.Errorf("round trip mismatch:\n got %s\nwant %s", back, doc)
	}
}

func TestNodeFromJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"malformed", `{"type":`, model.ErrInvalidJSON},
		{"unknown type", `{"type":"table"}`, model.ErrUnknownType},
		{"invalid content", `{"type":"doc","content":[{"type":"text","text":"x"}]}`, model.ErrInvalidContent},
		{"not an object", `[1,2]`, model.ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := model.NodeFromJSON(b.Schema, []byte(tt.json))
			if !errors.Is(err, tt.want) {
				t.Errorf("NodeFromJSON() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadSchemaYAML(t *testing.T) {
	src := `
nodes:
  - name: doc
    content: note+
  - name: note
    content: text*
    attrs:
      color: {default: yellow}
      id: {}
  - name: text
marks:
  - name: highlight
    inclusive: false
`
	s, err := model.LoadSchemaYAML([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	note := s.NodeType("note")
	if !note.HasRequiredAttrs() {
		t.Error("note should require id")
	}
	n, err := note.Create(model.Attrs{"id": 7}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(model.Attrs{"color": "yellow", "id": 7}, n.Attrs); diff != "" {
		t.Errorf("attrs mismatch (-want +got):\n%s", diff)
	}
	if s.MarkType("highlight").Inclusive() {
		t.Error("highlight should not be inclusive")
	}

	if _, err := model.LoadSchemaYAML([]byte("nodes: [{name: doc, content: missing}]")); !errors.Is(err, model.ErrInvalidSchema) {
		t.Errorf("expected ErrInvalidSchema, got %v", err)
	}
}
