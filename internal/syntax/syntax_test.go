package syntax_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"grammarls/internal/syntax"
)

func TestFillMakesTreeLossless(t *testing.T) {
	src := []byte("# Title\n\nSome *text* here.")
	root := &syntax.Node{Kind: syntax.KindMarkup, Children: []*syntax.Node{
		{Kind: syntax.KindHeading, Start: 2, End: 7, Children: []*syntax.Node{
			{Kind: syntax.KindText, Start: 2, End: 7},
		}},
		{Kind: syntax.KindText, Start: 9, End: 13},
		{Kind: syntax.KindEmph, Start: 15, End: 19, Children: []*syntax.Node{
			{Kind: syntax.KindText, Start: 15, End: 19},
		}},
		{Kind: syntax.KindText, Start: 21, End: 25},
	}}
	syntax.Fill(root, src, 0, len(src), syntax.WhitespaceGaps)

	assert.Equal(t, string(src), syntax.Source(root))

	var got []syntax.Kind
	for _, c := range root.Children {
		got = append(got, c.Kind)
	}
	want := []syntax.Kind{
		syntax.KindDelim, syntax.KindSpace, syntax.KindHeading, syntax.KindParbreak,
		syntax.KindText, syntax.KindSpace, syntax.KindDelim, syntax.KindEmph,
		syntax.KindDelim, syntax.KindSpace, syntax.KindText, syntax.KindDelim,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("children kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestFillClampsOverlappingChildren(t *testing.T) {
	src := []byte("abcdef")
	root := &syntax.Node{Kind: syntax.KindMarkup, Children: []*syntax.Node{
		{Kind: syntax.KindText, Start: 0, End: 4},
		{Kind: syntax.KindText, Start: 2, End: 9},
	}}
	syntax.Fill(root, src, 0, len(src), syntax.WhitespaceGaps)
	assert.Equal(t, "abcdef", syntax.Source(root))
	assert.Equal(t, "ef", root.Children[1].Text)
}

func TestWalkSkipsChildren(t *testing.T) {
	root := syntax.Inner(syntax.KindMarkup,
		syntax.Inner(syntax.KindEquation, syntax.Leaf(syntax.KindMath, []byte("x"), 0, 1)),
	)
	var seen []syntax.Kind
	syntax.Walk(root, func(n *syntax.Node) bool {
		seen = append(seen, n.Kind)
		return n.Kind != syntax.KindEquation
	})
	assert.Equal(t, []syntax.Kind{syntax.KindMarkup, syntax.KindEquation}, seen)
}

func TestNewEdit(t *testing.T) {
	e := syntax.NewEdit([]byte("one\ntwo"), 4, 7, "2")
	assert.Equal(t, syntax.Edit{
		StartByte: 4, OldEndByte: 7, NewEndByte: 5,
		StartPoint:  syntax.Point{Row: 1, Column: 0},
		OldEndPoint: syntax.Point{Row: 1, Column: 3},
		NewEndPoint: syntax.Point{Row: 1, Column: 1},
	}, e)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "parbreak", syntax.KindParbreak.String())
	assert.Equal(t, "unknown", syntax.Kind(-1).String())
}
