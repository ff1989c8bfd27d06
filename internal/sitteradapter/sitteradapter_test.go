package sitteradapter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grammarls/internal/sitteradapter"
	"grammarls/internal/syntax"
)

func collect(root *syntax.Node, kind syntax.Kind) []string {
	var out []string
	syntax.Walk(root, func(n *syntax.Node) bool {
		if n.Kind == kind {
			out = append(out, syntax.Source(n))
			return false
		}
		return true
	})
	return out
}

func TestParseHTML(t *testing.T) {
	src := "<html><body><h1>Title</h1>\n<p>Some <b>bold</b> text.</p>\n<pre>code here</pre><script>var x;</script></body></html>"
	p := sitteradapter.NewParser()
	defer p.Close()

	root, err := p.Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	assert.Equal(t, src, syntax.Source(root))

	assert.Equal(t, []string{"<h1>Title</h1>"}, collect(root, syntax.KindHeading))
	assert.Contains(t, collect(root, syntax.KindParbreak), "<p>")
	assert.Contains(t, collect(root, syntax.KindDelim), "<b>")
	assert.Equal(t, []string{"<pre>code here</pre>", "<script>var x;</script>"}, collect(root, syntax.KindRaw))
	assert.Contains(t, collect(root, syntax.KindText), "Title")
}

func TestTextSplitsIntoWordsAndSpaces(t *testing.T) {
	src := "<p>Some  plain\ntext.</p>"
	p := sitteradapter.NewParser()
	defer p.Close()

	root, err := p.Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	assert.Equal(t, src, syntax.Source(root))
	assert.Equal(t, []string{"Some", "plain", "text."}, collect(root, syntax.KindText))
	assert.Equal(t, []string{"  ", "\n"}, collect(root, syntax.KindSpace))
}

func TestIncrementalReparse(t *testing.T) {
	old := []byte("<p>Hello wrld.</p>")
	p := sitteradapter.NewParser()
	defer p.Close()

	_, err := p.Parse(context.Background(), old)
	require.NoError(t, err)

	p.Edit(syntax.NewEdit(old, 9, 13, "world"))
	updated := []byte("<p>Hello world.</p>")
	root, err := p.Parse(context.Background(), updated)
	require.NoError(t, err)
	assert.Equal(t, string(updated), syntax.Source(root))
	assert.Equal(t, []string{"Hello", "world."}, collect(root, syntax.KindText))
}

func TestCreateTSEditAdapter(t *testing.T) {
	e := syntax.NewEdit([]byte("ab\ncd"), 4, 5, "x\nyz")
	in := sitteradapter.CreateTSEditAdapter(e)
	assert.EqualValues(t, 4, in.StartIndex)
	assert.EqualValues(t, 5, in.OldEndIndex)
	assert.EqualValues(t, 8, in.NewEndIndex)
	assert.EqualValues(t, 1, in.StartPoint.Row)
	assert.EqualValues(t, 1, in.StartPoint.Column)
	assert.EqualValues(t, 2, in.NewEndPoint.Row)
	assert.EqualValues(t, 2, in.NewEndPoint.Column)
}

func TestClosedParser(t *testing.T) {
	p := sitteradapter.NewParser()
	require.NoError(t, p.Close())
	_, err := p.Parse(context.Background(), []byte("<p>x</p>"))
	assert.Error(t, err)
}
