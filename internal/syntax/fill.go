package syntax

import "strings"

// GapKind classifies source text that a lossy AST left uncovered.
type GapKind func(gap string) Kind

// WhitespaceGaps maps blank runs to Space or Parbreak and anything else to Delim.
func WhitespaceGaps(gap string) Kind {
	if strings.TrimSpace(gap) != "" {
		return KindDelim
	}
	if strings.Count(gap, "\n") >= 2 {
		return KindParbreak
	}
	return KindSpace
}

// Fill makes the tree rooted at n lossless over source[start:end] by inserting
// leaves for every byte not covered by a child. Leaves take their text from
// the source. Children must be ordered; overlapping ones are clamped.
func Fill(n *Node, source []byte, start, end int, classify GapKind) {
	if n.IsLeaf() {
		n.Start, n.End = start, end
		n.Text = string(source[start:end])
		return
	}
	var filled []*Node
	cursor := start
	for _, c := range n.Children {
		c.Start = clamp(c.Start, cursor, end)
		c.End = clamp(c.End, c.Start, end)
		if c.Start > cursor {
			filled = append(filled, gapLeaves(source, cursor, c.Start, classify)...)
		}
		Fill(c, source, c.Start, c.End, classify)
		filled = append(filled, c)
		cursor = c.End
	}
	if end > cursor {
		filled = append(filled, gapLeaves(source, cursor, end, classify)...)
	}
	n.Children = filled
	n.Start, n.End = start, end
}

// gapLeaves splits a gap into whitespace and non-whitespace runs.
func gapLeaves(source []byte, start, end int, classify GapKind) []*Node {
	var out []*Node
	i := start
	for i < end {
		j := i
		ws := isSpaceByte(source[i])
		for j < end && isSpaceByte(source[j]) == ws {
			j++
		}
		out = append(out, Leaf(classify(string(source[i:j])), source, i, j))
		i = j
	}
	return out
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
