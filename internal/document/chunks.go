package document

import (
	"sort"

	"grammarls/internal/syntax"
)

// minChunkLen is the length a cleaned chunk must exceed to be kept.
const minChunkLen = 2

// rawChunks collects the ranges of prose-bearing leaves.
func rawChunks(root *syntax.Node) []Range {
	var out []Range
	for _, l := range syntax.Leaves(root) {
		switch l.Kind {
		case syntax.KindText, syntax.KindRaw, syntax.KindStrong, syntax.KindEmph:
			out = append(out, Range{Start: l.Start, End: l.End})
		}
	}
	return out
}

// CleanupRanges sorts ranges, merges every range that starts at most one
// byte after its predecessor ends, and drops ranges of two bytes or less.
func CleanupRanges(ranges []Range) []Range {
	out := append([]Range(nil), ranges...)
	for i := 0; i < 2; i++ {
		sort.SliceStable(out, func(a, b int) bool { return out[a].Start < out[b].Start })
		out = mergeNeighbours(out)
	}
	kept := out[:0]
	for _, r := range out {
		if r.Len() > minChunkLen {
			kept = append(kept, r)
		}
	}
	return kept
}

func mergeNeighbours(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}
	var out []Range
	working := ranges[0]
	for _, r := range ranges[1:] {
		probe := r.Start - 1
		if r.Start == 0 {
			probe = 0
		}
		if probe < working.Start || probe > working.End {
			out = append(out, working)
			working = r
			continue
		}
		if r.End > working.End {
			working.End = r.End
		}
	}
	return append(out, working)
}
