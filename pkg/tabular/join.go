package tabular

const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// InnerJoin pairs every left row with every right row sharing the same key.
// leftKeys and rightKeys hold one precomputed key per row. Output keeps left
// row order, then right row order within a key. Column names present on both
// sides are suffixed with LeftSuffix and RightSuffix.
func InnerJoin(left *Frame, leftKeys []string, right *Frame, rightKeys []string) *Frame {
	rightNames := make(map[string]struct{}, len(right.Header))
	for _, h := range right.Header {
		rightNames[h] = struct{}{}
	}
	leftNames := make(map[string]struct{}, len(left.Header))
	for _, h := range left.Header {
		leftNames[h] = struct{}{}
	}

	header := make([]string, 0, len(left.Header)+len(right.Header))
	for _, h := range left.Header {
		if _, clash := rightNames[h]; clash {
			h += LeftSuffix
		}
		header = append(header, h)
	}
	for _, h := range right.Header {
		if _, clash := leftNames[h]; clash {
			h += RightSuffix
		}
		header = append(header, h)
	}

	byKey := make(map[string][]int, len(right.Rows))
	for i, key := range rightKeys {
		byKey[key] = append(byKey[key], i)
	}

	out := New(header)
	for i, row := range left.Rows {
		for _, j := range byKey[leftKeys[i]] {
			joined := make([]string, 0, len(header))
			joined = append(joined, row...)
			joined = append(joined, right.Rows[j]...)
			out.Rows = append(out.Rows, joined)
		}
	}
	return out
}
