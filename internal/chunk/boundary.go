package chunk

// boundaryDetector locates semantic cut points (paragraph > sentence > word)
// near a target position, within a bounded search window. It favours a
// single fast pass over each candidate tier rather than collecting every
// boundary in range and sorting, since only the nearest hit in the
// highest-priority tier is ever used.
type boundaryDetector struct{}

// findBestBoundary returns the best cut point at or near targetPos, searching
// at most searchRange bytes on either side. Falls back to targetPos itself
// when nothing better is found.
func (boundaryDetector) findBestBoundary(text string, targetPos, searchRange int) int {
	if targetPos >= len(text) {
		return len(text)
	}

	start := targetPos - searchRange
	if start < 0 {
		start = 0
	}
	end := targetPos + searchRange
	if end > len(text) {
		end = len(text)
	}
	window := text[start:end]
	local := targetPos - start

	if pos, ok := nearestParagraphBoundary(window, local); ok {
		return start + pos
	}
	if pos, ok := nearestSentenceBoundary(window, local); ok {
		return start + pos
	}
	if pos, ok := nearestWordBoundary(window, local); ok {
		return start + pos
	}
	return targetPos
}

// nearestParagraphBoundary finds the double-newline boundary closest to
// target within text.
func nearestParagraphBoundary(text string, target int) (int, bool) {
	bestPos, bestDist := -1, -1
	for i := 0; i+1 < len(text); i++ {
		if text[i] == '\n' && text[i+1] == '\n' {
			pos := i + 2
			dist := absDiff(target, pos)
			if bestPos == -1 || dist < bestDist {
				bestPos, bestDist = pos, dist
			}
		}
	}
	return bestPos, bestPos != -1
}

// nearestSentenceBoundary finds the sentence-terminator-plus-whitespace
// boundary closest to target within text.
func nearestSentenceBoundary(text string, target int) (int, bool) {
	bestPos, bestDist := -1, -1
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
		default:
			continue
		}
		j := i + 1
		for j < len(text) && text[j] == ' ' {
			j++
		}
		if j >= len(text) {
			continue
		}
		dist := absDiff(target, j)
		if bestPos == -1 || dist < bestDist {
			bestPos, bestDist = j, dist
		}
	}
	return bestPos, bestPos != -1
}

// nearestWordBoundary searches backward then forward from target for the
// nearest whitespace run, as a last-resort cut point.
func nearestWordBoundary(text string, target int) (int, bool) {
	limit := target
	if limit > len(text) {
		limit = len(text)
	}
	for i := limit - 1; i >= 0; i-- {
		if isASCIISpace(text[i]) {
			return i + 1, true
		}
	}
	for i := target; i < len(text); i++ {
		if isASCIISpace(text[i]) {
			return i, true
		}
	}
	return 0, false
}

func isASCIISpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
