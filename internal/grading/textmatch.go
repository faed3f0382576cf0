package grading

import "strings"

// normalizeText applies the config-driven normalization used for text answers:
// trim, optional whitespace collapse, optional case folding.
func normalizeText(s string, caseSensitive, ignoreWhitespace bool) string {
	s = strings.TrimSpace(s)
	if ignoreWhitespace {
		s = strings.Join(strings.Fields(s), " ")
	}
	if !caseSensitive {
		s = strings.ToLower(s)
	}
	return s
}

// similarity returns a symmetric match ratio in [0,1] between two strings:
// twice the number of matched characters over the combined length, where
// matches are maximal common runs found recursively around the longest one.
func similarity(a, b string) float64 {
	ar := []rune(a)
	br := []rune(b)
	if len(ar)+len(br) == 0 {
		return 1
	}
	matched := matchingRunes(ar, br)
	return 2 * float64(matched) / float64(len(ar)+len(br))
}

func matchingRunes(a, b []rune) int {
	ai, bj, size := longestCommonRun(a, b)
	if size == 0 {
		return 0
	}
	return size + matchingRunes(a[:ai], b[:bj]) + matchingRunes(a[ai+size:], b[bj+size:])
}

// longestCommonRun finds the longest common substring of a and b, preferring
// the earliest occurrence in a, then in b.
func longestCommonRun(a, b []rune) (ai, bj, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			if a[i] == b[j] {
				cur[j+1] = prev[j] + 1
				if cur[j+1] > size {
					size = cur[j+1]
					ai = i - size + 1
					bj = j - size + 1
				}
			} else {
				cur[j+1] = 0
			}
		}
		prev, cur = cur, prev
		clear(cur)
	}
	return ai, bj, size
}
