package scan

import "bytes"

// Finder locates a fixed byte pattern using the Boyer-Moore algorithm. The
// tables are built once and the Finder is safe for concurrent use.
type Finder struct {
	pattern []byte

	// badCharSkip[b] is the distance between the last byte of pattern and
	// the last occurrence of b in pattern[:len(pattern)-1]. Bytes that do
	// not occur there skip the whole pattern.
	badCharSkip [256]int

	// goodSuffixSkip[i] is how far the pattern can shift when a mismatch
	// happens at pattern[i] after matching pattern[i+1:].
	goodSuffixSkip []int
}

func NewFinder(pattern []byte) *Finder {
	if len(pattern) == 0 {
		panic("scan: empty pattern")
	}

	f := &Finder{
		pattern:        bytes.Clone(pattern),
		goodSuffixSkip: make([]int, len(pattern)),
	}
	last := len(pattern) - 1

	for i := range f.badCharSkip {
		f.badCharSkip[i] = len(pattern)
	}
	for i := 0; i < last; i++ {
		f.badCharSkip[pattern[i]] = last - i
	}

	// First pass: the suffix pattern[i+1:] also occurs as a prefix.
	lastPrefix := last
	for i := last; i >= 0; i-- {
		if bytes.HasPrefix(pattern, pattern[i+1:]) {
			lastPrefix = i + 1
		}
		f.goodSuffixSkip[i] = lastPrefix + last - i
	}

	// Second pass: the suffix occurs again somewhere inside the pattern.
	for i := 0; i < last; i++ {
		lenSuffix := longestCommonSuffix(pattern, pattern[1:i+1])
		if pattern[i-lenSuffix] != pattern[last-lenSuffix] {
			f.goodSuffixSkip[last-lenSuffix] = lenSuffix + last - i
		}
	}

	return f
}

func longestCommonSuffix(a, b []byte) (i int) {
	for ; i < len(a) && i < len(b); i++ {
		if a[len(a)-1-i] != b[len(b)-1-i] {
			break
		}
	}
	return
}

// Pattern returns the bytes the Finder searches for.
func (f *Finder) Pattern() []byte {
	return f.pattern
}

// Index returns the index of the first occurrence of the pattern in text, or
// -1 if there is none.
func (f *Finder) Index(text []byte) int {
	i := len(f.pattern) - 1
	for i < len(text) {
		j := len(f.pattern) - 1
		for j >= 0 && text[i] == f.pattern[j] {
			i--
			j--
		}
		if j < 0 {
			return i + 1
		}
		i += max(f.badCharSkip[text[i]], f.goodSuffixSkip[j])
	}
	return -1
}

// IndexFrom is like Index but starts searching at text[from:]. The returned
// index is relative to the start of text.
func (f *Finder) IndexFrom(text []byte, from int) int {
	if from >= len(text) {
		return -1
	}
	if i := f.Index(text[from:]); i >= 0 {
		return from + i
	}
	return -1
}

// FindAll returns the start offsets of all non-overlapping occurrences of the
// pattern in text, earliest first.
func (f *Finder) FindAll(text []byte) []int {
	var offsets []int
	for pos := 0; ; {
		i := f.IndexFrom(text, pos)
		if i < 0 {
			return offsets
		}
		offsets = append(offsets, i)
		pos = i + len(f.pattern)
	}
}

// PartialSuffix returns the earliest index i >= from such that text[i:] is a
// proper, non-empty prefix of the pattern, or -1. Such a tail could be the
// start of an occurrence that continues past the end of text.
func (f *Finder) PartialSuffix(text []byte, from int) int {
	start := max(from, len(text)-len(f.pattern)+1, 0)
	for i := start; i < len(text); i++ {
		if bytes.HasPrefix(f.pattern, text[i:]) {
			return i
		}
	}
	return -1
}
