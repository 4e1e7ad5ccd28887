package timeparse

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wasilibs/go-re2"
	"golang.org/x/text/unicode/norm"
)

type span struct{ start, end int }

// scanner matches rules against a lowered copy of the input and blanks out
// every consumed fragment, so later rules never see it again. Offsets into
// the lowered copy map back to the original text rune by rune.
type scanner struct {
	orig    string
	low     []byte
	offsets []int // low byte index -> orig byte index
	spans   []span
	trigger span
}

func newScanner(text string) *scanner {
	orig := norm.NFC.String(text)
	s := &scanner{
		orig:    orig,
		low:     make([]byte, 0, len(orig)),
		offsets: make([]int, 0, len(orig)+1),
	}
	for i, r := range orig {
		r = unicode.ToLower(r)
		if r == 'ё' {
			r = 'е'
		}
		for range utf8.RuneLen(r) {
			s.offsets = append(s.offsets, i)
		}
		s.low = utf8.AppendRune(s.low, r)
	}
	s.offsets = append(s.offsets, len(orig))
	return s
}

// find returns submatch indices of the first match. Group 1 is the consumed
// core, inner groups start at 2.
func (s *scanner) find(re *re2.Regexp) []int {
	return re.FindSubmatchIndex(s.low)
}

func (s *scanner) group(m []int, k int) string {
	if 2*k+1 >= len(m) || m[2*k] < 0 {
		return ""
	}
	return string(s.low[m[2*k]:m[2*k+1]])
}

func (s *scanner) consume(m []int) span {
	sp := span{m[2], m[3]}
	for i := sp.start; i < sp.end; i++ {
		s.low[i] = ' '
	}
	s.spans = append(s.spans, sp)
	return sp
}

func (s *scanner) original(sp span) string {
	return s.orig[s.offsets[sp.start]:s.offsets[sp.end]]
}

func (s *scanner) sorted() []span {
	out := append([]span(nil), s.spans...)
	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// matched joins the consumed fragments in input order, without the trigger.
func (s *scanner) matched() string {
	parts := make([]string, 0, len(s.spans))
	for _, sp := range s.sorted() {
		if sp == s.trigger && sp.end > 0 {
			continue
		}
		parts = append(parts, strings.TrimSpace(s.original(sp)))
	}
	return strings.Join(parts, " ")
}

// rest is the original text with every consumed fragment removed.
func (s *scanner) rest() string {
	var b strings.Builder
	pos := 0
	for _, sp := range s.sorted() {
		b.WriteString(s.orig[s.offsets[pos]:s.offsets[sp.start]])
		b.WriteByte(' ')
		pos = sp.end
	}
	b.WriteString(s.orig[s.offsets[pos]:])
	return cleanDescription(b.String())
}

const descriptionCutset = " \t,.;:!-–—"

func cleanDescription(s string) string {
	return strings.Trim(strings.Join(strings.Fields(s), " "), descriptionCutset)
}
