package export

import (
	"slices"
	"strings"

	"golang.org/x/text/unicode/bidi"
)

// gofpdf writes cell text as given: it neither joins Arabic letters nor
// reorders mixed-direction runs. pdfVisual does both before a string is drawn.

type joining uint8

const (
	joinNone joining = iota
	joinRight
	joinDual
)

type arabicLetter struct {
	isolated rune
	join     joining
}

const (
	arabicLam     = 'ل'
	arabicTatweel = 'ـ'
)

// arabicLetters maps each letter to its isolated presentation form. The final,
// initial and medial forms follow it in that order.
var arabicLetters = map[rune]arabicLetter{
	'ء': {0xFE80, joinNone},
	'آ': {0xFE81, joinRight},
	'أ': {0xFE83, joinRight},
	'ؤ': {0xFE85, joinRight},
	'إ': {0xFE87, joinRight},
	'ئ': {0xFE89, joinDual},
	'ا': {0xFE8D, joinRight},
	'ب': {0xFE8F, joinDual},
	'ة': {0xFE93, joinRight},
	'ت': {0xFE95, joinDual},
	'ث': {0xFE99, joinDual},
	'ج': {0xFE9D, joinDual},
	'ح': {0xFEA1, joinDual},
	'خ': {0xFEA5, joinDual},
	'د': {0xFEA9, joinRight},
	'ذ': {0xFEAB, joinRight},
	'ر': {0xFEAD, joinRight},
	'ز': {0xFEAF, joinRight},
	'س': {0xFEB1, joinDual},
	'ش': {0xFEB5, joinDual},
	'ص': {0xFEB9, joinDual},
	'ض': {0xFEBD, joinDual},
	'ط': {0xFEC1, joinDual},
	'ظ': {0xFEC5, joinDual},
	'ع': {0xFEC9, joinDual},
	'غ': {0xFECD, joinDual},
	'ف': {0xFED1, joinDual},
	'ق': {0xFED5, joinDual},
	'ك': {0xFED9, joinDual},
	'ل': {0xFEDD, joinDual},
	'م': {0xFEE1, joinDual},
	'ن': {0xFEE5, joinDual},
	'ه': {0xFEE9, joinDual},
	'و': {0xFEED, joinRight},
	'ى': {0xFEEF, joinRight},
	'ي': {0xFEF1, joinDual},
}

// lamAlef holds the isolated ligature for lam followed by each alef; the final
// form is the next code point.
var lamAlef = map[rune]rune{
	'آ': 0xFEF5,
	'أ': 0xFEF7,
	'إ': 0xFEF9,
	'ا': 0xFEFB,
}

// transparent reports harakat and other marks that do not break joining.
func transparent(r rune) bool {
	return (r >= 0x064B && r <= 0x065F) || r == 0x0670
}

func joiningOf(r rune) joining {
	if r == arabicTatweel {
		return joinDual
	}
	if letter, ok := arabicLetters[r]; ok {
		return letter.join
	}
	return joinNone
}

func isArabicLetter(r rune) bool {
	_, ok := arabicLetters[r]
	return ok
}

// neighbour returns the index of the closest non-mark rune in direction step, or -1.
func neighbour(runes []rune, i, step int) int {
	for j := i + step; j >= 0 && j < len(runes); j += step {
		if !transparent(runes[j]) {
			return j
		}
	}
	return -1
}

// shapeArabic replaces Arabic letters with their contextual presentation forms.
func shapeArabic(s string) string {
	if !strings.ContainsFunc(s, isArabicLetter) {
		return s
	}
	runes := []rune(s)
	out := make([]rune, 0, len(runes))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		letter, ok := arabicLetters[r]
		if !ok {
			out = append(out, r)
			continue
		}
		prev := neighbour(runes, i, -1)
		joinsPrev := prev >= 0 && joiningOf(runes[prev]) == joinDual
		next := neighbour(runes, i, 1)

		if r == arabicLam && next >= 0 {
			if ligature, ok := lamAlef[runes[next]]; ok {
				if joinsPrev {
					ligature++
				}
				out = append(out, ligature)
				out = append(out, runes[i+1:next]...)
				i = next
				continue
			}
		}

		joinsNext := next >= 0 && joiningOf(runes[next]) != joinNone
		form := letter.isolated
		switch {
		case letter.join == joinNone:
		case letter.join == joinRight:
			if joinsPrev {
				form++
			}
		case joinsPrev && joinsNext:
			form += 3
		case joinsPrev:
			form++
		case joinsNext:
			form += 2
		}
		out = append(out, form)
	}
	return string(out)
}

func strongClass(r rune) bidi.Class {
	props, _ := bidi.LookupRune(r)
	return props.Class()
}

func isRTL(r rune) bool {
	switch strongClass(r) {
	case bidi.R, bidi.AL:
		return true
	}
	return false
}

// firstStrongRTL reports whether the first strongly typed rune of s is right to left.
func firstStrongRTL(s string) bool {
	for _, r := range s {
		switch strongClass(r) {
		case bidi.R, bidi.AL:
			return true
		case bidi.L:
			return false
		}
	}
	return false
}

// visualOrder returns s in left-to-right drawing order. Strings without
// right-to-left characters, which covers every amount and date, come back
// untouched. A left-to-right paragraph keeps its run order, so digits inside
// Arabic text there stay where they were typed.
func visualOrder(s string, rtl bool) string {
	if !strings.ContainsFunc(s, isRTL) {
		return s
	}
	rtl = rtl || firstStrongRTL(s)
	var opts []bidi.Option
	if rtl {
		opts = append(opts, bidi.DefaultDirection(bidi.RightToLeft))
	}
	var p bidi.Paragraph
	if _, err := p.SetString(s, opts...); err != nil {
		return s
	}
	ordering, err := p.Order()
	if err != nil {
		return s
	}
	runs := make([]string, ordering.NumRuns())
	for i := range runs {
		run := ordering.Run(i)
		text := run.String()
		if run.Direction() == bidi.RightToLeft {
			text = bidi.ReverseString(text)
		}
		runs[i] = text
	}
	if rtl {
		slices.Reverse(runs)
	}
	return strings.Join(runs, "")
}

// pdfVisual prepares s for a gofpdf cell.
func pdfVisual(s string, rtl bool) string {
	return visualOrder(shapeArabic(s), rtl)
}
