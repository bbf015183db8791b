package prisms

import (
	"fmt"
	"strings"
)

// Duration is a written note value: a base value, augmentation dots and an
// optional triplet (3:2) modification.
type Duration struct {
	Base    int // 1 = whole, 2 = half, 4 = quarter, 8, 16, 32
	Dots    int
	Triplet bool
}

// MaxDots is the largest number of augmentation dots a duration may carry.
const MaxDots = 4

var durationBases = map[string]int{
	"w": 1, "1": 1,
	"h": 2, "2": 2,
	"q": 4, "4": 4,
	"8": 8, "e": 8,
	"16": 16, "s": 16,
	"32": 32,
}

var durationTypes = map[int]string{
	1:  "whole",
	2:  "half",
	4:  "quarter",
	8:  "eighth",
	16: "16th",
	32: "32nd",
}

// ParseDuration parses duration strings: a base ("w", "h", "q", "8", "16",
// "32" or the numbers 1, 2, 4), an optional "t" for triplets, and up to
// MaxDots dots. Examples: "q", "h.", "8t", "q..".
func ParseDuration(s string) (Duration, error) {
	str := strings.TrimSpace(s)
	dots := 0
	for strings.HasSuffix(str, ".") {
		str = str[:len(str)-1]
		dots++
	}
	if dots > MaxDots {
		return Duration{}, fmt.Errorf("invalid duration %q: more than %d dots", s, MaxDots)
	}
	triplet := false
	if strings.HasSuffix(str, "t") {
		str = str[:len(str)-1]
		triplet = true
	}
	base, ok := durationBases[str]
	if !ok {
		return Duration{}, fmt.Errorf("invalid duration %q", s)
	}
	d := Duration{Base: base, Dots: dots, Triplet: triplet}
	if _, err := d.Ticks(); err != nil {
		return Duration{}, err
	}
	return d, nil
}

// Ticks returns the length of the duration in divisions (Divisions per
// quarter). Durations that do not divide evenly are errors.
func (d Duration) Ticks() (int, error) {
	if d.Base <= 0 {
		return 0, fmt.Errorf("invalid duration base %d", d.Base)
	}
	if d.Dots < 0 || d.Dots > MaxDots {
		return 0, fmt.Errorf("invalid number of dots %d", d.Dots)
	}
	num := Divisions * 4 * ((1 << (d.Dots + 1)) - 1)
	den := d.Base * (1 << d.Dots)
	if d.Triplet {
		num *= 2
		den *= 3
	}
	if num%den != 0 {
		return 0, fmt.Errorf("duration %v is not a whole number of divisions", d)
	}
	return num / den, nil
}

// Type returns the MusicXML note type name, e.g. "quarter" or "16th".
func (d Duration) Type() string {
	return durationTypes[d.Base]
}

func (d Duration) String() string {
	var b strings.Builder
	switch d.Base {
	case 1:
		b.WriteString("w")
	case 2:
		b.WriteString("h")
	case 4:
		b.WriteString("q")
	default:
		fmt.Fprintf(&b, "%d", d.Base)
	}
	if d.Triplet {
		b.WriteString("t")
	}
	b.WriteString(strings.Repeat(".", d.Dots))
	return b.String()
}
