package prisms

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type (
	// Harmony is a parsed chord symbol in MusicXML terms: root, kind, an
	// optional bass note and added or altered degrees.
	Harmony struct {
		RootStep  byte
		RootAlter int
		Kind      string // MusicXML kind value, e.g. "minor-seventh"
		Text      string // the kind as written, e.g. "m7"
		BassStep  byte   // 0 if no bass note
		BassAlter int
		Degrees   []Degree
	}

	// Degree is an added, altered or subtracted chord degree, e.g. the b9 of
	// C7b9 is Degree{Value: 9, Alter: -1, Type: "add"}.
	Degree struct {
		Value int
		Alter int
		Type  string // add, alter or subtract
	}
)

// chordKinds is ordered so that longer suffixes match before their prefixes.
var chordKinds = []struct {
	suffix string
	kind   string
}{
	{"mMaj7", "major-minor"},
	{"m(maj7)", "major-minor"},
	{"mM7", "major-minor"},
	{"maj13", "major-13th"},
	{"maj11", "major-11th"},
	{"maj9", "major-ninth"},
	{"maj7", "major-seventh"},
	{"maj", "major"},
	{"M7", "major-seventh"},
	{"Δ7", "major-seventh"},
	{"Δ", "major-seventh"},
	{"m7b5", "half-diminished"},
	{"ø7", "half-diminished"},
	{"ø", "half-diminished"},
	{"dim7", "diminished-seventh"},
	{"o7", "diminished-seventh"},
	{"dim", "diminished"},
	{"o", "diminished"},
	{"aug7", "augmented-seventh"},
	{"+7", "augmented-seventh"},
	{"aug", "augmented"},
	{"+", "augmented"},
	{"min13", "minor-13th"},
	{"min11", "minor-11th"},
	{"min9", "minor-ninth"},
	{"min7", "minor-seventh"},
	{"min6", "minor-sixth"},
	{"m13", "minor-13th"},
	{"m11", "minor-11th"},
	{"m9", "minor-ninth"},
	{"m7", "minor-seventh"},
	{"-7", "minor-seventh"},
	{"m6", "minor-sixth"},
	{"min", "minor"},
	{"m", "minor"},
	{"-", "minor"},
	{"13sus4", "suspended-fourth"},
	{"13sus", "suspended-fourth"},
	{"13", "dominant-13th"},
	{"11", "dominant-11th"},
	{"9sus4", "suspended-fourth"},
	{"9sus", "suspended-fourth"},
	{"9", "dominant-ninth"},
	{"7sus4", "suspended-fourth"},
	{"7sus", "suspended-fourth"},
	{"7", "dominant"},
	{"6/9", "major-sixth"},
	{"69", "major-sixth"},
	{"6", "major-sixth"},
	{"sus2", "suspended-second"},
	{"sus4", "suspended-fourth"},
	{"sus", "suspended-fourth"},
	{"5", "power"},
}

var kindIntervals = map[string][]int{
	"major":              {0, 4, 7},
	"minor":              {0, 3, 7},
	"augmented":          {0, 4, 8},
	"diminished":         {0, 3, 6},
	"dominant":           {0, 4, 7, 10},
	"major-seventh":      {0, 4, 7, 11},
	"minor-seventh":      {0, 3, 7, 10},
	"diminished-seventh": {0, 3, 6, 9},
	"augmented-seventh":  {0, 4, 8, 10},
	"half-diminished":    {0, 3, 6, 10},
	"major-minor":        {0, 3, 7, 11},
	"major-sixth":        {0, 4, 7, 9},
	"minor-sixth":        {0, 3, 7, 9},
	"dominant-ninth":     {0, 4, 7, 10, 14},
	"major-ninth":        {0, 4, 7, 11, 14},
	"minor-ninth":        {0, 3, 7, 10, 14},
	"dominant-11th":      {0, 4, 7, 10, 14, 17},
	"major-11th":         {0, 4, 7, 11, 14, 17},
	"minor-11th":         {0, 3, 7, 10, 14, 17},
	"dominant-13th":      {0, 4, 7, 10, 14, 21},
	"major-13th":         {0, 4, 7, 11, 14, 21},
	"minor-13th":         {0, 3, 7, 10, 14, 21},
	"suspended-second":   {0, 2, 7},
	"suspended-fourth":   {0, 5, 7},
	"power":              {0, 7},
}

var degreeSemitones = map[int]int{1: 0, 2: 2, 3: 4, 4: 5, 5: 7, 6: 9, 7: 11, 9: 14, 11: 17, 13: 21}

// noChord are the spellings of "no chord"; they parse to kind "none".
var noChord = map[string]bool{"N.C.": true, "N.C": true, "NC": true}

// ParseHarmony parses a chord symbol such as "C", "F#m7", "Bbmaj7", "Am7b5",
// "G7(b9)", "Dadd9", "Em/G" or "N.C." into a Harmony.
func ParseHarmony(symbol string) (Harmony, error) {
	str := strings.TrimSpace(symbol)
	if noChord[str] {
		return Harmony{Kind: "none", Text: "N.C."}, nil
	}
	var h Harmony
	if i := strings.LastIndex(str, "/"); i >= 0 && i+1 < len(str) && isStep(str[i+1]) {
		step, alter, rest := parseNoteName(str[i+1:])
		if rest != "" {
			return Harmony{}, fmt.Errorf("invalid chord symbol %q: bad bass note", symbol)
		}
		h.BassStep, h.BassAlter = step, alter
		str = str[:i]
	}
	if str == "" || !isStep(str[0]) {
		return Harmony{}, fmt.Errorf("invalid chord symbol %q", symbol)
	}
	var suffix string
	h.RootStep, h.RootAlter, suffix = parseNoteName(str)
	h.Kind = "major"
	rest := suffix
	for _, k := range chordKinds {
		if strings.HasPrefix(suffix, k.suffix) {
			h.Kind = k.kind
			rest = suffix[len(k.suffix):]
			switch k.suffix {
			case "7sus4", "7sus":
				h.Degrees = append(h.Degrees, Degree{Value: 7, Alter: -1, Type: "add"})
			case "9sus4", "9sus":
				h.Degrees = append(h.Degrees, Degree{Value: 7, Alter: -1, Type: "add"}, Degree{Value: 9, Type: "add"})
			case "13sus4", "13sus":
				h.Degrees = append(h.Degrees, Degree{Value: 7, Alter: -1, Type: "add"}, Degree{Value: 9, Type: "add"}, Degree{Value: 13, Type: "add"})
			case "69", "6/9":
				h.Degrees = append(h.Degrees, Degree{Value: 9, Type: "add"})
			}
			break
		}
	}
	h.Text = suffix
	degrees, err := parseDegrees(rest)
	if err != nil {
		return Harmony{}, fmt.Errorf("invalid chord symbol %q: %w", symbol, err)
	}
	h.Degrees = append(h.Degrees, degrees...)
	return h, nil
}

func isStep(c byte) bool {
	return c >= 'A' && c <= 'G'
}

// parseNoteName reads an uppercase step letter followed by at most one '#'
// or 'b'. A single accidental keeps "Bbb5" (B-flat, flat five) parseable.
func parseNoteName(s string) (step byte, alter int, rest string) {
	step = s[0]
	rest = s[1:]
	if len(rest) > 0 {
		switch rest[0] {
		case '#':
			alter = 1
			rest = rest[1:]
		case 'b':
			alter = -1
			rest = rest[1:]
		}
	}
	return
}

// parseDegrees parses modifiers like "b9", "#11", "add9", "no3" and "(b9,#11)".
func parseDegrees(s string) ([]Degree, error) {
	s = strings.NewReplacer("(", "", ")", "", ",", "", " ", "").Replace(s)
	var ret []Degree
	for s != "" {
		d := Degree{Type: "add"}
		switch {
		case strings.HasPrefix(s, "add"):
			s = s[3:]
		case strings.HasPrefix(s, "no"):
			d.Type = "subtract"
			s = s[2:]
		case strings.HasPrefix(s, "#"):
			d.Alter = 1
			s = s[1:]
		case strings.HasPrefix(s, "b"):
			d.Alter = -1
			s = s[1:]
		default:
			return nil, fmt.Errorf("unexpected %q", s)
		}
		n := 0
		for n < len(s) && s[n] >= '0' && s[n] <= '9' {
			n++
		}
		value, err := strconv.Atoi(s[:n])
		if err != nil {
			return nil, fmt.Errorf("missing degree number before %q", s)
		}
		if _, ok := degreeSemitones[value]; !ok {
			return nil, fmt.Errorf("unsupported degree %d", value)
		}
		s = s[n:]
		d.Value = value
		if d.Value == 5 && d.Type == "add" && d.Alter != 0 {
			d.Type = "alter"
		}
		ret = append(ret, d)
	}
	return ret, nil
}

// NoChord reports whether the symbol marks a passage without harmony.
func (h Harmony) NoChord() bool { return h.Kind == "none" }

// RootStepString returns the root step letter. A "no chord" symbol has no
// root and reports C, the placeholder MusicXML expects with an empty text.
func (h Harmony) RootStepString() string {
	if h.RootStep == 0 {
		return "C"
	}
	return string(h.RootStep)
}

// BassStepString returns the bass step letter, "" when there is no bass note.
func (h Harmony) BassStepString() string {
	if h.BassStep == 0 {
		return ""
	}
	return string(h.BassStep)
}

// Semitones returns the chord tones as semitone offsets from the root,
// ascending, with added, altered and subtracted degrees applied.
func (h Harmony) Semitones() []int {
	if h.NoChord() {
		return nil
	}
	base, ok := kindIntervals[h.Kind]
	if !ok {
		base = kindIntervals["major"]
	}
	set := map[int]bool{}
	for _, i := range base {
		set[i] = true
	}
	for _, d := range h.Degrees {
		semis := degreeSemitones[d.Value]
		switch d.Type {
		case "alter":
			delete(set, semis)
			set[semis+d.Alter] = true
		case "subtract":
			delete(set, semis)
			delete(set, semis-1)
		default:
			set[semis+d.Alter] = true
		}
	}
	ret := make([]int, 0, len(set))
	for i := range set {
		ret = append(ret, i)
	}
	sort.Ints(ret)
	return ret
}

// Voicing returns MIDI note numbers for the chord with the root in the given
// octave (octave 4 puts a C root on middle C). A bass note, if any, is
// prepended one octave below the root octave. "No chord" has no notes.
func (h Harmony) Voicing(octave int) []int {
	if h.NoChord() {
		return nil
	}
	root := Pitch{Step: h.RootStep, Alter: h.RootAlter, Octave: octave}.MIDI()
	var ret []int
	if h.BassStep != 0 {
		bass := Pitch{Step: h.BassStep, Alter: h.BassAlter, Octave: octave - 1}.MIDI()
		ret = append(ret, bass)
	}
	for _, s := range h.Semitones() {
		if n := root + s; n >= 0 && n <= 127 {
			ret = append(ret, n)
		}
	}
	return ret
}
