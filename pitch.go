package prisms

import (
	"fmt"
	"strconv"
	"strings"
)

// Pitch is a spelled pitch: step letter, chromatic alteration and octave in
// scientific pitch notation (C4 is middle C).
type Pitch struct {
	Step   byte // 'A' .. 'G'
	Alter  int  // -2 .. 2
	Octave int
}

var stepSemitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// ParsePitch parses pitches like "C4", "F#5", "Bb3", "Ebb2" or "C##4". The
// step letter may be lowercase; "b" after the step is always a flat.
func ParsePitch(s string) (Pitch, error) {
	str := strings.TrimSpace(s)
	if len(str) < 2 {
		return Pitch{}, fmt.Errorf("invalid pitch %q", s)
	}
	step := byte(strings.ToUpper(str[:1])[0])
	if _, ok := stepSemitones[step]; !ok {
		return Pitch{}, fmt.Errorf("invalid pitch %q: unknown step %q", s, str[:1])
	}
	alter, rest := parseAccidentals(str[1:])
	if alter < -2 || alter > 2 {
		return Pitch{}, fmt.Errorf("invalid pitch %q: too many accidentals", s)
	}
	octave, err := strconv.Atoi(rest)
	if err != nil || octave < 0 || octave > 9 {
		return Pitch{}, fmt.Errorf("invalid pitch %q: bad octave %q", s, rest)
	}
	p := Pitch{Step: step, Alter: alter, Octave: octave}
	if n := p.MIDI(); n < 0 || n > 127 {
		return Pitch{}, fmt.Errorf("invalid pitch %q: MIDI note %d out of range 0..127", s, n)
	}
	return p, nil
}

// parseAccidentals consumes leading '#', 'b' and 'x' (double sharp)
// characters, returning the alteration and the remaining string.
func parseAccidentals(s string) (int, string) {
	alter := 0
	for len(s) > 0 {
		switch s[0] {
		case '#':
			alter++
		case 'x':
			alter += 2
		case 'b':
			alter--
		default:
			return alter, s
		}
		s = s[1:]
	}
	return alter, s
}

// MIDI returns the MIDI note number of the pitch; C4 is 60.
func (p Pitch) MIDI() int {
	return (p.Octave+1)*12 + stepSemitones[p.Step] + p.Alter
}

// StepString returns the step letter as a string, as MusicXML wants it.
func (p Pitch) StepString() string {
	return string(p.Step)
}

func (p Pitch) String() string {
	return fmt.Sprintf("%c%s%d", p.Step, accidentalString(p.Alter), p.Octave)
}

func accidentalString(alter int) string {
	switch {
	case alter > 0:
		return strings.Repeat("#", alter)
	case alter < 0:
		return strings.Repeat("b", -alter)
	}
	return ""
}
