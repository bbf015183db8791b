package prisms

import (
	"fmt"
	"strconv"
	"strings"
)

type (
	// TimeSignature is a meter like 3/4.
	TimeSignature struct {
		Beats    int
		BeatType int
	}

	// KeySignature is a key in the circle of fifths: Fifths is the number of
	// sharps (positive) or flats (negative), Mode is "major" or "minor".
	KeySignature struct {
		Fifths int
		Mode   string
	}
)

// CommonTime is the default meter.
var CommonTime = TimeSignature{Beats: 4, BeatType: 4}

// ParseTime parses "3/4" style time signatures; "C" is 4/4 and "C|" is 2/2.
func ParseTime(s string) (TimeSignature, error) {
	str := strings.TrimSpace(s)
	switch str {
	case "C", "c":
		return CommonTime, nil
	case "C|", "c|":
		return TimeSignature{Beats: 2, BeatType: 2}, nil
	}
	num, den, ok := strings.Cut(str, "/")
	if !ok {
		return TimeSignature{}, fmt.Errorf("invalid time signature %q", s)
	}
	beats, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || beats < 1 {
		return TimeSignature{}, fmt.Errorf("invalid time signature %q", s)
	}
	beatType, err := strconv.Atoi(strings.TrimSpace(den))
	if err != nil {
		return TimeSignature{}, fmt.Errorf("invalid time signature %q", s)
	}
	switch beatType {
	case 1, 2, 4, 8, 16, 32:
	default:
		return TimeSignature{}, fmt.Errorf("invalid time signature %q: beat type must be a power of two", s)
	}
	return TimeSignature{Beats: beats, BeatType: beatType}, nil
}

// Ticks returns the capacity of a measure in divisions.
func (t TimeSignature) Ticks() int {
	return t.Beats * Divisions * 4 / t.BeatType
}

func (t TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", t.Beats, t.BeatType)
}

var majorFifths = map[string]int{
	"Cb": -7, "Gb": -6, "Db": -5, "Ab": -4, "Eb": -3, "Bb": -2, "F": -1,
	"C": 0, "G": 1, "D": 2, "A": 3, "E": 4, "B": 5, "F#": 6, "C#": 7,
}

// ParseKey parses key names: "Eb" or "Eb major" is E-flat major; "c#m",
// "C#m" or "C# minor" is C-sharp minor.
func ParseKey(s string) (KeySignature, error) {
	str := strings.TrimSpace(s)
	mode := "major"
	switch {
	case strings.HasSuffix(str, " major"):
		str = strings.TrimSuffix(str, " major")
	case strings.HasSuffix(str, " minor"):
		str = strings.TrimSuffix(str, " minor")
		mode = "minor"
	case strings.HasSuffix(str, "m") && len(str) > 1:
		str = strings.TrimSuffix(str, "m")
		mode = "minor"
	}
	if str == "" {
		return KeySignature{}, fmt.Errorf("invalid key %q", s)
	}
	tonic := strings.ToUpper(str[:1]) + str[1:]
	fifths, ok := majorFifths[tonic]
	if mode == "minor" {
		// a minor key has the signature of the major key a minor third up
		fifths, ok = minorFifths(tonic)
	}
	if !ok {
		return KeySignature{}, fmt.Errorf("invalid key %q", s)
	}
	return KeySignature{Fifths: fifths, Mode: mode}, nil
}

func minorFifths(tonic string) (int, bool) {
	if f, ok := majorFifths[tonic]; ok && f-3 >= -7 {
		return f - 3, true
	}
	// G#, D# and A# minor have no enharmonic major spelling in the table
	switch tonic {
	case "G#":
		return 5, true
	case "D#":
		return 6, true
	case "A#":
		return 7, true
	}
	return 0, false
}
