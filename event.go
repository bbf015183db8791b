package prisms

import (
	"errors"
	"fmt"
)

// Event is a single notation event of a voice. Exactly one of Note, Chord or
// Rest makes the event sound (or rest) for Dur; an event with none of them is
// a zero-length harmony or direction event. Harmony, Dynamic, Words and Tempo
// can also decorate a sounding event, in which case they are emitted right
// before it.
type Event struct {
	Note  string   `yaml:",omitempty"`      // single pitch, e.g. "Bb3"
	Chord []string `yaml:",flow,omitempty"` // simultaneous pitches, lowest first
	Rest  bool     `yaml:",omitempty"`
	Dur   string   `yaml:",omitempty"` // e.g. "q", "h.", "8t"; "m" is a whole-measure rest

	Tie  string `yaml:",omitempty"` // start, stop or continue
	Slur string `yaml:",omitempty"` // start or stop

	Harmony string `yaml:",omitempty"` // chord symbol, e.g. "Am7/G"
	Dynamic string `yaml:",omitempty"` // p, mf, ff, sfz, ...
	Words   string `yaml:",omitempty"`
	Tempo   int    `yaml:",omitempty"` // metronome mark in quarter notes per minute

	Lyric        string `yaml:",omitempty"`
	Articulation string `yaml:",omitempty"` // staccato, staccatissimo, accent, tenuto, marcato (strong-accent)
	Fermata      bool   `yaml:",omitempty"`
}

// EventKind classifies events for the emitter.
type EventKind int

const (
	KindDirection EventKind = iota
	KindHarmony
	KindNote
	KindChord
	KindRest
)

func (k EventKind) String() string {
	switch k {
	case KindHarmony:
		return "harmony"
	case KindNote:
		return "note"
	case KindChord:
		return "chord"
	case KindRest:
		return "rest"
	default:
		return "direction"
	}
}

// Kind returns what the event primarily is. Sounding kinds win over harmony,
// and harmony wins over directions.
func (e *Event) Kind() EventKind {
	switch {
	case e.Note != "":
		return KindNote
	case len(e.Chord) > 0:
		return KindChord
	case e.Rest:
		return KindRest
	case e.Harmony != "":
		return KindHarmony
	default:
		return KindDirection
	}
}

// Sounding reports whether the event occupies time in its voice.
func (e *Event) Sounding() bool {
	k := e.Kind()
	return k == KindNote || k == KindChord || k == KindRest
}

// HasDirection reports whether the event carries a dynamic, words or tempo
// marking.
func (e *Event) HasDirection() bool {
	return e.Dynamic != "" || e.Words != "" || e.Tempo > 0
}

// MeasureRest reports whether the event is a whole-measure rest.
func (e *Event) MeasureRest() bool {
	return e.Rest && e.Dur == "m"
}

// Ticks returns the duration of the event in divisions. Non-sounding events
// have zero duration. A whole-measure rest has zero duration here; the
// compiler resolves it against the meter.
func (e *Event) Ticks() (int, error) {
	if !e.Sounding() || e.MeasureRest() {
		return 0, nil
	}
	d, err := ParseDuration(e.Dur)
	if err != nil {
		return 0, err
	}
	return d.Ticks()
}

// Pitches returns the parsed pitches of a note or chord event.
func (e *Event) Pitches() ([]Pitch, error) {
	var strs []string
	switch e.Kind() {
	case KindNote:
		strs = []string{e.Note}
	case KindChord:
		strs = e.Chord
	default:
		return nil, nil
	}
	ret := make([]Pitch, 0, len(strs))
	for _, s := range strs {
		p, err := ParsePitch(s)
		if err != nil {
			return nil, err
		}
		ret = append(ret, p)
	}
	return ret, nil
}

var (
	dynamics      = map[string]bool{"pppp": true, "ppp": true, "pp": true, "p": true, "mp": true, "mf": true, "f": true, "ff": true, "fff": true, "ffff": true, "fp": true, "fz": true, "sf": true, "sfz": true, "sfp": true, "rf": true, "rfz": true}
	// articulation names to MusicXML articulation elements
	articulations = map[string]string{
		"staccato":      "staccato",
		"staccatissimo": "staccatissimo",
		"accent":        "accent",
		"tenuto":        "tenuto",
		"strong-accent": "strong-accent",
		"marcato":       "strong-accent",
	}
)

// ArticulationElement returns the MusicXML element name of the articulation,
// "" if there is none or it is unknown.
func (e *Event) ArticulationElement() string {
	return articulations[e.Articulation]
}

func (e *Event) check() error {
	if e.Note != "" && len(e.Chord) > 0 {
		return errors.New("event has both note and chord")
	}
	if e.Rest && (e.Note != "" || len(e.Chord) > 0) {
		return errors.New("rest event has pitches")
	}
	if _, err := e.Pitches(); err != nil {
		return err
	}
	if e.Harmony != "" {
		if _, err := ParseHarmony(e.Harmony); err != nil {
			return err
		}
	}
	if e.Dynamic != "" && !dynamics[e.Dynamic] {
		return fmt.Errorf("unknown dynamic %q", e.Dynamic)
	}
	if _, ok := articulations[e.Articulation]; e.Articulation != "" && !ok {
		return fmt.Errorf("unknown articulation %q", e.Articulation)
	}
	switch e.Tie {
	case "", "start", "stop", "continue":
	default:
		return fmt.Errorf("unknown tie %q", e.Tie)
	}
	switch e.Slur {
	case "", "start", "stop":
	default:
		return fmt.Errorf("unknown slur %q", e.Slur)
	}
	if (e.Tie != "" || e.Slur != "") && e.Kind() != KindNote && e.Kind() != KindChord {
		return errors.New("ties and slurs need a note or chord")
	}
	if e.Sounding() && !e.MeasureRest() && e.Dur == "" {
		return errors.New("sounding event has no duration")
	}
	if e.MeasureRest() {
		return nil
	}
	if !e.Sounding() && e.Dur != "" {
		return fmt.Errorf("%v event cannot have a duration", e.Kind())
	}
	return nil
}
