package prisms

import (
	"errors"
	"fmt"
)

type (
	// Score is the complete document from which MusicXML is generated: the
	// work metadata, the list of parts (instruments) and one or more
	// movements. Every movement carries music for every part, so the parts are
	// defined once and shared by all movements.
	Score struct {
		Title     string
		Subtitle  string `yaml:",omitempty"`
		Composer  string `yaml:",omitempty"`
		Lyricist  string `yaml:",omitempty"`
		Rights    string `yaml:",omitempty"`
		Parts     []Part
		Movements []Movement
		Layout    *Layout `yaml:",omitempty"`
	}

	// Part defines an instrument of the score. ID is used in the generated
	// MusicXML part-list and must be unique within the score, e.g. "P1".
	Part struct {
		ID           string
		Name         string
		Abbreviation string `yaml:",omitempty"`

		// Staves is the number of staves of the part; 0 means 1. A piano part
		// usually has 2 staves.
		Staves int `yaml:",omitempty"`

		// Clefs lists the clef of each staff, e.g. ["treble", "bass"]. Missing
		// clefs default to treble.
		Clefs []string `yaml:",flow,omitempty"`

		// Program is the General MIDI program (1-128) used for the
		// midi-instrument element and the MIDI proof; 0 means acoustic piano.
		Program int `yaml:",omitempty"`

		// Channel is the MIDI channel (1-16); 0 means the part index + 1.
		Channel int `yaml:",omitempty"`
	}

	// Movement is one self-contained movement of the score. Tempo, Key and
	// Time are the initial settings; measures can change key and time.
	Movement struct {
		Number int    `yaml:",omitempty"`
		Title  string `yaml:",omitempty"`
		Tempo  int    `yaml:",omitempty"`
		Key    string `yaml:",omitempty"`
		Time   string `yaml:",omitempty"`
		Parts  []PartMusic
	}

	// PartMusic is the music of one part in one movement.
	PartMusic struct {
		ID       string
		Measures []Measure
	}

	// Measure holds one or more voices. Time and Key, if set, change the
	// meter / key signature starting from this measure.
	Measure struct {
		Time      string `yaml:",omitempty"`
		Key       string `yaml:",omitempty"`
		Barline   string `yaml:",omitempty"` // final, double, repeat-start or repeat-end
		Rehearsal string `yaml:",omitempty"`
		Voices    []Voice
	}

	// Voice is a list of consecutive events on one staff. Voices of a measure
	// all start at the beginning of the measure.
	Voice struct {
		Staff  int `yaml:",omitempty"`
		Events []Event
	}

	// Layout contains the optional engraving defaults written to the
	// generated document. All distances are in tenths.
	Layout struct {
		Millimeters float64
		Tenths      float64
		PageHeight  float64 `yaml:",omitempty"`
		PageWidth   float64 `yaml:",omitempty"`
		Margins     Margins `yaml:",omitempty"`
	}

	Margins struct {
		Left   float64
		Right  float64
		Top    float64
		Bottom float64
	}
)

// Part returns the part with the given id and true, or a zero Part and false
// if the score has no such part.
func (s *Score) Part(id string) (Part, bool) {
	for _, p := range s.Parts {
		if p.ID == id {
			return p, true
		}
	}
	return Part{}, false
}

// Copy makes a deep copy of a Score.
func (s *Score) Copy() Score {
	ret := *s
	ret.Parts = make([]Part, len(s.Parts))
	for i, p := range s.Parts {
		ret.Parts[i] = p
		ret.Parts[i].Clefs = append([]string(nil), p.Clefs...)
	}
	ret.Movements = make([]Movement, len(s.Movements))
	for i, m := range s.Movements {
		ret.Movements[i] = m.Copy()
	}
	if s.Layout != nil {
		l := *s.Layout
		ret.Layout = &l
	}
	return ret
}

// Copy makes a deep copy of a Movement.
func (m *Movement) Copy() Movement {
	ret := *m
	ret.Parts = make([]PartMusic, len(m.Parts))
	for i, p := range m.Parts {
		measures := make([]Measure, len(p.Measures))
		for j, meas := range p.Measures {
			measures[j] = meas.Copy()
		}
		ret.Parts[i] = PartMusic{ID: p.ID, Measures: measures}
	}
	return ret
}

// Copy makes a deep copy of a Measure.
func (m *Measure) Copy() Measure {
	ret := *m
	ret.Voices = make([]Voice, len(m.Voices))
	for i, v := range m.Voices {
		events := make([]Event, len(v.Events))
		for j, e := range v.Events {
			events[j] = e
			events[j].Chord = append([]string(nil), e.Chord...)
		}
		ret.Voices[i] = Voice{Staff: v.Staff, Events: events}
	}
	return ret
}

// StaffCount returns the number of staves of the part, at least 1.
func (p *Part) StaffCount() int {
	if p.Staves < 1 {
		return 1
	}
	return p.Staves
}

// Clef returns the clef name of the given 1-based staff, "treble" if the part
// does not define one.
func (p *Part) Clef(staff int) string {
	if staff >= 1 && staff <= len(p.Clefs) && p.Clefs[staff-1] != "" {
		return p.Clefs[staff-1]
	}
	return "treble"
}

// MeasureCount returns the number of measures of the movement, i.e. the
// measure count of its first part. Validate ensures all parts agree.
func (m *Movement) MeasureCount() int {
	if len(m.Parts) == 0 {
		return 0
	}
	return len(m.Parts[0].Measures)
}

// Music returns the music of the given part in this movement.
func (m *Movement) Music(id string) (PartMusic, bool) {
	for _, p := range m.Parts {
		if p.ID == id {
			return p, true
		}
	}
	return PartMusic{}, false
}

// MeterAt returns the time signature in effect at the measure with the given
// index: the last Time set at or before it, the movement's Time, or 4/4.
func (m *Movement) MeterAt(part PartMusic, index int) (TimeSignature, error) {
	str := m.Time
	for i := 0; i <= index && i < len(part.Measures); i++ {
		if part.Measures[i].Time != "" {
			str = part.Measures[i].Time
		}
	}
	if str == "" {
		return CommonTime, nil
	}
	return ParseTime(str)
}

// Pickup returns the length in divisions of the first measure if it is
// shorter than its meter in every part, 0 otherwise.
func (m *Movement) Pickup() int {
	length, capacity := 0, 0
	for _, pm := range m.Parts {
		if len(pm.Measures) == 0 {
			return 0
		}
		meter, err := m.MeterAt(pm, 0)
		if err != nil {
			return 0
		}
		capacity = meter.Ticks()
		length = max(length, pm.Measures[0].Ticks())
	}
	if length == 0 || length >= capacity {
		return 0
	}
	return length
}

// Validate checks that the score is something the compiler can turn into
// MusicXML: part ids are unique, every movement has music for every part,
// parts of a movement agree on the measure count, every event parses and no
// voice overfills its measure.
func (s *Score) Validate() error {
	if len(s.Parts) == 0 {
		return errors.New("score contains no parts")
	}
	if len(s.Movements) == 0 {
		return errors.New("score contains no movements")
	}
	ids := map[string]bool{}
	for i, p := range s.Parts {
		if p.ID == "" {
			return fmt.Errorf("part %d has no id", i+1)
		}
		if ids[p.ID] {
			return fmt.Errorf("duplicate part id %q", p.ID)
		}
		ids[p.ID] = true
		if p.Channel < 0 || p.Channel > 16 {
			return fmt.Errorf("part %q: channel %d out of range 1..16", p.ID, p.Channel)
		}
		if p.Program < 0 || p.Program > 128 {
			return fmt.Errorf("part %q: program %d out of range 1..128", p.ID, p.Program)
		}
		for _, c := range p.Clefs {
			if _, ok := clefs[c]; !ok && c != "" {
				return fmt.Errorf("part %q: unknown clef %q", p.ID, c)
			}
		}
	}
	for mi := range s.Movements {
		if err := s.validateMovement(&s.Movements[mi]); err != nil {
			return fmt.Errorf("movement %d: %w", mi+1, err)
		}
	}
	return nil
}

func (s *Score) validateMovement(m *Movement) error {
	if m.Key != "" {
		if _, err := ParseKey(m.Key); err != nil {
			return err
		}
	}
	if m.Time != "" {
		if _, err := ParseTime(m.Time); err != nil {
			return err
		}
	}
	if m.Tempo < 0 {
		return fmt.Errorf("negative tempo %d", m.Tempo)
	}
	seen := map[string]bool{}
	for _, pm := range m.Parts {
		if _, ok := s.Part(pm.ID); !ok {
			return fmt.Errorf("music for undefined part %q", pm.ID)
		}
		if seen[pm.ID] {
			return fmt.Errorf("part %q appears twice", pm.ID)
		}
		seen[pm.ID] = true
	}
	for _, p := range s.Parts {
		if !seen[p.ID] {
			return fmt.Errorf("part %q has no music", p.ID)
		}
	}
	count := m.MeasureCount()
	if count == 0 {
		return errors.New("movement has no measures")
	}
	for _, pm := range m.Parts {
		if len(pm.Measures) != count {
			return fmt.Errorf("part %q has %d measures, expected %d", pm.ID, len(pm.Measures), count)
		}
		part, _ := s.Part(pm.ID)
		for i, meas := range pm.Measures {
			if err := validateMeasure(m, &part, pm, i, meas); err != nil {
				return fmt.Errorf("part %q measure %d: %w", pm.ID, i+1, err)
			}
		}
	}
	return nil
}

func validateMeasure(m *Movement, part *Part, pm PartMusic, index int, meas Measure) error {
	if meas.Key != "" {
		if _, err := ParseKey(meas.Key); err != nil {
			return err
		}
	}
	meter, err := m.MeterAt(pm, index)
	if err != nil {
		return err
	}
	if _, ok := barlines[meas.Barline]; !ok {
		return fmt.Errorf("unknown barline %q", meas.Barline)
	}
	for vi, v := range meas.Voices {
		if v.Staff < 0 || v.Staff > part.StaffCount() {
			return fmt.Errorf("voice %d: staff %d out of range 1..%d", vi+1, v.Staff, part.StaffCount())
		}
		total, sounding, measureRest := 0, 0, false
		for ei, e := range v.Events {
			if e.Sounding() {
				sounding++
				measureRest = measureRest || e.MeasureRest()
			}
			ticks, err := e.Ticks()
			if err != nil {
				return fmt.Errorf("voice %d event %d: %w", vi+1, ei+1, err)
			}
			if err := e.check(); err != nil {
				return fmt.Errorf("voice %d event %d: %w", vi+1, ei+1, err)
			}
			total += ticks
		}
		if measureRest && sounding > 1 {
			return fmt.Errorf("voice %d: a measure rest must be the only note or rest of its voice", vi+1)
		}
		if total > meter.Ticks() {
			return fmt.Errorf("voice %d overfills the measure: %d > %d divisions", vi+1, total, meter.Ticks())
		}
	}
	return nil
}

// Warnings lists the suspicious but valid spots of the score: interior
// measures whose voices do not fill the meter. The first measure of a
// movement is treated as a pickup and the last one may be short. Warnings
// assumes the score is valid.
func (s *Score) Warnings() []string {
	var ret []string
	for mi := range s.Movements {
		m := &s.Movements[mi]
		for _, pm := range m.Parts {
			for i := 1; i < len(pm.Measures)-1; i++ {
				meter, err := m.MeterAt(pm, i)
				if err != nil {
					continue
				}
				for vi, v := range pm.Measures[i].Voices {
					if v.hasMeasureRest() {
						continue
					}
					if t := v.Ticks(); t < meter.Ticks() {
						ret = append(ret, fmt.Sprintf("movement %d part %q measure %d voice %d: underfull (%d of %d divisions)", mi+1, pm.ID, i+1, vi+1, t, meter.Ticks()))
					}
				}
			}
		}
	}
	return ret
}

// Ticks returns the summed duration of the voice in divisions; events that
// fail to parse count as zero.
func (v *Voice) Ticks() int {
	total := 0
	for _, e := range v.Events {
		t, _ := e.Ticks()
		total += t
	}
	return total
}

func (v *Voice) hasMeasureRest() bool {
	for _, e := range v.Events {
		if e.MeasureRest() {
			return true
		}
	}
	return false
}

// Ticks returns the length of the measure: the longest voice.
func (m *Measure) Ticks() int {
	ret := 0
	for _, v := range m.Voices {
		ret = max(ret, v.Ticks())
	}
	return ret
}

var barlines = map[string]string{
	"":             "",
	"final":        "light-heavy",
	"double":       "light-light",
	"repeat-start": "heavy-light",
	"repeat-end":   "light-heavy",
	"dashed":       "dashed",
}

// BarStyle returns the MusicXML bar-style of the measure's barline, "" for a
// regular barline.
func (m *Measure) BarStyle() string {
	return barlines[m.Barline]
}
