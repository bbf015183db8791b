package compiler

import (
	"fmt"
	"strings"

	"github.com/prisms-score/prisms"
)

type (
	// ScoreMacros is the data given to the score template: the score and
	// movement being compiled, and every part's measures already resolved into
	// flat lists of MusicXML elements so that the templates only print.
	ScoreMacros struct {
		Score          *prisms.Score
		Movement       *prisms.Movement
		MovementNumber int
		Software       string
		Date           string
		Parts          []PartMacros
	}

	PartMacros struct {
		ID           string
		Name         string
		Abbreviation string
		Channel      int
		Program      int
		Measures     []MeasureMacros
	}

	MeasureMacros struct {
		Number         int
		Implicit       bool
		Attributes     *Attributes
		Items          []Item
		BarlineLeft    bool
		BarStyle       string
		RepeatBackward bool
	}

	// Attributes is nil for measures that change nothing; otherwise only the
	// non-zero fields are printed.
	Attributes struct {
		Divisions int
		Key       *prisms.KeySignature
		Time      *prisms.TimeSignature
		Staves    int
		Clefs     []ClefMacro
	}

	ClefMacro struct {
		Number int
		prisms.Clef
	}

	// Item is one element of a measure, in document order. Exactly one field
	// is set.
	Item struct {
		Note      *NoteMacro
		Harmony   *HarmonyMacro
		Direction *DirectionMacro
		Backup    int
	}

	NoteMacro struct {
		Chord        bool
		Rest         bool
		MeasureRest  bool
		Pitch        prisms.Pitch
		Duration     int
		Voice        int
		Staff        int
		Type         string
		Dots         int
		Triplet      bool
		Ties         []string
		Slur         string
		Articulation string
		Fermata      bool
		Lyric        *LyricMacro
	}

	LyricMacro struct {
		Syllabic string
		Text     string
	}

	HarmonyMacro struct {
		prisms.Harmony
		Staff int
	}

	DirectionMacro struct {
		Placement string
		Rehearsal string
		Words     string
		Dynamic   string
		Tempo     int
		Staff     int
	}
)

// HasNotations reports whether the note needs a notations element.
func (n *NoteMacro) HasNotations() bool {
	return len(n.Ties) > 0 || n.Slur != "" || n.Articulation != "" || n.Fermata
}

// NewScoreMacros resolves movement index of a valid score into template data.
func NewScoreMacros(score *prisms.Score, index int) (*ScoreMacros, error) {
	m := &score.Movements[index]
	number := m.Number
	if number == 0 {
		number = index + 1
	}
	ret := &ScoreMacros{Score: score, Movement: m, MovementNumber: number}
	pickup := m.Pickup()
	for pi, part := range score.Parts {
		music, _ := m.Music(part.ID)
		pm := PartMacros{
			ID:           part.ID,
			Name:         part.Name,
			Abbreviation: part.Abbreviation,
			Channel:      part.Channel,
			Program:      part.Program,
		}
		if pm.Channel == 0 {
			pm.Channel = pi%16 + 1
		}
		if pm.Program == 0 {
			pm.Program = 1
		}
		for i := range music.Measures {
			mm, err := newMeasureMacros(m, &part, music, i, pi == 0, pickup)
			if err != nil {
				return nil, fmt.Errorf("part %q measure %d: %w", part.ID, i+1, err)
			}
			pm.Measures = append(pm.Measures, mm)
		}
		ret.Parts = append(ret.Parts, pm)
	}
	return ret, nil
}

func newMeasureMacros(m *prisms.Movement, part *prisms.Part, music prisms.PartMusic, index int, first bool, pickup int) (MeasureMacros, error) {
	meas := music.Measures[index]
	meter, err := m.MeterAt(music, index)
	if err != nil {
		return MeasureMacros{}, err
	}
	capacity := meter.Ticks()
	ret := MeasureMacros{Number: index + 1}
	if pickup > 0 {
		ret.Number = index
		if index == 0 {
			ret.Implicit = true
			capacity = pickup
		}
	}
	ret.Attributes, err = attributes(m, part, meas, index, meter)
	if err != nil {
		return MeasureMacros{}, err
	}
	switch meas.Barline {
	case "repeat-start":
		ret.BarlineLeft = true
	case "repeat-end":
		ret.BarStyle = meas.BarStyle()
		ret.RepeatBackward = true
	default:
		ret.BarStyle = meas.BarStyle()
	}
	if first && index == 0 && m.Tempo > 0 {
		ret.Items = append(ret.Items, Item{Direction: &DirectionMacro{Placement: "above", Tempo: m.Tempo}})
	}
	if first && meas.Rehearsal != "" {
		ret.Items = append(ret.Items, Item{Direction: &DirectionMacro{Placement: "above", Rehearsal: meas.Rehearsal}})
	}
	voices := meas.Voices
	if len(voices) == 0 {
		voices = []prisms.Voice{{Events: []prisms.Event{{Rest: true, Dur: "m"}}}}
	}
	multiStaff := part.StaffCount() > 1
	for vi, v := range voices {
		staff := 0
		if multiStaff {
			staff = max(v.Staff, 1)
		}
		total := 0
		for _, e := range v.Events {
			items, ticks, err := eventItems(e, vi+1, staff, capacity)
			if err != nil {
				return MeasureMacros{}, err
			}
			ret.Items = append(ret.Items, items...)
			total += ticks
		}
		if vi < len(voices)-1 && total > 0 {
			ret.Items = append(ret.Items, Item{Backup: total})
		}
	}
	return ret, nil
}

func attributes(m *prisms.Movement, part *prisms.Part, meas prisms.Measure, index int, meter prisms.TimeSignature) (*Attributes, error) {
	if index > 0 && meas.Key == "" && meas.Time == "" {
		return nil, nil
	}
	ret := &Attributes{}
	keyStr := meas.Key
	if index == 0 {
		ret.Divisions = prisms.Divisions
		if keyStr == "" {
			keyStr = m.Key
		}
		if keyStr == "" {
			keyStr = "C"
		}
		if part.StaffCount() > 1 {
			ret.Staves = part.StaffCount()
		}
		for s := 1; s <= part.StaffCount(); s++ {
			c := ClefMacro{Clef: prisms.LookupClef(part.Clef(s))}
			if part.StaffCount() > 1 {
				c.Number = s
			}
			ret.Clefs = append(ret.Clefs, c)
		}
	}
	if keyStr != "" {
		key, err := prisms.ParseKey(keyStr)
		if err != nil {
			return nil, err
		}
		ret.Key = &key
	}
	if index == 0 || meas.Time != "" {
		ret.Time = &meter
	}
	return ret, nil
}

// eventItems expands one event into harmony, direction and note items and
// returns the number of divisions it advances the voice by.
func eventItems(e prisms.Event, voice, staff, capacity int) ([]Item, int, error) {
	var ret []Item
	if e.Harmony != "" {
		h, err := prisms.ParseHarmony(e.Harmony)
		if err != nil {
			return nil, 0, err
		}
		ret = append(ret, Item{Harmony: &HarmonyMacro{Harmony: h, Staff: staff}})
	}
	if e.Words != "" || e.Tempo > 0 {
		ret = append(ret, Item{Direction: &DirectionMacro{Placement: "above", Words: e.Words, Tempo: e.Tempo, Staff: staff}})
	}
	if e.Dynamic != "" {
		ret = append(ret, Item{Direction: &DirectionMacro{Placement: "below", Dynamic: e.Dynamic, Staff: staff}})
	}
	if !e.Sounding() {
		return ret, 0, nil
	}
	if e.MeasureRest() {
		ret = append(ret, Item{Note: &NoteMacro{Rest: true, MeasureRest: true, Duration: capacity, Voice: voice, Staff: staff}})
		return ret, capacity, nil
	}
	d, err := prisms.ParseDuration(e.Dur)
	if err != nil {
		return nil, 0, err
	}
	ticks, err := d.Ticks()
	if err != nil {
		return nil, 0, err
	}
	base := NoteMacro{
		Duration: ticks,
		Voice:    voice,
		Staff:    staff,
		Type:     d.Type(),
		Dots:     d.Dots,
		Triplet:  d.Triplet,
	}
	if e.Rest {
		base.Rest = true
		ret = append(ret, Item{Note: &base})
		return ret, ticks, nil
	}
	pitches, err := e.Pitches()
	if err != nil {
		return nil, 0, err
	}
	switch e.Tie {
	case "start", "stop":
		base.Ties = []string{e.Tie}
	case "continue":
		base.Ties = []string{"stop", "start"}
	}
	for i, p := range pitches {
		n := base
		n.Pitch = p
		n.Chord = i > 0
		if i == 0 {
			n.Slur = e.Slur
			n.Articulation = e.ArticulationElement()
			n.Fermata = e.Fermata
			n.Lyric = lyric(e.Lyric)
		}
		ret = append(ret, Item{Note: &n})
	}
	return ret, ticks, nil
}

// lyric turns "syl-" into a beginning syllable and "-syl" into an ending one;
// "-syl-" is a middle syllable.
func lyric(text string) *LyricMacro {
	if text == "" {
		return nil
	}
	begins := strings.HasSuffix(text, "-")
	ends := strings.HasPrefix(text, "-")
	text = strings.Trim(text, "-")
	syllabic := "single"
	switch {
	case begins && ends:
		syllabic = "middle"
	case begins:
		syllabic = "begin"
	case ends:
		syllabic = "end"
	}
	return &LyricMacro{Syllabic: syllabic, Text: text}
}
