package compiler_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prisms-score/prisms"
	"github.com/prisms-score/prisms/compiler"
	"github.com/prisms-score/prisms/musicxml"
)

func testScore() *prisms.Score {
	return &prisms.Score{
		Title:    "the master's palette",
		Composer: "A & B",
		Parts: []prisms.Part{
			{ID: "P1", Name: "Lead", Program: 57},
			{ID: "P2", Name: "Piano", Staves: 2, Clefs: []string{"treble", "bass"}},
		},
		Movements: []prisms.Movement{{
			Title: "first light",
			Tempo: 96,
			Key:   "Eb",
			Time:  "3/4",
			Parts: []prisms.PartMusic{
				{ID: "P1", Measures: []prisms.Measure{
					{Voices: []prisms.Voice{{Events: []prisms.Event{
						{Harmony: "Eb"},
						{Note: "Bb4", Dur: "q"},
					}}}},
					{Rehearsal: "A", Voices: []prisms.Voice{{Events: []prisms.Event{
						{Note: "Eb5", Dur: "h", Tie: "start", Slur: "start", Lyric: "Pri-"},
						{Note: "Eb5", Dur: "q", Tie: "stop", Slur: "stop", Lyric: "-sms"},
					}}}},
					{Barline: "final", Voices: []prisms.Voice{{Events: []prisms.Event{
						{Chord: []string{"G4", "Bb4"}, Dur: "8t"},
						{Chord: []string{"G4", "Bb4"}, Dur: "8t"},
						{Chord: []string{"G4", "Bb4"}, Dur: "8t"},
						{Rest: true, Dur: "h"},
					}}}},
				}},
				{ID: "P2", Measures: []prisms.Measure{
					{Voices: []prisms.Voice{{Staff: 1, Events: []prisms.Event{{Rest: true, Dur: "q"}}}}},
					{Voices: []prisms.Voice{
						{Staff: 1, Events: []prisms.Event{{Chord: []string{"G4", "Bb4", "Eb5"}, Dur: "h."}}},
						{Staff: 2, Events: []prisms.Event{{Note: "Eb3", Dur: "h.", Dynamic: "mp"}}},
					}},
					{Barline: "final"},
				}},
			},
		}},
	}
}

func compileMovement(t *testing.T, score *prisms.Score) *musicxml.Document {
	t.Helper()
	com, err := compiler.New()
	if err != nil {
		t.Fatalf("compiler.New failed: %v", err)
	}
	com.Date = "2024-05-01"
	com.Software = "prisms test"
	text, err := com.Movement(score, 0)
	if err != nil {
		t.Fatalf("Movement failed: %v", err)
	}
	doc, err := musicxml.Parse([]byte(text))
	if err != nil {
		t.Fatalf("generated document does not parse: %v\n%v", err, text)
	}
	return doc
}

func text(t *testing.T, doc *musicxml.Document, path string) string {
	t.Helper()
	e := doc.Root().FindElement(path)
	if e == nil {
		t.Fatalf("no element at %v", path)
	}
	return e.Text()
}

func TestMovementCounts(t *testing.T) {
	doc := compileMovement(t, testScore())
	stats := doc.Stats()
	if stats.Measures["P1"] != 3 || stats.Measures["P2"] != 3 {
		t.Fatalf("measure counts %v, expected 3 per part", stats.Measures)
	}
	if stats.Notes != 13 {
		t.Fatalf("got %d notes, expected 13", stats.Notes)
	}
	if stats.Rests != 3 {
		t.Fatalf("got %d rests, expected 3", stats.Rests)
	}
	if stats.Harmonies != 1 {
		t.Fatalf("got %d harmonies, expected 1", stats.Harmonies)
	}
}

func TestMovementHeader(t *testing.T) {
	doc := compileMovement(t, testScore())
	if got := text(t, doc, "./work/work-title"); got != "the master's palette" {
		t.Fatalf("work title %q", got)
	}
	if got := text(t, doc, "./movement-title"); got != "first light" {
		t.Fatalf("movement title %q", got)
	}
	if got := text(t, doc, "./identification/creator[@type='composer']"); got != "A & B" {
		t.Fatalf("composer %q", got)
	}
	if got := text(t, doc, "./identification/encoding/software"); got != "prisms test" {
		t.Fatalf("software %q", got)
	}
	if got := text(t, doc, "./identification/encoding/encoding-date"); got != "2024-05-01" {
		t.Fatalf("encoding date %q", got)
	}
	if got := text(t, doc, "./credit/credit-words"); got != "The Master's Palette" {
		t.Fatalf("title credit %q", got)
	}
	if got := text(t, doc, "./part-list/score-part[@id='P1']/midi-instrument/midi-program"); got != "57" {
		t.Fatalf("P1 program %q", got)
	}
	if got := text(t, doc, "./part-list/score-part[@id='P2']/midi-instrument/midi-channel"); got != "2" {
		t.Fatalf("P2 channel %q", got)
	}
	if doc.Root().SelectElement("defaults") != nil {
		t.Fatalf("defaults written for a score without layout")
	}
}

func TestMovementPickupAndAttributes(t *testing.T) {
	doc := compileMovement(t, testScore())
	for _, id := range []string{"P1", "P2"} {
		ms := doc.Measures(id)
		if ms[0].SelectAttrValue("implicit", "") != "yes" || ms[0].SelectAttrValue("number", "") != "0" {
			t.Fatalf("part %v: first measure should be an implicit measure 0", id)
		}
		if ms[1].SelectAttrValue("number", "") != "1" || ms[2].SelectAttrValue("number", "") != "2" {
			t.Fatalf("part %v: measures not numbered from 1 after the pickup", id)
		}
		if got := ms[2].FindElement("./barline/bar-style"); got == nil || got.Text() != "light-heavy" {
			t.Fatalf("part %v: missing final barline", id)
		}
	}
	if got := doc.Divisions(); len(got) != 1 || got[0] != prisms.Divisions {
		t.Fatalf("divisions %v, expected [%d]", got, prisms.Divisions)
	}
	if got := text(t, doc, "./part/measure/attributes/key/fifths"); got != "-3" {
		t.Fatalf("key fifths %q", got)
	}
	if got := text(t, doc, "./part/measure/attributes/time/beats"); got != "3" {
		t.Fatalf("beats %q", got)
	}
	p2 := doc.Measures("P2")[0]
	if got := p2.FindElement("./attributes/staves"); got == nil || got.Text() != "2" {
		t.Fatalf("piano part should have 2 staves")
	}
	if clefs := p2.FindElements("./attributes/clef"); len(clefs) != 2 || clefs[1].FindElement("./sign").Text() != "F" {
		t.Fatalf("piano clefs not treble + bass")
	}
	if doc.Measures("P1")[1].SelectElement("attributes") != nil {
		t.Fatalf("unchanged measure should not repeat attributes")
	}
}

func TestMovementNotes(t *testing.T) {
	doc := compileMovement(t, testScore())
	p1 := doc.Measures("P1")
	if got := p1[0].FindElement("./direction/direction-type/metronome/per-minute"); got == nil || got.Text() != "96" {
		t.Fatalf("missing tempo mark")
	}
	if got := p1[0].FindElement("./harmony/root/root-step"); got == nil || got.Text() != "E" {
		t.Fatalf("missing harmony root")
	}
	if got := p1[1].FindElement("./direction/direction-type/rehearsal"); got == nil || got.Text() != "A" {
		t.Fatalf("missing rehearsal mark")
	}
	notes := p1[1].SelectElements("note")
	if notes[0].FindElement("./tie[@type='start']") == nil || notes[0].FindElement("./notations/tied[@type='start']") == nil {
		t.Fatalf("tie start not written")
	}
	if notes[0].FindElement("./notations/slur[@type='start']") == nil {
		t.Fatalf("slur start not written")
	}
	if got := notes[0].FindElement("./lyric/syllabic"); got == nil || got.Text() != "begin" {
		t.Fatalf("lyric syllabic not begin")
	}
	if got := notes[1].FindElement("./lyric/syllabic"); got == nil || got.Text() != "end" {
		t.Fatalf("lyric syllabic not end")
	}
	triplets := p1[2].FindElements("./note/time-modification")
	if len(triplets) != 6 {
		t.Fatalf("got %d time modifications, expected 6", len(triplets))
	}
	if chords := p1[2].FindElements("./note/chord"); len(chords) != 3 {
		t.Fatalf("got %d chord notes, expected 3", len(chords))
	}
	p2 := doc.Measures("P2")
	backup := p2[1].FindElement("./backup/duration")
	if backup == nil || backup.Text() != "144" {
		t.Fatalf("voices of the second piano measure should be separated by a backup of 144")
	}
	if got := p2[1].FindElement("./direction[@placement='below']/direction-type/dynamics/mp"); got == nil {
		t.Fatalf("missing dynamic")
	}
	rest := p2[2].FindElement("./note/rest[@measure='yes']")
	if rest == nil {
		t.Fatalf("empty measure should become a measure rest")
	}
	if got := p2[2].FindElement("./note/duration").Text(); got != "144" {
		t.Fatalf("measure rest duration %v, expected 144", got)
	}
}

func TestMovementMarcato(t *testing.T) {
	score := testScore()
	score.Movements[0].Parts[0].Measures[0].Voices[0].Events[1].Articulation = "marcato"
	doc := compileMovement(t, score)
	if doc.Measures("P1")[0].FindElement("./note/notations/articulations/strong-accent") == nil {
		t.Fatalf("marcato should be written as strong-accent")
	}
}

func TestMovementNoChord(t *testing.T) {
	score := testScore()
	events := &score.Movements[0].Parts[0].Measures[2].Voices[0].Events
	*events = append([]prisms.Event{{Harmony: "N.C."}}, *events...)
	doc := compileMovement(t, score)
	h := doc.Measures("P1")[2].SelectElement("harmony")
	if h == nil {
		t.Fatalf("no chord symbol not written")
	}
	if got := h.FindElement("./kind"); got == nil || got.Text() != "none" || got.SelectAttrValue("text", "") != "N.C." {
		t.Fatalf("no chord kind not written as none with text N.C.")
	}
	step := h.FindElement("./root/root-step")
	if step == nil || step.SelectAttr("text") == nil || step.SelectAttrValue("text", "x") != "" {
		t.Fatalf("no chord root step should carry an empty text attribute")
	}
}

func TestMovementRejectsInvalidScore(t *testing.T) {
	score := testScore()
	score.Movements[0].Parts[1].Measures = score.Movements[0].Parts[1].Measures[:2]
	com, err := compiler.New()
	if err != nil {
		t.Fatalf("compiler.New failed: %v", err)
	}
	if _, err := com.Movement(score, 0); err == nil {
		t.Fatalf("Movement should fail on mismatched measure counts")
	}
	if _, err := com.Movement(testScore(), 1); err == nil {
		t.Fatalf("Movement should fail on an out of range index")
	}
}

func TestScoreSuffixes(t *testing.T) {
	score := testScore()
	com, err := compiler.New()
	if err != nil {
		t.Fatalf("compiler.New failed: %v", err)
	}
	single, err := com.Score(score)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if _, ok := single[".musicxml"]; !ok || len(single) != 1 {
		t.Fatalf("single movement keys %v", keys(single))
	}
	second := score.Movements[0].Copy()
	second.Title = "second light"
	score.Movements = append(score.Movements, second)
	multi, err := com.Score(score)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	for _, k := range []string{"-1.musicxml", "-2.musicxml"} {
		if _, ok := multi[k]; !ok {
			t.Fatalf("missing %v in %v", k, keys(multi))
		}
	}
	if !strings.Contains(multi["-2.musicxml"], "<movement-number>2</movement-number>") {
		t.Fatalf("second movement not numbered 2")
	}
}

func TestLayoutDefaults(t *testing.T) {
	score := testScore()
	score.Layout = &prisms.Layout{Millimeters: 7, Tenths: 40, PageHeight: 1697, PageWidth: 1200, Margins: prisms.Margins{Left: 80, Right: 80, Top: 80, Bottom: 80}}
	doc := compileMovement(t, score)
	if got := text(t, doc, "./defaults/scaling/millimeters"); got != "7" {
		t.Fatalf("millimeters %q", got)
	}
	if got := text(t, doc, "./defaults/page-layout/page-width"); got != "1200" {
		t.Fatalf("page width %q", got)
	}
}

func TestNewFromTemplates(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "other.tmpl"), []byte(`{{define "x"}}{{end}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := compiler.NewFromTemplates(dir); err == nil {
		t.Fatalf("NewFromTemplates should fail without %v", "score.musicxml")
	}
	if err := os.WriteFile(filepath.Join(dir, "score.musicxml"), []byte(`<score-partwise version="4.0"><work><work-title>{{xml .Score.Title}}</work-title></work></score-partwise>`), 0644); err != nil {
		t.Fatal(err)
	}
	com, err := compiler.NewFromTemplates(dir)
	if err != nil {
		t.Fatalf("NewFromTemplates failed: %v", err)
	}
	out, err := com.Movement(testScore(), 0)
	if err != nil {
		t.Fatalf("Movement failed: %v", err)
	}
	if !strings.Contains(out, "the master&#39;s palette") {
		t.Fatalf("custom template output %q", out)
	}
}

func keys(m map[string]string) []string {
	var ret []string
	for k := range m {
		ret = append(ret, k)
	}
	return ret
}
