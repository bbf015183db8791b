package musicxml_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisms-score/prisms/musicxml"
)

// movement builds a two part document: P1 plays one slurred whole note per
// measure, P2 rests. With pickup, the first measure is implicit and numbered 0.
func movement(title string, divisions, measures int, pickup bool) string {
	var p1, p2 strings.Builder
	for i := 0; i < measures; i++ {
		number, implicit := i+1, ""
		if pickup {
			number = i
			if i == 0 {
				implicit = ` implicit="yes"`
			}
		}
		attr := ""
		if i == 0 {
			attr = fmt.Sprintf("<attributes><divisions>%d</divisions></attributes>", divisions)
		}
		fmt.Fprintf(&p1, `<measure number="%d"%s>%s<note><pitch><step>C</step><octave>4</octave></pitch><duration>%d</duration><voice>1</voice><type>whole</type><notations><slur type="start" number="1"/></notations></note></measure>`, number, implicit, attr, 4*divisions)
		fmt.Fprintf(&p2, `<measure number="%d"%s>%s<note><rest measure="yes"/><duration>%d</duration><voice>1</voice></note></measure>`, number, implicit, attr, 4*divisions)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<score-partwise version="4.0">
<work><work-title>Prisms</work-title></work>
<movement-number>1</movement-number>
<movement-title>%s</movement-title>
<credit page="1"><credit-type>title</credit-type><credit-words font-size="24">Prisms</credit-words></credit>
<credit page="1"><credit-type>composer</credit-type><credit-words font-size="12">Someone</credit-words></credit>
<part-list>
<score-part id="P1"><part-name>Lead</part-name></score-part>
<score-part id="P2"><part-name>Piano</part-name></score-part>
</part-list>
<part id="P1">%s</part>
<part id="P2">%s</part>
</score-partwise>`, title, p1.String(), p2.String())
}

func parse(t *testing.T, s string) *musicxml.Document {
	t.Helper()
	d, err := musicxml.Parse([]byte(s))
	require.NoError(t, err)
	return d
}

func numbers(d *musicxml.Document, part string) []string {
	var ret []string
	for _, m := range d.Measures(part) {
		ret = append(ret, m.SelectAttrValue("number", ""))
	}
	return ret
}

func TestParseRejectsTimewise(t *testing.T) {
	_, err := musicxml.Parse([]byte(`<score-timewise version="4.0"></score-timewise>`))
	require.Error(t, err)
	_, err = musicxml.Parse([]byte(`not xml <`))
	require.Error(t, err)
}

func TestDocumentAccessors(t *testing.T) {
	d := parse(t, movement("first light", 2, 3, false))
	assert.Equal(t, []string{"P1", "P2"}, d.PartIDs())
	assert.Equal(t, "Prisms", d.Title())
	assert.Equal(t, "first light", d.MovementTitle())
	assert.Equal(t, []int{2}, d.Divisions())
	assert.Len(t, d.Measures("P2"), 3)
	assert.Nil(t, d.Measures("P9"))
	d.SetTitle("Palette")
	assert.Equal(t, "Palette", d.Title())
}

func TestCreditsAndCreators(t *testing.T) {
	d := parse(t, movement("one", 1, 1, false))
	d.SetCredit("composer", "Somebody Else")
	d.SetCredit("subtitle", "The Master's Palette")
	d.SetCreator("composer", "Somebody Else")
	d.SetCreator("lyricist", "Nobody")
	d.SetCreator("composer", "Third")

	credits := d.Root().SelectElements("credit")
	require.Len(t, credits, 3)
	assert.Equal(t, "Somebody Else", credits[1].SelectElement("credit-words").Text())
	assert.Equal(t, "subtitle", credits[2].SelectElement("credit-type").Text())
	assert.Equal(t, "1", credits[2].SelectAttrValue("page", ""))

	var tags []string
	for _, c := range d.Root().ChildElements() {
		tags = append(tags, c.Tag)
	}
	assert.Equal(t, []string{"work", "movement-number", "movement-title", "identification", "credit", "credit", "credit", "part-list", "part", "part"}, tags)

	creators := d.Root().FindElements("./identification/creator")
	require.Len(t, creators, 2)
	assert.Equal(t, "Third", creators[0].Text())
	assert.Equal(t, "lyricist", creators[1].SelectAttrValue("type", ""))
}

func TestStats(t *testing.T) {
	d := parse(t, movement("one", 1, 4, false))
	s := d.Stats()
	assert.Equal(t, map[string]int{"P1": 4, "P2": 4}, s.Measures)
	assert.Equal(t, 8, s.Total())
	assert.Equal(t, 4, s.Notes)
	assert.Equal(t, 4, s.Rests)
	assert.Equal(t, 0, s.Harmonies)
	assert.Contains(t, s.String(), "P1:4 P2:4")
}

func TestVerify(t *testing.T) {
	a := musicxml.Stats{Measures: map[string]int{"P1": 2, "P2": 2}}
	require.NoError(t, musicxml.Verify(a, musicxml.Stats{Measures: map[string]int{"P1": 2, "P2": 2}}))
	err := musicxml.Verify(a, musicxml.Stats{Measures: map[string]int{"P1": 2, "P2": 3}})
	require.ErrorIs(t, err, musicxml.ErrMeasureCountChanged)
	err = musicxml.Verify(a, musicxml.Stats{Measures: map[string]int{"P1": 2, "P2": 2, "P3": 1}})
	require.ErrorIs(t, err, musicxml.ErrMeasureCountChanged)
}

func TestRenumber(t *testing.T) {
	d := parse(t, movement("one", 1, 3, true))
	require.NoError(t, musicxml.Renumber(d, 10))
	assert.Equal(t, []string{"9", "10", "11"}, numbers(d, "P1"))
	assert.Equal(t, []string{"9", "10", "11"}, numbers(d, "P2"))

	d = parse(t, movement("one", 1, 3, false))
	require.NoError(t, musicxml.Renumber(d, 1))
	assert.Equal(t, []string{"1", "2", "3"}, numbers(d, "P1"))
}

func TestNormalizeDivisions(t *testing.T) {
	d := parse(t, movement("one", 2, 2, false))
	require.NoError(t, musicxml.NormalizeDivisions(d, 6))
	assert.Equal(t, []int{6}, d.Divisions())
	for _, e := range d.Root().FindElements("./part/measure/note/duration") {
		assert.Equal(t, "24", e.Text())
	}
	require.Error(t, musicxml.NormalizeDivisions(d, 0))
}

func TestNormalizeDivisionsChangeInPart(t *testing.T) {
	d := parse(t, movement("one", 2, 2, false))
	second := d.Measures("P1")[1]
	second.InsertChildAt(0, etree.NewElement("attributes"))
	second.SelectElement("attributes").CreateElement("divisions").SetText("4")
	second.FindElement("./note/duration").SetText("16")

	require.NoError(t, musicxml.NormalizeDivisions(d, 4))
	assert.Equal(t, []int{4}, d.Divisions())
	for _, e := range d.Root().FindElements("./part/measure/note/duration") {
		assert.Equal(t, "16", e.Text())
	}
}

func TestNormalizeDivisionsNotAMultiple(t *testing.T) {
	d := parse(t, movement("one", 4, 1, false))
	d.Root().FindElement("./part/measure/note/duration").SetText("1")
	err := musicxml.NormalizeDivisions(d, 6)
	require.ErrorIs(t, err, musicxml.ErrDivisions)
	for _, e := range d.Root().FindElements("./part/measure/note/duration") {
		assert.NotContains(t, e.Text(), ".")
	}
}

func TestScaleDivisions(t *testing.T) {
	d := parse(t, movement("one", 2, 2, false))
	require.NoError(t, musicxml.ScaleDivisions(d, 3))
	assert.Equal(t, []int{6}, d.Divisions())
	for _, e := range d.Root().FindElements("./part/measure/note/duration") {
		assert.Equal(t, "24", e.Text())
	}
}

func TestConcatenate(t *testing.T) {
	a := parse(t, movement("first light", 2, 2, true))
	b := parse(t, movement("second light", 3, 3, false))
	out, err := musicxml.Concatenate([]*musicxml.Document{a, b}, musicxml.AssembleOptions{
		Break:           musicxml.BreakPage,
		MovementHeaders: true,
		TitleCase:       true,
		Renumber:        true,
		RenumberFrom:    1,
		Title:           "The Master's Palette",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"P1": 5, "P2": 5}, out.Stats().Measures)
	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, numbers(out, "P1"))
	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, numbers(out, "P2"))
	assert.Equal(t, "The Master's Palette", out.Title())
	assert.Nil(t, out.Root().SelectElement("movement-title"))
	assert.Nil(t, out.Root().SelectElement("movement-number"))
	assert.Equal(t, []int{6}, out.Divisions())
	for _, e := range out.Root().FindElements("./part/measure/note/duration") {
		assert.Equal(t, "24", e.Text())
	}
	for _, part := range []string{"P1", "P2"} {
		m := out.Measures(part)[2]
		require.Equal(t, "print", m.ChildElements()[0].Tag)
		assert.Equal(t, "yes", m.ChildElements()[0].SelectAttrValue("new-page", ""))
	}
	headers := out.Root().FindElements("./part/measure/direction/direction-type/words")
	require.Len(t, headers, 2)
	assert.Equal(t, "First Light", headers[0].Text())
	assert.Equal(t, "Second Light", headers[1].Text())
	assert.Empty(t, out.Measures("P2")[2].SelectElements("direction"))

	// inputs are untouched
	assert.Equal(t, map[string]int{"P1": 2, "P2": 2}, a.Stats().Measures)
	assert.Equal(t, "first light", a.MovementTitle())
}

func TestConcatenateTitleCaseKeepsCapitals(t *testing.T) {
	a := parse(t, movement("I. WHITE LIGHT", 1, 1, false))
	b := parse(t, movement("II. violet", 1, 1, false))
	out, err := musicxml.Concatenate([]*musicxml.Document{a, b}, musicxml.AssembleOptions{MovementHeaders: true, TitleCase: true})
	require.NoError(t, err)
	headers := out.Root().FindElements("./part/measure/direction/direction-type/words")
	require.Len(t, headers, 2)
	assert.Equal(t, "I. WHITE LIGHT", headers[0].Text())
	assert.Equal(t, "II. Violet", headers[1].Text())
}

func TestConcatenateSingleKeepsMovementTitle(t *testing.T) {
	a := parse(t, movement("only", 1, 2, false))
	out, err := musicxml.Concatenate([]*musicxml.Document{a}, musicxml.AssembleOptions{})
	require.NoError(t, err)
	assert.Equal(t, "only", out.MovementTitle())
	assert.Equal(t, 4, out.Stats().Total())
}

func TestConcatenateErrors(t *testing.T) {
	_, err := musicxml.Concatenate(nil, musicxml.AssembleOptions{})
	require.ErrorIs(t, err, musicxml.ErrNoDocuments)

	a := parse(t, movement("one", 1, 2, false))
	b := parse(t, strings.ReplaceAll(movement("two", 1, 2, false), `"P2"`, `"P3"`))
	_, err = musicxml.Concatenate([]*musicxml.Document{a, b}, musicxml.AssembleOptions{})
	require.ErrorIs(t, err, musicxml.ErrPartMismatch)

	out, err := musicxml.Concatenate([]*musicxml.Document{a, b}, musicxml.AssembleOptions{MatchByIndex: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"P1": 4, "P2": 4}, out.Stats().Measures)
}

func TestParseBreakKind(t *testing.T) {
	for s, want := range map[string]musicxml.BreakKind{"": musicxml.BreakNone, "none": musicxml.BreakNone, "Page": musicxml.BreakPage, "system": musicxml.BreakSystem} {
		got, err := musicxml.ParseBreakKind(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
		if s != "" && s != "Page" {
			assert.Equal(t, s, got.String())
		}
	}
	_, err := musicxml.ParseBreakKind("line")
	require.Error(t, err)
}

func TestEngraveBreaks(t *testing.T) {
	d := parse(t, movement("one", 1, 6, false))
	require.NoError(t, musicxml.Engrave(d, musicxml.Engraving{PageBreaks: []string{"3"}, MeasuresPerSystem: 2}))
	for _, part := range []string{"P1", "P2"} {
		ms := d.Measures(part)
		assert.Nil(t, ms[0].SelectElement("print"))
		assert.Nil(t, ms[1].SelectElement("print"))
		assert.Equal(t, "yes", ms[2].SelectElement("print").SelectAttrValue("new-page", ""))
		assert.Equal(t, "", ms[2].SelectElement("print").SelectAttrValue("new-system", ""))
		assert.Equal(t, "yes", ms[4].SelectElement("print").SelectAttrValue("new-system", ""))
	}
	require.Error(t, musicxml.Engrave(d, musicxml.Engraving{SystemBreaks: []string{"99"}}))

	require.NoError(t, musicxml.Engrave(d, musicxml.Engraving{ClearBreaks: true}))
	assert.Empty(t, d.Root().FindElements("./part/measure/print"))
	assert.Equal(t, 12, d.Stats().Total())
}

func TestEngraveLayoutAndFonts(t *testing.T) {
	d := parse(t, movement("one", 1, 2, false))
	err := musicxml.Engrave(d, musicxml.Engraving{
		Scaling:        &musicxml.Scaling{Millimeters: 7, Tenths: 40},
		Page:           &musicxml.PageLayout{Height: 1697, Width: 1200, Margins: musicxml.Margins{Left: 80, Right: 80, Top: 100, Bottom: 100}},
		SystemDistance: 120,
		StaffDistance:  90,
		Fonts: musicxml.Fonts{
			Music:     musicxml.Font{Family: "Bravura", Size: 20},
			Word:      musicxml.Font{Family: "Times New Roman"},
			TitleSize: 30,
		},
	})
	require.NoError(t, err)
	root := d.Root()
	var tags []string
	for _, c := range root.ChildElements() {
		tags = append(tags, c.Tag)
	}
	assert.Equal(t, []string{"work", "movement-number", "movement-title", "defaults", "credit", "credit", "part-list", "part", "part"}, tags)

	var defaults []string
	for _, c := range root.SelectElement("defaults").ChildElements() {
		defaults = append(defaults, c.Tag)
	}
	assert.Equal(t, []string{"scaling", "page-layout", "system-layout", "staff-layout", "music-font", "word-font"}, defaults)
	assert.Equal(t, "40", root.FindElement("./defaults/scaling/tenths").Text())
	assert.Equal(t, "1697", root.FindElement("./defaults/page-layout/page-height").Text())
	assert.Equal(t, "both", root.FindElement("./defaults/page-layout/page-margins").SelectAttrValue("type", ""))
	assert.Equal(t, "100", root.FindElement("./defaults/page-layout/page-margins/bottom-margin").Text())
	assert.Equal(t, "120", root.FindElement("./defaults/system-layout/system-distance").Text())
	assert.Equal(t, "90", root.FindElement("./defaults/staff-layout/staff-distance").Text())
	assert.Equal(t, "Bravura", root.FindElement("./defaults/music-font").SelectAttrValue("font-family", ""))
	assert.Equal(t, "20", root.FindElement("./defaults/music-font").SelectAttrValue("font-size", ""))
	assert.Equal(t, "", root.FindElement("./defaults/word-font").SelectAttrValue("font-size", ""))

	credits := root.FindElements("./credit/credit-words")
	require.Len(t, credits, 2)
	assert.Equal(t, "30", credits[0].SelectAttrValue("font-size", ""))
	assert.Equal(t, "12", credits[1].SelectAttrValue("font-size", ""))
}

func TestEngraveKeepsDefaultsOrder(t *testing.T) {
	src := strings.Replace(movement("one", 1, 1, false), "<credit ",
		`<defaults><measure-layout><measure-distance>10</measure-distance></measure-layout><music-font font-family="Maestro"/></defaults><credit `, 1)
	d := parse(t, src)
	require.NoError(t, musicxml.Engrave(d, musicxml.Engraving{SystemDistance: 120, StaffDistance: 90}))
	var defaults []string
	for _, c := range d.Root().SelectElement("defaults").ChildElements() {
		defaults = append(defaults, c.Tag)
	}
	assert.Equal(t, []string{"system-layout", "staff-layout", "measure-layout", "music-font"}, defaults)
}

func TestEngraveSlurHints(t *testing.T) {
	d := parse(t, movement("one", 1, 4, false))
	n := musicxml.ApplySlurHint(d, musicxml.SlurHint{Placement: "above", BezierY: 25, From: 2, To: 3})
	assert.Equal(t, 2, n)
	slurs := d.Root().FindElements("./part/measure/note/notations/slur")
	require.Len(t, slurs, 4)
	assert.Equal(t, "", slurs[0].SelectAttrValue("placement", ""))
	assert.Equal(t, "above", slurs[1].SelectAttrValue("placement", ""))
	assert.Equal(t, "25", slurs[2].SelectAttrValue("bezier-y", ""))
	assert.Equal(t, "", slurs[2].SelectAttrValue("default-y", ""))
	assert.Equal(t, "", slurs[3].SelectAttrValue("bezier-y", ""))
}

func TestRoundTrip(t *testing.T) {
	d := parse(t, movement("one", 1, 2, false))
	b, err := d.Bytes()
	require.NoError(t, err)
	again := parse(t, string(b))
	assert.Equal(t, d.Stats(), again.Stats())
}
