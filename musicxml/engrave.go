package musicxml

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/rs/zerolog/log"
)

type (
	// Engraving collects the cosmetic adjustments applied by Engrave. Zero
	// values leave the document untouched.
	Engraving struct {
		ClearBreaks       bool
		PageBreaks        []string // measure numbers
		SystemBreaks      []string // measure numbers
		MeasuresPerSystem int

		Page              *PageLayout
		Scaling           *Scaling
		SystemDistance    float64
		TopSystemDistance float64
		StaffDistance     float64

		Fonts Fonts
		Slurs []SlurHint
	}

	PageLayout struct {
		Height  float64
		Width   float64
		Margins Margins
	}

	Margins struct {
		Left, Right, Top, Bottom float64
	}

	Scaling struct {
		Millimeters float64
		Tenths      float64
	}

	Font struct {
		Family string
		Size   float64
	}

	// Fonts sets the default fonts and the sizes of the title, subtitle and
	// composer credits.
	Fonts struct {
		Music        Font
		Word         Font
		Lyric        Font
		TitleSize    float64
		SubtitleSize float64
		ComposerSize float64
	}

	// SlurHint overrides the curvature of the slurs starting in measures From
	// to To (inclusive, 0 means unbounded).
	SlurHint struct {
		Placement   string // above, below
		Orientation string // over, under
		BezierY     float64
		DefaultY    float64
		From, To    int
	}
)

var (
	defaultsOrder     = []string{"scaling", "concert-score", "page-layout", "system-layout", "staff-layout", "measure-layout", "appearance", "music-font", "word-font", "lyric-font", "lyric-language"}
	pageLayoutOrder   = []string{"page-height", "page-width", "page-margins"}
	marginsOrder      = []string{"left-margin", "right-margin", "top-margin", "bottom-margin"}
	systemLayoutOrder = []string{"system-margins", "system-distance", "top-system-distance", "system-dividers"}
)

// Engrave applies the engraving to the document in place. The measure count
// of every part is checked afterwards.
func Engrave(d *Document, e Engraving) error {
	before := d.Stats()
	if e.ClearBreaks {
		ClearBreaks(d)
	}
	for _, n := range e.PageBreaks {
		if err := InsertBreak(d, n, BreakPage); err != nil {
			return fmt.Errorf("page break: %w", err)
		}
	}
	if e.MeasuresPerSystem > 0 {
		if err := MeasuresPerSystem(d, e.MeasuresPerSystem); err != nil {
			return err
		}
	}
	for _, n := range e.SystemBreaks {
		if err := InsertBreak(d, n, BreakSystem); err != nil {
			return fmt.Errorf("system break: %w", err)
		}
	}
	if e.Scaling != nil {
		SetScaling(d, *e.Scaling)
	}
	if e.Page != nil {
		SetPageLayout(d, *e.Page)
	}
	if e.SystemDistance > 0 || e.TopSystemDistance > 0 {
		sl := ensureChild(defaults(d), "system-layout", defaultsOrder)
		if e.SystemDistance > 0 {
			ensureChild(sl, "system-distance", systemLayoutOrder).SetText(formatNumber(e.SystemDistance))
		}
		if e.TopSystemDistance > 0 {
			ensureChild(sl, "top-system-distance", systemLayoutOrder).SetText(formatNumber(e.TopSystemDistance))
		}
	}
	if e.StaffDistance > 0 {
		sl := ensureChild(defaults(d), "staff-layout", defaultsOrder)
		ensureChild(sl, "staff-distance", nil).SetText(formatNumber(e.StaffDistance))
	}
	SetFonts(d, e.Fonts)
	for _, h := range e.Slurs {
		n := ApplySlurHint(d, h)
		log.Debug().Int("slurs", n).Int("from", h.From).Int("to", h.To).Msg("applied slur hint")
	}
	if err := Verify(before, d.Stats()); err != nil {
		return fmt.Errorf("engrave: %w", err)
	}
	return nil
}

func defaults(d *Document) *etree.Element {
	return ensureChild(d.Root(), "defaults", headerOrder)
}

// SetScaling sets the millimeters per tenths scaling.
func SetScaling(d *Document, s Scaling) {
	sc := ensureChild(defaults(d), "scaling", defaultsOrder)
	ensureChild(sc, "millimeters", []string{"millimeters", "tenths"}).SetText(formatNumber(s.Millimeters))
	ensureChild(sc, "tenths", []string{"millimeters", "tenths"}).SetText(formatNumber(s.Tenths))
}

// SetPageLayout sets the page size (if given) and replaces all page margins
// with a single set used for both odd and even pages.
func SetPageLayout(d *Document, p PageLayout) {
	pl := ensureChild(defaults(d), "page-layout", defaultsOrder)
	if p.Height > 0 && p.Width > 0 {
		ensureChild(pl, "page-height", pageLayoutOrder).SetText(formatNumber(p.Height))
		ensureChild(pl, "page-width", pageLayoutOrder).SetText(formatNumber(p.Width))
	}
	for _, m := range pl.SelectElements("page-margins") {
		pl.RemoveChild(m)
	}
	pm := ensureChild(pl, "page-margins", pageLayoutOrder)
	pm.CreateAttr("type", "both")
	ensureChild(pm, "left-margin", marginsOrder).SetText(formatNumber(p.Margins.Left))
	ensureChild(pm, "right-margin", marginsOrder).SetText(formatNumber(p.Margins.Right))
	ensureChild(pm, "top-margin", marginsOrder).SetText(formatNumber(p.Margins.Top))
	ensureChild(pm, "bottom-margin", marginsOrder).SetText(formatNumber(p.Margins.Bottom))
}

// SetFonts applies the default fonts and credit sizes that are set.
func SetFonts(d *Document, f Fonts) {
	for _, x := range []struct {
		tag  string
		font Font
	}{{"music-font", f.Music}, {"word-font", f.Word}, {"lyric-font", f.Lyric}} {
		if x.font == (Font{}) {
			continue
		}
		e := ensureChild(defaults(d), x.tag, defaultsOrder)
		if x.font.Family != "" {
			e.CreateAttr("font-family", x.font.Family)
		}
		if x.font.Size > 0 {
			e.CreateAttr("font-size", formatNumber(x.font.Size))
		}
	}
	sizes := map[string]float64{"title": f.TitleSize, "subtitle": f.SubtitleSize, "composer": f.ComposerSize}
	for _, c := range d.Root().SelectElements("credit") {
		size := 0.0
		for _, t := range c.SelectElements("credit-type") {
			size = max(size, sizes[t.Text()])
		}
		if size <= 0 {
			continue
		}
		for _, w := range c.SelectElements("credit-words") {
			w.CreateAttr("font-size", formatNumber(size))
		}
	}
}

// ApplySlurHint sets the placement, orientation and positions of every slur
// start in the hint's measure range and returns how many were changed.
func ApplySlurHint(d *Document, h SlurHint) int {
	count := 0
	for _, p := range d.Parts() {
		for _, m := range p.SelectElements("measure") {
			n, ok := measureNumber(m)
			if !ok || (h.From > 0 && n < h.From) || (h.To > 0 && n > h.To) {
				continue
			}
			for _, s := range m.FindElements("./note/notations/slur[@type='start']") {
				if h.Placement != "" {
					s.CreateAttr("placement", h.Placement)
				}
				if h.Orientation != "" {
					s.CreateAttr("orientation", h.Orientation)
				}
				if h.BezierY != 0 {
					s.CreateAttr("bezier-y", formatNumber(h.BezierY))
				}
				if h.DefaultY != 0 {
					s.CreateAttr("default-y", formatNumber(h.DefaultY))
				}
				count++
			}
		}
	}
	return count
}
