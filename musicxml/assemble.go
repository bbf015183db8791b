package musicxml

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrNoDocuments  = errors.New("no documents to assemble")
	ErrPartMismatch = errors.New("parts do not match")
)

// AssembleOptions control how movements are concatenated.
type AssembleOptions struct {
	// MatchByIndex pairs parts by position instead of by id.
	MatchByIndex bool
	// Break is inserted at the first measure of every movement after the
	// first one.
	Break BreakKind
	// MovementHeaders adds the movement title as bold words above the first
	// measure of every movement.
	MovementHeaders bool
	// TitleCase title-cases the movement headers.
	TitleCase bool
	// Renumber renumbers all measures from RenumberFrom after concatenating.
	Renumber     bool
	RenumberFrom int
	// Title, Subtitle and Composer replace the corresponding metadata and
	// credits when not empty.
	Title    string
	Subtitle string
	Composer string
}

// Concatenate appends the measures of every document to a copy of the first
// one, part by part. The inputs are not modified. The divisions of all
// documents are normalized to their least common multiple first.
func Concatenate(docs []*Document, opts AssembleOptions) (*Document, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	target := 1
	copies := make([]*Document, len(docs))
	for i, d := range docs {
		copies[i] = d.Copy()
		for _, v := range d.Divisions() {
			target = lcm(target, v)
		}
	}
	for i, d := range copies {
		if err := NormalizeDivisions(d, target); err != nil {
			return nil, fmt.Errorf("document %d: %w", i+1, err)
		}
	}
	base := copies[0]
	ids := base.PartIDs()
	expected := base.Stats()
	headers := make([]string, len(copies))
	for i, d := range copies {
		headers[i] = d.MovementTitle()
		if opts.TitleCase {
			headers[i] = cases.Title(language.English, cases.NoLower).String(headers[i])
		}
	}
	if opts.MovementHeaders && len(copies) > 1 {
		if ms := firstMeasures(base.Parts()); len(ms) > 0 {
			insertHeader(ms[0], headers[0])
		}
	}
	for i, d := range copies[1:] {
		parts, err := matchParts(base, d, opts.MatchByIndex)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i+2, err)
		}
		for pi, src := range parts {
			dst := base.Part(ids[pi])
			measures := src.SelectElements("measure")
			for mi, m := range measures {
				c := m.Copy()
				if mi == 0 {
					if opts.Break != BreakNone {
						setBreak(c, opts.Break)
					}
					if opts.MovementHeaders && pi == 0 {
						insertHeader(c, headers[i+1])
					}
				}
				dst.AddChild(c)
			}
			expected.Measures[ids[pi]] += len(measures)
		}
		log.Debug().Int("document", i+2).Str("movement", headers[i+1]).Msg("appended movement")
	}
	if len(copies) > 1 {
		for _, tag := range []string{"movement-number", "movement-title"} {
			if e := base.Root().SelectElement(tag); e != nil {
				base.Root().RemoveChild(e)
			}
		}
	}
	if opts.Title != "" {
		base.SetTitle(opts.Title)
		base.SetCredit("title", opts.Title)
	}
	if opts.Subtitle != "" {
		base.SetCredit("subtitle", opts.Subtitle)
	}
	if opts.Composer != "" {
		base.SetCreator("composer", opts.Composer)
		base.SetCredit("composer", opts.Composer)
	}
	if err := Verify(expected, base.Stats()); err != nil {
		return nil, fmt.Errorf("concatenate: %w", err)
	}
	if opts.Renumber {
		if err := Renumber(base, opts.RenumberFrom); err != nil {
			return nil, err
		}
	}
	return base, nil
}

func matchParts(base, other *Document, byIndex bool) ([]*etree.Element, error) {
	ids := base.PartIDs()
	otherParts := other.Parts()
	if len(otherParts) != len(ids) {
		return nil, fmt.Errorf("%w: %d parts, expected %d", ErrPartMismatch, len(otherParts), len(ids))
	}
	if byIndex {
		return otherParts, nil
	}
	ret := make([]*etree.Element, len(ids))
	for i, id := range ids {
		p := other.Part(id)
		if p == nil {
			return nil, fmt.Errorf("%w: no part %q", ErrPartMismatch, id)
		}
		ret[i] = p
	}
	return ret, nil
}

func firstMeasures(parts []*etree.Element) []*etree.Element {
	var ret []*etree.Element
	for _, p := range parts {
		if m := p.SelectElement("measure"); m != nil {
			ret = append(ret, m)
		}
	}
	return ret
}

// insertHeader puts a bold words direction after the leading print,
// attributes and barline elements of the measure.
func insertHeader(measure *etree.Element, text string) {
	if text == "" {
		return
	}
	dir := etree.NewElement("direction")
	dir.CreateAttr("placement", "above")
	words := dir.CreateElement("direction-type").CreateElement("words")
	words.CreateAttr("font-weight", "bold")
	words.CreateAttr("font-size", "14")
	words.SetText(text)
	for _, c := range measure.ChildElements() {
		switch c.Tag {
		case "print", "attributes", "barline":
			continue
		}
		measure.InsertChildAt(c.Index(), dir)
		return
	}
	measure.AddChild(dir)
}
