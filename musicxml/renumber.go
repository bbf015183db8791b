package musicxml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/rs/zerolog/log"
)

// Renumber rewrites the number attribute of every measure so that each part
// counts up from start. A leading pickup measure (implicit="yes") is numbered
// start-1 and does not advance the count; later implicit measures are
// numbered like any other measure.
func Renumber(d *Document, start int) error {
	before := d.Stats()
	for _, p := range d.Parts() {
		n := start
		for i, m := range p.SelectElements("measure") {
			if i == 0 && m.SelectAttrValue("implicit", "") == "yes" {
				m.CreateAttr("number", strconv.Itoa(start-1))
				continue
			}
			m.CreateAttr("number", strconv.Itoa(n))
			n++
		}
	}
	if err := Verify(before, d.Stats()); err != nil {
		return fmt.Errorf("renumber: %w", err)
	}
	log.Debug().Int("start", start).Int("measures", before.Total()).Msg("renumbered measures")
	return nil
}

// ErrDivisions is returned when durations cannot be expressed exactly in the
// requested divisions.
var ErrDivisions = errors.New("divisions cannot be normalized")

// NormalizeDivisions rewrites the document so that every divisions element
// equals target, scaling every duration and offset by the divisions in
// effect at that point of its part. target must be a multiple of every
// divisions value in effect.
func NormalizeDivisions(d *Document, target int) error {
	if target <= 0 {
		return fmt.Errorf("%w: invalid target %d", ErrDivisions, target)
	}
	for _, p := range d.Parts() {
		id := p.SelectAttrValue("id", "")
		current := 0
		for _, m := range p.SelectElements("measure") {
			for _, attr := range m.SelectElements("attributes") {
				if div := attr.SelectElement("divisions"); div != nil {
					v, err := strconv.Atoi(strings.TrimSpace(div.Text()))
					if err != nil || v <= 0 {
						return fmt.Errorf("part %q: invalid divisions %q", id, div.Text())
					}
					if target%v != 0 {
						return fmt.Errorf("%w: part %q has divisions %d, not a divisor of %d", ErrDivisions, id, v, target)
					}
					current = v
					div.SetText(strconv.Itoa(target))
				}
			}
			if current == 0 || current == target {
				continue
			}
			if err := scaleMeasure(m, target/current); err != nil {
				return fmt.Errorf("part %q: %w", id, err)
			}
		}
	}
	return nil
}

func scaleMeasure(m *etree.Element, factor int) error {
	for _, path := range []string{".//duration", ".//offset"} {
		for _, e := range m.FindElements(path) {
			v, err := strconv.Atoi(strings.TrimSpace(e.Text()))
			if err != nil {
				return fmt.Errorf("measure %v: invalid %v %q", m.SelectAttrValue("number", "?"), e.Tag, e.Text())
			}
			e.SetText(strconv.Itoa(v * factor))
		}
	}
	return nil
}

// ScaleDivisions multiplies every divisions, duration and offset value of the
// document by factor.
func ScaleDivisions(d *Document, factor int) error {
	if factor <= 0 {
		return fmt.Errorf("invalid scale factor %d", factor)
	}
	for _, path := range []string{"./part/measure/attributes/divisions", "./part/measure//duration", "./part/measure//offset"} {
		for _, e := range d.Root().FindElements(path) {
			v, err := strconv.Atoi(strings.TrimSpace(e.Text()))
			if err != nil {
				return fmt.Errorf("invalid %v %q", e.Tag, e.Text())
			}
			e.SetText(strconv.Itoa(v * factor))
		}
	}
	return nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}
