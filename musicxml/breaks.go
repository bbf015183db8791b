package musicxml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// BreakKind is the kind of layout break printed before a measure.
type BreakKind int

const (
	BreakNone BreakKind = iota
	BreakSystem
	BreakPage
)

// ParseBreakKind parses "none" (or ""), "system" and "page".
func ParseBreakKind(s string) (BreakKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return BreakNone, nil
	case "system":
		return BreakSystem, nil
	case "page":
		return BreakPage, nil
	}
	return BreakNone, fmt.Errorf("unknown break kind %q (expected none, system or page)", s)
}

func (k BreakKind) String() string {
	switch k {
	case BreakSystem:
		return "system"
	case BreakPage:
		return "page"
	}
	return "none"
}

func (k BreakKind) attr() string {
	switch k {
	case BreakSystem:
		return "new-system"
	case BreakPage:
		return "new-page"
	}
	return ""
}

// ensurePrint returns the print element of the measure, creating it as the
// first child if there is none.
func ensurePrint(measure *etree.Element) *etree.Element {
	if p := measure.SelectElement("print"); p != nil {
		return p
	}
	p := etree.NewElement("print")
	measure.InsertChildAt(0, p)
	return p
}

func setBreak(measure *etree.Element, kind BreakKind) {
	if kind == BreakNone {
		return
	}
	ensurePrint(measure).CreateAttr(kind.attr(), "yes")
}

// InsertBreak puts a break before the measure with the given number in every
// part. It returns an error if no part has such a measure.
func InsertBreak(d *Document, number string, kind BreakKind) error {
	found := false
	for _, p := range d.Parts() {
		for _, m := range p.SelectElements("measure") {
			if m.SelectAttrValue("number", "") == number {
				setBreak(m, kind)
				found = true
				break
			}
		}
	}
	if !found {
		return fmt.Errorf("no measure number %q", number)
	}
	return nil
}

// MeasuresPerSystem puts a system break before every n-th measure of every
// part, counting from the first full measure. Measures that already start a
// page are left alone.
func MeasuresPerSystem(d *Document, n int) error {
	if n <= 0 {
		return fmt.Errorf("invalid measures per system %d", n)
	}
	for _, p := range d.Parts() {
		count := 0
		for i, m := range p.SelectElements("measure") {
			if i == 0 && m.SelectAttrValue("implicit", "") == "yes" {
				continue
			}
			if count > 0 && count%n == 0 {
				if pr := m.SelectElement("print"); pr == nil || pr.SelectAttrValue("new-page", "") != "yes" {
					setBreak(m, BreakSystem)
				}
			}
			count++
		}
	}
	return nil
}

// ClearBreaks removes every page and system break of the document, and the
// print elements left empty by that.
func ClearBreaks(d *Document) {
	for _, pr := range d.Root().FindElements("./part/measure/print") {
		pr.RemoveAttr("new-page")
		pr.RemoveAttr("new-system")
		if len(pr.Attr) == 0 && len(pr.ChildElements()) == 0 {
			pr.Parent().RemoveChild(pr)
		}
	}
}

// measureNumber returns the integer number of a measure, or false if the
// number attribute is missing or not an integer.
func measureNumber(m *etree.Element) (int, bool) {
	n, err := strconv.Atoi(m.SelectAttrValue("number", ""))
	return n, err == nil
}
