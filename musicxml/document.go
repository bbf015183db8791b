// Package musicxml works on MusicXML documents that already exist: loading
// and saving them, counting their contents, renumbering and concatenating
// measures across movements and applying engraving adjustments. Only
// score-partwise documents are supported.
//
// Every operation that rewrites measures checks that the number of measures of
// every part is the same afterwards as the operation promised; a mismatch is
// reported as ErrMeasureCountChanged.
package musicxml

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/beevik/etree"
)

// Document is a parsed score-partwise document.
type Document struct {
	doc *etree.Document
}

// Parse parses a MusicXML document.
func Parse(data []byte) (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("could not parse MusicXML: %w", err)
	}
	return newDocument(doc)
}

// Load reads and parses the MusicXML file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read file %v: %w", path, err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return d, nil
}

func newDocument(doc *etree.Document) (*Document, error) {
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	if root.Tag != "score-partwise" {
		return nil, fmt.Errorf("unsupported root element <%v>, expected <score-partwise>", root.Tag)
	}
	return &Document{doc: doc}, nil
}

// Root returns the score-partwise element.
func (d *Document) Root() *etree.Element {
	return d.doc.Root()
}

// Copy makes a deep copy of the document.
func (d *Document) Copy() *Document {
	return &Document{doc: d.doc.Copy()}
}

// WriteTo writes the document indented by two spaces.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	d.doc.Indent(2)
	return d.doc.WriteTo(w)
}

// Bytes returns the indented document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the document to path.
func (d *Document) Save(path string) error {
	b, err := d.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %w", path, err)
	}
	return nil
}

// Parts returns the part elements in document order.
func (d *Document) Parts() []*etree.Element {
	return d.Root().SelectElements("part")
}

// PartIDs returns the id attributes of the parts in document order.
func (d *Document) PartIDs() []string {
	var ret []string
	for _, p := range d.Parts() {
		ret = append(ret, p.SelectAttrValue("id", ""))
	}
	return ret
}

// Part returns the part with the given id, or nil.
func (d *Document) Part(id string) *etree.Element {
	for _, p := range d.Parts() {
		if p.SelectAttrValue("id", "") == id {
			return p
		}
	}
	return nil
}

// Measures returns the measures of the part with the given id.
func (d *Document) Measures(partID string) []*etree.Element {
	p := d.Part(partID)
	if p == nil {
		return nil
	}
	return p.SelectElements("measure")
}

// Title returns the work title, or "" if there is none.
func (d *Document) Title() string {
	if e := d.Root().FindElement("./work/work-title"); e != nil {
		return e.Text()
	}
	return ""
}

// SetTitle sets the work title, creating the work element if necessary.
func (d *Document) SetTitle(title string) {
	work := ensureChild(d.Root(), "work", headerOrder)
	ensureChild(work, "work-title", []string{"work-number", "work-title", "opus"}).SetText(title)
}

// SetCredit sets the words of the first credit of the given type (title,
// subtitle, composer, ...), adding a first page credit if there is none.
func (d *Document) SetCredit(kind, text string) {
	for _, c := range d.Root().SelectElements("credit") {
		for _, t := range c.SelectElements("credit-type") {
			if t.Text() != kind {
				continue
			}
			if w := c.SelectElement("credit-words"); w != nil {
				w.SetText(text)
				return
			}
			c.CreateElement("credit-words").SetText(text)
			return
		}
	}
	c := etree.NewElement("credit")
	c.CreateAttr("page", "1")
	c.CreateElement("credit-type").SetText(kind)
	c.CreateElement("credit-words").SetText(text)
	insertBefore(d.Root(), c, headerOrder)
}

// SetCreator sets the identification creator of the given type, e.g.
// "composer".
func (d *Document) SetCreator(kind, text string) {
	id := ensureChild(d.Root(), "identification", headerOrder)
	for _, c := range id.SelectElements("creator") {
		if c.SelectAttrValue("type", "") == kind {
			c.SetText(text)
			return
		}
	}
	c := etree.NewElement("creator")
	c.CreateAttr("type", kind)
	c.SetText(text)
	insertBefore(id, c, []string{"creator", "rights", "encoding", "source", "relation", "miscellaneous"})
}

// MovementTitle returns the movement title, falling back to the work title.
func (d *Document) MovementTitle() string {
	if e := d.Root().SelectElement("movement-title"); e != nil && e.Text() != "" {
		return e.Text()
	}
	return d.Title()
}

// Divisions returns every distinct divisions value of the document in the
// order they appear.
func (d *Document) Divisions() []int {
	var ret []int
	seen := map[int]bool{}
	for _, e := range d.Root().FindElements("./part/measure/attributes/divisions") {
		v, err := strconv.Atoi(e.Text())
		if err != nil || v <= 0 || seen[v] {
			continue
		}
		seen[v] = true
		ret = append(ret, v)
	}
	return ret
}

// headerOrder is the order of the children of score-partwise before the parts.
var headerOrder = []string{"work", "movement-number", "movement-title", "identification", "defaults", "credit", "part-list", "part"}

// ensureChild returns the first child of parent with the given tag, creating
// it at the position the order list dictates if there is none. Tags not in
// order sort first.
func ensureChild(parent *etree.Element, tag string, order []string) *etree.Element {
	if e := parent.SelectElement(tag); e != nil {
		return e
	}
	e := etree.NewElement(tag)
	insertBefore(parent, e, order)
	return e
}

// insertBefore adds e to parent after the children that sort before or with
// it in order.
func insertBefore(parent, e *etree.Element, order []string) {
	pos := indexOf(order, e.Tag)
	for _, c := range parent.ChildElements() {
		if indexOf(order, c.Tag) > pos {
			parent.InsertChildAt(c.Index(), e)
			return
		}
	}
	parent.AddChild(e)
}

func indexOf(order []string, tag string) int {
	for i, t := range order {
		if t == tag {
			return i
		}
	}
	return -1
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
