package musicxml

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMeasureCountChanged is returned when an operation ends with a different
// number of measures in some part than it should have.
var ErrMeasureCountChanged = errors.New("measure count changed")

// Stats counts the contents of a document.
type Stats struct {
	Measures  map[string]int // per part id
	Notes     int            // pitched notes, chord members included
	Rests     int
	Harmonies int
}

// Stats counts the measures of every part and the notes, rests and harmony
// symbols of the whole document.
func (d *Document) Stats() Stats {
	s := Stats{Measures: map[string]int{}}
	for _, p := range d.Parts() {
		measures := p.SelectElements("measure")
		s.Measures[p.SelectAttrValue("id", "")] += len(measures)
		for _, m := range measures {
			for _, n := range m.SelectElements("note") {
				if n.SelectElement("rest") != nil {
					s.Rests++
				} else {
					s.Notes++
				}
			}
			s.Harmonies += len(m.SelectElements("harmony"))
		}
	}
	return s
}

// Total returns the number of measures summed over all parts.
func (s Stats) Total() int {
	ret := 0
	for _, c := range s.Measures {
		ret += c
	}
	return ret
}

func (s Stats) String() string {
	ids := make([]string, 0, len(s.Measures))
	for id := range s.Measures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%v:%d", id, s.Measures[id])
	}
	return fmt.Sprintf("measures[%v] notes=%d rests=%d harmonies=%d", strings.Join(parts, " "), s.Notes, s.Rests, s.Harmonies)
}

// Verify compares the measure counts of two Stats part by part.
func Verify(expected, actual Stats) error {
	for id, want := range expected.Measures {
		if got, ok := actual.Measures[id]; !ok || got != want {
			return fmt.Errorf("%w: part %q has %d measures, expected %d", ErrMeasureCountChanged, id, got, want)
		}
	}
	for id, got := range actual.Measures {
		if _, ok := expected.Measures[id]; !ok {
			return fmt.Errorf("%w: unexpected part %q with %d measures", ErrMeasureCountChanged, id, got)
		}
	}
	return nil
}
