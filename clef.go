package prisms

// Clef is a clef as MusicXML describes it: a sign, the staff line it sits on
// and an optional octave change.
type Clef struct {
	Sign         string
	Line         int
	OctaveChange int
}

var clefs = map[string]Clef{
	"treble":     {Sign: "G", Line: 2},
	"treble8vb":  {Sign: "G", Line: 2, OctaveChange: -1},
	"bass":       {Sign: "F", Line: 4},
	"alto":       {Sign: "C", Line: 3},
	"tenor":      {Sign: "C", Line: 4},
	"percussion": {Sign: "percussion"},
}

// LookupClef returns the clef with the given name, falling back to treble.
func LookupClef(name string) Clef {
	if c, ok := clefs[name]; ok {
		return c
	}
	return clefs["treble"]
}
