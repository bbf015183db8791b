// Package prisms contains the document model of the PRISMS score tooling:
// scores, parts, movements, measures, voices and events, plus the parsers for
// the small textual notations used in score documents (pitches like "C#4",
// durations like "q.", time signatures, key signatures and chord symbols).
//
// The model is deliberately close to how a score is typed by hand in YAML; the
// compiler package turns it into MusicXML and the musicxml package works on
// MusicXML documents that already exist.
package prisms

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Divisions is the number of MusicXML divisions per quarter note used by all
// generated documents. 48 allows 32nd notes, dotted 16ths and triplets down to
// 16th triplets.
const Divisions = 48

// Decode unmarshals a score from JSON or YAML. JSON is tried first; if both
// fail, the error mentions both. Unknown fields are errors in both formats.
func Decode(data []byte) (Score, error) {
	var score Score
	jd := json.NewDecoder(bytes.NewReader(data))
	jd.DisallowUnknownFields()
	errJSON := jd.Decode(&score)
	if errJSON == nil {
		return score, nil
	}
	score = Score{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if errYaml := dec.Decode(&score); errYaml != nil {
		return Score{}, fmt.Errorf("score could not be unmarshaled as a .json (%v) or .yml (%v)", errJSON, errYaml)
	}
	return score, nil
}

// EncodeYAML marshals the score as YAML.
func EncodeYAML(score *Score) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(score); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeJSON marshals the score as indented JSON.
func EncodeJSON(score *Score) ([]byte, error) {
	return json.MarshalIndent(score, "", "  ")
}
