package compiler

import (
	"bytes"
	"embed"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/prisms-score/prisms"
	"github.com/prisms-score/prisms/version"
)

// Compiler turns scores into MusicXML text using a set of templates. The
// templates get a ScoreMacros value as their data.
type Compiler struct {
	Template *template.Template
	// Software is written to the encoding element of every document.
	Software string
	// Date is the encoding date (YYYY-MM-DD); empty means today.
	Date string
}

//go:embed templates/musicxml/*
var templateFS embed.FS

const scoreTemplate = "score.musicxml"

// New returns a new compiler using the default MusicXML templates
func New() (*Compiler, error) {
	tmpl, err := template.New("base").Funcs(funcMap()).ParseFS(templateFS, "templates/musicxml/*")
	if err != nil {
		return nil, fmt.Errorf(`could not create templates: %v`, err)
	}
	return &Compiler{Template: tmpl, Software: software()}, nil
}

func NewFromTemplates(templateDirectory string) (*Compiler, error) {
	globPtrn := filepath.Join(templateDirectory, "*.*")
	tmpl, err := template.New("base").Funcs(funcMap()).ParseGlob(globPtrn)
	if err != nil {
		return nil, fmt.Errorf(`could not create template based on directory "%v": %v`, templateDirectory, err)
	}
	if tmpl.Lookup(scoreTemplate) == nil {
		return nil, fmt.Errorf(`template directory "%v" has no %v`, templateDirectory, scoreTemplate)
	}
	return &Compiler{Template: tmpl, Software: software()}, nil
}

func software() string {
	if v := version.VersionOrHash; v != "" {
		return "prisms " + v
	}
	return "prisms"
}

func funcMap() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["xml"] = escape
	funcs["titlecase"] = cases.Title(language.English, cases.NoLower).String
	funcs["num"] = func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
	return funcs
}

func escape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

// Movement compiles one movement of the score into a complete score-partwise
// document. The score is validated first.
func (com *Compiler) Movement(score *prisms.Score, index int) (string, error) {
	if err := score.Validate(); err != nil {
		return "", fmt.Errorf("invalid score: %w", err)
	}
	if index < 0 || index >= len(score.Movements) {
		return "", fmt.Errorf("movement index %d out of range (score has %d movements)", index, len(score.Movements))
	}
	macros, err := NewScoreMacros(score, index)
	if err != nil {
		return "", fmt.Errorf("could not prepare movement %d: %w", index+1, err)
	}
	macros.Software = com.Software
	macros.Date = com.Date
	populatedTemplate, _, err := com.compile(scoreTemplate, macros)
	if err != nil {
		return "", fmt.Errorf(`could not execute template "%v": %v`, scoreTemplate, err)
	}
	log.Debug().Str("movement", score.Movements[index].Title).Int("measures", score.Movements[index].MeasureCount()).Msg("compiled movement")
	return populatedTemplate, nil
}

// Score compiles every movement of the score. The returned map is keyed by the
// file name suffix of each document: ".musicxml" when the score has a single
// movement, "-1.musicxml", "-2.musicxml", ... otherwise.
func (com *Compiler) Score(score *prisms.Score) (map[string]string, error) {
	retmap := map[string]string{}
	for i := range score.Movements {
		doc, err := com.Movement(score, i)
		if err != nil {
			return nil, err
		}
		retmap[Suffix(len(score.Movements), i)] = doc
	}
	return retmap, nil
}

// Suffix returns the output file suffix of movement index out of count.
func Suffix(count, index int) string {
	extension := filepath.Ext(scoreTemplate)
	if count == 1 {
		return extension
	}
	return fmt.Sprintf("-%d%s", index+1, extension)
}

func (com *Compiler) compile(templateName string, data interface{}) (string, string, error) {
	result := bytes.NewBufferString("")
	err := com.Template.ExecuteTemplate(result, templateName, data)
	extension := filepath.Ext(templateName)
	return result.String(), extension, err
}
