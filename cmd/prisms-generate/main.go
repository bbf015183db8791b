package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prisms-score/prisms"
	"github.com/prisms-score/prisms/cmd"
	"github.com/prisms-score/prisms/compiler"
	"github.com/prisms-score/prisms/metrics"
	"github.com/prisms-score/prisms/midi"
	"github.com/prisms-score/prisms/scores"
	"github.com/prisms-score/prisms/version"
)

func main() {
	safe := flag.Bool("n", false, "Never overwrite files; if file already exists and would be overwritten, give an error.")
	list := flag.Bool("l", false, "Do not write files; just list files that would change instead.")
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	builtin := flag.Bool("b", false, "Generate the embedded PRISMS movements. Input files are not needed.")
	jsonOut := flag.Bool("j", false, "Output the score as .json file instead of generating MusicXML.")
	yamlOut := flag.Bool("y", false, "Output the score as .yml file instead of generating MusicXML.")
	midiOut := flag.Bool("m", false, "Also write a .mid proof of the score.")
	harmony := flag.Bool("harmony", false, "Voice the chord symbols on a separate track of the .mid proof.")
	tmplDir := flag.String("t", "", "Use the templates in this directory instead of the standard templates.")
	outPath := flag.String("o", "", "Directory or filename where to write generated files. Extension is ignored. Directory and its parents are created if needed. By default, everything is placed in the current directory.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String("prisms-generate"))
		os.Exit(0)
	}
	if (flag.NArg() == 0 && !*builtin) || *help {
		flag.Usage()
		os.Exit(0)
	}
	ctx, m, done := cmd.Setup("prisms-generate")
	generate := !*jsonOut && !*yamlOut // if the user gives nothing to output, then the default behaviour is to generate MusicXML
	var comp *compiler.Compiler
	if generate {
		var err error
		if *tmplDir != "" {
			comp, err = compiler.NewFromTemplates(*tmplDir)
		} else {
			comp, err = compiler.New()
		}
		if err != nil {
			log.Error().Err(err).Msg("error creating compiler")
			done()
			os.Exit(1)
		}
	}
	g := &generator{
		ctx:     ctx,
		metrics: m,
		comp:    comp,
		out:     &cmd.Output{Path: *outPath, Safe: *safe, List: *list, Stdout: *stdout},
		json:    *jsonOut,
		yaml:    *yamlOut,
		midi:    *midiOut,
		harmony: *harmony,
	}
	retval := 0
	fail := func(file string, err error) {
		log.Error().Err(err).Str("file", file).Msg("could not process file")
		m.CaptureError(fmt.Errorf("%v: %w", file, err))
		retval = 1
	}
	if *builtin {
		for _, name := range scores.Names() {
			score, err := scores.Load(name)
			if err == nil {
				err = g.process(name, score)
			}
			if err != nil {
				fail(name, err)
			}
		}
	}
	files, err := cmd.ExpandPaths(flag.Args(), ".yml", ".yaml", ".json")
	if err != nil {
		log.Error().Err(err).Msg("could not list input files")
		retval = 1
	}
	for _, file := range files {
		inputBytes, err := os.ReadFile(file)
		if err != nil {
			fail(file, fmt.Errorf("could not read file: %w", err))
			continue
		}
		score, err := prisms.Decode(inputBytes)
		if err != nil {
			fail(file, err)
			continue
		}
		if err := g.process(file, &score); err != nil {
			fail(file, err)
		}
	}
	done()
	os.Exit(retval)
}

// generator turns one score into the requested output files. A nil comp
// skips the MusicXML.
type generator struct {
	ctx     context.Context
	metrics *metrics.SentryMetrics
	comp    *compiler.Compiler
	out     *cmd.Output
	json    bool
	yaml    bool
	midi    bool
	harmony bool
}

func (g *generator) process(filename string, score *prisms.Score) error {
	start := time.Now()
	if err := score.Validate(); err != nil {
		return fmt.Errorf("invalid score: %w", err)
	}
	for _, w := range score.Warnings() {
		log.Warn().Str("file", filename).Msg(w)
	}
	if g.comp != nil {
		docs, err := g.comp.Score(score)
		if err != nil {
			return fmt.Errorf("generating MusicXML failed: %w", err)
		}
		for i := range score.Movements {
			suffix := compiler.Suffix(len(score.Movements), i)
			if err := g.out.Write(filename, suffix, []byte(docs[suffix])); err != nil {
				return fmt.Errorf("error outputting %v file: %w", suffix, err)
			}
		}
		measures := 0
		for i := range score.Movements {
			measures += score.Movements[i].MeasureCount() * len(score.Parts)
		}
		g.metrics.RecordPass(g.ctx, "generate", filename, measures, measures, time.Since(start), nil)
	}
	if g.midi && !g.out.Stdout {
		s, err := midi.Export(score, midi.Options{Harmony: g.harmony})
		if err != nil {
			return fmt.Errorf("exporting MIDI failed: %w", err)
		}
		var buf bytes.Buffer
		if _, err := s.WriteTo(&buf); err != nil {
			return fmt.Errorf("could not encode MIDI: %w", err)
		}
		if err := g.out.Write(filename, ".mid", buf.Bytes()); err != nil {
			return fmt.Errorf("error outputting mid file: %w", err)
		}
	}
	if g.json {
		jsonScore, err := prisms.EncodeJSON(score)
		if err != nil {
			return fmt.Errorf("could not marshal the score as json file: %w", err)
		}
		if err := g.out.Write(filename, ".json", jsonScore); err != nil {
			return fmt.Errorf("error outputting json file: %w", err)
		}
	}
	if g.yaml {
		yamlScore, err := prisms.EncodeYAML(score)
		if err != nil {
			return fmt.Errorf("could not marshal the score as yaml file: %w", err)
		}
		if err := g.out.Write(filename, ".yml", yamlScore); err != nil {
			return fmt.Errorf("error outputting yaml file: %w", err)
		}
	}
	log.Debug().Str("file", filename).Dur("took", time.Since(start)).Msg("processed score")
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "PRISMS generator. Input .yml or .json scores, outputs MusicXML (.musicxml) files, one per movement.\nUsage: %s [flags] [path ...]\n", filepath.Base(os.Args[0]))
	flag.PrintDefaults()
}
