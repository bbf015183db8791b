package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prisms-score/prisms/cmd"
	"github.com/prisms-score/prisms/config"
	"github.com/prisms-score/prisms/metrics"
	"github.com/prisms-score/prisms/musicxml"
	"github.com/prisms-score/prisms/version"
)

func main() {
	recipePath := flag.String("c", "", "Assembly recipe (.toml). Movement files and engraving are read from it.")
	outPath := flag.String("o", "", "Output file. Overrides the output of the recipe.")
	safe := flag.Bool("n", false, "Never overwrite files; if file already exists and would be overwritten, give an error.")
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	from := flag.Int("from", 0, "Renumber measures starting from this number (default 1, or the recipe's renumber_from).")
	breakKind := flag.String("break", "", "Break inserted between movements: page, system or none (default page, or the recipe's movement_break).")
	title := flag.String("title", "", "Work title of the assembled score.")
	byIndex := flag.Bool("index", false, "Match parts of the movements by position instead of by id.")
	help := flag.Bool("h", false, "Show help.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String("prisms-assemble"))
		os.Exit(0)
	}
	if (flag.NArg() == 0 && *recipePath == "") || *help {
		flag.Usage()
		os.Exit(0)
	}
	ctx, m, done := cmd.Setup("prisms-assemble")
	recipe := config.DefaultRecipe()
	if *recipePath != "" {
		var err error
		if recipe, err = config.LoadRecipe(*recipePath); err != nil {
			log.Error().Err(err).Msg("could not load recipe")
			m.CaptureError(err)
			done()
			os.Exit(1)
		}
	}
	files := append(recipe.Files(), flag.Args()...)
	if *outPath != "" {
		recipe.Output = *outPath
	}
	if *from != 0 {
		recipe.RenumberFrom = *from
	}
	if *breakKind != "" {
		kind, err := musicxml.ParseBreakKind(*breakKind)
		if err != nil {
			log.Error().Err(err).Msg("invalid -break")
			done()
			os.Exit(1)
		}
		recipe.MovementBreak = kind
	}
	if *title != "" {
		recipe.Title = *title
	}
	recipe.MatchByIndex = recipe.MatchByIndex || *byIndex
	out := &cmd.Output{Safe: *safe, Stdout: *stdout}
	retval := 0
	if err := assemble(ctx, m, recipe, files, out); err != nil {
		log.Error().Err(err).Msg("assembly failed")
		m.CaptureError(err)
		retval = 1
	}
	done()
	os.Exit(retval)
}

func assemble(ctx context.Context, m *metrics.SentryMetrics, recipe config.Recipe, files []string, out *cmd.Output) error {
	if len(files) == 0 {
		return errors.New("no movement files given")
	}
	if recipe.Output == "" && !out.Stdout {
		return errors.New("no output file given; use -o or set output in the recipe")
	}
	var docs []*musicxml.Document
	total := 0
	for _, f := range files {
		d, err := musicxml.Load(f)
		if err != nil {
			return err
		}
		s := d.Stats()
		log.Debug().Str("file", f).Stringer("stats", s).Msg("loaded movement")
		total += s.Total()
		docs = append(docs, d)
	}
	start := time.Now()
	doc, err := musicxml.Concatenate(docs, recipe.AssembleOptions())
	after := 0
	if doc != nil {
		after = doc.Stats().Total()
	}
	m.RecordPass(ctx, "assemble", recipe.Output, total, after, time.Since(start), err)
	if err != nil {
		return err
	}
	start = time.Now()
	err = musicxml.Engrave(doc, recipe.Engraving.Options())
	m.RecordPass(ctx, "engrave", recipe.Output, after, doc.Stats().Total(), time.Since(start), err)
	if err != nil {
		return err
	}
	if got := doc.Stats().Total(); got != total {
		return fmt.Errorf("%w: %d measures after assembly, %d before", musicxml.ErrMeasureCountChanged, got, total)
	}
	b, err := doc.Bytes()
	if err != nil {
		return err
	}
	if err := out.WriteFile(recipe.Output, b); err != nil {
		return err
	}
	log.Info().Int("movements", len(docs)).Int("measures", total).Str("output", recipe.Output).Msg("assembled score")
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "PRISMS assembler. Concatenates MusicXML movements into one score, renumbers the measures and applies engraving.\nUsage: %s -c recipe.toml [flags] [file.musicxml ...]\n       %s -o out.musicxml [flags] file.musicxml ...\n", filepath.Base(os.Args[0]), filepath.Base(os.Args[0]))
	flag.PrintDefaults()
}
