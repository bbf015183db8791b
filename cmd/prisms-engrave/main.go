package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prisms-score/prisms/cmd"
	"github.com/prisms-score/prisms/config"
	"github.com/prisms-score/prisms/metrics"
	"github.com/prisms-score/prisms/musicxml"
	"github.com/prisms-score/prisms/version"
)

func main() {
	recipePath := flag.String("c", "", "Recipe (.toml) whose [engraving] section is applied.")
	outPath := flag.String("o", "", "Directory or filename where to write the engraved files. By default, files are engraved in place.")
	safe := flag.Bool("n", false, "Never overwrite files; if file already exists and would be overwritten, give an error.")
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	pages := flag.String("page", "", "Comma separated measure numbers that start a new page.")
	systems := flag.String("system", "", "Comma separated measure numbers that start a new system.")
	every := flag.Int("every", 0, "Start a new system every this many measures.")
	slur := flag.String("slur", "", "Slur hint applied to every slur start: above or below, optionally followed by :bezier-y, e.g. above:20.")
	clearBreaks := flag.Bool("clear", false, "Remove all existing page and system breaks first.")
	renumber := flag.Int("renumber", 0, "Renumber measures starting from this number.")
	help := flag.Bool("h", false, "Show help.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String("prisms-engrave"))
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	ctx, m, done := cmd.Setup("prisms-engrave")
	var engraving musicxml.Engraving
	if *recipePath != "" {
		recipe, err := config.LoadRecipe(*recipePath)
		if err != nil {
			log.Error().Err(err).Msg("could not load recipe")
			done()
			os.Exit(1)
		}
		engraving = recipe.Engraving.Options()
	}
	engraving.ClearBreaks = engraving.ClearBreaks || *clearBreaks
	engraving.PageBreaks = append(engraving.PageBreaks, splitList(*pages)...)
	engraving.SystemBreaks = append(engraving.SystemBreaks, splitList(*systems)...)
	if *every > 0 {
		engraving.MeasuresPerSystem = *every
	}
	if *slur != "" {
		h, err := parseSlur(*slur)
		if err != nil {
			log.Error().Err(err).Msg("invalid -slur")
			done()
			os.Exit(1)
		}
		engraving.Slurs = append(engraving.Slurs, h)
	}
	out := &cmd.Output{Path: *outPath, Safe: *safe, Stdout: *stdout}
	retval := 0
	files, err := cmd.ExpandPaths(flag.Args(), ".musicxml", ".xml")
	if err != nil {
		log.Error().Err(err).Msg("could not list input files")
		retval = 1
	}
	for _, file := range files {
		if err := engrave(ctx, m, file, engraving, *renumber, out); err != nil {
			log.Error().Err(err).Str("file", file).Msg("could not engrave file")
			m.CaptureError(fmt.Errorf("%v: %w", file, err))
			retval = 1
		}
	}
	done()
	os.Exit(retval)
}

func engrave(ctx context.Context, m *metrics.SentryMetrics, file string, e musicxml.Engraving, renumber int, out *cmd.Output) error {
	doc, err := musicxml.Load(file)
	if err != nil {
		return err
	}
	before := doc.Stats()
	start := time.Now()
	err = musicxml.Engrave(doc, e)
	if err == nil && renumber != 0 {
		err = musicxml.Renumber(doc, renumber)
	}
	after := doc.Stats()
	m.RecordPass(ctx, "engrave", file, before.Total(), after.Total(), time.Since(start), err)
	log.Debug().Str("file", file).Stringer("before", before).Stringer("after", after).Msg("engraved")
	if err != nil {
		return err
	}
	b, err := doc.Bytes()
	if err != nil {
		return err
	}
	if out.Path == "" && !out.Stdout {
		return out.WriteFile(file, b)
	}
	return out.Write(file, filepath.Ext(file), b)
}

func splitList(s string) []string {
	var ret []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			ret = append(ret, f)
		}
	}
	return ret
}

// parseSlur parses "above", "below:20" or "above:20:-40" (bezier-y and
// default-y).
func parseSlur(s string) (musicxml.SlurHint, error) {
	fields := strings.Split(s, ":")
	var h musicxml.SlurHint
	switch fields[0] {
	case "above":
		h.Placement, h.Orientation = "above", "over"
	case "below":
		h.Placement, h.Orientation = "below", "under"
	default:
		return h, fmt.Errorf("slur placement must be above or below, got %q", fields[0])
	}
	for i, dst := range []*float64{&h.BezierY, &h.DefaultY} {
		if len(fields) <= i+1 {
			break
		}
		if _, err := fmt.Sscanf(fields[i+1], "%g", dst); err != nil {
			return h, fmt.Errorf("invalid slur offset %q: %v", fields[i+1], err)
		}
	}
	return h, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "PRISMS engraver. Applies page and system breaks, layout, fonts and slur hints to MusicXML files without changing their measures.\nUsage: %s [flags] file.musicxml ...\n", filepath.Base(os.Args[0]))
	flag.PrintDefaults()
}
