// Package config loads assembly recipes: TOML files naming the movements to
// concatenate and the engraving to apply to the result.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/prisms-score/prisms/musicxml"
)

type (
	// Recipe describes one assembled score.
	Recipe struct {
		Output          string
		Title           string
		Subtitle        string
		Composer        string
		RenumberFrom    int
		MovementBreak   musicxml.BreakKind
		MovementHeaders bool
		TitleCase       bool
		MatchByIndex    bool
		Movements       []MovementEntry
		Engraving       EngravingConfig
	}

	MovementEntry struct {
		File string
	}

	EngravingConfig struct {
		ClearBreaks       bool         `toml:"clear_breaks"`
		PageBreaks        []string     `toml:"page_breaks"`
		SystemBreaks      []string     `toml:"system_breaks"`
		MeasuresPerSystem int          `toml:"measures_per_system"`
		SystemDistance    float64      `toml:"system_distance"`
		TopSystemDistance float64      `toml:"top_system_distance"`
		StaffDistance     float64      `toml:"staff_distance"`
		Page              *PageConfig  `toml:"page"`
		Scaling           *ScaleConfig `toml:"scaling"`
		Fonts             FontConfig   `toml:"fonts"`
		Slurs             []SlurConfig `toml:"slur"`
	}

	PageConfig struct {
		Height float64 `toml:"height"`
		Width  float64 `toml:"width"`
		Left   float64 `toml:"left"`
		Right  float64 `toml:"right"`
		Top    float64 `toml:"top"`
		Bottom float64 `toml:"bottom"`
	}

	ScaleConfig struct {
		Millimeters float64 `toml:"millimeters"`
		Tenths      float64 `toml:"tenths"`
	}

	FontConfig struct {
		MusicFamily  string  `toml:"music_family"`
		MusicSize    float64 `toml:"music_size"`
		WordFamily   string  `toml:"word_family"`
		WordSize     float64 `toml:"word_size"`
		LyricFamily  string  `toml:"lyric_family"`
		LyricSize    float64 `toml:"lyric_size"`
		TitleSize    float64 `toml:"title_size"`
		SubtitleSize float64 `toml:"subtitle_size"`
		ComposerSize float64 `toml:"composer_size"`
	}

	SlurConfig struct {
		Placement   string  `toml:"placement"`
		Orientation string  `toml:"orientation"`
		BezierY     float64 `toml:"bezier_y"`
		DefaultY    float64 `toml:"default_y"`
		From        int     `toml:"from"`
		To          int     `toml:"to"`
	}

	fileRecipe struct {
		Output          string          `toml:"output"`
		Title           string          `toml:"title"`
		Subtitle        string          `toml:"subtitle"`
		Composer        string          `toml:"composer"`
		RenumberFrom    int             `toml:"renumber_from"`
		MovementBreak   string          `toml:"movement_break"`
		MovementHeaders bool            `toml:"movement_headers"`
		TitleCase       bool            `toml:"title_case"`
		MatchByIndex    bool            `toml:"match_by_index"`
		Movements       []fileMovement  `toml:"movement"`
		Engraving       EngravingConfig `toml:"engraving"`
	}

	fileMovement struct {
		File string `toml:"file"`
	}
)

// DefaultRecipe returns the settings used for keys a recipe leaves out.
func DefaultRecipe() Recipe {
	return Recipe{
		RenumberFrom:    1,
		MovementBreak:   musicxml.BreakPage,
		MovementHeaders: true,
	}
}

// LoadRecipe reads a recipe. Relative movement and output paths are resolved
// against the directory of the recipe file.
func LoadRecipe(path string) (Recipe, error) {
	cfg := DefaultRecipe()

	var raw fileRecipe
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Recipe{}, fmt.Errorf("load recipe: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Recipe{}, fmt.Errorf("load recipe: unknown key %q", undecoded[0].String())
	}
	dir := filepath.Dir(path)

	if meta.IsDefined("output") {
		cfg.Output = resolve(dir, strings.TrimSpace(raw.Output))
	}
	cfg.Title = strings.TrimSpace(raw.Title)
	cfg.Subtitle = strings.TrimSpace(raw.Subtitle)
	cfg.Composer = strings.TrimSpace(raw.Composer)

	if meta.IsDefined("renumber_from") {
		cfg.RenumberFrom = raw.RenumberFrom
	}
	if meta.IsDefined("movement_break") {
		kind, err := musicxml.ParseBreakKind(raw.MovementBreak)
		if err != nil {
			return Recipe{}, fmt.Errorf("parse movement_break: %w", err)
		}
		cfg.MovementBreak = kind
	}
	if meta.IsDefined("movement_headers") {
		cfg.MovementHeaders = raw.MovementHeaders
	}
	cfg.TitleCase = raw.TitleCase
	cfg.MatchByIndex = raw.MatchByIndex

	for _, m := range raw.Movements {
		cfg.Movements = append(cfg.Movements, MovementEntry{File: resolve(dir, strings.TrimSpace(m.File))})
	}
	cfg.Engraving = raw.Engraving

	if err := cfg.Validate(); err != nil {
		return Recipe{}, fmt.Errorf("invalid recipe %v: %w", path, err)
	}
	return cfg, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Validate checks the recipe for values no pass could use.
func (r Recipe) Validate() error {
	for i, m := range r.Movements {
		if m.File == "" {
			return fmt.Errorf("movement %d has no file", i+1)
		}
	}
	return r.Engraving.Validate()
}

func (e EngravingConfig) Validate() error {
	if e.MeasuresPerSystem < 0 {
		return fmt.Errorf("measures_per_system must not be negative, got %d", e.MeasuresPerSystem)
	}
	if e.Scaling != nil && (e.Scaling.Millimeters <= 0 || e.Scaling.Tenths <= 0) {
		return errors.New("scaling needs positive millimeters and tenths")
	}
	if e.Page != nil && (e.Page.Height < 0 || e.Page.Width < 0) {
		return errors.New("page size must not be negative")
	}
	for i, s := range e.Slurs {
		switch s.Placement {
		case "", "above", "below":
		default:
			return fmt.Errorf("slur %d: placement must be above or below, got %q", i+1, s.Placement)
		}
		switch s.Orientation {
		case "", "over", "under":
		default:
			return fmt.Errorf("slur %d: orientation must be over or under, got %q", i+1, s.Orientation)
		}
		if s.To > 0 && s.From > s.To {
			return fmt.Errorf("slur %d: from %d is after to %d", i+1, s.From, s.To)
		}
	}
	return nil
}

// Options converts the configuration to musicxml engraving options.
func (e EngravingConfig) Options() musicxml.Engraving {
	ret := musicxml.Engraving{
		ClearBreaks:       e.ClearBreaks,
		PageBreaks:        e.PageBreaks,
		SystemBreaks:      e.SystemBreaks,
		MeasuresPerSystem: e.MeasuresPerSystem,
		SystemDistance:    e.SystemDistance,
		TopSystemDistance: e.TopSystemDistance,
		StaffDistance:     e.StaffDistance,
		Fonts: musicxml.Fonts{
			Music:        musicxml.Font{Family: e.Fonts.MusicFamily, Size: e.Fonts.MusicSize},
			Word:         musicxml.Font{Family: e.Fonts.WordFamily, Size: e.Fonts.WordSize},
			Lyric:        musicxml.Font{Family: e.Fonts.LyricFamily, Size: e.Fonts.LyricSize},
			TitleSize:    e.Fonts.TitleSize,
			SubtitleSize: e.Fonts.SubtitleSize,
			ComposerSize: e.Fonts.ComposerSize,
		},
	}
	if e.Page != nil {
		ret.Page = &musicxml.PageLayout{
			Height:  e.Page.Height,
			Width:   e.Page.Width,
			Margins: musicxml.Margins{Left: e.Page.Left, Right: e.Page.Right, Top: e.Page.Top, Bottom: e.Page.Bottom},
		}
	}
	if e.Scaling != nil {
		ret.Scaling = &musicxml.Scaling{Millimeters: e.Scaling.Millimeters, Tenths: e.Scaling.Tenths}
	}
	for _, s := range e.Slurs {
		ret.Slurs = append(ret.Slurs, musicxml.SlurHint{
			Placement:   s.Placement,
			Orientation: s.Orientation,
			BezierY:     s.BezierY,
			DefaultY:    s.DefaultY,
			From:        s.From,
			To:          s.To,
		})
	}
	return ret
}

// AssembleOptions returns the concatenation options of the recipe.
func (r Recipe) AssembleOptions() musicxml.AssembleOptions {
	return musicxml.AssembleOptions{
		MatchByIndex:    r.MatchByIndex,
		Break:           r.MovementBreak,
		MovementHeaders: r.MovementHeaders,
		TitleCase:       r.TitleCase,
		Renumber:        true,
		RenumberFrom:    r.RenumberFrom,
		Title:           r.Title,
		Subtitle:        r.Subtitle,
		Composer:        r.Composer,
	}
}

// Files returns the movement files in order.
func (r Recipe) Files() []string {
	var ret []string
	for _, m := range r.Movements {
		ret = append(ret, m.File)
	}
	return ret
}
