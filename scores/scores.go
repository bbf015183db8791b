// Package scores embeds the movements of PRISMS, "The Master's Palette", as
// score documents.
package scores

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/prisms-score/prisms"
)

//go:embed movements/*
var movementFS embed.FS

const movementDir = "movements"

// Names returns the names of the embedded movements in order, e.g.
// "01-white-light".
func Names() []string {
	var ret []string
	fs.WalkDir(movementFS, movementDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch path.Ext(p) {
		case ".yml", ".yaml", ".json":
			ret = append(ret, strings.TrimSuffix(path.Base(p), path.Ext(p)))
		}
		return nil
	})
	sort.Strings(ret)
	return ret
}

// Load decodes the embedded movement with the given name.
func Load(name string) (*prisms.Score, error) {
	for _, ext := range []string{".yml", ".yaml", ".json"} {
		data, err := fs.ReadFile(movementFS, path.Join(movementDir, name+ext))
		if err != nil {
			continue
		}
		score, err := prisms.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("embedded movement %v: %w", name, err)
		}
		return &score, nil
	}
	return nil, fmt.Errorf("no embedded movement %q", name)
}

// All loads every embedded movement in the order of Names.
func All() ([]*prisms.Score, error) {
	var ret []*prisms.Score
	for _, name := range Names() {
		s, err := Load(name)
		if err != nil {
			return nil, err
		}
		ret = append(ret, s)
	}
	return ret, nil
}
