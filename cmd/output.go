// Package cmd holds what the prisms commands share: writing output files and
// setting up logging and metrics.
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Output writes generated files. By default a file is written next to the
// working directory under the input's name with a new extension; Path
// redirects it to a directory or a file name.
type Output struct {
	// Path is a directory or file name. The extension of a file name is
	// replaced. Directories and their parents are created if needed.
	Path string
	// Safe refuses to overwrite files with different contents.
	Safe bool
	// List only prints the names of the files that would change.
	List bool
	// Stdout writes the contents to Stdout instead of files.
	Stdout bool
	// Out receives listings and Stdout output; nil means os.Stdout.
	Out io.Writer
}

func (o *Output) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

// Target returns the file that Write would write for the input filename.
func (o *Output) Target(filename, extension string) (string, error) {
	_, name := filepath.Split(filename)
	var dir string
	if o.Path != "" {
		// check if it's an already existing directory and the user just forgot trailing slash
		if info, err := os.Stat(o.Path); err == nil && info.IsDir() {
			dir = o.Path
		} else {
			outdir, outname := filepath.Split(o.Path)
			if outdir != "" {
				dir = outdir
			}
			if outname != "" {
				name = outname
			}
		}
	}
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
		}
	}
	name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
	return filepath.Join(dir, name), nil
}

// Write outputs contents for the input filename with the given extension,
// e.g. ".musicxml" or "-2.musicxml". Files whose contents would not change
// are left alone.
func (o *Output) Write(filename, extension string, contents []byte) error {
	if o.Stdout {
		_, err := o.out().Write(contents)
		return err
	}
	f, err := o.Target(filename, extension)
	if err != nil {
		return err
	}
	return o.WriteFile(f, contents)
}

// WriteFile outputs contents to exactly the file f.
func (o *Output) WriteFile(f string, contents []byte) error {
	if o.Stdout {
		_, err := o.out().Write(contents)
		return err
	}
	original, err := os.ReadFile(f)
	if err == nil {
		if bytes.Equal(original, contents) {
			return nil // no need to update
		}
		if !o.List && o.Safe {
			return fmt.Errorf("file %v would be overwritten", f)
		}
	}
	if o.List {
		fmt.Fprintln(o.out(), f)
		return nil
	}
	if dir := filepath.Dir(f); dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("could not create output directory %v: %v", dir, err)
		}
	}
	if err := os.WriteFile(f, contents, 0644); err != nil {
		return fmt.Errorf("could not write file %v: %v", f, err)
	}
	return nil
}

// ExpandPaths replaces every directory in params by the files directly in it
// having one of the extensions (with dots, e.g. ".yml"). Other params are
// kept as they are.
func ExpandPaths(params []string, extensions ...string) ([]string, error) {
	var ret []string
	for _, param := range params {
		info, err := os.Stat(param)
		if err != nil || !info.IsDir() {
			ret = append(ret, param)
			continue
		}
		for _, ext := range extensions {
			files, err := filepath.Glob(filepath.Join(param, "*"+ext))
			if err != nil {
				return nil, fmt.Errorf("could not glob the path %v for %v files: %v", param, ext, err)
			}
			ret = append(ret, files...)
		}
	}
	return ret, nil
}
