package cli

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/matzehuels/meshio/pkg/errors"
	"github.com/matzehuels/meshio/pkg/formats"
)

type scanFlags struct {
	match string
	read  bool
}

// scanResult is one recognized file.
type scanResult struct {
	path   string
	format string
	points int
	cells  int
	err    error
}

func (c *CLI) scanCommand() *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "scan DIR",
		Short: "Find mesh files below a directory",
		Long: `Scan walks DIR and lists every file whose extension maps to a format.

--match restricts the walk to paths (relative to DIR, "/"-separated) that
match a glob such as "**/*.vtu" or "{meshes,out}/*". With --read each file
is also read and its point and cell counts are reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, skipped, err := c.scan(args[0], flags)
			if err != nil {
				return err
			}
			printScan(c, results, flags.read)
			printDetail(c.out, "%d mesh files, %d other files", len(results), skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.match, "match", "", "glob the relative path must match")
	cmd.Flags().BoolVar(&flags.read, "read", false, "read every file and report its size")
	return cmd
}

// scan walks root and infers the format of each file. It returns the
// recognized files and the number of files without a known extension.
func (c *CLI) scan(root string, flags scanFlags) ([]scanResult, int, error) {
	var matcher glob.Glob
	if flags.match != "" {
		g, err := glob.Compile(flags.match, '/')
		if err != nil {
			return nil, 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid --match pattern %q", flags.match)
		}
		matcher = g
	}

	d := c.dispatcher()
	var (
		results []scanResult
		skipped int
	)
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if matcher != nil && !matcher.Match(filepath.ToSlash(rel)) {
			return nil
		}
		id, err := d.Registry().Infer(path)
		if err != nil {
			skipped++
			return nil
		}
		r := scanResult{path: rel, format: id}
		if flags.read {
			m, err := d.Read(formats.FromPath(path), "")
			if err != nil {
				r.err = err
			} else {
				r.points, r.cells = len(m.Points), m.NumCells()
			}
		}
		results = append(results, r)
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan %s: %w", root, err)
	}
	return results, skipped, nil
}

func printScan(c *CLI, results []scanResult, read bool) {
	if len(results) == 0 {
		printInfo(c.out, "No mesh files found")
		return
	}
	headers := []string{"path", "format"}
	if read {
		headers = append(headers, "points", "cells", "status")
	}
	rows := make([][]string, len(results))
	for i, r := range results {
		row := []string{r.path, r.format}
		if read {
			status := StyleSuccess.Render(iconSuccess)
			if r.err != nil {
				status = StyleWarning.Render(errors.UserMessage(r.err))
			}
			row = append(row, strconv.Itoa(r.points), strconv.Itoa(r.cells), status)
		}
		rows[i] = row
	}
	printTable(c.out, headers, rows)
}
