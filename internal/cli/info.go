package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/meshio/pkg/formats"
	"github.com/matzehuels/meshio/pkg/mesh"
)

func (c *CLI) infoCommand() *cobra.Command {
	var inFormat string

	cmd := &cobra.Command{
		Use:   "info FILE",
		Short: "Summarize a mesh file",
		Long:  `Info reads FILE and prints its points, cell blocks, data arrays and sets.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := formats.FromPath(args[0])
			if args[0] == stdio {
				src = formats.FromReader(c.in)
			}
			m, err := c.dispatcher().Read(src, inFormat)
			if err != nil {
				return err
			}
			c.printMesh(args[0], m)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inFormat, "input-format", "i", "", "input format identifier")
	_ = cmd.RegisterFlagCompletionFunc("input-format", c.completeFormats(false))
	return cmd
}

func (c *CLI) printMesh(name string, m *mesh.Mesh) {
	fmt.Fprintln(c.out, StyleTitle.Render(name))
	printKeyValue(c.out, "points", strconv.Itoa(len(m.Points)))
	printKeyValue(c.out, "dimension", strconv.Itoa(m.Dim()))
	printKeyValue(c.out, "cells", strconv.Itoa(m.NumCells()))

	if len(m.Cells) > 0 {
		rows := make([][]string, len(m.Cells))
		for i, b := range m.Cells {
			rows[i] = []string{strconv.Itoa(i), b.Type, strconv.Itoa(b.Len()), strconv.Itoa(b.Width())}
		}
		printTable(c.out, []string{"block", "type", "cells", "nodes"}, rows)
	}

	sections := []struct {
		key   string
		names []string
	}{
		{"point data", keys(m.PointData)},
		{"cell data", keys(m.CellData)},
		{"field data", keys(m.FieldData)},
		{"point sets", keys(m.PointSets)},
		{"cell sets", keys(m.CellSets)},
	}
	for _, s := range sections {
		if len(s.names) > 0 {
			printKeyValue(c.out, s.key, strings.Join(s.names, ", "))
		}
	}
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
