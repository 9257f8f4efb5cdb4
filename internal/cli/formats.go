package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/meshio/pkg/formats"
)

func (c *CLI) formatsCommand() *cobra.Command {
	var extensions bool

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List the supported formats",
		Long:  `Formats lists every backend with its read and write identifiers, or with --extensions the file extensions used for inference.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := c.dispatcher().Registry()
			if extensions {
				printExtensions(c, r)
				return nil
			}
			printBackends(c, r)
			return nil
		},
	}

	cmd.Flags().BoolVar(&extensions, "extensions", false, "list the extension table instead")
	return cmd
}

func printBackends(c *CLI, r *formats.Registry) {
	rows := make([][]string, 0, len(r.Backends()))
	for _, b := range r.Backends() {
		writers := make([]string, 0, len(b.Writers))
		for id := range b.Writers {
			writers = append(writers, id)
		}
		sort.Strings(writers)
		exts := make([]string, 0, len(b.Extensions))
		for ext := range b.Extensions {
			exts = append(exts, ext)
		}
		sort.Strings(exts)
		rows = append(rows, []string{b.Name, join(b.Readers), join(writers), join(exts)})
	}
	printTable(c.out, []string{"backend", "read", "write", "extensions"}, rows)
	printDetail(c.out, "%d read and %d write identifiers", len(r.ReadFormats()), len(r.WriteFormats()))
}

func printExtensions(c *CLI, r *formats.Registry) {
	table := r.Extensions()
	exts := make([]string, 0, len(table))
	for ext := range table {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	rows := make([][]string, len(exts))
	for i, ext := range exts {
		id := table[ext]
		multi := ""
		if r.IsMultiFile(id) {
			multi = "multi-file"
		}
		rows[i] = []string{ext, id, multi}
	}
	printTable(c.out, []string{"extension", "format", ""}, rows)
}

func join(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}
