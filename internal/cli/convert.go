package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/meshio/pkg/formats"
)

// stdio stands for stdin or stdout in place of a path.
const stdio = "-"

type convertFlags struct {
	inFormat  string
	outFormat string
	opts      []string
}

func (c *CLI) convertCommand() *cobra.Command {
	var flags convertFlags

	cmd := &cobra.Command{
		Use:   "convert INPUT OUTPUT",
		Short: "Convert a mesh file to another format",
		Long: `Convert reads INPUT and writes it to OUTPUT.

Formats are inferred from the file extensions unless given with -i/-o.
Use "-" for stdin or stdout; the format must then be given explicitly.
Writer options are passed as --opt key=value and override the defaults
from the [convert.<format>] table of the config file.`,
		Example: `  meshio convert part.msh part.vtu
  meshio convert part.inp part.vtk -o vtk-ascii
  meshio convert - out.stl -i obj < part.obj
  meshio convert part.vtu part.vtu -o vtu-binary --opt compression=none`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd, args[0], args[1], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.inFormat, "input-format", "i", "", "input format identifier")
	cmd.Flags().StringVarP(&flags.outFormat, "output-format", "o", "", "output format identifier")
	cmd.Flags().StringArrayVar(&flags.opts, "opt", nil, "writer option key=value (repeatable)")
	_ = cmd.RegisterFlagCompletionFunc("input-format", c.completeFormats(false))
	_ = cmd.RegisterFlagCompletionFunc("output-format", c.completeFormats(true))

	return cmd
}

func (c *CLI) runConvert(cmd *cobra.Command, in, out string, flags convertFlags) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	d := c.dispatcher()

	flagOpts, err := parseOptions(flags.opts)
	if err != nil {
		return err
	}

	// An uninferable output name falls through to the dispatcher, which
	// reports the unknown extension, unless a terminal can ask instead.
	outFormat := flags.outFormat
	if outFormat == "" && out != stdio {
		id, err := d.Registry().Infer(out)
		switch {
		case err == nil:
			outFormat = id
		case interactive(c.in):
			picked, err := pickFormat(c.in, cmd.ErrOrStderr(), "Output format for "+out, d.WriteFormats())
			if err != nil {
				return err
			}
			if picked == "" {
				return fmt.Errorf("no output format selected")
			}
			outFormat = picked
		}
	}

	src := formats.FromPath(in)
	if in == stdio {
		src = formats.FromReader(c.in)
	}
	dst := formats.ToPath(out)
	if out == stdio {
		dst = formats.ToWriter(c.out)
	}
	opts := c.Config.writerOptions(outFormat, flagOpts)

	prog := newProgress(logger)
	stop := startSpinner(ctx, "Converting "+in)
	m, err := d.Convert(src, dst, flags.inFormat, outFormat, opts)
	stop()
	if err != nil {
		return err
	}
	prog.done("converted", "points", len(m.Points), "cells", m.NumCells())

	if out != stdio {
		printSuccess(c.out, "Converted %s", in)
		printFile(c.out, out)
	}
	return nil
}

// completeFormats completes read or write identifiers.
func (c *CLI) completeFormats(write bool) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		d := c.dispatcher()
		if write {
			return d.WriteFormats(), cobra.ShellCompDirectiveNoFileComp
		}
		return d.ReadFormats(), cobra.ShellCompDirectiveNoFileComp
	}
}
