package commands

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/beetlebugorg/skymap/pkg/skymap"
)

func newInfoCmd() *cobra.Command {
	var formatName string

	cmd := &cobra.Command{
		Use:   "info FILE",
		Short: "Show the header and size of an encoded skymap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatFor(args[0], formatName)
			if err != nil {
				return err
			}
			f, err := skymap.OpenFile(args[0], format)
			if err != nil {
				return err
			}
			defer f.Close()
			return printInfo(cmd.OutOrStdout(), args[0], f)
		},
	}
	cmd.Flags().StringVarP(&formatName, "format", "f", "", "File format (full-vertex or ring-optimized); inferred from .fv/.ro")
	return cmd
}

func printInfo(out io.Writer, path string, f *skymap.File) error {
	vertices := 0
	for i := 0; i < f.TractCount(); i++ {
		n, err := f.VertexCount(i)
		if err != nil {
			return err
		}
		vertices += n
	}

	fmt.Fprintf(out, "File:     %s\n", path)
	fmt.Fprintf(out, "Format:   %s\n", f.Format())
	fmt.Fprintf(out, "Size:     %s (%s bytes)\n", humanize.Bytes(uint64(f.Size())), humanize.Comma(f.Size()))
	fmt.Fprintf(out, "Tracts:   %s\n", humanize.Comma(int64(f.TractCount())))
	fmt.Fprintf(out, "Vertices: %s\n", humanize.Comma(int64(vertices)))

	if fv := f.FullVertex(); fv != nil {
		fmt.Fprintf(out, "Width:    %s\n", fv.Width())
	}
	if ro := f.RingOptimized(); ro != nil {
		fmt.Fprintf(out, "Rings:    %d\n", ro.RingCount())
		layout, err := ro.Rings()
		if err != nil {
			fmt.Fprintf(out, "Layout:   invalid (%v)\n", err)
			return nil
		}
		fmt.Fprintf(out, "Layout:   %v\n", layout.Sizes())
		if vertices > 0 {
			explicit := int64(12+12*f.TractCount()) + 16*int64(vertices)
			fmt.Fprintf(out, "Ratio:    %.1fx smaller than full-vertex float64\n", float64(explicit)/float64(f.Size()))
		}
	}
	return nil
}
