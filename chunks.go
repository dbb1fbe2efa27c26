package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/pngrepack/pngrepack"
)

func defineChunksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunks <file.png>",
		Short: "List the chunks of a PNG file",
		Long: `The 'chunks' command prints every chunk of a PNG file with its length and
checksum, followed by the number and total size of its IDAT chunks.
With --dry-run, it also reports how much recompression would save, without
touching the file.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runChunks,
	}
	cmd.Flags().Bool("dry-run", false, "report the size a recompressed file would have")
	return cmd
}

func runChunks(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	chunks, err := pngrepack.Decode(data)
	if err != nil {
		return essentials.AddCtx(path, err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tTYPE\tLENGTH\tCRC\tVALID")
	var idatCount, idatBytes int
	for i, c := range chunks {
		if c.Type == pngrepack.TypeIDAT {
			idatCount++
			idatBytes += len(c.Data)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%08x\t%v\n", i, c.Type, len(c.Data), c.CRC, c.Valid())
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d IDAT chunks, %s of image data\n", idatCount, humanize.Bytes(uint64(idatBytes)))

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); !dryRun {
		return nil
	}
	res, err := pngrepack.Recompress(data)
	if err != nil {
		return err
	}
	if !res.Applied {
		fmt.Println("unchanged:", res.Outcome)
		return nil
	}
	fracReduction := float64(res.Saved) / float64(res.OriginalSize)
	fmt.Printf(
		"%s -> %s (%.1f%% reduction, %s strategy)\n",
		humanize.Bytes(uint64(res.OriginalSize)),
		humanize.Bytes(uint64(res.NewSize)),
		fracReduction*100,
		res.Strategy,
	)
	return nil
}
