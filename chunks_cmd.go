package main

import (
	"fmt"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/voicectl/tts"
)

var (
	chunksMax int

	chunksCmd = &cobra.Command{
		Use:     "chunks [TEXT...]",
		Short:   "Show how text is split before it is spoken",
		Long:    paragraph(fmt.Sprintf("\n%s text into the chunks handed to the speech engine, one per line.", keyword("Split"))),
		Example: paragraph("voicectl chunks --max 40 \"Hello world. This is a test.\"\ncat notes.txt | voicectl chunks"),
		RunE:    runChunks,
	}
)

func runChunks(cmd *cobra.Command, args []string) error {
	stdin, err := inputReader()
	if err != nil {
		return err
	}
	text, err := readText(args, false, stdin)
	if err != nil {
		return err
	}

	limit := chunksMax
	if !cmd.Flags().Changed("max") {
		cfg, err := tts.LoadConfigFromViper()
		if err != nil {
			log.Warn("Using default chunk size", "err", err)
			cfg = tts.DefaultConfig()
		}
		limit = cfg.MaxChunkSize
	}
	if limit < 1 {
		return fmt.Errorf("--max must be positive, got %d", limit)
	}

	out := cmd.OutOrStdout()
	n, total := 0, 0
	for chunk := range tts.Chunks(text, limit) {
		runes := utf8.RuneCountInString(chunk)
		fmt.Fprintf(out, "%s %s %q\n",
			keyword(fmt.Sprintf("%3d", n)),
			faint(fmt.Sprintf("(%s)", humanize.Comma(int64(runes)))),
			chunk)
		n++
		total += runes
	}
	fmt.Fprintln(out, faint(fmt.Sprintf("%d chunks, %s characters, limit %s",
		n, humanize.Comma(int64(total)), humanize.Comma(int64(limit)))))
	return nil
}

func init() {
	chunksCmd.Flags().IntVar(&chunksMax, "max", tts.DefaultMaxChunkSize, "longest chunk in characters")
}
