package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ytget/mangadl/mangago/chapterjs"
	"github.com/ytget/mangadl/mangago/imagelist"
)

func (a *app) deobfuscateCmd() *cobra.Command {
	var (
		fromURL  bool
		showKeys bool
	)
	cmd := &cobra.Command{
		Use:   "deobfuscate [file|url|-]",
		Short: "Decode a sojson.v4 chapter.js",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := "-"
			if len(args) == 1 {
				src = args[0]
			}

			var raw string
			switch {
			case fromURL:
				text, err := a.client().GetText(cmd.Context(), src)
				if err != nil {
					return err
				}
				raw = text
			case src == "-":
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				raw = string(b)
			default:
				b, err := os.ReadFile(src)
				if err != nil {
					return err
				}
				raw = string(b)
			}

			script, err := chapterjs.Deobfuscate(trimScript(raw))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !showKeys {
				_, err := fmt.Fprintln(out, script)
				return err
			}

			km, err := chapterjs.ExtractKeyMaterial(script)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "key:       %s\n", hex.EncodeToString(km.CipherKey))
			fmt.Fprintf(out, "iv:        %s\n", hex.EncodeToString(km.IV))
			fmt.Fprintf(out, "grid:      %d\n", km.GridSize)
			fmt.Fprintf(out, "positions: %v\n", imagelist.KeyPositions(script))
			if _, err := chapterjs.KeySnippet(script); err != nil {
				fmt.Fprintf(out, "renImg:    %v\n", err)
			} else {
				fmt.Fprintln(out, "renImg:    found")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromURL, "url", false, "treat the argument as a URL and fetch it")
	cmd.Flags().BoolVar(&showKeys, "keys", false, "print key material instead of the script")
	return cmd
}

// trimScript drops leading whitespace and trailing line breaks. Trailing
// spaces belong to the obfuscated payload and are kept.
func trimScript(raw string) string {
	return strings.TrimLeft(strings.TrimRight(raw, "\r\n"), " \t\r\n")
}
