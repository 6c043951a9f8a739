package main

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ytget/mangadl/tiles"
	"github.com/ytget/mangadl/types"
)

// formatForPath picks the output format from the file extension, keeping
// the decoded format when the extension says nothing.
func formatForPath(path, decoded string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".gif":
		return "gif"
	}
	return decoded
}

func (a *app) descrambleCmd() *cobra.Command {
	var (
		key      string
		grid     int
		pageURL  string
		quality  int
		scramble bool
	)
	cmd := &cobra.Command{
		Use:   "descramble <input> <output>",
		Short: "Reassemble a tile-scrambled page image",
		Long: "Reassemble a page image saved from a scrambled URL. The key and grid come\n" +
			"from --key/--grid or from a page URL carrying a #desckey=...&cols=... fragment.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pageURL != "" {
				p := types.ParsePageURL(pageURL)
				if key == "" {
					key = p.DescramblingKey
				}
				if grid == 0 {
					grid = p.GridSize
				}
			}
			if key == "" || grid < 1 {
				return errors.New("descramble: need a key and a grid size (--key/--grid or --url)")
			}

			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()
			img, format, err := tiles.Decode(in)
			if err != nil {
				return err
			}

			var out image.Image
			if scramble {
				out = tiles.Scramble(img, key, grid)
			} else {
				out = tiles.Reassemble(img, key, grid)
			}

			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			written, err := tiles.Encode(f, out, formatForPath(args[1], format), quality)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s, %dx%d grid)\n", args[0], args[1], written, grid, grid)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&key, "key", "", "descrambling key, e.g. 3a0a2a1")
	f.IntVar(&grid, "grid", 0, "tiles per row and column")
	f.StringVar(&pageURL, "url", "", "page URL with a #desckey=...&cols=... fragment")
	f.IntVar(&quality, "quality", tiles.DefaultJPEGQuality, "JPEG output quality")
	f.BoolVar(&scramble, "scramble", false, "apply the inverse permutation instead")
	return cmd
}
