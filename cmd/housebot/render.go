package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"housebot/internal/i18n"
	"housebot/internal/render"
)

func (c *cli) renderCmd() *cobra.Command {
	var (
		floor int
		out   string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the floor plan of the current building as SVG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			locale, err := i18n.Load(c.cfg.Language)
			if err != nil {
				return err
			}
			store, err := c.openBuilding(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			b, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			opts := render.Options{}
			if cmd.Flags().Changed("floor") {
				opts = render.Options{SingleFloor: true, Floor: floor}
			}
			svg := render.NewRenderer(render.LocaleLabels(locale), render.DefaultColumns).Render(b.Schema, opts)
			if out == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), svg)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(out, []byte(svg), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (version %d)\n", out, b.Version)
			return nil
		},
	}
	cmd.Flags().IntVar(&floor, "floor", 0, "render only this floor")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}
