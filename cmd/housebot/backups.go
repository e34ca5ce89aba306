package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"housebot/internal/backup"
)

var errNoBackup = errors.New("no backup provider configured (set BACKUP_DRIVER and its credentials)")

func (c *cli) backupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "Inspect and restore remote building backups",
	}
	cmd.AddCommand(c.backupsListCmd(), c.backupsRestoreCmd())
	return cmd
}

func (c *cli) backupsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := c.openBackupStore(cmd.Context())
			if err != nil {
				return err
			}
			if store == nil {
				return errNoBackup
			}
			items, err := backup.List(cmd.Context(), store, c.cfg.Backup.Folder)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tSIZE\tMODIFIED")
			for _, it := range items {
				modified := "-"
				if !it.LastModified.IsZero() {
					modified = it.LastModified.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", it.Key, it.Size, modified)
			}
			return w.Flush()
		},
	}
}

func (c *cli) backupsRestoreCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "restore KEY",
		Short: "Download a backup over the building file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openBackupStore(cmd.Context())
			if err != nil {
				return err
			}
			if store == nil {
				return errNoBackup
			}
			dst := out
			if dst == "" {
				dst = c.cfg.BuildingFile
			}
			n, err := backup.Restore(cmd.Context(), store, args[0], dst)
			if err != nil {
				return fmt.Errorf("restore %s: %w", args[0], err)
			}
			c.log.Info("backup restored", "key", args[0], "path", dst, "bytes", n)
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s to %s (%d bytes)\n", args[0], dst, n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "destination file (default BUILDING_FILE)")
	return cmd
}
