package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ffigen/internal/diag"
	"ffigen/internal/irfile"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot [ir]",
		Short: "Convert an IR document to or from a msgpack snapshot",
		Long: `Snapshot checks that an IR document builds into a type graph and writes it
as a compact .ffir snapshot. With --yaml it decodes a document (snapshot
or not) and prints it as YAML instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSnapshot,
	}
	cmd.Flags().StringP("out", "o", "", "snapshot path (default: <ir> with the .ffir extension)")
	cmd.Flags().Bool("yaml", false, "print the document as YAML instead of writing a snapshot")
	return cmd
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	in, err := loadInput(cmd, args)
	if err != nil {
		return err
	}
	asYAML, err := cmd.Flags().GetBool("yaml")
	if err != nil {
		return err
	}
	if asYAML {
		return irfile.Encode(cmd.OutOrStdout(), in.doc)
	}
	if _, err := in.doc.Graph(); err != nil {
		return err
	}

	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	if out == "" {
		out = strings.TrimSuffix(in.path, filepath.Ext(in.path)) + irfile.SnapshotExt
	}
	if filepath.Clean(out) == filepath.Clean(in.path) {
		return fmt.Errorf("refusing to overwrite the input %s", in.path)
	}
	if err := writeSnapshot(out, in.doc); err != nil {
		return diag.NewErrorf(diag.ProjectIO, diag.NodeRef{}, "%s: %v", out, err)
	}
	if !in.globals.quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
	}
	return nil
}

func writeSnapshot(path string, doc *irfile.Document) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return irfile.WriteSnapshot(f, doc)
}
