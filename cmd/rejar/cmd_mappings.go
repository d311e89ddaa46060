package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odvcencio/rejar/pkg/mapping"
)

func newMappingsCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Inspect a mapping file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				return fmt.Errorf("--mappings is required")
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open mappings: %w", err)
			}
			defer f.Close()

			set, err := mapping.ParseTiny(f)
			if err != nil {
				return err
			}
			classes, fields, methods := set.Counts()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "namespaces: %s\n", strings.Join(set.Namespaces, ", "))
			fmt.Fprintf(out, "classes:    %d\n", classes)
			fmt.Fprintf(out, "fields:     %d\n", fields)
			fmt.Fprintf(out, "methods:    %d\n", methods)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "mappings", "m", "", "tiny v1 mapping file")
	return cmd
}
