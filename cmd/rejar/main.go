package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "rejar",
		Short: "Rewrite jar symbols between mapping namespaces",
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newRemapCmd())
	root.AddCommand(newMappingsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("rejar 0.1.0-dev")
		},
	}
}
