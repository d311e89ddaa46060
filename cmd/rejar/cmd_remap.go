package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/odvcencio/rejar/pkg/jar"
	"github.com/odvcencio/rejar/pkg/mapping"
)

func newRemapCmd() *cobra.Command {
	var cfg Config
	var cfgPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "remap",
		Short: "Rewrite a jar's symbols from one namespace to another",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath != "" {
				fileCfg, err := readConfig(cfgPath)
				if err != nil {
					return err
				}
				mergeConfig(cmd, &cfg, fileCfg)
			}
			for _, req := range []struct{ name, val string }{
				{"input", cfg.Input},
				{"output", cfg.Output},
				{"mappings", cfg.Mappings},
				{"from", cfg.From},
				{"to", cfg.To},
			} {
				if req.val == "" {
					return fmt.Errorf("--%s is required", req.name)
				}
			}

			mf, err := os.Open(cfg.Mappings)
			if err != nil {
				return fmt.Errorf("open mappings: %w", err)
			}
			set, err := mapping.ParseTiny(mf)
			mf.Close()
			if err != nil {
				return err
			}
			table, err := set.Table(cfg.From, cfg.To)
			if err != nil {
				return err
			}

			var log io.Writer
			if verbose {
				log = cmd.OutOrStdout()
			}
			stats, err := jar.Run(jar.Options{
				Input:            cfg.Input,
				Output:           cfg.Output,
				Classpath:        cfg.Classpath,
				Table:            table,
				RenameSynthetics: cfg.RenameSynthetics,
				Log:              log,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: remapped %d classes, copied %d entries, dropped %d signature entries\n",
				cfg.Output, stats.Remapped, stats.Copied, stats.Dropped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&cfg.Input, "input", "i", "", "input jar")
	cmd.Flags().StringVarP(&cfg.Output, "output", "o", "", "output jar")
	cmd.Flags().StringVarP(&cfg.Mappings, "mappings", "m", "", "tiny v1 mapping file")
	cmd.Flags().StringVar(&cfg.From, "from", "", "source namespace")
	cmd.Flags().StringVar(&cfg.To, "to", "", "target namespace")
	cmd.Flags().StringSliceVar(&cfg.Classpath, "classpath", nil, "extra jars for inheritance lookups")
	cmd.Flags().BoolVar(&cfg.RenameSynthetics, "rename-synthetics", false, "also rename synthetic lambda body methods")
	cmd.Flags().StringVar(&cfgPath, "config", "", "toml file supplying defaults for the flags above")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print each class rename")

	return cmd
}

// mergeConfig fills flag values the user did not set from the config
// file.
func mergeConfig(cmd *cobra.Command, cfg, file *Config) {
	if !cmd.Flags().Changed("input") && file.Input != "" {
		cfg.Input = file.Input
	}
	if !cmd.Flags().Changed("output") && file.Output != "" {
		cfg.Output = file.Output
	}
	if !cmd.Flags().Changed("mappings") && file.Mappings != "" {
		cfg.Mappings = file.Mappings
	}
	if !cmd.Flags().Changed("from") && file.From != "" {
		cfg.From = file.From
	}
	if !cmd.Flags().Changed("to") && file.To != "" {
		cfg.To = file.To
	}
	if !cmd.Flags().Changed("classpath") && len(file.Classpath) > 0 {
		cfg.Classpath = file.Classpath
	}
	if !cmd.Flags().Changed("rename-synthetics") {
		cfg.RenameSynthetics = file.RenameSynthetics
	}
}
