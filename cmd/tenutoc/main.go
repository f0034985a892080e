// Command tenutoc compiles a Tenuto score into a Standard MIDI File.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alec-borman/tenutoc/internal/compiler"
)

func main() {
	var (
		inputPath  string
		outputPath string
		strict     bool
		jsonOut    bool
	)

	root := &cobra.Command{
		Use:   "tenutoc",
		Short: "Compile a Tenuto score to a Standard MIDI File",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputPath == "" {
				outputPath = defaultOutputPath(inputPath)
			}
			return run(inputPath, outputPath, strict, jsonOut)
		},
	}

	root.Flags().StringVar(&inputPath, "input", "", "path to a .ten source file (required)")
	root.Flags().StringVar(&outputPath, "output", "", "path to write the compiled .mid file (defaults to the input basename)")
	root.Flags().BoolVar(&strict, "strict", false, "treat recoverable lexer and parser diagnostics as fatal")
	root.Flags().BoolVar(&jsonOut, "json", false, "print the compiled timeline as JSON instead of writing MIDI")
	root.MarkFlagRequired("input")

	if err := root.Execute(); err != nil {
		log.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func defaultOutputPath(input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return base + ".mid"
}

func run(inputPath, outputPath string, strict, jsonOut bool) error {
	source, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("F9001: cannot read input %q: %w", inputPath, err)
	}

	res, err := compiler.Compile(string(source), compiler.Options{Strict: strict})
	for _, d := range res.Diagnostics {
		log.Printf("%s\n", d.String())
	}
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res.Timeline); err != nil {
			return fmt.Errorf("F9001: cannot encode timeline as JSON: %w", err)
		}
		return nil
	}

	data, err := compiler.Export(res.Timeline)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("F9001: cannot write output %q: %w", outputPath, err)
	}

	fmt.Printf("wrote %s\n", outputPath)
	return nil
}
