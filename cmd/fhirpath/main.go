// Command fhirpath evaluates FHIRPath expressions against FHIR resources.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/octofhir/fhirpath-go/pkg/fhirpath"
	"github.com/octofhir/fhirpath-go/pkg/fhirpath/types"
)

var version = "dev"

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func execute() error {
	rootCmd := newRootCmd()
	return rootCmd.Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fhirpath",
		Short: "FHIRPath expression engine",
		Long: `fhirpath evaluates FHIRPath expressions against FHIR resources.

It provides:
  - One-shot evaluation of an expression against a resource file
  - An interactive REPL session for exploring a resource
  - Compiled-expression caching for repeated evaluation`,
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newEvalCmd())
	rootCmd.AddCommand(newReplCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("fhirpath version %s\n", version)
		},
	}
}

func newEvalCmd() *cobra.Command {
	var resourceFile string
	var timeout time.Duration
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate a FHIRPath expression against a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			resource, err := readResource(resourceFile)
			if err != nil {
				return err
			}

			expr, err := fhirpath.Compile(args[0])
			if err != nil {
				return err
			}

			result, err := expr.EvaluateWithOptions(resource,
				fhirpath.WithTimeout(timeout))
			if err != nil {
				return err
			}

			return printResult(result, asJSON)
		},
	}

	cmd.Flags().StringVarP(&resourceFile, "resource", "r", "", "path to the resource JSON file (default: stdin)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "evaluation timeout")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as a JSON array")

	return cmd
}

func newReplCmd() *cobra.Command {
	var resourceFile string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive FHIRPath session",
		Long: `repl starts an interactive session against a loaded resource.

Commands inside the session:
  :load <file>   load a different resource
  :quit          leave the session

Any other input line is evaluated as a FHIRPath expression.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			var resource []byte
			if resourceFile != "" {
				data, err := os.ReadFile(resourceFile)
				if err != nil {
					return err
				}
				resource = data
			} else {
				resource = []byte(`{}`)
			}
			return runRepl(resource)
		},
	}

	cmd.Flags().StringVarP(&resourceFile, "resource", "r", "", "path to the resource JSON file")

	return cmd
}

func runRepl(resource []byte) error {
	cache := fhirpath.NewExpressionCache(256)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Println("fhirpath repl (:quit to exit)")
	for {
		fmt.Print("fhirpath> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == ":quit" || line == ":q":
			return nil
		case strings.HasPrefix(line, ":load "):
			path := strings.TrimSpace(strings.TrimPrefix(line, ":load "))
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				continue
			}
			resource = data
			fmt.Println("loaded", path)
			continue
		}

		expr, err := cache.Get(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		result, err := expr.Evaluate(resource)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		if err := printResult(result, false); err != nil {
			return err
		}
	}
}

func readResource(path string) ([]byte, error) {
	if path == "" {
		data, err := os.ReadFile("/dev/stdin")
		if err != nil {
			return nil, fmt.Errorf("reading resource from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading resource: %w", err)
	}
	return data, nil
}

func printResult(result fhirpath.Collection, asJSON bool) error {
	if asJSON {
		items := make([]interface{}, len(result))
		for i, v := range result {
			items[i] = renderValue(v)
		}
		out, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if result.Empty() {
		fmt.Println("{ }")
		return nil
	}
	for _, v := range result {
		fmt.Println(v.String())
	}
	return nil
}

func renderValue(v fhirpath.Value) interface{} {
	switch t := v.(type) {
	case types.Boolean:
		return t.Bool()
	case types.Integer:
		return t.Value()
	case *types.ObjectValue:
		var obj interface{}
		if err := json.Unmarshal(t.Data(), &obj); err == nil {
			return obj
		}
		return t.String()
	default:
		return v.String()
	}
}
