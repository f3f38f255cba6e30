package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pomstack/pkg/pomtree"
	"github.com/matzehuels/pomstack/pkg/render"
	"github.com/matzehuels/pomstack/pkg/resolve"
)

// newGraphCmd creates the graph command: export the effective dependency
// graph as DOT, SVG or JSON.
func newGraphCmd(configPath *string) *cobra.Command {
	var (
		settingsPath string
		profiles     []string
		format       string
		output       string
		detailed     bool
		module       string
	)

	cmd := &cobra.Command{
		Use:   "graph <pom.xml>",
		Short: "Export the effective dependency graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			resolver, cleanup, err := buildResolver(ctx, *configPath, settingsPath, profiles)
			if err != nil {
				return err
			}
			defer cleanup()

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			doc, err := pomtree.Parse(data)
			if err != nil {
				return err
			}
			requested, err := resolve.RequestedFromDocument(doc)
			if err != nil {
				return err
			}

			// Aggregators graph one module at a time; ask which when the
			// flag is absent.
			if len(requested.Modules) > 0 && module == "" && output == "" {
				module, err = pickModule(requested.Modules)
				if err != nil {
					return err
				}
			}
			if module != "" && module != rootModuleItem {
				loader := resolve.DirLoader{Root: filepath.Dir(path)}
				requested, err = loader.LoadModule(ctx, module)
				if err != nil {
					return err
				}
			}

			spin := newSpinner(ctx, "Resolving "+requested.GAV.String())
			spin.Start()
			resolved, resolveErr := resolver.ResolveProject(ctx, requested)
			spin.Stop()
			if resolved == nil {
				return resolveErr
			}
			if agg, ok := resolveErr.(*resolve.Aggregate); ok {
				// Render what did resolve; the failures are advisory here.
				for _, f := range agg.Failures() {
					printWarning("%s", f.Error())
				}
			}

			g, err := render.FromProject(resolved)
			if err != nil {
				return err
			}

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				out = f
			}

			switch format {
			case "dot":
				fmt.Fprint(out, render.ToDOT(g, render.Options{Detailed: detailed}))
			case "svg":
				svg, err := render.ToSVG(ctx, render.ToDOT(g, render.Options{Detailed: detailed}))
				if err != nil {
					return err
				}
				if _, err := out.Write(svg); err != nil {
					return err
				}
			case "json":
				if err := render.WriteGraph(g, out); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (want dot, svg or json)", format)
			}

			if output != "" {
				printSuccess("Exported %d nodes", g.Len())
				printFile(output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&settingsPath, "settings", "", "path to an external settings document")
	cmd.Flags().StringArrayVarP(&profiles, "profile", "p", nil, "activate a profile (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot, svg or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include versions and scopes in node labels")
	cmd.Flags().StringVarP(&module, "module", "m", "", "graph a declared submodule instead of the aggregator")
	return cmd
}
