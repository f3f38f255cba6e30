package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pomstack/pkg/pomtree"
	"github.com/matzehuels/pomstack/pkg/resolve"
)

// newResolveCmd creates the resolve command: reconcile a descriptor file
// with its effective model and report what resolved.
func newResolveCmd(configPath *string) *cobra.Command {
	var (
		settingsPath string
		profiles     []string
		tree         bool
		write        bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <pom.xml>",
		Short: "Resolve a descriptor into its effective dependency model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			path := args[0]

			resolver, cleanup, err := buildResolver(ctx, *configPath, settingsPath, profiles)
			if err != nil {
				return err
			}
			defer cleanup()

			if tree {
				return resolveTree(ctx, resolver, path)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			doc, err := pomtree.Parse(data)
			if err != nil {
				return err
			}

			track := newProgress(logger)
			spin := newSpinner(ctx, "Resolving "+path)
			spin.Start()
			res, resolveErr := resolve.NewSynchronizer(resolver).Sync(ctx, doc)
			spin.Stop()

			if res == nil {
				return resolveErr
			}
			track.done(fmt.Sprintf("Resolved %s", res.Requested.GAV))

			printResolved(res.Resolved, resolveErr)

			if write {
				if err := os.WriteFile(path, doc.Print(), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				printFile(path)
			}
			if resolveErr != nil {
				return resolveErr
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&settingsPath, "settings", "", "path to an external settings document")
	cmd.Flags().StringArrayVarP(&profiles, "profile", "p", nil, "activate a profile (repeatable)")
	cmd.Flags().BoolVar(&tree, "tree", false, "resolve the full multi-module tree")
	cmd.Flags().BoolVar(&write, "write", false, "write warning markers back to the descriptor")
	return cmd
}

func printResolved(p *resolve.ResolvedProject, err error) {
	fmt.Println(StyleTitle.Render(p.Requested.GAV.String()))

	deps := append([]resolve.ResolvedDependency{}, p.Dependencies...)
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Depth != deps[j].Depth {
			return deps[i].Depth < deps[j].Depth
		}
		return deps[i].GAV.String() < deps[j].GAV.String()
	})
	for _, d := range deps {
		indent := strings.Repeat("  ", d.Depth)
		fmt.Printf("%s%s %s %s\n", indent, StyleDim.Render(iconArrow), StyleValue.Render(d.GAV.String()), StyleDim.Render(d.Scope))
	}

	failures := 0
	if agg, ok := err.(*resolve.Aggregate); ok {
		failures = len(agg.Failures())
		for _, f := range agg.Failures() {
			printWarning("%s", f.Error())
		}
	}
	printStats(len(p.Dependencies), len(p.Repositories), failures)
}

func resolveTree(ctx context.Context, resolver *resolve.Resolver, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := pomtree.Parse(data)
	if err != nil {
		return err
	}
	root, err := resolve.RequestedFromDocument(doc)
	if err != nil {
		return err
	}

	loader := resolve.DirLoader{Root: filepath.Dir(path)}
	tree, treeErr := resolver.ResolveTree(ctx, root, loader)
	if tree == nil {
		return treeErr
	}

	printTree(tree, "")
	if agg, ok := treeErr.(*resolve.Aggregate); ok {
		for _, f := range agg.Failures() {
			printWarning("%s", f.Error())
		}
		return treeErr
	}
	return treeErr
}

func printTree(t *resolve.ModuleTree, prefix string) {
	if t.Project != nil {
		printInfo("%s%s", prefix, t.Project.Requested.GAV)
		printDetail("%s%d dependencies", prefix, len(t.Project.Dependencies))
	}
	modules := make([]string, 0, len(t.Modules))
	for name := range t.Modules {
		modules = append(modules, name)
	}
	sort.Strings(modules)
	for _, name := range modules {
		printTree(t.Modules[name], prefix+"  ")
	}
}
