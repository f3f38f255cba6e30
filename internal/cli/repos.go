package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pomstack/pkg/pomtree"
	"github.com/matzehuels/pomstack/pkg/resolve"
)

// newReposCmd creates the repos command: compute a descriptor's effective
// repository list and optionally annotate the file with it.
func newReposCmd(configPath *string) *cobra.Command {
	var (
		settingsPath string
		profiles     []string
		write        bool
	)

	cmd := &cobra.Command{
		Use:   "repos <pom.xml>",
		Short: "Show the effective repository list for a descriptor",
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

			repos := resolver.Repositories(requested)
			for _, repo := range repos {
				fmt.Println(StyleLink.Render(repo.URL))
			}

			if write {
				doc.SetRepositoriesMarker(resolve.MarkerText(repos))
				if err := os.WriteFile(path, doc.Print(), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				printSuccess("Annotated %s with %d repositories", path, len(repos))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&settingsPath, "settings", "", "path to an external settings document")
	cmd.Flags().StringArrayVarP(&profiles, "profile", "p", nil, "activate a profile (repeatable)")
	cmd.Flags().BoolVar(&write, "write", false, "write the repository marker into the descriptor")
	return cmd
}
