package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kubestream/streamgate/pkg/config"
	"github.com/kubestream/streamgate/pkg/permission"
)

// NewValidateCommand compiles every cluster in a configuration file and
// reports the result per cluster instead of stopping at the first error.
func NewValidateCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a streamgate configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(file)
			if err != nil {
				return err
			}

			compiler := permission.NewCompiler(zap.NewNop().Sugar())
			names := make([]string, 0, len(cfg.Clusters))
			for name := range cfg.Clusters {
				names = append(names, name)
			}
			sort.Strings(names)

			w := rt.Writer()
			failed := 0
			for _, name := range names {
				cc := cfg.Clusters[name]
				if cc.Home == "" || cc.CredentialSecret == "" {
					fmt.Fprintf(w, "cluster %s: skipped (missing home or credentialSecret)\n", name)
					continue
				}
				set, err := compiler.CompileCluster(name, cc)
				if err != nil {
					failed++
					fmt.Fprintf(w, "cluster %s: INVALID: %v\n", name, err)
					continue
				}
				fmt.Fprintf(w, "cluster %s: ok (%d namespace restrictions, %d view blocks, %d restart blocks)\n",
					name, len(set.NamespacePermissions), len(set.ViewPermissions), len(set.RestartPermissions))
			}
			if failed > 0 {
				return fmt.Errorf("%d cluster(s) failed validation", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the configuration file (default ./config.yaml)")
	return cmd
}
