package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kubestream/streamgate/pkg/config"
	"github.com/kubestream/streamgate/pkg/permission"
)

type checkResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// NewCheckCommand evaluates one access tuple offline against a configuration
// file, with the same semantics the server applies at runtime.
func NewCheckCommand() *cobra.Command {
	var (
		file      string
		cluster   string
		namespace string
		pod       string
		scopeRaw  string
		userRef   string
		groups    []string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate an access tuple against a configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(file)
			if err != nil {
				return err
			}

			result := evaluateTuple(cfg, cluster, namespace, pod, scopeRaw, userRef, groups)

			w := rt.Writer()
			if rt.outputFormat == "json" {
				encoder := json.NewEncoder(w)
				encoder.SetIndent("", "  ")
				return encoder.Encode(result)
			}
			if result.Allowed {
				fmt.Fprintln(w, "allowed")
				return nil
			}
			fmt.Fprintf(w, "denied (%s)\n", result.Reason)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the configuration file (default ./config.yaml)")
	cmd.Flags().StringVar(&cluster, "cluster", "", "Cluster name")
	cmd.Flags().StringVar(&namespace, "namespace", "", "Pod namespace")
	cmd.Flags().StringVar(&pod, "pod", "", "Pod name")
	cmd.Flags().StringVar(&scopeRaw, "scope", "", "Access scope (view, restart, ...)")
	cmd.Flags().StringVar(&userRef, "user", "", "User ref (user:namespace/id)")
	cmd.Flags().StringArrayVar(&groups, "group", nil, "Group ref the user belongs to (repeatable)")
	for _, flag := range []string{"cluster", "namespace", "pod", "scope", "user"} {
		_ = cmd.MarkFlagRequired(flag)
	}
	return cmd
}

func evaluateTuple(cfg config.Config, cluster, namespace, pod, scopeRaw, userRef string, groups []string) checkResult {
	log := zap.NewNop().Sugar()

	scope, err := permission.ParseScope(scopeRaw)
	if err != nil {
		return checkResult{Reason: fmt.Sprintf("unknown scope %q", scopeRaw)}
	}

	cc, ok := cfg.Clusters[cluster]
	if !ok {
		return checkResult{Reason: fmt.Sprintf("unknown cluster %q", cluster)}
	}
	if cc.Home == "" || cc.CredentialSecret == "" {
		return checkResult{Reason: "cluster has incomplete connection settings and is not served"}
	}

	set, err := permission.NewCompiler(log).CompileCluster(cluster, cc)
	if err != nil {
		return checkResult{Reason: fmt.Sprintf("configuration does not compile: %v", err)}
	}

	evaluator := permission.NewEvaluator(log, permission.ParseAllowSemantics(cfg.Compat.AllowRuleSemantics, log))
	if !evaluator.AllowedToNamespace(set, namespace, userRef, groups) {
		return checkResult{Reason: "namespace gate"}
	}
	blocks, err := set.PermissionSet(scope)
	if err != nil {
		return checkResult{Reason: fmt.Sprintf("scope %q has no permission set", scope)}
	}
	if !evaluator.AllowedToPod(blocks, namespace, pod, userRef, groups) {
		return checkResult{Reason: "pod rules"}
	}
	return checkResult{Allowed: true}
}
