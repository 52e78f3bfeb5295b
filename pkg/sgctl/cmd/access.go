package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kubestream/streamgate/pkg/access"
	"github.com/kubestream/streamgate/pkg/sgctl/client"
)

// NewAccessCommand requests an access credential from a running server.
func NewAccessCommand() *cobra.Command {
	var (
		cluster   string
		namespace string
		pod       string
		scope     string
	)

	cmd := &cobra.Command{
		Use:   "access",
		Short: "Request access to a pod from a streamgate server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if rt.serverOverride == "" {
				return errors.New("server is required: pass --server or set SGCTL_SERVER")
			}
			token, err := rt.resolveToken()
			if err != nil {
				return err
			}
			cl, err := client.New(rt.serverOverride, token)
			if err != nil {
				return err
			}

			resp, err := cl.Access(cmd.Context(), access.AccessRequest{
				Cluster:   cluster,
				Namespace: namespace,
				Pod:       pod,
				Scope:     scope,
			})
			if err != nil {
				return err
			}

			w := rt.Writer()
			if rt.outputFormat == "json" {
				encoder := json.NewEncoder(w)
				encoder.SetIndent("", "  ")
				return encoder.Encode(resp)
			}
			fmt.Fprintf(w, "allowed\nkey: %s\nexpires: %s\n", resp.Credential.Key, resp.Credential.ExpiresAt)
			return nil
		},
	}

	cmd.Flags().StringVar(&cluster, "cluster", "", "Cluster name")
	cmd.Flags().StringVar(&namespace, "namespace", "", "Pod namespace")
	cmd.Flags().StringVar(&pod, "pod", "", "Pod name")
	cmd.Flags().StringVar(&scope, "scope", "", "Access scope (view, restart, ...)")
	for _, flag := range []string{"cluster", "namespace", "pod", "scope"} {
		_ = cmd.MarkFlagRequired(flag)
	}
	return cmd
}

// NewClustersCommand lists the clusters a server is configured for.
func NewClustersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clusters",
		Short: "List the clusters a streamgate server serves",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if rt.serverOverride == "" {
				return errors.New("server is required: pass --server or set SGCTL_SERVER")
			}
			token, _ := rt.resolveToken()
			cl, err := client.New(rt.serverOverride, token)
			if err != nil {
				return err
			}

			clusters, err := cl.Clusters(cmd.Context())
			if err != nil {
				return err
			}

			w := rt.Writer()
			if rt.outputFormat == "json" {
				encoder := json.NewEncoder(w)
				encoder.SetIndent("", "  ")
				return encoder.Encode(clusters)
			}
			for _, c := range clusters {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.Title, c.Home)
			}
			return nil
		},
	}
}
