package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
)

type Config struct {
	OutputWriter io.Writer
}

type runtimeState struct {
	serverOverride string
	tokenOverride  string
	outputFormat   string
	writer         io.Writer
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{OutputWriter: os.Stdout}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:          "sgctl",
		Short:        "StreamGate CLI",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.serverOverride == "" {
				rt.serverOverride = os.Getenv("SGCTL_SERVER")
			}
			if rt.tokenOverride == "" {
				rt.tokenOverride = os.Getenv("SGCTL_TOKEN")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.serverOverride, "server", "", "Server URL (or SGCTL_SERVER)")
	root.PersistentFlags().StringVar(&rt.tokenOverride, "token", "", "Bearer token override (or SGCTL_TOKEN)")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: text, json")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewValidateCommand(),
		NewCheckCommand(),
		NewAccessCommand(),
		NewClustersCommand(),
		NewTokenCommand(),
		NewVersionCommand(),
	)
	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("command runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer == nil {
		return os.Stdout
	}
	return rt.writer
}

// resolveToken prefers the flag/env override over the keyring-stored token.
func (rt *runtimeState) resolveToken() (string, error) {
	if rt.tokenOverride != "" {
		return rt.tokenOverride, nil
	}
	token, err := keyring.Get(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", errors.New("no token available: pass --token, set SGCTL_TOKEN, or run sgctl token set")
	}
	if err != nil {
		return "", err
	}
	return token, nil
}
