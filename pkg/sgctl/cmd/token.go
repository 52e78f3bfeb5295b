package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
)

const (
	keyringService = "sgctl"
	keyringUser    = "api-token"
)

// NewTokenCommand manages the API token in the OS keyring.
func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored API token",
	}
	cmd.AddCommand(newTokenSetCommand(), newTokenShowCommand(), newTokenClearCommand())
	return cmd
}

func newTokenSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set TOKEN",
		Short: "Store an API token in the OS keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := keyring.Set(keyringService, keyringUser, args[0]); err != nil {
				return fmt.Errorf("storing token: %w", err)
			}
			fmt.Fprintln(rt.Writer(), "token stored")
			return nil
		},
	}
}

func newTokenShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored API token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			token, err := keyring.Get(keyringService, keyringUser)
			if errors.Is(err, keyring.ErrNotFound) {
				return errors.New("no token stored")
			}
			if err != nil {
				return fmt.Errorf("reading token: %w", err)
			}
			fmt.Fprintln(rt.Writer(), token)
			return nil
		},
	}
}

func newTokenClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			err = keyring.Delete(keyringService, keyringUser)
			if errors.Is(err, keyring.ErrNotFound) {
				fmt.Fprintln(rt.Writer(), "no token stored")
				return nil
			}
			if err != nil {
				return fmt.Errorf("removing token: %w", err)
			}
			fmt.Fprintln(rt.Writer(), "token removed")
			return nil
		},
	}
}
