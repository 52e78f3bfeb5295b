package main

import (
	"os"

	sgctlcmd "github.com/kubestream/streamgate/pkg/sgctl/cmd"
)

func main() {
	root := sgctlcmd.NewRootCommand(sgctlcmd.DefaultConfig())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
