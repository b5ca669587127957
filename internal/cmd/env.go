package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stevedore/internal/runtime"
)

// envCmd represents the env command.
var envCmd = &cobra.Command{
	Use:   "env <service> <base> [override...]",
	Short: "Print a service's resolved environment",
	Long: `Compose the given layers and print the named service's effective
environment: env_file references resolved in order (later files win),
with inline environment entries taking final precedence.

SOPS-encrypted env files (*.sops.*) are decrypted via the sops binary.`,
	Args: cobra.MinimumNArgs(2),
	Run:  runEnv,
}

func init() {
	addComposeFlags(envCmd)
	rootCmd.AddCommand(envCmd)
}

func runEnv(cmd *cobra.Command, args []string) {
	service, layers := args[0], args[1:]

	topo, err := composeLayers(layers)
	if err != nil {
		fail(err)
	}

	svc := topo.Service(service)
	if svc == nil {
		fail(fmt.Errorf("service %s not found in topology", service))
	}

	// env_file paths are relative to the base document.
	workDir := filepath.Dir(layers[0])
	env, err := runtime.ResolveEnvironment(context.Background(), workDir, svc)
	if err != nil {
		fail(err)
	}

	for _, kv := range env {
		fmt.Fprintln(os.Stdout, kv)
	}
}
