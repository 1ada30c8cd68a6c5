// Package cmd contains the story chain command line client.
package cmd

import (
	"context"
	"os"
	"time"

	"github.com/nac-codes/blockbard/foundation/client"
	"github.com/spf13/cobra"
)

var nodeURL string

func init() {
	rootCmd.PersistentFlags().StringVarP(&nodeURL, "node", "n", "http://localhost:8080", "Url of the node.")
}

var rootCmd = &cobra.Command{
	Use:   "storyctl",
	Short: "Client for reading and contributing to the story chain.",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// newClient constructs the retrying http client and a bounded context for
// one command invocation.
func newClient() (*client.Client, context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	return client.New(nil), ctx, cancel
}
