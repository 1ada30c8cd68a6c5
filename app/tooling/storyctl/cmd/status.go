package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/nac-codes/blockbard/foundation/blockchain/state"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the node status.",
	Run:   statusRun,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusRun(cmd *cobra.Command, args []string) {
	cln, ctx, cancel := newClient()
	defer cancel()

	var status state.Status
	if err := cln.Send(ctx, http.MethodGet, nodeURL+"/status", nil, &status); err != nil {
		log.Fatal(err)
	}

	fmt.Println("address:     ", status.Address)
	fmt.Println("chain length:", status.ChainLength)
	fmt.Println("latest hash: ", status.LatestHash)
	fmt.Println("difficulty:  ", status.Difficulty)
	fmt.Println("mining:      ", status.Mining)
	fmt.Println("auto mining: ", status.AutoMining)
	fmt.Println("pool:        ", status.PoolCount)
	fmt.Println("pending:     ", status.PendingCount)
	fmt.Println("peers:       ", status.KnownPeers)
}
