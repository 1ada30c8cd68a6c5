package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/nac-codes/blockbard/foundation/blockchain/chain"
	"github.com/spf13/cobra"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print the story so far, block by block.",
	Run:   chainRun,
}

func init() {
	rootCmd.AddCommand(chainCmd)
}

func chainRun(cmd *cobra.Command, args []string) {
	cln, ctx, cancel := newClient()
	defer cancel()

	var blocks []chain.Block
	if err := cln.Send(ctx, http.MethodGet, nodeURL+"/get_chain", nil, &blocks); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("chain length: %d\n\n", len(blocks))

	for _, b := range blocks {
		fmt.Printf("block %d  hash %s\n", b.Index, b.Hash)
		fmt.Printf("  mined    %s  difficulty %d  nonce %d\n", b.TimeStamp.Format("2006-01-02 15:04:05"), b.Difficulty, b.Nonce)
		if b.StoryPosition.PositionID != "" {
			fmt.Printf("  position %s\n", b.StoryPosition.PositionID)
		}
		fmt.Printf("  %s\n\n", b.Data)
	}
}
