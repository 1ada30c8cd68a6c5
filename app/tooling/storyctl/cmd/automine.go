package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	enable   bool
	interval uint32
)

type autoMineRequest struct {
	Enable   bool   `json:"enable"`
	Interval uint32 `json:"interval"`
}

type autoMineResponse struct {
	Message string `json:"message"`
}

var autoMineCmd = &cobra.Command{
	Use:   "automine",
	Short: "Toggle the node's periodic mining loop.",
	Run:   autoMineRun,
}

func init() {
	rootCmd.AddCommand(autoMineCmd)
	autoMineCmd.Flags().BoolVar(&enable, "enable", true, "Enable or disable auto mining.")
	autoMineCmd.Flags().Uint32Var(&interval, "interval", 15, "Seconds between mining passes.")
}

func autoMineRun(cmd *cobra.Command, args []string) {
	cln, ctx, cancel := newClient()
	defer cancel()

	req := autoMineRequest{
		Enable:   enable,
		Interval: interval,
	}

	var resp autoMineResponse
	if err := cln.Send(ctx, http.MethodPost, nodeURL+"/auto_mine", req, &resp); err != nil {
		log.Fatal(err)
	}

	fmt.Println(resp.Message)
}
