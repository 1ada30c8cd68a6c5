package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/nac-codes/blockbard/foundation/blockchain/state"
	"github.com/nac-codes/blockbard/foundation/client"
	"github.com/spf13/cobra"
)

// headRetries is how many times a submission is rebuilt against a fresh head
// after the node reports ours went stale.
const headRetries = 3

var (
	book    string
	chapter float64
	verse   float64
)

type submitRequest struct {
	Data     string `json:"data"`
	PrevHash string `json:"previous_hash"`
}

type submitResponse struct {
	Message    string `json:"message"`
	PositionID string `json:"position_id"`
	Queued     bool   `json:"queued"`
}

type staleHeadResponse struct {
	Error            string `json:"error"`
	ExpectedPrevHash string `json:"expected_previous_hash"`
	ChainLength      int    `json:"chain_length"`
}

var submitCmd = &cobra.Command{
	Use:   "submit [text]",
	Short: "Submit a story contribution for mining.",
	Args:  cobra.ExactArgs(1),
	Run:   submitRun,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVar(&book, "book", "", "Book of the story position.")
	submitCmd.Flags().Float64Var(&chapter, "chapter", 0, "Chapter of the story position.")
	submitCmd.Flags().Float64Var(&verse, "verse", 0, "Verse of the story position.")
}

func submitRun(cmd *cobra.Command, args []string) {
	cln, ctx, cancel := newClient()
	defer cancel()

	data := buildPayload(args[0])

	// Ask the node which head to build on.
	var status state.Status
	if err := cln.Send(ctx, http.MethodGet, nodeURL+"/status", nil, &status); err != nil {
		log.Fatal(err)
	}
	prevHash := status.LatestHash

	// The head can move between the status call and the submission. The node
	// answers a stale head with the current one, so rebuild and try again a
	// few times before giving up.
	for attempt := 1; ; attempt++ {
		req := submitRequest{
			Data:     data,
			PrevHash: prevHash,
		}

		var resp submitResponse
		err := cln.Send(ctx, http.MethodPost, nodeURL+"/add_transaction", req, &resp)
		if err == nil {
			fmt.Println("position:", resp.PositionID)
			fmt.Println("queued:  ", resp.Queued)
			return
		}

		if !client.IsConflict(err) || attempt > headRetries {
			log.Fatal(err)
		}

		var stale staleHeadResponse
		if jerr := json.Unmarshal(client.ConflictBody(err), &stale); jerr != nil || stale.ExpectedPrevHash == "" {

			// A conflict without a replacement head is a duplicate story
			// position. Retrying won't help.
			log.Fatal(err)
		}

		fmt.Printf("head moved, retrying against %s\n", stale.ExpectedPrevHash)
		prevHash = stale.ExpectedPrevHash
	}
}

// buildPayload wraps the text in the structured story position envelope when
// the position flags are set, and sends it bare otherwise.
func buildPayload(text string) string {
	if book == "" {
		return text
	}

	payload := struct {
		Text          string         `json:"text"`
		StoryPosition map[string]any `json:"storyPosition"`
	}{
		Text: text,
		StoryPosition: map[string]any{
			"book":    book,
			"chapter": chapter,
			"verse":   verse,
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Fatal(err)
	}

	return string(data)
}
