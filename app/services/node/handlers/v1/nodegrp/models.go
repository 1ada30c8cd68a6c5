package nodegrp

type addBlockResponse struct {
	Message string `json:"message"`
	Index   uint64 `json:"index"`
}

type addContribution struct {
	Data     string `json:"data" validate:"required"`
	PrevHash string `json:"previous_hash" validate:"required"`
}

type addContributionResponse struct {
	Message    string `json:"message"`
	PositionID string `json:"position_id"`
	Queued     bool   `json:"queued"`
}

type staleHeadResponse struct {
	Error            string `json:"error"`
	ExpectedPrevHash string `json:"expected_previous_hash"`
	ChainLength      int    `json:"chain_length"`
}

type mineRequest struct {
	Data string `json:"data" validate:"required"`
}

type mineResponse struct {
	Message    string `json:"message"`
	PositionID string `json:"position_id"`
	Queued     bool   `json:"queued"`
}

type discoverRequest struct {
	Address string `json:"address" validate:"required"`
}

type discoverResponse struct {
	Peers       []string `json:"peers"`
	ChainLength int      `json:"chain_length"`
}

type updatePeersRequest struct {
	Peers []string `json:"peers" validate:"required"`
}

type updatePeersResponse struct {
	Message string `json:"message"`
	Added   int    `json:"added"`
}

type autoMineRequest struct {
	Enable   bool   `json:"enable"`
	Interval uint32 `json:"interval"`
}

type autoMineResponse struct {
	Message string `json:"message"`
}
