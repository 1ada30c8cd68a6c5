package trackgrp

type registerRequest struct {
	Address string `json:"address" validate:"required"`
}

type registerResponse struct {
	Message string   `json:"message"`
	Peers   []string `json:"peers"`
}

type peersResponse struct {
	Peers []string `json:"peers"`
	Count int      `json:"count"`
}

type unregisterResponse struct {
	Message string `json:"message"`
}
