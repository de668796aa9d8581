package api

import (
	"net/http"

	"github.com/gagliardetto/solana-go"

	"github.com/mosaiclabs/soltss/pkg/soltx"
)

// The message builders compile unsigned transactions with the (usually
// aggregated) key as sole fee payer. Clients feed the returned message into
// the signing rounds and finally into aggregate_signatures.

// recentBlockhash fetches a blockhash for the requested network, writing the
// error response on failure.
func (s *Server) recentBlockhash(w http.ResponseWriter, r *http.Request, network string) (solana.Hash, bool) {
	client, ok := s.chainFor(w, network)
	if !ok {
		return solana.Hash{}, false
	}
	hash, err := client.LatestBlockhash(r.Context())
	if err != nil {
		failRPC(w, err)
		return solana.Hash{}, false
	}
	return hash, true
}

func (s *Server) handleBuildTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From     string `json:"from"`
		To       string `json:"to"`
		Lamports uint64 `json:"lamports"`
		Memo     string `json:"memo,omitempty"`
		Net      string `json:"net"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	from, err := parseSolanaKey(req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sender")
		return
	}
	to, err := parseSolanaKey(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recipient")
		return
	}
	blockhash, ok := s.recentBlockhash(w, r, req.Net)
	if !ok {
		return
	}

	msg, err := soltx.BuildTransferMessage(soltx.TransferParams{
		From:            from,
		To:              to,
		Lamports:        req.Lamports,
		Memo:            req.Memo,
		RecentBlockhash: blockhash,
	})
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": b58(msg)})
}

func (s *Server) handleBuildSPLTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sender          string `json:"sender"`
		Recipient       string `json:"recipient"`
		Mint            string `json:"mint"`
		Amount          uint64 `json:"amount"`
		CreateRecipient bool   `json:"create_recipient"`
		Net             string `json:"net"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sender, err := parseSolanaKey(req.Sender)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sender")
		return
	}
	recipient, err := parseSolanaKey(req.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recipient")
		return
	}
	mint, err := parseSolanaKey(req.Mint)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid mint")
		return
	}
	blockhash, ok := s.recentBlockhash(w, r, req.Net)
	if !ok {
		return
	}

	msg, err := soltx.BuildSPLTransferMessage(soltx.SPLTransferParams{
		Sender:          sender,
		Recipient:       recipient,
		Mint:            mint,
		Amount:          req.Amount,
		CreateRecipient: req.CreateRecipient,
		RecentBlockhash: blockhash,
	})
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": b58(msg)})
}

func (s *Server) handleBuildStakeCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Staker   string `json:"staker"`
		Seed     string `json:"seed"`
		Lamports uint64 `json:"lamports"`
		Vote     string `json:"vote"`
		Net      string `json:"net"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	staker, err := parseSolanaKey(req.Staker)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid staker")
		return
	}
	vote, err := parseSolanaKey(req.Vote)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid vote account")
		return
	}
	client, ok := s.chainFor(w, req.Net)
	if !ok {
		return
	}

	// A stake account funded below the rent-exempt minimum would be garbage
	// collected before it could delegate.
	minimum, err := client.MinimumRentExemption(r.Context(), soltx.StakeStateSize)
	if err != nil {
		failRPC(w, err)
		return
	}
	if req.Lamports < minimum {
		writeError(w, http.StatusBadRequest, "lamports below rent-exempt minimum for a stake account")
		return
	}
	blockhash, err := client.LatestBlockhash(r.Context())
	if err != nil {
		failRPC(w, err)
		return
	}

	msg, stakeAccount, err := soltx.BuildStakeCreateMessage(soltx.StakeCreateParams{
		Staker:          staker,
		Seed:            req.Seed,
		Lamports:        req.Lamports,
		Vote:            vote,
		RecentBlockhash: blockhash,
	})
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":       b58(msg),
		"stake_account": stakeAccount.String(),
	})
}

func (s *Server) handleBuildStakeDeactivate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Staker string `json:"staker"`
		Seed   string `json:"seed"`
		Net    string `json:"net"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	staker, err := parseSolanaKey(req.Staker)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid staker")
		return
	}
	blockhash, ok := s.recentBlockhash(w, r, req.Net)
	if !ok {
		return
	}

	msg, stakeAccount, err := soltx.BuildStakeDeactivateMessage(soltx.StakeDeactivateParams{
		Staker:          staker,
		Seed:            req.Seed,
		RecentBlockhash: blockhash,
	})
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":       b58(msg),
		"stake_account": stakeAccount.String(),
	})
}

func (s *Server) handleBuildStakeWithdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Staker    string `json:"staker"`
		Seed      string `json:"seed"`
		Recipient string `json:"recipient"`
		Lamports  uint64 `json:"lamports"`
		Net       string `json:"net"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	staker, err := parseSolanaKey(req.Staker)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid staker")
		return
	}
	recipient, err := parseSolanaKey(req.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recipient")
		return
	}
	blockhash, ok := s.recentBlockhash(w, r, req.Net)
	if !ok {
		return
	}

	msg, stakeAccount, err := soltx.BuildStakeWithdrawMessage(soltx.StakeWithdrawParams{
		Staker:          staker,
		Seed:            req.Seed,
		Recipient:       recipient,
		Lamports:        req.Lamports,
		RecentBlockhash: blockhash,
	})
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":       b58(msg),
		"stake_account": stakeAccount.String(),
	})
}
