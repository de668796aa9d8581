package api

import (
	"crypto/ed25519"
	"net/http"

	"github.com/gagliardetto/solana-go"

	"github.com/mosaiclabs/soltss/pkg/soltx"
)

// Single-key staking: the daemon builds, signs and broadcasts the stake
// transaction with one locally supplied seed. The aggregated variants go
// through the message builders and the signing rounds instead.

func (s *Server) handleStakeAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SecretSeed string `json:"secret_seed"`
		Seed       string `json:"seed"`
		Lamports   uint64 `json:"lamports"`
		Vote       string `json:"vote"`
		Net        string `json:"net"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	seed, err := parseSeed(req.SecretSeed)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid secret seed")
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

	priv := ed25519.NewKeyFromSeed(seed)
	staker := solana.PublicKeyFromBytes(priv.Public().(ed25519.PublicKey))

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

	sig, err := s.signAndSend(w, r, client, msg, priv)
	if err != nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"transaction_id": sig.String(),
		"stake_account":  stakeAccount.String(),
	})
}

func (s *Server) handleDeactivateStake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SecretSeed string `json:"secret_seed"`
		Seed       string `json:"seed"`
		Net        string `json:"net"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	seed, err := parseSeed(req.SecretSeed)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid secret seed")
		return
	}
	client, ok := s.chainFor(w, req.Net)
	if !ok {
		return
	}
	blockhash, err := client.LatestBlockhash(r.Context())
	if err != nil {
		failRPC(w, err)
		return
	}

	priv := ed25519.NewKeyFromSeed(seed)
	staker := solana.PublicKeyFromBytes(priv.Public().(ed25519.PublicKey))

	msg, stakeAccount, err := soltx.BuildStakeDeactivateMessage(soltx.StakeDeactivateParams{
		Staker:          staker,
		Seed:            req.Seed,
		RecentBlockhash: blockhash,
	})
	if err != nil {
		fail(w, err)
		return
	}

	sig, err := s.signAndSend(w, r, client, msg, priv)
	if err != nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"transaction_id": sig.String(),
		"stake_account":  stakeAccount.String(),
	})
}

func (s *Server) handleWithdrawStake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SecretSeed string `json:"secret_seed"`
		Seed       string `json:"seed"`
		Recipient  string `json:"recipient"`
		Lamports   uint64 `json:"lamports"`
		Net        string `json:"net"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	seed, err := parseSeed(req.SecretSeed)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid secret seed")
		return
	}
	recipient, err := parseSolanaKey(req.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recipient")
		return
	}
	client, ok := s.chainFor(w, req.Net)
	if !ok {
		return
	}
	blockhash, err := client.LatestBlockhash(r.Context())
	if err != nil {
		failRPC(w, err)
		return
	}

	priv := ed25519.NewKeyFromSeed(seed)
	staker := solana.PublicKeyFromBytes(priv.Public().(ed25519.PublicKey))

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

	sig, err := s.signAndSend(w, r, client, msg, priv)
	if err != nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"transaction_id": sig.String(),
		"stake_account":  stakeAccount.String(),
	})
}
