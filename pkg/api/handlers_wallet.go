package api

import (
	"crypto/ed25519"
	"crypto/rand"
	"net/http"

	"github.com/gagliardetto/solana-go"

	"github.com/mosaiclabs/soltss/pkg/curve"
	"github.com/mosaiclabs/soltss/pkg/soltx"
	"github.com/mosaiclabs/soltss/pkg/types"
)

// chainFor validates the requested network and dials its RPC endpoint.
func (s *Server) chainFor(w http.ResponseWriter, network string) (ChainClient, bool) {
	if !types.IsNetworkSupported(network) {
		writeError(w, http.StatusBadRequest, "unsupported network: "+network)
		return nil, false
	}
	client, err := s.dial(types.Network(network))
	if err != nil {
		failRPC(w, err)
		return nil, false
	}
	return client, true
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "key generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"public_key":  b58(pub),
		"secret_seed": b58(priv.Seed()),
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
		Net     string `json:"net"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	account, err := parseSolanaKey(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	client, ok := s.chainFor(w, req.Net)
	if !ok {
		return
	}
	balance, err := client.Balance(r.Context(), account)
	if err != nil {
		failRPC(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}

func (s *Server) handleAirdrop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
		Amount  uint64 `json:"amount"`
		Net     string `json:"net"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	account, err := parseSolanaKey(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	if req.Amount == 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	client, ok := s.chainFor(w, req.Net)
	if !ok {
		return
	}
	sig, err := client.RequestAirdrop(r.Context(), account, req.Amount)
	if err != nil {
		failRPC(w, err)
		return
	}
	if err := client.ConfirmTransaction(r.Context(), sig); err != nil {
		failRPC(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"transaction_id": sig.String()})
}

func (s *Server) handleRecentBlockhash(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Net string `json:"net"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	client, ok := s.chainFor(w, req.Net)
	if !ok {
		return
	}
	hash, err := client.LatestBlockhash(r.Context())
	if err != nil {
		failRPC(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"block_hash": hash.String()})
}

func (s *Server) handleSendSingle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SecretSeed string `json:"secret_seed"`
		To         string `json:"to"`
		Lamports   uint64 `json:"lamports"`
		Memo       string `json:"memo,omitempty"`
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
	to, err := parseSolanaKey(req.To)
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
	payer := solana.PublicKeyFromBytes(priv.Public().(ed25519.PublicKey))

	msg, err := soltx.BuildTransferMessage(soltx.TransferParams{
		From:            payer,
		To:              to,
		Lamports:        req.Lamports,
		Memo:            req.Memo,
		RecentBlockhash: blockhash,
	})
	if err != nil {
		fail(w, err)
		return
	}

	sig, err := s.signAndSend(w, r, client, msg, priv)
	if err != nil {
		return // response already written
	}
	writeJSON(w, http.StatusOK, map[string]string{"transaction_id": sig.String()})
}

func (s *Server) handleSPLTokenBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TokenAccount string `json:"token_account"`
		Net          string `json:"net"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	account, err := parseSolanaKey(req.TokenAccount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token account")
		return
	}
	client, ok := s.chainFor(w, req.Net)
	if !ok {
		return
	}
	amount, decimals, err := client.TokenBalance(r.Context(), account)
	if err != nil {
		failRPC(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"amount":   amount,
		"decimals": decimals,
	})
}

func (s *Server) handleSPLSendSingle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SecretSeed      string `json:"secret_seed"`
		Recipient       string `json:"recipient"`
		Mint            string `json:"mint"`
		Amount          uint64 `json:"amount"`
		CreateRecipient bool   `json:"create_recipient"`
		Net             string `json:"net"`
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
	mint, err := parseSolanaKey(req.Mint)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid mint")
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
	sender := solana.PublicKeyFromBytes(priv.Public().(ed25519.PublicKey))

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

	sig, err := s.signAndSend(w, r, client, msg, priv)
	if err != nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"transaction_id": sig.String()})
}

// signAndSend signs a compiled message with a single key and broadcasts the
// transaction. It writes the error response itself so callers just return.
func (s *Server) signAndSend(w http.ResponseWriter, r *http.Request, client ChainClient, msg []byte, priv ed25519.PrivateKey) (solana.Signature, error) {
	pub, err := curve.DecodePublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		fail(w, err)
		return solana.Signature{}, err
	}
	tx, err := soltx.Attach(msg, pub, ed25519.Sign(priv, msg))
	if err != nil {
		fail(w, err)
		return solana.Signature{}, err
	}
	sig, err := client.SendTransaction(r.Context(), tx)
	if err != nil {
		failRPC(w, err)
		return solana.Signature{}, err
	}
	if err := client.ConfirmTransaction(r.Context(), sig); err != nil {
		failRPC(w, err)
		return solana.Signature{}, err
	}
	return sig, nil
}
