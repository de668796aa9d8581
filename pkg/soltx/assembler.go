package soltx

import (
	"errors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/mosaiclabs/soltss/pkg/curve"
)

var (
	ErrInvalidSignature      = errors.New("soltx: signature must be 64 bytes")
	ErrMultipleSigners       = errors.New("soltx: message requires more than one signer")
	ErrPayerMismatch         = errors.New("soltx: fee payer is not the aggregated key")
	ErrSignatureVerification = errors.New("soltx: signature does not verify over the message")
)

// Attach validates an aggregated signature against a compiled message and
// returns the signed transaction. The message must name the aggregated key as
// its only required signer, and the signature is verified before the
// transaction is handed back for broadcast.
func Attach(messageBytes []byte, aggregatedKey *curve.Point, signature []byte) (*solana.Transaction, error) {
	if len(signature) != curve.SignatureSize {
		return nil, ErrInvalidSignature
	}

	var msg solana.Message
	if err := msg.UnmarshalWithDecoder(bin.NewBinDecoder(messageBytes)); err != nil {
		return nil, err
	}
	if msg.Header.NumRequiredSignatures != 1 {
		return nil, ErrMultipleSigners
	}
	if len(msg.AccountKeys) == 0 || !msg.AccountKeys[0].Equals(solana.PublicKeyFromBytes(aggregatedKey.Bytes())) {
		return nil, ErrPayerMismatch
	}

	// Verify over the canonical re-encoding so a malleable input encoding
	// cannot smuggle a different message past the check.
	canonical, err := msg.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if !curve.Verify(aggregatedKey, canonical, signature) {
		return nil, ErrSignatureVerification
	}

	return &solana.Transaction{
		Signatures: []solana.Signature{solana.SignatureFromBytes(signature)},
		Message:    msg,
	}, nil
}
