// Package soltx builds unsigned Solana transaction messages with the
// aggregated key as sole fee payer, and attaches aggregated signatures to
// produce broadcast-ready transactions.
package soltx

import (
	"errors"

	"github.com/gagliardetto/solana-go"
	ata "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

var ErrInvalidAmount = errors.New("soltx: amount must be positive")

// TransferParams describes a plain SOL transfer.
type TransferParams struct {
	From            solana.PublicKey
	To              solana.PublicKey
	Lamports        uint64
	Memo            string
	RecentBlockhash solana.Hash
}

// BuildTransferMessage compiles an unsigned transfer message with From as the
// fee payer and only required signer.
func BuildTransferMessage(p TransferParams) ([]byte, error) {
	if p.Lamports == 0 {
		return nil, ErrInvalidAmount
	}

	instrs := []solana.Instruction{
		system.NewTransferInstruction(p.Lamports, p.From, p.To).Build(),
	}
	if p.Memo != "" {
		instrs = append(instrs, solana.NewInstruction(
			solana.MemoProgramID,
			solana.AccountMetaSlice{},
			[]byte(p.Memo),
		))
	}
	return compileMessage(p.From, p.RecentBlockhash, instrs)
}

// SPLTransferParams describes an SPL token transfer between the associated
// token accounts of Sender and Recipient.
type SPLTransferParams struct {
	Sender          solana.PublicKey
	Recipient       solana.PublicKey
	Mint            solana.PublicKey
	Amount          uint64
	CreateRecipient bool
	RecentBlockhash solana.Hash
}

// BuildSPLTransferMessage compiles an unsigned token transfer. When
// CreateRecipient is set, the recipient's associated token account is created
// in the same transaction, funded by the sender.
func BuildSPLTransferMessage(p SPLTransferParams) ([]byte, error) {
	if p.Amount == 0 {
		return nil, ErrInvalidAmount
	}

	source, _, err := solana.FindAssociatedTokenAddress(p.Sender, p.Mint)
	if err != nil {
		return nil, err
	}
	destination, _, err := solana.FindAssociatedTokenAddress(p.Recipient, p.Mint)
	if err != nil {
		return nil, err
	}

	var instrs []solana.Instruction
	if p.CreateRecipient {
		instrs = append(instrs, ata.NewCreateInstruction(p.Sender, p.Recipient, p.Mint).Build())
	}
	instrs = append(instrs, token.NewTransferInstruction(p.Amount, source, destination, p.Sender, nil).Build())

	return compileMessage(p.Sender, p.RecentBlockhash, instrs)
}

func compileMessage(payer solana.PublicKey, blockhash solana.Hash, instrs []solana.Instruction) ([]byte, error) {
	tx, err := solana.NewTransaction(instrs, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, err
	}
	return tx.Message.MarshalBinary()
}
