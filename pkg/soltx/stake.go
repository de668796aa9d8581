package soltx

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// StakeStateSize is the on-chain size of a stake account, used for rent
// exemption queries.
const StakeStateSize = 200

// Stake program instruction discriminants. Instruction data is bincode: a
// little-endian u32 discriminant followed by the variant's fields, strings as
// u64 length plus bytes.
const (
	stakeInitialize      uint32 = 0
	stakeDelegate        uint32 = 2
	stakeWithdraw        uint32 = 4
	stakeDeactivate      uint32 = 5
	systemCreateWithSeed uint32 = 3
)

var stakeConfigID = solana.MustPublicKeyFromBase58("StakeConfig11111111111111111111111111111111")

// DeriveStakeAccount computes the createWithSeed address for a stake account
// owned by the stake program: sha256(base || seed || owner).
func DeriveStakeAccount(base solana.PublicKey, seed string) solana.PublicKey {
	h := sha256.New()
	h.Write(base.Bytes())
	h.Write([]byte(seed))
	h.Write(solana.StakeProgramID.Bytes())
	return solana.PublicKeyFromBytes(h.Sum(nil))
}

// StakeCreateParams describes creating, initializing and delegating a stake
// account derived from the staker's key and a seed.
type StakeCreateParams struct {
	Staker          solana.PublicKey
	Seed            string
	Lamports        uint64
	Vote            solana.PublicKey
	RecentBlockhash solana.Hash
}

// BuildStakeCreateMessage compiles an unsigned message that creates the
// seed-derived stake account, initializes it with the staker as both
// authorities, and delegates it to the vote account. The staker signs once
// for all three instructions.
func BuildStakeCreateMessage(p StakeCreateParams) ([]byte, solana.PublicKey, error) {
	if p.Lamports == 0 {
		return nil, solana.PublicKey{}, ErrInvalidAmount
	}
	stakeAccount := DeriveStakeAccount(p.Staker, p.Seed)

	createData, err := encodeCreateWithSeed(p.Staker, p.Seed, p.Lamports, StakeStateSize, solana.StakeProgramID)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	create := solana.NewInstruction(solana.SystemProgramID, solana.AccountMetaSlice{
		solana.Meta(p.Staker).SIGNER().WRITE(),
		solana.Meta(stakeAccount).WRITE(),
	}, createData)

	initData, err := encodeStakeInitialize(p.Staker, p.Staker)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	initialize := solana.NewInstruction(solana.StakeProgramID, solana.AccountMetaSlice{
		solana.Meta(stakeAccount).WRITE(),
		solana.Meta(solana.SysVarRentPubkey),
	}, initData)

	delegateData, err := encodeDiscriminant(stakeDelegate)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	delegate := solana.NewInstruction(solana.StakeProgramID, solana.AccountMetaSlice{
		solana.Meta(stakeAccount).WRITE(),
		solana.Meta(p.Vote),
		solana.Meta(solana.SysVarClockPubkey),
		solana.Meta(solana.SysVarStakeHistoryPubkey),
		solana.Meta(stakeConfigID),
		solana.Meta(p.Staker).SIGNER(),
	}, delegateData)

	msg, err := compileMessage(p.Staker, p.RecentBlockhash, []solana.Instruction{create, initialize, delegate})
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	return msg, stakeAccount, nil
}

// StakeDeactivateParams describes deactivating a seed-derived stake account.
type StakeDeactivateParams struct {
	Staker          solana.PublicKey
	Seed            string
	RecentBlockhash solana.Hash
}

func BuildStakeDeactivateMessage(p StakeDeactivateParams) ([]byte, solana.PublicKey, error) {
	stakeAccount := DeriveStakeAccount(p.Staker, p.Seed)

	data, err := encodeDiscriminant(stakeDeactivate)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	deactivate := solana.NewInstruction(solana.StakeProgramID, solana.AccountMetaSlice{
		solana.Meta(stakeAccount).WRITE(),
		solana.Meta(solana.SysVarClockPubkey),
		solana.Meta(p.Staker).SIGNER(),
	}, data)

	msg, err := compileMessage(p.Staker, p.RecentBlockhash, []solana.Instruction{deactivate})
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	return msg, stakeAccount, nil
}

// StakeWithdrawParams describes withdrawing lamports from a deactivated
// seed-derived stake account.
type StakeWithdrawParams struct {
	Staker          solana.PublicKey
	Seed            string
	Recipient       solana.PublicKey
	Lamports        uint64
	RecentBlockhash solana.Hash
}

func BuildStakeWithdrawMessage(p StakeWithdrawParams) ([]byte, solana.PublicKey, error) {
	if p.Lamports == 0 {
		return nil, solana.PublicKey{}, ErrInvalidAmount
	}
	stakeAccount := DeriveStakeAccount(p.Staker, p.Seed)

	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteUint32(stakeWithdraw, binary.LittleEndian); err != nil {
		return nil, solana.PublicKey{}, err
	}
	if err := enc.WriteUint64(p.Lamports, binary.LittleEndian); err != nil {
		return nil, solana.PublicKey{}, err
	}

	withdraw := solana.NewInstruction(solana.StakeProgramID, solana.AccountMetaSlice{
		solana.Meta(stakeAccount).WRITE(),
		solana.Meta(p.Recipient).WRITE(),
		solana.Meta(solana.SysVarClockPubkey),
		solana.Meta(solana.SysVarStakeHistoryPubkey),
		solana.Meta(p.Staker).SIGNER(),
	}, buf.Bytes())

	msg, err := compileMessage(p.Staker, p.RecentBlockhash, []solana.Instruction{withdraw})
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	return msg, stakeAccount, nil
}

func encodeDiscriminant(d uint32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBinEncoder(buf).WriteUint32(d, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeCreateWithSeed encodes the system program's CreateAccountWithSeed
// variant. The base always equals the funding account here, so no extra base
// signer account is needed.
func encodeCreateWithSeed(base solana.PublicKey, seed string, lamports, space uint64, owner solana.PublicKey) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteUint32(systemCreateWithSeed, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(base.Bytes(), false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(uint64(len(seed)), binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes([]byte(seed), false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(lamports, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(space, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(owner.Bytes(), false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeStakeInitialize encodes Initialize with the given staker and
// withdrawer authorities and an empty lockup.
func encodeStakeInitialize(staker, withdrawer solana.PublicKey) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteUint32(stakeInitialize, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(staker.Bytes(), false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(withdrawer.Bytes(), false); err != nil {
		return nil, err
	}
	// Lockup: unix_timestamp, epoch, custodian.
	if err := enc.WriteInt64(0, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(0, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(solana.PublicKey{}.Bytes(), false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
