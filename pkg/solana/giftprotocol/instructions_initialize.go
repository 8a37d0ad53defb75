package giftprotocol

import (
	"crypto/ed25519"

	"github.com/code-payments/gift-protocol/pkg/solana"
	"github.com/code-payments/gift-protocol/pkg/solana/binary"
)

const (
	InitializeInstructionArgsSize = (8 + // commission_rate
		8) // referral_rate
)

var initializeInstructionDiscriminator = instructionDiscriminator("initialize")

type InitializeInstructionArgs struct {
	CommissionRate uint64
	ReferralRate   uint64
}

type InitializeInstructionAccounts struct {
	Authority ed25519.PublicKey
	Config    ed25519.PublicKey
	Treasury  ed25519.PublicKey
}

func NewInitializeInstruction(
	accounts *InitializeInstructionAccounts,
	args *InitializeInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte, discriminatorSize+InitializeInstructionArgsSize)
	putDiscriminator(data, initializeInstructionDiscriminator, &offset)
	binary.PutUint64(data[offset:], args.CommissionRate, &offset)
	binary.PutUint64(data[offset:], args.ReferralRate, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,
		Data:    data,
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Authority,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Config,
				IsWritable: true,
			},
			{
				PublicKey:  accounts.Treasury,
				IsWritable: true,
			},
			{
				PublicKey: SYSTEM_PROGRAM_ID,
			},
		},
	}
}

// DecompileInitializeInstruction reads back the rates of an initialize
// instruction.
func DecompileInitializeInstruction(data []byte) (*InitializeInstructionArgs, error) {
	if len(data) != discriminatorSize+InitializeInstructionArgsSize {
		return nil, ErrInvalidInstructionData
	}

	var offset int
	if err := checkDiscriminator(data, initializeInstructionDiscriminator, &offset); err != nil {
		return nil, ErrInvalidInstructionData
	}

	var args InitializeInstructionArgs
	binary.GetUint64(data[offset:], &args.CommissionRate, &offset)
	binary.GetUint64(data[offset:], &args.ReferralRate, &offset)
	return &args, nil
}
