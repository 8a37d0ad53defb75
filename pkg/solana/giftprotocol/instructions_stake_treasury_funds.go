package giftprotocol

import (
	"crypto/ed25519"

	"github.com/code-payments/gift-protocol/pkg/solana"
	"github.com/code-payments/gift-protocol/pkg/solana/binary"
)

const (
	StakeTreasuryFundsInstructionArgsSize = 8 // amount
)

var stakeTreasuryFundsInstructionDiscriminator = instructionDiscriminator("stake_treasury_funds")

type StakeTreasuryFundsInstructionArgs struct {
	Amount uint64
}

type StakeTreasuryFundsInstructionAccounts struct {
	Authority   ed25519.PublicKey
	Config      ed25519.PublicKey
	Treasury    ed25519.PublicKey
	StakingPool ed25519.PublicKey
}

func NewStakeTreasuryFundsInstruction(
	accounts *StakeTreasuryFundsInstructionAccounts,
	args *StakeTreasuryFundsInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte, discriminatorSize+StakeTreasuryFundsInstructionArgsSize)
	putDiscriminator(data, stakeTreasuryFundsInstructionDiscriminator, &offset)
	binary.PutUint64(data[offset:], args.Amount, &offset)

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
				PublicKey:  accounts.StakingPool,
				IsWritable: true,
			},
			{
				PublicKey: SYSTEM_PROGRAM_ID,
			},
		},
	}
}
