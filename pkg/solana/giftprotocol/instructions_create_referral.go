package giftprotocol

import (
	"crypto/ed25519"

	"github.com/code-payments/gift-protocol/pkg/solana"
)

var createReferralInstructionDiscriminator = instructionDiscriminator("create_referral")

type CreateReferralInstructionAccounts struct {
	Owner    ed25519.PublicKey
	Referral ed25519.PublicKey
}

func NewCreateReferralInstruction(accounts *CreateReferralInstructionAccounts) solana.Instruction {
	var offset int

	data := make([]byte, discriminatorSize)
	putDiscriminator(data, createReferralInstructionDiscriminator, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,
		Data:    data,
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Owner,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Referral,
				IsWritable: true,
			},
			{
				PublicKey: SYSTEM_PROGRAM_ID,
			},
			{
				PublicKey: SYSVAR_CLOCK_PUBKEY,
			},
		},
	}
}
