package giftprotocol

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/gift-protocol/pkg/solana"
)

func TestDiscriminators(t *testing.T) {
	assert.Equal(t, []byte{155, 12, 170, 224, 30, 250, 204, 130}, ConfigAccountDiscriminator)
	assert.Equal(t, []byte{54, 20, 8, 38, 75, 170, 131, 139}, GiftCardAccountDiscriminator)
	assert.Equal(t, []byte{30, 235, 136, 224, 106, 107, 49, 64}, ReferralAccountDiscriminator)
	assert.Equal(t, []byte{238, 239, 123, 238, 89, 1, 168, 253}, TreasuryAccountDiscriminator)

	assert.Equal(t, []byte{175, 175, 109, 31, 13, 152, 155, 237}, initializeInstructionDiscriminator)
	assert.Equal(t, []byte{61, 17, 240, 245, 172, 66, 159, 232}, createReferralInstructionDiscriminator)
	assert.Equal(t, []byte{254, 187, 187, 59, 170, 50, 154, 34}, stakeTreasuryFundsInstructionDiscriminator)
}

func TestAddresses(t *testing.T) {
	config, configBump, err := GetConfigAddress()
	require.NoError(t, err)
	treasury, _, err := GetTreasuryAddress()
	require.NoError(t, err)
	assert.NotEqual(t, config, treasury)

	expected, err := solana.CreateProgramAddress(PROGRAM_ID, ConfigPrefix, []byte{configBump})
	require.NoError(t, err)
	assert.EqualValues(t, expected, config)

	owner := newKey(t)
	referral, _, err := GetReferralAddress(&GetReferralAddressArgs{Owner: owner})
	require.NoError(t, err)
	again, _, err := GetReferralAddress(&GetReferralAddressArgs{Owner: owner})
	require.NoError(t, err)
	assert.EqualValues(t, referral, again)

	card := newKey(t)
	giftCard, _, err := GetGiftCardAddress(&GetGiftCardAddressArgs{Card: card})
	require.NoError(t, err)
	assert.NotEqual(t, card, giftCard)
}

func TestConfigAccount_Layout(t *testing.T) {
	expected := &ConfigAccount{
		Authority:            newKey(t),
		CommissionRate:       250,
		ReferralRate:         50,
		Treasury:             newKey(t),
		TotalCommission:      25_000_000,
		TotalReferralPayouts: 5_000_000,
		TotalGiftCards:       1,
		TotalStaked:          0,
		Bump:                 254,
	}

	data := expected.Marshal()
	assert.Len(t, data, MinConfigAccountSize)
	assert.Equal(t, ConfigAccountDiscriminator, data[:8])

	var actual ConfigAccount
	require.NoError(t, actual.Unmarshal(data))
	assert.Equal(t, expected, &actual)

	expected.GovernanceTokenMint = newKey(t)
	data = expected.Marshal()
	assert.Len(t, data, MinConfigAccountSize+32)
	require.NoError(t, actual.Unmarshal(data))
	assert.EqualValues(t, expected.GovernanceTokenMint, actual.GovernanceTokenMint)
	assert.EqualValues(t, 254, actual.Bump)
}

func TestGiftCardAccount_Layout(t *testing.T) {
	expected := &GiftCardAccount{
		Creator:    newKey(t),
		Recipient:  newKey(t),
		Amount:     975_000_000,
		IsRedeemed: false,
		ExpiryTime: 1_767_225_600,
		Message:    "happy birthday 🎂",
		Referrer:   newKey(t),
		Bump:       253,
	}

	var actual GiftCardAccount
	require.NoError(t, actual.Unmarshal(expected.Marshal()))
	assert.Equal(t, expected, &actual)

	expected.Referrer = nil
	expected.Message = ""
	expected.IsRedeemed = true

	actual = GiftCardAccount{}
	require.NoError(t, actual.Unmarshal(expected.Marshal()))
	assert.Equal(t, expected, &actual)
}

func TestReferralAndTreasuryAccounts_Layout(t *testing.T) {
	referral := &ReferralAccount{Owner: newKey(t), TotalEarned: 5_000_000, ReferralCount: 3, CreatedAt: 1_700_000_000, Bump: 251}

	var actualReferral ReferralAccount
	require.NoError(t, actualReferral.Unmarshal(referral.Marshal()))
	assert.Equal(t, referral, &actualReferral)

	treasury := &TreasuryAccount{Config: newKey(t), Balance: 20_000_000, StakedAmount: 10_000_000, Bump: 255}

	var actualTreasury TreasuryAccount
	require.NoError(t, actualTreasury.Unmarshal(treasury.Marshal()))
	assert.Equal(t, treasury, &actualTreasury)

	assert.Equal(t, ErrInvalidAccountData, actualTreasury.Unmarshal(referral.Marshal()[:TreasuryAccountSize]))
	assert.Equal(t, ErrInvalidAccountData, actualReferral.Unmarshal(make([]byte, 10)))
}

func TestInitializeInstruction(t *testing.T) {
	authority := newKey(t)
	config, _, err := GetConfigAddress()
	require.NoError(t, err)
	treasury, _, err := GetTreasuryAddress()
	require.NoError(t, err)

	ix := NewInitializeInstruction(
		&InitializeInstructionAccounts{Authority: authority, Config: config, Treasury: treasury},
		&InitializeInstructionArgs{CommissionRate: 250, ReferralRate: 50},
	)
	assert.EqualValues(t, PROGRAM_ID, ix.Program)
	require.Len(t, ix.Accounts, 4)
	assert.True(t, ix.Accounts[0].IsSigner)
	assert.EqualValues(t, SYSTEM_PROGRAM_ID, ix.Accounts[3].PublicKey)

	args, err := DecompileInitializeInstruction(ix.Data)
	require.NoError(t, err)
	assert.EqualValues(t, 250, args.CommissionRate)
	assert.EqualValues(t, 50, args.ReferralRate)

	_, err = DecompileInitializeInstruction(ix.Data[:10])
	assert.Equal(t, ErrInvalidInstructionData, err)
}

func TestOtherInstructions(t *testing.T) {
	owner := newKey(t)
	referral, _, err := GetReferralAddress(&GetReferralAddressArgs{Owner: owner})
	require.NoError(t, err)

	ix := NewCreateReferralInstruction(&CreateReferralInstructionAccounts{Owner: owner, Referral: referral})
	assert.Equal(t, createReferralInstructionDiscriminator, ix.Data)
	assert.EqualValues(t, SYSVAR_CLOCK_PUBKEY, ix.Accounts[3].PublicKey)
	assert.Equal(t, "SysvarC1ock11111111111111111111111111111111", base58.Encode(ix.Accounts[3].PublicKey))

	ix = NewStakeTreasuryFundsInstruction(
		&StakeTreasuryFundsInstructionAccounts{Authority: owner, Config: newKey(t), Treasury: newKey(t), StakingPool: newKey(t)},
		&StakeTreasuryFundsInstructionArgs{Amount: 1000},
	)
	assert.Equal(t, append(append([]byte{}, stakeTreasuryFundsInstructionDiscriminator...), 0xe8, 0x03, 0, 0, 0, 0, 0, 0), ix.Data)
	assert.Len(t, ix.Accounts, 5)
}

func newKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub
}
