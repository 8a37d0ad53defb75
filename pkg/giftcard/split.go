package giftcard

import (
	"math/bits"
	"unicode/utf8"
)

// MaxBasisPoints is 100%.
const MaxBasisPoints = 10_000

// Split is the breakdown of a gift card's gross amount.
type Split struct {
	Amount        uint64
	Commission    uint64
	ReferralShare uint64
	TreasuryShare uint64
	Net           uint64
}

// ValidateRates checks both rates are within [0, MaxBasisPoints] and the
// referral rate does not exceed the commission rate.
func ValidateRates(commissionRate, referralRate uint64) error {
	if commissionRate > MaxBasisPoints || referralRate > MaxBasisPoints || referralRate > commissionRate {
		return ErrInvalidRateConfiguration
	}
	return nil
}

// BasisPoints returns floor(amount*rate/10000) using a 128-bit intermediate
// product.
func BasisPoints(amount, rate uint64) (uint64, error) {
	hi, lo := bits.Mul64(amount, rate)
	if hi >= MaxBasisPoints {
		return 0, ErrArithmeticOverflow
	}
	quotient, _ := bits.Div64(hi, lo, MaxBasisPoints)
	return quotient, nil
}

// ComputeSplit splits amount into commission and net. The referral share is
// carved out of the commission only when withReferral is set.
func ComputeSplit(amount, commissionRate, referralRate uint64, withReferral bool) (Split, error) {
	if amount == 0 {
		return Split{}, ErrInvalidAmount
	}
	if err := ValidateRates(commissionRate, referralRate); err != nil {
		return Split{}, err
	}

	commission, err := BasisPoints(amount, commissionRate)
	if err != nil {
		return Split{}, err
	}

	var referralShare uint64
	if withReferral {
		if referralShare, err = BasisPoints(amount, referralRate); err != nil {
			return Split{}, err
		}
	}

	return Split{
		Amount:        amount,
		Commission:    commission,
		ReferralShare: referralShare,
		TreasuryShare: commission - referralShare,
		Net:           amount - commission,
	}, nil
}

// CheckedAdd returns a+b or ErrArithmeticOverflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}

// CheckedSub returns a-b or ErrInsufficientFunds when b exceeds a.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrInsufficientFunds
	}
	return a - b, nil
}

// ValidateMessage enforces the message cap, counted in characters.
func ValidateMessage(message string, maxLength int) error {
	if !utf8.ValidString(message) || utf8.RuneCountInString(message) > maxLength {
		return ErrMessageTooLong
	}
	return nil
}
