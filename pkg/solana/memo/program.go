package memo

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/gift-protocol/pkg/solana"
)

// ProgramKey is the SPL memo program, Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo.
var ProgramKey = ed25519.PublicKey{5, 74, 83, 80, 248, 93, 200, 130, 214, 20, 165, 86, 114, 120, 138, 41, 109, 223, 30, 171, 171, 208, 166, 6, 120, 136, 73, 50, 244, 238, 246, 160}

// Instruction attaches data as a memo.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/master/memo/program/src/entrypoint.rs
func Instruction(data string) solana.Instruction {
	return solana.NewInstruction(ProgramKey, []byte(data))
}

// DecompileMemo returns the memo text of the instruction at index.
func DecompileMemo(m solana.Message, index int) (string, error) {
	if index < 0 || index >= len(m.Instructions) {
		return "", errors.Errorf("instruction doesn't exist at %d", index)
	}

	ix := m.Instructions[index]
	if !bytes.Equal(m.Accounts[ix.ProgramIndex], ProgramKey) {
		return "", solana.ErrIncorrectProgram
	}

	return string(ix.Data), nil
}
