package solana

import (
	"bytes"
	"crypto/ed25519"
	"io"

	"github.com/pkg/errors"

	"github.com/code-payments/gift-protocol/pkg/solana/shortvec"
)

func (t Transaction) Marshal() []byte {
	var b bytes.Buffer

	_, _ = shortvec.EncodeLen(&b, len(t.Signatures))
	for _, s := range t.Signatures {
		b.Write(s[:])
	}
	b.Write(t.Message.Marshal())

	return b.Bytes()
}

func (t *Transaction) Unmarshal(raw []byte) error {
	buf := bytes.NewBuffer(raw)

	count, err := shortvec.DecodeLen(buf)
	if err != nil {
		return errors.Wrap(err, "failed to read signature count")
	}

	t.Signatures = make([]Signature, count)
	for i := range t.Signatures {
		if _, err := io.ReadFull(buf, t.Signatures[i][:]); err != nil {
			return errors.Wrapf(err, "failed to read signature %d", i)
		}
	}

	return t.Message.Unmarshal(buf.Bytes())
}

func (m Message) Marshal() []byte {
	var b bytes.Buffer

	b.WriteByte(m.Header.NumSignatures)
	b.WriteByte(m.Header.NumReadonlySigned)
	b.WriteByte(m.Header.NumReadOnly)

	_, _ = shortvec.EncodeLen(&b, len(m.Accounts))
	for _, account := range m.Accounts {
		b.Write(account)
	}

	b.Write(m.RecentBlockhash[:])

	_, _ = shortvec.EncodeLen(&b, len(m.Instructions))
	for _, ix := range m.Instructions {
		b.WriteByte(ix.ProgramIndex)

		_, _ = shortvec.EncodeLen(&b, len(ix.Accounts))
		b.Write(ix.Accounts)

		_, _ = shortvec.EncodeLen(&b, len(ix.Data))
		b.Write(ix.Data)
	}

	return b.Bytes()
}

func (m *Message) Unmarshal(raw []byte) (err error) {
	if len(raw) == 0 {
		return errors.New("empty message")
	}
	if raw[0]&0x80 != 0 {
		return errors.New("versioned messages are not supported")
	}

	buf := bytes.NewBuffer(raw)

	header := make([]byte, 3)
	if _, err = io.ReadFull(buf, header); err != nil {
		return errors.Wrap(err, "failed to read header")
	}
	m.Header = Header{
		NumSignatures:     header[0],
		NumReadonlySigned: header[1],
		NumReadOnly:       header[2],
	}

	accountCount, err := shortvec.DecodeLen(buf)
	if err != nil {
		return errors.Wrap(err, "failed to read account count")
	}
	m.Accounts = make([]ed25519.PublicKey, accountCount)
	for i := range m.Accounts {
		m.Accounts[i] = make([]byte, ed25519.PublicKeySize)
		if _, err = io.ReadFull(buf, m.Accounts[i]); err != nil {
			return errors.Wrapf(err, "failed to read account %d", i)
		}
	}

	if _, err = io.ReadFull(buf, m.RecentBlockhash[:]); err != nil {
		return errors.Wrap(err, "failed to read recent blockhash")
	}

	instructionCount, err := shortvec.DecodeLen(buf)
	if err != nil {
		return errors.Wrap(err, "failed to read instruction count")
	}
	m.Instructions = make([]CompiledInstruction, instructionCount)
	for i := range m.Instructions {
		ix := &m.Instructions[i]

		if ix.ProgramIndex, err = buf.ReadByte(); err != nil {
			return errors.Wrapf(err, "failed to read program index of instruction %d", i)
		}
		if int(ix.ProgramIndex) >= accountCount {
			return errors.Errorf("instruction %d program index %d out of range", i, ix.ProgramIndex)
		}

		if ix.Accounts, err = readVector(buf); err != nil {
			return errors.Wrapf(err, "failed to read accounts of instruction %d", i)
		}
		for _, index := range ix.Accounts {
			if int(index) >= accountCount {
				return errors.Errorf("instruction %d account index %d out of range", i, index)
			}
		}

		if ix.Data, err = readVector(buf); err != nil {
			return errors.Wrapf(err, "failed to read data of instruction %d", i)
		}
	}

	return nil
}

func readVector(buf *bytes.Buffer) ([]byte, error) {
	length, err := shortvec.DecodeLen(buf)
	if err != nil {
		return nil, err
	}

	v := make([]byte, length)
	if _, err := io.ReadFull(buf, v); err != nil {
		return nil, err
	}
	return v, nil
}
