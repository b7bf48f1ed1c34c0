package chain

import (
	"fmt"
	"strings"

	solana "github.com/gagliardetto/solana-go"

	"github.com/agentalpha/signal-exchange/internal/codec"
	"github.com/agentalpha/signal-exchange/internal/sighash"
)

// Field limits enforced by the program. Checked before submission so a
// violation fails locally instead of burning a transaction fee.
const (
	MaxNameLen      = 64
	MaxEndpointLen  = 256
	MaxCategories   = 8
	MaxTokenLen     = 16
	MinTimeframeHrs = 1
	MaxTimeframeHrs = 72
	MaxConfidence   = 100
)

func buildRegisterProviderInstruction(authority solana.PublicKey, name, endpoint string, categories []uint8, priceLamports uint64) (solana.Instruction, error) {
	if len(name) > MaxNameLen {
		return nil, fmt.Errorf("provider name exceeds %d bytes", MaxNameLen)
	}
	if len(endpoint) > MaxEndpointLen {
		return nil, fmt.Errorf("endpoint exceeds %d bytes", MaxEndpointLen)
	}
	if len(categories) > MaxCategories {
		return nil, fmt.Errorf("at most %d categories allowed", MaxCategories)
	}

	providerPDA, _, err := DeriveProviderAddress(authority)
	if err != nil {
		return nil, fmt.Errorf("derive provider address: %w", err)
	}

	data := append([]byte{}, ixRegisterProvider[:]...)
	data = codec.AppendString(data, name)
	data = codec.AppendString(data, endpoint)
	data = codec.AppendU8List(data, categories)
	data = codec.AppendU64(data, priceLamports)

	return solana.NewInstruction(
		ProgramID,
		solana.AccountMetaSlice{
			solana.Meta(providerPDA).WRITE(),
			solana.Meta(authority).WRITE().SIGNER(),
			solana.Meta(solana.SystemProgramID),
		},
		data,
	), nil
}

// buildUpdateProviderInstruction encodes the optional fields Borsh-style:
// a 1-byte presence tag followed by the value when present.
func buildUpdateProviderInstruction(authority solana.PublicKey, name, endpoint *string, priceLamports *uint64) (solana.Instruction, error) {
	if name != nil && len(*name) > MaxNameLen {
		return nil, fmt.Errorf("provider name exceeds %d bytes", MaxNameLen)
	}
	if endpoint != nil && len(*endpoint) > MaxEndpointLen {
		return nil, fmt.Errorf("endpoint exceeds %d bytes", MaxEndpointLen)
	}

	providerPDA, _, err := DeriveProviderAddress(authority)
	if err != nil {
		return nil, fmt.Errorf("derive provider address: %w", err)
	}

	data := append([]byte{}, ixUpdateProvider[:]...)
	data = appendOptionString(data, name)
	data = appendOptionString(data, endpoint)
	data = appendOptionU64(data, priceLamports)

	return solana.NewInstruction(
		ProgramID,
		solana.AccountMetaSlice{
			solana.Meta(providerPDA).WRITE(),
			solana.Meta(authority).SIGNER(),
		},
		data,
	), nil
}

func buildCommitSignalInstruction(authority solana.PublicKey, hash sighash.Hash) (solana.Instruction, error) {
	providerPDA, _, err := DeriveProviderAddress(authority)
	if err != nil {
		return nil, fmt.Errorf("derive provider address: %w", err)
	}
	commitPDA, _, err := DeriveSignalCommitAddress(providerPDA, hash)
	if err != nil {
		return nil, fmt.Errorf("derive commit address: %w", err)
	}

	data := append([]byte{}, ixCommitSignal[:]...)
	data = append(data, hash[:]...)

	return solana.NewInstruction(
		ProgramID,
		solana.AccountMetaSlice{
			solana.Meta(commitPDA).WRITE(),
			solana.Meta(providerPDA),
			solana.Meta(authority).WRITE().SIGNER(),
			solana.Meta(solana.SystemProgramID),
		},
		data,
	), nil
}

// buildRevealSignalInstruction carries the full plaintext, encoded with the
// same cents scaling as the hash input so the program's recomputation lands
// on the committed digest.
func buildRevealSignalInstruction(authority solana.PublicKey, s sighash.Signal, hash sighash.Hash) (solana.Instruction, error) {
	token := s.Token
	if len(token) > MaxTokenLen {
		return nil, fmt.Errorf("token symbol exceeds %d bytes", MaxTokenLen)
	}
	if s.TimeframeHours < MinTimeframeHrs || s.TimeframeHours > MaxTimeframeHrs {
		return nil, fmt.Errorf("timeframe must be %d-%d hours", MinTimeframeHrs, MaxTimeframeHrs)
	}
	if s.Confidence > MaxConfidence {
		return nil, fmt.Errorf("confidence must be 0-%d", MaxConfidence)
	}

	providerPDA, _, err := DeriveProviderAddress(authority)
	if err != nil {
		return nil, fmt.Errorf("derive provider address: %w", err)
	}
	commitPDA, _, err := DeriveSignalCommitAddress(providerPDA, hash)
	if err != nil {
		return nil, fmt.Errorf("derive commit address: %w", err)
	}

	// The token goes over the wire upper-cased, matching the hash input
	// normalization, so the program's recomputed digest lines up.
	data := append([]byte{}, ixRevealSignal[:]...)
	data = codec.AppendString(data, strings.ToUpper(s.Token))
	data = append(data, byte(s.Direction))
	data = codec.AppendU64(data, sighash.Cents(s.Entry))
	data = codec.AppendU64(data, sighash.Cents(s.TakeProfit))
	data = codec.AppendU64(data, sighash.Cents(s.StopLoss))
	data = append(data, s.TimeframeHours)
	data = append(data, s.Confidence)

	return solana.NewInstruction(
		ProgramID,
		solana.AccountMetaSlice{
			solana.Meta(commitPDA).WRITE(),
			solana.Meta(providerPDA),
			solana.Meta(authority).SIGNER(),
		},
		data,
	), nil
}

func buildRecordOutcomeInstruction(oracle, providerPDA solana.PublicKey, hash sighash.Hash, outcome uint8, finalPriceCents uint64, returnBps int32) (solana.Instruction, error) {
	if outcome < OutcomeTakeProfitHit || outcome > OutcomeExpired {
		return nil, fmt.Errorf("outcome code must be 1-3, got %d", outcome)
	}

	commitPDA, _, err := DeriveSignalCommitAddress(providerPDA, hash)
	if err != nil {
		return nil, fmt.Errorf("derive commit address: %w", err)
	}

	data := append([]byte{}, ixRecordOutcome[:]...)
	data = append(data, outcome)
	data = codec.AppendU64(data, finalPriceCents)
	data = codec.AppendI32(data, returnBps)

	return solana.NewInstruction(
		ProgramID,
		solana.AccountMetaSlice{
			solana.Meta(commitPDA).WRITE(),
			solana.Meta(providerPDA).WRITE(),
			solana.Meta(oracle).SIGNER(),
		},
		data,
	), nil
}

func appendOptionString(b []byte, v *string) []byte {
	if v == nil {
		return append(b, 0)
	}
	b = append(b, 1)
	return codec.AppendString(b, *v)
}

func appendOptionU64(b []byte, v *uint64) []byte {
	if v == nil {
		return append(b, 0)
	}
	b = append(b, 1)
	return codec.AppendU64(b, *v)
}
