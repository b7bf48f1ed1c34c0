package chain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyLedgerError(t *testing.T) {
	cases := []struct {
		name string
		op   opKind
		raw  string
		want error
	}{
		{
			name: "duplicate registration",
			op:   opRegister,
			raw:  "Transaction simulation failed: Error processing Instruction 0: Allocate: account Address { address: 7xK..., base: None } already in use",
			want: ErrDuplicateRegistration,
		},
		{
			name: "duplicate commit",
			op:   opCommit,
			raw:  "Allocate: account already in use",
			want: ErrDuplicateCommit,
		},
		{
			name: "hash mismatch by code",
			op:   opReveal,
			raw:  "custom program error: 0x177a",
			want: ErrHashMismatch,
		},
		{
			name: "hash mismatch by name",
			op:   opReveal,
			raw:  "Error Code: HashMismatch. Error Number: 6010",
			want: ErrHashMismatch,
		},
		{
			name: "already revealed",
			op:   opReveal,
			raw:  "custom program error: 0x1778",
			want: ErrAlreadyRevealed,
		},
		{
			name: "not revealed",
			op:   opOutcome,
			raw:  "Error Code: NotRevealed. Error Number: 6009",
			want: ErrNotRevealed,
		},
		{
			name: "outcome already recorded",
			op:   opOutcome,
			raw:  "custom program error: 0x177b",
			want: ErrAlreadyEvaluated,
		},
		{
			name: "commit not found on reveal",
			op:   opReveal,
			raw:  "Error Code: AccountNotInitialized. Error Number: 3012",
			want: ErrCommitNotFound,
		},
		{
			name: "provider not found on register path",
			op:   opRegister,
			raw:  "custom program error: 0xbc4",
			want: ErrProviderNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyLedgerError(tc.op, errors.New(tc.raw))
			require.Error(t, got)
			assert.ErrorIs(t, got, tc.want)
			// Raw ledger text stays reachable for logging.
			assert.Contains(t, got.Error(), tc.raw)
		})
	}
}

func TestClassifyLeavesUnknownErrorsAlone(t *testing.T) {
	raw := fmt.Errorf("rpc: connection refused")
	got := classifyLedgerError(opCommit, raw)
	assert.Equal(t, raw, got)
}

func TestClassifyNil(t *testing.T) {
	assert.NoError(t, classifyLedgerError(opRegister, nil))
}
