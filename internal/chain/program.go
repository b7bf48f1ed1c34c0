// Package chain is the client for the deployed signal-marketplace program:
// instruction building, derived-address computation, account decoding, and
// transaction submission.
package chain

import (
	solana "github.com/gagliardetto/solana-go"

	"github.com/agentalpha/signal-exchange/internal/sighash"
)

// ProgramID is the deployed marketplace program.
var ProgramID = solana.MustPublicKeyFromBase58("6sDwzatESkmF5T3K3rfNta4DCRgH8z9ZdYoPXeMtKRmP")

// Derived-address seed namespaces.
const (
	seedProvider = "provider"
	seedSignal   = "signal"
)

// Anchor instruction discriminators: sha256("global:<snake_name>")[0:8].
var (
	ixRegisterProvider = [8]byte{254, 209, 54, 184, 46, 197, 109, 78}
	ixUpdateProvider   = [8]byte{52, 208, 141, 191, 164, 54, 108, 150}
	ixCommitSignal     = [8]byte{137, 14, 98, 40, 102, 88, 98, 135}
	ixRevealSignal     = [8]byte{224, 171, 21, 85, 195, 253, 227, 240}
	ixRecordOutcome    = [8]byte{130, 121, 6, 102, 151, 160, 252, 6}
)

// Account discriminators: sha256("account:<Name>")[0:8]. Every account blob
// starts with one of these; it identifies the record type and is skipped
// before field decoding.
var (
	discProvider     = [8]byte{164, 180, 71, 17, 75, 216, 80, 195}
	discSignalCommit = [8]byte{244, 78, 83, 68, 249, 101, 209, 198}
)

// DeriveProviderAddress returns the deterministic provider record address for
// an authority. At most one provider record can exist per authority because
// creating a second one targets the same address and fails as already in use.
func DeriveProviderAddress(authority solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte(seedProvider), authority.Bytes()},
		ProgramID,
	)
}

// DeriveSignalCommitAddress returns the deterministic commit record address
// for a (provider, signal hash) pair.
func DeriveSignalCommitAddress(provider solana.PublicKey, hash sighash.Hash) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte(seedSignal), provider.Bytes(), hash[:]},
		ProgramID,
	)
}
