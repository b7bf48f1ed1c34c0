package chain

import (
	"errors"
	"strings"
)

// Protocol state errors the ledger surfaces as transaction failures. Callers
// are expected to match on these with errors.Is and handle each distinctly
// rather than treating them as generic RPC failures.
var (
	ErrDuplicateRegistration = errors.New("provider already registered for this authority")
	ErrDuplicateCommit       = errors.New("signal hash already committed by this provider")
	ErrHashMismatch          = errors.New("revealed fields do not hash to the committed value")
	ErrAlreadyRevealed       = errors.New("signal already revealed")
	ErrNotRevealed           = errors.New("signal not revealed yet")
	ErrCommitNotFound        = errors.New("no commit record exists at the derived address")
	ErrAlreadyEvaluated      = errors.New("outcome already recorded for this signal")
	ErrProviderNotFound      = errors.New("no provider record exists for this authority")
)

// Anchor custom error codes for the program, offset from 6000 in enum order.
const (
	codeAlreadyRevealed   = "0x1778" // 6008
	codeNotRevealed       = "0x1779" // 6009
	codeHashMismatch      = "0x177a" // 6010
	codeOutcomeRecorded   = "0x177b" // 6011
	codeAccountNotInit    = "0xbc4"  // Anchor AccountNotInitialized (3012)
	msgAccountAlreadyUsed = "already in use"
)

type opKind int

const (
	opRegister opKind = iota
	opCommit
	opReveal
	opOutcome
)

// classifyLedgerError maps a raw submission failure onto the protocol error
// taxonomy. The ledger reports state violations through simulation logs and
// custom error codes embedded in the error text, so matching is textual.
func classifyLedgerError(op opKind, err error) error {
	if err == nil {
		return nil
	}
	text := err.Error()

	switch {
	case strings.Contains(text, msgAccountAlreadyUsed):
		// An init against an address that already holds a record: the
		// deterministic-derivation idempotency guard.
		if op == opRegister {
			return wrap(ErrDuplicateRegistration, err)
		}
		return wrap(ErrDuplicateCommit, err)
	case strings.Contains(text, codeHashMismatch) || strings.Contains(text, "HashMismatch"):
		return wrap(ErrHashMismatch, err)
	case strings.Contains(text, codeAlreadyRevealed) || strings.Contains(text, "AlreadyRevealed"):
		return wrap(ErrAlreadyRevealed, err)
	case strings.Contains(text, codeNotRevealed) || strings.Contains(text, "NotRevealed"):
		return wrap(ErrNotRevealed, err)
	case strings.Contains(text, codeOutcomeRecorded) || strings.Contains(text, "OutcomeAlreadyRecorded"):
		return wrap(ErrAlreadyEvaluated, err)
	case strings.Contains(text, codeAccountNotInit) || strings.Contains(text, "AccountNotInitialized"):
		if op == opReveal || op == opOutcome {
			return wrap(ErrCommitNotFound, err)
		}
		return wrap(ErrProviderNotFound, err)
	}
	return err
}

// wrap keeps both the sentinel (for errors.Is) and the raw ledger error (for
// logging) on the chain.
func wrap(sentinel, cause error) error {
	return &ledgerError{sentinel: sentinel, cause: cause}
}

type ledgerError struct {
	sentinel error
	cause    error
}

func (e *ledgerError) Error() string {
	return e.sentinel.Error() + ": " + e.cause.Error()
}

func (e *ledgerError) Is(target error) bool { return target == e.sentinel }

func (e *ledgerError) Unwrap() error { return e.cause }
