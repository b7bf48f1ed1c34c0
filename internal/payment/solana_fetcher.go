package payment

import (
	"context"
	"strconv"
	"strings"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// system-program instruction tag for a lamport transfer.
const systemTransferInstruction = uint32(2)

// SolanaFetcher resolves payment proofs against a Solana RPC endpoint and
// flattens the result into the verifier's TransactionInfo shape.
type SolanaFetcher struct {
	rpc *rpc.Client
}

func NewSolanaFetcher(client *rpc.Client) *SolanaFetcher {
	return &SolanaFetcher{rpc: client}
}

func (f *SolanaFetcher) FetchTransaction(ctx context.Context, signature string) (*TransactionInfo, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		// Unparseable proofs behave like transactions the ledger has never
		// seen rather than surfacing an internal error.
		return nil, nil
	}

	version := uint64(0)
	tx, err := f.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &version,
	})
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return nil, nil
		}
		return nil, err
	}
	if tx == nil {
		return nil, nil
	}

	info := &TransactionInfo{}
	if tx.Meta != nil && tx.Meta.Err != nil {
		info.Failed = true
	}
	if tx.BlockTime != nil {
		info.BlockTime = tx.BlockTime.Time()
	}
	info.Transfers = append(info.Transfers, nativeTransfers(tx)...)
	info.Transfers = append(info.Transfers, tokenTransfers(tx)...)
	return info, nil
}

// nativeTransfers extracts lamport movements performed through the system
// program: a Borsh u32 instruction tag of 2 followed by the u64 amount, with
// the destination as the second instruction account.
func nativeTransfers(tx *rpc.GetTransactionResult) []Transfer {
	if tx.Transaction == nil {
		return nil
	}
	parsed, err := tx.Transaction.GetTransaction()
	if err != nil {
		return nil
	}

	var out []Transfer
	for _, instr := range parsed.Message.Instructions {
		if int(instr.ProgramIDIndex) >= len(parsed.Message.AccountKeys) {
			continue
		}
		if parsed.Message.AccountKeys[instr.ProgramIDIndex] != solana.SystemProgramID {
			continue
		}
		if len(instr.Data) < 4 || len(instr.Accounts) < 2 {
			continue
		}

		decoder := bin.NewBorshDecoder(instr.Data)
		var tag uint32
		if err := decoder.Decode(&tag); err != nil || tag != systemTransferInstruction {
			continue
		}
		var lamports uint64
		if err := decoder.Decode(&lamports); err != nil {
			continue
		}

		toIdx := instr.Accounts[1]
		if int(toIdx) >= len(parsed.Message.AccountKeys) {
			continue
		}
		out = append(out, Transfer{
			To:     parsed.Message.AccountKeys[toIdx].String(),
			Amount: lamports,
		})
	}
	return out
}

// tokenTransfers derives SPL token receipts from the pre/post token balance
// deltas, attributing each increase to the balance's owner.
func tokenTransfers(tx *rpc.GetTransactionResult) []Transfer {
	if tx.Meta == nil || tx.Meta.PreTokenBalances == nil || tx.Meta.PostTokenBalances == nil {
		return nil
	}

	var out []Transfer
	for _, post := range tx.Meta.PostTokenBalances {
		if post.Owner == nil || post.UiTokenAmount == nil {
			continue
		}
		postAmount := parseRawAmount(post.UiTokenAmount.Amount)

		var preAmount uint64
		for _, pre := range tx.Meta.PreTokenBalances {
			if pre.AccountIndex == post.AccountIndex {
				if pre.UiTokenAmount != nil {
					preAmount = parseRawAmount(pre.UiTokenAmount.Amount)
				}
				break
			}
		}

		if postAmount <= preAmount {
			continue
		}
		out = append(out, Transfer{
			To:     post.Owner.String(),
			Amount: postAmount - preAmount,
			Token:  true,
			Mint:   post.Mint.String(),
		})
	}
	return out
}

func parseRawAmount(s string) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
