package chain

import (
	"errors"
	"os"

	solana "github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
)

// LoadWalletFromEnv reads the signing key from SIGNAL_WALLET_KEY_BASE58,
// loading a .env file first on a best-effort basis.
func LoadWalletFromEnv() (solana.PrivateKey, error) {
	_ = godotenv.Load()
	b58 := os.Getenv("SIGNAL_WALLET_KEY_BASE58")
	if b58 == "" {
		return nil, errors.New("SIGNAL_WALLET_KEY_BASE58 not set")
	}
	return solana.PrivateKeyFromBase58(b58)
}
