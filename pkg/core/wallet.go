package core

// Wallet is the persisted wallet record. The private key is stored encrypted
// and is never decrypted by the storage layer.
type Wallet struct {
	UserID              int64  `json:"user_id"`
	Name                string `json:"name"`
	Address             string `json:"address"`
	EncryptedPrivateKey string `json:"encrypted_private_key"`
}

// WalletStorage defines the wallet persistence operations
type WalletStorage interface {
	CreateWallet(wallet *Wallet) error
	Wallets(userID int64) ([]Wallet, error)
	SetDefaultWallet(userID int64, name string) error
	DefaultWallet(userID int64) (Wallet, error)
}
