package order

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	addressLength     = 20
	subaccountIdxSize = 24 // hex digits
)

// SubaccountID derives the subaccount of an address: the 20-byte address in hex,
// followed by the index padded to 24 hex digits.
func SubaccountID(address string, index uint32) (string, error) {
	raw, err := addressBytes(address)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("0x%s%0*x", hex.EncodeToString(raw), subaccountIdxSize, index), nil
}

// DefaultSubaccountID is the subaccount with index 0
func DefaultSubaccountID(address string) (string, error) {
	return SubaccountID(address, 0)
}

// addressBytes accepts either a bech32 account address or a 0x hex address
func addressBytes(address string) ([]byte, error) {
	address = strings.TrimSpace(address)

	if strings.HasPrefix(address, "0x") || strings.HasPrefix(address, "0X") {
		raw, err := hex.DecodeString(address[2:])
		if err != nil {
			return nil, fmt.Errorf("invalid hex address %q: %w", address, err)
		}
		if len(raw) != addressLength {
			return nil, fmt.Errorf("invalid hex address %q: expected %d bytes, got %d", address, addressLength, len(raw))
		}
		return raw, nil
	}

	_, data, err := bech32.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("invalid bech32 address %q: %w", address, err)
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("invalid bech32 address %q: %w", address, err)
	}
	if len(raw) != addressLength {
		return nil, fmt.Errorf("invalid bech32 address %q: expected %d bytes, got %d", address, addressLength, len(raw))
	}
	return raw, nil
}
