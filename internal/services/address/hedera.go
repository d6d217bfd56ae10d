package address

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// DeriveHederaAddress derives a Hedera address
// Hedera uses account IDs in format: 0.0.xxxxx
// This is a simplified implementation
func (s *AddressService) DeriveHederaAddress(key *hdkeychain.ExtendedKey) (string, error) {
	// Get public key
	pubKey, err := key.ECPubKey()
	if err != nil {
		return "", err
	}

	// Hedera uses Ed25519 keys, but we'll derive from secp256k1
	// In practice, Hedera account IDs are assigned by the network
	// This creates a deterministic pseudo-account ID from the key
	pubKeyBytes := pubKey.SerializeCompressed()

	// Use the last 4 bytes to create a deterministic account number
	accountNum := uint32(pubKeyBytes[29])<<24 |
		uint32(pubKeyBytes[30])<<16 |
		uint32(pubKeyBytes[31])<<8 |
		uint32(pubKeyBytes[32])

	// Hedera account ID format: shard.realm.account
	// Using 0.0.xxxxx format for mainnet
	address := fmt.Sprintf("0.0.%d", accountNum)

	return address, nil
}
