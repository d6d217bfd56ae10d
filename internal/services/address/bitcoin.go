package address

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// Bitcoin Cash network parameters. BCH shares Bitcoin's P2PKH derivation
// algorithm, and the legacy format uses the same version bytes as
// Bitcoin mainnet, so a key yields the same address string on both.
var bitcoinCashMainNetParams = chaincfg.Params{
	Name:             "bitcoincash_mainnet",
	PubKeyHashAddrID: 0x00,
	ScriptHashAddrID: 0x05,
	PrivateKeyID:     0x80,
}

// DeriveBitcoinCashAddress derives a Bitcoin Cash P2PKH address in legacy
// format (CashAddr encoding is a wire-level concern the handler layer owns).
func (s *AddressService) DeriveBitcoinCashAddress(key *hdkeychain.ExtendedKey) (string, error) {
	pubKey, err := key.ECPubKey()
	if err != nil {
		return "", fmt.Errorf("failed to get public key: %w", err)
	}

	address, err := btcutil.NewAddressPubKey(pubKey.SerializeCompressed(), &bitcoinCashMainNetParams)
	if err != nil {
		return "", fmt.Errorf("failed to create Bitcoin Cash address: %w", err)
	}

	return address.EncodeAddress(), nil
}
