package nostr

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// EncodeNpub converts a hex event pubkey to the bech32 npub form used
// in profile links (NIP-19).
func EncodeNpub(pubkey string) (string, error) {
	raw, err := hex.DecodeString(pubkey)
	if err != nil {
		return "", fmt.Errorf("invalid pubkey hex: %w", err)
	}

	grouped, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to regroup pubkey bits: %w", err)
	}

	npub, err := bech32.Encode("npub", grouped)
	if err != nil {
		return "", fmt.Errorf("failed to encode npub: %w", err)
	}
	return npub, nil
}
