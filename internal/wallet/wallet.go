package wallet

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"

	"withdrawal_settlement/models"
)

const (
	tronPrefix         = 0x41
	bitcoinP2PKH       = 0x00
	bitcoinP2SH        = 0x05
	base58PayloadLen   = 21
	checksumLen        = 4
	bech32Charset      = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	bech32MinLen       = 14
	bech32MaxLen       = 74
	bitcoinBech32Human = "bc1"
)

var (
	ErrBadEncoding = errors.New("address is not valid base58")
	ErrBadChecksum = errors.New("address checksum mismatch")
	ErrBadPrefix   = errors.New("address version byte does not match network")
	ErrBadFormat   = errors.New("address format is not valid for network")
)

// VerifyAddress checks the address encoding and checksum for network.
func VerifyAddress(network models.CryptoNetwork, address string) error {
	address = strings.TrimSpace(address)
	switch network {
	case models.NetworkTron:
		return verifyBase58Check(address, tronPrefix)
	case models.NetworkBitcoin:
		if strings.HasPrefix(strings.ToLower(address), bitcoinBech32Human) {
			return verifyBech32Shape(address)
		}
		return verifyBase58Check(address, bitcoinP2PKH, bitcoinP2SH)
	case models.NetworkEthereum:
		return verifyEthereum(address)
	}
	return fmt.Errorf("unsupported network %q", network)
}

func verifyBase58Check(address string, prefixes ...byte) error {
	raw, err := base58.Decode(address)
	if err != nil {
		return ErrBadEncoding
	}
	if len(raw) != base58PayloadLen+checksumLen {
		return ErrBadFormat
	}

	payload, sum := raw[:base58PayloadLen], raw[base58PayloadLen:]
	if !bytes.Equal(checksum(payload), sum) {
		return ErrBadChecksum
	}
	for _, p := range prefixes {
		if payload[0] == p {
			return nil
		}
	}
	return ErrBadPrefix
}

// checksum is the first four bytes of a double SHA-256.
func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumLen]
}

// verifyBech32Shape checks length and charset only; segwit checksum
// validation is left to the payout rail.
func verifyBech32Shape(address string) error {
	if len(address) < bech32MinLen || len(address) > bech32MaxLen {
		return ErrBadFormat
	}
	if address != strings.ToLower(address) && address != strings.ToUpper(address) {
		return ErrBadFormat
	}
	data := strings.ToLower(address)[len(bitcoinBech32Human):]
	for _, r := range data {
		if !strings.ContainsRune(bech32Charset, r) {
			return ErrBadFormat
		}
	}
	return nil
}

func verifyEthereum(address string) error {
	if !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return ErrBadFormat
	}
	body := address[2:]
	// All-lower or all-upper carries no EIP-55 checksum.
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return nil
	}
	if common.HexToAddress(address).Hex() != address {
		return ErrBadChecksum
	}
	return nil
}
