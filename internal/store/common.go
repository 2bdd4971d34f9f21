package store

import "golang.org/x/crypto/blake2b"

// Prefix constants for all store types
const (
	prefixBalance byte = iota + 1
	prefixDefinition
	prefixSupply
)

// PrefixToString converts a prefix byte to a string
func PrefixToString(p byte) string {
	switch p {
	case prefixBalance:
		return "balance"
	case prefixDefinition:
		return "definition"
	case prefixSupply:
		return "supply"
	default:
		return "unknown"
	}
}

// makeKey creates a key from a prefix and a list of parts
func makeKey(prefix byte, parts ...[]byte) []byte {
	n := 1
	for _, p := range parts {
		n += len(p)
	}
	key := make([]byte, 1, n)
	key[0] = prefix
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

// accountPrefix is the fixed-width prefix shared by every balance key of
// address.
func accountPrefix(address string) []byte {
	h := blake2b.Sum256([]byte(address))
	return makeKey(prefixBalance, h[:])
}

func balanceKey(address, denom string) []byte {
	return append(accountPrefix(address), denom...)
}

func definitionKey(denom string) []byte {
	return makeKey(prefixDefinition, []byte(denom))
}

func supplyKey(denom string) []byte {
	return makeKey(prefixSupply, []byte(denom))
}

const (
	ErrFailedBatchCommit = "failed to commit batch: %w"
)
