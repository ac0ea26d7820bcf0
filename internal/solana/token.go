package solana

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program IDs.
const (
	TokenProgramID     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC8PnLyE1P8ZmMLqcW"
	MetaplexProgramID  = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
)

// MintLayoutSize is the size of an SPL Token mint account.
const MintLayoutSize = 82

// Mint is the decoded SPL Token mint account.
type Mint struct {
	MintAuthority   string // empty when revoked
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority string // empty when revoked
}

// MintAuthorityRevoked reports whether no one can mint new supply.
func (m *Mint) MintAuthorityRevoked() bool {
	return m.MintAuthority == ""
}

// FreezeAuthorityRevoked reports whether no one can freeze holder accounts.
func (m *Mint) FreezeAuthorityRevoked() bool {
	return m.FreezeAuthority == ""
}

// ParseMint decodes base64 mint account data.
// SPL Token Mint layout (82 bytes):
// - mintAuthority: COption<Pubkey> (36 bytes: 4 + 32)
// - supply: u64 (8 bytes)
// - decimals: u8 (1 byte)
// - isInitialized: bool (1 byte)
// - freezeAuthority: COption<Pubkey> (36 bytes: 4 + 32)
//
// Token-2022 mints share the same prefix followed by extensions.
func ParseMint(data string) (*Mint, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode mint data: %w", err)
	}
	if len(decoded) < MintLayoutSize {
		return nil, fmt.Errorf("mint data too short: %d", len(decoded))
	}

	mintAuth, err := parseCOptionPubkey(decoded[0:36])
	if err != nil {
		return nil, fmt.Errorf("mint authority: %w", err)
	}
	freezeAuth, err := parseCOptionPubkey(decoded[46:82])
	if err != nil {
		return nil, fmt.Errorf("freeze authority: %w", err)
	}

	return &Mint{
		MintAuthority:   mintAuth,
		Supply:          binary.LittleEndian.Uint64(decoded[36:44]),
		Decimals:        decoded[44],
		IsInitialized:   decoded[45] == 1,
		FreezeAuthority: freezeAuth,
	}, nil
}

// parseCOptionPubkey decodes a 4-byte tag followed by a 32-byte key.
func parseCOptionPubkey(b []byte) (string, error) {
	switch binary.LittleEndian.Uint32(b[0:4]) {
	case 0:
		return "", nil
	case 1:
		return base58.Encode(b[4:36]), nil
	default:
		return "", fmt.Errorf("invalid option tag %d", binary.LittleEndian.Uint32(b[0:4]))
	}
}

// Metadata is the subset of a Metaplex metadata account used for naming.
type Metadata struct {
	Name   string
	Symbol string
}

// ParseMetadata decodes base64 Metaplex Token Metadata account data.
// Metaplex Metadata layout:
// - key: u8 (1 byte, 4 for MetadataV1)
// - updateAuthority: Pubkey (32 bytes)
// - mint: Pubkey (32 bytes)
// - name: String (4 + length bytes)
// - symbol: String (4 + length bytes)
// ...and more fields
func ParseMetadata(data string) (*Metadata, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if len(decoded) < 69 {
		return nil, fmt.Errorf("metadata too short: %d", len(decoded))
	}
	if decoded[0] != 4 {
		return nil, fmt.Errorf("unexpected metadata key %d", decoded[0])
	}

	offset := 65
	name, offset, err := borshString(decoded, offset, 100)
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	symbol, _, err := borshString(decoded, offset, 20)
	if err != nil {
		return nil, fmt.Errorf("symbol: %w", err)
	}
	return &Metadata{Name: name, Symbol: symbol}, nil
}

// borshString reads a length-prefixed string, trimming the zero padding Metaplex uses.
func borshString(b []byte, offset, maxLen int) (string, int, error) {
	if offset+4 > len(b) {
		return "", offset, fmt.Errorf("truncated length at %d", offset)
	}
	n := int(binary.LittleEndian.Uint32(b[offset:]))
	offset += 4
	if n > maxLen || offset+n > len(b) {
		return "", offset, fmt.Errorf("invalid length %d at %d", n, offset)
	}
	s := strings.TrimRight(string(b[offset:offset+n]), "\x00")
	return strings.TrimSpace(s), offset + n, nil
}

// MetadataPDA derives the Metaplex metadata account for mint.
// Seeds: ["metadata", metaplex_program_id, mint]
func MetadataPDA(mint string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint: %w", err)
	}
	programBytes, err := base58.Decode(MetaplexProgramID)
	if err != nil {
		return "", fmt.Errorf("decode program: %w", err)
	}
	if len(mintBytes) != 32 {
		return "", fmt.Errorf("mint is %d bytes, want 32", len(mintBytes))
	}

	pda := derivePDA([][]byte{[]byte("metadata"), programBytes, mintBytes}, programBytes)
	if pda == "" {
		return "", fmt.Errorf("no off-curve bump for %s", mint)
	}
	return pda, nil
}

// derivePDA finds the first bump from 255 down whose address is off the ed25519 curve.
func derivePDA(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}
	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// IsValidPubkey reports whether s decodes to a 32-byte public key.
func IsValidPubkey(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	b, err := base58.Decode(s)
	return err == nil && len(b) == 32
}
