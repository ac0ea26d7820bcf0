package solana

import (
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
)

const wsolMint = "So11111111111111111111111111111111111111112"

func buildMint(mintAuth, freezeAuth []byte, supply uint64, decimals uint8) string {
	b := make([]byte, MintLayoutSize)
	if mintAuth != nil {
		binary.LittleEndian.PutUint32(b[0:4], 1)
		copy(b[4:36], mintAuth)
	}
	binary.LittleEndian.PutUint64(b[36:44], supply)
	b[44] = decimals
	b[45] = 1
	if freezeAuth != nil {
		binary.LittleEndian.PutUint32(b[46:50], 1)
		copy(b[50:82], freezeAuth)
	}
	return base64.StdEncoding.EncodeToString(b)
}

func TestParseMint(t *testing.T) {
	auth := make([]byte, 32)
	for i := range auth {
		auth[i] = byte(i + 1)
	}

	tests := []struct {
		name          string
		data          string
		mintRevoked   bool
		freezeRevoked bool
	}{
		{"both revoked", buildMint(nil, nil, 1_000_000_000, 6), true, true},
		{"mint authority set", buildMint(auth, nil, 1, 9), false, true},
		{"freeze authority set", buildMint(nil, auth, 1, 9), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMint(tt.data)
			if err != nil {
				t.Fatalf("ParseMint: %v", err)
			}
			if m.MintAuthorityRevoked() != tt.mintRevoked {
				t.Errorf("mint revoked = %v, want %v", m.MintAuthorityRevoked(), tt.mintRevoked)
			}
			if m.FreezeAuthorityRevoked() != tt.freezeRevoked {
				t.Errorf("freeze revoked = %v, want %v", m.FreezeAuthorityRevoked(), tt.freezeRevoked)
			}
			if !m.IsInitialized {
				t.Error("expected initialized mint")
			}
		})
	}

	m, _ := ParseMint(buildMint(auth, nil, 1_000_000_000, 6))
	if m.Supply != 1_000_000_000 || m.Decimals != 6 {
		t.Errorf("unexpected supply/decimals %d/%d", m.Supply, m.Decimals)
	}
	if m.MintAuthority != base58.Encode(auth) {
		t.Errorf("unexpected mint authority %s", m.MintAuthority)
	}
}

func TestParseMint_Invalid(t *testing.T) {
	if _, err := ParseMint("not base64!"); err == nil {
		t.Error("expected decode error")
	}
	if _, err := ParseMint(base64.StdEncoding.EncodeToString(make([]byte, 40))); err == nil {
		t.Error("expected short data error")
	}

	b := make([]byte, MintLayoutSize)
	binary.LittleEndian.PutUint32(b[0:4], 7)
	if _, err := ParseMint(base64.StdEncoding.EncodeToString(b)); err == nil {
		t.Error("expected invalid option tag error")
	}
}

func buildMetadata(name, symbol string, nameLen, symbolLen int) string {
	b := make([]byte, 65)
	b[0] = 4
	appendStr := func(s string, n int) {
		l := make([]byte, 4)
		binary.LittleEndian.PutUint32(l, uint32(n))
		b = append(b, l...)
		padded := make([]byte, n)
		copy(padded, s)
		b = append(b, padded...)
	}
	appendStr(name, nameLen)
	appendStr(symbol, symbolLen)
	b = append(b, make([]byte, 40)...)
	return base64.StdEncoding.EncodeToString(b)
}

func TestParseMetadata(t *testing.T) {
	meta, err := ParseMetadata(buildMetadata("Dog Coin", "DOG", 32, 10))
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	if meta.Name != "Dog Coin" || meta.Symbol != "DOG" {
		t.Errorf("unexpected metadata %+v", meta)
	}
}

func TestParseMetadata_Invalid(t *testing.T) {
	b := make([]byte, 100)
	b[0] = 1
	if _, err := ParseMetadata(base64.StdEncoding.EncodeToString(b)); err == nil {
		t.Error("expected wrong key error")
	}
	if _, err := ParseMetadata(buildMetadata("x", "y", 500, 10)); err == nil {
		t.Error("expected length error")
	}
}

func TestMetadataPDA(t *testing.T) {
	pda, err := MetadataPDA(wsolMint)
	if err != nil {
		t.Fatalf("MetadataPDA: %v", err)
	}
	if !IsValidPubkey(pda) {
		t.Errorf("PDA is not a valid pubkey: %s", pda)
	}
	raw, _ := base58.Decode(pda)
	if isOnCurve(raw) {
		t.Error("PDA must be off curve")
	}

	again, _ := MetadataPDA(wsolMint)
	if again != pda {
		t.Errorf("PDA derivation not deterministic: %s != %s", pda, again)
	}

	if _, err := MetadataPDA("0OIl"); err == nil {
		t.Error("expected error for invalid mint")
	}
}

func TestIsValidPubkey(t *testing.T) {
	if !IsValidPubkey(wsolMint) {
		t.Error("wsol mint must be valid")
	}
	if IsValidPubkey("0xabc") {
		t.Error("EVM address must be invalid")
	}
}
