package solanarpc

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/solana"
	"memecoin-scout/internal/source"
)

const testMint = "So11111111111111111111111111111111111111112"

type fakeRPC struct {
	accounts map[string]*solana.AccountInfo
	err      error
	calls    int
}

func (f *fakeRPC) GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.accounts[pubkey], nil
}

func mintData(mintAuthority bool) string {
	b := make([]byte, solana.MintLayoutSize)
	if mintAuthority {
		binary.LittleEndian.PutUint32(b[0:4], 1)
		b[4] = 9
	}
	b[44] = 6
	b[45] = 1
	return base64.StdEncoding.EncodeToString(b)
}

func metadataData(name, symbol string) string {
	b := make([]byte, 65)
	b[0] = 4
	for _, s := range []string{name, symbol} {
		l := make([]byte, 4)
		binary.LittleEndian.PutUint32(l, uint32(len(s)))
		b = append(b, l...)
		b = append(b, s...)
	}
	return base64.StdEncoding.EncodeToString(append(b, make([]byte, 8)...))
}

func newTestEnricher(rpc solana.RPCClient) *Enricher {
	return New(Options{Client: rpc, Guard: source.NewGuard(Name, source.GuardConfig{}, nil)})
}

func TestEnricher_Enrich(t *testing.T) {
	pda, err := solana.MetadataPDA(testMint)
	if err != nil {
		t.Fatalf("MetadataPDA: %v", err)
	}
	rpc := &fakeRPC{accounts: map[string]*solana.AccountInfo{
		testMint: {Owner: solana.TokenProgramID, Data: mintData(true)},
		pda:      {Owner: solana.MetaplexProgramID, Data: metadataData("Wrapped SOL", "WSOL")},
	}}

	attrs, err := newTestEnricher(rpc).Enrich(context.Background(), &domain.Candidate{Chain: domain.ChainSolana, Address: testMint})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if attrs.MintAuthorityRevoked != domain.FlagFalse {
		t.Errorf("expected mint authority present, got %s", attrs.MintAuthorityRevoked)
	}
	if attrs.FreezeAuthorityRevoked != domain.FlagTrue {
		t.Errorf("expected freeze authority revoked, got %s", attrs.FreezeAuthorityRevoked)
	}
	if attrs.Name != "Wrapped SOL" || attrs.Symbol != "WSOL" {
		t.Errorf("unexpected metadata %q/%q", attrs.Name, attrs.Symbol)
	}
}

func TestEnricher_SkipsMetadataWhenNamed(t *testing.T) {
	rpc := &fakeRPC{accounts: map[string]*solana.AccountInfo{
		testMint: {Owner: solana.TokenProgramID, Data: mintData(false)},
	}}

	c := &domain.Candidate{Chain: domain.ChainSolana, Address: testMint, Name: "Dog", Symbol: "DOG"}
	attrs, err := newTestEnricher(rpc).Enrich(context.Background(), c)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if !attrs.MintAuthorityRevoked.IsTrue() {
		t.Error("expected revoked mint authority")
	}
	if rpc.calls != 1 {
		t.Errorf("expected a single RPC call, got %d", rpc.calls)
	}
}

func TestEnricher_NotATokenMint(t *testing.T) {
	rpc := &fakeRPC{accounts: map[string]*solana.AccountInfo{
		testMint: {Owner: "11111111111111111111111111111111", Data: mintData(false)},
	}}
	_, err := newTestEnricher(rpc).Enrich(context.Background(), &domain.Candidate{Chain: domain.ChainSolana, Address: testMint})
	if !errors.Is(err, source.ErrInvalidData) {
		t.Errorf("expected ErrInvalidData, got %v", err)
	}
}

func TestEnricher_InvalidAddress(t *testing.T) {
	_, err := newTestEnricher(&fakeRPC{}).Enrich(context.Background(), &domain.Candidate{Chain: domain.ChainSolana, Address: "0xabc"})
	if !errors.Is(err, source.ErrInvalidData) {
		t.Errorf("expected ErrInvalidData, got %v", err)
	}
}

func TestEnricher_MissingAccount(t *testing.T) {
	attrs, err := newTestEnricher(&fakeRPC{}).Enrich(context.Background(), &domain.Candidate{Chain: domain.ChainSolana, Address: testMint})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if attrs.MintAuthorityRevoked.Known() {
		t.Error("missing account must leave flags unknown")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want source.Outcome
	}{
		{fmt.Errorf("x: %w", solana.ErrRateLimited), source.OutcomeRateLimited},
		{fmt.Errorf("x: %w", solana.ErrUnavailable), source.OutcomeUnavailable},
		{fmt.Errorf("x: %w", solana.ErrInvalidResponse), source.OutcomeInvalidData},
		{context.DeadlineExceeded, source.OutcomeCancelled},
	}
	for _, tt := range tests {
		if got := source.Classify(classify(tt.err)); got != tt.want {
			t.Errorf("classify(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
