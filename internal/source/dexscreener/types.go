package dexscreener

import (
	"strconv"
	"strings"
)

// searchResponse is the body of /latest/dex/search.
type searchResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []Pair `json:"pairs"`
}

// Pair is one trading pair as returned by DexScreener.
// Optional numeric fields are pointers so a missing value is not read as zero.
type Pair struct {
	ChainID       string      `json:"chainId"`
	DexID         string      `json:"dexId"`
	URL           string      `json:"url"`
	PairAddress   string      `json:"pairAddress"`
	BaseToken     Token       `json:"baseToken"`
	QuoteToken    Token       `json:"quoteToken"`
	PriceNative   string      `json:"priceNative"`
	PriceUsd      string      `json:"priceUsd"`
	Txns          Txns        `json:"txns"`
	Volume        Volume      `json:"volume"`
	PriceChange   PriceChange `json:"priceChange"`
	Liquidity     *Liquidity  `json:"liquidity"`
	Fdv           *float64    `json:"fdv"`
	MarketCap     *float64    `json:"marketCap"`
	PairCreatedAt int64       `json:"pairCreatedAt"`
	Info          *Info       `json:"info"`
}

// Token is one side of a pair.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Liquidity of a pair.
type Liquidity struct {
	Usd   *float64 `json:"usd"`
	Base  float64  `json:"base"`
	Quote float64  `json:"quote"`
}

// Txns holds buy and sell counts per window.
type Txns struct {
	M5  TxnSummary `json:"m5"`
	H1  TxnSummary `json:"h1"`
	H6  TxnSummary `json:"h6"`
	H24 TxnSummary `json:"h24"`
}

// TxnSummary contains buy and sell counts.
type TxnSummary struct {
	Buys  int64 `json:"buys"`
	Sells int64 `json:"sells"`
}

// Volume in USD per window.
type Volume struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

// PriceChange in percent per window.
type PriceChange struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

// Info carries optional project links.
type Info struct {
	ImageURL string   `json:"imageUrl"`
	Websites []Link   `json:"websites"`
	Socials  []Social `json:"socials"`
}

// Link is a labelled URL.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Social is a social account. Older payloads use platform/handle, newer ones type/url.
type Social struct {
	Type     string `json:"type"`
	Platform string `json:"platform"`
	Handle   string `json:"handle"`
	URL      string `json:"url"`
}

// priceUSD parses the string price. ok is false when the price is missing or malformed.
func (p *Pair) priceUSD() (float64, bool) {
	if p.PriceUsd == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(p.PriceUsd, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// liquidityUSD returns the USD liquidity and whether it was present.
func (p *Pair) liquidityUSD() (float64, bool) {
	if p.Liquidity == nil || p.Liquidity.Usd == nil || *p.Liquidity.Usd < 0 {
		return 0, false
	}
	return *p.Liquidity.Usd, true
}

// twitterHandle returns the twitter/x handle from the pair info, if any.
func (p *Pair) twitterHandle() string {
	if p.Info == nil {
		return ""
	}
	for _, s := range p.Info.Socials {
		kind := strings.ToLower(s.Type)
		if kind == "" {
			kind = strings.ToLower(s.Platform)
		}
		if kind != "twitter" && kind != "x" {
			continue
		}
		if s.Handle != "" {
			return strings.TrimPrefix(s.Handle, "@")
		}
		if s.URL != "" {
			u := strings.TrimRight(s.URL, "/")
			if i := strings.LastIndex(u, "/"); i >= 0 {
				return strings.TrimPrefix(u[i+1:], "@")
			}
		}
	}
	return ""
}
