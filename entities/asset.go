package entities

import "fmt"

// Asset identifies a mineable currency. Symbols are resolved once at
// submission ingress; everything downstream is keyed by the enum.
type Asset uint8

const (
	AssetBTC Asset = iota
	AssetETH
	AssetUSDT
	AssetEOS
	AssetECAP
)

var assetSymbols = map[Asset]string{
	AssetBTC:  "BTC",
	AssetETH:  "ETH",
	AssetUSDT: "USDT",
	AssetEOS:  "EOS",
	AssetECAP: "ECAP",
}

func ParseAsset(symbol string) (Asset, error) {
	for asset, s := range assetSymbols {
		if s == symbol {
			return asset, nil
		}
	}
	return 0, fmt.Errorf("symbol [%s]: %w", symbol, ErrUnknownSymbol)
}

func (a Asset) String() string {
	s, ok := assetSymbols[a]
	if !ok {
		return fmt.Sprintf("asset(%d)", uint8(a))
	}
	return s
}

// Assets returns all supported assets in a stable order.
func Assets() []Asset {
	return []Asset{AssetBTC, AssetETH, AssetUSDT, AssetEOS, AssetECAP}
}

// OriginTag marks which side of a transfer is claiming the work: the
// receiving payment client or the sending wallet. The two origins are
// complementary shares of one transfer, never both full.
type OriginTag uint8

const (
	OriginClient OriginTag = iota
	OriginWallet
)

func ParseOriginTag(s string) (OriginTag, error) {
	switch s {
	case "CLIENT":
		return OriginClient, nil
	case "WALLET":
		return OriginWallet, nil
	}
	return 0, fmt.Errorf("origin tag [%s]: %w", s, ErrUnknownOrigin)
}

func (o OriginTag) String() string {
	if o == OriginClient {
		return "CLIENT"
	}
	return "WALLET"
}

// Opposite returns the tag the counterparty would submit under.
func (o OriginTag) Opposite() OriginTag {
	if o == OriginClient {
		return OriginWallet
	}
	return OriginClient
}
