package clients

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	hyperliquid "github.com/sonirico/go-hyperliquid"

	"github.com/kij-exe/hypr-ledger/internal/domain"
)

// HyperliquidClient reads clearinghouse state through the Hyperliquid SDK.
type HyperliquidClient struct {
	info *hyperliquid.Info
}

// NewHyperliquidClient builds an SDK client. The ledger only reads public
// account data, so when privateKeyHex is empty a throwaway key is generated
// to satisfy the SDK constructor.
func NewHyperliquidClient(privateKeyHex string, baseURL string) (*HyperliquidClient, error) {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}

	var (
		privateKey *ecdsa.PrivateKey
		err        error
	)
	if key := strings.TrimPrefix(strings.TrimPrefix(privateKeyHex, "0x"), "0X"); key != "" {
		privateKey, err = crypto.HexToECDSA(key)
	} else {
		privateKey, err = crypto.GenerateKey()
	}
	if err != nil {
		return nil, errors.Wrap(err, "load hyperliquid key")
	}

	pub, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("error casting public key to ECDSA")
	}

	// Info and SpotMeta are fetched lazily by the SDK
	ex := hyperliquid.NewExchange(
		context.Background(),
		privateKey,
		baseURL,
		nil,
		"",
		crypto.PubkeyToAddress(*pub).Hex(),
		nil,
	)

	return &HyperliquidClient{info: ex.Info()}, nil
}

// AccountState returns open perp positions and balances of user.
func (c *HyperliquidClient) AccountState(ctx context.Context, user string) (domain.AccountState, error) {
	st, err := c.info.UserState(ctx, user)
	if err != nil {
		return domain.AccountState{}, errors.Wrap(err, "get user state")
	}

	// re-read through the wire form, which keeps null liquidation prices
	raw, err := json.Marshal(st)
	if err != nil {
		return domain.AccountState{}, errors.Wrap(err, "encode user state")
	}
	return decodeAccountState(raw)
}

type clearinghouseState struct {
	AssetPositions []struct {
		Position struct {
			Coin          string  `json:"coin"`
			Szi           string  `json:"szi"`
			EntryPx       *string `json:"entryPx"`
			LiquidationPx *string `json:"liquidationPx"`
			MarginUsed    string  `json:"marginUsed"`
			UnrealizedPnl string  `json:"unrealizedPnl"`
			Leverage      struct {
				Type  string `json:"type"`
				Value int    `json:"value"`
			} `json:"leverage"`
		} `json:"position"`
	} `json:"assetPositions"`
	MarginSummary struct {
		AccountValue    string `json:"accountValue"`
		TotalMarginUsed string `json:"totalMarginUsed"`
	} `json:"marginSummary"`
	Withdrawable string `json:"withdrawable"`
}

// decodeAccountState maps a clearinghouse state document. Flat positions are
// dropped and unparsable numbers read as zero.
func decodeAccountState(raw []byte) (domain.AccountState, error) {
	var st clearinghouseState
	if err := json.Unmarshal(raw, &st); err != nil {
		return domain.AccountState{}, errors.Wrap(err, "decode user state")
	}

	state := domain.AccountState{
		AccountValue:    decimalOrZero(st.MarginSummary.AccountValue),
		TotalMarginUsed: decimalOrZero(st.MarginSummary.TotalMarginUsed),
		Withdrawable:    decimalOrZero(st.Withdrawable),
	}

	for _, ap := range st.AssetPositions {
		p := ap.Position
		size, err := decimal.NewFromString(strings.TrimSpace(p.Szi))
		if err != nil || size.IsZero() {
			continue
		}

		pos := domain.OpenPosition{
			Coin:          p.Coin,
			Size:          size,
			MarginUsed:    decimalOrZero(p.MarginUsed),
			UnrealizedPnl: decimalOrZero(p.UnrealizedPnl),
			Leverage:      domain.Leverage{Type: p.Leverage.Type, Value: p.Leverage.Value},
		}
		if p.EntryPx != nil {
			pos.EntryPx = decimalOrZero(*p.EntryPx)
		}
		if p.LiquidationPx != nil {
			if d, err := decimal.NewFromString(*p.LiquidationPx); err == nil {
				pos.LiquidationPx = decimal.NewNullDecimal(d)
			}
		}
		state.Positions = append(state.Positions, pos)
	}

	return state, nil
}

func decimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
