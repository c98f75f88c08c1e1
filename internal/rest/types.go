package rest

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ExchangeInfo is the futures exchangeInfo payload
type ExchangeInfo struct {
	Timezone   string       `json:"timezone"`
	ServerTime int64        `json:"serverTime"`
	Symbols    []SymbolInfo `json:"symbols"`
}

// SymbolInfo describes one futures contract. Filters are kept raw and parsed
// by the filters package so unknown kinds survive.
type SymbolInfo struct {
	Symbol            string            `json:"symbol"`
	Pair              string            `json:"pair"`
	ContractType      string            `json:"contractType"`
	Status            string            `json:"status"`
	BaseAsset         string            `json:"baseAsset"`
	QuoteAsset        string            `json:"quoteAsset"`
	MarginAsset       string            `json:"marginAsset"`
	PricePrecision    int               `json:"pricePrecision"`
	QuantityPrecision int               `json:"quantityPrecision"`
	OrderTypes        []string          `json:"orderTypes"`
	Filters           []json.RawMessage `json:"filters"`
}

// MarkPrice is the premiumIndex response for a single symbol
type MarkPrice struct {
	Symbol          string          `json:"symbol"`
	MarkPrice       decimal.Decimal `json:"markPrice"`
	IndexPrice      decimal.Decimal `json:"indexPrice"`
	LastFundingRate decimal.Decimal `json:"lastFundingRate"`
	NextFundingTime int64           `json:"nextFundingTime"`
	Time            int64           `json:"time"`
}

// FuturesOrderRequest represents a futures order request
type FuturesOrderRequest struct {
	Symbol           string
	Side             string
	Type             string
	Quantity         decimal.Decimal
	Price            decimal.Decimal
	TimeInForce      string
	ReduceOnly       bool
	NewClientOrderID string
}

// FuturesOrderResponse represents a futures order response
type FuturesOrderResponse struct {
	OrderID       int64           `json:"orderId"`
	Symbol        string          `json:"symbol"`
	Status        string          `json:"status"`
	ClientOrderID string          `json:"clientOrderId"`
	Price         decimal.Decimal `json:"price"`
	AvgPrice      decimal.Decimal `json:"avgPrice"`
	OrigQty       decimal.Decimal `json:"origQty"`
	ExecutedQty   decimal.Decimal `json:"executedQty"`
	CumQuote      decimal.Decimal `json:"cumQuote"`
	TimeInForce   string          `json:"timeInForce"`
	Type          string          `json:"type"`
	ReduceOnly    bool            `json:"reduceOnly"`
	Side          string          `json:"side"`
	PositionSide  string          `json:"positionSide"`
	UpdateTime    int64           `json:"updateTime"`
}

// FuturesAccountResponse represents futures account info
type FuturesAccountResponse struct {
	TotalWalletBalance    decimal.Decimal   `json:"totalWalletBalance"`
	TotalUnrealizedProfit decimal.Decimal   `json:"totalUnrealizedProfit"`
	TotalMarginBalance    decimal.Decimal   `json:"totalMarginBalance"`
	AvailableBalance      decimal.Decimal   `json:"availableBalance"`
	MaxWithdrawAmount     decimal.Decimal   `json:"maxWithdrawAmount"`
	UpdateTime            int64             `json:"updateTime"`
	Assets                []FuturesAsset    `json:"assets"`
	Positions             []FuturesPosition `json:"positions"`
}

// FuturesAsset represents a futures account asset
type FuturesAsset struct {
	Asset            string          `json:"asset"`
	WalletBalance    decimal.Decimal `json:"walletBalance"`
	UnrealizedProfit decimal.Decimal `json:"unrealizedProfit"`
	MarginBalance    decimal.Decimal `json:"marginBalance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
}

// FuturesPosition represents a futures position slot
type FuturesPosition struct {
	Symbol           string          `json:"symbol"`
	UnrealizedProfit decimal.Decimal `json:"unrealizedProfit"`
	Leverage         string          `json:"leverage"`
	Isolated         bool            `json:"isolated"`
	EntryPrice       decimal.Decimal `json:"entryPrice"`
	PositionSide     string          `json:"positionSide"`
	PositionAmt      decimal.Decimal `json:"positionAmt"`
	UpdateTime       int64           `json:"updateTime"`
}
