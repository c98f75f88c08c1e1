package filters

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// rawFilter mirrors one entry of the exchangeInfo "filters" array
type rawFilter struct {
	FilterType  string `json:"filterType"`
	MinQty      string `json:"minQty,omitempty"`
	MaxQty      string `json:"maxQty,omitempty"`
	StepSize    string `json:"stepSize,omitempty"`
	TickSize    string `json:"tickSize,omitempty"`
	Notional    string `json:"notional,omitempty"`
	MinNotional string `json:"minNotional,omitempty"`
}

// ParseCatalog builds a catalog from the raw exchangeInfo filter entries of a
// symbol. Unrecognized filter kinds are kept as UnknownFilter.
func ParseCatalog(symbol string, raw []json.RawMessage) (Catalog, error) {
	catalog := Catalog{
		Symbol:  symbol,
		Filters: make([]Filter, 0, len(raw)),
	}

	for i, entry := range raw {
		var rf rawFilter
		if err := json.Unmarshal(entry, &rf); err != nil {
			return Catalog{}, fmt.Errorf("filter %d of %s: %w", i, symbol, err)
		}

		f, err := rf.toFilter()
		if err != nil {
			return Catalog{}, fmt.Errorf("filter %s of %s: %w", rf.FilterType, symbol, err)
		}
		catalog.Filters = append(catalog.Filters, f)
	}

	return catalog, nil
}

func (rf rawFilter) toFilter() (Filter, error) {
	switch rf.FilterType {
	case FilterTypeLotSize:
		minQty, err := parseDecimal("minQty", rf.MinQty)
		if err != nil {
			return nil, err
		}
		maxQty, err := parseDecimal("maxQty", rf.MaxQty)
		if err != nil {
			return nil, err
		}
		stepSize, err := parseDecimal("stepSize", rf.StepSize)
		if err != nil {
			return nil, err
		}
		return &LotSizeFilter{MinQty: minQty, MaxQty: maxQty, StepSize: stepSize}, nil

	case FilterTypePrice:
		tickSize, err := parseDecimal("tickSize", rf.TickSize)
		if err != nil {
			return nil, err
		}
		return &PriceFilter{TickSize: tickSize}, nil

	case FilterTypeMinNotional, FilterTypeNotional:
		value := rf.Notional
		if value == "" {
			value = rf.MinNotional
		}
		minNotional, err := parseDecimal("notional", value)
		if err != nil {
			return nil, err
		}
		return &MinNotionalFilter{MinNotional: minNotional}, nil
	}

	return &UnknownFilter{FilterType: rf.FilterType}, nil
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, fmt.Errorf("missing %s", field)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return d, nil
}

// catalogJSON is the cache representation of a catalog
type catalogJSON struct {
	Symbol  string            `json:"symbol"`
	Filters []json.RawMessage `json:"filters"`
}

// MarshalJSON encodes the catalog in the exchange's filterType-tagged form
func (c Catalog) MarshalJSON() ([]byte, error) {
	out := catalogJSON{
		Symbol:  c.Symbol,
		Filters: make([]json.RawMessage, 0, len(c.Filters)),
	}

	for _, f := range c.Filters {
		rf := rawFilter{FilterType: f.Type()}
		switch v := f.(type) {
		case *LotSizeFilter:
			rf.MinQty = v.MinQty.String()
			rf.MaxQty = v.MaxQty.String()
			rf.StepSize = v.StepSize.String()
		case *PriceFilter:
			rf.TickSize = v.TickSize.String()
		case *MinNotionalFilter:
			rf.FilterType = FilterTypeNotional
			rf.Notional = v.MinNotional.String()
		}

		data, err := json.Marshal(rf)
		if err != nil {
			return nil, err
		}
		out.Filters = append(out.Filters, data)
	}

	return json.Marshal(out)
}

// UnmarshalJSON decodes a catalog produced by MarshalJSON
func (c *Catalog) UnmarshalJSON(data []byte) error {
	var in catalogJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	parsed, err := ParseCatalog(in.Symbol, in.Filters)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
