package feed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"crypto-analytics/src/models"
)

// -----------------------------------------------------------------------------
// Combined-stream message decoding
//
// Every inbound frame is an envelope {"stream": "<symbol>@<topic>", "data":
// {...}}; the stream-name suffix selects the payload shape. Numeric fields
// arrive as JSON strings on the upstream wire.
// -----------------------------------------------------------------------------

const (
	streamSuffixTicker = "@ticker"
	streamSuffixTrade  = "@trade"
)

type combinedStreamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// -----------------------------------------------------------------------------

// tickerPayload mirrors the upstream 24h ticker message.
type tickerPayload struct {
	Symbol         string `json:"s"`
	LastPrice      string `json:"c"`
	PriceChangePct string `json:"P"`
	Volume         string `json:"v"`
	High           string `json:"h"`
	Low            string `json:"l"`
	EventTime      int64  `json:"E"`
}

// -----------------------------------------------------------------------------

// tradePayload mirrors the upstream trade message.
type tradePayload struct {
	Symbol       string `json:"s"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	IsBuyerMaker bool   `json:"m"`
	TradeTime    int64  `json:"T"`
}

// -----------------------------------------------------------------------------

// parseMessage demultiplexes one raw frame into a normalized event.
// Returns (nil, nil) for unrecognized stream shapes, which are dropped
// silently; a non-nil error means a malformed payload worth counting.
func parseMessage(raw []byte) (*models.MMarketEvent, error) {
	var envelope combinedStreamEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}

	switch {
	case strings.HasSuffix(envelope.Stream, streamSuffixTicker):
		tick, err := parseTicker(envelope.Data)
		if err != nil {
			return nil, err
		}
		return &models.MMarketEvent{Type: models.EventTypeTicker, Tick: tick}, nil

	case strings.HasSuffix(envelope.Stream, streamSuffixTrade):
		trade, err := parseTrade(envelope.Data)
		if err != nil {
			return nil, err
		}
		return &models.MMarketEvent{Type: models.EventTypeTrade, Trade: trade}, nil

	default:
		// Unknown stream shape, not an error.
		return nil, nil
	}
}

// -----------------------------------------------------------------------------

func parseTicker(data json.RawMessage) (*models.MPriceTick, error) {
	var payload tickerPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("malformed ticker payload: %w", err)
	}

	if payload.Symbol == "" || payload.EventTime == 0 {
		return nil, fmt.Errorf("ticker payload missing symbol or event time")
	}

	price, err := strconv.ParseFloat(payload.LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("ticker payload has invalid price %q: %w", payload.LastPrice, err)
	}

	volume, err := strconv.ParseFloat(payload.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("ticker payload has invalid volume %q: %w", payload.Volume, err)
	}

	tick := &models.MPriceTick{
		Symbol:         payload.Symbol,
		Price:          price,
		Volume24h:      volume,
		PriceChange24h: optionalFloat(payload.PriceChangePct),
		High24h:        optionalFloat(payload.High),
		Low24h:         optionalFloat(payload.Low),
		EventTime:      payload.EventTime,
	}
	return tick, nil
}

// -----------------------------------------------------------------------------

func parseTrade(data json.RawMessage) (*models.MTradeEvent, error) {
	var payload tradePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("malformed trade payload: %w", err)
	}

	if payload.Symbol == "" || payload.TradeTime == 0 {
		return nil, fmt.Errorf("trade payload missing symbol or trade time")
	}

	price, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("trade payload has invalid price %q: %w", payload.Price, err)
	}

	quantity, err := strconv.ParseFloat(payload.Quantity, 64)
	if err != nil {
		return nil, fmt.Errorf("trade payload has invalid quantity %q: %w", payload.Quantity, err)
	}

	return &models.MTradeEvent{
		Symbol:       payload.Symbol,
		Price:        price,
		Quantity:     quantity,
		IsBuyerMaker: payload.IsBuyerMaker,
		EventTime:    payload.TradeTime,
	}, nil
}

// -----------------------------------------------------------------------------

// optionalFloat parses fields the data model treats as optional; an absent
// or unparsable value becomes nil rather than failing the whole message.
func optionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
