package backfolio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// eventEnvelope is the persisted form of an event: the concrete fields plus
// a "kind" discriminator, one JSON object per line.
type eventEnvelope struct {
	Kind EventKind `json:"kind"`
}

// DecodeEvents reads a JSONL stream of events, one JSON object per line
// with a "kind" discriminator, and returns a normalized EventLog.
func DecodeEvents(r io.Reader) (*EventLog, error) {
	log := &EventLog{}
	scanner := bufio.NewScanner(r)
	// The default 64 KiB line cap is too tight for logs that went through
	// tools re-serializing decimals with full precision.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var envelope eventEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("line %d: could not identify event kind in %q: %w", line, string(raw), err)
		}

		var event Event
		switch envelope.Kind {
		case KindTrade:
			var t Trade
			if err := json.Unmarshal(raw, &t); err != nil {
				return nil, fmt.Errorf("line %d: bad trade: %w", line, err)
			}
			event = t
		case KindDividend:
			var d DividendPayment
			if err := json.Unmarshal(raw, &d); err != nil {
				return nil, fmt.Errorf("line %d: bad dividend: %w", line, err)
			}
			event = d
		case KindConversion:
			var c CurrencyConversion
			if err := json.Unmarshal(raw, &c); err != nil {
				return nil, fmt.Errorf("line %d: bad conversion: %w", line, err)
			}
			event = c
		default:
			return nil, fmt.Errorf("line %d: unknown event kind %q", line, envelope.Kind)
		}
		if err := log.Append(event); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading event log: %w", err)
	}
	return log, nil
}

// EncodeEvent writes a single event as one JSONL line.
func EncodeEvent(w io.Writer, e Event) error {
	var payload any
	switch v := e.(type) {
	case Trade:
		payload = struct {
			Kind EventKind `json:"kind"`
			Trade
		}{KindTrade, v}
	case DividendPayment:
		payload = struct {
			Kind EventKind `json:"kind"`
			DividendPayment
		}{KindDividend, v}
	case CurrencyConversion:
		payload = struct {
			Kind EventKind `json:"kind"`
			CurrencyConversion
		}{KindConversion, v}
	default:
		return fmt.Errorf("unsupported event type %T", e)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	_, err = w.Write(raw)
	return err
}

// EncodeEvents writes the whole log in chronological order, conversions
// before trades before dividends within a day, matching application order.
func EncodeEvents(w io.Writer, log *EventLog) error {
	span, ok := log.Span()
	if !ok {
		return nil
	}
	for day := range span.Days() {
		for _, c := range log.ConversionsOn(day) {
			if err := EncodeEvent(w, c); err != nil {
				return err
			}
		}
		for _, t := range log.TradesOn(day) {
			if err := EncodeEvent(w, t); err != nil {
				return err
			}
		}
		for _, d := range log.DividendsOn(day) {
			if err := EncodeEvent(w, d); err != nil {
				return err
			}
		}
	}
	return nil
}
