package eodhd

import (
	"fmt"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	"github.com/jfmartel/backfolio"
)

// DailyCloses fetches the end-of-day close per date for a ticker in the
// EODHD "SYMBOL.EXCHANGECODE" format.
func (c *Client) DailyCloses(ticker string, r backfolio.Range) (map[backfolio.Date]decimal.Decimal, error) {
	addr := fmt.Sprintf("%s/eod/%s?fmt=json&api_token=%s&from=%s&to=%s", c.base, ticker, c.apiKey, r.From, r.To)

	type row struct {
		Date  backfolio.Date  `json:"date"`
		Close decimal.Decimal `json:"close"`
	}
	var content []row
	if err := c.getJSON(addr, &content); err != nil {
		return nil, fmt.Errorf("eod %s: %w", ticker, err)
	}

	closes := make(map[backfolio.Date]decimal.Decimal, len(content))
	for _, row := range content {
		closes[row.Date] = row.Close
	}
	return closes, nil
}

// Dividends fetches the per-share dividend history, keyed by ex-dividend
// date.
func (c *Client) Dividends(ticker string, r backfolio.Range) (map[backfolio.Date]decimal.Decimal, error) {
	addr := fmt.Sprintf("%s/div/%s?fmt=json&api_token=%s&from=%s&to=%s", c.base, ticker, c.apiKey, r.From, r.To)

	type row struct {
		Date  backfolio.Date  `json:"date"`
		Value decimal.Decimal `json:"value"`
	}
	var content []row
	if err := c.getJSON(addr, &content); err != nil {
		return nil, fmt.Errorf("div %s: %w", ticker, err)
	}

	dividends := make(map[backfolio.Date]decimal.Decimal, len(content))
	for _, row := range content {
		dividends[row.Date] = row.Value
	}
	return dividends, nil
}

// Splits fetches the split history. The API formats ratios as decimal
// fractions like "2.000000/1.000000"; they are reduced to integer pairs.
func (c *Client) Splits(ticker string, r backfolio.Range) (map[backfolio.Date]backfolio.SplitRatio, error) {
	addr := fmt.Sprintf("%s/splits/%s?fmt=json&api_token=%s&from=%s&to=%s", c.base, ticker, c.apiKey, r.From, r.To)

	type row struct {
		Date  backfolio.Date `json:"date"`
		Split string         `json:"split"`
	}
	var content []row
	if err := c.getJSON(addr, &content); err != nil {
		return nil, fmt.Errorf("splits %s: %w", ticker, err)
	}

	splits := make(map[backfolio.Date]backfolio.SplitRatio, len(content))
	for _, row := range content {
		parts := strings.Split(row.Split, "/")
		if len(parts) != 2 {
			return nil, fmt.Errorf("splits %s: invalid ratio %q on %s", ticker, row.Split, row.Date)
		}
		num, err := decimal.NewFromString(parts[0])
		if err != nil {
			return nil, fmt.Errorf("splits %s: invalid numerator in %q: %w", ticker, row.Split, err)
		}
		den, err := decimal.NewFromString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("splits %s: invalid denominator in %q: %w", ticker, row.Split, err)
		}
		n, d := simplifyRatio(num, den)
		splits[row.Date] = backfolio.SplitRatio{Numerator: n, Denominator: d}
	}
	return splits, nil
}

// ExchangeRates fetches the daily price of one unit of base in quote from
// the forex feed, e.g. "USDCAD.FOREX".
func (c *Client) ExchangeRates(base, quote string, r backfolio.Range) (map[backfolio.Date]decimal.Decimal, error) {
	return c.DailyCloses(fmt.Sprintf("%s%s.FOREX", base, quote), r)
}

// TradingDays derives a market's trading days from the exchange-details
// endpoint: business days of the range minus the published holidays.
func (c *Client) TradingDays(market string, r backfolio.Range) ([]backfolio.Date, error) {
	code, err := c.exchangeCode(market)
	if err != nil {
		return nil, err
	}
	holidays, err := c.fetchHolidays(code, r)
	if err != nil {
		return nil, err
	}

	var days []backfolio.Date
	for day := range r.Days() {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if _, holiday := holidays[day]; holiday {
			continue
		}
		days = append(days, day)
	}
	return days, nil
}

// fetchHolidays extracts the holiday dates from the exchange-details
// payload. The holiday block is an object keyed by arbitrary indices, so it
// is walked with a jsonpath rather than a rigid struct.
func (c *Client) fetchHolidays(code string, r backfolio.Range) (map[backfolio.Date]struct{}, error) {
	addr := fmt.Sprintf("%s/exchange-details/%s?fmt=json&api_token=%s&from=%s&to=%s", c.base, code, c.apiKey, r.From, r.To)

	var payload any
	if err := c.getJSON(addr, &payload); err != nil {
		return nil, fmt.Errorf("exchange-details %s: %w", code, err)
	}

	jval, err := jsonpath.Get("$.ExchangeHolidays.*.Date", payload)
	if err != nil {
		// No holiday block at all is a valid answer.
		c.log.Debug().Str("exchange", code).Err(err).Msg("no holidays in exchange details")
		return map[backfolio.Date]struct{}{}, nil
	}
	jlist, ok := jval.([]any)
	if !ok {
		jlist = []any{jval}
	}

	holidays := make(map[backfolio.Date]struct{}, len(jlist))
	for _, item := range jlist {
		str, ok := item.(string)
		if !ok {
			continue
		}
		// Holiday timestamps come with a clock part, "2025-01-01 00:00:00".
		day, err := backfolio.ParseDate(strings.Fields(str)[0])
		if err != nil {
			c.log.Warn().Str("exchange", code).Str("date", str).Msg("unparseable holiday date, skipping")
			continue
		}
		holidays[day] = struct{}{}
	}
	return holidays, nil
}

// exchangeCode resolves a MIC like "XTSE" to EODHD's own exchange code.
// The mapping is fetched once and reused for the client's lifetime.
func (c *Client) exchangeCode(mic string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exchangeCodes == nil {
		addr := fmt.Sprintf("%s/exchanges-list/?fmt=json&api_token=%s", c.base, c.apiKey)
		type row struct {
			Code         string
			OperatingMIC string // may be a comma separated list
		}
		var content []row
		if err := c.getJSON(addr, &content); err != nil {
			return "", fmt.Errorf("exchanges-list: %w", err)
		}
		c.exchangeCodes = make(map[string]string)
		for _, info := range content {
			for _, m := range strings.Split(info.OperatingMIC, ",") {
				c.exchangeCodes[strings.TrimSpace(m)] = info.Code
			}
		}
	}
	code, ok := c.exchangeCodes[mic]
	if !ok {
		return "", fmt.Errorf("unknown market %q: no EODHD exchange operates this MIC", mic)
	}
	return code, nil
}
