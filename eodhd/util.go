package eodhd

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/jfmartel/backfolio"
)

// diskCache is an http.RoundTripper that stores successful responses under
// the OS temp dir. The cache key includes the current day, so entries
// expire daily; end-of-day data does not change faster than that.
type diskCache struct {
	base http.RoundTripper
}

func (c *diskCache) RoundTrip(req *http.Request) (*http.Response, error) {
	key := fmt.Sprintf("%s %s %s", backfolio.Today(), req.Method, req.URL.String())
	key = fmt.Sprintf("eodhd-%x", sha1.Sum([]byte(key)))

	if cached, err := c.get(key, req); err == nil {
		return cached, nil
	}

	resp, err := c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	// A failed cache write only costs a re-fetch tomorrow.
	c.put(key, resp)
	return resp, nil
}

func (c *diskCache) get(key string, req *http.Request) (*http.Response, error) {
	content, err := os.ReadFile(filepath.Join(os.TempDir(), key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewBuffer(content)), req)
}

func (c *diskCache) put(key string, resp *http.Response) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(os.TempDir(), key), content, 0o644)
}

// newDailyCachingClient returns an http.Client whose responses expire daily.
func newDailyCachingClient() *http.Client {
	return &http.Client{Transport: &diskCache{base: http.DefaultTransport}}
}

// getJSON performs a GET and unmarshals the JSON response body into data.
func (c *Client) getJSON(addr string, data any) error {
	resp, err := c.http.Get(addr)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s%s: %s", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, data)
}

// simplifyRatio reduces a split ratio expressed as two decimals (the API
// reports "2.000000/1.000000", sometimes with genuine fractions like
// "1.5/1") to the smallest integer pair.
func simplifyRatio(num, den decimal.Decimal) (int64, int64) {
	// Scale both sides by a common power of ten until they are integral.
	for !num.IsInteger() || !den.IsInteger() {
		num = num.Shift(1)
		den = den.Shift(1)
	}
	n, d := num.BigInt(), den.BigInt()
	gcd := new(big.Int).GCD(nil, nil, n, d)
	if gcd.Sign() != 0 {
		n.Div(n, gcd)
		d.Div(d, gcd)
	}
	return n.Int64(), d.Int64()
}
