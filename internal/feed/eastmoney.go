package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"TrendSentinel/internal/model"
)

const defaultBaseURL = "https://push2.eastmoney.com"

// EastmoneyFetcher implements Fetcher against the Eastmoney push2 API.
type EastmoneyFetcher struct {
	Client  *http.Client
	BaseURL string
}

// NewEastmoneyFetcher creates a fetcher, optionally routing through a proxy.
func NewEastmoneyFetcher(baseURL, proxyURL string) *EastmoneyFetcher {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &EastmoneyFetcher{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (f *EastmoneyFetcher) Name() string { return "eastmoney" }

// secid maps a symbol to the push2 market-prefixed id: 1 for Shanghai,
// 0 for Shenzhen. Accepts "sh.600519", "sz.000001" or a bare code.
func secid(symbol string) string {
	s := strings.ToLower(symbol)
	switch {
	case strings.HasPrefix(s, "sh."):
		return "1." + s[3:]
	case strings.HasPrefix(s, "sz."):
		return "0." + s[3:]
	case strings.HasPrefix(s, "6"):
		return "1." + s
	default:
		return "0." + s
	}
}

func (f *EastmoneyFetcher) get(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("eastmoney fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("eastmoney read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("eastmoney: status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("eastmoney decode: %w", err)
	}
	return nil
}

// klineResponse is the kline endpoint payload. Each kline is a CSV row:
// date,open,close,high,low,volume,amount.
type klineResponse struct {
	Data *struct {
		Code   string   `json:"code"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

func (f *EastmoneyFetcher) DailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	u := fmt.Sprintf("%s/api/qt/stock/kline/get?secid=%s&klt=101&fqt=1&lmt=%d&end=20500101"+
		"&fields1=f1,f2,f3&fields2=f51,f52,f53,f54,f55,f56,f57",
		f.BaseURL, url.QueryEscape(secid(symbol)), days)

	var resp klineResponse
	if err := f.get(ctx, u, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil || len(resp.Data.Klines) == 0 {
		return nil, fmt.Errorf("eastmoney: no kline data for %s", symbol)
	}

	bars := make([]model.Bar, 0, len(resp.Data.Klines))
	for _, line := range resp.Data.Klines {
		bar, err := parseKline(symbol, line)
		if err != nil {
			return nil, fmt.Errorf("eastmoney: %w", err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseKline(symbol, line string) (model.Bar, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 6 {
		return model.Bar{}, fmt.Errorf("malformed kline %q", line)
	}
	date, err := time.Parse(model.DateLayout, parts[0])
	if err != nil {
		return model.Bar{}, fmt.Errorf("kline date %q: %w", parts[0], err)
	}
	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(parts[i+1], 64)
		if err != nil {
			return model.Bar{}, fmt.Errorf("kline field %q: %w", parts[i+1], err)
		}
		vals[i] = v
	}
	return model.Bar{
		Symbol: symbol,
		Date:   date,
		Open:   vals[0],
		Close:  vals[1],
		High:   vals[2],
		Low:    vals[3],
		Volume: vals[4],
	}, nil
}

// quoteResponse is the ulist endpoint payload. Field keys follow the
// push2 convention: f2 latest, f5 volume, f6 turnover, f12 code,
// f17 day open, f18 prior close.
type quoteResponse struct {
	Data *struct {
		Diff []quoteRow `json:"diff"`
	} `json:"data"`
}

type quoteRow struct {
	Latest     floatOrDash `json:"f2"`
	Volume     floatOrDash `json:"f5"`
	Turnover   floatOrDash `json:"f6"`
	Code       string      `json:"f12"`
	DayOpen    floatOrDash `json:"f17"`
	PriorClose floatOrDash `json:"f18"`
}

// floatOrDash tolerates the "-" placeholder the API returns for
// suspended symbols.
type floatOrDash float64

func (f *floatOrDash) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "-" || s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = floatOrDash(v)
	return nil
}

func (f *EastmoneyFetcher) Quotes(ctx context.Context, symbols []string) (map[string]model.Quote, error) {
	if len(symbols) == 0 {
		return map[string]model.Quote{}, nil
	}
	bySecid := make(map[string]string, len(symbols))
	ids := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		id := secid(sym)
		bySecid[id] = sym
		ids = append(ids, id)
	}

	u := fmt.Sprintf("%s/api/qt/ulist.np/get?secids=%s&fields=f2,f5,f6,f12,f17,f18&fltt=2&invt=2&pn=1&pz=%d",
		f.BaseURL, url.QueryEscape(strings.Join(ids, ",")), len(ids))

	var resp quoteResponse
	if err := f.get(ctx, u, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("eastmoney: empty quote response")
	}

	now := time.Now()
	out := make(map[string]model.Quote, len(resp.Data.Diff))
	for _, row := range resp.Data.Diff {
		sym := matchSymbol(bySecid, row.Code)
		if sym == "" || row.Latest <= 0 {
			continue
		}
		q := model.Quote{
			Symbol:    sym,
			Price:     float64(row.Latest),
			DayOpen:   float64(row.DayOpen),
			Volume:    float64(row.Volume),
			Timestamp: now,
		}
		// Session VWAP from cumulative turnover over cumulative volume.
		// Volume is reported in lots of 100 shares.
		if row.Volume > 0 && row.Turnover > 0 {
			q.VWAP = float64(row.Turnover) / (float64(row.Volume) * 100)
		}
		out[sym] = q
	}
	return out, nil
}

func matchSymbol(bySecid map[string]string, code string) string {
	for _, prefix := range []string{"1.", "0."} {
		if sym, ok := bySecid[prefix+code]; ok {
			return sym
		}
	}
	return ""
}
