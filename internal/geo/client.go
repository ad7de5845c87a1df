package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/geocoder89/userhub/internal/observability"
)

// Unknown is the placeholder used whenever a lookup degrades.
const Unknown = "Unknown"

// StatusSuccess is the provider's own success marker.
const StatusSuccess = "success"

type Location struct {
	IP          string `json:"ip"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode,omitempty"`
	Region      string `json:"region,omitempty"`
	City        string `json:"city,omitempty"`
	Status      string `json:"status,omitempty"`
}

type Config struct {
	// AddressURL returns the caller's public IP as plain text (ipify style).
	AddressURL string
	// LookupURL maps an IP to a location, ip-api style: GET <LookupURL>/<ip>.
	LookupURL string
	Timeout   time.Duration
}

type Client struct {
	httpClient *http.Client
	addressURL string
	lookupURL  string
	log        *slog.Logger
	prom       *observability.Prom
}

func NewClient(cfg Config, log *slog.Logger, prom *observability.Prom) *Client {
	timeout := cfg.Timeout

	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		addressURL: cfg.AddressURL,
		lookupURL:  strings.TrimRight(cfg.LookupURL, "/"),
		log:        log,
		prom:       prom,
	}
}

func (c *Client) observe(op string, fn func() error) error {
	if c.prom != nil {
		return c.prom.ObserveGeo(op, fn)
	}
	return fn()
}

// CallerAddress resolves the caller's public IP via the address service.
// Any transport failure or empty body degrades to "Unknown"; the underlying
// error is returned alongside so the HTTP boundary can still report it.
func (c *Client) CallerAddress(ctx context.Context) (string, error) {
	var addr string

	err := c.observe("caller_address", func() error {
		body, err := c.get(ctx, c.addressURL)

		if err != nil {
			return err
		}

		addr = strings.TrimSpace(string(body))

		if addr == "" {
			return fmt.Errorf("address service returned empty body")
		}

		return nil
	})

	if err != nil {
		c.log.Warn("caller address lookup degraded", "err", err)
		return Unknown, err
	}

	return addr, nil
}

// lookupPayload matches the ip-api response shape. "query" echoes the
// requested IP.
type lookupPayload struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Region      string `json:"region"`
	City        string `json:"city"`
	Query       string `json:"query"`
}

// Lookup maps an address to a Location. A provider status other than
// "success" is an expected no-data condition: the default Location is
// returned with a nil error. Transport failures also return the default,
// plus the underlying error for callers that want to distinguish.
func (c *Client) Lookup(ctx context.Context, addr string) (Location, error) {
	var payload lookupPayload

	err := c.observe("lookup", func() error {
		body, err := c.get(ctx, c.lookupURL+"/"+url.PathEscape(addr))

		if err != nil {
			return err
		}

		return json.Unmarshal(body, &payload)
	})

	if err != nil {
		c.log.Warn("location lookup degraded", "ip", addr, "err", err)
		return defaultLocation(addr), err
	}

	if payload.Status != StatusSuccess {
		c.log.Warn("location lookup returned no data", "ip", addr, "status", payload.Status, "message", payload.Message)
		return defaultLocation(addr), nil
	}

	ip := payload.Query

	if ip == "" {
		ip = addr
	}

	return Location{
		IP:          ip,
		Country:     payload.Country,
		CountryCode: payload.CountryCode,
		Region:      payload.Region,
		City:        payload.City,
		Status:      payload.Status,
	}, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)

	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	// both providers answer with tiny payloads
	return io.ReadAll(io.LimitReader(resp.Body, 64<<10))
}

func defaultLocation(addr string) Location {
	return Location{
		IP:      addr,
		Country: Unknown,
	}
}
