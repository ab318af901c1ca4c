package ebm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Authority endpoint paths, relative to EBM_API_BASE_URL.
const (
	EndpointInitInfo      = "/initializer/selectInitInfo"
	EndpointSaveItems     = "/items/saveItems"
	EndpointSaveStock     = "/stock/saveStockItems"
	EndpointSavePurchases = "/trnsPurchase/savePurchases"
	EndpointSaveSales     = "/trnsSales/saveSales"
	EndpointSelectCodes   = "/code/selectCodes"
	EndpointSelectNotices = "/notice/selectNotices"
)

const authorityDateTimeFormat = "20060102150405"

// Gateway sends a payload to one authority endpoint. Implementations never
// return an error: transport and non-2xx failures are normalized into the
// response envelope with resultCd E999 so callers have a single failure path.
type Gateway interface {
	Send(ctx context.Context, path string, payload any) Response
}

type ebmClient struct {
	baseURL string
	http    *http.Client
	limiter <-chan time.Time
}

// NewClient builds the production gateway from environment configuration.
func NewClient() Gateway {
	baseURL := strings.TrimSpace(os.Getenv("EBM_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "http://localhost:8080/ebm/v1"
	}
	rateLimitPerMin := int64(60)
	if v := strings.TrimSpace(os.Getenv("EBM_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &ebmClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: time.Tick(interval),
	}
}

func failureResponse(cause string) Response {
	return Response{
		ResultCode:    ResultCodeTransportError,
		ResultMessage: cause,
		ResultDate:    time.Now().Format(authorityDateTimeFormat),
		Data:          nil,
	}
}

func (c *ebmClient) Send(ctx context.Context, path string, payload any) Response {
	<-c.limiter

	body, err := json.Marshal(payload)
	if err != nil {
		return failureResponse(fmt.Sprintf("encode payload: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return failureResponse(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return failureResponse(err.Error())
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failureResponse(fmt.Sprintf("ebm api error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	var parsed Response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return failureResponse(fmt.Sprintf("decode response: %v", err))
	}
	return parsed
}
