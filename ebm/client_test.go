package ebm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(server *httptest.Server) *ebmClient {
	ticks := make(chan time.Time, 16)
	for i := 0; i < cap(ticks); i++ {
		ticks <- time.Now()
	}
	return &ebmClient{
		baseURL: server.URL,
		http:    server.Client(),
		limiter: ticks,
	}
}

func TestSendDecodesEnvelope(t *testing.T) {
	var gotPath string
	var gotBody SelectRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"resultCd":"000","resultMsg":"It is succeeded","resultDt":"20260828120000","data":{"clsList":[]}}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	resp := client.Send(context.Background(), EndpointSelectCodes, SelectRequest{
		Tin:       "123456789",
		BhfId:     "00",
		LastReqDt: "20180101000000",
	})

	if gotPath != EndpointSelectCodes {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody.Tin != "123456789" || gotBody.LastReqDt != "20180101000000" {
		t.Fatalf("request body = %+v", gotBody)
	}
	if !resp.IsSuccess() {
		t.Fatalf("resultCd = %q, want success", resp.ResultCode)
	}
	if !resp.HasData() {
		t.Fatalf("expected data payload")
	}
}

func TestSendNormalizesTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestClient(server)
	resp := client.Send(context.Background(), EndpointSaveItems, ItemPayload{})

	if resp.ResultCode != ResultCodeTransportError {
		t.Fatalf("resultCd = %q, want %q", resp.ResultCode, ResultCodeTransportError)
	}
	if resp.ResultMessage == "" {
		t.Fatalf("transport failure must carry a cause")
	}
	if resp.HasData() {
		t.Fatalf("failure envelope must not carry data")
	}
}

func TestSendNormalizesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server)
	resp := client.Send(context.Background(), EndpointSaveSales, SalesPayload{})

	if resp.ResultCode != ResultCodeTransportError {
		t.Fatalf("resultCd = %q, want %q", resp.ResultCode, ResultCodeTransportError)
	}
	if !strings.Contains(resp.ResultMessage, "502") {
		t.Fatalf("resultMsg = %q, want status code included", resp.ResultMessage)
	}
}

func TestSendNormalizesMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := newTestClient(server)
	resp := client.Send(context.Background(), EndpointSelectNotices, SelectRequest{})

	if resp.ResultCode != ResultCodeTransportError {
		t.Fatalf("resultCd = %q, want %q", resp.ResultCode, ResultCodeTransportError)
	}
	if !strings.Contains(resp.ResultMessage, "decode response") {
		t.Fatalf("resultMsg = %q", resp.ResultMessage)
	}
}
