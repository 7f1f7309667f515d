package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/roadsight/helmetwatch/pkg/detect"
	"github.com/roadsight/helmetwatch/pkg/pipeline"
	"github.com/roadsight/helmetwatch/pkg/source"
)

// mockFactory hands out mock sources so no hardware is touched.
type mockFactory struct{}

func (mockFactory) OpenCamera(int, source.ResolutionHint) (source.Source, error) {
	return source.NewMock(source.Frame{Data: []byte("jpeg"), Width: 64, Height: 48}), nil
}

func (mockFactory) OpenImage([]byte) (source.Source, error) {
	return source.NewMock(source.Frame{Data: []byte("jpeg"), Width: 64, Height: 48}), nil
}

func (mockFactory) DialStream(string) (source.Source, error) {
	return source.NewMock(source.Frame{Data: []byte("jpeg"), Width: 64, Height: 48}), nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	p := pipeline.New(pipeline.DefaultConfig(), detect.NewMock(nil), mockFactory{})
	s := NewServer("0", p, detect.NewCollector("http://127.0.0.1:1"))
	p.SetSink(s)

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)
	t.Cleanup(cancel)
	return s
}

func jsonReq(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeStatus(t *testing.T, resp *http.Response) StatusMessage {
	t.Helper()
	var msg StatusMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return msg
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(jsonReq(http.MethodGet, "/api/status", ""))
	if err != nil {
		t.Fatalf("Test() err = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	msg := decodeStatus(t, resp)
	if msg.State.ModeName != "idle" {
		t.Errorf("mode = %q, want %q", msg.State.ModeName, "idle")
	}
	if msg.PeriodMs != pipeline.DefaultConfig().SamplePeriod.Milliseconds() {
		t.Errorf("period_ms = %d, want default", msg.PeriodMs)
	}
}

func TestActivateCameraEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(jsonReq(http.MethodPost, "/api/source/camera", ""))
	if err != nil {
		t.Fatalf("Test() err = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	msg := decodeStatus(t, resp)
	if msg.State.ModeName != "sourcing" {
		t.Errorf("mode = %q, want %q", msg.State.ModeName, "sourcing")
	}
	if msg.State.SourceKey != "camera" {
		t.Errorf("source = %q, want %q", msg.State.SourceKey, "camera")
	}
}

func TestStartDetection_BadPeriod(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(jsonReq(http.MethodPost, "/api/detection/start", `{"period_ms": 50}`))
	if err != nil {
		t.Fatalf("Test() err = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for out-of-range period", resp.StatusCode)
	}
}

func TestConfigEndpoints(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(jsonReq(http.MethodPatch, "/api/config", `{"period_ms": 2000}`))
	if err != nil {
		t.Fatalf("Test() err = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var cfg ConfigResponse
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.PeriodMs != 2000 {
		t.Errorf("period_ms = %d, want 2000", cfg.PeriodMs)
	}
	if cfg.MinPeriodMs != pipeline.MinSamplePeriod.Milliseconds() {
		t.Errorf("min_period_ms = %d, want %d", cfg.MinPeriodMs, pipeline.MinSamplePeriod.Milliseconds())
	}

	// Rejected updates keep the prior period.
	resp, err = s.app.Test(jsonReq(http.MethodPatch, "/api/config", `{"period_ms": 50}`))
	if err != nil {
		t.Fatalf("Test() err = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	resp, err = s.app.Test(jsonReq(http.MethodGet, "/api/config", ""))
	if err != nil {
		t.Fatalf("Test() err = %v", err)
	}
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.PeriodMs != 2000 {
		t.Errorf("period_ms = %d after rejected update, want 2000", cfg.PeriodMs)
	}
}

func TestActivateStream_MissingURL(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(jsonReq(http.MethodPost, "/api/source/stream", `{}`))
	if err != nil {
		t.Fatalf("Test() err = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without url", resp.StatusCode)
	}
}

func TestUpload_MissingFile(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(jsonReq(http.MethodPost, "/api/source/upload", ""))
	if err != nil {
		t.Fatalf("Test() err = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without image", resp.StatusCode)
	}
}

func TestCollect_NoSource(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(jsonReq(http.MethodPost, "/api/collect", `{"label": "helmet"}`))
	if err != nil {
		t.Fatalf("Test() err = %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409 with no active source", resp.StatusCode)
	}
}

func TestCollect_MissingLabel(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(jsonReq(http.MethodPost, "/api/collect", `{}`))
	if err != nil {
		t.Fatalf("Test() err = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without label", resp.StatusCode)
	}
}

func TestDetectOnce_NoSource(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(jsonReq(http.MethodPost, "/api/detection/once", ""))
	if err != nil {
		t.Fatalf("Test() err = %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409 with no active source", resp.StatusCode)
	}
}
