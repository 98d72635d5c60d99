package api

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func verifyThrough(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	var reached bool
	h := VerifySignature(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code == http.StatusOK && !reached {
		t.Fatal("handler not reached despite 200")
	}
	return rr
}

func TestVerifySignature_Valid(t *testing.T) {
	body := "command=%2Foffice&user_id=U1"
	req := httptest.NewRequest(http.MethodPost, "/commands", strings.NewReader(body))
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set(timestampHeader, ts)
	req.Header.Set(signatureHeader, Sign(testSecret, ts, []byte(body)))

	if rr := verifyThrough(t, req); rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200; body = %s", rr.Code, rr.Body.String())
	}
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	body := "command=%2Foffice"
	req := httptest.NewRequest(http.MethodPost, "/commands", strings.NewReader(body))
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set(timestampHeader, ts)
	req.Header.Set(signatureHeader, Sign("other-secret", ts, []byte(body)))

	if rr := verifyThrough(t, req); rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/commands", strings.NewReader("user_id=U2"))
	req.Header.Set(timestampHeader, ts)
	req.Header.Set(signatureHeader, Sign(testSecret, ts, []byte("user_id=U1")))

	if rr := verifyThrough(t, req); rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestVerifySignature_StaleTimestamp(t *testing.T) {
	orig := timeNow
	timeNow = func() time.Time { return time.Unix(1_700_000_000, 0) }
	t.Cleanup(func() { timeNow = orig })

	body := "command=%2Foffice"
	stale := strconv.FormatInt(1_700_000_000-int64(10*time.Minute/time.Second), 10)
	req := httptest.NewRequest(http.MethodPost, "/commands", strings.NewReader(body))
	req.Header.Set(timestampHeader, stale)
	req.Header.Set(signatureHeader, Sign(testSecret, stale, []byte(body)))

	if rr := verifyThrough(t, req); rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for stale timestamp", rr.Code)
	}
}

func TestVerifySignature_MissingHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/commands", strings.NewReader("x=y"))

	if rr := verifyThrough(t, req); rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for missing headers", rr.Code)
	}
}
