package credential

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return tok
}

func TestEdgeExchangerDecodesRegionAndExpiry(t *testing.T) {
	exp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	token := signedToken(t, jwt.MapClaims{"exp": exp.Unix(), "region": "eastasia"})

	var sawSignature, sawTrace string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		sawSignature = r.Header.Get("X-MT-Signature")
		sawTrace = r.Header.Get("X-ClientTraceId")
		_ = json.NewEncoder(w).Encode(map[string]string{"r": "eastasia", "t": token})
	}))
	defer srv.Close()

	ex := NewEdgeExchanger(srv.URL+"/apps/endpoint?api-version=1.0", "", srv.Client())
	cred, err := ex.Exchange(context.Background())
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if cred.Region != "eastasia" {
		t.Fatalf("Region = %q, want %q", cred.Region, "eastasia")
	}
	if cred.Token != token {
		t.Fatalf("Token mismatch")
	}
	if !cred.ExpiresAt.Equal(exp) {
		t.Fatalf("ExpiresAt = %v, want %v", cred.ExpiresAt, exp)
	}
	if !strings.HasPrefix(sawSignature, "MSTranslatorAndroidApp::") {
		t.Fatalf("X-MT-Signature = %q, want MSTranslatorAndroidApp prefix", sawSignature)
	}
	if sawTrace == "" {
		t.Fatalf("missing X-ClientTraceId header")
	}
}

func TestEdgeExchangerRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	ex := NewEdgeExchanger(srv.URL, "", srv.Client())
	_, err := ex.Exchange(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("Exchange() error = %v, want status 403", err)
	}
}

func TestExpiryFromTokenRequiresExp(t *testing.T) {
	token := signedToken(t, jwt.MapClaims{"region": "eastasia"})
	if _, err := ExpiryFromToken(token); err == nil {
		t.Fatalf("ExpiryFromToken() expected error for token without exp")
	}
	if _, err := ExpiryFromToken("not-a-jwt"); err == nil {
		t.Fatalf("ExpiryFromToken() expected error for malformed token")
	}
}

func TestSignComposesLowercasedMessage(t *testing.T) {
	at := time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC)
	nonce := "0123456789abcdef0123456789abcdef"
	got, err := Sign("https://dev.microsofttranslator.com/apps/endpoint?api-version=1.0", at, nonce)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	parts := strings.Split(got, "::")
	if len(parts) != 4 {
		t.Fatalf("Sign() = %q, want 4 parts", got)
	}
	date := "thu, 15 oct 2026 08:30:00 gmt"
	if parts[2] != date {
		t.Fatalf("date part = %q, want %q", parts[2], date)
	}
	if parts[3] != nonce {
		t.Fatalf("nonce part = %q, want %q", parts[3], nonce)
	}

	key, _ := base64.StdEncoding.DecodeString(signatureKeyB64)
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("mstranslatorandroidappdev.microsofttranslator.com%2fapps%2fendpoint%3fapi-version%3d1.0" + date + nonce))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if parts[1] != want {
		t.Fatalf("signature = %q, want %q", parts[1], want)
	}
}
