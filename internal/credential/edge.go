package credential

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	signatureApp = "MSTranslatorAndroidApp"
	// Public HMAC key of the translator Android client.
	signatureKeyB64 = "oik6PdDdMnOXemTbwvMn9de/h9lFnfBaCWbGMMZqqoSaQaqUOqjVGm5NqsmjcBI1x+sS9ugjB55HEJWRiFXYFw=="
)

// EdgeExchanger obtains read-aloud credentials from the translator app endpoint.
type EdgeExchanger struct {
	url       string
	userAgent string
	client    *http.Client
	now       func() time.Time
}

func NewEdgeExchanger(authURL, userAgent string, client *http.Client) *EdgeExchanger {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "okhttp/4.5.0"
	}
	return &EdgeExchanger{
		url:       strings.TrimSpace(authURL),
		userAgent: userAgent,
		client:    client,
		now:       time.Now,
	}
}

type endpointResponse struct {
	Region string `json:"r"`
	Token  string `json:"t"`
}

func (e *EdgeExchanger) Exchange(ctx context.Context) (Credential, error) {
	signature, err := Sign(e.url, e.now(), strings.ReplaceAll(uuid.NewString(), "-", ""))
	if err != nil {
		return Credential{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, nil)
	if err != nil {
		return Credential{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept-Language", "zh-Hans")
	req.Header.Set("X-ClientVersion", "4.0.530a 5fe1dc6c")
	req.Header.Set("X-UserId", "0f04d16a175c411e")
	req.Header.Set("X-HomeGeographicRegion", "zh-Hans-CN")
	req.Header.Set("X-ClientTraceId", uuid.NewString())
	req.Header.Set("X-MT-Signature", signature)
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	res, err := e.client.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("identity request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return Credential{}, fmt.Errorf("read identity response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Credential{}, fmt.Errorf("identity http status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed endpointResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Credential{}, fmt.Errorf("decode identity response: %w", err)
	}
	expiresAt, err := ExpiryFromToken(parsed.Token)
	if err != nil {
		return Credential{}, err
	}
	return Credential{
		Region:    strings.TrimSpace(parsed.Region),
		Token:     parsed.Token,
		ExpiresAt: expiresAt,
	}, nil
}

// ExpiryFromToken reads the exp claim embedded in a JWT. The signature is not
// verified; the backend remains the authority on validity.
func ExpiryFromToken(token string) (time.Time, error) {
	if strings.TrimSpace(token) == "" {
		return time.Time{}, errors.New("empty token")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token claims: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return exp.Time, nil
}

// Sign builds the X-MT-Signature header value for a request to rawURL.
func Sign(rawURL string, at time.Time, nonce string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(signatureKeyB64)
	if err != nil {
		return "", fmt.Errorf("decode signature key: %w", err)
	}
	target := rawURL
	if _, rest, ok := strings.Cut(rawURL, "://"); ok {
		target = rest
	}
	date := strings.ToLower(at.UTC().Format(http.TimeFormat))
	message := strings.ToLower(signatureApp + encodeURIComponent(target) + date + nonce)

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	sum := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return signatureApp + "::" + sum + "::" + date + "::" + nonce, nil
}

func encodeURIComponent(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	for _, keep := range []string{"!", "*", "'", "(", ")"} {
		escaped = strings.ReplaceAll(escaped, url.QueryEscape(keep), keep)
	}
	return escaped
}
