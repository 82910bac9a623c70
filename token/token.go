// Package token issues and verifies the short-lived signed download tokens
// described in spec.md §4.1, via HS256 over a shared secret. Grounded on
// original_source's app/resources/download_token_manager.go and the
// teacher's existing github.com/dgrijalva/jwt-go dependency.
package token

import (
	"time"

	jwt "github.com/dgrijalva/jwt-go"

	"github.com/PilotDataPlatform/download/cmn"
)

const (
	baseTTL = 24 * time.Hour
	issuer  = "SERVICE DATA DOWNLOAD"
)

// Payload is the decoded claim set of a download token (spec.md §3,
// "Download token").
type Payload struct {
	FilePath      string                 `json:"file_path"`
	ContainerCode string                 `json:"container_code"`
	ContainerType string                 `json:"container_type"`
	Operator      string                 `json:"operator"`
	SessionID     string                 `json:"session_id"`
	JobID         string                 `json:"job_id"`
	Payload       map[string]interface{} `json:"payload"`
	IssuedAt      int64                  `json:"iat"`
	ExpiresAt     int64                  `json:"exp"`
}

// DatasetVersionPayload is the decoded claim set of a token issued by the
// dataset service for a frozen dataset version (spec.md §4.1). It shares the
// same secret as download tokens but carries `location` instead of
// `file_path`.
type DatasetVersionPayload struct {
	Location  string `json:"location"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Codec issues and verifies both token shapes with one symmetric secret.
type Codec struct {
	secret   []byte
	ttlScale int // multiplies the 24h base TTL (spec.md §4.1)
}

func NewCodec(secret string, ttlScale int) *Codec {
	if ttlScale <= 0 {
		ttlScale = 1
	}
	return &Codec{secret: []byte(secret), ttlScale: ttlScale}
}

func (c *Codec) ttl() time.Duration {
	return baseTTL * time.Duration(c.ttlScale)
}

// Issue mints a download token for p, filling IssuedAt/ExpiresAt.
func (c *Codec) Issue(p Payload) (string, error) {
	now := time.Now()
	p.IssuedAt = now.Unix()
	p.ExpiresAt = now.Add(c.ttl()).Unix()

	claims := jwt.MapClaims{
		"file_path":      p.FilePath,
		"issuer":         issuer,
		"operator":       p.Operator,
		"session_id":     p.SessionID,
		"job_id":         p.JobID,
		"container_code": p.ContainerCode,
		"container_type": p.ContainerType,
		"payload":        p.Payload,
		"iat":            p.IssuedAt,
		"exp":            p.ExpiresAt,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", cmn.NewErrTokenInvalid("sign: %v", err)
	}
	return signed, nil
}

// Verify decodes tok and validates signature, expiry, and the presence of
// file_path, per spec.md §4.1.
func (c *Codec) Verify(tok string) (Payload, error) {
	claims, err := c.parse(tok)
	if err != nil {
		return Payload{}, err
	}

	filePath, _ := claims["file_path"].(string)
	if filePath == "" {
		return Payload{}, cmn.NewErrTokenInvalid("missing file_path")
	}

	p := Payload{
		FilePath:      filePath,
		ContainerCode: stringField(claims, "container_code"),
		ContainerType: stringField(claims, "container_type"),
		Operator:      stringField(claims, "operator"),
		SessionID:     stringField(claims, "session_id"),
		JobID:         stringField(claims, "job_id"),
	}
	if m, ok := claims["payload"].(map[string]interface{}); ok {
		p.Payload = m
	}
	if iat, ok := claims["iat"].(float64); ok {
		p.IssuedAt = int64(iat)
	}
	if exp, ok := claims["exp"].(float64); ok {
		p.ExpiresAt = int64(exp)
	}
	return p, nil
}

// VerifyDatasetVersion decodes a dataset-version token, requiring `location`
// instead of `file_path` (spec.md §4.1).
func (c *Codec) VerifyDatasetVersion(tok string) (DatasetVersionPayload, error) {
	claims, err := c.parse(tok)
	if err != nil {
		return DatasetVersionPayload{}, err
	}

	location, _ := claims["location"].(string)
	if location == "" {
		return DatasetVersionPayload{}, cmn.NewErrTokenInvalid("missing location")
	}

	p := DatasetVersionPayload{Location: location}
	if iat, ok := claims["iat"].(float64); ok {
		p.IssuedAt = int64(iat)
	}
	if exp, ok := claims["exp"].(float64); ok {
		p.ExpiresAt = int64(exp)
	}
	return p, nil
}

func (c *Codec) parse(tok string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, cmn.NewErrTokenInvalid("unexpected signing method")
		}
		return c.secret, nil
	})

	if ve, ok := err.(*jwt.ValidationError); ok && ve.Errors&jwt.ValidationErrorExpired != 0 {
		return nil, cmn.NewErrTokenExpired("token expired")
	}
	if err != nil || parsed == nil || !parsed.Valid {
		return nil, cmn.NewErrTokenInvalid("malformed or unsigned token")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, cmn.NewErrTokenInvalid("unexpected claim shape")
	}
	return claims, nil
}

func stringField(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
