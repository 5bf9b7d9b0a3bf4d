package v1

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Token refusals. Each maps to an error code in the 401 body.
var (
    errTokenMissing   = errors.New("missing bearer token")
    errTokenMalformed = errors.New("malformed token")
    errTokenAlg       = errors.New("unsupported token algorithm")
    errTokenSignature = errors.New("invalid token signature")
    errTokenExpired   = errors.New("token expired")
    errTokenNotYet    = errors.New("token not yet valid")
    errTokenIssuer    = errors.New("token issuer not accepted")
    errTokenAudience  = errors.New("token audience not accepted")
    errTokenCompany   = errors.New("token company_id is not a valid id")
)

// audience decodes the aud claim, which may be a string or a list.
type audience []string

func (a *audience) UnmarshalJSON(b []byte) error {
    var one string
    if err := json.Unmarshal(b, &one); err == nil {
        *a = audience{one}
        return nil
    }
    var many []string
    if err := json.Unmarshal(b, &many); err != nil {
        return err
    }
    *a = many
    return nil
}

func (a audience) has(want string) bool {
    for _, s := range a {
        if strings.EqualFold(s, want) {
            return true
        }
    }
    return false
}

type JWTClaims struct {
    Issuer    string   `json:"iss,omitempty"`
    Subject   string   `json:"sub,omitempty"`
    Audience  audience `json:"aud,omitempty"`
    ExpiresAt int64    `json:"exp,omitempty"`
    NotBefore int64    `json:"nbf,omitempty"`
    IssuedAt  int64    `json:"iat,omitempty"`
    // CompanyID scopes the token to one company's books and forms.
    CompanyID string `json:"company_id,omitempty"`
}

// AuthConfig configures bearer-token checks. An empty Secret disables auth.
type AuthConfig struct {
    Secret   string
    Issuer   string
    Audience string
}

// tokenVerifier checks HS256 tokens against one secret.
type tokenVerifier struct {
    secret   []byte
    issuer   string
    audience string
    now      func() time.Time
}

func newTokenVerifier(cfg AuthConfig) (tokenVerifier, bool) {
    secret := strings.TrimSpace(cfg.Secret)
    if secret == "" {
        return tokenVerifier{}, false
    }
    return tokenVerifier{
        secret:   []byte(secret),
        issuer:   strings.TrimSpace(cfg.Issuer),
        audience: strings.TrimSpace(cfg.Audience),
        now:      time.Now,
    }, true
}

func bearerToken(r *http.Request) (string, error) {
    h := strings.TrimSpace(r.Header.Get("Authorization"))
    scheme, tok, ok := strings.Cut(h, " ")
    if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
        return "", errTokenMissing
    }
    return strings.TrimSpace(tok), nil
}

// verify checks the signature, then the time window, issuer, audience and
// company claim. The returned claims carry a canonical CompanyID.
func (v tokenVerifier) verify(token string) (JWTClaims, error) {
    head, body, sig, err := splitToken(token)
    if err != nil {
        return JWTClaims{}, err
    }
    var hdr struct {
        Alg string `json:"alg"`
    }
    if err := json.Unmarshal(head, &hdr); err != nil {
        return JWTClaims{}, errTokenMalformed
    }
    if !strings.EqualFold(hdr.Alg, "HS256") {
        return JWTClaims{}, errTokenAlg
    }
    signed := token[:strings.LastIndexByte(token, '.')]
    mac := hmac.New(sha256.New, v.secret)
    mac.Write([]byte(signed))
    if !hmac.Equal(sig, mac.Sum(nil)) {
        return JWTClaims{}, errTokenSignature
    }

    var c JWTClaims
    if err := json.Unmarshal(body, &c); err != nil {
        return JWTClaims{}, errTokenMalformed
    }
    now := v.now().Unix()
    switch {
    case c.NotBefore != 0 && now < c.NotBefore:
        return JWTClaims{}, errTokenNotYet
    case c.ExpiresAt != 0 && now >= c.ExpiresAt:
        return JWTClaims{}, errTokenExpired
    case v.issuer != "" && !strings.EqualFold(c.Issuer, v.issuer):
        return JWTClaims{}, errTokenIssuer
    case v.audience != "" && !c.Audience.has(v.audience):
        return JWTClaims{}, errTokenAudience
    }
    if c.CompanyID != "" {
        id, err := uuid.Parse(c.CompanyID)
        if err != nil {
            return JWTClaims{}, errTokenCompany
        }
        c.CompanyID = id.String()
    }
    return c, nil
}

// splitToken decodes the three base64url segments of a compact JWT.
func splitToken(token string) (head, body, sig []byte, err error) {
    parts := strings.Split(token, ".")
    if len(parts) != 3 {
        return nil, nil, nil, errTokenMalformed
    }
    dec := base64.RawURLEncoding
    out := make([][]byte, 3)
    for i, p := range parts {
        if out[i], err = dec.DecodeString(strings.TrimRight(p, "=")); err != nil {
            return nil, nil, nil, errTokenMalformed
        }
    }
    return out[0], out[1], out[2], nil
}

// tokenErrCode maps a token refusal to the code clients see.
func tokenErrCode(err error) string {
    switch {
    case errors.Is(err, errTokenMissing):
        return "token_missing"
    case errors.Is(err, errTokenExpired):
        return "token_expired"
    case errors.Is(err, errTokenNotYet):
        return "token_not_yet_valid"
    default:
        return "token_invalid"
    }
}

type ctxKeyClaims struct{}

// public paths skip authentication.
func isPublicPath(p string) bool {
    switch p {
    case "/healthz", "/readyz", "/metrics":
        return true
    }
    return strings.HasPrefix(p, "/v1/dictionary/")
}

// authJWT returns a middleware that enforces Authorization: Bearer JWT (HS256)
// when cfg.Secret is set. Issuer and Audience are checked when configured.
func authJWT(cfg AuthConfig) func(http.Handler) http.Handler {
	v, ok := newTokenVerifier(cfg)
	if !ok {
		return nil
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			tok, err := bearerToken(r)
			if err == nil {
				var claims JWTClaims
				if claims, err = v.verify(tok); err == nil {
					ctx := context.WithValue(r.Context(), ctxKeyClaims{}, claims)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			unauthorized(w, err)
		})
	}
}

func unauthorized(w http.ResponseWriter, err error) {
    w.Header().Set("WWW-Authenticate", `Bearer realm="voucherdesk"`)
    writeErr(w, http.StatusUnauthorized, err.Error(), tokenErrCode(err))
}

// companyAllowed reports whether the request may act for companyID. Tokens
// without a company_id claim, and requests with auth disabled, may act for any.
func companyAllowed(r *http.Request, companyID string) bool {
    claims, ok := r.Context().Value(ctxKeyClaims{}).(JWTClaims)
    if !ok || claims.CompanyID == "" {
        return true
    }
    return strings.EqualFold(claims.CompanyID, strings.TrimSpace(companyID))
}
