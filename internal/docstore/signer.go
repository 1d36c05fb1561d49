package docstore

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "hirelane/pkg/domain-errors"
)

// URLSigner mints and verifies the HMAC tokens embedded in presigned URLs.
// The token is the whole authorization: whoever holds an unexpired token may
// download the referenced document.
type URLSigner struct {
	secret  []byte
	baseURL string
}

// NewURLSigner constructs a signer. baseURL is the public download endpoint
// the token is appended to, e.g. "https://files.hirelane.dev/documents".
func NewURLSigner(secret []byte, baseURL string) *URLSigner {
	return &URLSigner{secret: secret, baseURL: baseURL}
}

// SignURL returns the presigned URL for ref.
func (s *URLSigner) SignURL(ref, purpose string, expiry time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"ref":     ref,
		"purpose": purpose,
		"iat":     now.Unix(),
		"exp":     now.Add(expiry).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign document URL")
	}
	return fmt.Sprintf("%s/%s?token=%s", s.baseURL, ref, signed), nil
}

// VerifyURLToken checks the token and returns the document reference and
// purpose it grants access to.
func (s *URLSigner) VerifyURLToken(tokenString string) (ref string, purpose string, err error) {
	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", "", dErrors.New(dErrors.CodeUnauthorized, "invalid or expired document URL")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", dErrors.New(dErrors.CodeUnauthorized, "invalid or expired document URL")
	}
	ref, _ = claims["ref"].(string)
	purpose, _ = claims["purpose"].(string)
	if ref == "" {
		return "", "", dErrors.New(dErrors.CodeUnauthorized, "document URL carries no reference")
	}
	return ref, purpose, nil
}
