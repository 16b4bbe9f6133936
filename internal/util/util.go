package util

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by an access token. Only the registered set is used; the
// subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// ValidateJWT verifies a token against keyMaterial. The algorithm is read
// from the token header first: HMAC variants treat keyMaterial as the shared
// secret, RSA/ECDSA variants treat it as a PEM public key. The verification
// keyfunc re-checks the method so a header swap cannot downgrade the check.
func ValidateJWT(tokenString, keyMaterial string) (*Claims, error) {
	alg, err := tokenAlgorithm(tokenString)
	if err != nil {
		return nil, err
	}

	keyFunc, err := keyFuncFor(alg, keyMaterial)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc)
	if err != nil {
		return nil, fmt.Errorf("validating token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// tokenAlgorithm reads alg from the header without verifying the signature.
func tokenAlgorithm(tokenString string) (string, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return "", fmt.Errorf("parsing token header: %w", err)
	}
	alg, ok := token.Header["alg"].(string)
	if !ok {
		return "", errors.New("token header missing alg")
	}
	return alg, nil
}

func keyFuncFor(alg, keyMaterial string) (jwt.Keyfunc, error) {
	switch alg {
	case "HS256", "HS384", "HS512":
		secret := []byte(keyMaterial)
		return func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v, want HMAC", token.Header["alg"])
			}
			return secret, nil
		}, nil

	case "RS256", "RS384", "RS512":
		publicKey, err := parsePublicKey[*rsa.PublicKey](keyMaterial, "RSA")
		if err != nil {
			return nil, err
		}
		return func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method %v, want RSA", token.Header["alg"])
			}
			return publicKey, nil
		}, nil

	case "ES256", "ES384", "ES512":
		publicKey, err := parsePublicKey[*ecdsa.PublicKey](keyMaterial, "ECDSA")
		if err != nil {
			return nil, err
		}
		return func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
				return nil, fmt.Errorf("unexpected signing method %v, want ECDSA", token.Header["alg"])
			}
			return publicKey, nil
		}, nil

	default:
		return nil, fmt.Errorf("unsupported signing algorithm: %s", alg)
	}
}

func parsePublicKey[K any](pemKey, kind string) (K, error) {
	var zero K
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return zero, errors.New("no PEM block in key material")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return zero, fmt.Errorf("parsing public key: %w", err)
	}
	key, ok := pub.(K)
	if !ok {
		return zero, fmt.Errorf("public key is not %s", kind)
	}
	return key, nil
}
