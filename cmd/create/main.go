// Command create produces development key sets and tokens for exercising the
// authorizer locally.
//
//	create keys  [-kid development-key] [-dir .development/keys]
//	create token [-kid development-key] [-sub subject] [-aud audience] [-iss issuer] [-ttl 1h]
//
// The public key set written by "keys" can be served directly or supplied in
// JWT_JWKS_STATIC.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const (
	privateKeySetFile = "jwks.private.json"
	publicKeySetFile  = "jwks.json"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	var err error

	switch os.Args[1] {
	case "keys":
		err = runKeys(os.Args[2:])
	case "token":
		err = runToken(os.Args[2:])
	default:
		usage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: create keys|token [flags]")
	os.Exit(2)
}

func runKeys(args []string) error {
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	kid := fs.String("kid", "development-key", "key identifier")
	dir := fs.String("dir", ".development/keys", "output directory")
	_ = fs.Parse(args)

	private, err := generateKey(*kid)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*dir, 0o700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}

	if err := writeKeySet(filepath.Join(*dir, privateKeySetFile), private, 0o600); err != nil {
		return err
	}

	if err := writeKeySet(filepath.Join(*dir, publicKeySetFile), private.Public(), 0o644); err != nil {
		return err
	}

	fmt.Printf("wrote key %q to %s\n", *kid, *dir)

	return nil
}

func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	kid := fs.String("kid", "development-key", "key identifier")
	dir := fs.String("dir", ".development/keys", "directory containing the private key set")
	sub := fs.String("sub", "subject", "token subject")
	aud := fs.String("aud", "", "token audience")
	iss := fs.String("iss", "https://local.testing", "token issuer")
	ttl := fs.Duration("ttl", time.Hour, "token validity")
	_ = fs.Parse(args)

	jwksBytes, err := os.ReadFile(filepath.Join(*dir, privateKeySetFile))
	if err != nil {
		return fmt.Errorf("reading jwks: %w", err)
	}

	jwks := jose.JSONWebKeySet{}
	if err := json.Unmarshal(jwksBytes, &jwks); err != nil {
		return fmt.Errorf("loading jwks: %w", err)
	}

	keys := jwks.Key(*kid)
	if len(keys) == 0 {
		return fmt.Errorf("key %q not found in key set", *kid)
	}

	claims := jwt.Claims{
		Subject: *sub,
		Issuer:  *iss,
	}
	if *aud != "" {
		claims.Audience = jwt.Audience{*aud}
	}

	token, err := createJWT(&keys[0], validity(claims, *ttl))
	if err != nil {
		return fmt.Errorf("creating JWT: %w", err)
	}

	fmt.Print(token)

	return nil
}

// generateKey creates an RSA signing key with a self-signed certificate, as
// the authorizer requires a certificate chain on every usable key.
func generateKey(kid string) (jose.JSONWebKey, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return jose.JSONWebKey{}, fmt.Errorf("generating key: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(now.UnixNano()),
		Subject:               pkix.Name{CommonName: kid},
		NotBefore:             now,
		NotAfter:              now.AddDate(1, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return jose.JSONWebKey{}, fmt.Errorf("creating certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return jose.JSONWebKey{}, fmt.Errorf("parsing certificate: %w", err)
	}

	return jose.JSONWebKey{
		Key:          privateKey,
		KeyID:        kid,
		Algorithm:    string(jose.RS256),
		Use:          "sig",
		Certificates: []*x509.Certificate{cert},
	}, nil
}

func writeKeySet(path string, key jose.JSONWebKey, mode os.FileMode) error {
	b, err := json.MarshalIndent(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{key}}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	if err := os.WriteFile(path, b, mode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}

func createJWT(jwk *jose.JSONWebKey, claims ...any) (string, error) {
	if jwk.IsPublic() {
		return "", errors.New("a private key is required to sign a token")
	}

	key := jose.SigningKey{
		Algorithm: jose.SignatureAlgorithm(jwk.Algorithm),
		Key:       jwk,
	}

	signer, err := jose.NewSigner(key, (&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return "", fmt.Errorf("creating signer: %w", err)
	}

	builder := jwt.Signed(signer)
	for _, c := range claims {
		builder = builder.Claims(c)
	}

	return builder.Serialize()
}

func validity(claims jwt.Claims, ttl time.Duration) jwt.Claims {
	now := time.Now().UTC()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now.Add(-1 * time.Minute))
	claims.Expiry = jwt.NewNumericDate(now.Add(ttl))

	return claims
}
