package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// refreshTokenBytes dimensiona a entropia do token bruto enviado ao cliente.
const refreshTokenBytes = 32

// GenerateRefreshToken cria um token opaco e o hash que vai para o banco.
// Somente o hash é persistido; o valor bruto circula apenas no cookie.
func GenerateRefreshToken() (raw string, hashed string, err error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}

	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, HashRefreshToken(raw), nil
}

// HashRefreshToken produz o hash SHA-256 em base64url do token bruto.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// RefreshRedisKey monta a chave do espelho de sessão no Redis.
func RefreshRedisKey(audience, hash string) string {
	return fmt.Sprintf("refresh:%s:%s", audience, hash)
}
