package auth

import (
	"github.com/alexedwards/argon2id"
)

// hashParams ficam embutidos no próprio hash, então podem evoluir sem
// invalidar credenciais antigas.
var hashParams = &argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// Hash gera um hash Argon2id da senha.
func Hash(password string) (string, error) {
	return argon2id.CreateHash(password, hashParams)
}

// Verify compara a senha com um hash Argon2id existente.
func Verify(password, encodedHash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(password, encodedHash)
}
