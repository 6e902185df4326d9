// Package identity resolve credenciais verificadas em um Principal.
package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/urbanbyte/chamados/internal/authz"
	"github.com/urbanbyte/chamados/internal/repo"
)

var (
	// ErrProfileMissing indica identidade verificada sem perfil correspondente.
	// Falha terminal de autorização: não há retry.
	ErrProfileMissing = errors.New("perfil não encontrado para identidade")
	// ErrAccountDisabled indica perfil com ativo=false; revoga toda autorização.
	ErrAccountDisabled = errors.New("conta desativada")
)

// UserStore abstrai a consulta de perfil usada pelo resolver.
type UserStore interface {
	GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error)
}

// Resolver converte o sujeito de um token verificado no Principal do perfil.
type Resolver struct {
	users UserStore
}

// NewResolver cria um resolver sobre o repositório de usuários.
func NewResolver(users UserStore) *Resolver {
	return &Resolver{users: users}
}

// Resolve vincula o sujeito a exatamente um perfil ativo.
func (r *Resolver) Resolve(ctx context.Context, subject uuid.UUID) (authz.Principal, error) {
	user, err := r.users.GetUsuarioByID(ctx, subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return authz.Principal{}, ErrProfileMissing
		}
		return authz.Principal{}, err
	}

	if !user.Ativo {
		return authz.Principal{}, ErrAccountDisabled
	}

	return authz.Principal{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Role:     user.Role,
	}, nil
}
