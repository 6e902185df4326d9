package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/urbanbyte/chamados/internal/auth"
	"github.com/urbanbyte/chamados/internal/authz"
	"github.com/urbanbyte/chamados/internal/repo"
)

// Audience identifica os tokens emitidos por esta API.
const Audience = "chamados"

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	// ErrAccountDisabled indica conta desativada.
	ErrAccountDisabled = errors.New("conta desativada")
	// ErrRefreshInvalid indica refresh token inválido ou expirado.
	ErrRefreshInvalid = errors.New("refresh token inválido")
)

type authRepository interface {
	GetUsuarioByEmail(ctx context.Context, email string) (repo.Usuario, error)
	GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error)
	InsertRefreshToken(ctx context.Context, arg repo.InsertRefreshTokenParams) (repo.TokenRefresh, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (repo.TokenRefresh, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, audience, keepHash string) error
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra autenticação e sessões da API.
type AuthService struct {
	repo       authRepository
	redis      redisCommander
	jwt        *auth.JWTManager
	refreshTTL time.Duration
}

// NewAuthService cria novo serviço.
func NewAuthService(r authRepository, redisClient redisCommander, jwtMgr *auth.JWTManager, refreshTTL time.Duration) *AuthService {
	return &AuthService{repo: r, redis: redisClient, jwt: jwtMgr, refreshTTL: refreshTTL}
}

// JWT expõe gerenciador de JWT (útil em middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// LoginResult representa retorno padrão de autenticações.
type LoginResult struct {
	AccessToken   string
	RefreshToken  string
	Subject       uuid.UUID
	TenantID      uuid.UUID
	Role          authz.Role
	Profile       Profile
	RefreshExpiry time.Time
}

// Profile descreve o usuário autenticado.
type Profile struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Login autentica um usuário por e-mail e senha.
func (s *AuthService) Login(ctx context.Context, email, senha string) (*LoginResult, error) {
	user, err := s.repo.GetUsuarioByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("login: usuário não encontrado")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.Ativo {
		return nil, ErrAccountDisabled
	}
	if user.SenhaHash == nil {
		// Convite ainda não aceito: não há credencial local.
		return nil, ErrInvalidCredentials
	}

	ok, err := auth.Verify(senha, *user.SenhaHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return s.issueSession(ctx, user)
}

// Refresh rotaciona o refresh token e emite novo par de tokens.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*LoginResult, error) {
	hash := auth.HashRefreshToken(rawRefresh)

	stored, err := s.repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}
	if stored.Revogado || time.Now().After(stored.Expiracao) {
		return nil, ErrRefreshInvalid
	}

	if err := s.redis.Get(ctx, auth.RefreshRedisKey(Audience, hash)).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	user, err := s.repo.GetUsuarioByID(ctx, stored.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}
	if !user.Ativo {
		return nil, ErrAccountDisabled
	}

	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil {
		return nil, err
	}
	_ = s.redis.Del(ctx, auth.RefreshRedisKey(Audience, hash)).Err()

	return s.issueSession(ctx, user)
}

// Logout revoga o refresh token apresentado.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) error {
	hash := auth.HashRefreshToken(rawRefresh)
	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil {
		return err
	}
	_ = s.redis.Del(ctx, auth.RefreshRedisKey(Audience, hash)).Err()
	return nil
}

func (s *AuthService) issueSession(ctx context.Context, user repo.Usuario) (*LoginResult, error) {
	access, _, err := s.jwt.GenerateAccessToken(user.ID.String(), Audience, user.TenantID.String(), []string{string(user.Role)})
	if err != nil {
		return nil, err
	}

	rawRefresh, refreshHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	expiry := time.Now().Add(s.refreshTTL)
	if _, err := s.repo.InsertRefreshToken(ctx, repo.InsertRefreshTokenParams{
		Subject:   user.ID,
		Audience:  Audience,
		TokenHash: refreshHash,
		Expiracao: expiry,
	}); err != nil {
		return nil, err
	}

	if err := s.redis.Set(ctx, auth.RefreshRedisKey(Audience, refreshHash), user.ID.String(), s.refreshTTL).Err(); err != nil {
		return nil, err
	}

	if err := s.repo.InvalidateOtherRefreshTokens(ctx, user.ID, Audience, refreshHash); err != nil {
		log.Warn().Err(err).Msg("falha ao invalidar tokens antigos")
	}

	return &LoginResult{
		AccessToken:   access,
		RefreshToken:  rawRefresh,
		Subject:       user.ID,
		TenantID:      user.TenantID,
		Role:          user.Role,
		RefreshExpiry: expiry,
		Profile: Profile{
			ID:       user.ID.String(),
			TenantID: user.TenantID.String(),
			Nome:     user.Nome,
			Email:    user.Email,
			Role:     string(user.Role),
		},
	}, nil
}
