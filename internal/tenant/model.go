package tenant

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("tenant não encontrado")
)

// Tenant representa uma prefeitura atendida pela plataforma de chamados.
// O domínio identifica o tenant em todo o tráfego público.
type Tenant struct {
	ID          uuid.UUID      `json:"id"`
	Slug        string         `json:"slug"`
	DisplayName string         `json:"display_name"`
	Domain      string         `json:"domain"`
	Settings    map[string]any `json:"settings"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateTenantInput contém os campos necessários para registrar um tenant.
type CreateTenantInput struct {
	Slug        string
	DisplayName string
	Domain      string
	Settings    map[string]any
}

// PublicConfig é a projeção exposta em rotas sem sessão. Identificadores
// internos e settings operacionais ficam de fora.
type PublicConfig struct {
	Slug        string `json:"slug"`
	DisplayName string `json:"display_name"`
	Theme       string `json:"theme,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
}

// PublicView monta a projeção pública do tenant.
func (t *Tenant) PublicView() PublicConfig {
	return PublicConfig{
		Slug:        t.Slug,
		DisplayName: t.DisplayName,
		Theme:       t.SettingString("theme"),
		LogoURL:     t.SettingString("logo_url"),
	}
}

// SettingString lê uma chave de settings como string, vazia se ausente.
func (t *Tenant) SettingString(key string) string {
	if t.Settings == nil {
		return ""
	}
	val, _ := t.Settings[key].(string)
	return val
}
