package asset

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("asset not found")
	// ErrTokenTaken indica colisão do token de QR; o serviço tenta novamente.
	ErrTokenTaken = errors.New("qr token already in use")
	// ErrValidation marca entrada rejeitada antes de tocar o banco.
	ErrValidation = errors.New("validation")
)

// Asset representa um bem físico identificado por QR code.
type Asset struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Nome      string    `json:"nome"`
	Categoria string    `json:"categoria"`
	LocalID   uuid.UUID `json:"local_id"`
	SetorID   uuid.UUID `json:"setor_id"`
	QRToken   string    `json:"qr_token"`
	CriadoEm  time.Time `json:"criado_em"`
}

// PublicAsset é a projeção mínima do caminho anônimo: o necessário para
// abrir um chamado e vinculá-lo ao ativo. O ID só circula internamente;
// nenhum handler devolve esta struct a quem não tem sessão.
type PublicAsset struct {
	ID       uuid.UUID
	Nome     string
	TenantID uuid.UUID
	LocalID  uuid.UUID
	SetorID  uuid.UUID
}

// CreateAssetInput agrupa os campos de cadastro de ativo.
type CreateAssetInput struct {
	Nome      string
	Categoria string
	LocalID   uuid.UUID
	SetorID   uuid.UUID
}

// Label agrega os dados para impressão da etiqueta do ativo.
type Label struct {
	Nome    string `json:"nome"`
	QRToken string `json:"qr_token"`
	URL     string `json:"url"`
}
