package ticket

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("ticket not found")
	// ErrInvalidTransition indica mudança de status fora da máquina de estados.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict indica corrida em contador ou status; o serviço tenta uma vez.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrAssetNotFound indica token de QR sem ativo correspondente.
	ErrAssetNotFound = errors.New("asset not found for token")
	// ErrValidation marca entrada rejeitada antes de tocar o banco.
	ErrValidation = errors.New("validation")
)

const (
	StatusAberto      = "aberto"
	StatusEmAndamento = "em_andamento"
	StatusResolvido   = "resolvido"
	StatusFechado     = "fechado"

	PrioridadeBaixa   = "baixa"
	PrioridadeMedia   = "media"
	PrioridadeAlta    = "alta"
	PrioridadeUrgente = "urgente"
)

var validStatuses = map[string]struct{}{
	StatusAberto:      {},
	StatusEmAndamento: {},
	StatusResolvido:   {},
	StatusFechado:     {},
}

var validPriorities = map[string]struct{}{
	PrioridadeBaixa:   {},
	PrioridadeMedia:   {},
	PrioridadeAlta:    {},
	PrioridadeUrgente: {},
}

// transitions define as arestas permitidas da máquina de estados. Fluxo
// estritamente progressivo; a única aresta de retorno é a reabertura
// resolvido -> em_andamento.
var transitions = map[string]map[string]struct{}{
	StatusAberto:      {StatusEmAndamento: {}},
	StatusEmAndamento: {StatusResolvido: {}},
	StatusResolvido:   {StatusFechado: {}, StatusEmAndamento: {}},
	StatusFechado:     {},
}

// CanTransition valida a mudança de status. Transição para o próprio estado
// devolve noop=true com erro nulo (reenvio concorrente não é falha).
func CanTransition(from, to string) (noop bool, err error) {
	if _, ok := validStatuses[to]; !ok {
		return false, ErrInvalidTransition
	}
	if from == to {
		return true, nil
	}
	if _, ok := transitions[from][to]; !ok {
		return false, ErrInvalidTransition
	}
	return false, nil
}

// NormalizeStatus padroniza status em minúsculas.
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// NormalizePrioridade padroniza prioridade, com default media.
func NormalizePrioridade(prioridade string) string {
	prioridade = strings.ToLower(strings.TrimSpace(prioridade))
	if prioridade == "" {
		return PrioridadeMedia
	}
	return prioridade
}

// IsValidStatus indica se o status é aceito.
func IsValidStatus(status string) bool {
	_, ok := validStatuses[status]
	return ok
}

// IsValidPrioridade indica se a prioridade é aceita.
func IsValidPrioridade(prioridade string) bool {
	_, ok := validPriorities[prioridade]
	return ok
}

// Ticket representa um chamado. ReadableID é o protocolo sequencial por
// tenant e o único identificador exposto publicamente.
type Ticket struct {
	ID         uuid.UUID  `json:"id"`
	TenantID   uuid.UUID  `json:"tenant_id"`
	ReadableID int64      `json:"readable_id"`
	CreatedBy  *uuid.UUID `json:"created_by,omitempty"`
	LocalID    uuid.UUID  `json:"local_id"`
	SetorID    *uuid.UUID `json:"setor_id,omitempty"`
	AssetID    *uuid.UUID `json:"asset_id,omitempty"`
	Descricao  string     `json:"descricao"`
	Prioridade string     `json:"prioridade"`
	Status     string     `json:"status"`
	CriadoEm   time.Time  `json:"criado_em"`
}

// PublicTicket é a visão devolvida a rastreadores anônimos: protocolo e
// estado, nenhum identificador interno.
type PublicTicket struct {
	ReadableID int64     `json:"readable_id"`
	Status     string    `json:"status"`
	Descricao  string    `json:"descricao"`
	Prioridade string    `json:"prioridade"`
	CriadoEm   time.Time `json:"criado_em"`
}

// Public projeta o chamado na visão anônima.
func (t *Ticket) Public() PublicTicket {
	return PublicTicket{
		ReadableID: t.ReadableID,
		Status:     t.Status,
		Descricao:  t.Descricao,
		Prioridade: t.Prioridade,
		CriadoEm:   t.CriadoEm,
	}
}

// CreateRecord é o insumo único do primitivo de criação; os dois caminhos
// (autenticado e anônimo) diferem apenas em como o preenchem.
type CreateRecord struct {
	TenantID   uuid.UUID
	CreatedBy  *uuid.UUID
	LocalID    uuid.UUID
	SetorID    *uuid.UUID
	AssetID    *uuid.UUID
	Descricao  string
	Prioridade string
}

// CreateInput agrupa os campos do caminho autenticado.
type CreateInput struct {
	Descricao  string
	Prioridade string
	LocalID    *uuid.UUID
	SetorID    *uuid.UUID
}

// CreateAnonInput agrupa os campos do caminho anônimo via QR.
type CreateAnonInput struct {
	QRToken    string
	Descricao  string
	Prioridade string
}

// Filter parametriza listagens de chamados.
type Filter struct {
	TenantID  uuid.UUID
	CreatedBy *uuid.UUID
	Status    []string
	Limit     int
	Offset    int
}

// StatusCount agrega total de chamados por status.
type StatusCount struct {
	Status string
	Count  int64
}

// SectorCount agrega total de chamados por setor.
type SectorCount struct {
	Label string
	Count int64
}
