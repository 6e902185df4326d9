package metrics

import (
	"context"

	"github.com/google/uuid"

	"github.com/urbanbyte/chamados/internal/authz"
	"github.com/urbanbyte/chamados/internal/ticket"
)

// SnapshotReader lê as contagens de chamados num snapshot consistente.
type SnapshotReader interface {
	Snapshot(ctx context.Context, tenantID uuid.UUID) ([]ticket.StatusCount, []ticket.SectorCount, error)
}

// Service expõe o agregador do painel atrás da política de autorização.
type Service struct {
	snapshots SnapshotReader
}

// NewService cria o serviço.
func NewService(snapshots SnapshotReader) *Service {
	return &Service{snapshots: snapshots}
}

// Overview calcula os indicadores do tenant do principal.
func (s *Service) Overview(ctx context.Context, p authz.Principal) (*Summary, error) {
	if err := authz.Require(p, authz.ActionViewDashboard); err != nil {
		return nil, err
	}

	statuses, sectors, err := s.snapshots.Snapshot(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}

	summary := Compute(statuses, sectors)
	return &summary, nil
}
