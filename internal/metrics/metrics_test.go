package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/urbanbyte/chamados/internal/authz"
	"github.com/urbanbyte/chamados/internal/ticket"
)

func TestCompute(t *testing.T) {
	statuses := []ticket.StatusCount{
		{Status: ticket.StatusAberto, Count: 2},
		{Status: ticket.StatusEmAndamento, Count: 1},
		{Status: ticket.StatusResolvido, Count: 1},
		{Status: ticket.StatusFechado, Count: 1},
	}
	sectors := []ticket.SectorCount{
		{Label: "Obras", Count: 3},
		{Label: "Iluminação", Count: 2},
	}

	got := Compute(statuses, sectors)

	if got.Open != 2 || got.InProgress != 1 || got.Closed != 2 || got.Total != 5 {
		t.Fatalf("totais incorretos: %+v", got)
	}
	if got.ResolutionRate != 40.0 {
		t.Fatalf("taxa de resolução esperada 40.0, obtida %v", got.ResolutionRate)
	}
}

func TestComputeEmpty(t *testing.T) {
	got := Compute(nil, nil)

	if got.Total != 0 || got.ResolutionRate != 0 {
		t.Fatalf("conjunto vazio deveria zerar tudo: %+v", got)
	}
	// A série por status sempre sai completa, na ordem do ciclo de vida.
	if len(got.ByStatus) != 4 {
		t.Fatalf("esperados 4 status, obtidos %d", len(got.ByStatus))
	}
	want := []string{ticket.StatusAberto, ticket.StatusEmAndamento, ticket.StatusResolvido, ticket.StatusFechado}
	for i, label := range want {
		if got.ByStatus[i].Label != label || got.ByStatus[i].Count != 0 {
			t.Fatalf("posição %d: esperado {%s 0}, obtido %+v", i, label, got.ByStatus[i])
		}
	}
}

func TestComputeRateRounding(t *testing.T) {
	statuses := []ticket.StatusCount{
		{Status: ticket.StatusResolvido, Count: 1},
		{Status: ticket.StatusAberto, Count: 2},
	}

	got := Compute(statuses, nil)
	// 1/3 = 33.333... arredonda para uma casa.
	if got.ResolutionRate != 33.3 {
		t.Fatalf("esperado 33.3, obtido %v", got.ResolutionRate)
	}
}

func TestComputeSectorOrdering(t *testing.T) {
	sectors := []ticket.SectorCount{
		{Label: "Zeladoria", Count: 2},
		{Label: "Obras", Count: 5},
		{Label: "Almoxarifado", Count: 2},
	}

	got := Compute(nil, sectors)

	want := []Breakdown{
		{Label: "Obras", Count: 5},
		{Label: "Almoxarifado", Count: 2},
		{Label: "Zeladoria", Count: 2},
	}
	for i, b := range want {
		if got.BySector[i] != b {
			t.Fatalf("posição %d: esperado %+v, obtido %+v", i, b, got.BySector[i])
		}
	}
}

type stubSnapshots struct {
	statuses []ticket.StatusCount
	sectors  []ticket.SectorCount
}

func (s *stubSnapshots) Snapshot(ctx context.Context, tenantID uuid.UUID) ([]ticket.StatusCount, []ticket.SectorCount, error) {
	return s.statuses, s.sectors, nil
}

func TestOverviewRequiresDashboardCapability(t *testing.T) {
	svc := NewService(&stubSnapshots{})

	tecnico := authz.Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: authz.RoleTecnico}
	if _, err := svc.Overview(context.Background(), tecnico); !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("TECNICO não vê o painel, obtido %v", err)
	}

	gestor := authz.Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: authz.RoleGestor}
	if _, err := svc.Overview(context.Background(), gestor); err != nil {
		t.Fatalf("GESTOR deveria ver o painel: %v", err)
	}
}
