package ticket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/urbanbyte/chamados/internal/asset"
	"github.com/urbanbyte/chamados/internal/authz"
	"github.com/urbanbyte/chamados/internal/repo"
)

type stubStore struct {
	tickets      map[uuid.UUID]*Ticket
	createErrs   []error
	createCalls  int
	casErrs      []error
	casCalls     int
	lastFilter   Filter
	nextReadable int64
}

func newStubStore() *stubStore {
	return &stubStore{tickets: make(map[uuid.UUID]*Ticket)}
}

func (s *stubStore) Create(ctx context.Context, rec CreateRecord) (*Ticket, error) {
	s.createCalls++
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	s.nextReadable++
	t := &Ticket{
		ID:         uuid.New(),
		TenantID:   rec.TenantID,
		ReadableID: s.nextReadable,
		CreatedBy:  rec.CreatedBy,
		LocalID:    rec.LocalID,
		SetorID:    rec.SetorID,
		AssetID:    rec.AssetID,
		Descricao:  rec.Descricao,
		Prioridade: rec.Prioridade,
		Status:     StatusAberto,
		CriadoEm:   time.Now(),
	}
	s.tickets[t.ID] = t
	return t, nil
}

func (s *stubStore) GetByID(ctx context.Context, id uuid.UUID) (*Ticket, error) {
	t, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *stubStore) GetByReadableID(ctx context.Context, tenantID uuid.UUID, readableID int64) (*Ticket, error) {
	for _, t := range s.tickets {
		if t.TenantID == tenantID && t.ReadableID == readableID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *stubStore) List(ctx context.Context, filter Filter) ([]Ticket, error) {
	s.lastFilter = filter
	var out []Ticket
	for _, t := range s.tickets {
		if t.TenantID != filter.TenantID {
			continue
		}
		if filter.CreatedBy != nil && (t.CreatedBy == nil || *t.CreatedBy != *filter.CreatedBy) {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (s *stubStore) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to string) (*Ticket, error) {
	s.casCalls++
	if len(s.casErrs) > 0 {
		err := s.casErrs[0]
		s.casErrs = s.casErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	t, ok := s.tickets[id]
	if !ok {
		return nil, errStaleStatus
	}
	if t.Status != from {
		return nil, errStaleStatus
	}
	t.Status = to
	cp := *t
	return &cp, nil
}

type stubAssets struct {
	byToken map[string]*asset.PublicAsset
}

func (s *stubAssets) ResolveByToken(ctx context.Context, token string) (*asset.PublicAsset, error) {
	a, ok := s.byToken[token]
	if !ok {
		return nil, asset.ErrNotFound
	}
	return a, nil
}

type stubCatalog struct {
	locais       map[uuid.UUID]repo.Local
	setores      map[uuid.UUID]repo.Setor
	defaultLocal map[uuid.UUID]repo.Local
}

func (s *stubCatalog) GetLocal(ctx context.Context, id uuid.UUID) (repo.Local, error) {
	l, ok := s.locais[id]
	if !ok {
		return repo.Local{}, repo.ErrNotFound
	}
	return l, nil
}

func (s *stubCatalog) DefaultLocal(ctx context.Context, tenantID uuid.UUID) (repo.Local, error) {
	l, ok := s.defaultLocal[tenantID]
	if !ok {
		return repo.Local{}, repo.ErrNotFound
	}
	return l, nil
}

func (s *stubCatalog) GetSetor(ctx context.Context, id uuid.UUID) (repo.Setor, error) {
	st, ok := s.setores[id]
	if !ok {
		return repo.Setor{}, repo.ErrNotFound
	}
	return st, nil
}

func newTestService(store *stubStore, assets *stubAssets, catalog *stubCatalog) *Service {
	if assets == nil {
		assets = &stubAssets{byToken: map[string]*asset.PublicAsset{}}
	}
	if catalog == nil {
		catalog = &stubCatalog{
			locais:       map[uuid.UUID]repo.Local{},
			setores:      map[uuid.UUID]repo.Setor{},
			defaultLocal: map[uuid.UUID]repo.Local{},
		}
	}
	return NewService(store, assets, catalog, zerolog.Nop())
}

func TestCreateAnonymousDerivesEverythingFromAsset(t *testing.T) {
	tenantID := uuid.New()
	localID := uuid.New()
	setorID := uuid.New()
	ativoID := uuid.New()

	store := newStubStore()
	assets := &stubAssets{byToken: map[string]*asset.PublicAsset{
		"tok123": {ID: ativoID, Nome: "Bebedouro", TenantID: tenantID, LocalID: localID, SetorID: setorID},
	}}

	svc := newTestService(store, assets, nil)

	created, err := svc.CreateAnonymous(context.Background(), CreateAnonInput{
		QRToken:   "tok123",
		Descricao: "vazando água",
	})
	if err != nil {
		t.Fatalf("criação anônima falhou: %v", err)
	}

	if created.TenantID != tenantID {
		t.Errorf("tenant deveria vir do ativo, obtido %s", created.TenantID)
	}
	if created.LocalID != localID {
		t.Errorf("local deveria vir do ativo, obtido %s", created.LocalID)
	}
	if created.SetorID == nil || *created.SetorID != setorID {
		t.Errorf("setor deveria vir do ativo, obtido %v", created.SetorID)
	}
	if created.AssetID == nil || *created.AssetID != ativoID {
		t.Errorf("chamado via QR deveria referenciar o ativo, obtido %v", created.AssetID)
	}
	if created.CreatedBy != nil {
		t.Errorf("chamado anônimo não tem autor, obtido %v", created.CreatedBy)
	}
	if created.Status != StatusAberto {
		t.Errorf("chamado nasce aberto, obtido %s", created.Status)
	}
	if created.Prioridade != PrioridadeMedia {
		t.Errorf("prioridade omitida vira media, obtido %s", created.Prioridade)
	}
}

func TestCreateAnonymousUnknownToken(t *testing.T) {
	svc := newTestService(newStubStore(), nil, nil)

	_, err := svc.CreateAnonymous(context.Background(), CreateAnonInput{QRToken: "nada", Descricao: "x"})
	if !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("esperado ErrAssetNotFound, obtido %v", err)
	}
}

func TestCreateRetriesOnceOnProtocolRace(t *testing.T) {
	tenantID := uuid.New()
	localID := uuid.New()

	store := newStubStore()
	store.createErrs = []error{ErrConflict}

	catalog := &stubCatalog{
		locais:       map[uuid.UUID]repo.Local{localID: {ID: localID, TenantID: tenantID}},
		setores:      map[uuid.UUID]repo.Setor{},
		defaultLocal: map[uuid.UUID]repo.Local{},
	}
	svc := newTestService(store, nil, catalog)

	p := authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleUsuario}
	created, err := svc.Create(context.Background(), p, CreateInput{Descricao: "banco quebrado", LocalID: &localID})
	if err != nil {
		t.Fatalf("retry transparente deveria ter salvado a criação: %v", err)
	}
	if store.createCalls != 2 {
		t.Fatalf("esperadas 2 tentativas, obtidas %d", store.createCalls)
	}
	if created.Status != StatusAberto {
		t.Fatalf("status inesperado %s", created.Status)
	}
}

func TestCreateGivesUpAfterSecondConflict(t *testing.T) {
	tenantID := uuid.New()
	localID := uuid.New()

	store := newStubStore()
	store.createErrs = []error{ErrConflict, ErrConflict}

	catalog := &stubCatalog{
		locais:       map[uuid.UUID]repo.Local{localID: {ID: localID, TenantID: tenantID}},
		setores:      map[uuid.UUID]repo.Setor{},
		defaultLocal: map[uuid.UUID]repo.Local{},
	}
	svc := newTestService(store, nil, catalog)

	p := authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleUsuario}
	_, err := svc.Create(context.Background(), p, CreateInput{Descricao: "x", LocalID: &localID})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("esperado ErrConflict após segunda corrida, obtido %v", err)
	}
}

func TestCreateFallsBackToDefaultLocation(t *testing.T) {
	tenantID := uuid.New()
	defaultLocal := repo.Local{ID: uuid.New(), TenantID: tenantID}

	store := newStubStore()
	catalog := &stubCatalog{
		locais:       map[uuid.UUID]repo.Local{},
		setores:      map[uuid.UUID]repo.Setor{},
		defaultLocal: map[uuid.UUID]repo.Local{tenantID: defaultLocal},
	}
	svc := newTestService(store, nil, catalog)

	p := authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleUsuario}
	created, err := svc.Create(context.Background(), p, CreateInput{Descricao: "porta emperrada"})
	if err != nil {
		t.Fatalf("criação com local padrão falhou: %v", err)
	}
	if created.LocalID != defaultLocal.ID {
		t.Fatalf("esperado local padrão %s, obtido %s", defaultLocal.ID, created.LocalID)
	}
	if created.CreatedBy == nil || *created.CreatedBy != p.UserID {
		t.Fatalf("autor deveria ser o principal, obtido %v", created.CreatedBy)
	}
}

func TestCreateRejectsForeignLocation(t *testing.T) {
	tenantID := uuid.New()
	foreignLocal := repo.Local{ID: uuid.New(), TenantID: uuid.New()}

	catalog := &stubCatalog{
		locais:       map[uuid.UUID]repo.Local{foreignLocal.ID: foreignLocal},
		setores:      map[uuid.UUID]repo.Setor{},
		defaultLocal: map[uuid.UUID]repo.Local{},
	}
	svc := newTestService(newStubStore(), nil, catalog)

	p := authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleUsuario}
	_, err := svc.Create(context.Background(), p, CreateInput{Descricao: "x", LocalID: &foreignLocal.ID})
	if !errors.Is(err, authz.ErrCrossTenant) {
		t.Fatalf("local de outro tenant deveria ser negado, obtido %v", err)
	}
}

func TestChangeStatusSameStateIsNoop(t *testing.T) {
	tenantID := uuid.New()
	store := newStubStore()
	svc := newTestService(store, nil, nil)

	tk, _ := store.Create(context.Background(), CreateRecord{TenantID: tenantID, LocalID: uuid.New(), Descricao: "x", Prioridade: PrioridadeMedia})

	p := authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleTecnico}
	got, err := svc.ChangeStatus(context.Background(), p, tk.ID, StatusAberto)
	if err != nil {
		t.Fatalf("transição para o mesmo estado deveria ser no-op: %v", err)
	}
	if got.Status != StatusAberto {
		t.Fatalf("status inesperado %s", got.Status)
	}
	if store.casCalls != 0 {
		t.Fatalf("no-op não deveria tocar o banco, %d chamadas CAS", store.casCalls)
	}
}

func TestChangeStatusInvalidTransition(t *testing.T) {
	tenantID := uuid.New()
	store := newStubStore()
	svc := newTestService(store, nil, nil)

	tk, _ := store.Create(context.Background(), CreateRecord{TenantID: tenantID, LocalID: uuid.New(), Descricao: "x", Prioridade: PrioridadeMedia})

	p := authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleTecnico}
	_, err := svc.ChangeStatus(context.Background(), p, tk.ID, StatusFechado)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("aberto -> fechado deveria ser inválido, obtido %v", err)
	}
}

func TestChangeStatusRetriesOnStaleCAS(t *testing.T) {
	tenantID := uuid.New()
	store := newStubStore()
	store.casErrs = []error{errStaleStatus}
	svc := newTestService(store, nil, nil)

	tk, _ := store.Create(context.Background(), CreateRecord{TenantID: tenantID, LocalID: uuid.New(), Descricao: "x", Prioridade: PrioridadeMedia})

	p := authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleTecnico}
	got, err := svc.ChangeStatus(context.Background(), p, tk.ID, StatusEmAndamento)
	if err != nil {
		t.Fatalf("CAS obsoleto deveria ser repetido: %v", err)
	}
	if got.Status != StatusEmAndamento {
		t.Fatalf("status inesperado %s", got.Status)
	}
	if store.casCalls != 2 {
		t.Fatalf("esperadas 2 chamadas CAS, obtidas %d", store.casCalls)
	}
}

func TestChangeStatusDeniedForUsuario(t *testing.T) {
	tenantID := uuid.New()
	store := newStubStore()
	svc := newTestService(store, nil, nil)

	tk, _ := store.Create(context.Background(), CreateRecord{TenantID: tenantID, LocalID: uuid.New(), Descricao: "x", Prioridade: PrioridadeMedia})

	p := authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleUsuario}
	_, err := svc.ChangeStatus(context.Background(), p, tk.ID, StatusEmAndamento)
	if !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("USUARIO não muda status, obtido %v", err)
	}
}

func TestGetScopesToTenantAndAuthor(t *testing.T) {
	tenantID := uuid.New()
	author := uuid.New()
	store := newStubStore()
	svc := newTestService(store, nil, nil)

	tk, _ := store.Create(context.Background(), CreateRecord{TenantID: tenantID, CreatedBy: &author, LocalID: uuid.New(), Descricao: "x", Prioridade: PrioridadeMedia})

	owner := authz.Principal{UserID: author, TenantID: tenantID, Role: authz.RoleUsuario}
	if _, err := svc.Get(context.Background(), owner, tk.ID); err != nil {
		t.Fatalf("autor deveria enxergar o próprio chamado: %v", err)
	}

	otherUser := authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleUsuario}
	if _, err := svc.Get(context.Background(), otherUser, tk.ID); !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("USUARIO não enxerga chamado alheio, obtido %v", err)
	}

	tecnico := authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleTecnico}
	if _, err := svc.Get(context.Background(), tecnico, tk.ID); err != nil {
		t.Fatalf("TECNICO lista o tenant inteiro: %v", err)
	}

	foreign := authz.Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: authz.RoleGestor}
	if _, err := svc.Get(context.Background(), foreign, tk.ID); !errors.Is(err, authz.ErrCrossTenant) {
		t.Fatalf("outro tenant deveria ser negado, obtido %v", err)
	}

	// Leitura administrativa atravessa tenants; só para SUPER_ADMIN.
	super := authz.Principal{UserID: uuid.New(), TenantID: uuid.New(), Role: authz.RoleSuperAdmin}
	if _, err := svc.Get(context.Background(), super, tk.ID); err != nil {
		t.Fatalf("SUPER_ADMIN deveria ler chamado de qualquer tenant: %v", err)
	}
}

func TestListMineFiltersByAuthor(t *testing.T) {
	tenantID := uuid.New()
	store := newStubStore()
	svc := newTestService(store, nil, nil)

	p := authz.Principal{UserID: uuid.New(), TenantID: tenantID, Role: authz.RoleUsuario}

	if _, err := svc.List(context.Background(), p, true, nil, 0, 0); err != nil {
		t.Fatalf("listagem própria falhou: %v", err)
	}
	if store.lastFilter.CreatedBy == nil || *store.lastFilter.CreatedBy != p.UserID {
		t.Fatal("mine=true deveria filtrar pelo autor")
	}

	// Listagem completa do tenant exige capacidade própria.
	if _, err := svc.List(context.Background(), p, false, nil, 0, 0); !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("USUARIO não lista o tenant inteiro, obtido %v", err)
	}
}

func TestTrackByProtocolReturnsNarrowView(t *testing.T) {
	tenantID := uuid.New()
	store := newStubStore()
	svc := newTestService(store, nil, nil)

	tk, _ := store.Create(context.Background(), CreateRecord{TenantID: tenantID, LocalID: uuid.New(), Descricao: "poste apagado", Prioridade: PrioridadeAlta})

	view, err := svc.TrackByProtocol(context.Background(), tenantID, tk.ReadableID)
	if err != nil {
		t.Fatalf("consulta por protocolo falhou: %v", err)
	}
	if view.ReadableID != tk.ReadableID || view.Descricao != "poste apagado" {
		t.Fatalf("visão pública incorreta: %+v", view)
	}

	// Protocolo de outro tenant é invisível.
	if _, err := svc.TrackByProtocol(context.Background(), uuid.New(), tk.ReadableID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("protocolo fora do tenant deveria ser NotFound, obtido %v", err)
	}
}
