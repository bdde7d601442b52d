package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/odhiambodaniel/pesaflow/internal/domain/errors"
	"github.com/odhiambodaniel/pesaflow/internal/domain/gateway"
	"github.com/odhiambodaniel/pesaflow/internal/domain/rbac"
	"github.com/odhiambodaniel/pesaflow/internal/domain/webhook"
	"github.com/google/uuid"
)

// --- Catalog Mock ---

// MockCatalog is a mock implementation of gateway.Catalog.
type MockCatalog struct {
	mu          sync.Mutex
	descriptors []*gateway.Descriptor
	faults      []*gateway.Fault

	ListEnabledFunc func(ctx context.Context) ([]*gateway.Descriptor, error)
	RecordFaultFunc func(ctx context.Context, f *gateway.Fault) error
}

func NewMockCatalog(descriptors ...*gateway.Descriptor) *MockCatalog {
	return &MockCatalog{descriptors: descriptors}
}

func (m *MockCatalog) ListEnabled(ctx context.Context) ([]*gateway.Descriptor, error) {
	if m.ListEnabledFunc != nil {
		return m.ListEnabledFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*gateway.Descriptor, 0, len(m.descriptors))
	for _, d := range m.descriptors {
		if d.Enabled {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (m *MockCatalog) RecordFault(ctx context.Context, f *gateway.Fault) error {
	if m.RecordFaultFunc != nil {
		return m.RecordFaultFunc(ctx, f)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = append(m.faults, f)
	return nil
}

// Faults returns a copy of the recorded faults.
func (m *MockCatalog) Faults() []*gateway.Fault {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*gateway.Fault(nil), m.faults...)
}

// --- Delivery Repository Mock ---

// MockDeliveryRepository is an in-memory webhook.DeliveryRepository with real
// compare-and-set semantics, so concurrency tests exercise the same claim gate
// the SQL implementation provides.
type MockDeliveryRepository struct {
	mu         sync.Mutex
	deliveries map[uuid.UUID]*webhook.Delivery

	CreateFunc func(ctx context.Context, d *webhook.Delivery) error
	UpdateFunc func(ctx context.Context, d *webhook.Delivery) error
}

func NewMockDeliveryRepository() *MockDeliveryRepository {
	return &MockDeliveryRepository{deliveries: make(map[uuid.UUID]*webhook.Delivery)}
}

func (m *MockDeliveryRepository) Create(ctx context.Context, d *webhook.Delivery) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *d
	m.deliveries[d.ID] = &clone
	return nil
}

func (m *MockDeliveryRepository) GetByID(ctx context.Context, id uuid.UUID) (*webhook.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return nil, domainErrors.ErrDeliveryNotFound
	}
	clone := *d
	return &clone, nil
}

func (m *MockDeliveryRepository) Update(ctx context.Context, d *webhook.Delivery) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deliveries[d.ID]; !ok {
		return domainErrors.ErrDeliveryNotFound
	}
	clone := *d
	m.deliveries[d.ID] = &clone
	return nil
}

func (m *MockDeliveryRepository) TransitionState(ctx context.Context, id uuid.UUID, from []webhook.Status, to webhook.Status, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if d.Status == s {
			d.Status = to
			d.UpdatedAt = now
			return true, nil
		}
	}
	return false, nil
}

func (m *MockDeliveryRepository) ListRetryEligible(ctx context.Context, now time.Time, limit int) ([]*webhook.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*webhook.Delivery
	for _, d := range m.deliveries {
		if d.RetryEligible(now) {
			clone := *d
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(*out[j].NextAttemptAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockDeliveryRepository) ListByEndpoint(ctx context.Context, endpointID uuid.UUID, limit int) ([]*webhook.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*webhook.Delivery
	for _, d := range m.deliveries {
		if d.EndpointID == endpointID {
			clone := *d
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Status returns the stored status for a delivery.
func (m *MockDeliveryRepository) Status(id uuid.UUID) webhook.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.deliveries[id]; ok {
		return d.Status
	}
	return ""
}

// --- Endpoint Repository Mock ---

// MockEndpointRepository is an in-memory webhook.EndpointRepository.
type MockEndpointRepository struct {
	mu        sync.Mutex
	endpoints map[uuid.UUID]*webhook.Endpoint

	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*webhook.Endpoint, error)
}

func NewMockEndpointRepository(endpoints ...*webhook.Endpoint) *MockEndpointRepository {
	m := &MockEndpointRepository{endpoints: make(map[uuid.UUID]*webhook.Endpoint)}
	for _, e := range endpoints {
		m.endpoints[e.ID] = e
	}
	return m
}

func (m *MockEndpointRepository) Create(ctx context.Context, e *webhook.Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endpoints[e.ID] = e
	return nil
}

func (m *MockEndpointRepository) GetByID(ctx context.Context, id uuid.UUID) (*webhook.Endpoint, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.endpoints[id]
	if !ok {
		return nil, domainErrors.ErrEndpointNotFound
	}
	return e, nil
}

func (m *MockEndpointRepository) Update(ctx context.Context, e *webhook.Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.endpoints[e.ID]; !ok {
		return domainErrors.ErrEndpointNotFound
	}
	m.endpoints[e.ID] = e
	return nil
}

func (m *MockEndpointRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.endpoints[id]; !ok {
		return domainErrors.ErrEndpointNotFound
	}
	delete(m.endpoints, id)
	return nil
}

func (m *MockEndpointRepository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*webhook.Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*webhook.Endpoint
	for _, e := range m.endpoints {
		if e.ApplicationID == applicationID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MockEndpointRepository) RecordSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.endpoints[id]; ok {
		e.SuccessCount++
		t := at
		e.LastDeliveryAt = &t
	}
	return nil
}

func (m *MockEndpointRepository) RecordFailure(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.endpoints[id]; ok {
		e.FailureCount++
	}
	return nil
}

// --- Delivery Queue Mock ---

// MockQueue records enqueued delivery IDs.
type MockQueue struct {
	mu       sync.Mutex
	enqueued []uuid.UUID

	EnqueueFunc func(ctx context.Context, deliveryID uuid.UUID, eventType string) error
}

func (m *MockQueue) Enqueue(ctx context.Context, deliveryID uuid.UUID, eventType string) error {
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, deliveryID, eventType)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueued = append(m.enqueued, deliveryID)
	return nil
}

// Enqueued returns a copy of the enqueued delivery IDs.
func (m *MockQueue) Enqueued() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.enqueued...)
}

// --- Assignment Store Mock ---

// MockAssignmentStore is an in-memory rbac.AssignmentStore.
type MockAssignmentStore struct {
	mu    sync.Mutex
	roles map[uuid.UUID]map[rbac.Role]bool

	AssignFunc func(ctx context.Context, actorID uuid.UUID, role rbac.Role) error
}

func NewMockAssignmentStore() *MockAssignmentStore {
	return &MockAssignmentStore{roles: make(map[uuid.UUID]map[rbac.Role]bool)}
}

func (m *MockAssignmentStore) RolesFor(ctx context.Context, actorID uuid.UUID) ([]rbac.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []rbac.Role
	for role := range m.roles[actorID] {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *MockAssignmentStore) Assign(ctx context.Context, actorID uuid.UUID, role rbac.Role) error {
	if m.AssignFunc != nil {
		return m.AssignFunc(ctx, actorID, role)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roles[actorID] == nil {
		m.roles[actorID] = make(map[rbac.Role]bool)
	}
	m.roles[actorID][role] = true
	return nil
}

func (m *MockAssignmentStore) Revoke(ctx context.Context, actorID uuid.UUID, role rbac.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.roles[actorID], role)
	return nil
}

// --- Audit Store Mock ---

// MockAuditStore records permission check records.
type MockAuditStore struct {
	mu      sync.Mutex
	records []rbac.CheckRecord

	RecordCheckFunc func(ctx context.Context, record rbac.CheckRecord) error
}

func (m *MockAuditStore) RecordCheck(ctx context.Context, record rbac.CheckRecord) error {
	if m.RecordCheckFunc != nil {
		return m.RecordCheckFunc(ctx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

// Records returns a copy of the recorded checks.
func (m *MockAuditStore) Records() []rbac.CheckRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]rbac.CheckRecord(nil), m.records...)
}
