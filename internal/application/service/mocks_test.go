package service

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/application/port"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/event"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
)

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockRoles map[int64]workflow.Role

func (m mockRoles) RoleOf(ctx context.Context, userID int64) (workflow.Role, error) {
	role, ok := m[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	return role, nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockPublisher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

type mockRequestRepo struct {
	createFunc        func(ctx context.Context, req *entity.Request) error
	getByIDFunc       func(ctx context.Context, id int64) (*entity.Request, error)
	updateDetailsFunc func(ctx context.Context, req *entity.Request) error
	updateStatusFunc  func(ctx context.Context, update entity.StatusUpdate) error
	listByOwnerFunc   func(ctx context.Context, ownerID int64) ([]*entity.Request, error)
	listByStatusFunc  func(ctx context.Context, status workflow.Status) ([]*entity.Request, error)
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.Request) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	req.ID = 1
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id int64) (*entity.Request, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockRequestRepo) UpdateDetails(ctx context.Context, req *entity.Request) error {
	if m.updateDetailsFunc != nil {
		return m.updateDetailsFunc(ctx, req)
	}
	return nil
}

func (m *mockRequestRepo) UpdateStatus(ctx context.Context, update entity.StatusUpdate) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, update)
	}
	return nil
}

func (m *mockRequestRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*entity.Request, error) {
	if m.listByOwnerFunc != nil {
		return m.listByOwnerFunc(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockRequestRepo) ListByStatus(ctx context.Context, status workflow.Status) ([]*entity.Request, error) {
	if m.listByStatusFunc != nil {
		return m.listByStatusFunc(ctx, status)
	}
	return nil, nil
}

type mockRouteRepo struct {
	listByRequestFunc func(ctx context.Context, requestID int64) ([]*entity.Route, error)
	created           []*entity.Route
	links             [][2]int64
}

func (m *mockRouteRepo) Create(ctx context.Context, route *entity.Route) error {
	route.ID = int64(len(m.created) + 1)
	m.created = append(m.created, route)
	return nil
}

func (m *mockRouteRepo) Link(ctx context.Context, requestID, routeID int64) error {
	m.links = append(m.links, [2]int64{requestID, routeID})
	return nil
}

func (m *mockRouteRepo) ListByRequest(ctx context.Context, requestID int64) ([]*entity.Route, error) {
	if m.listByRequestFunc != nil {
		return m.listByRequestFunc(ctx, requestID)
	}
	return nil, nil
}

func (m *mockRouteRepo) DeleteByRequest(ctx context.Context, requestID int64) (int64, error) {
	return 0, nil
}

type mockHistoryRepo struct {
	createFunc func(ctx context.Context, change *entity.StatusChange) error
	changes    []*entity.StatusChange
}

func (m *mockHistoryRepo) Create(ctx context.Context, change *entity.StatusChange) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, change)
	}
	m.changes = append(m.changes, change)
	return nil
}

func (m *mockHistoryRepo) ListByRequest(ctx context.Context, requestID int64) ([]*entity.StatusChange, error) {
	return m.changes, nil
}

type mockLocationRepo struct {
	findFunc   func(ctx context.Context, kind entity.LocationKind, name string) (int64, error)
	insertFunc func(ctx context.Context, kind entity.LocationKind, name string) (int64, error)
}

func (m *mockLocationRepo) FindByName(ctx context.Context, kind entity.LocationKind, name string) (int64, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, kind, name)
	}
	return 0, nil
}

func (m *mockLocationRepo) Insert(ctx context.Context, kind entity.LocationKind, name string) (int64, error) {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, kind, name)
	}
	return 1, nil
}

type mockReceiptRepo struct {
	createFunc        func(ctx context.Context, receipt *entity.Receipt) error
	getByIDFunc       func(ctx context.Context, id int64) (*entity.Receipt, error)
	listByRequestFunc func(ctx context.Context, requestID int64) ([]*entity.Receipt, error)
	decidePendingFunc func(ctx context.Context, id int64, state entity.ValidationState) (bool, error)
	setFileRefsFunc   func(ctx context.Context, id int64, pdfRef, xmlRef string) error
	deleteFunc        func(ctx context.Context, id int64) error
	created           []*entity.Receipt
}

func (m *mockReceiptRepo) Create(ctx context.Context, receipt *entity.Receipt) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, receipt)
	}
	receipt.ID = int64(len(m.created) + 1)
	m.created = append(m.created, receipt)
	return nil
}

func (m *mockReceiptRepo) GetByID(ctx context.Context, id int64) (*entity.Receipt, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockReceiptRepo) ListByRequest(ctx context.Context, requestID int64) ([]*entity.Receipt, error) {
	if m.listByRequestFunc != nil {
		return m.listByRequestFunc(ctx, requestID)
	}
	return nil, nil
}

func (m *mockReceiptRepo) DecidePending(ctx context.Context, id int64, state entity.ValidationState) (bool, error) {
	if m.decidePendingFunc != nil {
		return m.decidePendingFunc(ctx, id, state)
	}
	return true, nil
}

func (m *mockReceiptRepo) SetFileRefs(ctx context.Context, id int64, pdfRef, xmlRef string) error {
	if m.setFileRefsFunc != nil {
		return m.setFileRefsFunc(ctx, id, pdfRef, xmlRef)
	}
	return nil
}

func (m *mockReceiptRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type mockUserRepo struct {
	createFunc           func(ctx context.Context, user *entity.User) error
	getByIDFunc          func(ctx context.Context, id int64) (*entity.User, error)
	listActiveByRoleFunc func(ctx context.Context, role workflow.Role) ([]*entity.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	user.ID = 1
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) ListActiveByRole(ctx context.Context, role workflow.Role) ([]*entity.User, error) {
	if m.listActiveByRoleFunc != nil {
		return m.listActiveByRoleFunc(ctx, role)
	}
	return nil, nil
}

// prefixCodec marks ciphertexts with a prefix so tests can tell them apart
type prefixCodec struct {
	failDecrypt bool
}

func (c *prefixCodec) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func (c *prefixCodec) Decrypt(ciphertext string) (string, error) {
	if c.failDecrypt {
		return "", io.ErrUnexpectedEOF
	}
	return ciphertext[len("enc:"):], nil
}

type mockNotifier struct {
	mu        sync.Mutex
	notifyErr func(contact string) error
	sent      []string
}

func (m *mockNotifier) Notify(ctx context.Context, contact, name string, requestID int64, statusLabel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notifyErr != nil {
		if err := m.notifyErr(contact); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, contact)
	return nil
}

type mockBlobStore struct {
	putFunc    func(ctx context.Context, content []byte, name, mimeType string, metadata map[string]string) (string, error)
	deleteFunc func(ctx context.Context, ref string) error
	deleted    []string
}

func (m *mockBlobStore) Put(ctx context.Context, content []byte, name, mimeType string, metadata map[string]string) (string, error) {
	if m.putFunc != nil {
		return m.putFunc(ctx, content, name, mimeType, metadata)
	}
	return "ref-" + name, nil
}

func (m *mockBlobStore) Get(ctx context.Context, ref string) (io.ReadCloser, *port.BlobInfo, error) {
	return io.NopCloser(bytes.NewReader([]byte(ref))), &port.BlobInfo{Ref: ref}, nil
}

func (m *mockBlobStore) Delete(ctx context.Context, ref string) error {
	m.deleted = append(m.deleted, ref)
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, ref)
	}
	return nil
}

type mockInspector struct {
	pages int
	err   error
}

func (m *mockInspector) PageCount(content []byte) (int, error) {
	return m.pages, m.err
}
