package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smartbus/school-bus-monitor/internal/db"
	"github.com/smartbus/school-bus-monitor/internal/models"
	"github.com/smartbus/school-bus-monitor/internal/notify"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory stand-ins for the Mongo collections, shared by the handler tests.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*models.User{}}
}

func (f *fakeUserStore) InsertUser(ctx context.Context, user models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.Username] = &user
	return nil
}

func (f *fakeUserStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ID.Hex() == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

func (f *fakeUserStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[username]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserStore) FindFirstUserByRole(ctx context.Context, role models.Role) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Role == role && user.IsActive {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("no user with role %s", role)
}

func (f *fakeUserStore) ListUsers(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, user := range f.users {
		out = append(out, *user)
	}
	return out, nil
}

func (f *fakeUserStore) DeleteUser(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for username, user := range f.users {
		if user.ID.Hex() == id {
			delete(f.users, username)
			return nil
		}
	}
	return fmt.Errorf("user not found")
}

func (f *fakeUserStore) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ID.Hex() == id {
			user.PasswordHash = passwordHash
			return nil
		}
	}
	return fmt.Errorf("user not found")
}

func (f *fakeUserStore) UpdateLastLogin(ctx context.Context, id string) error { return nil }

type fakeTelemetryStore struct {
	latest  []models.Telemetry
	history []models.Telemetry

	lastBusID string
	lastFrom  time.Time
	lastTo    time.Time
	fail      bool
}

func (f *fakeTelemetryStore) InsertTelemetry(ctx context.Context, telemetry models.Telemetry) error {
	return nil
}

func (f *fakeTelemetryStore) LatestPerBus(ctx context.Context) ([]models.Telemetry, error) {
	if f.fail {
		return nil, fmt.Errorf("store unavailable")
	}
	return f.latest, nil
}

func (f *fakeTelemetryStore) History(ctx context.Context, busID string, from, to time.Time) ([]models.Telemetry, error) {
	if f.fail {
		return nil, fmt.Errorf("store unavailable")
	}
	f.lastBusID = busID
	f.lastFrom = from
	f.lastTo = to
	return f.history, nil
}

type fakeAlertStore struct {
	alerts    []models.Alert
	lastLimit int64
}

func (f *fakeAlertStore) InsertAlert(ctx context.Context, alert models.Alert) (primitive.ObjectID, error) {
	return primitive.NewObjectID(), nil
}

func (f *fakeAlertStore) FindAlertByID(ctx context.Context, id string) (*models.Alert, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, err
	}
	for _, alert := range f.alerts {
		if alert.ID.Hex() == id {
			copied := alert
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("alert not found")
}

func (f *fakeAlertStore) RecentAlerts(ctx context.Context, limit int64) ([]models.Alert, error) {
	f.lastLimit = limit
	return f.alerts, nil
}

type memoryConfigStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryConfigStore() *memoryConfigStore {
	return &memoryConfigStore{values: map[string]string{}}
}

func (m *memoryConfigStore) GetConfigMap(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for key, value := range m.values {
		out[key] = value
	}
	return out, nil
}

func (m *memoryConfigStore) UpsertConfigValues(ctx context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, value := range values {
		m.values[key] = value
	}
	return nil
}

type memoryMessageStore struct {
	mu      sync.Mutex
	records map[primitive.ObjectID]*models.DriverMessage
}

func newMemoryMessageStore() *memoryMessageStore {
	return &memoryMessageStore{records: map[primitive.ObjectID]*models.DriverMessage{}}
}

func (m *memoryMessageStore) InsertMessage(ctx context.Context, message models.DriverMessage) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := primitive.NewObjectID()
	message.ID = id
	m.records[id] = &message
	return id, nil
}

func (m *memoryMessageStore) FindMessageByID(ctx context.Context, id string) (*models.DriverMessage, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	message, ok := m.records[objectID]
	if !ok {
		return nil, fmt.Errorf("message not found")
	}
	copied := *message
	return &copied, nil
}

func (m *memoryMessageStore) FindMessages(ctx context.Context, busID string, limit, offset int64) ([]models.DriverMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DriverMessage
	for _, message := range m.records {
		if busID == "" || message.BusID == busID {
			out = append(out, *message)
		}
	}
	return out, nil
}

func (m *memoryMessageStore) UpdateMessageStatus(ctx context.Context, id primitive.ObjectID, update db.MessageStatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	message, ok := m.records[id]
	if !ok {
		return fmt.Errorf("message not found")
	}
	message.Status = update.Status
	return nil
}

// fakeNotifier persists the rendered message in pending state without running
// any lifecycle, mirroring what Dispatch guarantees at return time.
type fakeNotifier struct {
	messages *memoryMessageStore
	requests []notify.Request
	fail     bool
}

func (f *fakeNotifier) Dispatch(ctx context.Context, req notify.Request) (primitive.ObjectID, error) {
	if f.fail {
		return primitive.NilObjectID, fmt.Errorf("dispatch unavailable")
	}
	f.requests = append(f.requests, req)
	return f.messages.InsertMessage(ctx, models.DriverMessage{
		BusID:        req.BusID,
		AlertID:      req.AlertID,
		MessageText:  notify.RenderMessage(req.TemplateType, req.Speed, req.Threshold, req.CustomNote),
		TemplateType: req.TemplateType,
		CustomNote:   req.CustomNote,
		SentByUserID: req.SenderID,
		SentAt:       time.Now().UTC(),
		Status:       models.MessageStatusPending,
	})
}
