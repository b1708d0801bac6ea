package pmssync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightsmile/reception/internal/domain/office"
	"github.com/brightsmile/reception/internal/domain/schedule"
	"github.com/brightsmile/reception/internal/infrastructure/redpanda"
	"github.com/brightsmile/reception/internal/pms"
	"github.com/brightsmile/reception/internal/pms/factory"
	"github.com/brightsmile/reception/pkg/workerpool"
)

func taskFor(event *schedule.BookedEvent) *workerpool.Task {
	return &workerpool.Task{ID: event.AppointmentID.String(), Payload: event}
}

type fakeOffices struct {
	byID map[uuid.UUID]*office.Office
}

func (f *fakeOffices) Get(_ context.Context, id uuid.UUID) (*office.Office, error) {
	o, ok := f.byID[id]
	if !ok {
		return nil, office.ErrNotFound
	}
	return o, nil
}

type fakeOpener struct{}

func (fakeOpener) Open([]byte) (pms.Credentials, error) {
	return pms.Credentials{ClientID: "client-1", ClientSecret: "secret-1"}, nil
}

type syncResult struct {
	status schedule.SyncStatus
	ref    *string
}

type fakeStore struct {
	results map[uuid.UUID]syncResult
}

func newFakeStore() *fakeStore {
	return &fakeStore{results: map[uuid.UUID]syncResult{}}
}

func (f *fakeStore) MarkSyncResult(_ context.Context, id uuid.UUID, status schedule.SyncStatus, ref *string) error {
	f.results[id] = syncResult{status: status, ref: ref}
	return nil
}

type published struct {
	topic string
	value []byte
}

type fakePublisher struct {
	messages []published
}

func (f *fakePublisher) ProduceMessage(_ context.Context, topic, _ string, value []byte) error {
	f.messages = append(f.messages, published{topic: topic, value: value})
	return nil
}

// vendorStub serves the CareStack surface the sync path touches.
func vendorStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok", "expires_in": 3600,
		})
	})
	mux.HandleFunc("/patients", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]string{"patient_id": "cs-9"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"patients": []interface{}{}})
	})
	mux.HandleFunc("/appointments", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"appointment_id": "cs-appt-1", "status": "confirmed",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestWorker(t *testing.T, offices *fakeOffices) (*Worker, *fakeStore, *fakePublisher) {
	t.Helper()
	resolver := factory.NewResolver(offices, fakeOpener{}, factory.New(nil, nil))
	store := newFakeStore()
	publisher := &fakePublisher{}

	w, err := NewWorker(Config{Workers: 1}, resolver, store, publisher, nil, nil, nil)
	require.NoError(t, err)
	return w, store, publisher
}

func bookedEvent(officeID uuid.UUID) *schedule.BookedEvent {
	return &schedule.BookedEvent{
		AppointmentID:    uuid.New(),
		OfficeID:         officeID,
		SlotID:           uuid.New(),
		PatientID:        uuid.New(),
		ProviderID:       uuid.New(),
		Service:          "cleaning",
		StartsAt:         time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		EndsAt:           time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		PatientFirstName: "Maya",
		PatientLastName:  "Torres",
		PatientPhone:     "+15550100",
	}
}

func TestSyncMirrorsBooking(t *testing.T) {
	srv := vendorStub(t)
	officeID := uuid.New()
	offices := &fakeOffices{byID: map[uuid.UUID]*office.Office{
		officeID: {
			ID:          officeID,
			PMSType:     pms.VendorCareStack,
			PMSBaseURL:  srv.URL,
			PMSTokenURL: srv.URL + "/oauth/token",
		},
	}}
	w, store, publisher := newTestWorker(t, offices)

	event := bookedEvent(officeID)
	err := w.syncTask(context.Background(), taskFor(event))
	require.NoError(t, err)

	result := store.results[event.AppointmentID]
	assert.Equal(t, schedule.SyncSynced, result.status)
	require.NotNil(t, result.ref)
	assert.Equal(t, "cs-appt-1", *result.ref)

	require.Len(t, publisher.messages, 1)
	assert.Equal(t, redpanda.TopicAppointmentSynced, publisher.messages[0].topic)

	var synced SyncedEvent
	require.NoError(t, json.Unmarshal(publisher.messages[0].value, &synced))
	assert.Equal(t, event.AppointmentID, synced.AppointmentID)
	assert.Equal(t, "cs-appt-1", synced.PMSRef)
}

func TestSyncFailureLeavesBookingLocal(t *testing.T) {
	officeID := uuid.New()
	offices := &fakeOffices{byID: map[uuid.UUID]*office.Office{
		officeID: {ID: officeID, PMSType: pms.VendorEaglesoft},
	}}
	w, store, publisher := newTestWorker(t, offices)

	event := bookedEvent(officeID)
	// A stub adapter is a permanent failure: no retry, no error back to the pool.
	err := w.syncTask(context.Background(), taskFor(event))
	require.NoError(t, err)

	result := store.results[event.AppointmentID]
	assert.Equal(t, schedule.SyncFailed, result.status)
	assert.Nil(t, result.ref)
	assert.Empty(t, publisher.messages)
}

func TestSyncUnknownOfficeMarkedFailed(t *testing.T) {
	w, store, _ := newTestWorker(t, &fakeOffices{byID: map[uuid.UUID]*office.Office{}})

	event := bookedEvent(uuid.New())
	err := w.syncTask(context.Background(), taskFor(event))
	require.NoError(t, err)
	assert.Equal(t, schedule.SyncFailed, store.results[event.AppointmentID].status)
}

func TestHandleMessageDropsGarbage(t *testing.T) {
	w, store, _ := newTestWorker(t, &fakeOffices{byID: map[uuid.UUID]*office.Office{}})

	err := w.HandleMessage(context.Background(), &redpanda.ConsumedMessage{
		Topic: redpanda.TopicAppointmentBooked,
		Value: []byte("not json"),
	})
	require.NoError(t, err)
	assert.Empty(t, store.results)
}
