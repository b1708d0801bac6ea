package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightsmile/reception/internal/domain/office"
	"github.com/brightsmile/reception/internal/infrastructure/redislock"
)

type fakeRepo struct {
	slots        map[uuid.UUID]*Slot
	patients     map[string]*Patient
	appointments map[uuid.UUID]*Appointment
	overlapCount int
	inserted     []*Slot
	bookErr      error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		slots:        map[uuid.UUID]*Slot{},
		patients:     map[string]*Patient{},
		appointments: map[uuid.UUID]*Appointment{},
	}
}

func (f *fakeRepo) InsertSlots(_ context.Context, slots []*Slot) error {
	f.inserted = append(f.inserted, slots...)
	for _, s := range slots {
		f.slots[s.ID] = s
	}
	return nil
}

func (f *fakeRepo) CountOverlappingSlots(context.Context, uuid.UUID, time.Time, time.Time) (int, error) {
	return f.overlapCount, nil
}

func (f *fakeRepo) ListSlots(context.Context, uuid.UUID, *uuid.UUID, time.Time, time.Time) ([]Slot, error) {
	var out []Slot
	for _, s := range f.slots {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeRepo) GetSlot(_ context.Context, id uuid.UUID) (*Slot, error) {
	s, ok := f.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return s, nil
}

func (f *fakeRepo) FindPatientByPhone(_ context.Context, _ uuid.UUID, phone string) (*Patient, error) {
	p, ok := f.patients[phone]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

func (f *fakeRepo) CreatePatient(_ context.Context, p *Patient) error {
	f.patients[p.Phone] = p
	return nil
}

func (f *fakeRepo) Book(_ context.Context, appt *Appointment, _ *Patient) error {
	if f.bookErr != nil {
		return f.bookErr
	}
	slot := f.slots[appt.SlotID]
	if slot == nil || slot.Status != SlotOpen {
		return ErrSlotNotOpen
	}
	slot.Status = SlotBooked
	appt.StartsAt = slot.StartsAt
	appt.EndsAt = slot.EndsAt
	appt.Status = AppointmentConfirmed
	appt.SyncStatus = SyncPending
	f.appointments[appt.ID] = appt
	return nil
}

func (f *fakeRepo) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := f.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return a, nil
}

func (f *fakeRepo) Cancel(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := f.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if a.Status == AppointmentCancelled {
		return nil, ErrAlreadyCancelled
	}
	a.Status = AppointmentCancelled
	f.slots[a.SlotID].Status = SlotOpen
	return a, nil
}

func (f *fakeRepo) MarkSyncResult(_ context.Context, id uuid.UUID, status SyncStatus, ref *string) error {
	if a, ok := f.appointments[id]; ok {
		a.SyncStatus = status
		a.PMSRef = ref
	}
	return nil
}

type fakeOffices struct {
	office *office.Office
}

func (f *fakeOffices) Get(context.Context, uuid.UUID) (*office.Office, error) {
	return f.office, nil
}

type fakeLocker struct {
	contended bool
	calls     int
}

func (f *fakeLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, fn func(context.Context) error) error {
	f.calls++
	if f.contended {
		return redislock.ErrLockNotAcquired
	}
	return fn(ctx)
}

func testOffice() *office.Office {
	return &office.Office{
		ID:       uuid.New(),
		Name:     "Lakeside Dental",
		Timezone: "UTC",
		Hours:    office.DefaultHours(),
	}
}

func newTestService(repo *fakeRepo, locker *fakeLocker) (*Service, *office.Office) {
	o := testOffice()
	return NewService(repo, &fakeOffices{office: o}, locker, nil, nil), o
}

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestGenerateSlots(t *testing.T) {
	repo := newFakeRepo()
	svc, o := newTestService(repo, &fakeLocker{})

	slots, err := svc.GenerateSlots(context.Background(), GenerateSlotsInput{
		OfficeID:    o.ID,
		ProviderID:  uuid.New(),
		Day:         monday,
		StartMinute: 9 * 60,
		EndMinute:   17 * 60,
		Duration:    30 * time.Minute,
	})
	require.NoError(t, err)
	require.Len(t, slots, 16)
	assert.Len(t, repo.inserted, 16)

	for _, s := range slots {
		assert.Equal(t, SlotOpen, s.Status)
		assert.Equal(t, o.ID, s.OfficeID)
	}
}

func TestGenerateSlotsHonorsOfficeTimezone(t *testing.T) {
	repo := newFakeRepo()
	o := testOffice()
	o.Timezone = "America/New_York"
	svc := NewService(repo, &fakeOffices{office: o}, &fakeLocker{}, nil, nil)

	// The handler parses dates as UTC midnight; for a negative-offset office
	// that instant is still Sunday evening local time. The window must be
	// validated and generated against the requested Monday, not Sunday.
	slots, err := svc.GenerateSlots(context.Background(), GenerateSlotsInput{
		OfficeID:    o.ID,
		ProviderID:  uuid.New(),
		Day:         monday,
		StartMinute: 9 * 60,
		EndMinute:   17 * 60,
		Duration:    30 * time.Minute,
	})
	require.NoError(t, err)
	require.Len(t, slots, 16)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	want := time.Date(2026, 3, 2, 9, 0, 0, 0, loc)
	assert.True(t, slots[0].StartsAt.Equal(want),
		"first slot starts at %s, want %s", slots[0].StartsAt, want)
	assert.Equal(t, time.Monday, slots[0].StartsAt.In(loc).Weekday())
}

func TestGenerateSlotsValidation(t *testing.T) {
	providerID := uuid.New()

	tests := []struct {
		name    string
		in      GenerateSlotsInput
		overlap int
		wantErr error
	}{
		{
			name: "end before start",
			in: GenerateSlotsInput{
				Day: monday, StartMinute: 17 * 60, EndMinute: 9 * 60, Duration: 30 * time.Minute,
			},
			wantErr: ErrEndBeforeStart,
		},
		{
			name: "before opening",
			in: GenerateSlotsInput{
				Day: monday, StartMinute: 6 * 60, EndMinute: 9 * 60, Duration: 30 * time.Minute,
			},
			wantErr: ErrOutsideClinicHours,
		},
		{
			name: "closed on sunday",
			in: GenerateSlotsInput{
				Day:         monday.AddDate(0, 0, -1),
				StartMinute: 9 * 60, EndMinute: 12 * 60, Duration: 30 * time.Minute,
			},
			wantErr: ErrOutsideClinicHours,
		},
		{
			name: "overlapping existing slots",
			in: GenerateSlotsInput{
				Day: monday, StartMinute: 9 * 60, EndMinute: 12 * 60, Duration: 30 * time.Minute,
			},
			overlap: 3,
			wantErr: ErrOverlappingSlots,
		},
		{
			name: "window smaller than duration",
			in: GenerateSlotsInput{
				Day: monday, StartMinute: 9 * 60, EndMinute: 9*60 + 20, Duration: 30 * time.Minute,
			},
			wantErr: ErrNoSlotsGenerated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			repo.overlapCount = tt.overlap
			svc, o := newTestService(repo, &fakeLocker{})

			tt.in.OfficeID = o.ID
			tt.in.ProviderID = providerID
			_, err := svc.GenerateSlots(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, repo.inserted)
		})
	}
}

func openSlot(repo *fakeRepo, officeID uuid.UUID) *Slot {
	s := &Slot{
		ID:         uuid.New(),
		OfficeID:   officeID,
		ProviderID: uuid.New(),
		StartsAt:   monday.Add(9 * time.Hour),
		EndsAt:     monday.Add(9*time.Hour + 30*time.Minute),
		Status:     SlotOpen,
	}
	repo.slots[s.ID] = s
	return s
}

func TestBookAppointment(t *testing.T) {
	repo := newFakeRepo()
	locker := &fakeLocker{}
	svc, o := newTestService(repo, locker)
	slot := openSlot(repo, o.ID)

	appt, err := svc.BookAppointment(context.Background(), BookInput{
		OfficeID:  o.ID,
		SlotID:    slot.ID,
		Service:   "cleaning",
		FirstName: "Maya",
		LastName:  "Torres",
		Phone:     "+15550100",
	})
	require.NoError(t, err)

	assert.Equal(t, AppointmentConfirmed, appt.Status)
	assert.Equal(t, SyncPending, appt.SyncStatus)
	assert.Equal(t, slot.StartsAt, appt.StartsAt)
	assert.Equal(t, SlotBooked, slot.Status)
	assert.Equal(t, 1, locker.calls)

	// First contact creates the patient record.
	p, err := repo.FindPatientByPhone(context.Background(), o.ID, "+15550100")
	require.NoError(t, err)
	assert.Equal(t, p.ID, appt.PatientID)
}

func TestBookAppointmentReusesPatient(t *testing.T) {
	repo := newFakeRepo()
	svc, o := newTestService(repo, &fakeLocker{})
	slot := openSlot(repo, o.ID)

	existing := &Patient{ID: uuid.New(), OfficeID: o.ID, FirstName: "Maya", Phone: "+15550100"}
	repo.patients[existing.Phone] = existing

	appt, err := svc.BookAppointment(context.Background(), BookInput{
		OfficeID: o.ID, SlotID: slot.ID, Service: "cleaning",
		FirstName: "Maya", Phone: "+15550100",
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, appt.PatientID)
	assert.Len(t, repo.patients, 1)
}

func TestBookAppointmentSlotNotOpen(t *testing.T) {
	repo := newFakeRepo()
	svc, o := newTestService(repo, &fakeLocker{})
	slot := openSlot(repo, o.ID)
	slot.Status = SlotBooked

	_, err := svc.BookAppointment(context.Background(), BookInput{
		OfficeID: o.ID, SlotID: slot.ID, FirstName: "Maya", Phone: "+15550100",
	})
	assert.ErrorIs(t, err, ErrSlotNotOpen)
}

func TestBookAppointmentLockContention(t *testing.T) {
	repo := newFakeRepo()
	svc, o := newTestService(repo, &fakeLocker{contended: true})
	slot := openSlot(repo, o.ID)

	_, err := svc.BookAppointment(context.Background(), BookInput{
		OfficeID: o.ID, SlotID: slot.ID, FirstName: "Maya", Phone: "+15550100",
	})
	assert.ErrorIs(t, err, ErrSlotBeingBooked)
	assert.Equal(t, SlotOpen, slot.Status)
}

func TestCancelAppointmentReopensSlot(t *testing.T) {
	repo := newFakeRepo()
	svc, o := newTestService(repo, &fakeLocker{})
	slot := openSlot(repo, o.ID)

	appt, err := svc.BookAppointment(context.Background(), BookInput{
		OfficeID: o.ID, SlotID: slot.ID, FirstName: "Maya", Phone: "+15550100",
	})
	require.NoError(t, err)

	cancelled, err := svc.CancelAppointment(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, AppointmentCancelled, cancelled.Status)
	assert.Equal(t, SlotOpen, slot.Status)

	_, err = svc.CancelAppointment(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}
