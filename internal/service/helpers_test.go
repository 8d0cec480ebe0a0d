package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/calendar"
	"github.com/Freeeeeet/vaccination_scheduler/internal/eligibility"
	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var clinic = time.FixedZone("IST", 5*3600+1800)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, clinic)
}

type fixture struct {
	mem   *memory.Store
	store *repository.Store
	clock calendar.FixedClock
	cfg   BatchConfig
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	mem := memory.NewStore()
	return &fixture{
		mem:   mem,
		store: mem.Repositories(),
		clock: calendar.FixedClock{At: now},
		cfg:   BatchConfig{HorizonDays: 14, Workers: 3, ItemTimeout: time.Second},
	}
}

func (f *fixture) slotService() *SlotService {
	return NewSlotService(f.store.Nurses, f.store.Slots, f.clock, f.cfg, zap.NewNop())
}

func (f *fixture) bookingService() *BookingService {
	return NewBookingService(f.store.Tx, f.store.Slots, f.store.Requests, zap.NewNop())
}

func (f *fixture) requestService(leadTime time.Duration) *RequestService {
	return NewRequestService(f.store, f.bookingService(), NewValidator(), f.clock, leadTime, zap.NewNop())
}

func (f *fixture) reminderService(n *fakeNotifier) *ReminderService {
	calc := eligibility.NewCalculator(f.clock)
	return NewReminderService(f.store, calc, n, f.clock, f.cfg, zap.NewNop())
}

func (f *fixture) addNurse(t *testing.T, name string) *model.Nurse {
	t.Helper()
	n := &model.Nurse{Name: name, Phone: "+919800000001"}
	require.NoError(t, f.store.Nurses.Create(context.Background(), n))
	return n
}

// addDays создаёт полный шаблон слотов на указанные дни
func (f *fixture) addDays(t *testing.T, nurseID int64, days ...time.Time) []*model.Slot {
	t.Helper()
	var slots []*model.Slot
	for _, d := range days {
		slots = append(slots, model.DayTemplate(nurseID, d)...)
	}
	_, err := f.store.Slots.BulkCreate(context.Background(), slots)
	require.NoError(t, err)
	return slots
}

func (f *fixture) addGuardian(t *testing.T, name string, chatID int64) *model.Guardian {
	t.Helper()
	g := &model.Guardian{Name: name, Phone: "+919800000002", TelegramChatID: chatID}
	require.NoError(t, f.store.Guardians.Create(context.Background(), g))
	return g
}

func (f *fixture) addChild(t *testing.T, guardianID int64, name string, birth time.Time) *model.Child {
	t.Helper()
	c := &model.Child{UserID: guardianID, Name: name, BirthDate: birth}
	require.NoError(t, f.store.Children.Create(context.Background(), c))
	return c
}

func (f *fixture) addVaccine(t *testing.T, name, requiredAge string) *model.Vaccine {
	t.Helper()
	v := &model.Vaccine{Name: name, RequiredAge: requiredAge, Description: name + " protects against disease"}
	require.NoError(t, f.store.Vaccines.Create(context.Background(), v))
	return v
}

func (f *fixture) addRequest(t *testing.T, child *model.Child, vaccine *model.Vaccine, date time.Time) *model.VaccineRequest {
	t.Helper()
	r := &model.VaccineRequest{
		ParentID:        child.UserID,
		ChildID:         child.ID,
		VaccineID:       vaccine.ID,
		Status:          model.RequestStatusPending,
		VaccinationDate: date,
		Address:         model.Address{Line1: "12 MG Road", City: "Pune", PostalCode: "411001"},
	}
	require.NoError(t, f.store.Requests.Create(context.Background(), r))
	return r
}

func (f *fixture) request(t *testing.T, id int64) *model.VaccineRequest {
	t.Helper()
	r, err := f.store.Requests.GetByID(context.Background(), id)
	require.NoError(t, err)
	return r
}

func (f *fixture) slot(t *testing.T, id int64) *model.Slot {
	t.Helper()
	s, err := f.store.Slots.GetByID(context.Background(), id)
	require.NoError(t, err)
	return s
}

type sentMessage struct {
	destination string
	body        string
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []sentMessage
	failTo map[string]error
	// адреса, отправка на которые висит до отмены контекста
	hangTo map[string]bool
}

func (n *fakeNotifier) Send(ctx context.Context, destination, body string) error {
	if n.hangTo[destination] {
		<-ctx.Done()
		return model.Transient("send", ctx.Err())
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.failTo[destination]; ok {
		return model.Transient("send", err)
	}
	n.sent = append(n.sent, sentMessage{destination: destination, body: body})
	return nil
}

func (n *fakeNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}
