package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var validAddress = model.Address{Line1: "12 MG Road", City: "Pune", PostalCode: "411001"}

func TestRequestService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Date(2025, 6, 1, 10, 0, 0, 0, clinic))
	svc := f.requestService(0)

	guardian := f.addGuardian(t, "Ravi", 1001)
	child := f.addChild(t, guardian.ID, "Meera", day(2025, 1, 1))
	vaccine := f.addVaccine(t, "DTaP", "6 weeks")

	req, err := svc.Create(ctx, CreateRequestInput{
		ParentID:        guardian.ID,
		ChildID:         child.ID,
		VaccineID:       vaccine.ID,
		VaccinationDate: time.Date(2025, 6, 5, 15, 0, 0, 0, clinic),
		Address:         validAddress,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, req.Status)
	assert.Equal(t, day(2025, 6, 5), req.VaccinationDate)
	assert.False(t, req.HasAssignment())

	stored := f.request(t, req.ID)
	require.NotNil(t, stored)
	assert.Equal(t, validAddress, stored.Address)
}

func TestRequestService_CreateRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Date(2025, 6, 1, 10, 0, 0, 0, clinic))
	svc := f.requestService(0)

	guardian := f.addGuardian(t, "Ravi", 1001)
	other := f.addGuardian(t, "Kiran", 1002)
	child := f.addChild(t, guardian.ID, "Meera", day(2025, 1, 1))
	vaccine := f.addVaccine(t, "DTaP", "6 weeks")

	valid := CreateRequestInput{
		ParentID:        guardian.ID,
		ChildID:         child.ID,
		VaccineID:       vaccine.ID,
		VaccinationDate: day(2025, 6, 5),
		Address:         validAddress,
	}

	tests := []struct {
		name    string
		mutate  func(in *CreateRequestInput)
		wantErr error
	}{
		{"missing city", func(in *CreateRequestInput) { in.Address.City = "" }, model.ErrInvalidInput},
		{"missing date", func(in *CreateRequestInput) { in.VaccinationDate = time.Time{} }, model.ErrInvalidInput},
		{"date in the past", func(in *CreateRequestInput) { in.VaccinationDate = day(2025, 5, 31) }, model.ErrInvalidInput},
		{"child of another guardian", func(in *CreateRequestInput) { in.ParentID = other.ID }, model.ErrNotFound},
		{"unknown vaccine", func(in *CreateRequestInput) { in.VaccineID = 999 }, model.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := svc.Create(ctx, in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRequestService_AdminTransitions(t *testing.T) {
	ctx := context.Background()
	s := newBookingSetup(t)
	svc := s.f.requestService(0)

	pending := s.f.addRequest(t, s.child, s.vaccine, day(2025, 6, 2))
	require.NoError(t, svc.Reject(ctx, pending.ID))
	assert.Equal(t, model.RequestStatusRejected, s.f.request(t, pending.ID).Status)

	// из терминального статуса переходов нет
	assert.ErrorIs(t, svc.Reject(ctx, pending.ID), model.ErrInvalidState)
	assert.ErrorIs(t, svc.MarkDelivered(ctx, pending.ID), model.ErrInvalidState)

	confirmed := s.f.addRequest(t, s.child, s.vaccine, day(2025, 6, 2))
	assert.ErrorIs(t, svc.MarkDelivered(ctx, confirmed.ID), model.ErrInvalidState)

	_, err := s.svc.BookSlot(ctx, s.slots[0].ID, confirmed.ID, s.nurse.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Reject(ctx, confirmed.ID), model.ErrInvalidState)
	require.NoError(t, svc.MarkDelivered(ctx, confirmed.ID))
	assert.Equal(t, model.RequestStatusDelivered, s.f.request(t, confirmed.ID).Status)

	assert.ErrorIs(t, svc.Reject(ctx, 999), model.ErrNotFound)
}

func TestRequestService_CancelPending(t *testing.T) {
	ctx := context.Background()
	s := newBookingSetup(t)
	svc := s.f.requestService(0)
	req := s.f.addRequest(t, s.child, s.vaccine, day(2025, 6, 2))

	assert.ErrorIs(t, svc.Cancel(ctx, req.ID, 999), model.ErrNotFound)

	require.NoError(t, svc.Cancel(ctx, req.ID, s.child.UserID))
	assert.Nil(t, s.f.request(t, req.ID))
}

func TestRequestService_CancelConfirmedReleasesSlot(t *testing.T) {
	ctx := context.Background()
	s := newBookingSetup(t)
	// сейчас 2025-06-01 10:00, слот 2025-06-02 11:00: до визита 25 часов
	svc := s.f.requestService(24 * time.Hour)
	req := s.f.addRequest(t, s.child, s.vaccine, day(2025, 6, 2))
	_, err := s.svc.BookSlot(ctx, s.slots[2].ID, req.ID, s.nurse.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, req.ID, s.child.UserID))

	assert.Nil(t, s.f.request(t, req.ID))
	assert.False(t, s.f.slot(t, s.slots[2].ID).IsBooked)
}

func TestRequestService_CancelReleaseReportedAfterCommit(t *testing.T) {
	ctx := context.Background()
	s := newBookingSetup(t)
	core, logs := observer.New(zap.InfoLevel)
	booking := NewBookingService(s.f.store.Tx, s.f.store.Slots, s.f.store.Requests, zap.New(core))
	svc := NewRequestService(s.f.store, booking, NewValidator(), s.f.clock, 24*time.Hour, zap.NewNop())

	req := s.f.addRequest(t, s.child, s.vaccine, day(2025, 6, 2))
	_, err := s.svc.BookSlot(ctx, s.slots[2].ID, req.ID, s.nurse.ID)
	require.NoError(t, err)

	// удаление заявки падает после освобождения слота: откатывается всё
	s.f.mem.FailFor("requests.Delete", req.ID, errors.New("connection reset"))
	err = svc.Cancel(ctx, req.ID, s.child.UserID)
	require.ErrorIs(t, err, model.ErrTransientIO)

	assert.True(t, s.f.slot(t, s.slots[2].ID).IsBooked)
	assert.Equal(t, model.RequestStatusConfirmed, s.f.request(t, req.ID).Status)
	assert.Zero(t, logs.FilterMessage("Slot released").Len())

	s.f.mem.Heal()
	require.NoError(t, svc.Cancel(ctx, req.ID, s.child.UserID))

	assert.False(t, s.f.slot(t, s.slots[2].ID).IsBooked)
	released := logs.FilterMessage("Slot released").All()
	require.Len(t, released, 1)
	assert.Equal(t, s.slots[2].ID, released[0].ContextMap()["slot_id"])
}

func TestRequestService_CancelConfirmedTooLate(t *testing.T) {
	ctx := context.Background()
	s := newBookingSetup(t)
	// слот 2025-06-02 09:00: до визита 23 часа
	svc := s.f.requestService(24 * time.Hour)
	req := s.f.addRequest(t, s.child, s.vaccine, day(2025, 6, 2))
	_, err := s.svc.BookSlot(ctx, s.slots[0].ID, req.ID, s.nurse.ID)
	require.NoError(t, err)

	err = svc.Cancel(ctx, req.ID, s.child.UserID)
	require.ErrorIs(t, err, model.ErrInvalidState)

	assert.Equal(t, model.RequestStatusConfirmed, s.f.request(t, req.ID).Status)
	assert.True(t, s.f.slot(t, s.slots[0].ID).IsBooked)
}

func TestRequestService_CancelTerminal(t *testing.T) {
	ctx := context.Background()
	s := newBookingSetup(t)
	svc := s.f.requestService(0)
	req := s.f.addRequest(t, s.child, s.vaccine, day(2025, 6, 2))
	require.NoError(t, svc.Reject(ctx, req.ID))

	assert.ErrorIs(t, svc.Cancel(ctx, req.ID, s.child.UserID), model.ErrInvalidState)
	assert.NotNil(t, s.f.request(t, req.ID))
}
