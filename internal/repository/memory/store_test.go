package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loc = time.FixedZone("IST", 5*3600+1800)

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	nurse := &model.Nurse{Name: "Asha", Phone: "+919800000001"}
	require.NoError(t, repos.Nurses.Create(ctx, nurse))
	slots := model.DayTemplate(nurse.ID, time.Date(2025, 6, 1, 0, 0, 0, 0, loc))
	_, err := repos.Slots.BulkCreate(ctx, slots)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := repos.Slots.SetBooked(ctx, slots[0].ID, true)
		require.NoError(t, err)
		require.True(t, ok)

		// вложенная транзакция присоединяется к внешней
		return repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
			_, err := repos.Nurses.Delete(ctx, nurse.ID)
			require.NoError(t, err)
			return boom
		})
	})
	require.ErrorIs(t, err, boom)

	got, err := repos.Slots.GetByID(ctx, slots[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsBooked)

	n, err := repos.Nurses.GetByID(ctx, nurse.ID)
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestWithinTx_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return repos.Vaccines.Create(ctx, &model.Vaccine{Name: "BCG", RequiredAge: "24 hours"})
	})
	require.NoError(t, err)

	list, err := repos.Vaccines.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSlots_UniqueStartTime(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, loc)

	_, err := repos.Slots.BulkCreate(ctx, model.DayTemplate(1, day)[:2])
	require.NoError(t, err)

	// второй набор пересекается с первым: ничего не вставляется
	_, err = repos.Slots.BulkCreate(ctx, model.DayTemplate(1, day)[1:4])
	require.ErrorIs(t, err, model.ErrTransientIO)

	n, err := repos.Slots.CountInRange(ctx, 1, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// у другой медсестры то же время допустимо
	_, err = repos.Slots.BulkCreate(ctx, model.DayTemplate(2, day)[1:4])
	require.NoError(t, err)
}

func TestSlots_SetBookedIsCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	slots := model.DayTemplate(1, time.Date(2025, 6, 1, 0, 0, 0, 0, loc))
	_, err := repos.Slots.BulkCreate(ctx, slots)
	require.NoError(t, err)

	ok, err := repos.Slots.SetBooked(ctx, slots[0].ID, true)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.Slots.SetBooked(ctx, slots[0].ID, true)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repos.Slots.SetBooked(ctx, 999, true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNurseDelete_CascadesSlots(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	nurse := &model.Nurse{Name: "Asha", Phone: "+919800000001"}
	require.NoError(t, repos.Nurses.Create(ctx, nurse))
	slots := model.DayTemplate(nurse.ID, time.Date(2025, 6, 1, 0, 0, 0, 0, loc))
	_, err := repos.Slots.BulkCreate(ctx, slots)
	require.NoError(t, err)

	nurseID, slotID := nurse.ID, slots[0].ID
	req := &model.VaccineRequest{ChildID: 1, VaccineID: 1, Status: model.RequestStatusDelivered, NurseID: &nurseID, NurseSlotID: &slotID}
	require.NoError(t, repos.Requests.Create(ctx, req))

	ok, err := repos.Nurses.Delete(ctx, nurse.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repos.Slots.GetByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	stored, err := repos.Requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasAssignment())
}

func TestRequests_ConditionalWrites(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	req := &model.VaccineRequest{ChildID: 1, VaccineID: 2, Status: model.RequestStatusPending}
	require.NoError(t, repos.Requests.Create(ctx, req))

	ok, err := repos.Requests.Delete(ctx, req.ID, model.RequestStatusConfirmed)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repos.Requests.Confirm(ctx, req.ID, 7, 8)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.Requests.Confirm(ctx, req.ID, 7, 9)
	require.NoError(t, err)
	assert.False(t, ok)

	pairs, err := repos.Requests.ListSettledPairs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.ChildVaccine{{ChildID: 1, VaccineID: 2}}, pairs)

	n, err := repos.Requests.CountConfirmedByNurse(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReminders_ClaimAndRelease(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	d := &model.ReminderDispatch{
		ChildID:    1,
		VaccineID:  2,
		Checkpoint: model.Checkpoint3Days,
		TargetDate: time.Date(2025, 6, 13, 0, 0, 0, 0, loc),
	}

	ok, err := repos.Reminders.Claim(ctx, d)
	require.NoError(t, err)
	assert.True(t, ok)

	again := *d
	ok, err = repos.Reminders.Claim(ctx, &again)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repos.Reminders.Release(ctx, d))
	ok, err = repos.Reminders.Claim(ctx, &again)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGuardians_ListWithChildren(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	withKids := &model.Guardian{Name: "Ravi"}
	require.NoError(t, repos.Guardians.Create(ctx, withKids))
	require.NoError(t, repos.Guardians.Create(ctx, &model.Guardian{Name: "Childless"}))
	require.NoError(t, repos.Children.Create(ctx, &model.Child{UserID: withKids.ID, Name: "B"}))
	require.NoError(t, repos.Children.Create(ctx, &model.Child{UserID: withKids.ID, Name: "A"}))

	list, err := repos.Guardians.ListWithChildren(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ravi", list[0].Name)
	require.Len(t, list[0].Children, 2)
	assert.Equal(t, "B", list[0].Children[0].Name)
}

func TestFaults(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repos := store.Repositories()

	store.FailFor("nurses.GetByID", 5, errors.New("down"))
	_, err := repos.Nurses.GetByID(ctx, 5)
	assert.ErrorIs(t, err, model.ErrTransientIO)
	_, err = repos.Nurses.GetByID(ctx, 6)
	assert.NoError(t, err)

	store.Heal()
	_, err = repos.Nurses.GetByID(ctx, 5)
	assert.NoError(t, err)
}
