package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sweepNow = time.Date(2025, 6, 10, 9, 0, 0, 0, clinic)

// bornFor возвращает дату рождения, при которой до "6 weeks" ровно offset дней
func bornFor(offset int) time.Time {
	return day(2025, 6, 10).AddDate(0, 0, offset-42)
}

func TestRunReminderSweep_EmptyCollections(t *testing.T) {
	f := newFixture(t, sweepNow)
	n := &fakeNotifier{}

	summary, err := f.reminderService(n).RunReminderSweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.TotalDispatched)
	assert.Empty(t, summary.Failures)

	// опекуны есть, вакцин нет
	g := f.addGuardian(t, "Ravi", 1001)
	f.addChild(t, g.ID, "Meera", bornFor(10))
	summary, err = f.reminderService(n).RunReminderSweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.TotalDispatched)
	assert.Empty(t, n.messages())
}

func TestRunReminderSweep_DispatchesOnlyAtCheckpoints(t *testing.T) {
	f := newFixture(t, sweepNow)
	n := &fakeNotifier{}
	f.addVaccine(t, "DTaP", "6 weeks")

	g := f.addGuardian(t, "Ravi", 1001)
	for _, offset := range []int{11, 10, 3, 2, 1, 0, -5} {
		f.addChild(t, g.ID, "Child", bornFor(offset))
	}

	summary, err := f.reminderService(n).RunReminderSweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalDispatched)
	assert.Equal(t, map[model.Checkpoint]int{
		model.Checkpoint10Days: 1,
		model.Checkpoint3Days:  1,
		model.Checkpoint1Day:   1,
	}, summary.PerCheckpoint)
	assert.Empty(t, summary.Failures)
	assert.Len(t, n.messages(), 3)
}

func TestRunReminderSweep_MessageContent(t *testing.T) {
	f := newFixture(t, sweepNow)
	n := &fakeNotifier{}
	f.addVaccine(t, "DTaP", "6 weeks")
	g := f.addGuardian(t, "Ravi Kumar", 555)
	f.addChild(t, g.ID, "Meera", bornFor(3))

	_, err := f.reminderService(n).RunReminderSweep(context.Background())
	require.NoError(t, err)

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "555", msgs[0].destination)
	assert.Contains(t, msgs[0].body, "Ravi Kumar")
	assert.Contains(t, msgs[0].body, "Meera")
	assert.Contains(t, msgs[0].body, "DTaP")
	assert.Contains(t, msgs[0].body, "DTaP protects against disease")
	assert.Contains(t, msgs[0].body, "13.06.2025")
}

func TestRunReminderSweep_NoDuplicateOnRerun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sweepNow)
	n := &fakeNotifier{}
	f.addVaccine(t, "DTaP", "6 weeks")
	g := f.addGuardian(t, "Ravi", 1001)
	f.addChild(t, g.ID, "Meera", bornFor(10))
	svc := f.reminderService(n)

	first, err := svc.RunReminderSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalDispatched)

	second, err := svc.RunReminderSweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.TotalDispatched)
	assert.Equal(t, 1, second.Duplicates)
	assert.NotEqual(t, first.RunID, second.RunID)

	assert.Len(t, n.messages(), 1)
}

func TestRunReminderSweep_SettledPairsAreSilenced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sweepNow)
	n := &fakeNotifier{}
	dtap := f.addVaccine(t, "DTaP", "6 weeks")
	polio := f.addVaccine(t, "IPV", "6 weeks")
	g := f.addGuardian(t, "Ravi", 1001)
	child := f.addChild(t, g.ID, "Meera", bornFor(10))

	nurse := f.addNurse(t, "Asha")
	slots := f.addDays(t, nurse.ID, day(2025, 6, 20))
	req := f.addRequest(t, child, dtap, day(2025, 6, 20))
	_, err := f.bookingService().BookSlot(ctx, slots[0].ID, req.ID, nurse.ID)
	require.NoError(t, err)

	// pending заявка напоминания не отключает
	f.addRequest(t, child, polio, day(2025, 6, 20))

	summary, err := f.reminderService(n).RunReminderSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalDispatched)

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].body, "IPV")
}

func TestRunReminderSweep_SkipsBadPairs(t *testing.T) {
	f := newFixture(t, sweepNow)
	n := &fakeNotifier{}
	f.addVaccine(t, "Mystery", "sometime soon")
	f.addVaccine(t, "DTaP", "6 weeks")
	g := f.addGuardian(t, "Ravi", 1001)
	f.addChild(t, g.ID, "Meera", bornFor(1))

	summary, err := f.reminderService(n).RunReminderSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.TotalDispatched)
	assert.Equal(t, 1, summary.PerCheckpoint[model.Checkpoint1Day])
}

func TestRunReminderSweep_RecordsSendFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sweepNow)
	n := &fakeNotifier{failTo: map[string]error{"tg:2002": errors.New("chat not found")}}
	vaccine := f.addVaccine(t, "DTaP", "6 weeks")

	ok := f.addGuardian(t, "Ravi", 2001)
	f.addChild(t, ok.ID, "Meera", bornFor(3))
	broken := f.addGuardian(t, "Kiran", 2002)
	child := f.addChild(t, broken.ID, "Arjun", bornFor(10))

	svc := f.reminderService(n)
	summary, err := svc.RunReminderSweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TotalDispatched)
	require.Len(t, summary.Failures, 1)
	failure := summary.Failures[0]
	assert.Equal(t, broken.ID, failure.GuardianID)
	assert.Equal(t, "Kiran", failure.Guardian)
	assert.Equal(t, child.ID, failure.ChildID)
	assert.Equal(t, "Arjun", failure.Child)
	assert.Equal(t, vaccine.ID, failure.VaccineID)
	assert.Contains(t, failure.Error, "chat not found")

	// резерв снят: после починки транспорта напоминание уходит
	n.failTo = nil
	retry, err := svc.RunReminderSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, retry.TotalDispatched)
	assert.Equal(t, 1, retry.Duplicates)
}

func TestRunReminderSweep_SlowSendTimesOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sweepNow)
	f.cfg.ItemTimeout = 50 * time.Millisecond
	n := &fakeNotifier{hangTo: map[string]bool{"tg:2002": true}}
	f.addVaccine(t, "DTaP", "6 weeks")

	ok := f.addGuardian(t, "Ravi", 2001)
	f.addChild(t, ok.ID, "Meera", bornFor(3))
	slow := f.addGuardian(t, "Kiran", 2002)
	child := f.addChild(t, slow.ID, "Arjun", bornFor(10))

	svc := f.reminderService(n)
	started := time.Now()
	summary, err := svc.RunReminderSweep(ctx)
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 5*time.Second)

	assert.Equal(t, 1, summary.TotalDispatched)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, child.ID, summary.Failures[0].ChildID)
	assert.Contains(t, summary.Failures[0].Error, context.DeadlineExceeded.Error())

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "tg:2001", msgs[0].destination)

	// резерв снят и после таймаута
	n.hangTo = nil
	retry, err := svc.RunReminderSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, retry.TotalDispatched)
	assert.Equal(t, "tg:2002", n.messages()[1].destination)
}

func TestRunReminderSweep_CollectionFailureAborts(t *testing.T) {
	f := newFixture(t, sweepNow)
	f.addVaccine(t, "DTaP", "6 weeks")
	f.mem.Fail("guardians.ListWithChildren", errors.New("timeout"))

	summary, err := f.reminderService(&fakeNotifier{}).RunReminderSweep(context.Background())
	assert.Nil(t, summary)
	assert.ErrorIs(t, err, model.ErrTransientIO)
}

func TestRunReminderSweep_LedgerFailureIsPerPair(t *testing.T) {
	f := newFixture(t, sweepNow)
	n := &fakeNotifier{}
	f.addVaccine(t, "DTaP", "6 weeks")
	g := f.addGuardian(t, "Ravi", 1001)
	bad := f.addChild(t, g.ID, "Meera", bornFor(10))
	f.addChild(t, g.ID, "Arjun", bornFor(1))
	f.mem.FailFor("reminders.Claim", bad.ID, errors.New("deadlock"))

	summary, err := f.reminderService(n).RunReminderSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalDispatched)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, bad.ID, summary.Failures[0].ChildID)
}

func TestFormatReminder_WithoutDescription(t *testing.T) {
	body := FormatReminder(
		&model.Guardian{Name: "Ravi"},
		&model.Child{Name: "Meera"},
		&model.Vaccine{Name: "BCG"},
		day(2025, 1, 2),
	)
	assert.Contains(t, body, "Dear Ravi,")
	assert.Contains(t, body, "Meera will be eligible for the BCG vaccine on 02.01.2025.")
	assert.NotContains(t, body, "\n\n\n")
}
