package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository"
)

type nurseRepo struct{ s *Store }

func (r *nurseRepo) Create(ctx context.Context, nurse *model.Nurse) error {
	defer r.s.lock(ctx)()
	if err := r.s.fault("nurses.Create", 0); err != nil {
		return err
	}

	nurse.ID = r.s.nextID()
	nurse.CreatedAt = r.s.now()
	cp := *nurse
	r.s.data.nurses[nurse.ID] = &cp
	return nil
}

func (r *nurseRepo) GetByID(ctx context.Context, id int64) (*model.Nurse, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("nurses.GetByID", id); err != nil {
		return nil, err
	}

	n, ok := r.s.data.nurses[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (r *nurseRepo) List(ctx context.Context) ([]*model.Nurse, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("nurses.List", 0); err != nil {
		return nil, err
	}

	out := make([]*model.Nurse, 0, len(r.s.data.nurses))
	for _, n := range r.s.data.nurses {
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *nurseRepo) Delete(ctx context.Context, id int64) (bool, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("nurses.Delete", id); err != nil {
		return false, err
	}

	if _, ok := r.s.data.nurses[id]; !ok {
		return false, nil
	}
	delete(r.s.data.nurses, id)

	// ON DELETE CASCADE для слотов и SET NULL для ссылок из заявок
	for slotID, slot := range r.s.data.slots {
		if slot.NurseID == id {
			delete(r.s.data.slots, slotID)
		}
	}
	for _, req := range r.s.data.requests {
		if req.NurseID != nil && *req.NurseID == id {
			req.NurseID = nil
			req.NurseSlotID = nil
		}
	}
	return true, nil
}

type slotRepo struct{ s *Store }

func sortSlots(slots []*model.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		return a.ID < b.ID
	})
}

func (r *slotRepo) BulkCreate(ctx context.Context, slots []*model.Slot) (int64, error) {
	defer r.s.lock(ctx)()
	if err := checkCtx(ctx, "bulk create slots"); err != nil {
		return 0, err
	}
	if len(slots) == 0 {
		return 0, nil
	}
	if err := r.s.fault("slots.BulkCreate", slots[0].NurseID); err != nil {
		return 0, err
	}

	// уникальный индекс (nurse_id, start_time): вставка всё или ничего
	taken := make(map[string]bool)
	for _, existing := range r.s.data.slots {
		taken[slotKey(existing.NurseID, existing.StartTime)] = true
	}
	for _, slot := range slots {
		key := slotKey(slot.NurseID, slot.StartTime)
		if taken[key] {
			return 0, model.Transient("bulk create slots",
				fmt.Errorf("duplicate slot for nurse %d at %s", slot.NurseID, slot.StartTime.Format(time.RFC3339)))
		}
		taken[key] = true
	}

	for _, slot := range slots {
		slot.ID = r.s.nextID()
		slot.CreatedAt = r.s.now()
		cp := *slot
		r.s.data.slots[slot.ID] = &cp
	}
	return int64(len(slots)), nil
}

func slotKey(nurseID int64, start time.Time) string {
	return fmt.Sprintf("%d/%d", nurseID, start.Unix())
}

func (r *slotRepo) GetByID(ctx context.Context, id int64) (*model.Slot, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("slots.GetByID", id); err != nil {
		return nil, err
	}

	slot, ok := r.s.data.slots[id]
	if !ok {
		return nil, nil
	}
	cp := *slot
	return &cp, nil
}

func (r *slotRepo) GetByIDForNurse(ctx context.Context, slotID, nurseID int64) (*model.Slot, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("slots.GetByIDForNurse", slotID); err != nil {
		return nil, err
	}

	slot, ok := r.s.data.slots[slotID]
	if !ok || slot.NurseID != nurseID {
		return nil, nil
	}
	cp := *slot
	return &cp, nil
}

func (r *slotRepo) ListFree(ctx context.Context, nurseID int64) ([]*model.Slot, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("slots.ListFree", nurseID); err != nil {
		return nil, err
	}

	var out []*model.Slot
	for _, slot := range r.s.data.slots {
		if slot.NurseID == nurseID && !slot.IsBooked {
			cp := *slot
			out = append(out, &cp)
		}
	}
	sortSlots(out)
	return out, nil
}

func (r *slotRepo) inRange(nurseID int64, from, to time.Time) []*model.Slot {
	var out []*model.Slot
	for _, slot := range r.s.data.slots {
		if slot.NurseID != nurseID {
			continue
		}
		if slot.Date.Before(from) || !slot.Date.Before(to) {
			continue
		}
		cp := *slot
		out = append(out, &cp)
	}
	return out
}

func (r *slotRepo) ListByNurse(ctx context.Context, nurseID int64, from, to time.Time) ([]*model.Slot, error) {
	defer r.s.lock(ctx)()
	if err := checkCtx(ctx, "get slots by nurse"); err != nil {
		return nil, err
	}
	if err := r.s.fault("slots.ListByNurse", nurseID); err != nil {
		return nil, err
	}

	out := r.inRange(nurseID, from, to)
	sortSlots(out)
	return out, nil
}

func (r *slotRepo) CountInRange(ctx context.Context, nurseID int64, from, to time.Time) (int, error) {
	defer r.s.lock(ctx)()
	if err := checkCtx(ctx, "count slots"); err != nil {
		return 0, err
	}
	if err := r.s.fault("slots.CountInRange", nurseID); err != nil {
		return 0, err
	}

	return len(r.inRange(nurseID, from, to)), nil
}

func (r *slotRepo) SetBooked(ctx context.Context, slotID int64, booked bool) (bool, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("slots.SetBooked", slotID); err != nil {
		return false, err
	}

	slot, ok := r.s.data.slots[slotID]
	if !ok || slot.IsBooked == booked {
		return false, nil
	}
	slot.IsBooked = booked
	return true, nil
}

func (r *slotRepo) DeleteUnbookedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("slots.DeleteUnbookedBefore", 0); err != nil {
		return 0, err
	}

	var n int64
	for id, slot := range r.s.data.slots {
		if !slot.IsBooked && slot.Date.Before(cutoff) {
			delete(r.s.data.slots, id)
			n++
		}
	}
	return n, nil
}

type requestRepo struct{ s *Store }

func (r *requestRepo) Create(ctx context.Context, req *model.VaccineRequest) error {
	defer r.s.lock(ctx)()
	if err := r.s.fault("requests.Create", 0); err != nil {
		return err
	}

	req.ID = r.s.nextID()
	req.CreatedAt = r.s.now()
	req.UpdatedAt = req.CreatedAt
	r.s.data.requests[req.ID] = copyRequest(req)
	return nil
}

func (r *requestRepo) GetByID(ctx context.Context, id int64) (*model.VaccineRequest, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("requests.GetByID", id); err != nil {
		return nil, err
	}

	req, ok := r.s.data.requests[id]
	if !ok {
		return nil, nil
	}
	return copyRequest(req), nil
}

func (r *requestRepo) Confirm(ctx context.Context, id, nurseID, slotID int64) (bool, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("requests.Confirm", id); err != nil {
		return false, err
	}

	req, ok := r.s.data.requests[id]
	if !ok || req.Status != model.RequestStatusPending || req.NurseSlotID != nil {
		return false, nil
	}
	req.Status = model.RequestStatusConfirmed
	req.NurseID = &nurseID
	req.NurseSlotID = &slotID
	req.UpdatedAt = r.s.now()
	return true, nil
}

func (r *requestRepo) UpdateStatus(ctx context.Context, id int64, from, to model.RequestStatus) (bool, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("requests.UpdateStatus", id); err != nil {
		return false, err
	}

	req, ok := r.s.data.requests[id]
	if !ok || req.Status != from {
		return false, nil
	}
	req.Status = to
	req.UpdatedAt = r.s.now()
	return true, nil
}

func (r *requestRepo) Delete(ctx context.Context, id int64, status model.RequestStatus) (bool, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("requests.Delete", id); err != nil {
		return false, err
	}

	if req, ok := r.s.data.requests[id]; !ok || req.Status != status {
		return false, nil
	}
	delete(r.s.data.requests, id)
	return true, nil
}

func (r *requestRepo) ListSettledPairs(ctx context.Context) ([]model.ChildVaccine, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("requests.ListSettledPairs", 0); err != nil {
		return nil, err
	}

	seen := make(map[model.ChildVaccine]bool)
	var out []model.ChildVaccine
	for _, req := range r.s.data.requests {
		if req.Status != model.RequestStatusConfirmed && req.Status != model.RequestStatusDelivered {
			continue
		}
		pair := model.ChildVaccine{ChildID: req.ChildID, VaccineID: req.VaccineID}
		if !seen[pair] {
			seen[pair] = true
			out = append(out, pair)
		}
	}
	return out, nil
}

func (r *requestRepo) CountConfirmedByNurse(ctx context.Context, nurseID int64) (int, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("requests.CountConfirmedByNurse", nurseID); err != nil {
		return 0, err
	}

	n := 0
	for _, req := range r.s.data.requests {
		if req.Status == model.RequestStatusConfirmed && req.NurseID != nil && *req.NurseID == nurseID {
			n++
		}
	}
	return n, nil
}

type childRepo struct{ s *Store }

func (r *childRepo) Create(ctx context.Context, child *model.Child) error {
	defer r.s.lock(ctx)()
	if err := r.s.fault("children.Create", child.UserID); err != nil {
		return err
	}

	child.ID = r.s.nextID()
	child.CreatedAt = r.s.now()
	cp := *child
	r.s.data.children[child.ID] = &cp
	return nil
}

func (r *childRepo) GetByID(ctx context.Context, id int64) (*model.Child, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("children.GetByID", id); err != nil {
		return nil, err
	}

	c, ok := r.s.data.children[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

type guardianRepo struct{ s *Store }

func (r *guardianRepo) Create(ctx context.Context, guardian *model.Guardian) error {
	defer r.s.lock(ctx)()
	if err := r.s.fault("guardians.Create", 0); err != nil {
		return err
	}

	guardian.ID = r.s.nextID()
	guardian.CreatedAt = r.s.now()
	cp := *guardian
	cp.Children = nil
	r.s.data.guardians[guardian.ID] = &cp
	return nil
}

func (r *guardianRepo) GetByID(ctx context.Context, id int64) (*model.Guardian, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("guardians.GetByID", id); err != nil {
		return nil, err
	}

	g, ok := r.s.data.guardians[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (r *guardianRepo) ListWithChildren(ctx context.Context) ([]*model.Guardian, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("guardians.ListWithChildren", 0); err != nil {
		return nil, err
	}

	byGuardian := make(map[int64][]*model.Child)
	for _, c := range r.s.data.children {
		cp := *c
		byGuardian[c.UserID] = append(byGuardian[c.UserID], &cp)
	}

	var out []*model.Guardian
	for id, children := range byGuardian {
		g, ok := r.s.data.guardians[id]
		if !ok {
			continue
		}
		sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
		cp := *g
		cp.Children = children
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type vaccineRepo struct{ s *Store }

func (r *vaccineRepo) Create(ctx context.Context, vaccine *model.Vaccine) error {
	defer r.s.lock(ctx)()
	if err := r.s.fault("vaccines.Create", 0); err != nil {
		return err
	}

	vaccine.ID = r.s.nextID()
	vaccine.CreatedAt = r.s.now()
	cp := *vaccine
	r.s.data.vaccines[vaccine.ID] = &cp
	return nil
}

func (r *vaccineRepo) GetByID(ctx context.Context, id int64) (*model.Vaccine, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("vaccines.GetByID", id); err != nil {
		return nil, err
	}

	v, ok := r.s.data.vaccines[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r *vaccineRepo) List(ctx context.Context) ([]*model.Vaccine, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("vaccines.List", 0); err != nil {
		return nil, err
	}

	out := make([]*model.Vaccine, 0, len(r.s.data.vaccines))
	for _, v := range r.s.data.vaccines {
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type reminderRepo struct{ s *Store }

func keyOf(d *model.ReminderDispatch) reminderKey {
	return reminderKey{
		childID:    d.ChildID,
		vaccineID:  d.VaccineID,
		checkpoint: d.Checkpoint,
		targetDate: d.TargetDate.Format(time.DateOnly),
	}
}

func (r *reminderRepo) Claim(ctx context.Context, d *model.ReminderDispatch) (bool, error) {
	defer r.s.lock(ctx)()
	if err := r.s.fault("reminders.Claim", d.ChildID); err != nil {
		return false, err
	}

	key := keyOf(d)
	if _, ok := r.s.data.reminders[key]; ok {
		return false, nil
	}
	d.SentAt = r.s.now()
	cp := *d
	r.s.data.reminders[key] = &cp
	return true, nil
}

func (r *reminderRepo) Release(ctx context.Context, d *model.ReminderDispatch) error {
	defer r.s.lock(ctx)()
	if err := r.s.fault("reminders.Release", d.ChildID); err != nil {
		return err
	}

	delete(r.s.data.reminders, keyOf(d))
	return nil
}

var (
	_ repository.NurseRepository          = (*nurseRepo)(nil)
	_ repository.SlotRepository           = (*slotRepo)(nil)
	_ repository.VaccineRequestRepository = (*requestRepo)(nil)
	_ repository.ChildRepository          = (*childRepo)(nil)
	_ repository.GuardianRepository       = (*guardianRepo)(nil)
	_ repository.VaccineRepository        = (*vaccineRepo)(nil)
	_ repository.ReminderLogRepository    = (*reminderRepo)(nil)
)
