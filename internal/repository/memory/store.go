// Package memory реализует репозитории в памяти процесса.
// Используется в тестах и для пробных прогонов без базы данных.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/vaccination_scheduler/internal/model"
	"github.com/Freeeeeet/vaccination_scheduler/internal/repository"
)

type reminderKey struct {
	childID    int64
	vaccineID  int64
	checkpoint model.Checkpoint
	targetDate string
}

type tables struct {
	nurses    map[int64]*model.Nurse
	slots     map[int64]*model.Slot
	requests  map[int64]*model.VaccineRequest
	children  map[int64]*model.Child
	guardians map[int64]*model.Guardian
	vaccines  map[int64]*model.Vaccine
	reminders map[reminderKey]*model.ReminderDispatch
	seq       int64
}

func newTables() tables {
	return tables{
		nurses:    make(map[int64]*model.Nurse),
		slots:     make(map[int64]*model.Slot),
		requests:  make(map[int64]*model.VaccineRequest),
		children:  make(map[int64]*model.Child),
		guardians: make(map[int64]*model.Guardian),
		vaccines:  make(map[int64]*model.Vaccine),
		reminders: make(map[reminderKey]*model.ReminderDispatch),
	}
}

// clone глубокая копия для отката транзакции
func (t tables) clone() tables {
	c := newTables()
	c.seq = t.seq
	for id, v := range t.nurses {
		cp := *v
		c.nurses[id] = &cp
	}
	for id, v := range t.slots {
		cp := *v
		c.slots[id] = &cp
	}
	for id, v := range t.requests {
		c.requests[id] = copyRequest(v)
	}
	for id, v := range t.children {
		cp := *v
		c.children[id] = &cp
	}
	for id, v := range t.guardians {
		cp := *v
		c.guardians[id] = &cp
	}
	for id, v := range t.vaccines {
		cp := *v
		c.vaccines[id] = &cp
	}
	for k, v := range t.reminders {
		cp := *v
		c.reminders[k] = &cp
	}
	return c
}

// Store хранилище в памяти. Транзакции сериализуются одним мьютексом.
type Store struct {
	mu     sync.Mutex
	data   tables
	faults map[string]func(id int64) error
	now    func() time.Time
}

// NewStore создаёт пустое хранилище
func NewStore() *Store {
	return &Store{
		data:   newTables(),
		faults: make(map[string]func(id int64) error),
		now:    time.Now,
	}
}

// Repositories возвращает набор репозиториев поверх хранилища
func (s *Store) Repositories() *repository.Store {
	return &repository.Store{
		Tx:        s,
		Nurses:    &nurseRepo{s},
		Slots:     &slotRepo{s},
		Requests:  &requestRepo{s},
		Children:  &childRepo{s},
		Guardians: &guardianRepo{s},
		Vaccines:  &vaccineRepo{s},
		Reminders: &reminderRepo{s},
	}
}

// Fail заставляет операцию op всегда завершаться ошибкой err
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = func(int64) error { return err }
}

// FailFor заставляет операцию op завершаться ошибкой только для указанного id
func (s *Store) FailFor(op string, id int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = func(got int64) error {
		if got == id {
			return err
		}
		return nil
	}
}

// Heal снимает все внедрённые ошибки
func (s *Store) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[string]func(id int64) error)
}

// fault вызывается под блокировкой
func (s *Store) fault(op string, id int64) error {
	f, ok := s.faults[op]
	if !ok {
		return nil
	}
	if err := f(id); err != nil {
		return model.Transient(op, err)
	}
	return nil
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock берёт мьютекс, если вызов не внутри транзакции этого хранилища
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithinTx выполняет fn атомарно: при ошибке все изменения откатываются
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return model.Transient("begin transaction", err)
	}

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) nextID() int64 {
	s.data.seq++
	return s.data.seq
}

func copyRequest(r *model.VaccineRequest) *model.VaccineRequest {
	cp := *r
	if r.NurseID != nil {
		id := *r.NurseID
		cp.NurseID = &id
	}
	if r.NurseSlotID != nil {
		id := *r.NurseSlotID
		cp.NurseSlotID = &id
	}
	return &cp
}

func checkCtx(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return model.Transient(op, fmt.Errorf("context: %w", err))
	}
	return nil
}

var _ repository.Transactor = (*Store)(nil)
