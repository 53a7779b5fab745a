package clinic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xeze-org/clinic/backend/internal/models"
	"github.com/xeze-org/clinic/backend/internal/store"
)

// memStore mimics the Postgres schema: serial ids, UNIQUE(username),
// UNIQUE(email), UNIQUE(user_id) and the two foreign keys.
type memStore struct {
	mu       sync.Mutex
	users    []models.User
	patients []models.Patient
	appts    []models.Appointment
}

func (m *memStore) CreateUser(_ context.Context, username, hashed string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return nil, fmt.Errorf("create user: users_username_key: %w", store.ErrDuplicate)
		}
	}
	u := models.User{ID: int64(len(m.users) + 1), Username: username, Password: hashed, CreatedAt: time.Now()}
	m.users = append(m.users, u)
	return &u, nil
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("get user by username: %w", store.ErrNotFound)
}

func (m *memStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			u.Password = ""
			return &u, nil
		}
	}
	return nil, fmt.Errorf("get user by id: %w", store.ErrNotFound)
}

func (m *memStore) CreatePatient(_ context.Context, p *models.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	for _, u := range m.users {
		if u.ID == p.UserID {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("create patient: %w", store.ErrMissingRef)
	}
	for _, q := range m.patients {
		if q.UserID == p.UserID || q.Email == p.Email {
			return fmt.Errorf("create patient: %w", store.ErrDuplicate)
		}
	}
	p.ID = int64(len(m.patients) + 1)
	m.patients = append(m.patients, *p)
	return nil
}

func (m *memStore) GetPatientByUser(_ context.Context, userID int64) (*models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.UserID == userID {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("get patient: %w", store.ErrNotFound)
}

func (m *memStore) UpdatePatientByUser(_ context.Context, p *models.Patient) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.patients {
		if q.Email == p.Email && q.UserID != p.UserID {
			return 0, fmt.Errorf("update patient: %w", store.ErrDuplicate)
		}
	}
	var n int64
	for i := range m.patients {
		if m.patients[i].UserID == p.UserID {
			m.patients[i].Name, m.patients[i].Email, m.patients[i].Phone = p.Name, p.Email, p.Phone
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateAppointment(_ context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	for _, p := range m.patients {
		if p.ID == a.PatientID {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("create appointment: %w", store.ErrMissingRef)
	}
	a.ID = int64(len(m.appts) + 1)
	a.CreatedAt = time.Now()
	m.appts = append(m.appts, *a)
	return nil
}

func (m *memStore) GetAppointment(_ context.Context, id int64) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("get appointment: %w", store.ErrNotFound)
}

func (m *memStore) ListAppointmentsByPatient(_ context.Context, patientID int64) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out, nil
}

// racyUsers hides existing rows from the lookup so Register falls through
// to the unique constraint, as in a check-then-insert race.
type racyUsers struct{ *memStore }

func (racyUsers) GetUserByUsername(context.Context, string) (*models.User, error) {
	return nil, store.ErrNotFound
}

type memActivity struct {
	mu     sync.Mutex
	events []models.Activity
	err    error
}

func (m *memActivity) Record(_ context.Context, a *models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	a.CreatedAt = time.Now()
	m.events = append(m.events, *a)
	return nil
}

func (m *memActivity) ListByUser(_ context.Context, userID int64, limit int64) ([]models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Activity
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].UserID == userID {
			out = append(out, m.events[i])
		}
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memActivity) kinds(userID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.events {
		if e.UserID == userID {
			out = append(out, e.Kind)
		}
	}
	return out
}

type memSlips struct {
	mu    sync.Mutex
	slips map[string][]byte
	err   error
}

func newMemSlips() *memSlips { return &memSlips{slips: map[string][]byte{}} }

func (m *memSlips) PutSlip(_ context.Context, patientID, appointmentID int64, body []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	k := store.SlipKey(patientID, appointmentID)
	m.slips[k] = body
	return k, nil
}

func (m *memSlips) GetSlip(_ context.Context, patientID, appointmentID int64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.slips[store.SlipKey(patientID, appointmentID)]
	if !ok {
		return nil, fmt.Errorf("slip: %w", store.ErrNotFound)
	}
	return b, nil
}

func (m *memSlips) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.slips {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var errBoom = errors.New("boom")
