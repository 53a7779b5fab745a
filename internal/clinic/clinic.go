// Package clinic holds the account, profile and scheduling rules of the
// clinic and the HTTP handlers for profiles and appointments.
package clinic

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/xeze-org/clinic/backend/internal/models"
	"github.com/xeze-org/clinic/backend/internal/store"
)

var (
	ErrConflict           = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

// ScheduledMessage is returned with every successfully booked appointment.
const ScheduledMessage = "Appointment scheduled successfully."

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, username, hashedPassword string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// PatientStore persists patient profiles keyed by their owning user.
type PatientStore interface {
	CreatePatient(ctx context.Context, p *models.Patient) error
	GetPatientByUser(ctx context.Context, userID int64) (*models.Patient, error)
	UpdatePatientByUser(ctx context.Context, p *models.Patient) (int64, error)
}

// AppointmentStore persists bookings.
type AppointmentStore interface {
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	GetAppointment(ctx context.Context, id int64) (*models.Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID int64) ([]models.Appointment, error)
}

// ActivityLog records account events.
type ActivityLog interface {
	Record(ctx context.Context, a *models.Activity) error
}

// Clinic is the data-access core shared by every handler. It is built once
// in main and injected; there is no package-level instance.
type Clinic struct {
	users        UserStore
	patients     PatientStore
	appointments AppointmentStore
	activity     ActivityLog // optional
	hashCost     int
}

func New(users UserStore, patients PatientStore, appointments AppointmentStore, activity ActivityLog) *Clinic {
	return &Clinic{
		users:        users,
		patients:     patients,
		appointments: appointments,
		activity:     activity,
		hashCost:     bcrypt.DefaultCost,
	}
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

// Register creates a user with a bcrypt-hashed password. A taken username is
// ErrConflict whether it is seen by the lookup or by the unique constraint.
// Passwords bcrypt cannot hash (over 72 bytes) are ErrInvalidInput.
func (c *Clinic) Register(ctx context.Context, username, password string) (*models.User, error) {
	_, err := c.users.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, fmt.Errorf("register %q: %w", username, ErrConflict)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("register: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), c.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, fmt.Errorf("register: password exceeds 72 bytes: %w", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	u, err := c.users.CreateUser(ctx, username, string(hashed))
	if errors.Is(err, store.ErrDuplicate) {
		return nil, fmt.Errorf("register %q: %w", username, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	c.record(ctx, u.ID, models.ActivityRegistered, "")
	return u, nil
}

// Login returns the user whose username and password both match. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (c *Clinic) Login(ctx context.Context, username, password string) (*models.User, error) {
	u, err := c.users.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	c.record(ctx, u.ID, models.ActivityLoggedIn, "")
	return u, nil
}

// Logout only leaves a trace; the session itself is owned by the caller.
func (c *Clinic) Logout(ctx context.Context, userID int64) {
	c.record(ctx, userID, models.ActivityLoggedOut, "")
}

func (c *Clinic) User(ctx context.Context, id int64) (*models.User, error) {
	u, err := c.users.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, err
}

// ---------------------------------------------------------------------------
// Profiles
// ---------------------------------------------------------------------------

func (c *Clinic) GetProfile(ctx context.Context, userID int64) (*models.Patient, error) {
	p, err := c.patients.GetPatientByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("profile for user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// CreateProfile inserts the patient row for userID. A user owns at most one
// profile and emails are unique; both collisions are ErrConflict.
func (c *Clinic) CreateProfile(ctx context.Context, userID int64, name, email, phone string) (*models.Patient, error) {
	p := &models.Patient{UserID: userID, Name: name, Email: email, Phone: phone}
	err := c.patients.CreatePatient(ctx, p)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return nil, fmt.Errorf("create profile: %w", ErrConflict)
	case errors.Is(err, store.ErrMissingRef):
		return nil, fmt.Errorf("create profile: user %d: %w", userID, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("create profile: %w", err)
	}

	c.record(ctx, userID, models.ActivityProfileCreated, email)
	return p, nil
}

// UpdateProfile overwrites the profile of userID. It never creates a row: a
// user without a profile touches zero rows and gets ErrNotFound.
func (c *Clinic) UpdateProfile(ctx context.Context, userID int64, name, email, phone string) error {
	n, err := c.patients.UpdatePatientByUser(ctx, &models.Patient{
		UserID: userID, Name: name, Email: email, Phone: phone,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("update profile: %w", ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update profile for user %d: %w", userID, ErrNotFound)
	}

	c.record(ctx, userID, models.ActivityProfileUpdated, email)
	return nil
}

// ---------------------------------------------------------------------------
// Scheduling
// ---------------------------------------------------------------------------

// ScheduleAppointment books service at datetime for patientID. Nothing is
// checked against existing bookings and datetime is stored verbatim.
func (c *Clinic) ScheduleAppointment(ctx context.Context, patientID int64, service, datetime string) (*models.Appointment, string, error) {
	a := &models.Appointment{PatientID: patientID, Service: service, Datetime: datetime}
	err := c.appointments.CreateAppointment(ctx, a)
	if errors.Is(err, store.ErrMissingRef) {
		return nil, "", fmt.Errorf("schedule: patient %d: %w", patientID, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("schedule: %w", err)
	}
	return a, ScheduledMessage, nil
}

// ScheduleForUser resolves the caller's patient row and books on it.
func (c *Clinic) ScheduleForUser(ctx context.Context, userID int64, service, datetime string) (*models.Patient, *models.Appointment, string, error) {
	p, err := c.GetProfile(ctx, userID)
	if err != nil {
		return nil, nil, "", err
	}
	a, msg, err := c.ScheduleAppointment(ctx, p.ID, service, datetime)
	if err != nil {
		return nil, nil, "", err
	}

	c.record(ctx, userID, models.ActivityAppointmentScheduled, fmt.Sprintf("%s @ %s", service, datetime))
	return p, a, msg, nil
}

func (c *Clinic) ListAppointments(ctx context.Context, patientID int64) ([]models.Appointment, error) {
	out, err := c.appointments.ListAppointmentsByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return out, nil
}

// Appointment returns booking id if it belongs to patientID. Someone else's
// booking is reported as missing.
func (c *Clinic) Appointment(ctx context.Context, patientID, id int64) (*models.Appointment, error) {
	a, err := c.appointments.GetAppointment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("appointment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if a.PatientID != patientID {
		return nil, fmt.Errorf("appointment %d: %w", id, ErrNotFound)
	}
	return a, nil
}

func (c *Clinic) record(ctx context.Context, userID int64, kind, detail string) {
	if c.activity == nil {
		return
	}
	err := c.activity.Record(ctx, &models.Activity{UserID: userID, Kind: kind, Detail: detail})
	if err != nil {
		log.Printf("activity %s for user %d (non-fatal): %v", kind, userID, err)
	}
}
