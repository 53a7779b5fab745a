package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Patient is the profile row owned by a single user.
type Patient struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
}

// Appointment is a booked service for a patient. Datetime is kept exactly
// as submitted.
type Appointment struct {
	ID        int64     `json:"id"`
	PatientID int64     `json:"patient_id"`
	Service   string    `json:"service"`
	Datetime  string    `json:"datetime"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity kinds recorded in MongoDB.
const (
	ActivityRegistered           = "registered"
	ActivityLoggedIn             = "logged_in"
	ActivityLoggedOut            = "logged_out"
	ActivityProfileCreated       = "profile_created"
	ActivityProfileUpdated       = "profile_updated"
	ActivityAppointmentScheduled = "appointment_scheduled"
)

// Activity is a single account event stored in MongoDB.
type Activity struct {
	ID        primitive.ObjectID `json:"id"         bson:"_id,omitempty"`
	UserID    int64              `json:"user_id"    bson:"user_id"`
	Kind      string             `json:"kind"       bson:"kind"`
	Detail    string             `json:"detail"     bson:"detail"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// ProfileRequest is the JSON body for POST and PUT /api/profile.
type ProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ScheduleRequest is the JSON body for POST /api/appointments.
type ScheduleRequest struct {
	Service  string `json:"service"`
	Datetime string `json:"datetime"`
}
