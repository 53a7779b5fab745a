package store

import (
	"context"

	"github.com/xeze-org/clinic/backend/internal/models"
)

func (s *PostgresStore) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO appointments (patient_id, service, datetime)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		a.PatientID, a.Service, a.Datetime,
	).Scan(&a.ID, &a.CreatedAt)
	return classify("create appointment", err)
}

func (s *PostgresStore) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	var a models.Appointment
	err := s.pool.QueryRow(ctx,
		`SELECT id, patient_id, service, datetime, created_at
		 FROM appointments WHERE id = $1`, id,
	).Scan(&a.ID, &a.PatientID, &a.Service, &a.Datetime, &a.CreatedAt)
	if err != nil {
		return nil, classify("get appointment", err)
	}
	return &a, nil
}

func (s *PostgresStore) ListAppointmentsByPatient(ctx context.Context, patientID int64) ([]models.Appointment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, patient_id, service, datetime, created_at
		 FROM appointments
		 WHERE patient_id = $1
		 ORDER BY id`, patientID,
	)
	if err != nil {
		return nil, classify("list appointments", err)
	}
	defer rows.Close()

	var out []models.Appointment
	for rows.Next() {
		var a models.Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.Service, &a.Datetime, &a.CreatedAt); err != nil {
			return nil, classify("scan appointment", err)
		}
		out = append(out, a)
	}
	return out, classify("list appointments", rows.Err())
}
