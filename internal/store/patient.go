package store

import (
	"context"

	"github.com/xeze-org/clinic/backend/internal/models"
)

func (s *PostgresStore) CreatePatient(ctx context.Context, p *models.Patient) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO patients (user_id, name, email, phone)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		p.UserID, p.Name, p.Email, p.Phone,
	).Scan(&p.ID)
	return classify("create patient", err)
}

func (s *PostgresStore) GetPatientByUser(ctx context.Context, userID int64) (*models.Patient, error) {
	var p models.Patient
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, email, phone FROM patients WHERE user_id = $1`, userID,
	).Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.Phone)
	if err != nil {
		return nil, classify("get patient", err)
	}
	return &p, nil
}

// UpdatePatientByUser rewrites the profile owned by p.UserID and reports how
// many rows changed. A user without a patient row yields 0 and no error.
func (s *PostgresStore) UpdatePatientByUser(ctx context.Context, p *models.Patient) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE patients SET name = $1, email = $2, phone = $3 WHERE user_id = $4`,
		p.Name, p.Email, p.Phone, p.UserID,
	)
	if err != nil {
		return 0, classify("update patient", err)
	}
	return tag.RowsAffected(), nil
}
