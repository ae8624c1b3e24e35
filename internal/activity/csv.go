package activity

import (
	"bytes"
	"context"
	"encoding/csv"
	"time"
)

// RegistrationsCSV renders an activity's registrations as CSV for the NGO
// export download.
func (s *Service) RegistrationsCSV(ctx context.Context, activityID string) ([]byte, error) {
	regs, err := s.RegistrationsForActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"registration_id", "volunteer_id", "status", "registered_at"}); err != nil {
		return nil, err
	}
	for _, reg := range regs {
		record := []string{
			reg.ID,
			reg.VolunteerID,
			reg.Status,
			reg.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
