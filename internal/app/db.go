package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

func (a *App) InsertAvailabilityRule(ctx context.Context, r *AvailabilityRule) error {
	now := time.Now().UTC()

	// Reject duplicate rule text for the same user
	var existingID int
	checkQ := `SELECT id FROM availability_rules WHERE user_id=$1 AND rule=$2 LIMIT 1`
	err := a.DB.QueryRow(ctx, checkQ, r.UserID, r.Rule).Scan(&existingID)
	if err == nil {
		return fmt.Errorf("rule already exists for user %s", r.UserID)
	}
	if err != pgx.ErrNoRows {
		return err
	}

	q := `INSERT INTO availability_rules
          (user_id, rule, title, slot_length_minutes, enabled, created_at, updated_at)
          VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`

	row := a.DB.QueryRow(ctx, q,
		r.UserID, r.Rule, r.Title, r.SlotLengthMins, r.Enabled, now, now)

	r.CreatedAt = now
	r.UpdatedAt = now
	return row.Scan(&r.ID)
}

func (a *App) ListAvailabilityRules(ctx context.Context, userID string) ([]AvailabilityRule, error) {
	q := `SELECT id,user_id,rule,title,slot_length_minutes,enabled,created_at,updated_at
	      FROM availability_rules WHERE user_id=$1 ORDER BY id`
	rows, err := a.DB.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AvailabilityRule
	for rows.Next() {
		var r AvailabilityRule
		if err := rows.Scan(&r.ID, &r.UserID, &r.Rule, &r.Title,
			&r.SlotLengthMins, &r.Enabled, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (a *App) DeleteAvailabilityRule(ctx context.Context, userID string, ruleID int) error {
	q := `DELETE FROM availability_rules WHERE id=$1 AND user_id=$2`
	res, err := a.DB.Exec(ctx, q, ruleID, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (a *App) ListBookingsInRange(ctx context.Context, userID string, from, to time.Time) ([]Booking, error) {
	q := `SELECT id,user_id,candidate_email,start_at_utc,end_at_utc,status,created_at
	      FROM bookings
	      WHERE user_id=$1 AND start_at_utc >= $2 AND start_at_utc < $3 AND status='confirmed'`
	rows, err := a.DB.Query(ctx, q, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBookings(rows)
}

func (a *App) ListBookings(ctx context.Context, userID string, from, to time.Time, filtered bool) ([]Booking, error) {
	var (
		rows pgx.Rows
		err  error
	)

	if filtered {
		q := `SELECT id,user_id,candidate_email,start_at_utc,end_at_utc,status,created_at
              FROM bookings
              WHERE user_id=$1 AND start_at_utc >= $2 AND start_at_utc < $3
              ORDER BY start_at_utc`
		rows, err = a.DB.Query(ctx, q, userID, from, to)
	} else {
		q := `SELECT id,user_id,candidate_email,start_at_utc,end_at_utc,status,created_at
              FROM bookings
              WHERE user_id=$1
              ORDER BY start_at_utc`
		rows, err = a.DB.Query(ctx, q, userID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBookings(rows)
}

func scanBookings(rows pgx.Rows) ([]Booking, error) {
	var out []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.CandidateEmail,
			&b.StartAtUTC, &b.EndAtUTC, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
