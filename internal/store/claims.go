package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campuslost/lostfound/internal/model"
)

// Errors returned by the conditional claim transitions.
var (
	ErrItemResolved    = errors.New("item already resolved")
	ErrClaimNotPending = errors.New("claim is not pending")
)

const claimSelect = `SELECT c.id, c.item_id, c.claimant_id, c.proof_message, c.status, c.created_at, c.updated_at,
        i.id, i.title, i.description, i.category, i.location, i.date, i.type, i.status,
        i.claimed_by, i.image_url, i.posted_by, i.is_approved, i.created_at,
        o.id, o.name, o.email,
        cl.id, cl.name, cl.email
 FROM claims c
 JOIN items i ON i.id = c.item_id
 JOIN users o ON o.id = i.posted_by
 JOIN users cl ON cl.id = c.claimant_id`

func scanClaim(row interface{ Scan(...any) error }) (*model.Claim, error) {
	c := &model.Claim{}
	item := &model.Item{}
	owner := &model.UserSummary{}
	claimant := &model.UserSummary{}
	var claimedBy sql.NullInt64
	if err := row.Scan(&c.ID, &c.ItemID, &c.ClaimantID, &c.ProofMessage, &c.Status, &c.CreatedAt, &c.UpdatedAt,
		&item.ID, &item.Title, &item.Description, &item.Category, &item.Location, &item.Date, &item.Type, &item.Status,
		&claimedBy, &item.ImageURL, &item.PostedBy, &item.IsApproved, &item.CreatedAt,
		&owner.ID, &owner.Name, &owner.Email,
		&claimant.ID, &claimant.Name, &claimant.Email); err != nil {
		return nil, err
	}
	if claimedBy.Valid {
		item.ClaimedBy = &claimedBy.Int64
	}
	item.Poster = owner
	c.Item = item
	c.Claimant = claimant
	return c, nil
}

// CreateClaim creates a pending claim. Returns ErrDuplicate if the claimant
// already has a pending claim on the item.
func CreateClaim(ctx context.Context, db *sql.DB, itemID, claimantID int64, proof string) (*model.Claim, error) {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx,
		`INSERT INTO claims (item_id, claimant_id, proof_message, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		itemID, claimantID, proof, model.ClaimStatusPending, now, now,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("creating claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting claim id: %w", err)
	}

	return GetClaim(ctx, db, id)
}

// GetClaim returns a claim by ID with its item, item owner and claimant attached.
func GetClaim(ctx context.Context, db *sql.DB, id int64) (*model.Claim, error) {
	c, err := scanClaim(db.QueryRowContext(ctx, claimSelect+` WHERE c.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}
	return c, nil
}

// HasPendingClaim reports whether claimantID has a pending claim on itemID.
func HasPendingClaim(ctx context.Context, db *sql.DB, itemID, claimantID int64) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claims WHERE item_id = ? AND claimant_id = ? AND status = ?`,
		itemID, claimantID, model.ClaimStatusPending,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking pending claim: %w", err)
	}
	return count > 0, nil
}

// ListClaims returns claims filtered by item and/or claimant, newest first.
func ListClaims(ctx context.Context, db *sql.DB, itemID, claimantID int64) ([]model.Claim, error) {
	query := claimSelect + ` WHERE 1=1`
	var args []any

	if itemID > 0 {
		query += ` AND c.item_id = ?`
		args = append(args, itemID)
	}
	if claimantID > 0 {
		query += ` AND c.claimant_id = ?`
		args = append(args, claimantID)
	}

	query += ` ORDER BY c.created_at DESC, c.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning claim: %w", err)
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

// ApproveClaim marks a pending claim approved and resolves its item to the
// claimant in a single transaction. Both updates are conditional on the prior
// state, so of two concurrent approvals on the same item at most one commits.
// Returns ErrItemResolved or ErrClaimNotPending when a precondition no longer holds.
func ApproveClaim(ctx context.Context, db *sql.DB, claimID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Write first so the transaction takes the write lock up front.
	result, err := tx.ExecContext(ctx,
		`UPDATE items SET status = ?, claimed_by = c.claimant_id
		 FROM (SELECT item_id, claimant_id FROM claims WHERE id = ? AND status = ?) AS c
		 WHERE items.id = c.item_id AND items.status = ?`,
		model.ItemStatusResolved, claimID, model.ClaimStatusPending, model.ItemStatusActive,
	)
	if err != nil {
		return fmt.Errorf("resolving item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		var claimStatus string
		err := tx.QueryRowContext(ctx, `SELECT status FROM claims WHERE id = ?`, claimID).Scan(&claimStatus)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("loading claim: %w", err)
		}
		if claimStatus == model.ClaimStatusPending {
			return ErrItemResolved
		}
		return ErrClaimNotPending
	}

	if err := setClaimStatus(ctx, tx, claimID, model.ClaimStatusApproved); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing approval: %w", err)
	}
	return nil
}

// RejectClaim marks a pending claim rejected. Returns ErrClaimNotPending if it
// is already terminal.
func RejectClaim(ctx context.Context, db *sql.DB, claimID int64) error {
	return setClaimStatus(ctx, db, claimID, model.ClaimStatusRejected)
}

func setClaimStatus(ctx context.Context, q querier, claimID int64, status string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE claims SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		status, time.Now().UTC(), claimID, model.ClaimStatusPending,
	)
	if err != nil {
		return fmt.Errorf("setting claim status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrClaimNotPending
	}
	return nil
}
