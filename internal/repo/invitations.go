package repo

import (
	"context"
	"database/sql"

	"sprintdesk/internal/domain"
)

const invitationColumns = `id,email,role_id,status,expires_at,created_at`

func scanInvitation(row rowScanner) (domain.Invitation, error) {
	var inv domain.Invitation
	var expires, created string
	err := row.Scan(&inv.ID, &inv.Email, &inv.RoleID, &inv.Status, &expires, &created)
	if err == sql.ErrNoRows {
		return inv, ErrNotFound
	}
	inv.ExpiresAt = parseStamp(expires)
	inv.CreatedAt = parseStamp(created)
	return inv, err
}

func (r Repo) InsertInvitation(ctx context.Context, q Querier, inv domain.Invitation) error {
	_, err := q.ExecContext(ctx, `INSERT INTO invitations(`+invitationColumns+`) VALUES (?,?,?,?,?,?)`,
		inv.ID, inv.Email, inv.RoleID, inv.Status, Stamp(inv.ExpiresAt), Stamp(inv.CreatedAt))
	return err
}

func (r Repo) GetInvitation(ctx context.Context, q Querier, id string) (domain.Invitation, error) {
	return scanInvitation(q.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id=?`, id))
}

// PendingInvitation returns the newest unexpired pending invitation for email.
func (r Repo) PendingInvitation(ctx context.Context, q Querier, email, now string) (domain.Invitation, error) {
	return scanInvitation(q.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations
WHERE email=? AND status='pending' AND expires_at>? ORDER BY created_at DESC LIMIT 1`, email, now))
}

func (r Repo) SetInvitationStatus(ctx context.Context, q Querier, id, status string) error {
	return affectedOne(q.ExecContext(ctx, `UPDATE invitations SET status=? WHERE id=?`, status, id))
}

func (r Repo) ListInvitations(ctx context.Context, q Querier) ([]domain.Invitation, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+invitationColumns+` FROM invitations ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, inv)
	}
	return res, rows.Err()
}
