package market

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const requestCols = `id, product_id, user_id, quantity, status, reservation_info, created_at, updated_at`

func scanRequest(row pgx.Row) (Request, error) {
	var q Request
	err := row.Scan(&q.ID, &q.ProductID, &q.UserID, &q.Quantity, &q.Status, &q.ReservationInfo, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	if err != nil {
		return Request{}, persistErr(err)
	}
	return q, nil
}

func insertRequestTx(ctx context.Context, tx pgx.Tx, q *Request) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO requests(id, product_id, user_id, quantity, status, reservation_info)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		q.ID, q.ProductID, q.UserID, q.Quantity, q.Status, q.ReservationInfo).
		Scan(&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return persistErr(err)
	}
	return nil
}

// CreateRequest validates quantity and the optional slot against the product
// row held under lock, then decrements stock and inserts the Pending request
// in the same transaction.
func (r *Repo) CreateRequest(ctx context.Context, in CreateRequestInput) (Request, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Request{}, persistErr(err)
	}
	defer tx.Rollback(ctx)

	p, err := lockProduct(ctx, tx, in.ProductID)
	if err != nil {
		return Request{}, err
	}
	info, err := validateCreate(p, in)
	if err != nil {
		return Request{}, err
	}
	if err := reserveStock(ctx, tx, p.ID, in.Quantity); err != nil {
		return Request{}, err
	}

	q := Request{
		ID:              uuid.NewString(),
		ProductID:       in.ProductID,
		UserID:          in.UserID,
		Quantity:        in.Quantity,
		Status:          StatusPending,
		ReservationInfo: info,
	}
	if err := insertRequestTx(ctx, tx, &q); err != nil {
		return Request{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Request{}, persistErr(err)
	}
	return q, nil
}

func (r *Repo) GetRequest(ctx context.Context, id string) (Request, error) {
	return scanRequest(r.DB.QueryRow(ctx, `SELECT `+requestCols+` FROM requests WHERE id=$1`, id))
}

func (r *Repo) ApproveRequest(ctx context.Context, id string) (Request, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Request{}, persistErr(err)
	}
	defer tx.Rollback(ctx)

	q, err := scanRequest(tx.QueryRow(ctx, `SELECT `+requestCols+` FROM requests WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return Request{}, err
	}
	if !CanTransition(q.Status, StatusApproved) {
		return Request{}, ErrBadTransition
	}
	err = tx.QueryRow(ctx, `
		UPDATE requests SET status=$2, updated_at=now() WHERE id=$1
		RETURNING updated_at`, id, StatusApproved).Scan(&q.UpdatedAt)
	if err != nil {
		return Request{}, persistErr(err)
	}
	q.Status = StatusApproved
	if err := tx.Commit(ctx); err != nil {
		return Request{}, persistErr(err)
	}
	return q, nil
}

// DeleteRequest removes the request and returns its quantity to the product.
// Both happen in one transaction; neither survives alone.
func (r *Repo) DeleteRequest(ctx context.Context, id string) (Request, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Request{}, persistErr(err)
	}
	defer tx.Rollback(ctx)

	q, err := scanRequest(tx.QueryRow(ctx, `SELECT `+requestCols+` FROM requests WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return Request{}, err
	}
	if err := releaseStock(ctx, tx, q.ProductID, q.Quantity); err != nil {
		return Request{}, err
	}
	ct, err := tx.Exec(ctx, `DELETE FROM requests WHERE id=$1`, id)
	if err != nil {
		return Request{}, persistErr(err)
	}
	if ct.RowsAffected() != 1 {
		return Request{}, ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return Request{}, persistErr(err)
	}
	return q, nil
}

func (r *Repo) ListRequests(ctx context.Context, userID string) ([]Request, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+requestCols+` FROM requests WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, persistErr(err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		q, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr(err)
	}
	return out, nil
}
