package market

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Carts persist the quantity map as JSONB. The row is created lazily inside
// the same transaction as the first mutation for the user.

func decodeItems(raw []byte) (map[string]int, error) {
	items := map[string]int{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, persistErr(err)
		}
	}
	return items, nil
}

// getCartTx looks up the user's cart under FOR UPDATE, inserting the empty
// row first if the user has none yet.
func getCartTx(ctx context.Context, tx pgx.Tx, userID string) (Cart, error) {
	if _, err := tx.Exec(ctx, `
		INSERT INTO carts(user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return Cart{}, persistErr(err)
	}
	var raw []byte
	c := Cart{UserID: userID}
	err := tx.QueryRow(ctx, `
		SELECT products, created_at, updated_at FROM carts WHERE user_id=$1 FOR UPDATE`, userID).
		Scan(&raw, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Cart{}, persistErr(err)
	}
	items, err := decodeItems(raw)
	if err != nil {
		return Cart{}, err
	}
	c.Items = items
	return c, nil
}

func saveCartTx(ctx context.Context, tx pgx.Tx, c Cart) error {
	raw, err := json.Marshal(c.Items)
	if err != nil {
		return persistErr(err)
	}
	ct, err := tx.Exec(ctx, `
		UPDATE carts SET products=$2, updated_at=now() WHERE user_id=$1`, c.UserID, raw)
	if err != nil {
		return persistErr(err)
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

// GetCart is a plain read; a user without a cart row gets an empty cart. The
// row itself is only created when the cart is first mutated.
func (r *Repo) GetCart(ctx context.Context, userID string) (Cart, error) {
	var raw []byte
	c := Cart{UserID: userID}
	err := r.DB.QueryRow(ctx, `
		SELECT products, created_at, updated_at FROM carts WHERE user_id=$1`, userID).
		Scan(&raw, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		c.Items = map[string]int{}
		return c, nil
	}
	if err != nil {
		return Cart{}, persistErr(err)
	}
	items, err := decodeItems(raw)
	if err != nil {
		return Cart{}, err
	}
	c.Items = items
	return c, nil
}

func (r *Repo) AddCartItem(ctx context.Context, userID, productID string, amount int) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return persistErr(err)
	}
	defer tx.Rollback(ctx)

	c, err := getCartTx(ctx, tx, userID)
	if err != nil {
		return err
	}
	p, err := scanProduct(tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, productID))
	if err != nil {
		return err
	}
	if err := c.Add(p, amount); err != nil {
		return err
	}
	if err := saveCartTx(ctx, tx, c); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return persistErr(err)
	}
	return nil
}

func (r *Repo) RemoveCartItem(ctx context.Context, userID, productID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return persistErr(err)
	}
	defer tx.Rollback(ctx)

	c, err := getCartTx(ctx, tx, userID)
	if err != nil {
		return err
	}
	if err := c.Remove(productID); err != nil {
		return err
	}
	if err := saveCartTx(ctx, tx, c); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return persistErr(err)
	}
	return nil
}

func (r *Repo) ClearCart(ctx context.Context, userID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return persistErr(err)
	}
	defer tx.Rollback(ctx)

	c, err := getCartTx(ctx, tx, userID)
	if err != nil {
		return err
	}
	c.Clear()
	if err := saveCartTx(ctx, tx, c); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return persistErr(err)
	}
	return nil
}

// Checkout converts every cart line into a Pending request in one
// transaction. Product rows are locked in sorted id order; any shortage
// rolls back the whole checkout and reports the failing product.
func (r *Repo) Checkout(ctx context.Context, userID string) ([]Request, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, persistErr(err)
	}
	defer tx.Rollback(ctx)

	c, err := getCartTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	created := make([]Request, 0, len(c.Items))
	for _, pid := range c.SortedProductIDs() {
		qty := c.Items[pid]
		p, err := lockProduct(ctx, tx, pid)
		if err != nil {
			return nil, err
		}
		if qty > p.Stock {
			return nil, &InsufficientStockError{ProductID: pid, Requested: qty, Available: p.Stock}
		}
		if err := reserveStock(ctx, tx, pid, qty); err != nil {
			return nil, err
		}
		q := Request{
			ID:        uuid.NewString(),
			ProductID: pid,
			UserID:    userID,
			Quantity:  qty,
			Status:    StatusPending,
		}
		if err := insertRequestTx(ctx, tx, &q); err != nil {
			return nil, err
		}
		created = append(created, q)
	}

	c.Clear()
	if err := saveCartTx(ctx, tx, c); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, persistErr(err)
	}
	return created, nil
}
