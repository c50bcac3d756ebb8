package market

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// Stock ledger primitives. Both run on an open transaction so the stock
// mutation commits or rolls back together with the owning request row.

// lockProduct reads the product row under FOR UPDATE, serializing concurrent
// stock checks per product.
func lockProduct(ctx context.Context, tx pgx.Tx, productID string) (Product, error) {
	var p Product
	err := tx.QueryRow(ctx, `
		SELECT id, seller_id, name, category, price, stock, schedule, created_at, updated_at
		FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.SellerID, &p.Name, &p.Category, &p.Price, &p.Stock, &p.Schedule, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, persistErr(err)
	}
	return p, nil
}

// reserveStock decrements stock for a row already held under lockProduct.
// Callers must have verified qty against the locked stock value.
func reserveStock(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	ct, err := tx.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now() WHERE id=$1`, productID, qty)
	if err != nil {
		return persistErr(err)
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

// releaseStock returns qty to the product, used when a request is deleted.
func releaseStock(ctx context.Context, tx pgx.Tx, productID string, qty int) error {
	ct, err := tx.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`, productID, qty)
	if err != nil {
		return persistErr(err)
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}
