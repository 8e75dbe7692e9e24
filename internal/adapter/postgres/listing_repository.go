package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/campuscloset/marketplace/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const listingColumns = `id, owner_id, owner_name, title, description, category, condition, image_url, created_at`

type ListingRepo struct {
	pool *pgxpool.Pool
}

func NewListingRepo(pool *pgxpool.Pool) *ListingRepo {
	return &ListingRepo{pool: pool}
}

func scanListing(row pgx.Row) (*domain.Listing, error) {
	var l domain.Listing
	err := row.Scan(&l.ID, &l.OwnerID, &l.OwnerName, &l.Title, &l.Description, &l.Category, &l.Condition, &l.ImageURL, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	l.CreatedAt = l.CreatedAt.UTC()
	return &l, nil
}

func (r *ListingRepo) Create(ctx context.Context, l domain.Listing) (*domain.Listing, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO listings (id, owner_id, owner_name, title, description, category, condition, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+listingColumns,
		l.ID, l.OwnerID, l.OwnerName, l.Title, l.Description, l.Category, l.Condition, l.ImageURL, l.CreatedAt,
	)
	created, err := scanListing(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert listing: %w", err)
	}
	return created, nil
}

func (r *ListingRepo) GetByID(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	l, err := scanListing(r.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, listingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

func (r *ListingRepo) List(ctx context.Context) ([]*domain.Listing, error) {
	return r.query(ctx, `SELECT `+listingColumns+` FROM listings ORDER BY created_at DESC, id`)
}

func (r *ListingRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Listing, error) {
	return r.query(ctx, `SELECT `+listingColumns+` FROM listings WHERE owner_id = $1 ORDER BY created_at DESC, id`, ownerID)
}

func (r *ListingRepo) query(ctx context.Context, sql string, args ...any) ([]*domain.Listing, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	listings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Listing, error) {
		return scanListing(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan listings: %w", err)
	}
	return listings, nil
}
