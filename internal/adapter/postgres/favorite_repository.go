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

type FavoriteRepo struct {
	pool *pgxpool.Pool
}

func NewFavoriteRepo(pool *pgxpool.Pool) *FavoriteRepo {
	return &FavoriteRepo{pool: pool}
}

func (r *FavoriteRepo) Find(ctx context.Context, userID, listingID uuid.UUID) (*domain.Favorite, error) {
	var f domain.Favorite
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, listing_id, created_at
		FROM favorites
		WHERE user_id = $1 AND listing_id = $2
		ORDER BY created_at
		LIMIT 1`, userID, listingID,
	).Scan(&f.ID, &f.UserID, &f.ListingID, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrFavoriteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find favorite: %w", err)
	}
	f.CreatedAt = f.CreatedAt.UTC()
	return &f, nil
}

func (r *FavoriteRepo) Create(ctx context.Context, f domain.Favorite) (*domain.Favorite, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO favorites (id, user_id, listing_id, created_at)
		VALUES ($1, $2, $3, $4)`, f.ID, f.UserID, f.ListingID, f.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert favorite: %w", err)
	}
	return &f, nil
}

func (r *FavoriteRepo) Delete(ctx context.Context, favoriteID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM favorites WHERE id = $1`, favoriteID)
	if err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFavoriteNotFound
	}
	return nil
}

func (r *FavoriteRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Favorite, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT f.id, f.user_id, f.listing_id, f.created_at,
		       l.id, l.owner_id, l.owner_name, l.title, l.description, l.category, l.condition, l.image_url, l.created_at
		FROM favorites f
		JOIN listings l ON l.id = f.listing_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC, f.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	favs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Favorite, error) {
		var (
			f domain.Favorite
			l domain.Listing
		)
		err := row.Scan(
			&f.ID, &f.UserID, &f.ListingID, &f.CreatedAt,
			&l.ID, &l.OwnerID, &l.OwnerName, &l.Title, &l.Description, &l.Category, &l.Condition, &l.ImageURL, &l.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		f.CreatedAt = f.CreatedAt.UTC()
		l.CreatedAt = l.CreatedAt.UTC()
		f.Listing = &l
		return &f, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan favorites: %w", err)
	}
	return favs, nil
}
