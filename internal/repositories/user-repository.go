package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"workitem-system/internal/entities"
	"workitem-system/pkg/constants"
	apperrors "workitem-system/pkg/errors"
)

type UserRepository struct {
	storage *pgxpool.Pool
}

func NewUserRepository(storage *pgxpool.Pool) UserRepositoryInterface {
	return &UserRepository{storage: storage}
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return r.findBy(ctx, `id = $1`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.findBy(ctx, `LOWER(email) = LOWER($1)`, email)
}

func (r *UserRepository) findBy(ctx context.Context, cond string, arg interface{}) (*entities.User, error) {
	query := fmt.Sprintf(`SELECT id, name, email, role, password_hash, created_at FROM users WHERE %s`, cond)
	var u entities.User
	err := r.storage.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("user not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) ListManagerEmails(ctx context.Context) ([]string, error) {
	rows, err := r.storage.Query(ctx,
		`SELECT email FROM users WHERE role = ANY($1) ORDER BY email`,
		[]string{constants.RoleManager, constants.RoleSupervisor},
	)
	if err != nil {
		return nil, fmt.Errorf("list manager emails: %w", err)
	}
	defer rows.Close()

	emails := make([]string, 0)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan manager email: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	_, err := r.storage.Exec(ctx,
		`INSERT INTO users (id, name, email, role, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (email) DO NOTHING`,
		user.ID, user.Name, user.Email, user.Role, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}
