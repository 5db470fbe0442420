package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/idkeeper/internal/common"
	"github.com/dmitrijs2005/idkeeper/internal/dbx"
	"github.com/dmitrijs2005/idkeeper/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectUser = `SELECT id, username, email, first_name, last_name, office, phone_number, job_title, linkedin,
		 certificates, roles, password_hash, password_salt, reset_token, created_at, updated_at
		 FROM users`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var certificates, roles []byte
	err := row.Scan(&u.ID, &u.UserName, &u.Email, &u.FirstName, &u.LastName, &u.Office, &u.PhoneNumber,
		&u.JobTitle, &u.LinkedIn, &certificates, &roles, &u.PasswordHash, &u.PasswordSalt, &u.ResetToken,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(certificates) > 0 {
		if err := json.Unmarshal(certificates, &u.Certificates); err != nil {
			return nil, fmt.Errorf("decode certificates: %w", err)
		}
	}
	if len(roles) > 0 {
		if err := json.Unmarshal(roles, &u.Roles); err != nil {
			return nil, fmt.Errorf("decode roles: %w", err)
		}
	}
	return u, nil
}

func encodeLists(u *models.User) (certificates, roles string, err error) {
	c, err := json.Marshal(append([]string{}, u.Certificates...))
	if err != nil {
		return "", "", err
	}
	r, err := json.Marshal(append([]models.Role{}, u.Roles...))
	if err != nil {
		return "", "", err
	}
	return string(c), string(r), nil
}

func wrapWriteErr(err error) error {
	if constraint, ok := dbx.UniqueViolation(err); ok {
		return fmt.Errorf("%w: %s", common.ErrConflict, constraint)
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	certificates, roles, err := encodeLists(user)
	if err != nil {
		return nil, err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO users (id, username, email, first_name, last_name, office, phone_number, job_title, linkedin,
		 certificates, roles, password_hash, password_salt)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING created_at, updated_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		user.ID, user.UserName, user.Email, user.FirstName, user.LastName, user.Office, user.PhoneNumber,
		user.JobTitle, user.LinkedIn, certificates, roles, user.PasswordHash, user.PasswordSalt,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, wrapWriteErr(err)
	}

	return user, nil
}

func (r *PostgresRepository) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, selectUser+"\n\t\t WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = $1", username)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "lower(email) = lower($1)", email)
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUser+"\n\t\t ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	certificates, roles, err := encodeLists(user)
	if err != nil {
		return err
	}

	query :=
		`UPDATE users SET email = $2, first_name = $3, last_name = $4, office = $5, phone_number = $6,
		 job_title = $7, linkedin = $8, certificates = $9, roles = $10, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.FirstName, user.LastName, user.Office,
		user.PhoneNumber, user.JobTitle, user.LinkedIn, certificates, roles)
	if err != nil {
		return wrapWriteErr(err)
	}
	return expectOne(res, common.ErrorNotFound)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, hash, salt []byte) error {
	query :=
		`UPDATE users SET password_hash = $2, password_salt = $3, reset_token = '', updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, hash, salt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res, common.ErrorNotFound)
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, id, expected, next string) error {
	query :=
		`UPDATE users SET reset_token = $3, updated_at = now()
		 WHERE id = $1 AND reset_token = $2
		 `

	res, err := r.db.ExecContext(ctx, query, id, expected, next)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res, common.ErrConflict)
}

func (r *PostgresRepository) ResetPassword(ctx context.Context, id, expected string, hash, salt []byte) error {
	if expected == "" {
		return common.ErrConflict
	}

	query :=
		`UPDATE users SET password_hash = $3, password_salt = $4, reset_token = '', updated_at = now()
		 WHERE id = $1 AND reset_token = $2
		 `

	res, err := r.db.ExecContext(ctx, query, id, expected, hash, salt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res, common.ErrConflict)
}

func (r *PostgresRepository) Delete(ctx context.Context, username string) error {
	query :=
		`DELETE FROM users
		 WHERE username = $1
		 `

	res, err := r.db.ExecContext(ctx, query, username)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res, common.ErrorNotFound)
}

// expectOne returns none when the statement touched no rows.
func expectOne(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return none
	}
	return nil
}
