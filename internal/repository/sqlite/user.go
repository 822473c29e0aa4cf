package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/user-service/internal/apperror"
	"github.com/sakif/user-service/internal/model"
	"github.com/sakif/user-service/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, name, email, password, created_at, updated_at`

// Create inserts a new user and fills in its ID and timestamps.
//
// The email UNIQUE constraint is the only thing standing between two
// concurrent registrations with the same address, so we don't pre-check:
// we insert and translate the constraint violation into
// apperror.DuplicateEmail.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := db.conn.NamedExecContext(ctx,
		`INSERT INTO users (name, email, password, created_at, updated_at)
		 VALUES (:name, :email, :password, :created_at, :updated_at)`,
		user,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateEmail(user.Email)
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id

	return nil
}

// GetByID retrieves a user by id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User

	err := db.conn.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}

	return &u, nil
}

// GetByEmail retrieves a user by email. The column is COLLATE NOCASE, so
// "Ana@X.com" finds "ana@x.com".
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User

	err := db.conn.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}

	return &u, nil
}

// List returns one page of users in insertion (id) order.
//
// Limit and Offset come resolved from the service layer; a non-positive
// limit here means "caller bug" and yields an empty page rather than the
// whole table. Name filters with LIKE, which in SQLite is case-insensitive
// for ASCII letters; '%' and '_' typed by the client are matched literally.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	users := make([]model.User, 0, max(opts.Limit, 0))
	if opts.Limit <= 0 {
		return users, nil
	}
	offset := max(opts.Offset, 0)

	query := `SELECT ` + userColumns + ` FROM users`
	args := make([]any, 0, 3)
	if opts.Name != "" {
		query += ` WHERE name LIKE ? ESCAPE '\'`
		args = append(args, likeContains(opts.Name))
	}
	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, offset)

	if err := db.conn.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}

	return users, nil
}

// Update writes name, email and password hash of an existing user.
//
// Returns apperror.ErrNotFound when no row has user.ID and
// apperror.ErrConflict when the new email belongs to someone else.
func (db *DB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	result, err := db.conn.NamedExecContext(ctx,
		`UPDATE users
		 SET name = :name, email = :email, password = :password, updated_at = :updated_at
		 WHERE id = :id`,
		user,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateEmail(user.Email)
		}
		return fmt.Errorf("sqlite: updating user %d: %w", user.ID, err)
	}

	// RowsAffected() == 0 means the WHERE clause matched nothing → not found.
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", strconv.FormatInt(user.ID, 10))
	}

	return nil
}

// Delete removes a user by id. Same RowsAffected pattern as Update.
func (db *DB) Delete(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}

	return nil
}

// isUniqueViolation reports whether err is SQLite's UNIQUE constraint failure.
// modernc reports extended result codes; the message check covers a
// connection that only reports the primary SQLITE_CONSTRAINT code.
func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE")
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likeContains builds a LIKE pattern matching s anywhere in the column.
func likeContains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
