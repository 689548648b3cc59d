package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jmvidalr/corredora/core"
	"github.com/jmvidalr/corredora/core/user"
)

type userRow struct {
	ID                  string      `db:"id"`
	Nombre              null.String `db:"nombre"`
	Apellido            null.String `db:"apellido"`
	Username            null.String `db:"username"`
	Email               null.String `db:"email"`
	Rol                 string      `db:"rol"`
	IsActive            null.Bool   `db:"is_active"`
	DebeCambiarPassword bool        `db:"debe_cambiar_password"`
	PasswordHash        null.Bytes  `db:"password_hash"`
	CreatedAt           null.Time   `db:"created_at"`
	UpdatedAt           null.Time   `db:"updated_at"`
	LastLogin           null.Time   `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	return userRow{
		ID:                  usr.ID,
		Nombre:              null.NewString(usr.Nombre, usr.Nombre != ""),
		Apellido:            null.NewString(usr.Apellido, usr.Apellido != ""),
		Username:            null.NewString(usr.Username, usr.Username != ""),
		Email:               null.NewString(usr.Email, usr.Email != ""),
		Rol:                 usr.Rol,
		IsActive:            null.BoolFromPtr(usr.IsActive),
		DebeCambiarPassword: usr.DebeCambiarPassword,
		PasswordHash:        null.BytesFrom(usr.PasswordHash),
		CreatedAt:           null.NewTime(usr.CreatedAt.UTC(), !usr.CreatedAt.IsZero()),
		UpdatedAt:           null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero()),
		LastLogin:           null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (row userRow) toUser() user.User {
	return user.User{
		ID:                  row.ID,
		Nombre:              row.Nombre.String,
		Apellido:            row.Apellido.String,
		Username:            row.Username.String,
		Email:               row.Email.String,
		Rol:                 row.Rol,
		IsActive:            row.IsActive.Ptr(),
		DebeCambiarPassword: row.DebeCambiarPassword,
		PasswordHash:        row.PasswordHash.Bytes,
		CreatedAt:           row.CreatedAt.Time,
		UpdatedAt:           row.UpdatedAt.Time,
		LastLogin:           row.LastLogin.Time,
	}
}

var userOrderable = map[string]bool{
	"nombre":     true,
	"apellido":   true,
	"username":   true,
	"email":      true,
	"rol":        true,
	"created_at": true,
	"updated_at": true,
	"last_login": true,
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	query := `SELECT username, email FROM usuario WHERE (username = ? OR email = ?)`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += ` AND id NOT IN (?)`
		args = append(args, ids)
	}
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if row.Username.String == username {
			return user.ErrUsernameExists
		}
		if row.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := newUserRow(usr)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO usuario (id, nombre, apellido, username, email, rol, is_active, debe_cambiar_password, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :nombre, :apellido, :username, :email, :rol, :is_active, :debe_cambiar_password, :password_hash, :created_at, :updated_at, :last_login)`,
		row,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.toUser(), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	query := `SELECT * FROM usuario`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, `(nombre ILIKE ? OR apellido ILIKE ? OR username ILIKE ? OR email ILIKE ?)`)
			val := "%" + filter.Search + "%"
			args = append(args, val, val, val, val)
		}
		if filter.Rol != "" {
			conds = append(conds, `rol = ?`)
			args = append(args, filter.Rol)
		}
		if filter.IsActive != nil {
			conds = append(conds, `is_active = ?`)
			args = append(args, *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, `created_at >= ?`)
			args = append(args, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, `created_at <= ?`)
			args = append(args, filter.CreatedTo.UTC())
		}
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, ` AND `)
	}
	query += orderBy(ordering, userOrderable, "created_at DESC")

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var row userRow
	var err error

	switch {
	case filter.ID != "":
		if _, uerr := uuid.Parse(filter.ID); uerr != nil {
			return user.User{}, user.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM usuario WHERE id = $1`, filter.ID)
	case filter.Username != "":
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM usuario WHERE username = $1`, filter.Username)
	case filter.Email != "":
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM usuario WHERE email = $1`, filter.Email)
	case filter.UsernameOrEmail != "":
		err = repo.db.GetContext(ctx, &row,
			`SELECT * FROM usuario WHERE username = $1 OR email = $1`, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return row.toUser(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := newUserRow(usr)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE usuario SET
			nombre = COALESCE(:nombre, nombre),
			apellido = COALESCE(:apellido, apellido),
			username = COALESCE(:username, username),
			email = COALESCE(:email, email),
			rol = CASE WHEN :rol = '' THEN rol ELSE :rol END,
			is_active = COALESCE(:is_active, is_active),
			debe_cambiar_password = :debe_cambiar_password,
			password_hash = COALESCE(:password_hash, password_hash),
			updated_at = COALESCE(:updated_at, updated_at),
			last_login = COALESCE(:last_login, last_login)
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr)
	}
	return repo.UpdateUser(ctx, usr)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM usuario WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

// orderBy renders an ORDER BY clause from ordering, falling back to def.
// Field names come straight from the query string, so anything outside the
// repository's orderable column set is dropped.
func orderBy(ordering []core.DBOrdering, orderable map[string]bool, def string) string {
	terms := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if !orderable[ord.Field] {
			continue
		}
		terms = append(terms, ord.String())
	}
	if len(terms) == 0 {
		if def == "" {
			return ""
		}
		return ` ORDER BY ` + def
	}
	return ` ORDER BY ` + strings.Join(terms, ", ")
}
