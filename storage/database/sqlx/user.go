// Package sqlxrepos implements the domain repositories over Postgres with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/remshq/rems/core"
	"github.com/remshq/rems/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// dbUser maps the "user" table; nullable columns use null/v8 wrappers.
type dbUser struct {
	ID                string         `db:"id"`
	Name              null.String    `db:"name"`
	Username          null.String    `db:"username"`
	Email             null.String    `db:"email"`
	Phone             null.String    `db:"phone"`
	Track             null.String    `db:"track"`
	IsActive          null.Bool      `db:"is_active"`
	Roles             pq.StringArray `db:"roles"`
	BankAccountHolder null.String    `db:"bank_account_holder"`
	BankName          null.String    `db:"bank_name"`
	BankAccountNumber null.String    `db:"bank_account_number"`
	BankBranch        null.String    `db:"bank_branch"`
	PasswordHash      null.Bytes     `db:"password_hash"`
	CreatedAt         null.Time      `db:"created_at"`
	UpdatedAt         null.Time      `db:"updated_at"`
	LastLogin         null.Time      `db:"last_login"`
}

func (repo userRepository) pack(usr user.User) dbUser {
	return dbUser{
		ID:                usr.ID,
		Name:              null.NewString(usr.Name, usr.Name != ""),
		Username:          null.NewString(usr.Username, usr.Username != ""),
		Email:             null.NewString(usr.Email, usr.Email != ""),
		Phone:             null.NewString(usr.Phone, usr.Phone != ""),
		Track:             null.NewString(usr.Track, usr.Track != ""),
		IsActive:          null.BoolFromPtr(usr.IsActive),
		Roles:             usr.Roles,
		BankAccountHolder: null.NewString(usr.BankInfo.AccountHolder, usr.BankInfo.AccountHolder != ""),
		BankName:          null.NewString(usr.BankInfo.BankName, usr.BankInfo.BankName != ""),
		BankAccountNumber: null.NewString(usr.BankInfo.AccountNumber, usr.BankInfo.AccountNumber != ""),
		BankBranch:        null.NewString(usr.BankInfo.Branch, usr.BankInfo.Branch != ""),
		PasswordHash:      null.BytesFrom(usr.PasswordHash),
		CreatedAt:         null.NewTime(usr.CreatedAt.UTC(), !usr.CreatedAt.IsZero()),
		UpdatedAt:         null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero()),
		LastLogin:         null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) unpack(u dbUser) user.User {
	return user.User{
		ID:       u.ID,
		Name:     u.Name.String,
		Username: u.Username.String,
		Email:    u.Email.String,
		Phone:    u.Phone.String,
		Track:    u.Track.String,
		IsActive: u.IsActive.Ptr(),
		Roles:    u.Roles,
		BankInfo: user.BankInfo{
			AccountHolder: u.BankAccountHolder.String,
			BankName:      u.BankName.String,
			AccountNumber: u.BankAccountNumber.String,
			Branch:        u.BankBranch.String,
		},
		PasswordHash: u.PasswordHash.Bytes,
		CreatedAt:    u.CreatedAt.Time,
		UpdatedAt:    u.UpdatedAt.Time,
		LastLogin:    u.LastLogin.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func trapNoRowsErr(err error, sentinel error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return sentinel
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	query := `SELECT username, email FROM "user" WHERE (username = $1 OR email = $2)`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += " AND NOT (id = ANY($3))"
		args = append(args, pq.Array(ids))
	}

	var rows []dbUser
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if username != "" && row.Username.String == username {
			return user.ErrUsernameExists
		}
		if email != "" && row.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	u := repo.pack(usr)

	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "user" (id, name, username, email, phone, track, is_active, roles,
		                    bank_account_holder, bank_name, bank_account_number, bank_branch,
		                    password_hash, created_at, updated_at, last_login)
		VALUES (:id, :name, :username, :email, :phone, :track, :is_active, :roles,
		        :bank_account_holder, :bank_name, :bank_account_number, :bank_branch,
		        :password_hash, :created_at, :updated_at, :last_login)`, u)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var u dbUser
	if err := repo.db.GetContext(ctx, &u, `SELECT * FROM "user" WHERE id = $1`, id); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user by id")
	}
	return repo.unpack(u), nil
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, uname string) (user.User, error) {
	var u dbUser
	err := repo.db.GetContext(ctx, &u, `SELECT * FROM "user" WHERE username = $1 OR email = $1`, uname)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user by username or email")
	}
	return repo.unpack(u), nil
}

var userOrderableColumns = map[string]bool{
	"name": true, "username": true, "email": true, "track": true, "created_at": true, "last_login": true,
}

func (repo userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		p := arg(val)
		conds = append(conds, fmt.Sprintf(
			"(name ILIKE %[1]s OR username ILIKE %[1]s OR email ILIKE %[1]s OR phone ILIKE %[1]s)", p))
	}
	if len(filter.Roles) > 0 {
		// users with any role that starts with any of the provided roles
		roleConds := make([]string, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			roleConds = append(roleConds, fmt.Sprintf(
				`id IN (SELECT id FROM "user", UNNEST(roles) user_role WHERE user_role ILIKE %s)`, arg(role+"%")))
		}
		conds = append(conds, "("+strings.Join(roleConds, " OR ")+")")
	}
	if filter.Track != "" {
		conds = append(conds, fmt.Sprintf("track ILIKE %s", arg(filter.Track)))
	}
	if filter.IsActive != nil {
		conds = append(conds, fmt.Sprintf("is_active = %s", arg(*filter.IsActive)))
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, fmt.Sprintf("created_at >= %s", arg(filter.CreatedFrom.UTC())))
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, fmt.Sprintf("created_at <= %s", arg(filter.CreatedTo.UTC())))
	}

	query := `SELECT * FROM "user"`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	orderBy := []string{"created_at DESC"}
	if len(ordering) > 0 {
		orderBy = orderBy[:0]
		for _, ord := range ordering {
			if userOrderableColumns[ord.Field] {
				orderBy = append(orderBy, ord.String())
			}
		}
	}
	if len(orderBy) > 0 {
		query += " ORDER BY " + strings.Join(orderBy, ", ")
	}

	var rows []dbUser
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.unpack(row))
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	curr, err := repo.GetUserByID(ctx, usr.ID)
	if err != nil {
		return user.User{}, err
	}
	if usr.Name == "" {
		usr.Name = curr.Name
	}
	if usr.Username == "" {
		usr.Username = curr.Username
	}
	if usr.Email == "" {
		usr.Email = curr.Email
	}
	if usr.Phone == "" {
		usr.Phone = curr.Phone
	}
	if usr.Track == "" {
		usr.Track = curr.Track
	}
	if usr.Roles == nil {
		usr.Roles = curr.Roles
	}
	if len(usr.PasswordHash) == 0 {
		usr.PasswordHash = curr.PasswordHash
	}
	if isActive != nil {
		usr.IsActive = isActive
	} else {
		usr.IsActive = curr.IsActive
	}
	usr.BankInfo = curr.BankInfo
	usr.CreatedAt = curr.CreatedAt
	usr.LastLogin = curr.LastLogin

	u := repo.pack(usr)
	_, err = repo.db.NamedExecContext(ctx, `
		UPDATE "user"
		SET name = :name, username = :username, email = :email, phone = :phone, track = :track,
		    is_active = :is_active, roles = :roles, password_hash = :password_hash, updated_at = :updated_at
		WHERE id = :id`, u)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

func (repo userRepository) UpdateBankInfo(ctx context.Context, id string, info user.BankInfo) (user.User, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE "user"
		SET bank_account_holder = $2, bank_name = $3, bank_account_number = $4, bank_branch = $5, updated_at = $6
		WHERE id = $1`,
		id, info.AccountHolder, info.BankName, info.AccountNumber, info.Branch, time.Now().UTC())
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating bank info")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, id)
}

func (repo userRepository) SetLastLogin(ctx context.Context, usr user.User) (user.User, error) {
	usr.LastLogin = user.NowFunc().UTC()
	_, err := repo.db.ExecContext(ctx, `UPDATE "user" SET last_login = $2 WHERE id = $1`, usr.ID, usr.LastLogin)
	if err != nil {
		return user.User{}, errors.Wrap(err, "setting last login")
	}
	return usr, nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting users")
}
