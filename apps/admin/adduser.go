package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/remshq/rems/core"
	"github.com/remshq/rems/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		if usr, err = cli.usrRepo.GetUserByUsernameOrEmail(ctx, email); err != nil {
			if errors.Cause(err) != user.ErrNotFound {
				return err
			}
			usr = user.User{}
		}
	}

	active := true
	found := usr.ID != ""
	usr.Username = uname
	usr.Email = email
	usr.IsActive = &active
	if isAdmin {
		usr.Roles = user.AllRoles
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	now := user.NowFunc().UTC()
	usr.UpdatedAt = now
	if found {
		_, err = cli.usrRepo.UpdateUser(ctx, usr, &active)
		return err
	}
	usr.CreatedAt = now
	_, err = cli.usrRepo.CreateUser(ctx, usr)
	return err
}
