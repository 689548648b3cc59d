package main

import (
	"context"
	"fmt"

	"github.com/jmvidalr/corredora/core"
	"github.com/jmvidalr/corredora/core/user"
)

// addUser updates or creates a user.User with the given role.
func (cli *commandLine) addUser(uname, email, rol, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	rol = core.CleanString(rol, true /* lower */)

	var known bool
	for _, r := range user.AllRoles {
		if r == rol {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown role %q", rol)
	}

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: uname})
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Username: uname,
			Email:    email,
		}
	}
	usr.Rol = rol
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
