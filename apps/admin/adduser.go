package main

import (
	"context"
	"fmt"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd, role string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)

	switch role {
	case user.RoleStudent, user.RoleTeacher, user.RoleAdmin: // pass
	default:
		return fmt.Errorf("unknown role %q", role)
	}

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: uname})
	if err != nil {
		if !core.IsNotFound(err) {
			return err
		}
		usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
		if err != nil {
			if !core.IsNotFound(err) {
				return err
			}
			usr = user.User{
				Username: uname,
				Email:    email,
			}
		}
	}
	if usr.Name == "" {
		usr.Name = uname
	}
	usr.Role = role
	usr.IsActive = true
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
