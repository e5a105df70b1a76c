package main

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lab/apps/api/echo"
)

func (cli *commandLine) token(subject string, roles []string) error {
	for _, role := range roles {
		switch role {
		case echoapi.RoleStudent, echoapi.RoleTeacher, echoapi.RoleAdmin:
		default:
			return fmt.Errorf("%q: unknown role", role)
		}
	}
	token, err := echoapi.GenerateToken(echoapi.NewClaims(cli.conf, subject, roles), cli.conf.SecretKey)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
