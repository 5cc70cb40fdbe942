package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// RollbarLogger reports to rollbar and echoes everything to a standard logger.
type RollbarLogger struct {
	out *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(out *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{out: out}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.Debug, msg, args) }
func (l RollbarLogger) Info(msg string, args ...interface{})  { l.log(rollbar.Info, msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.log(rollbar.Warning, msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.Error, msg, args) }

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.Critical, msg, args)
	l.out.Fatal(msg)
}

func (l RollbarLogger) log(report func(...interface{}), msg string, args []interface{}) {
	report(l.withPerson(msg, args)...)

	l.out.Println(msg)
	for _, arg := range args {
		l.out.Printf("%+v\n", arg)
	}
}

// withPerson attaches the first user.User argument as the rollbar person and
// strips any user.User from the reported args. Remaining args may be an error
// or a map[string]interface{}, per the rollbar API.
func (l RollbarLogger) withPerson(msg string, args []interface{}) []interface{} {
	reported := make([]interface{}, 0, len(args)+1)
	reported = append(reported, msg)

	var personSet bool
	for _, arg := range args {
		usr, ok := arg.(user.User)
		if !ok {
			reported = append(reported, arg)
			continue
		}
		if !personSet {
			rollbar.SetPerson(usr.ID, usr.Username, usr.Email)
			personSet = true
		}
	}
	if !personSet {
		rollbar.ClearPerson()
	}
	return reported
}
