package log

import (
	"time"

	"github.com/getsentry/sentry-go"
	sentrylogrus "github.com/getsentry/sentry-go/logrus"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const sentryFlushTimeout = 2 * time.Second

// InitSentry enables exception reporting for the given logger. Entries at
// error level and above are forwarded to Sentry. An empty DSN leaves
// reporting off and yields a nil hub, which every caller tolerates.
func InitSentry(logger *logrus.Logger, dsn, environment string) (*sentry.Hub, func(), error) {
	if dsn == "" {
		return nil, func() {}, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "error initializing sentry client")
	}

	logger.AddHook(sentrylogrus.NewLogHookFromClient([]logrus.Level{
		logrus.ErrorLevel,
		logrus.FatalLevel,
		logrus.PanicLevel,
	}, client))

	hub := sentry.NewHub(client, sentry.NewScope())
	flush := func() { hub.Flush(sentryFlushTimeout) }
	return hub, flush, nil
}
