package mongostore

import "errors"

var (
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")
	ErrInvalidConfig          = errors.New("invalid mongo config")
	ErrHealthcheckFailed      = errors.New("mongo healthcheck failed")
)
