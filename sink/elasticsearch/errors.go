package elasticsearch

import (
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"hermannm.dev/wrap"
)

func wrapElasticError(wrapped error, message string) error {
	return wrap.Error(formatElasticError(wrapped), message)
}

func wrapElasticErrorf(wrapped error, format string, args ...any) error {
	return wrap.Errorf(formatElasticError(wrapped), format, args...)
}

func formatElasticError(err error) error {
	elasticErr, ok := err.(*types.ElasticsearchError)
	if !ok {
		return err
	}

	return formatErrorCause(elasticErr.ErrorCause, elasticErr.Status)
}

func formatErrorCause(cause types.ErrorCause, status int) error {
	var errMessage string
	if cause.Reason == nil {
		errMessage = fmt.Sprintf("%s (status %d)", cause.Type, status)
	} else {
		errMessage = fmt.Sprintf("%s (%s, status %d)", *cause.Reason, cause.Type, status)
	}

	rootCause := make([]error, len(cause.RootCause))
	for i, cause := range cause.RootCause {
		if cause.Reason == nil {
			rootCause[i] = errors.New(cause.Type)
		} else {
			rootCause[i] = fmt.Errorf("%s (%s)", *cause.Reason, cause.Type)
		}
	}

	if len(rootCause) == 0 {
		return errors.New(errMessage)
	} else {
		return wrap.Errors(errMessage, rootCause...)
	}
}
