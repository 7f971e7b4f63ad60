package analytics

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"hermannm.dev/gaquery/query"
	"hermannm.dev/wrap"
)

func wrapAPIError(wrapped error, message string) error {
	return wrap.Error(formatAPIError(wrapped), message)
}

// Turns errors from the reporting API into readable errors, and classifies rejected credentials
// as AuthFailure.
func formatAPIError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	errMessage := fmt.Sprintf("%s (status %d)", apiErr.Message, apiErr.Code)
	if apiErr.Message == "" {
		errMessage = fmt.Sprintf("status %d", apiErr.Code)
	}

	causes := make([]error, 0, len(apiErr.Errors))
	for _, item := range apiErr.Errors {
		if item.Message == "" || item.Message == apiErr.Message {
			continue
		}
		causes = append(causes, fmt.Errorf("%s (%s)", item.Message, item.Reason))
	}

	var formatted error
	if len(causes) == 0 {
		formatted = errors.New(errMessage)
	} else {
		formatted = wrap.Errors(errMessage, causes...)
	}

	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return query.WrapError(formatted, query.AuthFailure, "reporting API rejected credentials")
	default:
		return formatted
	}
}
