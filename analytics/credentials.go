package analytics

import (
	"context"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	ga "google.golang.org/api/analytics/v3"
	"hermannm.dev/gaquery/query"
	"hermannm.dev/wrap"
)

// Loads a service account key and fetches an initial access token.
//
// The key file is either a JSON key as downloaded from the Google Cloud console, or a PEM-encoded
// private key. Legacy .p12 keys must be converted to PEM first:
//
//	openssl pkcs12 -in key.p12 -nodes -nocerts > key.pem
func authenticate(
	ctx context.Context,
	serviceAccountEmail string,
	keyFile string,
) (oauth2.TokenSource, error) {
	tokenSource, err := loadTokenSource(ctx, serviceAccountEmail, keyFile)
	if err != nil {
		return nil, query.WrapError(err, query.AuthFailure, "failed to load service account credentials")
	}

	if _, err := tokenSource.Token(); err != nil {
		return nil, query.WrapError(
			err,
			query.AuthFailure,
			"failed to get access token for service account",
		)
	}

	return tokenSource, nil
}

func loadTokenSource(
	ctx context.Context,
	serviceAccountEmail string,
	keyFile string,
) (oauth2.TokenSource, error) {
	key, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to read key file '%s'", keyFile)
	}

	if json.Valid(key) {
		config, err := google.JWTConfigFromJSON(key, ga.AnalyticsReadonlyScope)
		if err != nil {
			return nil, wrap.Error(err, "failed to parse JSON key file")
		}

		if serviceAccountEmail != "" && config.Email != serviceAccountEmail {
			return nil, fmt.Errorf(
				"key file belongs to '%s', not the configured service account '%s'",
				config.Email,
				serviceAccountEmail,
			)
		}

		return config.TokenSource(ctx), nil
	}

	if block, _ := pem.Decode(key); block == nil {
		return nil, fmt.Errorf(
			"key file '%s' is neither a JSON service account key nor a PEM private key",
			keyFile,
		)
	}
	if serviceAccountEmail == "" {
		return nil, fmt.Errorf("service account email is required for PEM key file '%s'", keyFile)
	}

	config := &jwt.Config{
		Email:      serviceAccountEmail,
		PrivateKey: key,
		Scopes:     []string{ga.AnalyticsReadonlyScope},
		TokenURL:   google.JWTTokenURL,
	}
	return config.TokenSource(ctx), nil
}
