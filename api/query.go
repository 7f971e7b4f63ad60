package api

import (
	"encoding/json"
	"net/http"

	"hermannm.dev/gaquery/query"
	"hermannm.dev/gaquery/sink"
)

// Expects:
//   - body: JSON-encoded query.Params
//   - optional query parameter 'table': name of table to store result rows in
//
// Returns:
//   - JSON-encoded list of result rows
func (api QueryAPI) Query(res http.ResponseWriter, req *http.Request) {
	var params query.Params
	if err := json.NewDecoder(req.Body).Decode(&params); err != nil {
		sendQueryError(res, asInvalidArgument(err), "failed to parse query from request body")
		return
	}

	table := req.URL.Query().Get("table")
	if table != "" {
		if api.sink == nil {
			sendClientError(res, nil, "'table' was given, but no sink is configured")
			return
		}
		if err := sink.ValidateTableName(api.config.TablePrefix + table); err != nil {
			sendClientError(res, err, "")
			return
		}
	}

	rows, err := api.client.Query(req.Context(), params)
	if err != nil {
		sendQueryError(res, err, "failed to run query")
		return
	}

	if table != "" {
		if err := sink.Store(req.Context(), api.sink, api.config.TablePrefix+table, rows); err != nil {
			sendServerError(res, err, "failed to store query result")
			return
		}
	}

	sendJSON(res, rows)
}

// Decoding errors from the custom unmarshalers are already classified.
func asInvalidArgument(err error) error {
	if _, ok := query.KindOf(err); ok {
		return err
	}
	return query.WrapError(err, query.InvalidArgument, "invalid JSON")
}
