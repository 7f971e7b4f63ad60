package api

import (
	"encoding/json"
	"net/http"

	"hermannm.dev/gaquery/datatypes"
	"hermannm.dev/gaquery/query"
)

// Expects:
//   - body: JSON-encoded query.Params
//
// Returns:
//   - JSON-encoded datatypes.Schema of the query's result rows, as they would be stored
func (api QueryAPI) Schema(res http.ResponseWriter, req *http.Request) {
	var params query.Params
	if err := json.NewDecoder(req.Body).Decode(&params); err != nil {
		sendQueryError(res, asInvalidArgument(err), "failed to parse query from request body")
		return
	}

	rows, err := api.client.Query(req.Context(), params)
	if err != nil {
		sendQueryError(res, err, "failed to run query")
		return
	}

	schema, err := datatypes.DeduceSchema(rows)
	if err != nil {
		sendServerError(res, err, "failed to deduce schema of query result")
		return
	}

	sendJSON(res, schema)
}
