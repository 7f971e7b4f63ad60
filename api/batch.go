package api

import (
	"encoding/json"
	"net/http"

	"hermannm.dev/gaquery/batch"
	"hermannm.dev/gaquery/sink"
)

// Expects:
//   - body: JSON-encoded list of batch.Entry
//   - optional query parameter 'store=true': stores each result in a table named by the entry
//
// Returns:
//   - JSON object of result rows by entry name
func (api QueryAPI) Batch(res http.ResponseWriter, req *http.Request) {
	var entries []batch.Entry
	if err := json.NewDecoder(req.Body).Decode(&entries); err != nil {
		sendQueryError(res, asInvalidArgument(err), "failed to parse batch from request body")
		return
	}

	store := req.URL.Query().Get("store") == "true"
	if store && api.sink == nil {
		sendClientError(res, nil, "'store' was given, but no sink is configured")
		return
	}

	// Each request gets its own coordinator, so concurrent requests don't share batch state.
	results, err := api.client.NewBatch().Run(req.Context(), entries)
	if err != nil {
		sendQueryError(res, err, "failed to run batch")
		return
	}

	if store {
		if err := sink.StoreAll(req.Context(), api.sink, api.config.TablePrefix, results); err != nil {
			sendServerError(res, err, "failed to store batch results")
			return
		}
	}

	sendJSON(res, results)
}
