package api

import (
	"encoding/json"
	"net/http"

	"hermannm.dev/gaquery/filter"
)

type FilterRequest struct {
	Filter string `json:"filter"`
}

type FilterResponse struct {
	Filter string `json:"filter"`

	// False if the filter normalized to nothing, in which case no filter would be sent.
	Present bool                 `json:"present"`
	Stages  []filter.StageOutput `json:"stages,omitempty"`
}

// Expects:
//   - body: JSON-encoded FilterRequest
//   - optional query parameter 'trace=true': includes the output of each normalization stage
//
// Returns:
//   - JSON-encoded FilterResponse
func (api QueryAPI) Filter(res http.ResponseWriter, req *http.Request) {
	var body FilterRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		sendClientError(res, err, "failed to parse filter from request body")
		return
	}

	var response FilterResponse
	response.Filter, response.Present = filter.Normalize(body.Filter)
	if req.URL.Query().Get("trace") == "true" {
		response.Stages = filter.Trace(body.Filter)
	}

	sendJSON(res, response)
}
