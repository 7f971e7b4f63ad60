package query

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMetrics   = "ga:sessions"
	DefaultStartDate = "30daysAgo"
	DefaultEndDate   = "today"
)

// Params are the human-written parameters of a query, before translation to a Request.
type Params struct {
	ProfileID ProfileID `json:"profileId" yaml:"profileId"`
	// Defaults to DefaultMetrics if empty.
	Metrics List `json:"metrics" yaml:"metrics"`
	// Absolute (YYYY-MM-DD) or relative (today, yesterday, NdaysAgo). Defaults to
	// DefaultStartDate if empty.
	StartDate string `json:"startDate" yaml:"startDate"`
	// Defaults to DefaultEndDate if empty.
	EndDate string  `json:"endDate" yaml:"endDate"`
	Options Options `json:"options" yaml:"options"`
}

type Options struct {
	// Raw filter expression, translated by filter.Normalize.
	Filters    string `json:"filters,omitempty" yaml:"filters,omitempty"`
	Dimensions List   `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	// Forwarded verbatim to the reporting service as query parameters (e.g. "sort",
	// "max-results", "segment", "samplingLevel").
	Extra map[string]string `json:"-" yaml:"-"`
}

const profileIDRequirement = "Profile ID needs to be set and should be a string e.g. ga:86055307"

// ProfileID only decodes from strings: a number or any other JSON/YAML type gives an
// InvalidArgument error.
type ProfileID string

func (profileID *ProfileID) UnmarshalJSON(bytes []byte) error {
	var value any
	if err := json.Unmarshal(bytes, &value); err != nil {
		return WrapError(err, InvalidArgument, "failed to parse profile ID")
	}

	stringValue, ok := value.(string)
	if !ok {
		return NewErrorf(InvalidArgument, "%s (got %s)", profileIDRequirement, string(bytes))
	}

	*profileID = ProfileID(stringValue)
	return nil
}

func (profileID *ProfileID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode || node.ShortTag() != "!!str" {
		return NewErrorf(InvalidArgument, "%s (got %s)", profileIDRequirement, node.ShortTag())
	}

	*profileID = ProfileID(node.Value)
	return nil
}

// A List of metric or dimension names. Decodes from either a list of strings or a single
// comma-separated string.
type List []string

func (list List) Join() string {
	return strings.Join(list, ",")
}

func (list *List) UnmarshalJSON(bytes []byte) error {
	var single string
	if err := json.Unmarshal(bytes, &single); err == nil {
		*list = splitList(single)
		return nil
	}

	var multiple []string
	if err := json.Unmarshal(bytes, &multiple); err != nil {
		return NewErrorf(
			InvalidArgument,
			"expected string or list of strings, got %s",
			string(bytes),
		)
	}

	*list = multiple
	return nil
}

func (list *List) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*list = splitList(node.Value)
		return nil
	case yaml.SequenceNode:
		var multiple []string
		if err := node.Decode(&multiple); err != nil {
			return WrapError(err, InvalidArgument, "failed to parse list")
		}
		*list = multiple
		return nil
	default:
		return NewError(InvalidArgument, "expected string or list of strings")
	}
}

func splitList(joined string) List {
	if joined == "" {
		return nil
	}

	parts := strings.Split(joined, ",")
	list := make(List, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	return list
}

// Options decode from an object with the recognized keys "filters" and "dimensions". Any other key
// goes into Extra.
func (options *Options) UnmarshalJSON(bytes []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(bytes, &fields); err != nil {
		return WrapError(err, InvalidArgument, "failed to parse query options")
	}

	for key, rawValue := range fields {
		switch key {
		case "filters":
			if err := json.Unmarshal(rawValue, &options.Filters); err != nil {
				return WrapError(err, InvalidArgument, "filters must be a string")
			}
		case "dimensions":
			if err := json.Unmarshal(rawValue, &options.Dimensions); err != nil {
				return err
			}
		default:
			var value any
			if err := json.Unmarshal(rawValue, &value); err != nil {
				return WrapError(err, InvalidArgument, "failed to parse query option")
			}
			options.setExtra(key, value)
		}
	}

	return nil
}

func (options Options) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(options.Extra)+2)
	for key, value := range options.Extra {
		fields[key] = value
	}
	if options.Filters != "" {
		fields["filters"] = options.Filters
	}
	if len(options.Dimensions) != 0 {
		fields["dimensions"] = options.Dimensions
	}
	return json.Marshal(fields)
}

func (options *Options) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return NewError(InvalidArgument, "query options must be a mapping")
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, valueNode := node.Content[i].Value, node.Content[i+1]

		switch key {
		case "filters":
			if err := valueNode.Decode(&options.Filters); err != nil {
				return WrapError(err, InvalidArgument, "filters must be a string")
			}
		case "dimensions":
			if err := valueNode.Decode(&options.Dimensions); err != nil {
				return err
			}
		default:
			var value any
			if err := valueNode.Decode(&value); err != nil {
				return WrapError(err, InvalidArgument, "failed to parse query option")
			}
			options.setExtra(key, value)
		}
	}

	return nil
}

func (options *Options) setExtra(key string, value any) {
	if options.Extra == nil {
		options.Extra = make(map[string]string)
	}

	switch value := value.(type) {
	case string:
		options.Extra[key] = value
	case float64:
		// JSON numbers decode to float64, but parameters like max-results must be integers
		options.Extra[key] = strconv.FormatFloat(value, 'f', -1, 64)
	default:
		options.Extra[key] = fmt.Sprint(value)
	}
}
