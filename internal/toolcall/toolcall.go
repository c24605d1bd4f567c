// Package toolcall defines the structured tool the hosted model may invoke
// and validates the arguments it produces before they reach the job queue.
package toolcall

import (
	"errors"
	"fmt"
	"strings"
)

// EnqueueJobName is the function name the model uses to request a job.
const EnqueueJobName = "enqueue_job"

// Definition describes one callable tool in the chat-completions request.
type Definition struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function carries the name, description, and JSON schema of a tool.
type Function struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Call is a structured tool invocation extracted from a model response.
// Arguments holds the raw JSON argument payload as produced by the model.
type Call struct {
	Name      string
	Arguments string
}

// EnqueueJob returns the tool definition advertised to the model. The
// argument object is passed through as the job's parameter payload; the
// store never interprets its contents.
func EnqueueJob() Definition {
	return Definition{
		Type: "function",
		Function: Function{
			Name: EnqueueJobName,
			Description: "Record a background job for later processing. " +
				"Call this when the user asks for work that should run out of band. " +
				"Pass every detail the worker will need as properties of the argument object.",
			Parameters: map[string]any{
				"type":                 "object",
				"additionalProperties": true,
				"properties": map[string]any{
					"kind": map[string]any{
						"type":        "string",
						"description": "Short machine-readable category of the work.",
					},
				},
			},
		},
	}
}

// ParseEnqueueArguments validates and decodes the argument payload of an
// enqueue_job call into the job parameter map. Model output quirks (code
// fences, prose around the object) are tolerated; anything that does not
// decode to a JSON object with non-empty keys is rejected.
func ParseEnqueueArguments(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New("tool call: empty arguments")
	}

	var params map[string]any
	if err := DecodeLoose(trimmed, &params); err != nil {
		return nil, fmt.Errorf("tool call: decode arguments: %w", err)
	}
	for key := range params {
		if strings.TrimSpace(key) == "" {
			return nil, errors.New("tool call: empty parameter key")
		}
	}
	return params, nil
}

// Validate checks that a call names a known tool.
func (c Call) Validate() error {
	if c.Name != EnqueueJobName {
		return fmt.Errorf("tool call: unknown tool %q", c.Name)
	}
	return nil
}
