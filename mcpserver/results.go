package mcpserver

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/petal-labs/cdpmcp/tool"
)

const errorCodeInternal = "INTERNAL"

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult reports an adapter failure as an isError tool result.
func errorResult(err error) *mcp.CallToolResult {
	body := errorBody{Code: errorCodeInternal, Message: err.Error()}
	if toolErr, ok := tool.AsToolError(err); ok {
		body.Code = toolErr.Code
		body.Message = toolErr.Message
		body.Details = toolErr.Details
	}
	data, marshalErr := json.Marshal(body)
	if marshalErr != nil {
		data, _ = json.Marshal(errorBody{Code: body.Code, Message: body.Message})
	}
	return mcp.NewToolResultError(string(data))
}
