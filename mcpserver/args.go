package mcpserver

import (
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/petal-labs/cdpmcp/tool"
)

func invalidArgument(format string, args ...any) error {
	return tool.NewToolError(tool.ToolErrorCodeInvalidRequest, fmt.Sprintf(format, args...), tool.ErrInvalidRequest)
}

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	value, ok := request.GetArguments()[key]
	if !ok || value == nil {
		return "", invalidArgument("argument %q is required", key)
	}
	s, ok := value.(string)
	if !ok {
		return "", invalidArgument("argument %q must be a string", key)
	}
	return s, nil
}

func optionalString(request mcp.CallToolRequest, key string) (string, error) {
	value, ok := request.GetArguments()[key]
	if !ok || value == nil {
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", invalidArgument("argument %q must be a string", key)
	}
	return s, nil
}

// stringList decodes an array argument whose elements must all be strings. Elements are
// never trimmed or split.
func stringList(request mcp.CallToolRequest, key string) ([]string, error) {
	value, ok := request.GetArguments()[key]
	if !ok || value == nil {
		return nil, invalidArgument("argument %q is required", key)
	}
	switch items := value.(type) {
	case []string:
		return items, nil
	case []any:
		out := make([]string, 0, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, invalidArgument("argument %q element %d must be a string, got %T", key, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, invalidArgument("argument %q must be an array of strings", key)
	}
}

// optionalInt accepts any whole number. The value is not range-checked; the program that
// receives it decides what is valid.
func optionalInt(request mcp.CallToolRequest, key string, fallback int) (int, error) {
	value, ok := request.GetArguments()[key]
	if !ok || value == nil {
		return fallback, nil
	}
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	default:
		return 0, invalidArgument("argument %q must be a number", key)
	}
	if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
		return 0, invalidArgument("argument %q must be an integer", key)
	}
	return int(n), nil
}

func optionalBool(request mcp.CallToolRequest, key string) (bool, error) {
	value, ok := request.GetArguments()[key]
	if !ok || value == nil {
		return false, nil
	}
	b, ok := value.(bool)
	if !ok {
		return false, invalidArgument("argument %q must be a boolean", key)
	}
	return b, nil
}
