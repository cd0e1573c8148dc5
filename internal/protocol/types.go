// Package protocol implements the Handler whose methods satisfy the
// Model Context Protocol JSON-RPC envelope described in spec §6: tool
// listing, tool invocation, and resource listing/reading. The envelope
// framing itself (exact byte-level transport loop) is a thin
// collaborator; this package exposes the methods plus a minimal stdio
// line-reader and HTTP handler for local use.
package protocol

// Resource is one entry of a list_resources response.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// ListResourcesResult is the response shape for list_resources.
type ListResourcesResult struct {
	Resources  []Resource `json:"resources"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// TextResourceContents is one element of a read_resource response.
type TextResourceContents struct {
	URI  string         `json:"uri"`
	Text string         `json:"text"`
	Meta map[string]any `json:"meta,omitempty"`
}

// ReadResourceResult is the response shape for read_resource.
type ReadResourceResult struct {
	Contents []TextResourceContents `json:"contents"`
}

// ToolDescriptor describes one callable tool for list_tools.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// ListToolsResult is the response shape for list_tools.
type ListToolsResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// Content is one element of a call_tool response's content list. Only
// Text is populated; the protocol supports richer content kinds that
// this service never emits.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallToolResult is the response shape for call_tool.
type CallToolResult struct {
	Content          []Content      `json:"content"`
	StructuredContent any           `json:"structured_content,omitempty"`
	IsError          bool           `json:"is_error,omitempty"`
	Meta             map[string]any `json:"meta,omitempty"`
}

func textResult(structured any) CallToolResult {
	return CallToolResult{
		Content:            []Content{{Type: "text", Text: "ok"}},
		StructuredContent:  structured,
	}
}

func errorResult(message string) CallToolResult {
	return CallToolResult{
		Content: []Content{{Type: "text", Text: message}},
		IsError: true,
	}
}
