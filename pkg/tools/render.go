package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/frousselet/unifi-mcp/pkg/adapter"
	"github.com/frousselet/unifi-mcp/pkg/fleet"
	"github.com/frousselet/unifi-mcp/pkg/network"
)

// reply is what a tool handler produces on success. kind is the variant of
// the last adapter result, kept for the audit trail.
type reply struct {
	content []mcp.Content
	kind    adapter.ResultKind
}

func textReply(kind adapter.ResultKind, text string) reply {
	return reply{content: []mcp.Content{&mcp.TextContent{Text: text}}, kind: kind}
}

// render turns one adapter result into tool content. ack is the sentence used
// when the backend acknowledged without a body.
func render(res adapter.Result, ack string) reply {
	switch res.Kind {
	case adapter.KindAcknowledged:
		return textReply(res.Kind, ack)
	case adapter.KindBytes:
		if strings.HasPrefix(res.ContentType, "image/") {
			return reply{
				content: []mcp.Content{&mcp.ImageContent{Data: res.Bytes, MIMEType: res.ContentType}},
				kind:    res.Kind,
			}
		}
		ct := res.ContentType
		if ct == "" {
			ct = "unknown content type"
		}
		return textReply(res.Kind, fmt.Sprintf("Received %d bytes (%s).", len(res.Bytes), ct))
	case adapter.KindList:
		return textReply(res.Kind, listText(res))
	default:
		return textReply(res.Kind, indentJSON(res.Data))
	}
}

// sections joins several results under markdown headings, as composite tools
// (config plus status, device plus statistics) report them.
type section struct {
	title string
	res   adapter.Result
	ack   string
}

func renderSections(parts ...section) reply {
	var b strings.Builder
	var kind adapter.ResultKind
	for i, p := range parts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if p.title != "" {
			fmt.Fprintf(&b, "## %s\n\n", p.title)
		}
		r := render(p.res, p.ack)
		for _, c := range r.content {
			if tc, ok := c.(*mcp.TextContent); ok {
				b.WriteString(tc.Text)
			}
		}
		kind = r.kind
	}
	return textReply(kind, b.String())
}

func listText(res adapter.Result) string {
	items, err := res.Items()
	if err != nil {
		return indentJSON(res.Data)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d item(s).\n\n", len(items))
	b.WriteString(indentJSON(res.Data))
	if hint := pageHint(res.Page); hint != "" {
		b.WriteString("\n\n---\n")
		b.WriteString(hint)
	}
	return b.String()
}

// pageHint tells the agent how to fetch the next page in the backend's own
// pagination idiom.
func pageHint(p adapter.PageState) string {
	switch p := p.(type) {
	case fleet.Cursor:
		if p.HasMore() {
			return fmt.Sprintf("More results available. Use next_token=%q to get the next page.", p.NextToken)
		}
	case network.Window:
		if p.HasMore() {
			return fmt.Sprintf("%d of %d shown. Use offset=%d to get the next page.",
				p.Count, p.TotalCount, p.NextOffset())
		}
	}
	return ""
}

func indentJSON(data json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}

// errorText renders a failed call the way agents see it:
//
//	Error <status>: <message>
//	Trace ID: <id>
func errorText(err error) string {
	e, ok := adapter.AsError(err)
	if !ok {
		return "Error: " + err.Error()
	}
	s := fmt.Sprintf("Error %d: %s", e.StatusCode, e.Message)
	if e.TraceID != "" {
		s += "\nTrace ID: " + e.TraceID
	}
	return s
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: errorText(err)}},
		IsError: true,
	}
}
