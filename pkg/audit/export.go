package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ExportJSON writes the matching entries to w as a JSON array, newest first.
func (r *Reporter) ExportJSON(ctx context.Context, w io.Writer, criteria Criteria) error {
	entries, err := r.storage.Query(ctx, criteria)
	if err != nil {
		return fmt.Errorf("export json: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

var csvHeader = []string{
	"id", "principal_id", "tenant_id", "action", "description",
	"ip", "user_agent", "status", "error", "created_at",
	"request", "response",
}

// ExportCSV writes the matching entries to w as CSV with a header row.
// Payload maps are carried as JSON strings in the request and response
// columns; empty payloads leave the column blank.
func (r *Reporter) ExportCSV(ctx context.Context, w io.Writer, criteria Criteria) error {
	entries, err := r.storage.Query(ctx, criteria)
	if err != nil {
		return fmt.Errorf("export csv: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		var principalID, tenantID string
		if e.PrincipalID != nil {
			principalID = e.PrincipalID.String()
		}
		if e.TenantID != nil {
			tenantID = e.TenantID.String()
		}
		request, err := marshalPayload(e.Request)
		if err != nil {
			return fmt.Errorf("export csv: %w", err)
		}
		response, err := marshalPayload(e.Response)
		if err != nil {
			return fmt.Errorf("export csv: %w", err)
		}
		record := []string{
			e.ID.String(), principalID, tenantID, e.Action, e.Description,
			e.IP, e.UserAgent, string(e.Status), strings.ReplaceAll(e.Error, "\n", " "),
			e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			request, response,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func marshalPayload(payload map[string]any) (string, error) {
	if len(payload) == 0 {
		return "", nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
