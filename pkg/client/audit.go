package client

import "context"

// AuditLogs: el paciente ve su historial; el médico, lo que hizo él.
func (c *Client) AuditLogs(ctx context.Context, page, size int) (Page[AuditEntry], error) {
	var out Page[AuditEntry]
	if err := c.getJSON(ctx, withQuery("/api/audit-logs", pageQuery(page, size)), &out); err != nil {
		return Page[AuditEntry]{}, err
	}
	return out, nil
}
