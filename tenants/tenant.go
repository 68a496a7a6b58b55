package tenants

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Tenant is an organization the authenticated principal belongs to.
// API resources are partitioned by tenant.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain,omitempty"`
	Role      string    `json:"role,omitempty"`       // The principal's role within the tenant
	IsDefault bool      `json:"is_default,omitempty"` // Preferred when no selection was persisted
	JoinedAt  time.Time `json:"joined_at"`
}

type tenantEnvelope struct {
	Organizations []Tenant `json:"organizations"`
}

// DecodeTenants accepts a bare array or an {"organizations": [...]} envelope
func DecodeTenants(body []byte) ([]Tenant, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty tenant list response")
	}

	if trimmed[0] == '[' {
		var list []Tenant
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("failed to decode tenant list: %w", err)
		}
		return list, nil
	}

	var envelope tenantEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode tenant list: %w", err)
	}
	return envelope.Organizations, nil
}

// defaultSelection keeps a persisted selection still present in the set, else the
// tenant flagged default, else the first. An empty set selects nothing.
func defaultSelection(list []Tenant, persisted string) string {
	if persisted != "" {
		for _, t := range list {
			if t.ID == persisted {
				return persisted
			}
		}
	}
	for _, t := range list {
		if t.IsDefault {
			return t.ID
		}
	}
	if len(list) > 0 {
		return list[0].ID
	}
	return ""
}
