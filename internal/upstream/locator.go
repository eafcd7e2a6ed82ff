package upstream

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// FindFieldDefinition resolves a field display name to its opaque definition
// id. When a person-scoped snapshot is supplied and already includes a
// definition with an exact name match, that wins with zero extra calls.
// Otherwise the full definition catalog is scanned page by page through the
// governor, following the links.next cursor until absent. A miss returns
// FieldNotFoundError: the field does not exist upstream yet, which is not a
// transient condition.
func (c *Client) FindFieldDefinition(ctx context.Context, name string, snapshot *FieldData) (FieldDefinition, error) {
	if snapshot != nil {
		if def, ok := snapshot.DefinitionNamed(name); ok {
			return def, nil
		}
	}

	defs, err := c.allFieldDefinitions(ctx)
	if err != nil {
		return FieldDefinition{}, err
	}
	for _, def := range defs {
		if def.Name == name {
			return def, nil
		}
	}
	return FieldDefinition{}, &FieldNotFoundError{Name: name}
}

// allFieldDefinitions accumulates every catalog page. O(total definitions);
// only reached on a snapshot miss.
func (c *Client) allFieldDefinitions(ctx context.Context) ([]FieldDefinition, error) {
	var defs []FieldDefinition
	next := fmt.Sprintf("%s/field_definitions?per_page=%d", c.baseURL, c.perPage)
	for next != "" {
		res, err := c.get(ctx, c.absoluteURL(next))
		if err != nil {
			return nil, err
		}
		if res.StatusCode != http.StatusOK {
			return nil, newTransportError(res.StatusCode, res.Body)
		}
		page, cursor, err := parseFieldDefinitionsPage(res.Body)
		if err != nil {
			return nil, err
		}
		defs = append(defs, page...)
		next = cursor
	}
	return defs, nil
}

// absoluteURL resolves a links.next value, which some deployments return as
// a path rather than a full URL.
func (c *Client) absoluteURL(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return c.baseURL + "/" + strings.TrimLeft(u, "/")
}
