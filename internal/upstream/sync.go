package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// upsertBody is the write payload for both the create and update branches.
type upsertBody struct {
	Data struct {
		Type       string `json:"type"`
		ID         string `json:"id,omitempty"`
		Attributes struct {
			Value string `json:"value"`
		} `json:"attributes"`
		Relationships *upsertRelationships `json:"relationships,omitempty"`
	} `json:"data"`
}

type upsertRelationships struct {
	FieldDefinition struct {
		Data resourceIdentifier `json:"data"`
	} `json:"field_definition"`
}

// UpsertField sets one field value for a person, creating the field datum if
// none exists for the resolved definition and updating it in place otherwise.
// The sequence is: fetch the person's snapshot, resolve the definition (fast
// path through the snapshot), then create or update based on point-in-time
// existence. Upserts for the same (person, field) pair are serialized locally
// so concurrent first-time writes cannot both create. Repeating the call with
// the same value converges to the same stored state.
func (c *Client) UpsertField(ctx context.Context, personID, fieldName, value string) error {
	unlock := c.upserts.lock(personID + "\x00" + fieldName)
	defer unlock()

	snapshot, err := c.PersonFieldData(ctx, personID)
	if err != nil {
		return err
	}

	def, err := c.FindFieldDefinition(ctx, fieldName, snapshot)
	if err != nil {
		return err
	}

	if datum, ok := snapshot.DatumFor(def.ID); ok {
		return c.updateFieldDatum(ctx, datum.ID, value)
	}
	return c.createFieldDatum(ctx, personID, def.ID, value)
}

// updateFieldDatum issues a governed partial update keyed by the datum id.
func (c *Client) updateFieldDatum(ctx context.Context, datumID, value string) error {
	var body upsertBody
	body.Data.Type = typeFieldDatum
	body.Data.ID = datumID
	body.Data.Attributes.Value = value

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling field update: %w", err)
	}

	u := fmt.Sprintf("%s/field_data/%s", c.baseURL, url.PathEscape(datumID))
	res, err := c.write(ctx, http.MethodPatch, u, payload)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return newTransportError(res.StatusCode, res.Body)
	}
	c.logger.Debug("field datum updated", "datum_id", datumID)
	return nil
}

// createFieldDatum issues a governed create scoped to the person and the
// resolved definition id.
func (c *Client) createFieldDatum(ctx context.Context, personID, definitionID, value string) error {
	var body upsertBody
	body.Data.Type = typeFieldDatum
	body.Data.Attributes.Value = value
	body.Data.Relationships = &upsertRelationships{}
	body.Data.Relationships.FieldDefinition.Data = resourceIdentifier{
		Type: typeFieldDefinition,
		ID:   definitionID,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling field create: %w", err)
	}

	u := fmt.Sprintf("%s/people/%s/field_data", c.baseURL, url.PathEscape(personID))
	res, err := c.write(ctx, http.MethodPost, u, payload)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return newTransportError(res.StatusCode, res.Body)
	}
	c.logger.Debug("field datum created", "person_id", personID, "definition_id", definitionID)
	return nil
}
