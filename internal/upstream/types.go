package upstream

import (
	"encoding/json"
	"fmt"
)

// Resource type names used by the people service.
const (
	typeFieldDatum      = "FieldDatum"
	typeFieldDefinition = "FieldDefinition"
)

// FieldDefinition identifies an upstream custom-attribute schema entry: a
// human-readable display name bound to the service's opaque definition id.
type FieldDefinition struct {
	ID   string
	Name string
}

// FieldDatum is one stored value binding a person to a field definition.
type FieldDatum struct {
	ID           string
	Value        string
	DefinitionID string
}

// FieldData is a person-scoped snapshot: the person's field values plus the
// field-definition resources the service included alongside them.
type FieldData struct {
	Data        []FieldDatum
	Definitions []FieldDefinition
}

// DatumFor returns the datum whose relationship points at definitionID.
func (s *FieldData) DatumFor(definitionID string) (FieldDatum, bool) {
	for _, d := range s.Data {
		if d.DefinitionID == definitionID {
			return d, true
		}
	}
	return FieldDatum{}, false
}

// DefinitionNamed returns the included definition with an exact name match.
func (s *FieldData) DefinitionNamed(name string) (FieldDefinition, bool) {
	for _, def := range s.Definitions {
		if def.Name == name {
			return def, true
		}
	}
	return FieldDefinition{}, false
}

// ValueOf returns the person's current value for a field display name, if
// both the definition and a datum for it are present in the snapshot.
func (s *FieldData) ValueOf(name string) (string, bool) {
	def, ok := s.DefinitionNamed(name)
	if !ok {
		return "", false
	}
	d, ok := s.DatumFor(def.ID)
	if !ok {
		return "", false
	}
	return d.Value, true
}

// Wire shapes. The service speaks a JSON:API dialect: typed resources with
// attributes, relationships, optional included resources, and a links.next
// pagination cursor.

type resourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type documentLinks struct {
	Next string `json:"next"`
}

type fieldDatumResource struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes struct {
		Value string `json:"value"`
	} `json:"attributes"`
	Relationships struct {
		FieldDefinition struct {
			Data resourceIdentifier `json:"data"`
		} `json:"field_definition"`
	} `json:"relationships"`
}

type fieldDefinitionResource struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes struct {
		Name string `json:"name"`
	} `json:"attributes"`
}

type fieldDataDocument struct {
	Data     []fieldDatumResource      `json:"data"`
	Included []fieldDefinitionResource `json:"included"`
}

type fieldDefinitionsDocument struct {
	Data  []fieldDefinitionResource `json:"data"`
	Links documentLinks             `json:"links"`
}

// parseFieldData decodes a person-scoped field-data document.
func parseFieldData(body []byte) (*FieldData, error) {
	var doc fieldDataDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parsing field data response: %w", err)
	}
	snap := &FieldData{
		Data:        make([]FieldDatum, 0, len(doc.Data)),
		Definitions: make([]FieldDefinition, 0, len(doc.Included)),
	}
	for _, r := range doc.Data {
		snap.Data = append(snap.Data, FieldDatum{
			ID:           r.ID,
			Value:        r.Attributes.Value,
			DefinitionID: r.Relationships.FieldDefinition.Data.ID,
		})
	}
	for _, r := range doc.Included {
		if r.Type != "" && r.Type != typeFieldDefinition {
			continue
		}
		snap.Definitions = append(snap.Definitions, FieldDefinition{
			ID:   r.ID,
			Name: r.Attributes.Name,
		})
	}
	return snap, nil
}

// parseFieldDefinitionsPage decodes one catalog page and its next cursor.
func parseFieldDefinitionsPage(body []byte) ([]FieldDefinition, string, error) {
	var doc fieldDefinitionsDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, "", fmt.Errorf("parsing field definitions page: %w", err)
	}
	defs := make([]FieldDefinition, 0, len(doc.Data))
	for _, r := range doc.Data {
		defs = append(defs, FieldDefinition{ID: r.ID, Name: r.Attributes.Name})
	}
	return defs, doc.Links.Next, nil
}
