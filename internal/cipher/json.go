package cipher

import "encoding/json"

type jsonField struct {
	Name  *string   `json:"name,omitempty"`
	Value *string   `json:"value,omitempty"`
	Type  FieldType `json:"type"`
}

// MarshalJSON renders the pretty-printable wire form used by `get --raw`.
// The `data` key is shaped per variant; SecureNote serializes as `{}`.
func (c DecryptedCipher) MarshalJSON() ([]byte, error) {
	var data any
	switch c.Kind {
	case KindLogin:
		data = c.Login
	case KindCard:
		data = c.Card
	case KindIdentity:
		data = c.Identity
	default:
		data = struct{}{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	fields := make([]jsonField, len(c.Fields))
	for i, f := range c.Fields {
		fields[i] = jsonField{Name: f.Name, Value: f.Value, Type: f.Type}
	}

	env := struct {
		ID      string          `json:"id"`
		Folder  *string         `json:"folder,omitempty"`
		Name    string          `json:"name"`
		Data    json.RawMessage `json:"data"`
		Fields  []jsonField     `json:"fields,omitempty"`
		Notes   *string         `json:"notes,omitempty"`
		History []HistoryEntry  `json:"history,omitempty"`
	}{
		ID:      c.ID,
		Folder:  c.Folder,
		Name:    c.Name,
		Data:    raw,
		Fields:  fields,
		Notes:   c.Notes,
		History: c.History,
	}
	return json.Marshal(env)
}
