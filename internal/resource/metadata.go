package resource

import (
	"encoding/json"
	"strconv"
)

// Metadata is the JSON document minted alongside an NFT. Known fields are
// typed; anything else, including a known field of an unexpected type, is
// kept verbatim in Extra.
type Metadata struct {
	LocalID     uint64
	Name        string
	Description string
	Image       string
	Attributes  json.RawMessage
	Extra       map[string]json.RawMessage

	hasLocalID bool
}

// MarshalJSON writes Extra overlaid with the set known fields. localId is
// a JSON number unless the file supplied one that is not an id.
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Extra)+5)
	for k, v := range m.Extra {
		out[k] = v
	}
	if _, raw := m.Extra["localId"]; m.hasLocalID || !raw {
		out["localId"] = json.RawMessage(strconv.FormatUint(m.LocalID, 10))
	}
	for k, v := range map[string]string{"name": m.Name, "description": m.Description, "image": m.Image} {
		if v == "" {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[k] = b
	}
	if len(m.Attributes) > 0 {
		out["attributes"] = m.Attributes
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a metadata object. localId, when present, may be a
// number or a decimal string and overrides the file's own id.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*m = Metadata{}
	for k, v := range fields {
		var err error
		switch k {
		case "localId":
			m.LocalID, err = parseLocalID(v)
			m.hasLocalID = err == nil
		case "name":
			err = json.Unmarshal(v, &m.Name)
		case "description":
			err = json.Unmarshal(v, &m.Description)
		case "image":
			err = json.Unmarshal(v, &m.Image)
		case "attributes":
			m.Attributes = v
		default:
			m.keep(k, v)
		}
		if err != nil {
			m.keep(k, v)
		}
	}
	return nil
}

func (m *Metadata) keep(k string, v json.RawMessage) {
	if m.Extra == nil {
		m.Extra = make(map[string]json.RawMessage)
	}
	m.Extra[k] = v
}

func parseLocalID(raw json.RawMessage) (uint64, error) {
	s := string(raw)
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
	}
	return strconv.ParseUint(s, 10, 64)
}
