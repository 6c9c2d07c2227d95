package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
)

// Extra holds JSON members an entity does not recognise. They are kept
// verbatim so that documents written by newer versions survive a round trip.
type Extra map[string]json.RawMessage

// Clone returns a deep copy of the bag.
func (e Extra) Clone() Extra {
	if e == nil {
		return nil
	}
	out := make(Extra, len(e))
	for k, v := range e {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

type (
	profileJSON Profile
	brandJSON   Brand
	sizeJSON    Size
)

var knownFieldCache sync.Map // reflect.Type -> map[string]struct{}

func knownFields(t reflect.Type, legacy ...string) map[string]struct{} {
	if cached, ok := knownFieldCache.Load(t); ok {
		return cached.(map[string]struct{})
	}
	fields := make(map[string]struct{}, t.NumField()+len(legacy))
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" {
			continue
		}
		fields[name] = struct{}{}
	}
	for _, name := range legacy {
		fields[name] = struct{}{}
	}
	knownFieldCache.Store(t, fields)
	return fields
}

func splitExtra(data []byte, known map[string]struct{}) (Extra, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	var extra Extra
	for k, v := range members {
		if _, ok := known[k]; ok {
			continue
		}
		if extra == nil {
			extra = make(Extra)
		}
		extra[k] = append(json.RawMessage(nil), v...)
	}
	return extra, nil
}

func marshalWithExtra(v any, extra Extra) ([]byte, error) {
	base, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return base, err
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(base, &members); err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, taken := members[k]; taken {
			continue
		}
		members[k] = raw
	}
	return json.Marshal(members)
}

// MarshalJSON encodes the profile including preserved unknown members.
func (p Profile) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(profileJSON(p), p.Extra)
}

// UnmarshalJSON decodes a profile, normalizing the legacy isChild flag into
// Type when the record predates the enum.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var wire struct {
		profileJSON
		IsChild *bool `json:"isChild"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	extra, err := splitExtra(data, knownFields(reflect.TypeOf(profileJSON{}), "isChild"))
	if err != nil {
		return err
	}
	*p = Profile(wire.profileJSON)
	p.Extra = extra
	if p.Type == "" {
		p.Type = DefaultProfileType
		if wire.IsChild != nil && *wire.IsChild {
			p.Type = ProfileTypeChild
		}
	}
	return nil
}

// MarshalJSON encodes the brand including preserved unknown members.
func (b Brand) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(brandJSON(b), b.Extra)
}

// UnmarshalJSON decodes a brand, keeping unknown members in Extra.
func (b *Brand) UnmarshalJSON(data []byte) error {
	var wire brandJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	extra, err := splitExtra(data, knownFields(reflect.TypeOf(brandJSON{})))
	if err != nil {
		return err
	}
	*b = Brand(wire)
	b.Extra = extra
	return nil
}

// MarshalJSON encodes the size including preserved unknown members.
func (s Size) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(sizeJSON(s), s.Extra)
}

// UnmarshalJSON decodes a size, keeping unknown members in Extra.
func (s *Size) UnmarshalJSON(data []byte) error {
	var wire sizeJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	extra, err := splitExtra(data, knownFields(reflect.TypeOf(sizeJSON{})))
	if err != nil {
		return err
	}
	*s = Size(wire)
	s.Extra = extra
	return nil
}
