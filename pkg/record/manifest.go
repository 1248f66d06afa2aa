package record

import (
	"encoding/json"
	"slices"
)

// Defaults lists the dotted paths of manifest fields that were absent or
// malformed and fell back to their default value.
type Defaults []string

// Has reports whether field was defaulted.
func (d Defaults) Has(field string) bool {
	return slices.Contains(d, field)
}

type object map[string]json.RawMessage

// entryDecoder reads fields out of a raw manifest entry, recording every
// fallback it takes.
type entryDecoder struct {
	defaults Defaults
}

// FromManifest builds a record from one raw manifest entry. It never fails:
// fields that are absent or have an unexpected type take their default value
// and are listed in the returned Defaults.
//
// The rendered availability is the negation of the raw meta.available flag.
func FromManifest(name string, raw json.RawMessage) (*Record, Defaults) {
	d := &entryDecoder{}

	entry := d.object(asObject(raw), "", "")
	if entry == nil {
		d.defaults = append(d.defaults, "entry")
		entry = object{}
	}
	meta := d.object(entry, "meta", "meta")

	r := &Record{
		Name:             name,
		Version:          d.str(entry, "version", "version", Unknown),
		Description:      d.str(meta, "description", "meta.description", ""),
		LongDescription:  d.str(meta, "longDescription", "meta.longDescription", ""),
		Homepage:         d.homepage(meta),
		LicenseShortName: d.license(entry, meta),
		Maintainers:      d.maintainers(meta),
		Platforms:        d.strs(meta, "platforms", "meta.platforms"),
		Broken:           d.boolean(meta, "broken", "meta.broken"),
	}
	if r.Version == "" {
		r.Version = Unknown
		d.defaults = append(d.defaults, "version")
	}
	r.Available = !d.boolean(meta, "available", "meta.available")

	return r, d.defaults
}

// lookup returns o[key], treating an explicit null as absent.
func lookup(o object, key string) (json.RawMessage, bool) {
	raw, ok := o[key]
	if !ok || string(raw) == "null" {
		return nil, false
	}
	return raw, true
}

func asObject(raw json.RawMessage) object {
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil
	}
	return o
}

// object returns o[key] decoded as an object. An empty key returns o itself.
func (d *entryDecoder) object(o object, key, path string) object {
	if key == "" {
		return o
	}
	raw, ok := lookup(o, key)
	if !ok {
		d.defaults = append(d.defaults, path)
		return object{}
	}
	sub := asObject(raw)
	if sub == nil {
		d.defaults = append(d.defaults, path)
		return object{}
	}
	return sub
}

func (d *entryDecoder) str(o object, key, path, def string) string {
	raw, ok := lookup(o, key)
	if !ok {
		d.defaults = append(d.defaults, path)
		return def
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		d.defaults = append(d.defaults, path)
		return def
	}
	return s
}

func (d *entryDecoder) boolean(o object, key, path string) bool {
	raw, ok := lookup(o, key)
	if !ok {
		d.defaults = append(d.defaults, path)
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		d.defaults = append(d.defaults, path)
		return false
	}
	return b
}

// strs decodes a list of strings, skipping elements of other types.
func (d *entryDecoder) strs(o object, key, path string) []string {
	var items []json.RawMessage
	raw, ok := lookup(o, key)
	if !ok || json.Unmarshal(raw, &items) != nil {
		d.defaults = append(d.defaults, path)
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
		}
	}
	return out
}

// homepage accepts a single URL or a list of URLs (first wins).
func (d *entryDecoder) homepage(meta object) string {
	raw, ok := lookup(meta, "homepage")
	if !ok {
		d.defaults = append(d.defaults, "meta.homepage")
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
		return list[0]
	}
	d.defaults = append(d.defaults, "meta.homepage")
	return ""
}

// license reads license.shortName from the entry, falling back to
// meta.license. Either may be an object, a list of objects (first wins) or
// a bare string.
func (d *entryDecoder) license(entry, meta object) string {
	for _, src := range []object{entry, meta} {
		raw, ok := lookup(src, "license")
		if !ok {
			continue
		}
		if name, ok := licenseName(raw); ok {
			return name
		}
	}
	d.defaults = append(d.defaults, "license.shortName")
	return Unknown
}

func licenseName(raw json.RawMessage) (string, bool) {
	var s string
	if json.Unmarshal(raw, &s) == nil && s != "" {
		return s, true
	}
	var lic struct {
		ShortName string `json:"shortName"`
	}
	if json.Unmarshal(raw, &lic) == nil && lic.ShortName != "" {
		return lic.ShortName, true
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
		return licenseName(list[0])
	}
	return "", false
}

// maintainers flattens maintainer entries to strings. Entries may be plain
// strings or objects; objects use name, then github handle, then email.
func (d *entryDecoder) maintainers(meta object) []string {
	var items []json.RawMessage
	raw, ok := lookup(meta, "maintainers")
	if !ok || json.Unmarshal(raw, &items) != nil {
		d.defaults = append(d.defaults, "meta.maintainers")
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			if s != "" {
				out = append(out, s)
			}
			continue
		}
		var m struct {
			Name   string `json:"name"`
			GitHub string `json:"github"`
			Email  string `json:"email"`
		}
		if json.Unmarshal(item, &m) != nil {
			continue
		}
		switch {
		case m.Name != "":
			out = append(out, m.Name)
		case m.GitHub != "":
			out = append(out, m.GitHub)
		case m.Email != "":
			out = append(out, m.Email)
		}
	}
	return out
}
