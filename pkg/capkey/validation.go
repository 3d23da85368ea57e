package capkey

import (
	"encoding/json"
	"sort"

	"github.com/ramp-stack/air-go/pkg/ids"
)

// ChildrenValidation describes what a header's children may look like. An
// empty Children whitelist means any protocol id is acceptable.
type ChildrenValidation struct {
	Children       []ids.Id `json:"children" yaml:"children,omitempty"`
	AnyoneDiscover bool     `json:"anyone_discover" yaml:"anyone_discover"`
	AnyoneRead     bool     `json:"anyone_read" yaml:"anyone_read"`
	AllowPointers  bool     `json:"allow_pointers" yaml:"allow_pointers"`
}

// Validation is the declarative schema recorded inside a Header and used to
// verify parents/children. It also has a YAML encoding (see yaml.go) so a
// protocol's schema can be authored as a fixture file instead of Go code.
type Validation struct {
	Children       *ChildrenValidation `json:"children,omitempty" yaml:"children,omitempty"`
	Delete         *bool               `json:"delete,omitempty" yaml:"delete,omitempty"`
	KeyStates      map[string]bool     `json:"key_states,omitempty" yaml:"key_states,omitempty"`
	AllowExtraKeys bool                `json:"allow_extra_keys" yaml:"allow_extra_keys"`
}

// canonicalValidation is the JSON-marshalable mirror used for content
// addressing; map keys serialize in sorted order via encoding/json.
type canonicalValidation struct {
	Children       []string        `json:"children,omitempty"`
	AnyoneDiscover bool            `json:"anyone_discover,omitempty"`
	AnyoneRead     bool            `json:"anyone_read,omitempty"`
	AllowPointers  bool            `json:"allow_pointers,omitempty"`
	HasChildren    bool            `json:"has_children"`
	Delete         *bool           `json:"delete,omitempty"`
	KeyStates      map[string]bool `json:"key_states,omitempty"`
	AllowExtraKeys bool            `json:"allow_extra_keys,omitempty"`
}

func (v Validation) canonical() canonicalValidation {
	c := canonicalValidation{
		Delete:         v.Delete,
		KeyStates:      v.KeyStates,
		AllowExtraKeys: v.AllowExtraKeys,
	}
	if v.Children != nil {
		c.HasChildren = true
		c.AnyoneDiscover = v.Children.AnyoneDiscover
		c.AnyoneRead = v.Children.AnyoneRead
		c.AllowPointers = v.Children.AllowPointers
		ids := make([]string, len(v.Children.Children))
		for i, id := range v.Children.Children {
			ids[i] = id.String()
		}
		sort.Strings(ids)
		c.Children = ids
	}
	return c
}

// CanonicalBytes implements ids.Hashable.
func (v Validation) CanonicalBytes() ([]byte, error) {
	return json.Marshal(v.canonical())
}

// Id is hash(Validation).
func (v Validation) Id() (ids.Id, error) {
	return ids.Hash(v)
}

// IsChild reports whether protocolID may appear as a child under this
// Validation. Pointers (ids.Max) additionally require AllowPointers.
func (v Validation) IsChild(protocolID ids.Id) bool {
	if v.Children == nil {
		return false
	}
	if protocolID == ids.Max {
		return v.Children.AllowPointers
	}
	if len(v.Children.Children) == 0 {
		return true
	}
	for _, id := range v.Children.Children {
		if id == protocolID {
			return true
		}
	}
	return false
}

// Builder assembles a Validation fluently, in the spirit of an
// access-control-expression builder: small typed constructors composed into
// one immutable compiled value.
type Builder struct {
	v Validation
}

// NewValidation starts a Builder with no children, no delete capability, no
// extra keys allowed.
func NewValidation() *Builder {
	return &Builder{}
}

// AllowChildren whitelists the given protocol ids as valid children; an
// empty call (no ids) means any protocol id is accepted.
func (b *Builder) AllowChildren(protocolIDs ...ids.Id) *Builder {
	if b.v.Children == nil {
		b.v.Children = &ChildrenValidation{}
	}
	b.v.Children.Children = append(b.v.Children.Children, protocolIDs...)
	return b
}

// AnyoneDiscover marks children as discoverable without holding a
// parent-issued discover secret.
func (b *Builder) AnyoneDiscover() *Builder {
	b.ensureChildren()
	b.v.Children.AnyoneDiscover = true
	return b
}

// AnyoneRead marks children as readable without holding a parent-issued
// read secret.
func (b *Builder) AnyoneRead() *Builder {
	b.ensureChildren()
	b.v.Children.AnyoneRead = true
	return b
}

// AllowPointers permits a Pointer record (protocol id ids.Max) as a direct
// child.
func (b *Builder) AllowPointers() *Builder {
	b.ensureChildren()
	b.v.Children.AllowPointers = true
	return b
}

func (b *Builder) ensureChildren() {
	if b.v.Children == nil {
		b.v.Children = &ChildrenValidation{}
	}
}

// RequireDelete records that a delete capability exists, and whether every
// holder must carry a secret delete key (true) or a public-only delete key
// suffices (false).
func (b *Builder) RequireDelete(secret bool) *Builder {
	b.v.Delete = &secret
	return b
}

// WithKey declares a named extra key and whether it must be held as secret.
func (b *Builder) WithKey(name string, secret bool) *Builder {
	if b.v.KeyStates == nil {
		b.v.KeyStates = map[string]bool{}
	}
	b.v.KeyStates[name] = secret
	return b
}

// AllowExtraKeys permits a KeySet to carry named keys not declared in
// KeyStates.
func (b *Builder) AllowExtraKeys() *Builder {
	b.v.AllowExtraKeys = true
	return b
}

// Build returns the assembled Validation.
func (b *Builder) Build() Validation {
	return b.v
}
