package capkey

// ChildPermissions expresses whether a shared header exposes the
// child-discover and child-read capabilities.
type ChildPermissions struct {
	Discover bool `json:"discover" yaml:"discover"`
	Read     bool `json:"read" yaml:"read"`
}

// Permissions describes what capability to expose when sharing a header.
// Presence/absence of each optional field must
// match the target Validation's corresponding optional field: Children is
// non-nil iff the Validation declares children support, Delete is non-nil
// iff the Validation declares a delete capability.
type Permissions struct {
	Children *ChildPermissions `json:"children,omitempty" yaml:"children,omitempty"`
	Delete   *bool             `json:"delete,omitempty" yaml:"delete,omitempty"`
	Keys     map[string]bool   `json:"keys,omitempty" yaml:"keys,omitempty"`
}

// MatchesShape reports whether the presence/absence of p's optional fields
// matches v's.
func (p Permissions) MatchesShape(v Validation) bool {
	if (p.Children != nil) != (v.Children != nil) {
		return false
	}
	if (p.Delete != nil) != (v.Delete != nil) {
		return false
	}
	return true
}

// Full returns the Permissions that retain every capability v declares:
// child-discover, child-read and delete at secret strength, and each named
// key in v.KeyStates at the strength v.KeyStates gives it.
func Full(v Validation) Permissions {
	p := Permissions{Keys: map[string]bool{}}
	if v.Children != nil {
		p.Children = &ChildPermissions{Discover: true, Read: true}
	}
	if v.Delete != nil {
		t := true
		p.Delete = &t
	}
	for name, secret := range v.KeyStates {
		p.Keys[name] = secret
	}
	return p
}
