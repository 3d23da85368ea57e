package capkey

import "gopkg.in/yaml.v3"

// ValidationFromYAML parses a Validation schema authored as a YAML fixture,
// e.g. a protocol's access-control shape kept alongside its Go definition
// for review or as example configuration.
func ValidationFromYAML(data []byte) (Validation, error) {
	var v Validation
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Validation{}, err
	}
	return v, nil
}

// ToYAML renders v back into the same fixture format ValidationFromYAML
// reads.
func (v Validation) ToYAML() ([]byte, error) {
	return yaml.Marshal(v)
}

// PermissionsFromYAML parses a Permissions value authored as YAML, used by
// examples that describe how much of a Header to hand a recipient.
func PermissionsFromYAML(data []byte) (Permissions, error) {
	var p Permissions
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Permissions{}, err
	}
	return p, nil
}

// ToYAML renders p back into the same fixture format PermissionsFromYAML
// reads.
func (p Permissions) ToYAML() ([]byte, error) {
	return yaml.Marshal(p)
}
