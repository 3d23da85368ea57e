package storagereq

import (
	"encoding/json"
	"time"

	"github.com/ramp-stack/air-go/pkg/capkey"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/ids"
	"github.com/ramp-stack/air-go/pkg/orange"
)

// DiscoverQuery names the row a ReadPrivate/DeletePrivate targets. Signing
// it proves the caller holds the discover secret for that row.
type DiscoverQuery struct {
	Discover capkey.Key `json:"discover"`
}

// CanonicalBytes implements ids.Hashable.
func (q DiscoverQuery) CanonicalBytes() ([]byte, error) {
	return json.Marshal(struct {
		Discover string `json:"discover"`
	}{Discover: hexString(q.Discover.CanonicalBytes())})
}

// DatetimeOp is a comparison operator for ReadPublic's datetime filter.
type DatetimeOp string

const (
	OpLess           DatetimeOp = "<"
	OpLessOrEqual    DatetimeOp = "<="
	OpEqual          DatetimeOp = "="
	OpGreaterOrEqual DatetimeOp = ">="
	OpGreater        DatetimeOp = ">"
)

// DatetimeFilter bounds ReadPublic results by timestamp.
type DatetimeFilter struct {
	Op   DatetimeOp `json:"op"`
	Time time.Time  `json:"time"`
}

// Filter narrows a ReadPublic query. A nil field means "unconstrained".
type Filter struct {
	Id       *ids.Id         `json:"id,omitempty"`
	Author   *orange.Name    `json:"author,omitempty"`
	Protocol *ids.Id         `json:"protocol,omitempty"`
	Datetime *DatetimeFilter `json:"datetime,omitempty"`
}

// Matches reports whether row (id, author, protocol, timestamp) satisfies
// f. Used both by the service's indexed query and by the client's
// re-applied filter check on ReadPublic responses.
func (f Filter) Matches(id ids.Id, author orange.Name, protocol ids.Id, timestamp time.Time) bool {
	if f.Id != nil && *f.Id != id {
		return false
	}
	if f.Author != nil && !f.Author.Equal(author) {
		return false
	}
	if f.Protocol != nil && *f.Protocol != protocol {
		return false
	}
	if f.Datetime != nil {
		switch f.Datetime.Op {
		case OpLess:
			if !timestamp.Before(f.Datetime.Time) {
				return false
			}
		case OpLessOrEqual:
			if timestamp.After(f.Datetime.Time) {
				return false
			}
		case OpEqual:
			if !timestamp.Equal(f.Datetime.Time) {
				return false
			}
		case OpGreaterOrEqual:
			if timestamp.Before(f.Datetime.Time) {
				return false
			}
		case OpGreater:
			if !timestamp.After(f.Datetime.Time) {
				return false
			}
		}
	}
	return true
}

// ReadDMQuery is what a ReadDM request signs: the caller's claimed current
// time and the since-cursor.
type ReadDMQuery struct {
	Time  time.Time `json:"time"`
	Since time.Time `json:"since"`
}

// CanonicalBytes implements ids.Hashable.
func (q ReadDMQuery) CanonicalBytes() ([]byte, error) {
	return json.Marshal(q)
}

// Request is the tagged union of every Storage Request variant. Exactly
// one field matching Kind is set.
type Request struct {
	Kind Kind `json:"kind"`

	CreatePrivate *cryptoutil.KeySigned[PrivateItem]                            `json:"create_private,omitempty"`
	ReadPrivate   *cryptoutil.KeySigned[DiscoverQuery]                          `json:"read_private,omitempty"`
	UpdatePrivate *cryptoutil.KeySigned[cryptoutil.KeySigned[PrivateItem]]      `json:"update_private,omitempty"`
	DeletePrivate *cryptoutil.KeySigned[cryptoutil.KeySigned[DiscoverQuery]]    `json:"delete_private,omitempty"`

	CreatePublic *cryptoutil.DidSigned[PublicItem] `json:"create_public,omitempty"`
	ReadPublic   *Filter                           `json:"read_public,omitempty"`
	UpdatePublic *UpdatePublicRequest              `json:"update_public,omitempty"`
	DeletePublic *cryptoutil.DidSigned[ids.Ref]    `json:"delete_public,omitempty"`

	CreateDM *CreateDMBody                      `json:"create_dm,omitempty"`
	ReadDM   *cryptoutil.DidSigned[ReadDMQuery] `json:"read_dm,omitempty"`
}

// Kind names which Storage Request variant a Request carries.
type Kind string

const (
	KindCreatePrivate Kind = "create_private"
	KindReadPrivate   Kind = "read_private"
	KindUpdatePrivate Kind = "update_private"
	KindDeletePrivate Kind = "delete_private"
	KindCreatePublic  Kind = "create_public"
	KindReadPublic    Kind = "read_public"
	KindUpdatePublic  Kind = "update_public"
	KindDeletePublic  Kind = "delete_public"
	KindCreateDM      Kind = "create_dm"
	KindReadDM        Kind = "read_dm"
)

// UpdatePublicRequest names the target row and carries the new, signed
// item content. A doubly-signed outer/inner envelope requiring the two
// signers match is simplified here to a single DidSigned[PublicItem] whose
// signer is authoritative both for the write and for the "existing row's
// signer must match" check, which is the substantive property the double
// signature was protecting (see DESIGN.md).
type UpdatePublicRequest struct {
	Id   ids.Id                            `json:"id"`
	Item cryptoutil.DidSigned[PublicItem] `json:"item"`
}

// CreateDMBody is a plaintext CreateDM request: recipient plus the
// already-encrypted DM payload.
type CreateDMBody struct {
	Recipient orange.Name `json:"recipient"`
	Payload   []byte      `json:"payload"`
}
