package storagereq

import (
	"time"

	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/ids"
)

// ResponseKind names which Storage Response variant a Response carries.
type ResponseKind string

const (
	RespInvalidRequest   ResponseKind = "invalid_request"
	RespInvalidSignature ResponseKind = "invalid_signature"
	RespInvalidDelete    ResponseKind = "invalid_delete"
	RespReadPrivate      ResponseKind = "read_private"
	RespPrivateConflict  ResponseKind = "private_conflict"
	RespCreatedPublic    ResponseKind = "created_public"
	RespReadPublic       ResponseKind = "read_public"
	RespReadDM           ResponseKind = "read_dm"
	RespEmpty            ResponseKind = "empty"
)

// PublicRow is one (id, signed item, timestamp) tuple as returned by
// ReadPublic.
type PublicRow struct {
	Id        ids.Id                              `json:"id"`
	Item      cryptoutil.DidSigned[PublicItem]     `json:"item"`
	Timestamp time.Time                            `json:"timestamp"`
}

// Response is the tagged union of every Storage Response variant. Exactly
// one field matching Kind is set, except RespEmpty/RespCreatedPublic/
// RespInvalidRequest/RespInvalidSignature, which carry their payload
// directly in Msg/Id.
type Response struct {
	Kind ResponseKind `json:"kind"`

	// Msg carries InvalidRequest/InvalidSignature's message.
	Msg string `json:"msg,omitempty"`

	// InvalidDeletePub carries InvalidDelete's Option<pub>; nil means the
	// row has no delete key at all.
	InvalidDeletePub *ids.Id `json:"invalid_delete_pub,omitempty"`

	ReadPrivateItem *cryptoutil.KeySigned[PrivateItem] `json:"read_private_item,omitempty"`
	ReadPrivateAt   *time.Time                         `json:"read_private_at,omitempty"`

	ConflictItem *cryptoutil.KeySigned[PrivateItem] `json:"conflict_item,omitempty"`
	ConflictAt   *time.Time                         `json:"conflict_at,omitempty"`

	CreatedPublicId *ids.Id `json:"created_public_id,omitempty"`

	PublicRows []PublicRow `json:"public_rows,omitempty"`

	DMBlobs [][]byte `json:"dm_blobs,omitempty"`
}

// Empty builds the Empty response.
func Empty() Response { return Response{Kind: RespEmpty} }

// InvalidRequest builds an InvalidRequest response.
func InvalidRequest(msg string) Response {
	return Response{Kind: RespInvalidRequest, Msg: msg}
}

// InvalidSignature builds an InvalidSignature response.
func InvalidSignature(msg string) Response {
	return Response{Kind: RespInvalidSignature, Msg: msg}
}

// InvalidDelete builds an InvalidDelete response. pub is nil when the row
// carries no delete key.
func InvalidDelete(pub *ids.Id) Response {
	return Response{Kind: RespInvalidDelete, InvalidDeletePub: pub}
}
