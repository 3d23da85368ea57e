package storagereq

import (
	"fmt"
	"time"

	"github.com/ramp-stack/air-go/pkg/capkey"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/rorerr"
)

// signerMatchesDiscover reports whether signed's signer and its inner
// PrivateItem's own discover field both name the same key as discover.
func signerMatchesDiscover(signed cryptoutil.KeySigned[PrivateItem], discover capkey.Key) bool {
	if !signed.Verify() {
		return false
	}
	signer := capkey.Public(signed.Signer())
	if !signer.Equal(discover) {
		return false
	}
	return signed.Inner.Discover.Equal(discover)
}

// ValidateCreatePrivate validates a CreatePrivate response: Empty means
// created (nil, nil); PrivateConflict is only accepted if its signer and
// inner discover both match discover, otherwise the response is
// malicious.
func ValidateCreatePrivate(resp Response, discover capkey.Key) (*cryptoutil.KeySigned[PrivateItem], *time.Time, error) {
	switch resp.Kind {
	case RespEmpty:
		return nil, nil, nil
	case RespPrivateConflict:
		if resp.ConflictItem == nil || resp.ConflictAt == nil {
			return nil, nil, rorerr.Malicious("storagereq.ValidateCreatePrivate", "PrivateConflict missing item/timestamp")
		}
		if !signerMatchesDiscover(*resp.ConflictItem, discover) {
			return nil, nil, rorerr.Malicious("storagereq.ValidateCreatePrivate", "conflicting item signer/discover mismatch")
		}
		return resp.ConflictItem, resp.ConflictAt, nil
	default:
		return nil, nil, fmt.Errorf("storagereq: unexpected CreatePrivate response kind %q", resp.Kind)
	}
}

// ValidateReadPrivate validates a ReadPrivate response.
func ValidateReadPrivate(resp Response, discover capkey.Key) (*cryptoutil.KeySigned[PrivateItem], *time.Time, error) {
	switch resp.Kind {
	case RespReadPrivate:
		if resp.ReadPrivateItem == nil {
			return nil, nil, nil
		}
		if !signerMatchesDiscover(*resp.ReadPrivateItem, discover) {
			return nil, nil, rorerr.Malicious("storagereq.ValidateReadPrivate", "item signer/discover mismatch")
		}
		return resp.ReadPrivateItem, resp.ReadPrivateAt, nil
	default:
		return nil, nil, fmt.Errorf("storagereq: unexpected ReadPrivate response kind %q", resp.Kind)
	}
}

// ValidateUpdateOrDelete validates an UpdatePrivate/DeletePrivate response:
// Empty means applied (true); InvalidDelete(k) is only legitimate if k
// differs from myDelete — if the server names the caller's own delete key
// as invalid, it is lying.
func ValidateUpdateOrDelete(resp Response, myDelete capkey.Key) (bool, error) {
	switch resp.Kind {
	case RespEmpty:
		return true, nil
	case RespInvalidDelete:
		if resp.InvalidDeletePub != nil {
			myID, err := myDelete.Id()
			if err == nil && *resp.InvalidDeletePub == myID {
				return false, rorerr.Malicious("storagereq.ValidateUpdateOrDelete", "server named caller's own delete key as invalid")
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("storagereq: unexpected Update/DeletePrivate response kind %q", resp.Kind)
	}
}
