// Package storagesvc implements the server side of the storage engine: the
// private/public/dms relations and the request handlers that enforce
// signature and conflict rules before any row is mutated.
package storagesvc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ramp-stack/air-go/internal/telemetry"
	"github.com/ramp-stack/air-go/pkg/capkey"
	"github.com/ramp-stack/air-go/pkg/config"
	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/ids"
	"github.com/ramp-stack/air-go/pkg/orange"
	"github.com/ramp-stack/air-go/pkg/resolver"
	"github.com/ramp-stack/air-go/pkg/rorerr"
	"github.com/ramp-stack/air-go/pkg/storagereq"
	"golang.org/x/sync/singleflight"
)

// privateRow is the stored representation of one private-relation row: the
// fully signed item (so a later CreatePrivate conflict or ReadPrivate can
// hand back the exact bytes that were accepted) plus the insertion time.
type privateRow struct {
	signed    cryptoutil.KeySigned[storagereq.PrivateItem]
	timestamp time.Time
}

// publicRow is the stored representation of one public-relation row.
type publicRow struct {
	id        ids.Id
	signed    cryptoutil.DidSigned[storagereq.PublicItem]
	timestamp time.Time
}

// dmRow is one stored DM envelope.
type dmRow struct {
	recipient orange.Name
	payload   []byte
	timestamp time.Time
}

// Service implements the three storage relations as in-memory, mutex-guarded
// maps. A production deployment would back these with a relational store;
// the map-based representation here keeps the same row shapes and conflict
// rules the request handlers enforce.
type Service struct {
	mu      sync.Mutex
	private map[ids.Id]privateRow
	public  map[ids.Id]publicRow
	dms     []dmRow

	resolver resolver.Resolver
	cfg      config.Config
	log      telemetry.Logger

	// createGroup collapses concurrent CreatePrivate calls that
	// target the same discover key into a single evaluation, matching the
	// UNIQUE-constraint serialization two racing clients would experience
	// against a real relational backend.
	createGroup singleflight.Group
}

// New builds an empty Service.
func New(res resolver.Resolver, cfg config.Config, log telemetry.Logger) *Service {
	if log == nil {
		log = telemetry.New(nil)
	}
	return &Service{
		private:  map[ids.Id]privateRow{},
		public:   map[ids.Id]publicRow{},
		resolver: res,
		cfg:      cfg,
		log:      log,
	}
}

// Handle dispatches a single Storage Request to the matching relation
// operation.
func (s *Service) Handle(ctx context.Context, req storagereq.Request) (storagereq.Response, error) {
	switch req.Kind {
	case storagereq.KindCreatePrivate:
		if req.CreatePrivate == nil {
			return storagereq.InvalidRequest("missing create_private body"), nil
		}
		return s.createPrivate(ctx, *req.CreatePrivate)
	case storagereq.KindReadPrivate:
		if req.ReadPrivate == nil {
			return storagereq.InvalidRequest("missing read_private body"), nil
		}
		return s.readPrivate(ctx, *req.ReadPrivate)
	case storagereq.KindUpdatePrivate:
		if req.UpdatePrivate == nil {
			return storagereq.InvalidRequest("missing update_private body"), nil
		}
		return s.updatePrivate(ctx, *req.UpdatePrivate)
	case storagereq.KindDeletePrivate:
		if req.DeletePrivate == nil {
			return storagereq.InvalidRequest("missing delete_private body"), nil
		}
		return s.deletePrivate(ctx, *req.DeletePrivate)
	case storagereq.KindCreatePublic:
		if req.CreatePublic == nil {
			return storagereq.InvalidRequest("missing create_public body"), nil
		}
		return s.createPublic(ctx, *req.CreatePublic)
	case storagereq.KindReadPublic:
		if req.ReadPublic == nil {
			return storagereq.InvalidRequest("missing read_public body"), nil
		}
		return s.readPublic(ctx, *req.ReadPublic)
	case storagereq.KindUpdatePublic:
		if req.UpdatePublic == nil {
			return storagereq.InvalidRequest("missing update_public body"), nil
		}
		return s.updatePublic(ctx, *req.UpdatePublic)
	case storagereq.KindDeletePublic:
		if req.DeletePublic == nil {
			return storagereq.InvalidRequest("missing delete_public body"), nil
		}
		return s.deletePublic(ctx, *req.DeletePublic)
	case storagereq.KindCreateDM:
		if req.CreateDM == nil {
			return storagereq.InvalidRequest("missing create_dm body"), nil
		}
		return s.createDM(ctx, *req.CreateDM)
	case storagereq.KindReadDM:
		if req.ReadDM == nil {
			return storagereq.InvalidRequest("missing read_dm body"), nil
		}
		return s.readDM(ctx, *req.ReadDM)
	default:
		return storagereq.InvalidRequest(fmt.Sprintf("unknown request kind %q", req.Kind)), nil
	}
}

func (s *Service) createPrivate(ctx context.Context, item cryptoutil.KeySigned[storagereq.PrivateItem]) (storagereq.Response, error) {
	if !item.Verify() {
		return storagereq.InvalidSignature("create_private: bad signature"), nil
	}
	if !matchesSigner(item.Signer(), item.Inner.Discover) {
		return storagereq.InvalidSignature("create_private: discover does not match signer"), nil
	}
	discoverID, err := item.Inner.Discover.Id()
	if err != nil {
		return storagereq.InvalidRequest("create_private: bad discover key"), nil
	}

	v, err, _ := s.createGroup.Do(discoverID.String(), func() (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.private[discoverID]; ok {
			return storagereq.Response{
				Kind:         storagereq.RespPrivateConflict,
				ConflictItem: &existing.signed,
				ConflictAt:   &existing.timestamp,
			}, nil
		}
		s.private[discoverID] = privateRow{signed: item, timestamp: now()}
		return storagereq.Empty(), nil
	})
	if err != nil {
		return storagereq.Response{}, err
	}
	return v.(storagereq.Response), nil
}

func (s *Service) readPrivate(ctx context.Context, query cryptoutil.KeySigned[storagereq.DiscoverQuery]) (storagereq.Response, error) {
	if !query.Verify() {
		return storagereq.InvalidSignature("read_private: bad signature"), nil
	}
	if !matchesSigner(query.Signer(), query.Inner.Discover) {
		return storagereq.InvalidSignature("read_private: discover does not match signer"), nil
	}
	discoverID, err := query.Inner.Discover.Id()
	if err != nil {
		return storagereq.InvalidRequest("read_private: bad discover key"), nil
	}

	s.mu.Lock()
	row, ok := s.private[discoverID]
	s.mu.Unlock()
	if !ok {
		return storagereq.Response{Kind: storagereq.RespReadPrivate}, nil
	}
	return storagereq.Response{Kind: storagereq.RespReadPrivate, ReadPrivateItem: &row.signed, ReadPrivateAt: &row.timestamp}, nil
}

func (s *Service) updatePrivate(ctx context.Context, outer cryptoutil.KeySigned[cryptoutil.KeySigned[storagereq.PrivateItem]]) (storagereq.Response, error) {
	if !outer.Verify() {
		return storagereq.InvalidSignature("update_private: bad outer (delete) signature"), nil
	}
	inner := outer.Inner
	if !inner.Verify() {
		return storagereq.InvalidSignature("update_private: bad inner (discover) signature"), nil
	}
	if !matchesSigner(inner.Signer(), inner.Inner.Discover) {
		return storagereq.InvalidSignature("update_private: discover does not match inner signer"), nil
	}
	discoverID, err := inner.Inner.Discover.Id()
	if err != nil {
		return storagereq.InvalidRequest("update_private: bad discover key"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.private[discoverID]; ok {
		storedID, err := deleteKeyID(existing.signed.Inner.Delete)
		if err != nil {
			return storagereq.InvalidRequest("update_private: bad stored delete key"), nil
		}
		if resp, mismatched := checkDeleteKey(storedID, outer.Signer()); mismatched {
			return resp, nil
		}
	}
	s.private[discoverID] = privateRow{signed: inner, timestamp: now()}
	return storagereq.Empty(), nil
}

func (s *Service) deletePrivate(ctx context.Context, outer cryptoutil.KeySigned[cryptoutil.KeySigned[storagereq.DiscoverQuery]]) (storagereq.Response, error) {
	if !outer.Verify() {
		return storagereq.InvalidSignature("delete_private: bad outer (delete) signature"), nil
	}
	inner := outer.Inner
	if !inner.Verify() {
		return storagereq.InvalidSignature("delete_private: bad inner (discover) signature"), nil
	}
	if !matchesSigner(inner.Signer(), inner.Inner.Discover) {
		return storagereq.InvalidSignature("delete_private: discover does not match inner signer"), nil
	}
	discoverID, err := inner.Inner.Discover.Id()
	if err != nil {
		return storagereq.InvalidRequest("delete_private: bad discover key"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.private[discoverID]
	if !ok {
		return storagereq.Empty(), nil
	}
	storedID, err := deleteKeyID(existing.signed.Inner.Delete)
	if err != nil {
		return storagereq.InvalidRequest("delete_private: bad stored delete key"), nil
	}
	if resp, mismatched := checkDeleteKey(storedID, outer.Signer()); mismatched {
		return resp, nil
	}
	delete(s.private, discoverID)
	return storagereq.Empty(), nil
}

// deleteKeyID resolves a row's stored delete key to its content id, or nil
// if the row declared no delete key.
func deleteKeyID(stored *capkey.Key) (*ids.Id, error) {
	if stored == nil {
		return nil, nil
	}
	id, err := stored.Id()
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// checkDeleteKey reports whether signerPub matches row's stored delete key.
// If it does not match, it returns the InvalidDelete response to send and
// true; if it matches (or the caller should proceed), it returns false.
func checkDeleteKey(stored *ids.Id, signerPub *btcec.PublicKey) (storagereq.Response, bool) {
	signerID := ids.HashBytes(signerPub.SerializeCompressed())
	if stored == nil {
		return storagereq.InvalidDelete(nil), true
	}
	if *stored != signerID {
		id := *stored
		return storagereq.InvalidDelete(&id), true
	}
	return storagereq.Response{}, false
}

func matchesSigner(signerPub *btcec.PublicKey, discover interface{ Id() (ids.Id, error) }) bool {
	id, err := discover.Id()
	if err != nil || signerPub == nil {
		return false
	}
	return id == ids.HashBytes(signerPub.SerializeCompressed())
}

func (s *Service) createDM(ctx context.Context, body storagereq.CreateDMBody) (storagereq.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dms = append(s.dms, dmRow{recipient: body.Recipient, payload: body.Payload, timestamp: now()})
	return storagereq.Empty(), nil
}

func (s *Service) readDM(ctx context.Context, signed cryptoutil.DidSigned[storagereq.ReadDMQuery]) (storagereq.Response, error) {
	if err := storagereq.VerifyDidSigned(ctx, s.resolver, signed, nil); err != nil {
		if rorerr.IsCritical(err) {
			return storagereq.Response{}, err
		}
		return storagereq.InvalidSignature("read_dm: bad signature"), nil
	}
	q := signed.Inner
	n := now()
	window := s.cfg.FreshnessWindow
	if window <= 0 {
		window = config.DefaultFreshnessWindow
	}
	if q.Time.After(n) || n.Sub(q.Time) > window || q.Since.After(q.Time) {
		return storagereq.InvalidSignature("Expired"), nil
	}

	signerName, err := orange.Parse(signed.Name)
	if err != nil {
		return storagereq.InvalidRequest("read_dm: bad signer name"), nil
	}

	s.mu.Lock()
	rows := make([]dmRow, len(s.dms))
	copy(rows, s.dms)
	s.mu.Unlock()

	blobs, err := filterDMs(ctx, rows, signerName, q.Since)
	if err != nil {
		return storagereq.Response{}, err
	}
	return storagereq.Response{Kind: storagereq.RespReadDM, DMBlobs: blobs}, nil
}

func now() time.Time { return time.Now().UTC() }
