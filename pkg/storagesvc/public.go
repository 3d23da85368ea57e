package storagesvc

import (
	"context"

	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/ids"
	"github.com/ramp-stack/air-go/pkg/orange"
	"github.com/ramp-stack/air-go/pkg/rorerr"
	"github.com/ramp-stack/air-go/pkg/storagereq"
)

func (s *Service) createPublic(ctx context.Context, item cryptoutil.DidSigned[storagereq.PublicItem]) (storagereq.Response, error) {
	if err := storagereq.VerifyDidSigned(ctx, s.resolver, item, nil); err != nil {
		if rorerr.IsCritical(err) {
			return storagereq.Response{}, err
		}
		return storagereq.InvalidSignature("create_public: bad signature"), nil
	}
	id, err := ids.Random()
	if err != nil {
		return storagereq.Response{}, err
	}
	s.mu.Lock()
	s.public[id] = publicRow{id: id, signed: item, timestamp: now()}
	s.mu.Unlock()
	return storagereq.Response{Kind: storagereq.RespCreatedPublic, CreatedPublicId: &id}, nil
}

func (s *Service) readPublic(ctx context.Context, filter storagereq.Filter) (storagereq.Response, error) {
	s.mu.Lock()
	rows := make([]publicRow, 0, len(s.public))
	for _, r := range s.public {
		rows = append(rows, r)
	}
	s.mu.Unlock()

	var out []storagereq.PublicRow
	for _, r := range rows {
		signerName, err := orange.Parse(r.signed.Name)
		if err != nil {
			continue
		}
		if !filter.Matches(r.id, signerName, r.signed.Inner.Protocol, r.timestamp) {
			continue
		}
		out = append(out, storagereq.PublicRow{Id: r.id, Item: r.signed, Timestamp: r.timestamp})
	}
	return storagereq.Response{Kind: storagereq.RespReadPublic, PublicRows: out}, nil
}

func (s *Service) updatePublic(ctx context.Context, req storagereq.UpdatePublicRequest) (storagereq.Response, error) {
	if err := storagereq.VerifyDidSigned(ctx, s.resolver, req.Item, nil); err != nil {
		if rorerr.IsCritical(err) {
			return storagereq.Response{}, err
		}
		return storagereq.InvalidSignature("update_public: bad signature"), nil
	}
	name, err := orange.Parse(req.Item.Name)
	if err != nil {
		return storagereq.InvalidRequest("update_public: bad signer name"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.public[req.Id]; ok {
		existingSigner, err := orange.Parse(existing.signed.Name)
		if err != nil || !existingSigner.Equal(name) {
			return storagereq.InvalidSignature("update_public: signer does not match existing row"), nil
		}
	}
	s.public[req.Id] = publicRow{id: req.Id, signed: req.Item, timestamp: now()}
	return storagereq.Empty(), nil
}

func (s *Service) deletePublic(ctx context.Context, signed cryptoutil.DidSigned[ids.Ref]) (storagereq.Response, error) {
	if err := storagereq.VerifyDidSigned(ctx, s.resolver, signed, nil); err != nil {
		if rorerr.IsCritical(err) {
			return storagereq.Response{}, err
		}
		return storagereq.InvalidSignature("delete_public: bad signature"), nil
	}
	name, err := orange.Parse(signed.Name)
	if err != nil {
		return storagereq.InvalidRequest("delete_public: bad signer name"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.public[signed.Inner.Target]
	if !ok {
		return storagereq.Empty(), nil
	}
	existingSigner, err := orange.Parse(existing.signed.Name)
	if err != nil || !existingSigner.Equal(name) {
		return storagereq.Empty(), nil
	}
	delete(s.public, signed.Inner.Target)
	return storagereq.Empty(), nil
}
