package storagesvc

import (
	"context"
	"time"

	"github.com/ramp-stack/air-go/pkg/cryptoutil"
	"github.com/ramp-stack/air-go/pkg/ids"
	"github.com/ramp-stack/air-go/pkg/orange"
	"github.com/ramp-stack/air-go/pkg/rorerr"
	"github.com/ramp-stack/air-go/pkg/storagereq"
	"golang.org/x/sync/errgroup"
)

// precheckDidSigned verifies a DidSigned[T]'s signature without applying
// any side effect. A Critical resolver error propagates; any other failure
// just reports false.
func precheckDidSigned[T ids.Hashable](ctx context.Context, s *Service, ds cryptoutil.DidSigned[T]) (bool, error) {
	err := storagereq.VerifyDidSigned(ctx, s.resolver, ds, nil)
	if err == nil {
		return true, nil
	}
	if rorerr.IsCritical(err) {
		return false, err
	}
	return false, nil
}

// filterDMs returns the payloads of every row addressed to recipient with
// timestamp >= since.
func filterDMs(ctx context.Context, rows []dmRow, recipient orange.Name, since time.Time) ([][]byte, error) {
	out := make([][]byte, len(rows))
	g, ctx := errgroup.WithContext(ctx)
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			if row.recipient.Equal(recipient) && !row.timestamp.Before(since) {
				out[i] = row.payload
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	blobs := make([][]byte, 0, len(rows))
	for _, b := range out {
		if b != nil {
			blobs = append(blobs, b)
		}
	}
	return blobs, nil
}

// HandleBatch applies a Batch request's sub-requests in order, but first
// verifies every sub-request's signature concurrently: signature checking
// is pure and read-only, so it can be fanned out. A sub-request whose
// signature fails the precheck gets an InvalidSignature response in its
// slot while the others are still applied; only an error from the
// precheck (a Critical resolver failure) aborts the batch before any
// sub-request is applied.
func (s *Service) HandleBatch(ctx context.Context, reqs []storagereq.Request) ([]storagereq.Response, error) {
	g, gctx := errgroup.WithContext(ctx)
	ok := make([]bool, len(reqs))
	for i, r := range reqs {
		i, r := i, r
		g.Go(func() error {
			valid, err := s.precheckSignature(gctx, r)
			if err != nil {
				return err
			}
			ok[i] = valid
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]storagereq.Response, len(reqs))
	for i, r := range reqs {
		if !ok[i] {
			out[i] = storagereq.InvalidSignature("batch: signature failed precheck")
			continue
		}
		resp, err := s.Handle(ctx, r)
		if err != nil {
			return nil, err
		}
		out[i] = resp
	}
	return out, nil
}

// precheckSignature runs only the pure signature-verification step for req,
// without touching any relation, so HandleBatch can run it concurrently
// across every sub-request before applying any of them.
func (s *Service) precheckSignature(ctx context.Context, req storagereq.Request) (bool, error) {
	switch req.Kind {
	case storagereq.KindCreatePrivate:
		return req.CreatePrivate != nil && req.CreatePrivate.Verify(), nil
	case storagereq.KindReadPrivate:
		return req.ReadPrivate != nil && req.ReadPrivate.Verify(), nil
	case storagereq.KindUpdatePrivate:
		return req.UpdatePrivate != nil && req.UpdatePrivate.Verify() && req.UpdatePrivate.Inner.Verify(), nil
	case storagereq.KindDeletePrivate:
		return req.DeletePrivate != nil && req.DeletePrivate.Verify() && req.DeletePrivate.Inner.Verify(), nil
	case storagereq.KindCreatePublic:
		if req.CreatePublic == nil {
			return false, nil
		}
		return precheckDidSigned(ctx, s, *req.CreatePublic)
	case storagereq.KindUpdatePublic:
		if req.UpdatePublic == nil {
			return false, nil
		}
		return precheckDidSigned(ctx, s, req.UpdatePublic.Item)
	case storagereq.KindDeletePublic:
		if req.DeletePublic == nil {
			return false, nil
		}
		return precheckDidSigned(ctx, s, *req.DeletePublic)
	case storagereq.KindReadDM:
		if req.ReadDM == nil {
			return false, nil
		}
		return precheckDidSigned(ctx, s, *req.ReadDM)
	default:
		// ReadPublic and CreateDM carry no signature to precheck.
		return true, nil
	}
}
