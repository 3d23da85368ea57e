package storagesvc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ramp-stack/air-go/pkg/config"
	"github.com/ramp-stack/air-go/pkg/rpcwire"
	"github.com/ramp-stack/air-go/pkg/storagereq"
	"github.com/ramp-stack/air-go/pkg/transport"
)

// AsHandler adapts s into a transport.Handler that speaks the RPC envelope,
// recognizing only config.DefaultStorageServiceName.
func (s *Service) AsHandler() transport.Handler {
	return func(ctx context.Context, reqBytes []byte) ([]byte, error) {
		var req rpcwire.Request
		if err := json.Unmarshal(reqBytes, &req); err != nil {
			return nil, fmt.Errorf("storagesvc: decode rpc request: %w", err)
		}
		resp, err := s.dispatch(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	}
}

func (s *Service) dispatch(ctx context.Context, req rpcwire.Request) (rpcwire.Response, error) {
	switch req.Kind {
	case rpcwire.RequestService:
		if req.ServiceName != config.DefaultStorageServiceName {
			return rpcwire.NewOutOfService(req.ServiceName), nil
		}
		var storageReq storagereq.Request
		if err := json.Unmarshal(req.ServicePayload, &storageReq); err != nil {
			return rpcwire.Response{}, fmt.Errorf("storagesvc: decode service payload: %w", err)
		}
		resp, err := s.Handle(ctx, storageReq)
		if err != nil {
			return rpcwire.Response{}, err
		}
		return rpcwire.NewServiceResponse(resp)
	case rpcwire.RequestBatch:
		resps, err := s.HandleBatch(ctx, req.Batch)
		if err != nil {
			return rpcwire.Response{}, err
		}
		return rpcwire.NewBatchResponse(resps), nil
	default:
		return rpcwire.Response{}, fmt.Errorf("storagesvc: unknown rpc request kind %q", req.Kind)
	}
}
