// Package rpcwire implements the outermost RPC envelope every Transport
// call carries: Batch/Service request variants and Batch/OutOfService/
// Service response variants. The storage service is registered under the
// well-known name config.DefaultStorageServiceName.
package rpcwire

import (
	"encoding/json"
	"fmt"

	"github.com/ramp-stack/air-go/pkg/storagereq"
)

// RequestKind names which RPC Request variant is present.
type RequestKind string

const (
	RequestBatch   RequestKind = "batch"
	RequestService RequestKind = "service"
)

// Request is the outer envelope sent over a Transport: either a Batch of
// sub-requests or a single Service request addressed by name. This module
// only ever addresses the storage service, so ServicePayload is always a
// marshaled storagereq.Request.
type Request struct {
	Kind           RequestKind         `json:"kind"`
	Batch          []storagereq.Request `json:"batch,omitempty"`
	ServiceName    string              `json:"service_name,omitempty"`
	ServicePayload json.RawMessage     `json:"service_payload,omitempty"`
}

// NewService wraps a single storage Request as a Service RPC request
// addressed to serviceName.
func NewService(serviceName string, req storagereq.Request) (Request, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Request{}, fmt.Errorf("rpcwire: marshal service payload: %w", err)
	}
	return Request{Kind: RequestService, ServiceName: serviceName, ServicePayload: payload}, nil
}

// NewBatch wraps multiple storage Requests as a single Batch RPC request.
func NewBatch(reqs []storagereq.Request) Request {
	return Request{Kind: RequestBatch, Batch: reqs}
}

// ResponseKind names which RPC Response variant is present.
type ResponseKind string

const (
	ResponseBatch        ResponseKind = "batch"
	ResponseOutOfService ResponseKind = "out_of_service"
	ResponseService      ResponseKind = "service"
)

// Response is the outer envelope a Transport call returns.
type Response struct {
	Kind            ResponseKind          `json:"kind"`
	Batch           []storagereq.Response `json:"batch,omitempty"`
	OutOfServiceName string               `json:"out_of_service_name,omitempty"`
	ServicePayload  json.RawMessage       `json:"service_payload,omitempty"`
}

// Service unmarshals a single storage Response from a Service response.
func (r Response) Service() (storagereq.Response, error) {
	if r.Kind != ResponseService {
		return storagereq.Response{}, fmt.Errorf("rpcwire: response is %q, not service", r.Kind)
	}
	var resp storagereq.Response
	if err := json.Unmarshal(r.ServicePayload, &resp); err != nil {
		return storagereq.Response{}, fmt.Errorf("rpcwire: unmarshal service response: %w", err)
	}
	return resp, nil
}

// NewServiceResponse wraps a single storage Response.
func NewServiceResponse(resp storagereq.Response) (Response, error) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return Response{}, fmt.Errorf("rpcwire: marshal service response: %w", err)
	}
	return Response{Kind: ResponseService, ServicePayload: payload}, nil
}

// NewOutOfService builds the response for a Service request naming an
// unregistered service.
func NewOutOfService(name string) Response {
	return Response{Kind: ResponseOutOfService, OutOfServiceName: name}
}

// NewBatchResponse wraps multiple storage Responses.
func NewBatchResponse(resps []storagereq.Response) Response {
	return Response{Kind: ResponseBatch, Batch: resps}
}
