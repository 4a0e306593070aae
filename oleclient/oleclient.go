package oleclient

import (
	"context"
	"fmt"

	"github.com/indexdata/olebridge/ole"
)

// CirculationClient talks to the OLE circulation service (olefs/circulation).
type CirculationClient interface {
	LookupUser(ctx context.Context, patronId string) (*ole.Node, error)

	GetCheckedOutItems(ctx context.Context, patronId string) (*ole.Node, error)

	GetFines(ctx context.Context, patronId string) (*ole.Node, error)

	GetHolds(ctx context.Context, patronId string) (*ole.Node, error)

	PlaceRequest(ctx context.Context, patronId string, itemBarcode string, requestType string) (*Response, error)

	RenewItem(ctx context.Context, patronId string, itemBarcode string) (*Response, error)
}

// DocstoreClient talks to the OLE docstore service (oledocstore/document).
type DocstoreClient interface {
	GetInstanceDetails(ctx context.Context, bibId string) (*ole.Node, error)
}

// Response is the outcome of a circulation write. The service answers 200/201
// regardless of the result, so Message is the only indication of success.
type Response struct {
	Message string
	Raw     string
}

type OleError struct {
	Service string
	Message string
	Err     error
}

func (e *OleError) Error() string {
	s := "OLE " + e.Service + " failed"
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *OleError) Unwrap() error {
	return e.Err
}

func invalidResponse(service string, err error) error {
	return &OleError{Service: service, Message: "invalid response", Err: err}
}

func missingAddress(kind string) error {
	return fmt.Errorf("missing OLE %s service address in configuration", kind)
}
