package oleclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/indexdata/olebridge/httpclient"
	"github.com/indexdata/olebridge/ole"
	"github.com/indexdata/olebridge/vcs"
)

func newHttpClient(client *http.Client, maxResponseSize int64) *httpclient.HttpClient {
	return httpclient.NewClient(client).WithMaxSize(maxResponseSize).WithHeaders(httpclient.UserAgent, vcs.GetSignature())
}

type CirculationClientImpl struct {
	client     *httpclient.HttpClient
	address    string
	operatorId string
}

func NewCirculationClient(client *http.Client, address string, operatorId string, maxResponseSize int64) CirculationClient {
	if operatorId == "" {
		operatorId = ole.DefaultOperatorId
	}
	return &CirculationClientImpl{
		client:     newHttpClient(client, maxResponseSize),
		address:    address,
		operatorId: operatorId,
	}
}

func (c *CirculationClientImpl) LookupUser(ctx context.Context, patronId string) (*ole.Node, error) {
	return c.read(ctx, ole.ServiceLookupUser, patronId)
}

func (c *CirculationClientImpl) GetCheckedOutItems(ctx context.Context, patronId string) (*ole.Node, error) {
	return c.read(ctx, ole.ServiceGetCheckedOutItems, patronId)
}

func (c *CirculationClientImpl) GetFines(ctx context.Context, patronId string) (*ole.Node, error) {
	return c.read(ctx, ole.ServiceFine, patronId)
}

func (c *CirculationClientImpl) GetHolds(ctx context.Context, patronId string) (*ole.Node, error) {
	return c.read(ctx, ole.ServiceHolds, patronId)
}

func (c *CirculationClientImpl) PlaceRequest(ctx context.Context, patronId string, itemBarcode string, requestType string) (*Response, error) {
	params := c.params(ole.ServicePlaceRequest, patronId)
	params.Set("itemBarcode", itemBarcode)
	params.Set("requestType", requestType)
	return c.write(ctx, ole.ServicePlaceRequest, params)
}

func (c *CirculationClientImpl) RenewItem(ctx context.Context, patronId string, itemBarcode string) (*Response, error) {
	params := c.params(ole.ServiceRenewItem, patronId)
	params.Set("itemBarcode", itemBarcode)
	return c.write(ctx, ole.ServiceRenewItem, params)
}

func (c *CirculationClientImpl) params(service string, patronId string) url.Values {
	params := url.Values{}
	params.Set("service", service)
	params.Set("patronId", patronId)
	params.Set("operatorId", c.operatorId)
	return params
}

func (c *CirculationClientImpl) read(ctx context.Context, service string, patronId string) (*ole.Node, error) {
	if c.address == "" {
		return nil, missingAddress("circulation")
	}
	buf, err := c.client.Get(ctx, c.address, c.params(service, patronId))
	if err != nil {
		return nil, err
	}
	doc, err := ole.Parse(buf)
	if err != nil {
		return nil, invalidResponse(service, err)
	}
	return doc, nil
}

// write returns a Response with Raw set even when the body holds no usable XML.
func (c *CirculationClientImpl) write(ctx context.Context, service string, params url.Values) (*Response, error) {
	if c.address == "" {
		return nil, missingAddress("circulation")
	}
	buf, err := c.client.Post(ctx, c.address, params)
	if err != nil {
		return nil, err
	}
	response := &Response{Raw: string(buf)}
	doc, err := ole.ParseLenient(buf)
	if err != nil {
		return response, invalidResponse(service, err)
	}
	response.Message = doc.Find("", "message").Text()
	return response, nil
}

type DocstoreClientImpl struct {
	client  *httpclient.HttpClient
	address string
}

func NewDocstoreClient(client *http.Client, address string, maxResponseSize int64) DocstoreClient {
	return &DocstoreClientImpl{
		client:  newHttpClient(client, maxResponseSize),
		address: address,
	}
}

func (d *DocstoreClientImpl) GetInstanceDetails(ctx context.Context, bibId string) (*ole.Node, error) {
	if d.address == "" {
		return nil, missingAddress("docstore")
	}
	params := url.Values{}
	params.Set("docAction", ole.DocActionInstanceDetails)
	params.Set("format", "xml")
	params.Set("bibIds", bibId)
	buf, err := d.client.Get(ctx, d.address, params)
	if err != nil {
		return nil, err
	}
	doc, err := ole.Parse(buf)
	if err != nil {
		return nil, invalidResponse(ole.DocActionInstanceDetails, err)
	}
	return doc, nil
}
