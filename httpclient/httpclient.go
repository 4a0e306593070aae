package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	ContentTypeTextXml        string = "text/xml"
	ContentTypeApplicationXml string = "application/xml"
	ContentType               string = "Content-Type"
	Accept                    string = "Accept"
	UserAgent                 string = "User-Agent"
)

const DefaultMaxResponseSize int64 = 1024 * 1024 * 10 // 10MB

var ErrTooLarge = errors.New("response body too large")

type HttpError struct {
	StatusCode int
	Body       []byte
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.StatusCode, e.Body)
}

// HttpClient calls OLE style services: parameters travel in the query string,
// the body of the answer is returned as is.
type HttpClient struct {
	Client          *http.Client
	Headers         http.Header
	MaxResponseSize int64
}

func NewClient(client *http.Client) *HttpClient {
	if client == nil {
		client = http.DefaultClient
	}
	headers := http.Header{}
	headers.Set(Accept, ContentTypeApplicationXml+", "+ContentTypeTextXml)
	return &HttpClient{Client: client, Headers: headers, MaxResponseSize: DefaultMaxResponseSize}
}

func (c *HttpClient) WithMaxSize(maxResponseSize int64) *HttpClient {
	c.MaxResponseSize = maxResponseSize
	return c
}

// WithHeaders sets name/value pairs; pairs with an empty name are skipped.
func (c *HttpClient) WithHeaders(headers ...string) *HttpClient {
	if c.Headers == nil {
		c.Headers = http.Header{}
	}
	for i := 0; i+1 < len(headers); i += 2 {
		if headers[i] == "" {
			continue
		}
		c.Headers.Set(headers[i], headers[i+1])
	}
	return c
}

// Get issues a GET for address with params appended to its query.
func (c *HttpClient) Get(ctx context.Context, address string, params url.Values) ([]byte, error) {
	return c.invoke(ctx, http.MethodGet, address, params)
}

// Post issues an empty-bodied POST; OLE reads write parameters from the query.
func (c *HttpClient) Post(ctx context.Context, address string, params url.Values) ([]byte, error) {
	return c.invoke(ctx, http.MethodPost, address, params)
}

func WithQuery(address string, params url.Values) string {
	if len(params) == 0 {
		return address
	}
	sep := "?"
	if strings.Contains(address, "?") {
		sep = "&"
	}
	return address + sep + params.Encode()
}

// invoke treats 200 and 201 as success; OLE answers writes with 201.
func (c *HttpClient) invoke(ctx context.Context, method string, address string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, WithQuery(address, params), nil)
	if err != nil {
		return nil, err
	}
	if c.Headers != nil {
		req.Header = c.Headers.Clone()
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	buf, err := c.readResponse(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &HttpError{resp.StatusCode, buf}
	}
	return buf, nil
}

func (c *HttpClient) readResponse(body io.Reader) ([]byte, error) {
	if c.MaxResponseSize > 0 {
		body = NewLimitErrorReader(body, c.MaxResponseSize)
	}
	return io.ReadAll(body)
}

// LimitErrorReader fails with ErrTooLarge instead of silently truncating.
type LimitErrorReader struct {
	reader *io.LimitedReader
}

func NewLimitErrorReader(r io.Reader, limit int64) *LimitErrorReader {
	return &LimitErrorReader{
		reader: &io.LimitedReader{R: r, N: limit},
	}
}

func (ler *LimitErrorReader) Read(p []byte) (int, error) {
	if ler.reader.N <= 0 {
		return 0, ErrTooLarge
	}
	return ler.reader.Read(p)
}
