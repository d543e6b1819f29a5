package compilation

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// CompilePath is the compilation service route.
const CompilePath = "/latex/compile"

// Error kinds reported by the compilation service on HTTP 500.
const (
	KindCompilation = "compilation"
	KindTimeout     = "timeout"
	KindInternal    = "internal"
)

// ErrorResponse is the JSON error shape returned by the compilation service.
// Kind separates source the user can fix from failures of the service itself.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// Client compiles LaTeX through a remote compilation service.
type Client struct {
	http *resty.Client
}

// NewClient creates a Client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout + 10*time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/pdf, application/json")
	return &Client{http: c}
}

// Compile posts source to the service and returns the PDF bytes.
func (c *Client) Compile(ctx context.Context, source string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain; charset=utf-8").
		SetBody(source).
		SetError(&ErrorResponse{}).
		Post(CompilePath)
	if err != nil {
		return nil, &Error{Message: "compilation service request failed", Cause: err}
	}

	if !resp.IsError() {
		return resp.Body(), nil
	}

	body, _ := resp.Error().(*ErrorResponse)
	if body == nil || body.Error == "" {
		body = &ErrorResponse{Error: strings.TrimSpace(resp.String())}
	}
	switch resp.StatusCode() {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return nil, &InputError{Message: body.Error}
	case http.StatusInternalServerError:
		if serviceFailure(body) {
			return nil, &Error{Message: "compilation service failed: " + body.Error}
		}
		return nil, &CompilationError{Message: body.Error, LogOutput: body.Details}
	default:
		return nil, &Error{Message: "compilation service returned " + resp.Status() + ": " + body.Error}
	}
}

// serviceFailure reports whether a 500 body describes a failure of the service
// rather than of the submitted source. Bodies without a kind carry the toolchain
// log in details whenever the source was at fault.
func serviceFailure(body *ErrorResponse) bool {
	switch body.Kind {
	case KindCompilation, KindTimeout:
		return false
	case KindInternal:
		return true
	default:
		return body.Details == ""
	}
}
