package anaf

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// Per-call timeout: the original waited indefinitely, which is not worth
	// preserving. Timeouts classify as the transport-error branch.
	defaultTimeout = 30 * time.Second

	// Status replies are small XML/JSON envelopes; result archives are zips
	// with an embedded PDF and need more room.
	maxEnvelopeBody = 1 << 20  // 1 MB
	maxArchiveBody  = 32 << 20 // 32 MB
)

// Client wraps the five remote operations of the e-Factura web service.
// It never retries on its own; each verb is independently retryable by the
// caller. The only internal recovery is one token re-acquisition after a 401.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cif        string
	tokens     TokenSource
}

// NewClient builds the gateway client. cif is the operator's own tax ID.
func NewClient(baseURL, cif string, tokens TokenSource) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		cif:        cif,
		tokens:     tokens,
	}
}

// Validate POSTs the XML to the schema-validation endpoint. Validator
// rejections come back in the result; only transport failures error.
func (c *Client) Validate(ctx context.Context, xmlBody []byte) (*ValidateResult, error) {
	body, _, err := c.do(ctx, http.MethodPost, c.baseURL+"/validare/FACT1", xmlBody, "text/plain", maxEnvelopeBody)
	if err != nil {
		return nil, err
	}
	var reply validateReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("validate: parse response: %w (%s)", err, truncate(body, 200))
	}
	res := &ValidateResult{Ok: reply.Stare == "ok"}
	for _, m := range reply.Messages {
		if m.Message != "" {
			res.Errors = append(res.Errors, m.Message)
		}
	}
	return res, nil
}

// Upload POSTs the XML to the submission endpoint and extracts the upload
// index from the reply envelope.
func (c *Client) Upload(ctx context.Context, xmlBody []byte) (*UploadResult, error) {
	url := fmt.Sprintf("%s/upload?standard=UBL&cif=%s", c.baseURL, c.cif)
	body, _, err := c.do(ctx, http.MethodPost, url, xmlBody, "text/plain", maxEnvelopeBody)
	if err != nil {
		return nil, err
	}
	var h header
	if err := xml.Unmarshal(body, &h); err != nil {
		return nil, fmt.Errorf("upload: parse envelope: %w (%s)", err, truncate(body, 200))
	}
	if h.IndexIncarcare == "" {
		errs := h.errorMessages()
		if len(errs) == 0 {
			errs = []string{"missing upload index in gateway reply"}
		}
		return &UploadResult{Ok: false, Errors: errs}, nil
	}
	return &UploadResult{Ok: true, UploadID: h.IndexIncarcare}, nil
}

// CheckStatus polls the processing state of an upload. An empty uploadID is
// answered locally, without an HTTP call.
func (c *Client) CheckStatus(ctx context.Context, uploadID string) (*StatusResult, error) {
	if uploadID == "" {
		return &StatusResult{Ok: false, Stare: "nok", Errors: []string{"No load index."}}, nil
	}
	url := fmt.Sprintf("%s/stareMesaj?id_incarcare=%s", c.baseURL, uploadID)
	body, _, err := c.do(ctx, http.MethodGet, url, nil, "", maxEnvelopeBody)
	if err != nil {
		return nil, err
	}
	var h header
	if err := xml.Unmarshal(body, &h); err != nil {
		return nil, fmt.Errorf("check status: parse envelope: %w (%s)", err, truncate(body, 200))
	}
	res := &StatusResult{Stare: h.Stare}
	if h.Stare == "ok" && h.IDDescarcare != "" {
		res.Ok = true
		res.DownloadID = h.IDDescarcare
		return res, nil
	}
	res.Errors = h.errorMessages()
	if len(res.Errors) == 0 && h.Stare != "" {
		res.Errors = []string{h.Stare}
	}
	return res, nil
}

// Download fetches a result archive. The content type is checked before the
// body is treated as a zip: a non-zip 200 always signals a remote-side error
// and yields an error result, never an attachment.
func (c *Client) Download(ctx context.Context, downloadID string) (*DownloadResult, error) {
	if downloadID == "" {
		return &DownloadResult{Ok: false, Errors: []string{"No download index."}}, nil
	}
	url := fmt.Sprintf("%s/descarcare?id=%s", c.baseURL, downloadID)
	body, contentType, err := c.do(ctx, http.MethodGet, url, nil, "", maxArchiveBody)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(contentType, "application/zip") {
		return &DownloadResult{
			Ok:     false,
			Errors: []string{fmt.Sprintf("unexpected content type %q: %s", contentType, truncate(body, 200))},
		}, nil
	}
	return &DownloadResult{Ok: true, Zip: body}, nil
}

// ListInbound fetches the inbound notifications for the operator's tax ID
// within a trailing window of days.
func (c *Client) ListInbound(ctx context.Context, windowDays int) (*ListResult, error) {
	if windowDays <= 0 {
		windowDays = 60
	}
	url := fmt.Sprintf("%s/listaMesajeFactura?zile=%s&cif=%s", c.baseURL, strconv.Itoa(windowDays), c.cif)
	body, _, err := c.do(ctx, http.MethodGet, url, nil, "", maxEnvelopeBody)
	if err != nil {
		return nil, err
	}
	var reply listReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("list inbound: parse response: %w (%s)", err, truncate(body, 200))
	}
	if reply.Eroare != "" {
		// An empty inbox is reported through "eroare" as well; that one is
		// a normal empty result, not a failure.
		if strings.Contains(strings.ToLower(reply.Eroare), "nu exista mesaje") {
			return &ListResult{Ok: true}, nil
		}
		return &ListResult{Ok: false, Errors: []string{reply.Eroare}}, nil
	}
	return &ListResult{Ok: true, Messages: reply.Mesaje}, nil
}

// do performs one authorized call, replaying it exactly once with a fresh
// token if the gateway rejects the bearer. Returns body and content type.
func (c *Client) do(ctx context.Context, method, url string, payload []byte, contentType string, maxBody int64) ([]byte, string, error) {
	body, ct, status, err := c.doOnce(ctx, method, url, payload, contentType, maxBody)
	if err != nil {
		return nil, "", err
	}
	if status == http.StatusUnauthorized {
		c.tokens.Invalidate()
		body, ct, status, err = c.doOnce(ctx, method, url, payload, contentType, maxBody)
		if err != nil {
			return nil, "", err
		}
	}
	if status != http.StatusOK {
		return nil, "", fmt.Errorf("gateway: HTTP %d on %s %s: %s", status, method, url, truncate(body, 200))
	}
	return body, ct, nil
}

func (c *Client) doOnce(ctx context.Context, method, url string, payload []byte, contentType string, maxBody int64) (body []byte, ct string, status int, err error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, "", 0, fmt.Errorf("gateway: acquire token: %w", err)
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, "", 0, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", 0, fmt.Errorf("gateway: timeout or cancellation: %w", ctx.Err())
		}
		return nil, "", 0, fmt.Errorf("gateway: HTTP call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, "", 0, fmt.Errorf("gateway: read response: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), resp.StatusCode, nil
}
