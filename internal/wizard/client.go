package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/printforge/printforge/internal/catalog"
)

var errMissingBaseURL = errors.New("wizard: base URL is required")

// ClientConfig configures the storefront API client.
type ClientConfig struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// Client talks to the storefront API. It satisfies ModelUploader and
// QuoteCreator for Machine.Submit.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient validates the configuration and constructs an API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errMissingBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		httpClient: httpClient,
	}, nil
}

type documentEnvelope struct {
	Doc struct {
		ID string `json:"id"`
	} `json:"doc"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// UploadModel posts one file as multipart form data and returns the confirmed
// model identifier.
func (c *Client) UploadModel(ctx context.Context, file FileSource) (string, error) {
	payload, err := file.Open()
	if err != nil {
		return "", err
	}
	defer payload.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, payload); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/models", &body)
	if err != nil {
		return "", err
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(request)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return "", c.apiError(response)
	}

	var envelope documentEnvelope
	if err := json.NewDecoder(response.Body).Decode(&envelope); err != nil {
		return "", err
	}
	return envelope.Doc.ID, nil
}

// CreateQuote posts the assembled submission and returns the created quote id.
func (c *Client) CreateQuote(ctx context.Context, submission Submission) (string, error) {
	encoded, err := json.Marshal(submission)
	if err != nil {
		return "", err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/quotes", bytes.NewReader(encoded))
	if err != nil {
		return "", err
	}
	request.Header.Set("Content-Type", "application/json")
	c.authorize(request)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return "", c.apiError(response)
	}

	var envelope documentEnvelope
	if err := json.NewDecoder(response.Body).Decode(&envelope); err != nil {
		return "", err
	}
	if envelope.Doc.ID == "" {
		return "", errors.New("quote response carried no document id")
	}
	return envelope.Doc.ID, nil
}

// FetchOptions loads the catalog option sets backing the preferences step.
func (c *Client) FetchOptions(ctx context.Context) (catalog.WizardOptions, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/quote-options", nil)
	if err != nil {
		return catalog.WizardOptions{}, err
	}
	c.authorize(request)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return catalog.WizardOptions{}, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return catalog.WizardOptions{}, c.apiError(response)
	}

	var options catalog.WizardOptions
	if err := json.NewDecoder(response.Body).Decode(&options); err != nil {
		return catalog.WizardOptions{}, err
	}
	return options, nil
}

func (c *Client) authorize(request *http.Request) {
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// apiError surfaces the server's error message verbatim when one is present.
func (c *Client) apiError(response *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<16))
	if err == nil {
		var envelope errorEnvelope
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
			return errors.New(envelope.Error)
		}
	}
	return fmt.Errorf("request failed with status %d", response.StatusCode)
}
