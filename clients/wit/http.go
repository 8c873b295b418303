package wit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultHost    = "https://api.wit.ai"
	DefaultVersion = "20160511"
)

type clientImpl struct {
	apiHost    string
	version    string
	token      string
	httpClient *http.Client
}

type Config struct {
	ApiHost string
	Version string
	Token   string
	Timeout time.Duration
}

// Entity is one extracted entity value. Value is either a plain value or an
// object that itself carries a "value" field.
type Entity struct {
	Value      json.RawMessage `json:"value"`
	Confidence float64         `json:"confidence"`
}

type MessageResponse struct {
	Text     string              `json:"_text"`
	Entities map[string][]Entity `json:"entities"`
}

type speechResponse struct {
	LegacyText string `json:"_text"`
	Text       string `json:"text"`
}

func NewClient(cfg *Config) (API, error) {
	if cfg == nil {
		return nil, errors.New("missing parameter: cfg")
	}

	if cfg.Token == "" {
		return nil, errors.New("missing parameter: cfg.Token")
	}

	host := cfg.ApiHost
	if host == "" {
		host = DefaultHost
	}

	version := cfg.Version
	if version == "" {
		version = DefaultVersion
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &clientImpl{
		apiHost:    host,
		version:    version,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (client *clientImpl) Speech(ctx context.Context, wav []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, client.endpoint("/speech", nil), bytes.NewReader(wav))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set("Accept", "*/*")

	var resp speechResponse
	if err := client.do(req, &resp); err != nil {
		return "", err
	}

	if resp.Text != "" {
		return resp.Text, nil
	}

	return resp.LegacyText, nil
}

func (client *clientImpl) Message(ctx context.Context, text string) (*MessageResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.endpoint("/message", url.Values{"q": {text}}), nil)
	if err != nil {
		return nil, err
	}

	var resp MessageResponse
	if err := client.do(req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (client *clientImpl) endpoint(path string, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	q.Set("v", client.version)

	return client.apiHost + path + "?" + q.Encode()
}

func (client *clientImpl) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+client.token)

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("wit.ai returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode wit.ai response: %w", err)
	}

	return nil
}

// FirstEntityValue returns the first value extracted for entity, or "" when absent.
func (m *MessageResponse) FirstEntityValue(entity string) string {
	if m == nil {
		return ""
	}

	values := m.Entities[entity]
	if len(values) == 0 || len(values[0].Value) == 0 {
		return ""
	}

	raw := values[0].Value

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}

	var nested struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return nested.Value
	}

	return ""
}
