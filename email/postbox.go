package email

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const signingService = "ses"

// PostboxSender delivers mail through an SES-compatible HTTP endpoint using
// AWS Signature Version 4 request signing. The signing is implemented by hand
// so the service does not pull in the full AWS SDK for one request shape.
type PostboxSender struct {
	endpoint  string
	region    string
	accessKey string
	secretKey string
	from      string
	client    *http.Client
	nowFunc   func() time.Time
}

// PostboxOption configures a PostboxSender.
type PostboxOption func(*PostboxSender)

// WithHTTPClient overrides the HTTP client, used by tests.
func WithHTTPClient(client *http.Client) PostboxOption {
	return func(s *PostboxSender) {
		if client != nil {
			s.client = client
		}
	}
}

// WithPostboxNowFunc injects the signing clock for tests.
func WithPostboxNowFunc(now func() time.Time) PostboxOption {
	return func(s *PostboxSender) {
		if now != nil {
			s.nowFunc = now
		}
	}
}

// NewPostboxSender creates a sender posting to endpoint with SigV4 credentials.
func NewPostboxSender(endpoint, region, accessKey, secretKey, from string, options ...PostboxOption) (*PostboxSender, error) {
	if endpoint == "" || region == "" || accessKey == "" || secretKey == "" || from == "" {
		return nil, errors.New("[NewPostboxSender] endpoint, region, credentials and from address are all required")
	}

	sender := &PostboxSender{
		endpoint:  endpoint,
		region:    region,
		accessKey: accessKey,
		secretKey: secretKey,
		from:      from,
		client:    &http.Client{Timeout: 10 * time.Second},
		nowFunc:   time.Now,
	}
	for _, option := range options {
		option(sender)
	}
	return sender, nil
}

type postboxPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Send signs and posts the message. Any non-2xx response is an error.
func (s *PostboxSender) Send(ctx context.Context, message Message) error {
	body, err := json.Marshal(postboxPayload{
		From:    s.from,
		To:      message.To,
		Subject: message.Subject,
		Text:    message.Body,
	})
	if err != nil {
		return errors.Wrap(err, "[Send] marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "[Send] build request")
	}
	req.Header.Set("Content-Type", "application/json")

	if err := s.sign(req, body); err != nil {
		return errors.Wrap(err, "[Send] sign request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "[Send] post")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("[Send] postbox returned %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}

// sign applies AWS Signature Version 4 with the host and x-amz-date headers
// as the signed set.
func (s *PostboxSender) sign(req *http.Request, body []byte) error {
	parsed, err := url.Parse(s.endpoint)
	if err != nil {
		return errors.Wrap(err, "parse endpoint")
	}

	now := s.nowFunc().UTC()
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")

	req.Header.Set("X-Amz-Date", amzDate)

	payloadHash := hexSHA256(body)
	canonicalPath := parsed.EscapedPath()
	if canonicalPath == "" {
		canonicalPath = "/"
	}

	canonicalHeaders := fmt.Sprintf("host:%s\nx-amz-date:%s\n", parsed.Host, amzDate)
	signedHeaders := "host;x-amz-date"

	canonicalRequest := strings.Join([]string{
		http.MethodPost,
		canonicalPath,
		parsed.RawQuery,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := strings.Join([]string{dateStamp, s.region, signingService, "aws4_request"}, "/")
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	signingKey := hmacSHA256(
		hmacSHA256(
			hmacSHA256(
				hmacSHA256([]byte("AWS4"+s.secretKey), dateStamp),
				s.region),
			signingService),
		"aws4_request")
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	req.Header.Set("Authorization", fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		s.accessKey, scope, signedHeaders, signature,
	))
	return nil
}

func hexSHA256(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}
