package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"glucoplate"
	"glucoplate/recognition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTPClient implements the HTTPClient interface for testing
type mockHTTPClient struct {
	response *http.Response
	err      error
	request  *http.Request
	body     []byte
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.request = req
	if req.Body != nil {
		m.body, _ = io.ReadAll(req.Body)
	}
	return m.response, m.err
}

// createMockResponse creates a mock HTTP response
func createMockResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"message":     map[string]string{"role": "assistant", "content": content},
		"done":        true,
		"done_reason": "stop",
	})
	return string(b)
}

func newTestClient(t *testing.T, hc glucoplate.HTTPClient) *Client {
	t.Helper()
	c, err := NewClient(ClientOpts{
		BaseEndpoint: "http://localhost:11434/",
		ModelID:      "llava",
		HTTPClient:   hc,
		MaxTokens:    256,
		Temperature:  0.2,
	})
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	c := newTestClient(t, &mockHTTPClient{})
	assert.Equal(t, "ollama", c.Name())
	assert.Equal(t, "http://localhost:11434/api/chat", c.endpoint)
	assert.Equal(t, float32(1.05), c.options.RepeatPenalty)

	_, err := NewClient(ClientOpts{ModelID: "llava"})
	assert.Error(t, err)
	_, err = NewClient(ClientOpts{BaseEndpoint: "http://localhost:11434"})
	assert.Error(t, err)
}

func TestClient_Recognize(t *testing.T) {
	hc := &mockHTTPClient{response: createMockResponse(200, chatReply(`[{"name":"عدس","confidence":0.8}]`))}
	c := newTestClient(t, hc)

	items, err := c.Recognize(context.Background(), recognition.Request{
		Image:    recognition.NewImage([]byte("jpegbytes"), "image/jpeg"),
		Language: glucoplate.English,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "عدس", items[0].Name)
	assert.InDelta(t, 0.8, items[0].Confidence, 1e-9)

	assert.Equal(t, "application/json", hc.request.Header.Get("Content-Type"))

	var sent wireRequest
	require.NoError(t, json.Unmarshal(hc.body, &sent))
	assert.Equal(t, "llava", sent.Model)
	assert.False(t, sent.Stream)
	require.Len(t, sent.Messages, 2)
	assert.Contains(t, sent.Messages[0].Content, "food recognition expert")
	assert.Equal(t, []string{"anBlZ2J5dGVz"}, sent.Messages[1].Images)
	assert.Equal(t, int32(256), sent.Options.NumPredict)
}

func TestClient_Recognize_Errors(t *testing.T) {
	tests := []struct {
		name        string
		response    *http.Response
		err         error
		wantOutcome recognition.Outcome
	}{
		{name: "model missing", response: createMockResponse(404, `{"error":"model 'llava' not found"}`), wantOutcome: recognition.OutcomeStatusError},
		{name: "overloaded", response: createMockResponse(503, `{"error":"busy"}`), wantOutcome: recognition.OutcomeNetworkError},
		{name: "connection refused", err: io.ErrUnexpectedEOF, wantOutcome: recognition.OutcomeNetworkError},
		{name: "malformed envelope", response: createMockResponse(200, `{"message":`), wantOutcome: recognition.OutcomeParseError},
		{name: "prose reply", response: createMockResponse(200, chatReply("A plate of food.")), wantOutcome: recognition.OutcomeParseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, &mockHTTPClient{response: tt.response, err: tt.err})

			_, err := c.Recognize(context.Background(), recognition.Request{
				Image:    recognition.NewImage([]byte("x"), "image/png"),
				Language: glucoplate.Arabic,
			})
			require.Error(t, err)
			assert.Equal(t, tt.wantOutcome, recognition.Classify(err))
		})
	}
}

func TestClient_Answer(t *testing.T) {
	hc := &mockHTTPClient{response: createMockResponse(200, chatReply(" اختر الحبوب الكاملة. "))}
	c := newTestClient(t, hc)

	got, err := c.Answer(context.Background(), "ماذا آكل؟", glucoplate.Arabic)
	require.NoError(t, err)
	assert.Equal(t, "اختر الحبوب الكاملة.", got)

	var sent wireRequest
	require.NoError(t, json.Unmarshal(hc.body, &sent))
	require.Len(t, sent.Messages, 2)
	assert.Empty(t, sent.Messages[1].Images)
	assert.Equal(t, "ماذا آكل؟", sent.Messages[1].Content)
}
