// Package mock is a deterministic offline provider. It lets the server and
// CLI run end to end without any API keys.
package mock

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"log/slog"

	"glucoplate"
	"glucoplate/recognition"
)

// plates are the canned meals the mock "sees". Names match the seeded catalog.
var plates = [][]glucoplate.RecognizedItem{
	{{Name: "أرز أبيض", Confidence: 0.93}, {Name: "صدر دجاج مشوي", Confidence: 0.88}, {Name: "خضروات مشكلة", Confidence: 0.71}},
	{{Name: "خبز أسمر", Confidence: 0.9}, {Name: "حمص بطحينة", Confidence: 0.84}},
	{{Name: "تفاح", Confidence: 0.95}},
	{{Name: "تمر", Confidence: 0.91}, {Name: "زبادي سادة", Confidence: 0.6}},
}

type Client struct {
	name string
}

func NewClient() *Client {
	return &Client{name: "mock"}
}

func (c *Client) Name() string { return c.name }

// Recognize picks a plate from a hash of the image bytes, so the same photo
// always yields the same foods. The reply goes through the JSON parser like a
// real model's would.
func (c *Client) Recognize(ctx context.Context, req recognition.Request) ([]glucoplate.RecognizedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := fnv.New32a()
	_, _ = h.Write(req.Image.Data)
	plate := plates[int(h.Sum32()%uint32(len(plates)))]

	b, err := json.Marshal(plate)
	if err != nil {
		return nil, err
	}

	slog.Info("PROVIDER_MOCK: Returning canned plate", "items", len(plate))
	return recognition.ArrayParser{}.Parse(string(b))
}

// Answer echoes a fixed piece of advice in the requested language.
func (c *Client) Answer(ctx context.Context, message string, lang glucoplate.Language) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if lang == glucoplate.English {
		return "Choose whole grains, fill half your plate with vegetables and check your blood sugar two hours after eating.", nil
	}
	return "اختر الحبوب الكاملة واملأ نصف طبقك بالخضروات وافحص السكر بعد ساعتين من الأكل.", nil
}
