// Package rekognition uses AWS Rekognition label detection as a vision
// provider. It returns English label names, which the resolver matches
// against the catalog's alternate names.
package rekognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"glucoplate"
	"glucoplate/recognition"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

const (
	defaultMaxLabels     = 10
	defaultMinConfidence = 75
)

type detectLabelsAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// genericLabels name the scene rather than a food.
var genericLabels = map[string]bool{
	"food":         true,
	"meal":         true,
	"dish":         true,
	"lunch":        true,
	"dinner":       true,
	"breakfast":    true,
	"plant":        true,
	"produce":      true,
	"plate":        true,
	"bowl":         true,
	"tableware":    true,
	"cutlery":      true,
	"platter":      true,
	"food court":   true,
	"cuisine":      true,
	"brunch":       true,
	"supper":       true,
	"dining table": true,
}

// foodParents are the label ancestors that mark a label as edible.
var foodParents = map[string]bool{
	"food":      true,
	"fruit":     true,
	"vegetable": true,
	"meal":      true,
	"beverage":  true,
	"dessert":   true,
	"bread":     true,
	"meat":      true,
	"seafood":   true,
	"nut":       true,
}

type Options struct {
	MaxLabels     int32
	MinConfidence float32
}

type Client struct {
	api  detectLabelsAPI
	opts Options
}

func NewClient(api detectLabelsAPI, opts Options) *Client {
	if opts.MaxLabels <= 0 {
		opts.MaxLabels = defaultMaxLabels
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = defaultMinConfidence
	}
	return &Client{api: api, opts: opts}
}

func (c *Client) Name() string { return "rekognition" }

// Recognize keeps labels that descend from a food category and drops the
// generic scene labels. Confidences are rescaled from 0..100 to 0..1.
func (c *Client) Recognize(ctx context.Context, req recognition.Request) ([]glucoplate.RecognizedItem, error) {
	out, err := c.api.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: req.Image.Data},
		MaxLabels:     aws.Int32(c.opts.MaxLabels),
		MinConfidence: aws.Float32(c.opts.MinConfidence),
	})
	if err != nil {
		var re *awshttp.ResponseError
		if errors.As(err, &re) {
			return nil, &glucoplate.ProviderStatusError{Provider: "rekognition", StatusCode: re.HTTPStatusCode(), Body: re.Error()}
		}
		return nil, fmt.Errorf("rekognition: %w", err)
	}

	items := make([]glucoplate.RecognizedItem, 0, len(out.Labels))
	for _, label := range out.Labels {
		name := strings.TrimSpace(aws.ToString(label.Name))
		if name == "" || genericLabels[strings.ToLower(name)] || !isFood(label) {
			continue
		}
		items = append(items, glucoplate.RecognizedItem{
			Name:       name,
			Confidence: float64(aws.ToFloat32(label.Confidence)) / 100,
		})
	}

	slog.Info("PROVIDER_REKOGNITION: Labels detected", "labels", len(out.Labels), "foods", len(items))
	return items, nil
}

func isFood(label types.Label) bool {
	for _, p := range label.Parents {
		if foodParents[strings.ToLower(aws.ToString(p.Name))] {
			return true
		}
	}
	for _, cat := range label.Categories {
		if strings.EqualFold(aws.ToString(cat.Name), "Food and Beverage") {
			return true
		}
	}
	return false
}
