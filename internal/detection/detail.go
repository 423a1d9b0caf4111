package detection

import "encoding/json"

// Detail is the detector-specific part of a sample. It is a closed set:
// PromptDetail and ColorDetail are the only implementations.
type Detail interface {
	Kind() string
	isDetail()
}

// PromptDetail describes a text-prompted segmentation match.
type PromptDetail struct {
	Prompt string
	Method string
}

// Kind implements Detail.
func (PromptDetail) Kind() string { return "prompt" }
func (PromptDetail) isDetail()    {}

// MarshalJSON renders the detail with its kind tag.
func (d PromptDetail) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind   string `json:"kind"`
		Prompt string `json:"prompt"`
		Method string `json:"method"`
	}{d.Kind(), d.Prompt, d.Method})
}

// ColorDetail describes a color-segmentation match.
type ColorDetail struct {
	AreaPixels    float64
	AreaThreshold float64
}

// Kind implements Detail.
func (ColorDetail) Kind() string { return "color" }
func (ColorDetail) isDetail()    {}

// MarshalJSON renders the detail with its kind tag.
func (d ColorDetail) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind          string  `json:"kind"`
		AreaPixels    float64 `json:"area_pixels"`
		AreaThreshold float64 `json:"area_threshold"`
	}{d.Kind(), d.AreaPixels, d.AreaThreshold})
}
