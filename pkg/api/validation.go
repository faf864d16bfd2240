package api

// Temperature and top_p domains accepted by every backend vendor the
// gateway fronts.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinTopP        = 0.0
	MaxTopP        = 1.0
)

// ValidateRequest checks an InferenceRequest for well-formedness before any
// registry or network activity. It returns an *Error describing the first
// violated constraint, or nil if the request is valid. Checks run in a fixed
// order: prompt, temperature, max_tokens, top_p. The function has no side
// effects and is safe to call any number of times.
func ValidateRequest(req *InferenceRequest) *Error {
	if req == nil || req.Prompt == "" {
		return NewValidationError("prompt", "prompt is required and must be non-empty")
	}

	if req.Temperature != nil {
		if *req.Temperature < MinTemperature || *req.Temperature > MaxTemperature {
			return NewValidationError("temperature", "temperature must be between 0.0 and 2.0")
		}
	}

	if req.MaxTokens != nil && *req.MaxTokens < 1 {
		return NewValidationError("max_tokens", "max_tokens must be a positive integer")
	}

	if req.TopP != nil {
		if *req.TopP < MinTopP || *req.TopP > MaxTopP {
			return NewValidationError("top_p", "top_p must be between 0.0 and 1.0")
		}
	}

	return nil
}
