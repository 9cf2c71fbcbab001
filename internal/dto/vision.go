package dto

// Prompt is the fixed instruction pair sent with every chart.
type Prompt struct {
	System string
	User   string
}

type OpenAIChatRequest struct {
	Model       string              `json:"model"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
	Messages    []OpenAIChatMessage `json:"messages"`
}

type OpenAIChatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type OpenAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *OpenAIImageURL `json:"image_url,omitempty"`
}

type OpenAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type OpenAIChatResponse struct {
	Choices []OpenAIChoice `json:"choices"`
}

type OpenAIChoice struct {
	Message OpenAIChatMessageText `json:"message"`
}

type OpenAIChatMessageText struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
