package anthropic

// MessagesRequest è il payload per /v1/messages
type MessagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
}

// Message rappresenta un messaggio nella conversazione
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessagesResponse è la risposta di /v1/messages
type MessagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// ContentBlock è un blocco di contenuto nella risposta
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Text concatena i blocchi testuali della risposta
func (r *MessagesResponse) Text() string {
	out := ""
	for _, block := range r.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out
}

// Usage rappresenta le statistiche di utilizzo token
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ErrorResponse è il formato errore dell'API
type ErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
