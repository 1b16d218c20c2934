package gemini

// GenerateContentRequest è il payload per models/{model}:generateContent
type GenerateContentRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content rappresenta un blocco di contenuto
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part è un frammento di contenuto testuale
type Part struct {
	Text string `json:"text"`
}

// GenerationConfig controlla i parametri di generazione
type GenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

// GenerateContentResponse è la risposta di generateContent
type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate è una risposta candidata
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

// Text restituisce il testo del primo candidato
func (r *GenerateContentResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}

	out := ""
	for _, part := range r.Candidates[0].Content.Parts {
		out += part.Text
	}
	return out
}

// FinishReason restituisce il finish reason del primo candidato
func (r *GenerateContentResponse) FinishReason() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0].FinishReason
}

// ErrorResponse è il formato errore dell'API
type ErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
