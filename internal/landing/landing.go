// Package landing renders the chat page served at "/".
package landing

import (
	"embed"
	"fmt"
	"html/template"
	"os"

	"gopkg.in/yaml.v3"
)

// TemplateName is the name of the chat page template.
const TemplateName = "chatbot.html"

//go:embed templates/*.html
var templateFS embed.FS

// Suggestion is a canned prompt shown under the welcome text.
type Suggestion struct {
	Emoji string `yaml:"emoji"`
	Text  string `yaml:"text"`
}

// Page holds the texts substituted into the chat page.
type Page struct {
	Title             string       `yaml:"title"`
	BotName           string       `yaml:"bot_name"`
	BotIcon           string       `yaml:"bot_icon"`
	BotStatus         string       `yaml:"bot_status"`
	UserIcon          string       `yaml:"user_icon"`
	WelcomeTitle      string       `yaml:"welcome_title"`
	WelcomeText       string       `yaml:"welcome_text"`
	Suggestions       []Suggestion `yaml:"suggestions"`
	InputPlaceholder  string       `yaml:"input_placeholder"`
	SendButtonText    string       `yaml:"send_button_text"`
	APIEndpoint       string       `yaml:"api_endpoint"`
	AcceptedFileTypes string       `yaml:"-"`
}

// Default returns the built-in page texts.
func Default() Page {
	return Page{
		Title:        "Meu Chatbot Personalizado",
		BotName:      "Assistente Virtual",
		BotIcon:      "🤖",
		BotStatus:    "Online 24/7",
		UserIcon:     "👤",
		WelcomeTitle: "👋 Olá! Bem-vindo!",
		WelcomeText:  "Como posso ajudar você hoje?",
		Suggestions: []Suggestion{
			{Emoji: "💡", Text: "O que você pode fazer?"},
			{Emoji: "🎯", Text: "Me dê dicas"},
			{Emoji: "📚", Text: "Explique algo"},
		},
		InputPlaceholder: "Digite aqui...",
		SendButtonText:   "Enviar",
		APIEndpoint:      "/api/chat",
	}
}

// Load returns Default overridden by the YAML file at path. Keys missing
// from the file keep their default; an empty path returns Default.
func Load(path string) (Page, error) {
	page := Default()
	if path == "" {
		return page, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return page, fmt.Errorf("failed to read page config: %w", err)
	}
	if err := yaml.Unmarshal(data, &page); err != nil {
		return page, fmt.Errorf("failed to parse page config: %w", err)
	}
	return page, nil
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}
