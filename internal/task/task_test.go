package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validDefinition() Definition {
	return Definition{
		Name:   "news",
		URL:    "https://example.com/news",
		Tags:   "body>div, !.promo",
		Model:  "llama3",
		Prompt: "Summarize: " + ContentPlaceholder,
		APIURL: "http://localhost:11434",
		Format: FormatText,
	}
}

func TestDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Definition)
		wantErr string
	}{
		{"valid", func(d *Definition) {}, ""},
		{"empty schedule is allowed", func(d *Definition) { d.Schedule = "" }, ""},
		{"missing url", func(d *Definition) { d.URL = "" }, "url is required"},
		{"missing tags", func(d *Definition) { d.Tags = "  " }, "tags is required"},
		{"missing model", func(d *Definition) { d.Model = "" }, "model is required"},
		{"missing prompt", func(d *Definition) { d.Prompt = "" }, "prompt is required"},
		{"prompt without placeholder", func(d *Definition) { d.Prompt = "Summarize this" }, "placeholder"},
		{"missing api url", func(d *Definition) { d.APIURL = "" }, "api_url is required"},
		{"bad format", func(d *Definition) { d.Format = "pdf" }, "invalid format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(&def)
			err := def.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDefinition_Selectors(t *testing.T) {
	tests := []struct {
		name    string
		tags    string
		include []string
		exclude []string
	}{
		{
			name:    "include and exclude",
			tags:    "body>div,!.promo",
			include: []string{"body>div"},
			exclude: []string{".promo"},
		},
		{
			name:    "whitespace and empty entries dropped",
			tags:    " h1 , , .article ,  ! .ad , ",
			include: []string{"h1", ".article"},
			exclude: []string{".ad"},
		},
		{
			name:    "only excludes",
			tags:    "!.a,!.b",
			include: nil,
			exclude: []string{".a", ".b"},
		},
		{
			name:    "bare exclamation dropped",
			tags:    "h1,!",
			include: []string{"h1"},
			exclude: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := Definition{Tags: tt.tags}
			include, exclude := def.Selectors()
			assert.Equal(t, tt.include, include)
			assert.Equal(t, tt.exclude, exclude)
		})
	}
}
