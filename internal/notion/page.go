package notion

import (
	"strings"

	"github.com/xaenox/readlater-bot/internal/models"
)

type queryResponse struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

type page struct {
	ID         string              `json:"id"`
	Archived   bool                `json:"archived"`
	Properties map[string]property `json:"properties"`
}

type property struct {
	Type   string        `json:"type"`
	Title  []richText    `json:"title,omitempty"`
	URL    *string       `json:"url,omitempty"`
	Select *selectOption `json:"select,omitempty"`
}

type richText struct {
	PlainText string `json:"plain_text"`
	Text      *struct {
		Content string `json:"content"`
	} `json:"text,omitempty"`
}

type selectOption struct {
	Name string `json:"name"`
}

func (c *Client) toNote(p page) models.NoteItem {
	note := models.NoteItem{ID: p.ID}
	if prop, ok := p.Properties[c.props.Title]; ok {
		var b strings.Builder
		for _, rt := range prop.Title {
			switch {
			case rt.PlainText != "":
				b.WriteString(rt.PlainText)
			case rt.Text != nil:
				b.WriteString(rt.Text.Content)
			}
		}
		note.Title = b.String()
	}
	if prop, ok := p.Properties[c.props.URL]; ok && prop.URL != nil {
		note.URL = *prop.URL
	}
	if prop, ok := p.Properties[c.props.Read]; ok && prop.Select != nil {
		note.ReadFlag = prop.Select.Name
	}
	return note
}
