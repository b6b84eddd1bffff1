package models

// NoteItem is a page of the user's Notion database
type NoteItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	ReadFlag string `json:"read_flag,omitempty"`
}

// Unread reports whether the read select of the page is empty
func (n NoteItem) Unread() bool {
	return n.ReadFlag == ""
}

// DeliveryText formats a note the way it is pushed to the chat
func DeliveryText(title, url string) string {
	return title + "\n\n" + url
}
