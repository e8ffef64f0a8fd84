package models

// EmailPage is one offset/limit page of a folder listing.
type EmailPage struct {
	Emails     []Mail `json:"emails"`
	Folder     string `json:"folder"`
	Offset     int    `json:"offset"`
	Limit      int    `json:"limit"`
	NextOffset int    `json:"next_offset"`
	HasMore    bool   `json:"has_more"`
}

// NewEmailPage builds a page. A nil slice is rendered as an empty list.
func NewEmailPage(emails []Mail, folder string, offset, limit, nextOffset int, hasMore bool) *EmailPage {
	if emails == nil {
		emails = []Mail{}
	}
	return &EmailPage{
		Emails:     emails,
		Folder:     folder,
		Offset:     offset,
		Limit:      limit,
		NextOffset: nextOffset,
		HasMore:    hasMore,
	}
}
