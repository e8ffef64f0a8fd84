package models

// Folder is a mailbox or Gmail label as listed by the backend.
type Folder struct {
	Name  string   `json:"name"`
	Flags []string `json:"flags"`
}

// MappedFolder is a folder prepared for the sidebar.
type MappedFolder struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind,omitempty"`
	Href     string   `json:"href"`
	Flags    []string `json:"flags"`
	IsSystem bool     `json:"is_system"`
}

// FolderTree splits the sidebar into system folders and user labels.
type FolderTree struct {
	System []MappedFolder `json:"system"`
	Custom []MappedFolder `json:"custom"`
}

// CreateLabelRequest is the body of POST /labels.
type CreateLabelRequest struct {
	Name                  string `json:"name"`
	LabelListVisibility   string `json:"label_list_visibility"`
	MessageListVisibility string `json:"message_list_visibility"`
}

// Label is a Gmail label as created by the backend.
type Label struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	LabelListVisibility   string `json:"label_list_visibility"`
	MessageListVisibility string `json:"message_list_visibility"`
	Type                  string `json:"type"`
}

// SuggestLabelRequest asks the backend to pick a label for one email.
type SuggestLabelRequest struct {
	EmailID string `json:"email_id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// LabelSuggestion is the backend's answer to a SuggestLabelRequest.
type LabelSuggestion struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

// LabelResult records the outcome of auto-labeling one email.
type LabelResult struct {
	UID    string `json:"uid"`
	Label  string `json:"label,omitempty"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchLabelResult summarizes a batch auto-label run.
type BatchLabelResult struct {
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Results    []LabelResult `json:"results"`
}
